package httpapi

import (
	"errors"
	"net/http"

	"superrider-be/internal/logger"
	"superrider-be/internal/order"
	"superrider-be/internal/utils"

	"go.uber.org/zap"
)

// requestError marks a malformed request that never reached the store.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

func statusFor(err error) int {
	var reqErr *requestError
	var valErr *order.ValidationError
	switch {
	case errors.As(err, &reqErr), errors.As(err, &valErr), errors.Is(err, order.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrStatusRegression), errors.Is(err, order.ErrOrderCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed", zap.Error(err))
		msg = "internal server error"
	}
	utils.WriteJSONError(w, msg, code)
}
