package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderCompleted   = errors.New("order already delivered")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrStatusRegression = errors.New("status transition not allowed")
	ErrSnapshotNotFound = errors.New("order snapshot not found")
)

// ValidationError reports a missing or malformed field of a new order.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
