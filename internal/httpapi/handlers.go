package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"superrider-be/internal/order"
	"superrider-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type statusRequest struct {
	Status string `json:"status"`
}

type listResponse struct {
	Orders []order.Order `json:"orders"`
	Count  int           `json:"count"`
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders := h.store.List(filter)
	utils.WriteJSON(w, http.StatusOK, listResponse{Orders: orders, Count: len(orders)})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.store.Stats())
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var input order.NewOrderInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, badRequest(err))
		return
	}

	o, err := h.store.AddOrder(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/orders/"+o.ID)
	utils.WriteJSON(w, http.StatusCreated, o)
}

func (h *handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, badRequest(err))
		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %q", err, req.Status))
		return
	}

	o, err := h.store.ChangeStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *handler) streamOrder(w http.ResponseWriter, r *http.Request) {
	h.stream.ServeOrder(w, r, chi.URLParam(r, "id"))
}

func (h *handler) streamAll(w http.ResponseWriter, r *http.Request) {
	h.stream.ServeAll(w, r)
}

func parseListFilter(r *http.Request) (order.ListFilter, error) {
	q := r.URL.Query()
	filter := order.ListFilter{
		View:   order.ViewAll,
		Search: q.Get("q"),
		Sort:   order.SortDesc,
	}

	switch v := order.View(strings.ToLower(q.Get("view"))); v {
	case "":
	case order.ViewAll, order.ViewActive, order.ViewCompleted:
		filter.View = v
	default:
		return filter, badRequest(fmt.Errorf("unknown view %q", v))
	}

	switch s := order.SortDirection(strings.ToLower(q.Get("sort"))); s {
	case "":
	case order.SortAsc, order.SortDesc:
		filter.Sort = s
	default:
		return filter, badRequest(fmt.Errorf("unknown sort %q", s))
	}

	return filter, nil
}
