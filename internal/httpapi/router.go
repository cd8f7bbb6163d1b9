package httpapi

import (
	"net/http"

	"superrider-be/internal/location"
	"superrider-be/internal/logger"
	"superrider-be/internal/middleware"
	"superrider-be/internal/order"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Store       order.Store
	Hub         *location.Hub
	Gatherer    prometheus.Gatherer
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	// CheckOrigin guards websocket upgrades; nil falls back to CORSOrigins.
	CheckOrigin func(r *http.Request) bool
}

type handler struct {
	store  order.Store
	stream *location.StreamHandler
}

func NewRouter(deps Deps) http.Handler {
	checkOrigin := deps.CheckOrigin
	if checkOrigin == nil && len(deps.CORSOrigins) > 0 {
		checkOrigin = middleware.OriginChecker(deps.CORSOrigins)
	}
	h := &handler{
		store:  deps.Store,
		stream: location.NewStreamHandler(deps.Hub, checkOrigin),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.CORS(deps.CORSOrigins))

	r.Get("/health", health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// websocket streams stay outside the limiter; one upgrade holds for the whole session
	r.Get("/socket", h.streamAll)
	r.Get("/orders/{id}/location", h.streamOrder)

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Middleware)
		}
		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.createOrder)
		r.Get("/orders/stats", h.stats)
		r.Get("/orders/{id}", h.getOrder)
		r.Patch("/orders/{id}/status", h.changeStatus)
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
