package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/delivery/http/handler"
	"github.com/user/recipe-service/internal/delivery/http/middleware"
)

// requestTimeout bounds non-streaming requests. It must exceed the fetch
// timeout plus the browser fallback.
const requestTimeout = 120 * time.Second

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.Identity)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)

		// Streams stay open for the whole extraction.
		r.Post("/parse/stream", h.HandleParseStream)
		r.Get("/parse/sessions/{id}/events", h.HandleSessionEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Post("/parse", h.HandleParse)
			r.Post("/parse/image", h.HandleParseImage)
			r.Get("/parse/failures", h.HandleRecentFailures)
			r.Get("/parse/sessions", h.HandleListSessions)
			r.Get("/parse/sessions/{id}", h.HandleGetSession)
			r.Delete("/parse/sessions/{id}", h.HandleCleanupSession)

			r.Get("/pending", h.HandleListPending)
			r.Get("/pending/summary", h.HandleSummary)
			r.Get("/pending/{id}", h.HandleGetPending)
			r.Post("/pending/{id}/approve", h.HandleApprove)
			r.Post("/pending/{id}/reject", h.HandleReject)
		})
	})

	return r
}
