// Package httptransport assembles the HTTP surface: middleware stack plus the
// per-domain handlers, which register their own routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigorlog/internal/platform/metrics"
	"vigorlog/internal/platform/middleware"
)

// Registrar is implemented by every handler that mounts routes.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all public endpoints with the shared middleware stack.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Device)
	r.Use(middleware.Latency(m))

	for _, handler := range handlers {
		handler.Register(r)
	}

	return r
}
