// Package httptransport wires the HTTP surface: routes, middleware, metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkpoint/internal/attendance/handler"
	"checkpoint/internal/transport/http/shared"
	"checkpoint/pkg/platform/middleware/auth"
	"checkpoint/pkg/platform/middleware/clientip"
	"checkpoint/pkg/platform/middleware/requesttime"
)

// NewRouter assembles the full route tree. The attendance API sits behind
// bearer auth; health and metrics do not.
func NewRouter(h *handler.Handler, signingKey []byte, trackingEnabled bool, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(requesttime.Middleware())
	r.Use(clientip.Middleware(trackingEnabled))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(signingKey, logger))
		h.Register(r)
	})

	return r
}
