package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lintel/internal/site"
)

// NewRouter creates a chi router serving the site.
// events, if non-nil, is mounted at GET /events.
func NewRouter(svc *site.Service, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Health check endpoints.
	r.Get("/health/live", h.Health)
	r.Get("/health/ready", h.Health)

	// Live clock and layout change stream.
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	// Every other path is a site page or asset.
	r.With(NoCache).Get("/*", h.Page)

	return r
}
