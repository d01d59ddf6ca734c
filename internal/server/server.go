// Package server builds the HTTP surface of contentd: the JSON content
// API, the live-reload socket and the MCP endpoint.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formationhub/contentd/internal/auth"
	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/logging"
	"github.com/formationhub/contentd/internal/render"
	"github.com/formationhub/contentd/internal/site"
)

// Config holds dependencies for building the router.
type Config struct {
	Holder   *content.Holder
	Site     *site.Site
	Renderer *render.Renderer
	Keys     *auth.Store
	// Hub, when set, serves /ws/reload.
	Hub *Hub
	// MCPHandler, when set, is served at /mcp behind required API keys.
	MCPHandler http.Handler
	Logger     *slog.Logger
}

// New builds the router. Public routes accept anonymous callers, who read
// at the lowest tier; a presented API key must be valid.
func New(cfg Config) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Site == nil {
		cfg.Site = site.Default()
	}
	if cfg.Keys == nil {
		cfg.Keys = auth.NewStore(nil)
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.New(nil, cfg.Logger)
	}

	h := &handlers{
		holder:   cfg.Holder,
		site:     cfg.Site,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(recoverer(cfg.Logger))
	r.Use(requestLogger(cfg.Logger))

	r.Get("/healthz", h.health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Keys, cfg.Logger, false))

		r.Route("/api", func(r chi.Router) {
			r.Get("/posts", h.listPosts)
			r.Get("/posts/*", h.getPost)
			r.Get("/tutorials", h.listTutorials)
			r.Get("/tutorials/{category}", h.listTutorials)
			r.Get("/tutorials/{category}/*", h.getTutorial)
			r.Get("/categories", h.categories)
			r.Get("/search", h.search)
		})
	})

	if cfg.Hub != nil {
		r.Get("/ws/reload", cfg.Hub.ServeHTTP)
	}

	if cfg.MCPHandler != nil {
		r.Handle("/mcp", auth.Middleware(cfg.Keys, cfg.Logger, true)(cfg.MCPHandler))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
