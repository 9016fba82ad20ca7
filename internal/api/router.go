package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/slipbox/internal/noteservice"
	"github.com/starford/slipbox/internal/storage"
)

// Notifier receives repository change events (implemented by the SSE broker).
type Notifier interface {
	PublishNoteEvent(kind, id string)
}

// RouterConfig carries the dependencies of NewRouter.
type RouterConfig struct {
	Service     *noteservice.Service
	Store       storage.Provider
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// Notifier, if non-nil, is told about notes created or saved through
	// the API.
	Notifier Notifier
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Service, cfg.Notifier)
	ah := NewAttachmentHandler(cfg.Store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)

	// Link graph.
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/graph", h.Graph)

	// Title search.
	r.Get("/search", h.Search)

	// Repository maintenance.
	r.Get("/skipped", h.Skipped)
	r.Post("/reload", h.Reload)

	// Attachments referenced from notes as image links.
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{filename}", ah.ServeFile)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
