package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/slipbox/internal/note"
	"github.com/starford/slipbox/internal/noteservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	notify Notifier
}

// NewHandler creates a new Handler. notify may be nil.
func NewHandler(svc *noteservice.Service, notify Notifier) *Handler {
	return &Handler{svc: svc, notify: notify}
}

func (h *Handler) publish(kind, id string) {
	if h.notify != nil {
		h.notify.PublishNoteEvent(kind, id)
	}
}

// noteID extracts the note identifier from the wildcard part of the URL.
// Both "notes/a.md" and "@/notes/a.md" are accepted, as are encoded slashes
// (e.g. notes%2Fa.md).
func noteID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, note.IDPrefix) {
		return raw
	}
	return note.IDFromRel(raw)
}

// ListNotes handles GET /notes.
//
//	@Summary		List notes, most recently modified first
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items := h.svc.ListNotes(r.Context())
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /notes/*.
//
//	@Summary		Get a single note by identifier
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path relative to the root"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+detail.Checksum+`"`)
	writeJSON(w, http.StatusOK, detail)
}

// CreateNote handles POST /notes.
//
//	@Summary		Create a new empty note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	detail, err := h.svc.CreateNote(r.Context(), req.Title)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	h.publish("created", detail.ID)
	writeJSON(w, http.StatusCreated, detail)
}

// UpdateNote handles PUT /notes/*.
//
//	@Summary		Update a note's title and/or content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Note path relative to the root"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Fields to replace"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == nil && req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("title or content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	detail, err := h.svc.UpdateNote(r.Context(), id, req.Title, req.Content, ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	h.publish("saved", detail.ID)
	w.Header().Set("ETag", `"`+detail.Checksum+`"`)
	writeJSON(w, http.StatusOK, detail)
}

// Backlinks handles GET /backlinks/*.
//
//	@Summary		Notes linking to the given note
//	@Tags			graph
//	@Produce		json
//	@Param			path	path		string	true	"Note path relative to the root"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{ID: id, Backlinks: h.svc.Backlinks(r.Context(), id)})
}

// Search handles GET /search.
//
//	@Summary		Search note titles
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	false	"Keyword; empty lists every note"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	results, err := h.svc.SearchTitle(r.Context(), q)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /graph.
//
//	@Summary		Get the note link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links := h.svc.Graph(r.Context())
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Skipped handles GET /skipped.
//
//	@Summary		Files left out because their header is malformed
//	@Tags			maintenance
//	@Produce		json
//	@Success		200	{object}	SkippedResponse
//	@Security		BearerAuth
//	@Router			/skipped [get]
func (h *Handler) Skipped(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SkippedResponse{Skipped: h.svc.Skipped(r.Context())})
}

// Reload handles POST /reload.
//
//	@Summary		Rescan the note directory
//	@Tags			maintenance
//	@Success		204	"Reloaded"
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reload(r.Context()); err != nil {
		writeError(w, "reload", err)
		return
	}
	h.publish("reloaded", "")
	w.WriteHeader(http.StatusNoContent)
}
