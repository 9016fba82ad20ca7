package api

import (
	"github.com/starford/slipbox/internal/models"
	"github.com/starford/slipbox/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title string `json:"title" example:"Reading list" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note. Omitted fields
// keep their current value.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty" example:"Reading list"`
	Content *string `json:"content,omitempty" example:"See [the index](@/notes/20240101120000000.md)"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps title search results, in repository order.
type SearchResponse struct {
	Results []NoteListItem `json:"results" validate:"required"`
}

// BacklinksResponse lists the notes linking to ID.
type BacklinksResponse struct {
	ID        string         `json:"id" example:"@/notes/20240101120000000.md" validate:"required"`
	Backlinks []NoteListItem `json:"backlinks" validate:"required"`
}

// GraphResponse wraps the note link graph.
type GraphResponse struct {
	Nodes []models.GraphNode `json:"nodes" validate:"required"`
	Links []models.GraphLink `json:"links" validate:"required"`
}

// SkippedResponse lists files the repository could not load.
type SkippedResponse struct {
	Skipped []noteservice.SkippedFile `json:"skipped" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
// Link is the destination to use in a note body.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	Link     string `json:"link" example:"@/attachments/image.png" validate:"required"`
	Markdown string `json:"markdown" example:"![image.png](@/attachments/image.png)" validate:"required"`
}
