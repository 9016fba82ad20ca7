// Package noteservice adapts the repository to request/response shapes used
// by the HTTP API, the MCP server and the CLI.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/checksum"
	"github.com/starford/slipbox/internal/models"
	"github.com/starford/slipbox/internal/note"
	"github.com/starford/slipbox/internal/repository"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Created   string   `json:"created,omitempty"`
	Content   string   `json:"content"`
	Checksum  string   `json:"checksum"`
	Links     []string `json:"links"`
	Backlinks []string `json:"backlinks"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Created string `json:"created,omitempty"`
}

// SkippedFile is a file the repository could not load.
type SkippedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Service coordinates repository operations for the outer surfaces.
type Service struct {
	repo *repository.Repository
}

// NewService creates a new note service.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *repository.Repository { return s.repo }

// ListNotes returns every note in repository order.
func (s *Service) ListNotes(_ context.Context) []NoteListItem {
	return lo.Map(s.repo.Notes(), func(n *note.Note, _ int) NoteListItem { return listItem(n) })
}

// GetNote returns one note with its backlinks.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	n, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(n)
}

// CreateNote creates an empty note titled title.
func (s *Service) CreateNote(ctx context.Context, title string) (*NoteDetail, error) {
	n, err := s.repo.Create(ctx, title)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(n)
}

// UpdateNote replaces the title and/or content of a note. A nil field is
// left unchanged. A non-empty ifMatch must equal the current checksum.
func (s *Service) UpdateNote(ctx context.Context, id string, title, content *string, ifMatch string) (*NoteDetail, error) {
	n, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		n.SetTitle(*title)
	}
	if content != nil {
		n.SetContent(*content)
	}
	if ifMatch != "" {
		err = s.repo.SaveIf(ctx, n, ifMatch)
	} else {
		err = s.repo.Save(ctx, n)
	}
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(saved)
}

// SearchTitle returns notes whose title matches keyword, in repository
// order. An empty keyword lists every note.
func (s *Service) SearchTitle(ctx context.Context, keyword string) ([]NoteListItem, error) {
	if keyword == "" {
		return s.ListNotes(ctx), nil
	}
	hits, err := s.repo.SearchTitle(keyword)
	if err != nil {
		return nil, err
	}
	matched := lo.Filter(s.repo.Notes(), func(n *note.Note, _ int) bool {
		_, ok := hits[n.ID()]
		return ok
	})
	return lo.Map(matched, func(n *note.Note, _ int) NoteListItem { return listItem(n) }), nil
}

// Backlinks returns the notes linking to id.
func (s *Service) Backlinks(_ context.Context, id string) []NoteListItem {
	return lo.Map(s.repo.BacklinksOf(id), func(n *note.Note, _ int) NoteListItem { return listItem(n) })
}

// Graph returns every note as a node and every link between two existing
// notes as an edge.
func (s *Service) Graph(_ context.Context) ([]models.GraphNode, []models.GraphLink) {
	notes := s.repo.Notes()
	known := lo.Associate(notes, func(n *note.Note) (string, struct{}) { return n.ID(), struct{}{} })

	nodes := make([]models.GraphNode, 0, len(notes))
	links := []models.GraphLink{}
	for _, n := range notes {
		nodes = append(nodes, models.GraphNode{ID: n.ID(), Title: n.Title()})
		for _, dest := range lo.Uniq(n.Links()) {
			if _, ok := known[dest]; ok {
				links = append(links, models.GraphLink{Source: n.ID(), Target: dest})
			}
		}
	}
	return nodes, links
}

// Skipped lists files the last load could not decode.
func (s *Service) Skipped(_ context.Context) []SkippedFile {
	out := lo.Map(s.repo.Skipped(), func(sk repository.Skipped, _ int) SkippedFile {
		return SkippedFile{Path: sk.Path, Error: sk.Err.Error()}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Reload rescans the repository root.
func (s *Service) Reload(ctx context.Context) error {
	return s.repo.Reload(ctx)
}

func (s *Service) buildNoteDetail(n *note.Note) (*NoteDetail, error) {
	cs, err := sum(n)
	if err != nil {
		return nil, err
	}
	backlinks := lo.Map(s.repo.BacklinksOf(n.ID()), func(b *note.Note, _ int) string { return b.ID() })
	item := listItem(n)
	return &NoteDetail{
		ID:        n.ID(),
		Title:     n.Title(),
		Created:   item.Created,
		Content:   n.Content(),
		Checksum:  cs,
		Links:     n.Links(),
		Backlinks: backlinks,
	}, nil
}

func listItem(n *note.Note) NoteListItem {
	item := NoteListItem{ID: n.ID(), Title: n.Title()}
	if created, ok := n.Created(); ok {
		item.Created = created.Format("2006-01-02")
	}
	return item
}

// sum is the checksum of the note's encoded file content.
func sum(n *note.Note) (string, error) {
	data, err := n.Encode()
	if err != nil {
		return "", fmt.Errorf("noteservice: encode %s: %w", n.ID(), err)
	}
	return checksum.Sum(data), nil
}

// IsClientError reports whether err is caused by the request rather than
// the server.
func IsClientError(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrAlreadyExists) ||
		errors.Is(err, apperr.ErrQuerySyntax)
}
