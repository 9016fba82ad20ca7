// Package repository keeps the authoritative in-memory view of a note
// directory: the ordered notes, their backlink graph and the title search
// index, rebuilt from disk and swapped in atomically.
package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/checksum"
	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/note"
	"github.com/starford/slipbox/internal/search"
	"github.com/starford/slipbox/internal/storage"
)

// Options tunes repository behavior.
type Options struct {
	// NotesDir is the subdirectory receiving created notes.
	NotesDir string
	// Strict makes Open and Reload fail on an unreadable file or a malformed
	// header instead of skipping the file.
	Strict bool
	// IncrementalSave re-reads only the saved note instead of rescanning.
	IncrementalSave bool
	// SearchLimit bounds SearchTitle results.
	SearchLimit int
	// Now overrides the clock used for new note names and dates.
	Now func() time.Time
}

// Skipped describes a file left out of the repository.
type Skipped struct {
	Path string
	Err  error
}

// state is one consistent snapshot. It is never mutated after being
// installed; writers build a new one and swap it in.
type state struct {
	notes     []*note.Note
	byID      map[string]int
	backlinks *graph.Backlinks
	skipped   []Skipped
}

func newState(notes []*note.Note, skipped []Skipped) *state {
	byID := make(map[string]int, len(notes))
	for i, n := range notes {
		byID[n.ID()] = i
	}
	return &state{
		notes:     notes,
		byID:      byID,
		backlinks: graph.Build(notes),
		skipped:   skipped,
	}
}

func (s *state) docs() []search.Document {
	return lo.Map(s.notes, func(n *note.Note, _ int) search.Document { return document(n) })
}

func document(n *note.Note) search.Document {
	return search.Document{ID: n.ID(), Title: n.Title(), Body: n.Content()}
}

// Repository is safe for concurrent use. Reads run in parallel; Create, Save
// and Reload are serialized.
type Repository struct {
	store  storage.Provider
	index  search.Index
	logger *slog.Logger
	opts   Options
	clock  *idClock

	write sync.Mutex // serializes mutations

	mu  sync.RWMutex
	cur *state
}

// Open builds a repository from the files under store's root. The index is
// owned by the repository from now on and closed by Close.
func Open(ctx context.Context, store storage.Provider, index search.Index, opts Options, logger *slog.Logger) (*Repository, error) {
	if opts.NotesDir == "" {
		opts.NotesDir = "notes"
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = search.DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		store:  store,
		index:  index,
		logger: logger,
		opts:   opts,
		clock:  newIDClock(opts.Now),
		cur:    newState(nil, nil),
	}
	if err := r.rebuild(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Root returns the repository root directory.
func (r *Repository) Root() string { return r.store.Root() }

func (r *Repository) snapshot() *state {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur
}

func (r *Repository) install(s *state) {
	r.mu.Lock()
	r.cur = s
	r.mu.Unlock()
}

// load scans the root and decodes every note file into a new state.
func (r *Repository) load(ctx context.Context) (*state, error) {
	entries, err := r.store.Scan()
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	notes := make([]*note.Note, 0, len(entries))
	var skipped []Skipped
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.loadOne(e.Path, e.AbsPath)
		if err != nil {
			if r.opts.Strict || !skippable(err) {
				return nil, fmt.Errorf("repository: %w", err)
			}
			r.logger.Warn("repository: skipping note",
				slog.String("path", e.Path),
				slog.String("error", err.Error()))
			skipped = append(skipped, Skipped{Path: e.Path, Err: err})
			continue
		}
		if perr := n.ParseErr(); perr != nil {
			r.logger.Debug("repository: links unavailable",
				slog.String("path", e.Path),
				slog.String("error", perr.Error()))
		}
		notes = append(notes, n)
	}
	return newState(notes, skipped), nil
}

func (r *Repository) loadOne(rel, abs string) (*note.Note, error) {
	data, err := r.store.Read(rel)
	if err != nil {
		return nil, err
	}
	return note.FromFile(rel, abs, data)
}

// skippable reports whether a per-file load error leaves the rest of the
// directory usable.
func skippable(err error) bool {
	return errors.Is(err, apperr.ErrIO) || errors.Is(err, apperr.ErrHeaderDecode)
}

// rebuild loads a fresh state and installs it with a matching index. Nothing
// changes when any step fails.
func (r *Repository) rebuild(ctx context.Context) error {
	s, err := r.load(ctx)
	if err != nil {
		return err
	}
	if err := r.index.Rebuild(s.docs()); err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	r.install(s)
	r.logger.Debug("repository: rebuilt",
		slog.Int("notes", len(s.notes)),
		slog.Int("skipped", len(s.skipped)),
		slog.Int("link_targets", s.backlinks.Len()))
	return nil
}

// Reload rescans the root and replaces the whole in-memory state.
func (r *Repository) Reload(ctx context.Context) error {
	r.write.Lock()
	defer r.write.Unlock()
	return r.rebuild(ctx)
}

// Len returns the number of notes.
func (r *Repository) Len() int {
	return len(r.snapshot().notes)
}

// Notes returns copies of all notes, most recently modified first.
func (r *Repository) Notes() []*note.Note {
	return lo.Map(r.snapshot().notes, func(n *note.Note, _ int) *note.Note { return n.Clone() })
}

// Iterate yields copies of all notes in repository order. The sequence reads
// one snapshot; concurrent writes do not affect it.
func (r *Repository) Iterate() iter.Seq[*note.Note] {
	s := r.snapshot()
	return func(yield func(*note.Note) bool) {
		for _, n := range s.notes {
			if !yield(n.Clone()) {
				return
			}
		}
	}
}

// Get returns a copy of the note with the given identifier.
func (r *Repository) Get(id string) (*note.Note, error) {
	s := r.snapshot()
	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("repository: %s: %w", id, apperr.ErrNotFound)
	}
	return s.notes[i].Clone(), nil
}

// BacklinksOf returns copies of the notes linking to id, in repository order.
func (r *Repository) BacklinksOf(id string) []*note.Note {
	s := r.snapshot()
	return lo.Map(s.backlinks.Of(id), func(pos int, _ int) *note.Note { return s.notes[pos].Clone() })
}

// SearchTitle returns the identifiers of notes whose title matches keyword.
// The result is an unordered set.
func (r *Repository) SearchTitle(keyword string) (map[string]struct{}, error) {
	hits, err := r.index.QueryTitle(keyword, r.opts.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("repository: search: %w", err)
	}
	s := r.snapshot()
	for id := range hits {
		if _, ok := s.byID[id]; !ok {
			delete(hits, id)
		}
	}
	return hits, nil
}

// Skipped lists files left out by the last rebuild because they could not be
// read or their header could not be decoded.
func (r *Repository) Skipped() []Skipped {
	s := r.snapshot()
	out := make([]Skipped, len(s.skipped))
	copy(out, s.skipped)
	return out
}

// Create writes a new empty note titled title under the notes directory and
// appends it to the repository.
func (r *Repository) Create(ctx context.Context, title string) (*note.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.write.Lock()
	defer r.write.Unlock()

	rel, created, err := r.nextPath()
	if err != nil {
		return nil, err
	}
	abs, err := r.store.Abs(rel)
	if err != nil {
		return nil, fmt.Errorf("repository: create: %w", err)
	}
	n := note.New(rel, abs, title, created)
	data, err := n.Encode()
	if err != nil {
		return nil, fmt.Errorf("repository: create: %w", err)
	}
	if err := r.store.Create(rel, data); err != nil {
		return nil, fmt.Errorf("repository: create: %w", err)
	}

	cur := r.snapshot()
	notes := make([]*note.Note, len(cur.notes), len(cur.notes)+1)
	copy(notes, cur.notes)
	notes = append(notes, n)
	next := newState(notes, cur.skipped)

	if err := r.syncIndex(next, func() error { return r.index.Index(document(n)) }); err != nil {
		// The file stays on disk and is picked up by the next reload.
		return nil, fmt.Errorf("repository: create %s: %w", n.ID(), err)
	}
	r.install(next)
	r.logger.Info("repository: note created", slog.String("id", n.ID()))
	return n.Clone(), nil
}

// nextPath picks an unused path for a new note.
func (r *Repository) nextPath() (string, time.Time, error) {
	for {
		t := r.clock.Next()
		rel := path.Join(r.opts.NotesDir, stamp(t)+".md")
		exists, err := r.store.Exists(rel)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("repository: create: %w", err)
		}
		if !exists {
			return rel, t, nil
		}
	}
}

// Save writes n to disk atomically and refreshes the repository. On failure
// the file and the in-memory state are left as they were.
func (r *Repository) Save(ctx context.Context, n *note.Note) error {
	return r.save(ctx, n, nil)
}

// SaveIf is Save guarded by a checksum of the stored note. It fails with
// apperr.ErrConflict when the note changed since expected was computed. The
// check and the write happen under the same lock.
func (r *Repository) SaveIf(ctx context.Context, n *note.Note, expected string) error {
	return r.save(ctx, n, func(cur *note.Note) error {
		data, err := cur.Encode()
		if err != nil {
			return err
		}
		if !checksum.Match(data, expected) {
			return fmt.Errorf("repository: save %s: %w", n.ID(), apperr.ErrConflict)
		}
		return nil
	})
}

func (r *Repository) save(ctx context.Context, n *note.Note, check func(cur *note.Note) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.write.Lock()
	defer r.write.Unlock()

	cur := r.snapshot()
	i, ok := cur.byID[n.ID()]
	if !ok {
		return fmt.Errorf("repository: save %s: %w", n.ID(), apperr.ErrNotFound)
	}
	if check != nil {
		if err := check(cur.notes[i]); err != nil {
			return err
		}
	}
	data, err := n.Encode()
	if err != nil {
		return fmt.Errorf("repository: save %s: %w", n.ID(), err)
	}
	if err := r.store.Write(n.RelPath(), data); err != nil {
		return fmt.Errorf("repository: save: %w", err)
	}

	// The file is on disk now. Memory follows it whatever happens next.
	if !r.opts.IncrementalSave {
		err := r.rebuild(context.WithoutCancel(ctx))
		if err == nil {
			r.logger.Info("repository: note saved", slog.String("id", n.ID()))
			return nil
		}
		r.logger.Warn("repository: rescan after save failed",
			slog.String("id", n.ID()),
			slog.String("error", err.Error()))
	}
	r.refreshSaved(n, data)
	r.logger.Info("repository: note saved", slog.String("id", n.ID()))
	return nil
}

// refreshSaved installs the note just written as data, moves it to the front
// of the order and replaces its index entry.
func (r *Repository) refreshSaved(n *note.Note, data []byte) {
	fresh, err := note.FromFile(n.RelPath(), n.Path(), data)
	if err != nil {
		fresh = n.Clone()
	}

	cur := r.snapshot()
	notes := make([]*note.Note, 0, len(cur.notes))
	notes = append(notes, fresh)
	notes = append(notes, lo.Filter(cur.notes, func(n *note.Note, _ int) bool { return n.ID() != fresh.ID() })...)
	next := newState(notes, cur.skipped)

	if err := r.syncIndex(next, func() error { return r.index.Replace(document(fresh)) }); err != nil {
		r.logger.Error("repository: search index out of date",
			slog.String("id", fresh.ID()),
			slog.String("error", err.Error()))
	}
	r.install(next)
}

// syncIndex applies one index change for s, falling back to reindexing all of
// s when the change fails.
func (r *Repository) syncIndex(s *state, apply func() error) error {
	err := apply()
	if err == nil {
		return nil
	}
	r.logger.Warn("repository: index update failed, reindexing",
		slog.String("error", err.Error()))
	if rerr := r.index.Rebuild(s.docs()); rerr != nil {
		return errors.Join(err, rerr)
	}
	return nil
}

// Close releases the search index.
func (r *Repository) Close() error {
	return r.index.Close()
}
