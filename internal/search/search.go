// Package search provides the title search index over notes. Two backends
// exist: an in-memory bleve index (default) and a SQLite table, optionally
// backed by FTS5 when built with the sqlite_fts5 tag.
package search

import (
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
)

// DefaultLimit bounds QueryTitle when the caller passes a non-positive limit.
const DefaultLimit = 10

// Document is one indexed note.
type Document struct {
	ID    string
	Title string
	Body  string
}

// Index is an inverted index over note identifier, title and body, queried
// by title. Within one build cycle (between Clear or Rebuild calls) each
// identifier may be indexed only once; Replace is the explicit upsert.
type Index interface {
	// Clear removes every document and starts a new build cycle.
	Clear() error
	// Index adds one document. It fails with apperr.ErrIndex if the
	// identifier was already indexed in this cycle.
	Index(doc Document) error
	// Rebuild replaces the whole content with docs. On failure the previous
	// content stays in place.
	Rebuild(docs []Document) error
	// Replace deletes any document with the same identifier, then indexes doc.
	Replace(doc Document) error
	// Delete removes one document. Unknown identifiers are ignored.
	Delete(id string) error
	// QueryTitle returns at most limit identifiers whose title matches
	// keyword. The result is a set; ranking is not preserved.
	QueryTitle(keyword string, limit int) (map[string]struct{}, error)
	// Close releases the backend.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	SQLitePath string
}

// Open creates the index described by opts.
func Open(opts Options) (Index, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendBleve:
		return NewBleve()
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("search: unknown backend %q", opts.Backend)
	}
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
