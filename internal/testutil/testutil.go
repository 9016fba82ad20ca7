// Package testutil provides shared test helpers for setting up note
// directories and repositories.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/slipbox/internal/header"
	"github.com/starford/slipbox/internal/repository"
	"github.com/starford/slipbox/internal/search"
	"github.com/starford/slipbox/internal/storage"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRoot creates a temporary note directory with a storage.Provider.
func TestRoot(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root, ".md")
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteRaw writes data to rel under root and sets its modification time.
// A zero mod keeps the current time.
func WriteRaw(t *testing.T, root, rel string, data []byte, mod time.Time) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(abs, mod, mod); err != nil {
			t.Fatal(err)
		}
	}
}

// WriteNote writes a note with a header titled title.
func WriteNote(t *testing.T, root, rel, title, body string, mod time.Time) {
	t.Helper()
	data, err := header.Compose(header.Header{Title: title}, body)
	if err != nil {
		t.Fatal(err)
	}
	WriteRaw(t, root, rel, data, mod)
}

// OpenRepository opens a repository over root with an in-memory index and
// closes it when the test ends.
func OpenRepository(t *testing.T, root string, opts repository.Options) *repository.Repository {
	t.Helper()
	store, err := storage.NewFS(root, ".md")
	if err != nil {
		t.Fatal(err)
	}
	idx, err := search.NewBleve()
	if err != nil {
		t.Fatal(err)
	}
	repo, err := repository.Open(context.Background(), store, idx, opts, Logger())
	if err != nil {
		t.Fatalf("repository.Open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}
