package search

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/starford/slipbox/internal/apperr"
)

type backend struct {
	name string
	open func(t *testing.T) Index
}

func backends() []backend {
	return []backend{
		{name: "bleve", open: func(t *testing.T) Index {
			idx, err := Open(Options{Backend: BackendBleve})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			return idx
		}},
		{name: "sqlite", open: func(t *testing.T) Index {
			idx, err := Open(Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "index.db")})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			return idx
		}},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, idx Index)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.open(t)
			t.Cleanup(func() { idx.Close() })
			fn(t, idx)
		})
	}
}

func mustQuery(t *testing.T, idx Index, kw string) map[string]struct{} {
	t.Helper()
	got, err := idx.QueryTitle(kw, DefaultLimit)
	if err != nil {
		t.Fatalf("QueryTitle(%q): %v", kw, err)
	}
	return got
}

func TestIndexAndQueryTitle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		_ = idx.Index(Document{ID: "@/a.md", Title: "Alpha notes", Body: "first"})
		_ = idx.Index(Document{ID: "@/b.md", Title: "Beta", Body: "alpha appears only in the body"})

		got := mustQuery(t, idx, "alpha")
		if len(got) != 1 {
			t.Fatalf("expected 1 hit, got %v", got)
		}
		if _, ok := got["@/a.md"]; !ok {
			t.Errorf("missing @/a.md in %v", got)
		}
	})
}

func TestQueryTitle_EmptyKeyword(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		_ = idx.Index(Document{ID: "@/a.md", Title: "Alpha"})
		got := mustQuery(t, idx, "   ")
		if len(got) != 0 {
			t.Errorf("expected no hits, got %v", got)
		}
	})
}

func TestQueryTitle_Limit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		for i := 0; i < 15; i++ {
			if err := idx.Index(Document{ID: fmt.Sprintf("@/%02d.md", i), Title: fmt.Sprintf("Zettel %d", i)}); err != nil {
				t.Fatalf("Index: %v", err)
			}
		}
		if got := mustQuery(t, idx, "zettel"); len(got) != DefaultLimit {
			t.Errorf("expected %d hits, got %d", DefaultLimit, len(got))
		}
		got, err := idx.QueryTitle("zettel", 3)
		if err != nil {
			t.Fatalf("QueryTitle: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 hits, got %d", len(got))
		}
	})
}

func TestQueryTitle_Deterministic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		for i := 0; i < 20; i++ {
			_ = idx.Index(Document{ID: fmt.Sprintf("@/%02d.md", i), Title: "Recurring title"})
		}
		first := mustQuery(t, idx, "recurring")
		for i := 0; i < 5; i++ {
			again := mustQuery(t, idx, "recurring")
			if len(again) != len(first) {
				t.Fatalf("result size changed: %d vs %d", len(again), len(first))
			}
			for id := range first {
				if _, ok := again[id]; !ok {
					t.Fatalf("result set changed: %s missing", id)
				}
			}
		}
	})
}

func TestIndex_DuplicateWithinCycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		if err := idx.Index(Document{ID: "@/a.md", Title: "Quince"}); err != nil {
			t.Fatalf("Index: %v", err)
		}
		err := idx.Index(Document{ID: "@/a.md", Title: "Rowan"})
		if !errors.Is(err, apperr.ErrIndex) {
			t.Fatalf("expected ErrIndex, got %v", err)
		}

		if err := idx.Clear(); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if err := idx.Index(Document{ID: "@/a.md", Title: "Rowan"}); err != nil {
			t.Fatalf("Index after Clear: %v", err)
		}
		if got := mustQuery(t, idx, "quince"); len(got) != 0 {
			t.Errorf("stale hit after Clear: %v", got)
		}
		if got := mustQuery(t, idx, "rowan"); len(got) != 1 {
			t.Errorf("expected 1 hit, got %v", got)
		}
	})
}

func TestRebuild(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		_ = idx.Index(Document{ID: "@/old.md", Title: "Obsolete"})

		err := idx.Rebuild([]Document{
			{ID: "@/a.md", Title: "Alpha"},
			{ID: "@/b.md", Title: "Beta"},
		})
		if err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
		if got := mustQuery(t, idx, "obsolete"); len(got) != 0 {
			t.Errorf("old document survived rebuild: %v", got)
		}
		if got := mustQuery(t, idx, "beta"); len(got) != 1 {
			t.Errorf("expected 1 hit, got %v", got)
		}
	})
}

func TestRebuild_FailureKeepsPreviousContent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		if err := idx.Rebuild([]Document{{ID: "@/a.md", Title: "Alpha"}}); err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
		err := idx.Rebuild([]Document{
			{ID: "@/b.md", Title: "Beta"},
			{ID: "@/b.md", Title: "Beta again"},
		})
		if !errors.Is(err, apperr.ErrIndex) {
			t.Fatalf("expected ErrIndex, got %v", err)
		}
		if got := mustQuery(t, idx, "alpha"); len(got) != 1 {
			t.Errorf("previous content lost: %v", got)
		}
		if got := mustQuery(t, idx, "beta"); len(got) != 0 {
			t.Errorf("partial rebuild visible: %v", got)
		}
	})
}

func TestReplaceAndDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx Index) {
		_ = idx.Index(Document{ID: "@/a.md", Title: "Draft"})

		if err := idx.Replace(Document{ID: "@/a.md", Title: "Final"}); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		if got := mustQuery(t, idx, "draft"); len(got) != 0 {
			t.Errorf("old title still matches: %v", got)
		}
		if got := mustQuery(t, idx, "final"); len(got) != 1 {
			t.Errorf("new title not found: %v", got)
		}

		if err := idx.Delete("@/a.md"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if got := mustQuery(t, idx, "final"); len(got) != 0 {
			t.Errorf("deleted document still matches: %v", got)
		}
		if err := idx.Delete("@/unknown.md"); err != nil {
			t.Errorf("Delete unknown: %v", err)
		}
		if err := idx.Index(Document{ID: "@/a.md", Title: "Returned"}); err != nil {
			t.Errorf("Index after Delete: %v", err)
		}
	})
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "elastic"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpen_SQLiteInMemory(t *testing.T) {
	idx, err := Open(Options{Backend: BackendSQLite})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()
	if err := idx.Index(Document{ID: "@/m.md", Title: "Memory"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	got, err := idx.QueryTitle("memory", 0)
	if err != nil {
		t.Fatalf("QueryTitle: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
}

func TestOpenSQLite_DropsStaleRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = first.Index(Document{ID: "@/a.md", Title: "Stale"})
	first.Close()

	second, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer second.Close()
	if got := mustQuery(t, second, "stale"); len(got) != 0 {
		t.Errorf("expected empty index on open, got %v", got)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`100%_a\b`); got != `100\%\_a\\b` {
		t.Errorf("escapeLike = %q", got)
	}
}
