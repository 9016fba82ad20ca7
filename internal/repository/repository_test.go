package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/checksum"
	"github.com/starford/slipbox/internal/note"
	"github.com/starford/slipbox/internal/repository"
	"github.com/starford/slipbox/internal/search"
	"github.com/starford/slipbox/internal/storage"
	"github.com/starford/slipbox/internal/testutil"
)

func ids(notes []*note.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID()
	}
	return out
}

func TestCreateThenFind(t *testing.T) {
	root := t.TempDir()
	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Zero(t, repo.Len())

	n, err := repo.Create(context.Background(), "Alpha")
	require.NoError(t, err)
	require.Equal(t, "Alpha", n.Title())
	require.Empty(t, n.Content())
	require.True(t, strings.HasPrefix(n.ID(), "@/notes/"), n.ID())
	require.True(t, strings.HasSuffix(n.ID(), ".md"), n.ID())
	_, dated := n.Created()
	require.True(t, dated)

	var all []*note.Note
	for x := range repo.Iterate() {
		all = append(all, x)
	}
	require.Len(t, all, 1)
	require.Equal(t, n.ID(), all[0].ID())

	hits, err := repo.SearchTitle("Alpha")
	require.NoError(t, err)
	require.Contains(t, hits, n.ID())

	_, err = os.Stat(n.Path())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "notes"), filepath.Dir(n.Path()))
}

func TestOrderingByModTime(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	testutil.WriteNote(t, root, "t1.md", "One", "", base)
	testutil.WriteNote(t, root, "t3.md", "Three", "", base.Add(20*time.Minute))
	testutil.WriteNote(t, root, "sub/t2.md", "Two", "", base.Add(10*time.Minute))

	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Equal(t, []string{"@/t3.md", "@/sub/t2.md", "@/t1.md"}, ids(repo.Notes()))
}

func TestMalformedHeaderSkipped(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "good.md", "Good", "body", time.Time{})
	testutil.WriteRaw(t, root, "bad.md", []byte("+++\ntitle = 'Bad'\nno closing fence\n"), time.Time{})

	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Equal(t, []string{"@/good.md"}, ids(repo.Notes()))

	skipped := repo.Skipped()
	require.Len(t, skipped, 1)
	require.Equal(t, "bad.md", skipped[0].Path)
	require.ErrorIs(t, skipped[0].Err, apperr.ErrHeaderDecode)
}

func TestMalformedHeaderStrict(t *testing.T) {
	root, store := testutil.TestRoot(t)
	testutil.WriteNote(t, root, "good.md", "Good", "body", time.Time{})
	testutil.WriteRaw(t, root, "bad.md", []byte("+++\ntitle = 'Bad'\n"), time.Time{})

	idx, err := search.NewBleve()
	require.NoError(t, err)
	defer idx.Close()

	_, err = repository.Open(context.Background(), store, idx, repository.Options{Strict: true}, testutil.Logger())
	require.ErrorIs(t, err, apperr.ErrHeaderDecode)
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

func TestUnreadableFileSkipped(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "notes/good.md", "Good", "body", time.Time{})
	symlink(t, filepath.Join(root, "gone.md"), filepath.Join(root, "notes", "dangling.md"))
	require.NoError(t, os.Mkdir(filepath.Join(root, "target"), 0o755))
	symlink(t, filepath.Join(root, "target"), filepath.Join(root, "link.md"))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.md"), 0o755))

	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Equal(t, []string{"@/notes/good.md"}, ids(repo.Notes()))

	skipped := repo.Skipped()
	paths := make([]string, len(skipped))
	for i, s := range skipped {
		paths[i] = s.Path
		require.ErrorIs(t, s.Err, apperr.ErrIO)
	}
	require.ElementsMatch(t, []string{"notes/dangling.md", "link.md"}, paths)
}

func TestUnreadableFileStrict(t *testing.T) {
	root, store := testutil.TestRoot(t)
	testutil.WriteNote(t, root, "good.md", "Good", "body", time.Time{})
	symlink(t, filepath.Join(root, "gone.md"), filepath.Join(root, "dangling.md"))

	idx, err := search.NewBleve()
	require.NoError(t, err)
	defer idx.Close()

	_, err = repository.Open(context.Background(), store, idx, repository.Options{Strict: true}, testutil.Logger())
	require.ErrorIs(t, err, apperr.ErrIO)
}

func TestReloadSkipsFileDeletedAfterOpen(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "a.md", "Alpha", "", time.Time{})
	testutil.WriteNote(t, root, "b.md", "Beta", "", time.Time{})
	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Equal(t, 2, repo.Len())

	require.NoError(t, os.Remove(filepath.Join(root, "b.md")))
	symlink(t, filepath.Join(root, "b.md"), filepath.Join(root, "c.md"))

	require.NoError(t, repo.Reload(context.Background()))
	require.Equal(t, []string{"@/a.md"}, ids(repo.Notes()))
	require.Len(t, repo.Skipped(), 1)
}

func TestRebuildIdempotence(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	testutil.WriteNote(t, root, "a.md", "Apple", "[b](@/b.md)", base)
	testutil.WriteNote(t, root, "b.md", "Banana", "[a](@/a.md) [c](@/c.md)", base.Add(time.Minute))
	testutil.WriteNote(t, root, "c.md", "Cherry apple", "", base.Add(2*time.Minute))

	first := testutil.OpenRepository(t, root, repository.Options{})
	second := testutil.OpenRepository(t, root, repository.Options{})

	require.Equal(t, ids(first.Notes()), ids(second.Notes()))
	for _, id := range ids(first.Notes()) {
		require.Equal(t, ids(first.BacklinksOf(id)), ids(second.BacklinksOf(id)), id)
	}
	h1, err := first.SearchTitle("apple")
	require.NoError(t, err)
	h2, err := second.SearchTitle("apple")
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 2)

	require.NoError(t, first.Reload(context.Background()))
	require.Equal(t, ids(second.Notes()), ids(first.Notes()))
}

func TestBacklinksOf(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	testutil.WriteNote(t, root, "target.md", "Target", "", base)
	testutil.WriteNote(t, root, "x.md", "X", "[t](@/target.md) twice [t](@/target.md)", base.Add(time.Minute))
	testutil.WriteNote(t, root, "y.md", "Y", "![img](@/target.md)", base.Add(2*time.Minute))
	testutil.WriteNote(t, root, "z.md", "Z", "[x](@/x.md)", base.Add(3*time.Minute))

	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Equal(t, []string{"@/y.md", "@/x.md"}, ids(repo.BacklinksOf("@/target.md")))
	require.Equal(t, []string{"@/z.md"}, ids(repo.BacklinksOf("@/x.md")))
	require.Empty(t, repo.BacklinksOf("@/z.md"))

	// Symmetry over the whole repository.
	notes := repo.Notes()
	for _, n := range notes {
		for _, m := range repo.BacklinksOf(n.ID()) {
			require.Contains(t, m.Links(), n.ID())
		}
		for _, dest := range n.Links() {
			require.Contains(t, ids(repo.BacklinksOf(dest)), n.ID())
		}
	}
}

func TestBrokenMarkupFailsOpen(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "ok.md", "Ok", "[b](@/broken.md)", time.Now().Add(-time.Minute))
	testutil.WriteNote(t, root, "broken.md", "Broken", "bad \xff bytes [ok](@/ok.md)", time.Now())

	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Equal(t, 2, repo.Len())

	broken, err := repo.Get("@/broken.md")
	require.NoError(t, err)
	require.Empty(t, broken.Links())
	require.Nil(t, broken.Tree())
	require.Empty(t, repo.BacklinksOf("@/ok.md"))
	require.Equal(t, []string{"@/ok.md"}, ids(repo.BacklinksOf("@/broken.md")))
}

func TestGetNotFound(t *testing.T) {
	repo := testutil.OpenRepository(t, t.TempDir(), repository.Options{})
	_, err := repo.Get("@/nope.md")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIterateReturnsCopies(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "a.md", "Original", "", time.Time{})
	repo := testutil.OpenRepository(t, root, repository.Options{})

	for n := range repo.Iterate() {
		n.SetTitle("Mutated")
	}
	n, err := repo.Get("@/a.md")
	require.NoError(t, err)
	require.Equal(t, "Original", n.Title())
}

func TestSave(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	testutil.WriteNote(t, root, "a.md", "Alpha", "", base)
	testutil.WriteNote(t, root, "b.md", "Beta", "", base.Add(time.Minute))
	repo := testutil.OpenRepository(t, root, repository.Options{})
	require.Equal(t, []string{"@/b.md", "@/a.md"}, ids(repo.Notes()))

	a, err := repo.Get("@/a.md")
	require.NoError(t, err)
	a.SetTitle("Gamma")
	a.SetContent("now links [b](@/b.md)\n")
	require.NoError(t, repo.Save(context.Background(), a))

	raw, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	require.Equal(t, "+++\ntitle = 'Gamma'\n+++\nnow links [b](@/b.md)\n", string(raw))

	got, err := repo.Get("@/a.md")
	require.NoError(t, err)
	require.Equal(t, "Gamma", got.Title())
	require.Equal(t, []string{"@/a.md"}, ids(repo.BacklinksOf("@/b.md")))
	require.Equal(t, []string{"@/a.md", "@/b.md"}, ids(repo.Notes()))

	hits, err := repo.SearchTitle("gamma")
	require.NoError(t, err)
	require.Contains(t, hits, "@/a.md")
	hits, err = repo.SearchTitle("alpha")
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSaveIncremental(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	testutil.WriteNote(t, root, "a.md", "Alpha", "", base)
	testutil.WriteNote(t, root, "b.md", "Beta", "", base.Add(time.Minute))
	testutil.WriteNote(t, root, "c.md", "Gamma", "[a](@/a.md)", base.Add(2*time.Minute))
	repo := testutil.OpenRepository(t, root, repository.Options{IncrementalSave: true})

	a, err := repo.Get("@/a.md")
	require.NoError(t, err)
	a.SetTitle("Delta")
	a.SetContent("[b](@/b.md)")
	require.NoError(t, repo.Save(context.Background(), a))

	require.Equal(t, []string{"@/a.md", "@/c.md", "@/b.md"}, ids(repo.Notes()))
	require.Equal(t, []string{"@/a.md"}, ids(repo.BacklinksOf("@/b.md")))
	require.Equal(t, []string{"@/c.md"}, ids(repo.BacklinksOf("@/a.md")))

	hits, err := repo.SearchTitle("delta")
	require.NoError(t, err)
	require.Contains(t, hits, "@/a.md")
	hits, err = repo.SearchTitle("alpha")
	require.NoError(t, err)
	require.Empty(t, hits)

	// A full rescan agrees with the incremental result on content.
	fresh := testutil.OpenRepository(t, root, repository.Options{})
	got, err := fresh.Get("@/a.md")
	require.NoError(t, err)
	require.Equal(t, "Delta", got.Title())
}

// cancelAfterCheck reports cancellation from its second Err call on, as a
// client hanging up while a save is in flight.
type cancelAfterCheck struct {
	context.Context
	calls atomic.Int32
}

func (c *cancelAfterCheck) Err() error {
	if c.calls.Add(1) > 1 {
		return context.Canceled
	}
	return nil
}

func TestSaveCompletesAfterCancellation(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "a.md", "A", "old body", time.Time{})
	testutil.WriteNote(t, root, "b.md", "B", "", time.Time{})
	repo := testutil.OpenRepository(t, root, repository.Options{})

	a, err := repo.Get("@/a.md")
	require.NoError(t, err)
	a.SetContent("new body")

	ctx := &cancelAfterCheck{Context: context.Background()}
	require.NoError(t, repo.Save(ctx, a))

	raw, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	require.Equal(t, "+++\ntitle = 'A'\n+++\nnew body", string(raw))

	got, err := repo.Get("@/a.md")
	require.NoError(t, err)
	require.Equal(t, "new body", got.Content())
	require.Equal(t, 2, repo.Len())
}

func TestSaveStrictWithMalformedNeighbor(t *testing.T) {
	root, store := testutil.TestRoot(t)
	testutil.WriteNote(t, root, "notes/a.md", "A", "old body", time.Time{})

	idx, err := search.NewBleve()
	require.NoError(t, err)
	repo, err := repository.Open(context.Background(), store, idx, repository.Options{Strict: true}, testutil.Logger())
	require.NoError(t, err)
	defer repo.Close()

	testutil.WriteRaw(t, root, "notes/bad.md", []byte("+++\ntitle = 'Bad'\n"), time.Time{})

	a, err := repo.Get("@/notes/a.md")
	require.NoError(t, err)
	a.SetTitle("Renamed")
	a.SetContent("new body")
	require.NoError(t, repo.Save(context.Background(), a))

	raw, err := os.ReadFile(filepath.Join(root, "notes", "a.md"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "new body")

	got, err := repo.Get("@/notes/a.md")
	require.NoError(t, err)
	require.Equal(t, "new body", got.Content())
	require.Equal(t, []string{"@/notes/a.md"}, ids(repo.Notes()))

	hits, err := repo.SearchTitle("renamed")
	require.NoError(t, err)
	require.Contains(t, hits, "@/notes/a.md")
}

func TestSaveIf(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "a.md", "A", "v1", time.Time{})
	repo := testutil.OpenRepository(t, root, repository.Options{})

	a, err := repo.Get("@/a.md")
	require.NoError(t, err)
	data, err := a.Encode()
	require.NoError(t, err)
	sum := checksum.Sum(data)

	a.SetContent("v2")
	require.NoError(t, repo.SaveIf(context.Background(), a, sum))

	stale, err := repo.Get("@/a.md")
	require.NoError(t, err)
	stale.SetContent("v3")
	err = repo.SaveIf(context.Background(), stale, sum)
	require.ErrorIs(t, err, apperr.ErrConflict)

	got, err := repo.Get("@/a.md")
	require.NoError(t, err)
	require.Equal(t, "v2", got.Content())
	raw, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	require.Equal(t, "+++\ntitle = 'A'\n+++\nv2", string(raw))
}

// flakyIndex fails selected operations on demand.
type flakyIndex struct {
	*search.Bleve
	failIndex   bool
	failReplace bool
	failRebuild bool
}

func refused() error { return fmt.Errorf("search: %w: refused", apperr.ErrIndex) }

func (f *flakyIndex) Index(doc search.Document) error {
	if f.failIndex {
		return refused()
	}
	return f.Bleve.Index(doc)
}

func (f *flakyIndex) Replace(doc search.Document) error {
	if f.failReplace {
		return refused()
	}
	return f.Bleve.Replace(doc)
}

func (f *flakyIndex) Rebuild(docs []search.Document) error {
	if f.failRebuild {
		return refused()
	}
	return f.Bleve.Rebuild(docs)
}

func openFlaky(t *testing.T, opts repository.Options) (string, *flakyIndex, *repository.Repository) {
	t.Helper()
	root, store := testutil.TestRoot(t)
	b, err := search.NewBleve()
	require.NoError(t, err)
	idx := &flakyIndex{Bleve: b}
	repo, err := repository.Open(context.Background(), store, idx, opts, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return root, idx, repo
}

func TestCreateReindexesWhenIndexFails(t *testing.T) {
	_, idx, repo := openFlaky(t, repository.Options{})
	idx.failIndex = true

	n, err := repo.Create(context.Background(), "Searchable")
	require.NoError(t, err)

	hits, err := repo.SearchTitle("searchable")
	require.NoError(t, err)
	require.Contains(t, hits, n.ID())
}

func TestCreateFailsWhenIndexUnusable(t *testing.T) {
	root, idx, repo := openFlaky(t, repository.Options{})
	idx.failIndex = true
	idx.failRebuild = true

	_, err := repo.Create(context.Background(), "Lost")
	require.ErrorIs(t, err, apperr.ErrIndex)
	require.Zero(t, repo.Len())

	entries, err := os.ReadDir(filepath.Join(root, "notes"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	idx.failIndex = false
	idx.failRebuild = false
	require.NoError(t, repo.Reload(context.Background()))
	require.Equal(t, 1, repo.Len())
}

func TestSaveIncrementalReindexesWhenReplaceFails(t *testing.T) {
	root, idx, repo := openFlaky(t, repository.Options{IncrementalSave: true})
	testutil.WriteNote(t, root, "a.md", "Alpha", "", time.Time{})
	require.NoError(t, repo.Reload(context.Background()))
	idx.failReplace = true

	a, err := repo.Get("@/a.md")
	require.NoError(t, err)
	a.SetTitle("Omega")
	require.NoError(t, repo.Save(context.Background(), a))

	hits, err := repo.SearchTitle("omega")
	require.NoError(t, err)
	require.Contains(t, hits, "@/a.md")
	hits, err = repo.SearchTitle("alpha")
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSaveUnknownNote(t *testing.T) {
	root := t.TempDir()
	repo := testutil.OpenRepository(t, root, repository.Options{})
	stray := note.New("stray.md", filepath.Join(root, "stray.md"), "Stray", time.Now())

	err := repo.Save(context.Background(), stray)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, statErr := os.Stat(filepath.Join(root, "stray.md"))
	require.True(t, os.IsNotExist(statErr))
}

// failingStore rejects every write.
type failingStore struct {
	*storage.FS
}

func (failingStore) Write(string, []byte) error {
	return fmt.Errorf("storage: rename: %w: %w", apperr.ErrIO, errors.New("disk full"))
}

func TestSaveFailureLeavesStateUntouched(t *testing.T) {
	root, fs := testutil.TestRoot(t)
	testutil.WriteNote(t, root, "a.md", "Alpha", "[b](@/b.md)", time.Time{})
	before, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)

	idx, err := search.NewBleve()
	require.NoError(t, err)
	repo, err := repository.Open(context.Background(), failingStore{fs}, idx, repository.Options{}, testutil.Logger())
	require.NoError(t, err)
	defer repo.Close()

	a, err := repo.Get("@/a.md")
	require.NoError(t, err)
	a.SetTitle("Changed")
	a.SetContent("")

	err = repo.Save(context.Background(), a)
	require.ErrorIs(t, err, apperr.ErrIO)

	after, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	require.Equal(t, before, after)

	got, err := repo.Get("@/a.md")
	require.NoError(t, err)
	require.Equal(t, "Alpha", got.Title())
	require.Equal(t, []string{"@/a.md"}, ids(repo.BacklinksOf("@/b.md")))
}

func TestFailedReloadKeepsState(t *testing.T) {
	root, store := testutil.TestRoot(t)
	testutil.WriteNote(t, root, "a.md", "Alpha", "", time.Time{})

	idx, err := search.NewBleve()
	require.NoError(t, err)
	repo, err := repository.Open(context.Background(), store, idx, repository.Options{Strict: true}, testutil.Logger())
	require.NoError(t, err)
	defer repo.Close()

	testutil.WriteRaw(t, root, "b.md", []byte("+++\ntitle = [\n+++\n"), time.Time{})
	err = repo.Reload(context.Background())
	require.ErrorIs(t, err, apperr.ErrHeaderDecode)

	require.Equal(t, []string{"@/a.md"}, ids(repo.Notes()))
	hits, err := repo.SearchTitle("alpha")
	require.NoError(t, err)
	require.Contains(t, hits, "@/a.md")
}

func TestReloadSeesExternalEdits(t *testing.T) {
	root := t.TempDir()
	testutil.WriteNote(t, root, "a.md", "Alpha", "", time.Now().Add(-time.Minute))
	repo := testutil.OpenRepository(t, root, repository.Options{})

	testutil.WriteNote(t, root, "b.md", "Beta", "[a](@/a.md)", time.Now())
	require.NoError(t, repo.Reload(context.Background()))

	require.Equal(t, []string{"@/b.md", "@/a.md"}, ids(repo.Notes()))
	require.Equal(t, []string{"@/b.md"}, ids(repo.BacklinksOf("@/a.md")))
}

func TestCreateAvoidsExistingFile(t *testing.T) {
	root := t.TempDir()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.Local)
	testutil.WriteNote(t, root, "notes/20240102030405006.md", "Taken", "", time.Time{})

	repo := testutil.OpenRepository(t, root, repository.Options{Now: func() time.Time { return fixed }})
	n, err := repo.Create(context.Background(), "Fresh")
	require.NoError(t, err)
	require.Equal(t, "@/notes/20240102030405007.md", n.ID())
	require.Equal(t, 2, repo.Len())
}

func TestConcurrentCreatesDoNotCollide(t *testing.T) {
	repo := testutil.OpenRepository(t, t.TempDir(), repository.Options{})

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := repo.Create(context.Background(), fmt.Sprintf("Note %d", i))
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			results <- n.ID()
		}(i)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{})
	for id := range results {
		seen[id] = struct{}{}
	}
	require.Len(t, seen, workers)
	require.Equal(t, workers, repo.Len())
}

func TestCustomNotesDir(t *testing.T) {
	root := t.TempDir()
	repo := testutil.OpenRepository(t, root, repository.Options{NotesDir: "inbox"})
	n, err := repo.Create(context.Background(), "Elsewhere")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(n.ID(), "@/inbox/"), n.ID())
}

func TestCanceledContext(t *testing.T) {
	repo := testutil.OpenRepository(t, t.TempDir(), repository.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Create(ctx, "Never")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, repo.Len())
}
