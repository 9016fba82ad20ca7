package graph

import (
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeNote struct {
	id    string
	links []string
}

func (f fakeNote) ID() string      { return f.id }
func (f fakeNote) Links() []string { return f.links }

func TestBuildAndOf(t *testing.T) {
	notes := []fakeNote{
		{id: "@/a.md", links: []string{"@/b.md", "@/c.md"}},
		{id: "@/b.md", links: []string{"@/c.md"}},
		{id: "@/c.md"},
	}
	b := Build(notes)

	require.Equal(t, []int{0}, b.Of("@/b.md"))
	require.Equal(t, []int{0, 1}, b.Of("@/c.md"))
	require.Empty(t, b.Of("@/a.md"))
	require.NotNil(t, b.Of("@/missing.md"))
}

func TestDuplicateLinksRecordedOnce(t *testing.T) {
	b := Build([]fakeNote{{id: "@/a.md", links: []string{"@/x.md", "@/x.md", "@/x.md"}}})
	require.Equal(t, []int{0}, b.Of("@/x.md"))
	require.Equal(t, 1, b.Len())
}

func TestDanglingDestinationsKept(t *testing.T) {
	b := Build([]fakeNote{{id: "@/a.md", links: []string{"https://example.com", "@/gone.md"}}})
	targets := b.Targets()
	sort.Strings(targets)
	require.Equal(t, []string{"@/gone.md", "https://example.com"}, targets)
}

// Every (n, m) with m in Of(n) must have n among notes[m].Links(), and the
// converse.
func TestSymmetry(t *testing.T) {
	notes := []fakeNote{
		{id: "@/1.md", links: []string{"@/2.md", "@/3.md", "@/1.md"}},
		{id: "@/2.md", links: []string{"@/3.md", "@/3.md"}},
		{id: "@/3.md", links: []string{"@/1.md"}},
		{id: "@/4.md", links: []string{"@/nowhere.md"}},
	}
	b := Build(notes)

	for _, n := range notes {
		for _, m := range b.Of(n.ID()) {
			require.Contains(t, notes[m].Links(), n.ID())
		}
	}
	for i, m := range notes {
		for _, dest := range m.Links() {
			require.True(t, slices.Contains(b.Of(dest), i), "%s -> %s missing", m.ID(), dest)
		}
	}
}

func TestOfReturnsCopy(t *testing.T) {
	b := Build([]fakeNote{{id: "@/a.md", links: []string{"@/b.md"}}})
	got := b.Of("@/b.md")
	got[0] = 99
	require.Equal(t, []int{0}, b.Of("@/b.md"))
}

func TestNilBacklinks(t *testing.T) {
	var b *Backlinks
	require.Empty(t, b.Of("@/a.md"))
	require.Zero(t, b.Len())
}
