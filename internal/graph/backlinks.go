// Package graph derives the reverse link relation over a set of notes.
package graph

import "github.com/samber/lo"

// Linker is anything with an identifier and outbound link destinations.
type Linker interface {
	ID() string
	Links() []string
}

// Backlinks maps a link destination to the positions of the notes that link
// to it. Positions index the slice passed to Build. A note linking to the
// same destination several times is recorded once.
type Backlinks struct {
	byTarget map[string][]int
}

// Build derives the backlink relation for notes.
func Build[T Linker](notes []T) *Backlinks {
	b := &Backlinks{byTarget: make(map[string][]int)}
	for i, n := range notes {
		for _, dest := range lo.Uniq(n.Links()) {
			b.byTarget[dest] = append(b.byTarget[dest], i)
		}
	}
	return b
}

// Of returns the positions of notes linking to id, in ascending order.
// The result is empty when nothing links to id.
func (b *Backlinks) Of(id string) []int {
	if b == nil {
		return []int{}
	}
	src := b.byTarget[id]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// Targets returns every destination with at least one backlink.
func (b *Backlinks) Targets() []string {
	if b == nil {
		return nil
	}
	return lo.Keys(b.byTarget)
}

// Len returns the number of distinct destinations.
func (b *Backlinks) Len() int {
	if b == nil {
		return 0
	}
	return len(b.byTarget)
}
