package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveSearch "github.com/blevesearch/bleve/v2/search"
	"github.com/samber/lo"

	_ "github.com/blevesearch/bleve/v2/config"

	"github.com/starford/slipbox/internal/apperr"
)

const (
	fieldTitle = "title"
	fieldBody  = "body"
)

// Bleve is an in-memory Index. A Rebuild fills a fresh index aside and swaps
// it in only once every document was accepted.
type Bleve struct {
	mu   sync.RWMutex
	idx  bleve.Index
	seen map[string]struct{}
}

var _ Index = (*Bleve)(nil)

// NewBleve returns an empty in-memory index.
func NewBleve() (*Bleve, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w: %w", apperr.ErrIndex, err)
	}
	return &Bleve{idx: idx, seen: make(map[string]struct{})}, nil
}

// newMapping indexes only the title. The body is stored but not searchable,
// and unqualified query terms target the title field.
func newMapping() mapping.IndexMapping {
	title := bleve.NewTextFieldMapping()
	body := bleve.NewTextFieldMapping()
	body.Index = false
	body.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldTitle, title)
	doc.AddFieldMappingsAt(fieldBody, body)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultField = fieldTitle
	return m
}

func fields(doc Document) map[string]interface{} {
	return map[string]interface{}{
		fieldTitle: doc.Title,
		fieldBody:  doc.Body,
	}
}

// Clear swaps in an empty index.
func (b *Bleve) Clear() error {
	fresh, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("search: clear: %w: %w", apperr.ErrIndex, err)
	}
	b.mu.Lock()
	old := b.idx
	b.idx = fresh
	b.seen = make(map[string]struct{})
	b.mu.Unlock()
	_ = old.Close()
	return nil
}

// Index adds one document.
func (b *Bleve) Index(doc Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[doc.ID]; dup {
		return fmt.Errorf("search: index %s: %w: already indexed", doc.ID, apperr.ErrIndex)
	}
	if err := b.idx.Index(doc.ID, fields(doc)); err != nil {
		return fmt.Errorf("search: index %s: %w: %w", doc.ID, apperr.ErrIndex, err)
	}
	b.seen[doc.ID] = struct{}{}
	return nil
}

// Rebuild builds a new index from docs in one batch and swaps it in.
func (b *Bleve) Rebuild(docs []Document) error {
	fresh, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("search: rebuild: %w: %w", apperr.ErrIndex, err)
	}
	seen := make(map[string]struct{}, len(docs))
	batch := fresh.NewBatch()
	for _, doc := range docs {
		if _, dup := seen[doc.ID]; dup {
			_ = fresh.Close()
			return fmt.Errorf("search: rebuild: %w: duplicate id %s", apperr.ErrIndex, doc.ID)
		}
		seen[doc.ID] = struct{}{}
		if err := batch.Index(doc.ID, fields(doc)); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("search: rebuild %s: %w: %w", doc.ID, apperr.ErrIndex, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("search: rebuild: %w: %w", apperr.ErrIndex, err)
	}

	b.mu.Lock()
	old := b.idx
	b.idx = fresh
	b.seen = seen
	b.mu.Unlock()
	_ = old.Close()
	return nil
}

// Replace deletes then re-indexes doc in one batch.
func (b *Bleve) Replace(doc Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.idx.NewBatch()
	batch.Delete(doc.ID)
	if err := batch.Index(doc.ID, fields(doc)); err != nil {
		return fmt.Errorf("search: replace %s: %w: %w", doc.ID, apperr.ErrIndex, err)
	}
	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("search: replace %s: %w: %w", doc.ID, apperr.ErrIndex, err)
	}
	b.seen[doc.ID] = struct{}{}
	return nil
}

// Delete removes one document.
func (b *Bleve) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.idx.Delete(id); err != nil {
		return fmt.Errorf("search: delete %s: %w: %w", id, apperr.ErrIndex, err)
	}
	delete(b.seen, id)
	return nil
}

// QueryTitle runs keyword as a bleve query string against the title field.
func (b *Bleve) QueryTitle(keyword string, limit int) (map[string]struct{}, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return map[string]struct{}{}, nil
	}
	q := bleve.NewQueryStringQuery(keyword)
	if _, err := q.Parse(); err != nil {
		return nil, fmt.Errorf("search: parse %q: %w: %w", keyword, apperr.ErrQuerySyntax, err)
	}
	req := bleve.NewSearchRequestOptions(q, effectiveLimit(limit), 0, false)
	req.SortBy([]string{"-_score", "_id"})

	b.mu.RLock()
	res, err := b.idx.Search(req)
	b.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search: query %q: %w: %w", keyword, apperr.ErrIndex, err)
	}

	return lo.Associate(res.Hits, func(hit *bleveSearch.DocumentMatch) (string, struct{}) {
		return hit.ID, struct{}{}
	}), nil
}

// Close releases the index.
func (b *Bleve) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.Close()
}
