// Package note holds the in-memory representation of one note file: identity,
// header, body, cached syntax tree and the outbound links derived from it.
package note

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/slipbox/internal/header"
	"github.com/starford/slipbox/internal/markup"
)

// IDPrefix starts every note identifier.
const IDPrefix = "@/"

// IDFromRel returns the identifier for a file path relative to the root.
func IDFromRel(rel string) string {
	return IDPrefix + path.Clean(strings.ReplaceAll(rel, "\\", "/"))
}

// RelFromID is the inverse of IDFromRel.
func RelFromID(id string) (string, error) {
	rel, ok := strings.CutPrefix(id, IDPrefix)
	if !ok || rel == "" {
		return "", fmt.Errorf("note: invalid identifier %q", id)
	}
	return rel, nil
}

// Note is one persisted document.
//
// Links always reflects the last successful parse of Content. When parsing
// fails the tree is nil and Links is empty; the note stays usable.
type Note struct {
	id       string
	path     string
	header   header.Header
	body     string
	tree     *markup.Tree
	links    []string
	parseErr error
}

// FromFile decodes the raw bytes of the file at rel (relative to the root)
// and absPath. It fails only when the header is malformed.
func FromFile(rel, absPath string, data []byte) (*Note, error) {
	h, body, err := header.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("note: %s: %w", rel, err)
	}
	n := &Note{
		id:     IDFromRel(rel),
		path:   absPath,
		header: h,
	}
	n.SetContent(body)
	return n, nil
}

// New returns a note with a fresh header and an empty body.
func New(rel, absPath, title string, created time.Time) *Note {
	n := &Note{
		id:     IDFromRel(rel),
		path:   absPath,
		header: header.Header{Title: title, Date: header.DateOf(created)},
	}
	n.SetContent("")
	return n
}

// ID returns the identifier, "@/" followed by the root-relative path.
func (n *Note) ID() string { return n.id }

// Path returns the absolute file path.
func (n *Note) Path() string { return n.path }

// RelPath returns the root-relative path with forward slashes.
func (n *Note) RelPath() string { return strings.TrimPrefix(n.id, IDPrefix) }

// Title returns the header title.
func (n *Note) Title() string { return n.header.Title }

// Created returns the header date, if any.
func (n *Note) Created() (time.Time, bool) { return n.header.Created() }

// Header returns a copy of the header.
func (n *Note) Header() header.Header {
	return n.header.Clone()
}

// Content returns the body text following the header.
func (n *Note) Content() string { return n.body }

// Tree returns the cached syntax tree, or nil if the last parse failed.
func (n *Note) Tree() *markup.Tree { return n.tree }

// Links returns the outbound link destinations in document order.
func (n *Note) Links() []string {
	out := make([]string, len(n.links))
	copy(out, n.links)
	return out
}

// ParseErr returns the error from the last failed parse, or nil.
func (n *Note) ParseErr() error { return n.parseErr }

// SetTitle replaces the header title. It does not touch disk.
func (n *Note) SetTitle(title string) { n.header.Title = title }

// SetContent replaces the body and re-derives the tree and links.
func (n *Note) SetContent(body string) {
	n.body = body
	tree, err := markup.Parse([]byte(body))
	if err != nil {
		n.tree = nil
		n.links = []string{}
		n.parseErr = err
		return
	}
	n.tree = tree
	n.links = markup.ExtractLinks(tree)
	n.parseErr = nil
}

// Encode renders the note as file content.
func (n *Note) Encode() ([]byte, error) {
	return header.Compose(n.header, n.body)
}

// Clone returns a copy that can be mutated independently. The syntax tree is
// shared since it is never mutated.
func (n *Note) Clone() *Note {
	c := *n
	c.header = n.Header()
	c.links = n.Links()
	return &c
}
