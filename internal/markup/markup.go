// Package markup parses note bodies into a Markdown syntax tree and extracts
// link destinations from it.
package markup

import (
	"fmt"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/starford/slipbox/internal/apperr"
)

// Tree is a parsed note body together with the source it was parsed from.
// It is never mutated after Parse returns.
type Tree struct {
	root   ast.Node
	source []byte
}

// Root returns the document node.
func (t *Tree) Root() ast.Node { return t.root }

// Source returns the text the tree was parsed from.
func (t *Tree) Source() []byte { return t.source }

// Parse builds a syntax tree for src. It fails with apperr.ErrLinkParse when
// src is not valid UTF-8 or the parser panics on it.
func Parse(src []byte) (tree *Tree, err error) {
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("markup: %w: body is not valid UTF-8", apperr.ErrLinkParse)
	}
	defer func() {
		if r := recover(); r != nil {
			tree = nil
			err = fmt.Errorf("markup: %w: %v", apperr.ErrLinkParse, r)
		}
	}()

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	return &Tree{root: doc, source: src}, nil
}
