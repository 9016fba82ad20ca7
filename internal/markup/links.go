package markup

import "github.com/yuin/goldmark/ast"

// nodeKind is the closed set of node kinds that matter for link extraction.
type nodeKind int

const (
	kindOther nodeKind = iota
	kindLink
	kindImage
)

func classify(n ast.Node) nodeKind {
	switch n.Kind() {
	case ast.KindLink:
		return kindLink
	case ast.KindImage:
		return kindImage
	default:
		return kindOther
	}
}

// ExtractLinks returns the destination of every link and image in t, in
// document order. Duplicates are kept and nothing is resolved against existing
// notes. The walk uses an explicit stack so deeply nested documents cannot
// exhaust the goroutine stack.
func ExtractLinks(t *Tree) []string {
	out := []string{}
	if t == nil || t.root == nil {
		return out
	}

	stack := []ast.Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var dest []byte
		switch classify(n) {
		case kindLink:
			dest = n.(*ast.Link).Destination
		case kindImage:
			dest = n.(*ast.Image).Destination
		case kindOther:
		}
		if len(dest) > 0 {
			out = append(out, string(dest))
		}

		// Push children last-to-first so the first child is popped next.
		for c := n.LastChild(); c != nil; c = c.PreviousSibling() {
			stack = append(stack, c)
		}
	}
	return out
}
