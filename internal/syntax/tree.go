// Package syntax turns source text into a mutable tree of nodes and prints
// it back. Parsing is delegated to tree-sitter; printing replays the original
// bytes minus the spans cut by removals, so anything not removed keeps its
// exact formatting and comments.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrDetached is returned when a node is spliced that is no longer among its
// parent's children.
var ErrDetached = errors.New("syntax: node is not attached to a parent")

// Point is a 0-based row/column position.
type Point struct {
	Row    int
	Column int
}

// Span is a half-open byte range [Start, End) of the original source.
type Span struct {
	Start uint32
	End   uint32
}

// Node is one node of a parsed tree. Children are owned and kept in source
// order; Parent is a back-reference for traversal bookkeeping only.
type Node struct {
	Kind       string
	Field      string // field name under which the node hangs in its parent
	Named      bool
	Start      uint32
	End        uint32
	StartPoint Point
	EndPoint   Point
	Parent     *Node
	Children   []*Node

	// Index is the node's original position among its parent's elements, or
	// -1 for punctuation and comments.
	Index int

	tree *Tree
}

// Tree is a parsed source file. It is mutated in place by Splice and
// consumed by Print.
type Tree struct {
	Source   []byte
	Language string
	Root     *Node

	cuts []Span
}

// ParseError reports source that tree-sitter could only recover from with
// ERROR or MISSING nodes.
type ParseError struct {
	Language string
	Position Point
	Kind     string
}

func (e *ParseError) Error() string {
	what := "syntax error"
	if e.Kind == "MISSING" {
		what = "missing token"
	}
	return fmt.Sprintf("syntax: parse %s: %s at %d:%d", e.Language, what, e.Position.Row, e.Position.Column)
}

// Parse parses src with the grammar for lang. Sources that contain syntax
// errors are rejected with a *ParseError rather than returned as a partial
// tree.
func Parse(ctx context.Context, src []byte, lang string) (*Tree, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("syntax: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tsTree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: tree-sitter parse failed: %w", err)
	}
	defer tsTree.Close()

	t := &Tree{Source: src, Language: lang}
	root := tsTree.RootNode()
	t.Root = t.build(root, nil, "")

	if root.HasError() {
		if bad := firstError(t.Root); bad != nil {
			return nil, &ParseError{Language: lang, Position: bad.StartPoint, Kind: bad.Kind}
		}
		return nil, &ParseError{Language: lang, Position: t.Root.StartPoint, Kind: "ERROR"}
	}
	return t, nil
}

// build copies a tree-sitter node and its descendants into the mutable model.
func (t *Tree) build(n *sitter.Node, parent *Node, field string) *Node {
	kind := n.Type()
	if n.IsMissing() {
		kind = "MISSING"
	}
	node := &Node{
		Kind:       kind,
		Field:      field,
		Named:      n.IsNamed(),
		Start:      n.StartByte(),
		End:        n.EndByte(),
		StartPoint: Point{Row: int(n.StartPoint().Row), Column: int(n.StartPoint().Column)},
		EndPoint:   Point{Row: int(n.EndPoint().Row), Column: int(n.EndPoint().Column)},
		Parent:     parent,
		Index:      -1,
		tree:       t,
	}

	count := int(n.ChildCount())
	if count == 0 {
		return node
	}
	node.Children = make([]*Node, 0, count)
	elem := 0
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		child := t.build(c, node, n.FieldNameForChild(i))
		if child.isElement() {
			child.Index = elem
			elem++
		}
		node.Children = append(node.Children, child)
	}
	return node
}

func firstError(n *Node) *Node {
	if n.Kind == "ERROR" || n.Kind == "MISSING" {
		return n
	}
	for _, c := range n.Children {
		if bad := firstError(c); bad != nil {
			return bad
		}
	}
	return nil
}

// isElement reports whether the node counts as an element of a sequence:
// named and not a comment.
func (n *Node) isElement() bool {
	return n.Named && n.Kind != "comment"
}

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree {
	return n.tree
}

// Text returns the original source text of the node.
func (n *Node) Text() string {
	return string(n.tree.Source[n.Start:n.End])
}

// Child returns the first child hanging under the given field name, or nil.
func (n *Node) Child(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// Elements returns the node's current named, non-comment children in order.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.isElement() {
			out = append(out, c)
		}
	}
	return out
}

// position returns the node's current index in its parent's Children, or -1.
func (n *Node) position() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Splice removes n from its parent's children and records the bytes to drop
// when printing, including one adjacent separator so the remaining siblings
// stay well formed. It returns the index n had at the time of removal.
//
// The index is looked up at call time, so splicing during a left-to-right
// walk is safe as long as the walker does not advance past the freed slot.
func (t *Tree) Splice(n *Node) (int, error) {
	if n.tree != t {
		return -1, fmt.Errorf("syntax: splice: node belongs to another tree")
	}
	idx := n.position()
	if idx < 0 {
		return -1, ErrDetached
	}
	siblings := n.Parent.Children

	var next, prev *Node
	for _, c := range siblings[idx+1:] {
		if c.isElement() {
			next = c
			break
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if siblings[i].isElement() {
			prev = siblings[i]
			break
		}
	}

	switch {
	case next != nil:
		// Stop right after the separator so comments ahead of the next
		// sibling stay with it.
		end := next.Start
		if siblings[idx+1].Kind == "," {
			end = siblings[idx+2].Start
		}
		t.cuts = append(t.cuts, Span{Start: n.Start, End: end})
	case prev != nil:
		t.cuts = append(t.cuts, Span{Start: prev.End, End: n.End})
	default:
		end := n.End
		if idx+1 < len(siblings) && siblings[idx+1].Kind == "," {
			end = siblings[idx+1].End
		}
		t.cuts = append(t.cuts, Span{Start: n.Start, End: end})
	}

	n.Parent.Children = append(siblings[:idx:idx], siblings[idx+1:]...)
	return idx, nil
}

// Cuts returns the merged cut spans in source order.
func (t *Tree) Cuts() []Span {
	if len(t.cuts) == 0 {
		return nil
	}
	spans := make([]Span, len(t.cuts))
	copy(spans, t.cuts)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Modified reports whether any node has been spliced out.
func (t *Tree) Modified() bool {
	return len(t.cuts) > 0
}

// Print returns the source with every cut span removed. An unmodified tree
// prints byte-for-byte as its input.
func (t *Tree) Print() []byte {
	cuts := t.Cuts()
	if len(cuts) == 0 {
		out := make([]byte, len(t.Source))
		copy(out, t.Source)
		return out
	}
	out := make([]byte, 0, len(t.Source))
	var pos uint32
	for _, c := range cuts {
		out = append(out, t.Source[pos:c.Start]...)
		pos = c.End
	}
	return append(out, t.Source[pos:]...)
}
