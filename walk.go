package prune

import "github.com/jward/prune/internal/config"

// Removal is the diagnostic record of one spliced-out element.
type Removal struct {
	Identifier    string // discriminator value, "" if the node carries none
	OriginalIndex int    // element index in the array as parsed
	ParentKind    string
	ParentStart   uint32 // byte offset of the owning array, its identity within the tree
	Start         Point
	End           Point
	Text          string
}

type walker struct {
	tree          *Tree
	pred          Predicate
	discriminator string
	observer      func(Removal)
	removals      []Removal
}

// WalkOption configures Prune.
type WalkOption func(*walker)

// WithObserver calls fn for every removal as it happens. Observers are
// advisory and cannot influence the walk.
func WithObserver(fn func(Removal)) WalkOption {
	return func(w *walker) {
		w.observer = fn
	}
}

// WithIdentifier names the discriminator property used to fill
// Removal.Identifier. Defaults to "tandem".
func WithIdentifier(discriminator string) WalkOption {
	return func(w *walker) {
		w.discriminator = discriminator
	}
}

// Prune walks tree pre-order, depth-first, left to right and splices out
// every node pred matches. A matched node is not descended into. The tree is
// mutated in place; the returned records are in source order.
//
// Indices are never cached across a removal: each splice looks the node up
// in its parent's current children, and the child loop only advances past
// nodes that stayed.
//
// A match wrapped in parentheses is removed together with its wrappers.
// Matches outside an array abort the pass with an
// *UnsupportedRemovalSiteError; removals already made stay in the tree, so
// callers must discard it.
func Prune(tree *Tree, pred Predicate, opts ...WalkOption) ([]Removal, error) {
	w := &walker{
		tree:          tree,
		pred:          pred,
		discriminator: config.DefaultDiscriminator,
	}
	for _, opt := range opts {
		opt(w)
	}
	if tree == nil || tree.Root == nil || pred == nil {
		return nil, nil
	}
	if _, err := w.visit(tree.Root); err != nil {
		return nil, err
	}
	return w.removals, nil
}

// visit returns the node spliced out of the tree, if any. It is n itself or,
// when n is wrapped in parentheses, the outermost wrapper.
func (w *walker) visit(n *Node) (*Node, error) {
	if w.pred(n) {
		return w.remove(n)
	}
	return w.walk(n)
}

func (w *walker) walk(n *Node) (*Node, error) {
	for i := 0; i < len(n.Children); {
		child := n.Children[i]
		gone, err := w.visit(child)
		if err != nil {
			return nil, err
		}
		switch gone {
		case nil:
			i++
		case child:
		default:
			// n, or one of its ancestors, was the spliced wrapper.
			return gone, nil
		}
	}
	return nil, nil
}

func (w *walker) remove(n *Node) (*Node, error) {
	id, _ := DiscriminatorValue(n, w.discriminator)
	site := n
	for site.Parent != nil && site.Parent.Kind == "parenthesized_expression" {
		site = site.Parent
	}
	parent := site.Parent
	if parent == nil || parent.Kind != "array" {
		e := &UnsupportedRemovalSiteError{Identifier: id, Position: n.StartPoint}
		if parent != nil {
			e.ParentKind = parent.Kind
		}
		return nil, e
	}

	if _, err := w.tree.Splice(site); err != nil {
		return nil, err
	}

	r := Removal{
		Identifier:    id,
		OriginalIndex: site.Index,
		ParentKind:    parent.Kind,
		ParentStart:   parent.Start,
		Start:         site.StartPoint,
		End:           site.EndPoint,
		Text:          site.Text(),
	}
	w.removals = append(w.removals, r)
	if w.observer != nil {
		w.observer(r)
	}
	return site, nil
}
