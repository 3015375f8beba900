package prune

import (
	"errors"
	"fmt"
)

// ErrUnsupportedRemovalSite is matched (via errors.Is) by every
// *UnsupportedRemovalSiteError.
var ErrUnsupportedRemovalSite = errors.New("prune: unsupported removal site")

// ErrPrint reports printed output that no longer parses.
var ErrPrint = errors.New("prune: printed output does not parse")

// UnsupportedRemovalSiteError reports a matching node that is not an element
// of an array, so it cannot be spliced out. The pass is aborted.
type UnsupportedRemovalSiteError struct {
	Identifier string
	ParentKind string // "" when the node is the root
	Position   Point
}

func (e *UnsupportedRemovalSiteError) Error() string {
	parent := e.ParentKind
	if parent == "" {
		parent = "no parent"
	}
	return fmt.Sprintf("prune: unsupported removal site for %q at %d:%d: parent is %s, not array",
		e.Identifier, e.Position.Row, e.Position.Column, parent)
}

func (e *UnsupportedRemovalSiteError) Unwrap() error {
	return ErrUnsupportedRemovalSite
}

// ErrNoJournal is returned by history queries on an Engine built without
// WithJournal.
var ErrNoJournal = errors.New("prune: no journal configured")
