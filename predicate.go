package prune

import (
	"context"
	"log"

	"github.com/jward/prune/internal/runtime"
)

// RemovalSet is the configured collection of identifier values that trigger
// removal. It keeps the order it was given for display; membership ignores
// duplicates.
type RemovalSet struct {
	values  []string
	members map[string]struct{}
}

// NewRemovalSet builds a RemovalSet from values, duplicates allowed.
func NewRemovalSet(values ...string) RemovalSet {
	s := RemovalSet{
		values:  make([]string, len(values)),
		members: make(map[string]struct{}, len(values)),
	}
	copy(s.values, values)
	for _, v := range values {
		s.members[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member.
func (s RemovalSet) Contains(v string) bool {
	_, ok := s.members[v]
	return ok
}

// Values returns the values in the order given, duplicates included.
func (s RemovalSet) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

// Len returns the number of distinct members.
func (s RemovalSet) Len() int {
	return len(s.members)
}

// Predicate decides whether a node is removed. It must not mutate the tree.
type Predicate func(n *Node) bool

// DiscriminatorValue extracts the identifier carried by an object literal of
// the shape
//
//	{ ..., <discriminator>: someCall('<identifier>', ...), ... }
//
// Only the first property named discriminator is considered. Any other
// shape reports false.
func DiscriminatorValue(n *Node, discriminator string) (string, bool) {
	if n == nil || n.Kind != "object" {
		return "", false
	}
	var pair *Node
	for _, c := range n.Children {
		if c.Kind != "pair" {
			continue
		}
		key := c.Child("key")
		if key != nil && key.Kind == "property_identifier" && key.Text() == discriminator {
			pair = c
			break
		}
	}
	if pair == nil {
		return "", false
	}

	call := pair.Child("value")
	if call == nil || call.Kind != "call_expression" {
		return "", false
	}
	args := call.Child("arguments")
	if args == nil || args.Kind != "arguments" {
		return "", false
	}
	elems := args.Elements()
	if len(elems) == 0 {
		return "", false
	}
	return elems[0].StringValue()
}

// TandemPredicate matches object literals whose discriminator call's first
// argument is a member of set.
func TandemPredicate(discriminator string, set RemovalSet) Predicate {
	return func(n *Node) bool {
		id, ok := DiscriminatorValue(n, discriminator)
		return ok && set.Contains(id)
	}
}

// scriptPredicate matches object literals of the discriminator shape for
// which script evaluates truthy. Script errors are logged and count as a
// non-match.
func scriptPredicate(ctx context.Context, script *runtime.Script, discriminator string, set RemovalSet, logger *log.Logger) Predicate {
	values := set.Values()
	return func(n *Node) bool {
		id, ok := DiscriminatorValue(n, discriminator)
		if !ok {
			return false
		}
		remove, err := script.Decide(ctx, runtime.Candidate{
			ID:            id,
			Discriminator: discriminator,
			Kind:          n.Kind,
			Text:          n.Text(),
			Line:          n.StartPoint.Row,
			Column:        n.StartPoint.Column,
			RemoveSet:     values,
		})
		if err != nil {
			logger.Printf("WARN: predicate script %s on %q: %v", script.Label(), id, err)
			return false
		}
		return remove
	}
}
