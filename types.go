package prune

import (
	"github.com/jward/prune/internal/store"
	"github.com/jward/prune/internal/syntax"
)

// Public type aliases for internal types used in the Engine and history
// APIs. These are Go type aliases (=), identical to the internal types at
// compile time.

type Tree = syntax.Tree
type Node = syntax.Node
type Point = syntax.Point
type ParseError = syntax.ParseError

type RunRecord = store.Run
type FileRecord = store.File
type RemovalRecord = store.Removal
type IdentifierCount = store.IdentifierCount
