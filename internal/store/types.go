package store

import "time"

// Run is one invocation of the pruner over a set of files.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	ConfigHash    string
	Discriminator string
	RemoveSet     []string
	DryRun        bool
	FilesSeen     int
	FilesChanged  int
	RemovalCount  int
}

// File is the last known state of a pruned file. OutputHash is the content
// hash of what the pruner wrote; a file whose current content still hashes
// to OutputHash under the same ConfigHash needs no work.
type File struct {
	ID         int64
	Path       string
	Language   string
	InputHash  string
	OutputHash string
	ConfigHash string
	LastRunID  string
	LastPruned time.Time
}

// Removal is the journaled form of one spliced-out entry.
type Removal struct {
	ID            int64
	RunID         string
	FileID        int64
	Identifier    string
	OriginalIndex int
	ParentKind    string
	ParentStart   int
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
}

// IdentifierCount aggregates removals per identifier.
type IdentifierCount struct {
	Identifier string
	Count      int
	Files      int
}
