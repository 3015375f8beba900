// Package prune removes selected menu entries from JavaScript and TypeScript
// sources. An entry is an object literal inside an array whose discriminator
// property (by default "tandem") is a call with a string first argument:
//
//	menu = [
//	  { label: 'About', tandem: tandem.createTandem('aboutMenuItem') },
//	  { label: 'Help', tandem: tandem.createTandem('helpMenuItem') },
//	]
//
// Entries whose identifier is in the configured removal set are spliced out
// of their array. Everything else, comments and formatting included, is
// printed exactly as it was read.
//
// # Pipeline
//
// Pruning one source has three steps:
//
//  1. Parse: tree-sitter parses the source into a mutable [Tree]. Sources
//     with syntax errors are rejected with a [ParseError].
//
//  2. Prune: [Prune] walks the tree depth-first, pre-order, left to right
//     and removes every node the [Predicate] matches. A match that is not an
//     array element aborts the pass with [ErrUnsupportedRemovalSite].
//
//  3. Print: the tree is printed as the original bytes minus the removed
//     spans, then re-parsed to check the output is still valid.
//
// # Usage
//
// Create an Engine and prune files in place:
//
//	e, err := prune.New(
//	    prune.WithRemovalSet("aboutMenuItem", "screenshotMenuItem"),
//	    prune.WithJournal(".prune/journal.db"),
//	)
//	if err != nil { ... }
//	defer e.Close()
//
//	summary, err := e.PruneDirectory(ctx, "js/")
//
// [Engine.PruneSource] works on bytes in memory, [Engine.PruneFile] on one
// file and [Engine.PruneFiles] on a batch. A batch is written only if every
// file in it pruned cleanly.
//
// # Journal
//
// With [WithJournal] every run, file and removal is recorded in SQLite.
// Files whose content is exactly what the last run wrote under the same
// configuration are skipped. [Engine.History] reads the journal back.
//
// # Scripts
//
// [WithPredicateScript] replaces the removal set lookup with a Risor script.
// The script sees the candidate as the globals id, discriminator, kind,
// text, line, column and remove_set, and removes it when its last
// expression is truthy:
//
//	member(id, remove_set) || glob("debug*", id)
package prune
