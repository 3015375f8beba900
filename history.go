package prune

import (
	"fmt"
	"path/filepath"

	"github.com/jward/prune/internal/store"
)

// HistoryQuery reads what previous runs removed. It is a read-only view
// over the journal.
type HistoryQuery struct {
	store *store.Store
}

// History returns a HistoryQuery over this Engine's journal, or
// ErrNoJournal when the Engine was built without one.
func (e *Engine) History() (*HistoryQuery, error) {
	if e.store == nil {
		return nil, ErrNoJournal
	}
	return &HistoryQuery{store: e.store}, nil
}

// Runs returns the most recent runs first. limit <= 0 returns all.
func (q *HistoryQuery) Runs(limit int) ([]*RunRecord, error) {
	return q.store.Runs(limit)
}

// Run returns one run by ID, or nil if there is none.
func (q *HistoryQuery) Run(id string) (*RunRecord, error) {
	return q.store.RunByID(id)
}

// Files returns every journaled file ordered by path.
func (q *HistoryQuery) Files() ([]*FileRecord, error) {
	return q.store.Files()
}

// Removals returns every journaled removal for the file at path, across all
// runs. A path the journal has never seen yields an empty result.
func (q *HistoryQuery) Removals(path string) ([]*RemovalRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("prune: resolve %s: %w", path, err)
	}
	f, err := q.store.FileByPath(abs)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	return q.store.RemovalsByFile(f.ID)
}

// RemovalsInRun returns the removals made by one run.
func (q *HistoryQuery) RemovalsInRun(runID string) ([]*RemovalRecord, error) {
	return q.store.RemovalsByRun(runID)
}

// RemovalsByIdentifier returns every removal of entries carrying id.
func (q *HistoryQuery) RemovalsByIdentifier(id string) ([]*RemovalRecord, error) {
	return q.store.RemovalsByIdentifier(id)
}

// Summary counts removals per identifier, most removed first.
func (q *HistoryQuery) Summary() ([]*IdentifierCount, error) {
	return q.store.IdentifierCounts()
}
