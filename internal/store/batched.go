package store

import "sync"

// BatchedStore buffers one file's journal entries in memory using fake
// (negative) IDs, so workers can record removals without touching SQLite.
// The committing goroutine flushes it with CommitBatch.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	File     File
	Removals []Removal

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies RemovalSink.
var _ RemovalSink = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore for the given file record.
func NewBatchedStore(f File) *BatchedStore {
	return &BatchedStore{
		File:       f,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertRemoval(r *Removal) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	r.ID = fakeID
	b.Removals = append(b.Removals, *r)
	return fakeID, nil
}

// Len returns the number of buffered removals.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Removals)
}
