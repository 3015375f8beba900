package store

// RemovalSink receives removal records as a file is pruned. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// workers) implement this interface.
type RemovalSink interface {
	InsertRemoval(r *Removal) (int64, error)
}

// Compile-time check: *Store satisfies RemovalSink.
var _ RemovalSink = (*Store)(nil)
