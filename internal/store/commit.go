package store

import "fmt"

// CommitBatch writes a BatchedStore's file record and removals within a
// single transaction. The file is upserted first so its real ID can replace
// the FileID carried by each buffered removal.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fileID, err := upsertFile(tx, &batch.File)
	if err != nil {
		return fmt.Errorf("commit batch: file %s: %w", batch.File.Path, err)
	}

	for i := range batch.Removals {
		r := batch.Removals[i]
		r.FileID = fileID
		if _, err := insertRemoval(tx, &r); err != nil {
			return fmt.Errorf("commit batch: removal %q: %w", r.Identifier, err)
		}
		batch.Removals[i] = r
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}
