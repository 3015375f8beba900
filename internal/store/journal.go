package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// --- Run operations ---

func (s *Store) InsertRun(r *Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, config_hash, discriminator, remove_set, dry_run)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt, r.ConfigHash, r.Discriminator, marshalStrings(r.RemoveSet), r.DryRun,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and totals.
func (s *Store) FinishRun(id string, finished time.Time, seen, changed, removals int) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, files_seen = ?, files_changed = ?, removal_count = ? WHERE id = ?`,
		finished, seen, changed, removals, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, config_hash, discriminator, remove_set,
	dry_run, files_seen, files_changed, removal_count`

func scanRun(scanner interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	var set string
	if err := scanner.Scan(&r.ID, &r.StartedAt, &finished, &r.ConfigHash, &r.Discriminator, &set,
		&r.DryRun, &r.FilesSeen, &r.FilesChanged, &r.RemovalCount); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	r.RemoveSet = unmarshalStrings(set)
	return r, nil
}

func (s *Store) RunByID(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// Runs returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) Runs(limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- File operations ---

// UpsertFile inserts or updates the file record keyed by path and returns
// its ID.
func (s *Store) UpsertFile(f *File) (int64, error) {
	return upsertFile(s.db, f)
}

type execQueryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func upsertFile(db execQueryer, f *File) (int64, error) {
	_, err := db.Exec(
		`INSERT INTO files (path, language, input_hash, output_hash, config_hash, last_run_id, last_pruned)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   language = excluded.language,
		   input_hash = excluded.input_hash,
		   output_hash = excluded.output_hash,
		   config_hash = excluded.config_hash,
		   last_run_id = excluded.last_run_id,
		   last_pruned = excluded.last_pruned`,
		f.Path, f.Language, f.InputHash, f.OutputHash, f.ConfigHash, nullString(f.LastRunID), f.LastPruned,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	if err := db.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&f.ID); err != nil {
		return 0, fmt.Errorf("upsert file: id: %w", err)
	}
	return f.ID, nil
}

const fileColumns = `id, path, language, COALESCE(input_hash, ''), COALESCE(output_hash, ''),
	COALESCE(config_hash, ''), COALESCE(last_run_id, ''), last_pruned`

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var pruned sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Language, &f.InputHash, &f.OutputHash,
		&f.ConfigHash, &f.LastRunID, &pruned); err != nil {
		return nil, err
	}
	f.LastPruned = pruned.Time
	return f, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every journaled file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileColumns + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Removal operations ---

func (s *Store) InsertRemoval(r *Removal) (int64, error) {
	return insertRemoval(s.db, r)
}

func insertRemoval(db execQueryer, r *Removal) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO removals (run_id, file_id, identifier, original_index, parent_kind, parent_start,
		   start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.FileID, r.Identifier, r.OriginalIndex, r.ParentKind, r.ParentStart,
		r.StartLine, r.StartCol, r.EndLine, r.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert removal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

const removalColumns = `id, run_id, file_id, identifier, original_index, parent_kind, parent_start,
	start_line, start_col, end_line, end_col`

func (s *Store) queryRemovals(query string, args ...any) ([]*Removal, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query removals: %w", err)
	}
	defer rows.Close()
	var out []*Removal
	for rows.Next() {
		r := &Removal{}
		if err := rows.Scan(&r.ID, &r.RunID, &r.FileID, &r.Identifier, &r.OriginalIndex,
			&r.ParentKind, &r.ParentStart, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("scan removal: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RemovalsByFile(fileID int64) ([]*Removal, error) {
	return s.queryRemovals("SELECT "+removalColumns+" FROM removals WHERE file_id = ? ORDER BY id", fileID)
}

func (s *Store) RemovalsByRun(runID string) ([]*Removal, error) {
	return s.queryRemovals("SELECT "+removalColumns+" FROM removals WHERE run_id = ? ORDER BY id", runID)
}

func (s *Store) RemovalsByIdentifier(identifier string) ([]*Removal, error) {
	return s.queryRemovals("SELECT "+removalColumns+" FROM removals WHERE identifier = ? ORDER BY id", identifier)
}

// IdentifierCounts returns removal totals per identifier, most removed first.
func (s *Store) IdentifierCounts() ([]*IdentifierCount, error) {
	rows, err := s.db.Query(
		`SELECT identifier, COUNT(*), COUNT(DISTINCT file_id) FROM removals
		 GROUP BY identifier ORDER BY COUNT(*) DESC, identifier`,
	)
	if err != nil {
		return nil, fmt.Errorf("identifier counts: %w", err)
	}
	defer rows.Close()
	var out []*IdentifierCount
	for rows.Next() {
		c := &IdentifierCount{}
		if err := rows.Scan(&c.Identifier, &c.Count, &c.Files); err != nil {
			return nil, fmt.Errorf("scan identifier count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- helpers ---

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(values)
	return string(b)
}

// unmarshalStrings converts JSON text back to []string.
func unmarshalStrings(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var values []string
	_ = json.Unmarshal([]byte(s), &values)
	return values
}
