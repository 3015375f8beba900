package main

import (
	"time"

	"github.com/jward/prune"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLISummary is a JSON-friendly run outcome.
type CLISummary struct {
	RunID        string          `json:"run_id"`
	DryRun       bool            `json:"dry_run"`
	FilesSeen    int             `json:"files_seen"`
	FilesSkipped int             `json:"files_skipped"`
	FilesChanged int             `json:"files_changed"`
	RemovalCount int             `json:"removal_count"`
	Files        []CLIFileResult `json:"files"`
}

// CLIFileResult is the outcome for one file.
type CLIFileResult struct {
	Path     string       `json:"path"`
	Language string       `json:"language"`
	Changed  bool         `json:"changed"`
	Removals []CLIRemoval `json:"removals"`
}

// CLIRemoval is a JSON-friendly removal. Lines and columns are 0-based.
type CLIRemoval struct {
	File          string `json:"file,omitempty"`
	Identifier    string `json:"identifier"`
	OriginalIndex int    `json:"original_index"`
	StartLine     int    `json:"start_line"`
	StartCol      int    `json:"start_col"`
	EndLine       int    `json:"end_line"`
	EndCol        int    `json:"end_col"`
	RunID         string `json:"run_id,omitempty"`
}

// CLIRun is a JSON-friendly journaled run.
type CLIRun struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Discriminator string     `json:"discriminator"`
	RemoveSet     []string   `json:"remove_set"`
	DryRun        bool       `json:"dry_run"`
	FilesSeen     int        `json:"files_seen"`
	FilesChanged  int        `json:"files_changed"`
	RemovalCount  int        `json:"removal_count"`
}

// CLIFile is a JSON-friendly journaled file.
type CLIFile struct {
	ID         int64     `json:"id"`
	Path       string    `json:"path"`
	Language   string    `json:"language"`
	LastRunID  string    `json:"last_run_id"`
	LastPruned time.Time `json:"last_pruned"`
}

// CLIIdentifierCount is a JSON-friendly per-identifier total.
type CLIIdentifierCount struct {
	Identifier string `json:"identifier"`
	Count      int    `json:"count"`
	Files      int    `json:"files"`
}

func toCLISummary(s *prune.Summary, dryRun bool) CLISummary {
	out := CLISummary{
		RunID:        s.RunID,
		DryRun:       dryRun,
		FilesSeen:    s.Seen,
		FilesSkipped: s.Skipped,
		FilesChanged: s.Changed,
		RemovalCount: s.RemovalCount,
		Files:        make([]CLIFileResult, 0, len(s.Results)),
	}
	for _, res := range s.Results {
		if res.Skipped {
			continue
		}
		f := CLIFileResult{
			Path:     res.Path,
			Language: res.Language,
			Changed:  res.Changed,
			Removals: make([]CLIRemoval, 0, len(res.Removals)),
		}
		for _, r := range res.Removals {
			f.Removals = append(f.Removals, CLIRemoval{
				Identifier:    r.Identifier,
				OriginalIndex: r.OriginalIndex,
				StartLine:     r.Start.Row,
				StartCol:      r.Start.Column,
				EndLine:       r.End.Row,
				EndCol:        r.End.Column,
			})
		}
		out.Files = append(out.Files, f)
	}
	return out
}

func toCLIRuns(runs []*prune.RunRecord) []CLIRun {
	out := make([]CLIRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, CLIRun{
			ID:            r.ID,
			StartedAt:     r.StartedAt,
			FinishedAt:    r.FinishedAt,
			Discriminator: r.Discriminator,
			RemoveSet:     r.RemoveSet,
			DryRun:        r.DryRun,
			FilesSeen:     r.FilesSeen,
			FilesChanged:  r.FilesChanged,
			RemovalCount:  r.RemovalCount,
		})
	}
	return out
}

func toCLIFiles(files []*prune.FileRecord) []CLIFile {
	out := make([]CLIFile, 0, len(files))
	for _, f := range files {
		out = append(out, CLIFile{
			ID:         f.ID,
			Path:       f.Path,
			Language:   f.Language,
			LastRunID:  f.LastRunID,
			LastPruned: f.LastPruned,
		})
	}
	return out
}

// toCLIRemovals converts journaled removals; paths maps file IDs to paths.
func toCLIRemovals(removals []*prune.RemovalRecord, paths map[int64]string) []CLIRemoval {
	out := make([]CLIRemoval, 0, len(removals))
	for _, r := range removals {
		out = append(out, CLIRemoval{
			File:          paths[r.FileID],
			Identifier:    r.Identifier,
			OriginalIndex: r.OriginalIndex,
			StartLine:     r.StartLine,
			StartCol:      r.StartCol,
			EndLine:       r.EndLine,
			EndCol:        r.EndCol,
			RunID:         r.RunID,
		})
	}
	return out
}

func toCLICounts(counts []*prune.IdentifierCount) []CLIIdentifierCount {
	out := make([]CLIIdentifierCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, CLIIdentifierCount{Identifier: c.Identifier, Count: c.Count, Files: c.Files})
	}
	return out
}
