package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

var (
	removedColor = color.New(color.FgRed)
	pathColor    = color.New(color.Bold)
	okColor      = color.New(color.FgGreen)
	pendingColor = color.New(color.FgYellow, color.Bold)
)

// outputResult writes result to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// formatSummaryText prints one line per removal followed by a totals line.
func formatSummaryText(w io.Writer, s CLISummary) {
	for _, f := range s.Files {
		for _, r := range f.Removals {
			fmt.Fprintf(w, "%s:%d:%d: %s %s\n",
				pathColor.Sprint(f.Path), r.StartLine+1, r.StartCol+1,
				removedColor.Sprint("removed"), r.Identifier)
		}
	}

	verb := "Removed"
	c := okColor
	if s.DryRun {
		verb = "Would remove"
		if s.RemovalCount > 0 {
			c = pendingColor
		}
	}
	fmt.Fprintln(w, c.Sprintf("%s %d entr%s from %d of %d file(s) (%d skipped)",
		verb, s.RemovalCount, plural(s.RemovalCount, "y", "ies"),
		countChanged(s), s.FilesSeen, s.FilesSkipped))
}

// countChanged counts files with removals; a dry run changes nothing on
// disk but still reports which files would change.
func countChanged(s CLISummary) int {
	n := 0
	for _, f := range s.Files {
		if len(f.Removals) > 0 {
			n++
		}
	}
	return n
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// formatRunsText formats CLIRun results as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDRY RUN\tFILES\tCHANGED\tREMOVALS\tREMOVE SET")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.DryRun,
			r.FilesSeen, r.FilesChanged, r.RemovalCount, strings.Join(r.RemoveSet, ","))
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLANGUAGE\tLAST PRUNED")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.ID, f.Path, f.Language, f.LastPruned.Local().Format(time.DateTime))
	}
	tw.Flush()
}

// formatRemovalsText formats CLIRemoval results as "file:line:col" lines.
func formatRemovalsText(w io.Writer, removals []CLIRemoval) {
	for _, r := range removals {
		fmt.Fprintf(w, "%s:%d:%d: %s (index %d, run %s)\n",
			r.File, r.StartLine+1, r.StartCol+1, r.Identifier, r.OriginalIndex, r.RunID)
	}
}

// formatCountsText formats CLIIdentifierCount results as aligned columns.
func formatCountsText(w io.Writer, counts []CLIIdentifierCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tREMOVALS\tFILES")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Identifier, c.Count, c.Files)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLISummary:
		formatSummaryText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIRemoval:
		formatRemovalsText(w, v)
	case []CLIIdentifierCount:
		formatCountsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
