package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/prune"
)

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the journal of previous runs",
	Long:  "Reads the SQLite journal written by run and check. Subcommands list runs, journaled files, removals per file or identifier, and per-identifier totals.",
}

func init() {
	historyRunsCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum runs to show (0 for all)")

	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyFilesCmd)
	historyCmd.AddCommand(historyFileCmd)
	historyCmd.AddCommand(historyIdentifierCmd)
	historyCmd.AddCommand(historySummaryCmd)
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory("runs", func(h *prune.HistoryQuery) (any, error) {
			runs, err := h.Runs(flagLimit)
			if err != nil {
				return nil, err
			}
			return toCLIRuns(runs), nil
		})
	},
}

var historyFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List journaled files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory("files", func(h *prune.HistoryQuery) (any, error) {
			files, err := h.Files()
			if err != nil {
				return nil, err
			}
			return toCLIFiles(files), nil
		})
	},
}

var historyFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "List removals made in one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory("file", func(h *prune.HistoryQuery) (any, error) {
			removals, err := h.Removals(args[0])
			if err != nil {
				return nil, err
			}
			return removalsWithPaths(h, removals)
		})
	},
}

var historyIdentifierCmd = &cobra.Command{
	Use:   "identifier <id>",
	Short: "List every removal of one identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory("identifier", func(h *prune.HistoryQuery) (any, error) {
			removals, err := h.RemovalsByIdentifier(args[0])
			if err != nil {
				return nil, err
			}
			return removalsWithPaths(h, removals)
		})
	},
}

var historySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count removals per identifier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory("summary", func(h *prune.HistoryQuery) (any, error) {
			counts, err := h.Summary()
			if err != nil {
				return nil, err
			}
			return toCLICounts(counts), nil
		})
	},
}

// withHistory opens the journal, runs fn and prints its result.
func withHistory(command string, fn func(h *prune.HistoryQuery) (any, error)) error {
	engine, h, err := openHistory()
	if err != nil {
		return outputError(command, err)
	}
	defer engine.Close()

	results, err := fn(h)
	if err != nil {
		return outputError(command, err)
	}
	return outputResult(CLIResult{Command: command, Results: results})
}

func removalsWithPaths(h *prune.HistoryQuery, removals []*prune.RemovalRecord) ([]CLIRemoval, error) {
	files, err := h.Files()
	if err != nil {
		return nil, err
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}
	return toCLIRemovals(removals, paths), nil
}
