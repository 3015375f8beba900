package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/prune"
	"github.com/jward/prune/internal/config"
)

var (
	flagConfig    string
	flagJournal   string
	flagNoJournal bool
	flagFormat    string
	flagVerbose   bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "prune",
	Short:         "Remove tandem-keyed menu entries from JavaScript and TypeScript sources",
	Long:          "Prune parses JavaScript, TypeScript and HTML sources with tree-sitter and splices out array entries whose discriminator call names an identifier in the removal set. All other text is kept byte for byte.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: prune.toml found by walking up from the target)")
	rootCmd.PersistentFlags().StringVar(&flagJournal, "journal", "", "journal path (default: .prune/journal.db relative to repo root)")
	rootCmd.PersistentFlags().BoolVar(&flagNoJournal, "no-journal", false, "do not record or consult the journal")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log progress to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig returns the configuration from --config, or the prune.toml
// discovered from startDir, or the defaults.
func loadConfig(startDir string) (config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.Discover(startDir)
}

// engineLogger returns the logger handed to the engine.
func engineLogger() *log.Logger {
	if flagVerbose {
		return log.New(os.Stderr, "[prune] ", 0)
	}
	return log.New(io.Discard, "", 0)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveJournalPath picks the journal from --journal, the config file or
// the default under the repo root. Empty means no journal.
func resolveJournalPath(cfg config.Config, repoRoot string) string {
	if flagNoJournal || (cfg.Journal.Disabled && flagJournal == "") {
		return ""
	}
	if flagJournal != "" {
		if filepath.IsAbs(flagJournal) {
			return flagJournal
		}
		return filepath.Join(repoRoot, flagJournal)
	}
	if cfg.Journal.Path != "" {
		return cfg.Journal.Path
	}
	return filepath.Join(repoRoot, ".prune", "journal.db")
}

// openHistory builds an engine over the journal only, for history commands.
func openHistory() (*prune.Engine, *prune.HistoryQuery, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(wd)
	if err != nil {
		return nil, nil, err
	}
	journal := resolveJournalPath(cfg, findRepoRoot(wd))
	if journal == "" {
		return nil, nil, prune.ErrNoJournal
	}
	if _, err := os.Stat(journal); err != nil {
		return nil, nil, fmt.Errorf("journal not found: %s", journal)
	}
	engine, err := prune.New(prune.WithJournal(journal), prune.WithLogger(engineLogger()))
	if err != nil {
		return nil, nil, fmt.Errorf("creating engine: %w", err)
	}
	h, err := engine.History()
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return engine, h, nil
}
