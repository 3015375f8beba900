package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/prune"
	"github.com/jward/prune/internal/config"
	"github.com/jward/prune/scripts"
)

var (
	flagDiscriminator string
	flagRemove        []string
	flagScript        string
	flagOut           string
	flagDryRun        bool
	flagForce         bool
	flagSerial        bool
	flagWorkers       int
)

var runCmd = &cobra.Command{
	Use:   "run [path...]",
	Short: "Prune files or directories in place",
	Long:  "Parses each supported file, removes matching entries and rewrites the file. Directories are searched recursively, respecting .gitignore inside git repositories. If any file fails, no file is written.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrune(cmd, args, false)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [path...]",
	Short: "Report entries that would be removed without writing",
	Long:  "Runs the prune pass without writing any file and exits non-zero when something would be removed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrune(cmd, args, true)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, checkCmd} {
		cmd.Flags().StringVar(&flagDiscriminator, "discriminator", "", "discriminator property name (default from config, else \"tandem\")")
		cmd.Flags().StringSliceVar(&flagRemove, "remove", nil, "identifiers to remove, replacing the configured set")
		cmd.Flags().StringVar(&flagScript, "script", "", "Risor predicate script deciding removal, or builtin:<name>")
		cmd.Flags().BoolVar(&flagForce, "force", false, "prune files even if the journal shows them as already pruned")
		cmd.Flags().BoolVar(&flagSerial, "serial", false, "process files one at a time")
		cmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker pool size (default: one per CPU)")
	}
	runCmd.Flags().StringVarP(&flagOut, "out", "o", "", "write the result here instead of in place (single file only)")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "compute removals without writing")
}

func runPrune(cmd *cobra.Command, args []string, check bool) error {
	command := cmd.Name()
	start := time.Now()

	targets, err := resolveTargets(args)
	if err != nil {
		return outputError(command, err)
	}
	if flagOut != "" && (len(targets) != 1 || targets[0].dir) {
		return outputError(command, fmt.Errorf("--out requires exactly one file argument"))
	}

	base := targets[0].path
	if !targets[0].dir {
		base = filepath.Dir(base)
	}
	cfg, err := loadConfig(base)
	if err != nil {
		return outputError(command, err)
	}

	opts := buildOptions(cfg, findRepoRoot(base), check)
	engine, err := prune.New(opts...)
	if err != nil {
		return outputError(command, fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var summary *prune.Summary
	if flagOut != "" {
		res, err := engine.PruneFile(ctx, targets[0].path, flagOut)
		if err != nil {
			return outputError(command, err)
		}
		summary = &prune.Summary{Seen: 1, Results: []*prune.Result{res}, RemovalCount: len(res.Removals)}
		if res.Changed {
			summary.Changed = 1
		}
		if res.Skipped {
			summary.Skipped = 1
		}
	} else {
		paths, err := expandTargets(targets)
		if err != nil {
			return outputError(command, err)
		}
		summary, err = engine.PruneFiles(ctx, paths)
		if err != nil {
			return outputError(command, err)
		}
	}

	if flagVerbose {
		fmt.Fprintf(os.Stderr, "Pruned %d file(s) in %s\n", summary.Seen, time.Since(start).Round(time.Millisecond))
	}

	dryRun := check || flagDryRun
	if err := outputResult(CLIResult{Command: command, Results: toCLISummary(summary, dryRun)}); err != nil {
		return err
	}
	if check && summary.RemovalCount > 0 {
		return fmt.Errorf("%d removal(s) pending", summary.RemovalCount)
	}
	return nil
}

// buildOptions layers command-line flags over the configuration file.
func buildOptions(cfg config.Config, repoRoot string, check bool) []prune.Option {
	discriminator := cfg.Prune.Discriminator
	if flagDiscriminator != "" {
		discriminator = flagDiscriminator
	}
	remove := cfg.Prune.Remove
	if len(flagRemove) > 0 {
		remove = flagRemove
	}
	script := cfg.Prune.Script
	if flagScript != "" {
		script = flagScript
	}
	workers := cfg.Run.Workers
	if flagWorkers > 0 {
		workers = flagWorkers
	}

	opts := []prune.Option{
		prune.WithDiscriminator(discriminator),
		prune.WithRemovalSet(remove...),
		prune.WithParallel(!(flagSerial || cfg.Run.Serial)),
		prune.WithWorkers(workers),
		prune.WithDryRun(check || flagDryRun),
		prune.WithForce(flagForce),
		prune.WithLogger(engineLogger()),
	}
	if name, ok := strings.CutPrefix(script, builtinPrefix); ok {
		opts = append(opts, prune.WithScriptFS(scripts.FS), prune.WithPredicateScript(name+".risor"))
	} else if script != "" {
		opts = append(opts, prune.WithPredicateScript(script))
	}
	if journal := resolveJournalPath(cfg, repoRoot); journal != "" {
		opts = append(opts, prune.WithJournal(journal))
	}
	return opts
}

// builtinPrefix selects an embedded predicate script, e.g. builtin:offline.
const builtinPrefix = "builtin:"

type target struct {
	path string
	dir  bool
}

// resolveTargets returns the absolute paths of the arguments, defaulting to
// the working directory.
func resolveTargets(args []string) ([]target, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	var targets []target
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", abs)
		}
		targets = append(targets, target{path: abs, dir: info.IsDir()})
	}
	return targets, nil
}

// expandTargets lists the sources under directory targets and keeps file
// targets as given, without duplicates.
func expandTargets(targets []target) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, t := range targets {
		if !t.dir {
			add(t.path)
			continue
		}
		found, err := prune.ListSources(t.path)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}
	return paths, nil
}
