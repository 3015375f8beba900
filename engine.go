package prune

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jward/prune/internal/config"
	"github.com/jward/prune/internal/runtime"
	"github.com/jward/prune/internal/store"
	"github.com/jward/prune/internal/syntax"
)

// Engine runs the prune pass over sources and files: parse, match, splice,
// print, write. It optionally journals every run to SQLite and skips files
// whose content is already the output of a previous run.
type Engine struct {
	discriminator string
	removeSet     RemovalSet

	scriptPath string
	scriptFS   fs.FS
	script     *runtime.Script
	scriptSrc  string

	journalPath string
	store       *store.Store
	configHash  string

	logger *log.Logger

	useParallel bool
	workers     int
	dryRun      bool
	force       bool
	verify      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDiscriminator sets the property name that marks candidates.
func WithDiscriminator(name string) Option {
	return func(e *Engine) {
		e.discriminator = name
	}
}

// WithRemovalSet sets the identifiers that trigger removal. Duplicates are
// allowed and ignored.
func WithRemovalSet(values ...string) Option {
	return func(e *Engine) {
		e.removeSet = NewRemovalSet(values...)
	}
}

// WithPredicateScript replaces the set membership test with a Risor script.
// The script sees the candidate as globals and removes it when its final
// expression is truthy.
func WithPredicateScript(path string) Option {
	return func(e *Engine) {
		e.scriptPath = path
	}
}

// WithScriptFS loads the predicate script and its imports from fsys instead
// of disk.
func WithScriptFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptFS = fsys
	}
}

// WithJournal records runs, files and removals in a SQLite database at path.
func WithJournal(path string) Option {
	return func(e *Engine) {
		e.journalPath = path
	}
}

// WithLogger sets the destination for progress and warning messages.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParallel controls parallel processing in PruneFiles. When true
// (default), files are parsed and pruned by a worker pool and written by
// the calling goroutine. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers caps the worker pool size. Zero means one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithDryRun computes removals without writing any file.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) {
		e.dryRun = dryRun
	}
}

// WithForce disables journal-based skipping of already pruned files.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// WithVerify controls re-parsing printed output before it is returned or
// written (default true).
func WithVerify(verify bool) Option {
	return func(e *Engine) {
		e.verify = verify
	}
}

// New creates an Engine. Without options it removes the default menu
// entries keyed by the "tandem" property and keeps no journal.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		discriminator: config.DefaultDiscriminator,
		removeSet:     NewRemovalSet(config.DefaultRemoveSet...),
		logger:        log.New(io.Discard, "", 0),
		useParallel:   true,
		verify:        true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.discriminator == "" {
		return nil, fmt.Errorf("prune: discriminator must not be empty")
	}

	if e.scriptPath != "" {
		var rtOpts []runtime.RuntimeOption
		rtOpts = append(rtOpts, runtime.WithLogger(e.logger))
		scriptPath, scriptsDir := e.scriptPath, ""
		if e.scriptFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptFS))
		} else {
			abs, err := filepath.Abs(e.scriptPath)
			if err != nil {
				return nil, fmt.Errorf("prune: resolve predicate script: %w", err)
			}
			scriptPath, scriptsDir = abs, filepath.Dir(abs)
		}
		rt := runtime.NewRuntime(scriptsDir, rtOpts...)
		src, err := rt.LoadScript(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("prune: predicate script: %w", err)
		}
		script, err := rt.Load(context.Background(), scriptPath)
		if err != nil {
			return nil, fmt.Errorf("prune: predicate script: %w", err)
		}
		e.script = script
		e.scriptSrc = src
	}

	e.configHash = store.ComputeConfigHash(e.discriminator, e.removeSet.Values(), e.scriptSrc)

	if e.journalPath != "" {
		if err := os.MkdirAll(filepath.Dir(e.journalPath), 0o755); err != nil {
			return nil, fmt.Errorf("prune: create journal directory: %w", err)
		}
		s, err := store.NewStore(e.journalPath)
		if err != nil {
			return nil, fmt.Errorf("prune: create journal: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("prune: migrate journal: %w", err)
		}
		e.store = s

		last, err := s.GetMetadata(configHashKey)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("prune: read journal metadata: %w", err)
		}
		if last != "" && last != e.configHash {
			e.logger.Printf("configuration changed since the last run, every file will be pruned again")
		}
	}

	return e, nil
}

// Close releases the Engine's journal, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Discriminator returns the configured discriminator property name.
func (e *Engine) Discriminator() string {
	return e.discriminator
}

// RemovalSet returns the configured removal set.
func (e *Engine) RemovalSet() RemovalSet {
	return e.removeSet
}

// ConfigHash identifies the configuration that decides what is removed.
func (e *Engine) ConfigHash() string {
	return e.configHash
}

// Predicate returns the removal predicate for this Engine's configuration.
// Script predicates evaluate under ctx.
func (e *Engine) Predicate(ctx context.Context) Predicate {
	if e.script != nil {
		return scriptPredicate(ctx, e.script, e.discriminator, e.removeSet, e.logger)
	}
	return TandemPredicate(e.discriminator, e.removeSet)
}

// Result is the outcome of pruning one source.
type Result struct {
	Path       string
	Language   string
	Output     []byte
	Removals   []Removal
	Changed    bool
	Skipped    bool // unchanged since the last journaled run
	InputHash  string
	OutputHash string
}

// Summary is the outcome of pruning a set of files.
type Summary struct {
	RunID        string
	Results      []*Result
	Seen         int
	Skipped      int
	Changed      int
	RemovalCount int
}

// PruneSource prunes src as lang (see syntax.LanguageForFile) and returns
// the printed output. src is not modified.
func (e *Engine) PruneSource(ctx context.Context, lang string, src []byte) (*Result, error) {
	pred := e.Predicate(ctx)

	var (
		out      []byte
		removals []Removal
		err      error
	)
	if lang == syntax.HTML {
		out, removals, err = e.pruneHTML(ctx, src, pred)
	} else {
		out, removals, err = e.pruneScript(ctx, lang, src, pred)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Language:   lang,
		Output:     out,
		Removals:   removals,
		Changed:    !bytes.Equal(out, src),
		InputHash:  store.ContentHash(src),
		OutputHash: store.ContentHash(out),
	}, nil
}

// pruneScript parses, prunes and prints one script. Nothing is returned
// unless the whole pass succeeded.
func (e *Engine) pruneScript(ctx context.Context, lang string, src []byte, pred Predicate) ([]byte, []Removal, error) {
	tree, err := syntax.Parse(ctx, src, lang)
	if err != nil {
		return nil, nil, fmt.Errorf("prune: %w", err)
	}

	removals, err := Prune(tree, pred, WithIdentifier(e.discriminator))
	if err != nil {
		return nil, nil, err
	}

	out := tree.Print()
	if e.verify && tree.Modified() {
		if _, err := syntax.Parse(ctx, out, lang); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrPrint, err)
		}
	}
	return out, removals, nil
}

// PruneFile prunes the file at in and writes the result to out, which may
// equal in. On any failure nothing is written.
func (e *Engine) PruneFile(ctx context.Context, in, out string) (*Result, error) {
	lang, ok := syntax.LanguageForFile(in)
	if !ok {
		return nil, fmt.Errorf("prune: unsupported file type: %s", in)
	}
	absIn, err := filepath.Abs(in)
	if err != nil {
		return nil, fmt.Errorf("prune: resolve %s: %w", in, err)
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return nil, fmt.Errorf("prune: resolve %s: %w", out, err)
	}

	run, err := e.beginRun()
	if err != nil {
		return nil, err
	}
	summary := &Summary{RunID: run}
	defer e.finishRun(summary)

	item, skip, err := e.prepareFile(absIn, lang, absIn == absOut)
	if err != nil {
		return nil, fmt.Errorf("prune: prepare %s: %w", in, err)
	}
	summary.Seen++
	if skip {
		summary.Skipped++
		return &Result{Path: absIn, Language: lang, Skipped: true}, nil
	}

	done, err := e.processItem(ctx, run, item)
	if err != nil {
		return nil, fmt.Errorf("prune: %s: %w", in, err)
	}
	if err := e.commitItem(item, done, absOut); err != nil {
		return nil, fmt.Errorf("prune: %s: %w", in, err)
	}
	summary.record(done.res)
	return done.res, nil
}

// PruneFiles prunes the given files in place. When WithParallel is enabled,
// uses a worker pool for parsing and pruning. Otherwise falls back to the
// serial path.
//
// For each file:
//  1. Detect language from extension; skip unsupported files
//  2. Skip files the journal shows as already pruned
//  3. Parse, prune and print
//  4. Write atomically and journal the removals
//
// If any file fails to parse, prune or print, no file is written and the
// first error is returned.
func (e *Engine) PruneFiles(ctx context.Context, paths []string) (*Summary, error) {
	run, err := e.beginRun()
	if err != nil {
		return nil, err
	}
	summary := &Summary{RunID: run}
	defer e.finishRun(summary)

	items, err := e.prepareFiles(paths, summary)
	if err != nil {
		return summary, err
	}
	if len(items) == 0 {
		return summary, nil
	}

	var results []processed
	if e.useParallel {
		results, err = e.processParallel(ctx, run, items)
	} else {
		results, err = e.processSerial(ctx, run, items)
	}
	if err != nil {
		return summary, err
	}

	var errs []error
	for i, item := range items {
		if err := e.commitItem(item, results[i], item.path); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", item.path, err))
			continue
		}
		summary.record(results[i].res)
	}
	if len(errs) > 0 {
		return summary, fmt.Errorf("prune: writing had %d error(s): %w", len(errs), errs[0])
	}
	return summary, nil
}

func (s *Summary) record(res *Result) {
	s.Results = append(s.Results, res)
	if res.Changed {
		s.Changed++
	}
	s.RemovalCount += len(res.Removals)
}

// workItem holds everything needed to prune one file.
type workItem struct {
	path    string
	lang    string
	content []byte
	hash    string
	journal bool // record the file and its removals on commit
}

// processed is a pruned item ready to commit. batch holds its journal
// entries and is nil when the item is not journaled.
type processed struct {
	res   *Result
	batch *store.BatchedStore
}

func (e *Engine) prepareFiles(paths []string, summary *Summary) ([]workItem, error) {
	var items []workItem
	for _, path := range paths {
		lang, ok := syntax.LanguageForFile(path)
		if !ok {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("prune: resolve %s: %w", path, err)
		}
		item, skip, err := e.prepareFile(abs, lang, true)
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Printf("skip %s: file no longer exists", abs)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("prune: prepare %s: %w", path, err)
		}
		summary.Seen++
		if skip {
			summary.Skipped++
			e.logger.Printf("skip %s: unchanged since last run", abs)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// prepareFile reads the file and checks the journal. skip=true means the
// file's content is exactly what the last run under the same configuration
// wrote.
func (e *Engine) prepareFile(path, lang string, inPlace bool) (workItem, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	item := workItem{
		path:    path,
		lang:    lang,
		content: content,
		hash:    store.ContentHash(content),
		journal: e.store != nil && inPlace && !e.dryRun,
	}

	if e.store == nil || e.force || !inPlace {
		return item, false, nil
	}
	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.OutputHash == item.hash && existing.ConfigHash == e.configHash {
		return item, true, nil
	}
	return item, false, nil
}

// processItem is the pure part of the pipeline: no file or journal writes.
// Journal entries are buffered in a BatchedStore for the commit phase.
func (e *Engine) processItem(ctx context.Context, runID string, item workItem) (processed, error) {
	if err := ctx.Err(); err != nil {
		return processed{}, err
	}
	res, err := e.PruneSource(ctx, item.lang, item.content)
	if err != nil {
		return processed{}, err
	}
	res.Path = item.path
	for _, r := range res.Removals {
		e.logger.Printf("removing %q from %s:%d:%d", r.Identifier, item.path, r.Start.Row, r.Start.Column)
	}
	if !item.journal {
		return processed{res: res}, nil
	}

	batch := store.NewBatchedStore(store.File{
		Path:       item.path,
		Language:   item.lang,
		InputHash:  res.InputHash,
		OutputHash: res.OutputHash,
		ConfigHash: e.configHash,
		LastRunID:  runID,
		LastPruned: time.Now(),
	})
	if err := recordRemovals(batch, runID, res.Removals); err != nil {
		return processed{}, err
	}
	return processed{res: res, batch: batch}, nil
}

func (e *Engine) processSerial(ctx context.Context, runID string, items []workItem) ([]processed, error) {
	results := make([]processed, len(items))
	for i, item := range items {
		done, err := e.processItem(ctx, runID, item)
		if err != nil {
			return nil, fmt.Errorf("prune: %s: %w", item.path, err)
		}
		results[i] = done
	}
	return results, nil
}

// commitItem writes the output and flushes the item's journal batch. Dry
// runs do neither; only their run row is journaled.
func (e *Engine) commitItem(item workItem, done processed, out string) error {
	if e.dryRun {
		return nil
	}
	if done.res.Changed || out != item.path {
		if err := writeFileAtomic(out, done.res.Output, item.path); err != nil {
			return err
		}
	}
	if done.batch == nil {
		return nil
	}
	return e.store.CommitBatch(done.batch)
}

// recordRemovals converts removals to journal rows and hands them to sink.
func recordRemovals(sink store.RemovalSink, runID string, removals []Removal) error {
	for _, r := range removals {
		if _, err := sink.InsertRemoval(&store.Removal{
			RunID:         runID,
			Identifier:    r.Identifier,
			OriginalIndex: r.OriginalIndex,
			ParentKind:    r.ParentKind,
			ParentStart:   int(r.ParentStart),
			StartLine:     r.Start.Row,
			StartCol:      r.Start.Column,
			EndLine:       r.End.Row,
			EndCol:        r.End.Column,
		}); err != nil {
			return fmt.Errorf("record removal %q: %w", r.Identifier, err)
		}
	}
	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partial file. The mode is taken
// from modeFrom when it exists.
func writeFileAtomic(path string, data []byte, modeFrom string) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(modeFrom); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".prune-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// beginRun records a new run in the journal and returns its ID.
func (e *Engine) beginRun() (string, error) {
	id := uuid.NewString()
	if e.store == nil {
		return id, nil
	}
	err := e.store.InsertRun(&store.Run{
		ID:            id,
		StartedAt:     time.Now(),
		ConfigHash:    e.configHash,
		Discriminator: e.discriminator,
		RemoveSet:     e.removeSet.Values(),
		DryRun:        e.dryRun,
	})
	if err != nil {
		return "", fmt.Errorf("prune: begin run: %w", err)
	}
	return id, nil
}

func (e *Engine) finishRun(s *Summary) {
	if e.store == nil {
		return
	}
	if err := e.store.FinishRun(s.RunID, time.Now(), s.Seen, s.Changed, s.RemovalCount); err != nil {
		e.logger.Printf("WARN: finish run %s: %v", s.RunID, err)
	}
	if e.dryRun {
		return
	}
	if err := e.store.SetMetadata(configHashKey, e.configHash); err != nil {
		e.logger.Printf("WARN: record config hash: %v", err)
	}
}

// configHashKey is the journal metadata key holding the configuration hash
// of the last real run.
const configHashKey = "config_hash"

// skipDirs lists directories that are never searched for sources.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// PruneDirectory prunes every supported file under root in place. If root
// is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to a filesystem walk (skipping hidden dirs, node_modules and
// vendor) if git is unavailable.
func (e *Engine) PruneDirectory(ctx context.Context, root string) (*Summary, error) {
	paths, err := ListSources(root)
	if err != nil {
		return nil, err
	}
	return e.PruneFiles(ctx, paths)
}

// ListSources returns the supported source files under root, the same set
// PruneDirectory prunes.
func ListSources(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("prune: resolve %s: %w", root, err)
	}
	paths, err := gitListFiles(abs)
	if err != nil {
		return walkListFiles(abs)
	}
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := syntax.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := syntax.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
