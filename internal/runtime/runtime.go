// Package runtime embeds a Risor VM that evaluates predicate scripts. A
// predicate script decides whether a candidate entry, identified by the
// value of its discriminator call, should be removed.
package runtime

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
)

// Runtime loads predicate scripts and evaluates them against candidates.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *log.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the scripts' log.info/warn/error calls to l.
func WithLogger(l *log.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRuntime creates a Runtime that resolves relative script paths and
// imports against scriptsDir.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidate describes one object literal whose discriminator call carries a
// string identifier. It is exposed to scripts as plain globals.
type Candidate struct {
	ID            string
	Discriminator string
	Kind          string
	Text          string
	Line          int
	Column        int
	RemoveSet     []string
}

// Script is a loaded predicate script.
type Script struct {
	rt     *Runtime
	label  string
	source string
}

// Load reads the script at path and checks that it evaluates against an
// empty candidate, so syntax errors surface before any file is touched.
func (r *Runtime) Load(ctx context.Context, path string) (*Script, error) {
	src, err := r.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return r.compile(ctx, src, path)
}

// LoadSource wraps inline Risor source as a Script. Useful for testing
// without script files.
func (r *Runtime) LoadSource(ctx context.Context, source string) (*Script, error) {
	return r.compile(ctx, source, "<inline>")
}

func (r *Runtime) compile(ctx context.Context, source, label string) (*Script, error) {
	s := &Script{rt: r, label: label, source: source}
	if _, err := s.Decide(ctx, Candidate{}); err != nil {
		return nil, err
	}
	return s, nil
}

// Label returns the script path, or "<inline>".
func (s *Script) Label() string {
	return s.label
}

// Decide evaluates the script for c and reports the truthiness of its final
// expression.
func (s *Script) Decide(ctx context.Context, c Candidate) (bool, error) {
	result, err := s.rt.eval(ctx, s.source, s.label, candidateGlobals(c))
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}
	return result.IsTruthy(), nil
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on that filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log":    mustProxy(&logObject{logger: r.logger}),
		"member": makeMemberFn(),
		"glob":   makeGlobFn(),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func candidateGlobals(c Candidate) map[string]any {
	set := make([]object.Object, 0, len(c.RemoveSet))
	for _, v := range c.RemoveSet {
		set = append(set, object.NewString(v))
	}
	return map[string]any{
		"id":            object.NewString(c.ID),
		"discriminator": object.NewString(c.Discriminator),
		"kind":          object.NewString(c.Kind),
		"text":          object.NewString(c.Text),
		"line":          object.NewInt(int64(c.Line)),
		"column":        object.NewInt(int64(c.Column)),
		"remove_set":    object.NewList(set),
	}
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
