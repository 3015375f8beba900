// Package config loads prune.toml, the optional per-project configuration
// file. It is discovered by walking up from a start directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Find.
const FileName = "prune.toml"

// DefaultDiscriminator is the property that marks removal candidates.
const DefaultDiscriminator = "tandem"

// DefaultRemoveSet is the list of menu entries that reach online resources.
// The duplicate is harmless: membership is evaluated as a set.
var DefaultRemoveSet = []string{
	"screenshotMenuItem",
	"fullScreenMenuItem",
	"screenshotMenuItem",
	"aboutMenuItem",
}

// Config is the decoded prune.toml.
type Config struct {
	// Path is the file the configuration was read from; empty for defaults.
	Path string `toml:"-"`

	Prune   PruneConfig   `toml:"prune"`
	Journal JournalConfig `toml:"journal"`
	Run     RunConfig     `toml:"run"`
}

type PruneConfig struct {
	Discriminator string   `toml:"discriminator"`
	Remove        []string `toml:"remove"`
	Script        string   `toml:"script"`
}

type JournalConfig struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

type RunConfig struct {
	Workers int  `toml:"workers"`
	Serial  bool `toml:"serial"`
}

// Default returns the configuration used when no prune.toml exists.
func Default() Config {
	remove := make([]string, len(DefaultRemoveSet))
	copy(remove, DefaultRemoveSet)
	return Config{
		Prune: PruneConfig{
			Discriminator: DefaultDiscriminator,
			Remove:        remove,
		},
	}
}

// Find walks up from startDir looking for prune.toml. It reports the path
// and whether one was found.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("config: resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("config: stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes the file at path over the defaults. Relative script and
// journal paths are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.Prune.Discriminator == "" {
		return Config{}, fmt.Errorf("config: %s: prune.discriminator must not be empty", path)
	}
	if cfg.Run.Workers < 0 {
		return Config{}, fmt.Errorf("config: %s: run.workers must be non-negative", path)
	}

	base := filepath.Dir(path)
	if cfg.Prune.Script != "" && !filepath.IsAbs(cfg.Prune.Script) {
		cfg.Prune.Script = filepath.Join(base, cfg.Prune.Script)
	}
	if cfg.Journal.Path != "" && !filepath.IsAbs(cfg.Journal.Path) {
		cfg.Journal.Path = filepath.Join(base, cfg.Journal.Path)
	}
	cfg.Path = path
	return cfg, nil
}

// Discover finds and loads prune.toml starting at startDir, falling back to
// Default when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}
