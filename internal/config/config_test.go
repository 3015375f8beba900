package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, "tandem", cfg.Prune.Discriminator)
	assert.Equal(t, DefaultRemoveSet, cfg.Prune.Remove)

	// Callers may mutate the returned slice without touching the package default.
	cfg.Prune.Remove[0] = "changed"
	assert.Equal(t, "screenshotMenuItem", DefaultRemoveSet[0])
}

func TestFind_WalksUp(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	want := writeConfig(t, root, "")
	deep := filepath.Join(root, "sims", "build")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	got, ok, err := Find(deep)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestDiscover_NoFileFallsBackToDefault(t *testing.T) {
	t.Parallel()
	// TempDir has no prune.toml anywhere in its ancestry
	// (unless /tmp itself carries one, which would be unusual).
	cfg, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, DefaultDiscriminator, cfg.Prune.Discriminator)
}

func TestLoad_OverridesAndResolvesPaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[prune]
discriminator = "phetioID"
remove = ["aboutMenuItem"]
script = "predicates/online.risor"

[journal]
path = ".prune/journal.db"

[run]
workers = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "phetioID", cfg.Prune.Discriminator)
	assert.Equal(t, []string{"aboutMenuItem"}, cfg.Prune.Remove)
	assert.Equal(t, filepath.Join(dir, "predicates", "online.risor"), cfg.Prune.Script)
	assert.Equal(t, filepath.Join(dir, ".prune", "journal.db"), cfg.Journal.Path)
	assert.Equal(t, 3, cfg.Run.Workers)
	assert.False(t, cfg.Run.Serial)
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, t.TempDir(), "[journal]\ndisabled = true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Journal.Disabled)
	assert.Equal(t, DefaultDiscriminator, cfg.Prune.Discriminator)
	assert.Equal(t, DefaultRemoveSet, cfg.Prune.Remove)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad toml":         "[prune\n",
		"unknown key":      "[prune]\nremvoe = [\"x\"]\n",
		"empty discrim":    "[prune]\ndiscriminator = \"\"\n",
		"negative workers": "[run]\nworkers = -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, t.TempDir(), content))
			assert.Error(t, err)
		})
	}
}
