package main_test

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureMenu = `const items = [
  { text: 'About', tandem: tandem.createTandem( 'aboutMenuItem' ) },
  { text: 'Help', tandem: tandem.createTandem( 'helpMenuItem' ) }
];
`

const fixtureMenuPruned = `const items = [
  { text: 'Help', tandem: tandem.createTandem( 'helpMenuItem' ) }
];
`

// buildBinary compiles the prune binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "prune"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "prune")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the project by walking up from the test
// file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture creates a temporary repo with a .git dir, a prune.toml and
// one menu source. Returns the directory.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "js", "menu.js"), []byte(fixtureMenu), 0o644))
	toml := "[prune]\nremove = [\"aboutMenuItem\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prune.toml"), []byte(toml), 0o644))
	return dir
}

func runBinary(t *testing.T, bin, dir string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	return cmd.Output()
}

func TestCLI_RunCheckHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	bin := buildBinary(t)
	dir := createFixture(t)
	menu := filepath.Join(dir, "js", "menu.js")

	// check reports pending removals and writes nothing.
	out, err := runBinary(t, bin, dir, "check", "--format", "json")
	require.Error(t, err, "check exits non-zero when removals are pending")
	var check struct {
		Command string `json:"command"`
		Results struct {
			DryRun       bool `json:"dry_run"`
			RemovalCount int  `json:"removal_count"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &check), string(out))
	assert.Equal(t, "check", check.Command)
	assert.True(t, check.Results.DryRun)
	assert.Equal(t, 1, check.Results.RemovalCount)
	data, err := os.ReadFile(menu)
	require.NoError(t, err)
	assert.Equal(t, fixtureMenu, string(data))

	// run prunes in place and journals.
	out, err = runBinary(t, bin, dir, "run")
	require.NoError(t, err)
	assert.Contains(t, string(out), "removed aboutMenuItem")
	data, err = os.ReadFile(menu)
	require.NoError(t, err)
	assert.Equal(t, fixtureMenuPruned, string(data))

	dbPath := filepath.Join(dir, ".prune", "journal.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM removals").Scan(&n))
	assert.Equal(t, 1, n)

	// A second run skips the already pruned file.
	out, err = runBinary(t, bin, dir, "run", "--format", "json")
	require.NoError(t, err)
	var second struct {
		Results struct {
			FilesSkipped int `json:"files_skipped"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &second))
	assert.Equal(t, 1, second.Results.FilesSkipped)

	// check is clean now.
	_, err = runBinary(t, bin, dir, "check")
	assert.NoError(t, err)

	out, err = runBinary(t, bin, dir, "history", "summary", "--format", "json")
	require.NoError(t, err)
	var summary struct {
		Results []struct {
			Identifier string `json:"identifier"`
			Count      int    `json:"count"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &summary))
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "aboutMenuItem", summary.Results[0].Identifier)

	out, err = runBinary(t, bin, dir, "history", "file", menu)
	require.NoError(t, err)
	assert.Contains(t, string(out), menu+":2:3: aboutMenuItem")
}

func TestCLI_OutFlagAndFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	bin := buildBinary(t)
	dir := createFixture(t)
	menu := filepath.Join(dir, "js", "menu.js")
	out := filepath.Join(dir, "out.js")

	_, err := runBinary(t, bin, dir, "run", "--no-journal", "-o", out, menu)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, fixtureMenuPruned, string(data))

	bad := filepath.Join(dir, "js", "bad.js")
	src := "const lone = {tandem: t('aboutMenuItem')};\n"
	require.NoError(t, os.WriteFile(bad, []byte(src), 0o644))

	_, err = runBinary(t, bin, dir, "run", "--no-journal")
	require.Error(t, err)
	data, err = os.ReadFile(menu)
	require.NoError(t, err)
	assert.Equal(t, fixtureMenu, string(data), "no file written when one fails")
}

func TestCLI_InvalidFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	bin := buildBinary(t)
	_, err := runBinary(t, bin, t.TempDir(), "run", "--format", "yaml")
	assert.Error(t, err)
}
