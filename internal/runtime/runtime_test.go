package runtime

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string) Candidate {
	return Candidate{
		ID:            id,
		Discriminator: "tandem",
		Kind:          "object",
		Text:          "{ tandem: t('" + id + "') }",
		Line:          3,
		Column:        2,
		RemoveSet:     []string{"aboutMenuItem", "screenshotMenuItem"},
	}
}

// --- Decide tests ---

func TestDecide_MemberOfRemoveSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := NewRuntime("")
	s, err := rt.LoadSource(ctx, `member(id, remove_set)`)
	require.NoError(t, err)
	assert.Equal(t, "<inline>", s.Label())

	ok, err := s.Decide(ctx, candidate("aboutMenuItem"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Decide(ctx, candidate("helpMenuItem"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecide_GlobPattern(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := NewRuntime("")
	s, err := rt.LoadSource(ctx, `glob("*MenuItem", id) && id != "aboutMenuItem"`)
	require.NoError(t, err)

	tests := map[string]bool{
		"fullScreenMenuItem": true,
		"aboutMenuItem":      false,
		"resetAllButton":     false,
	}
	for id, want := range tests {
		got, err := s.Decide(ctx, candidate(id))
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}
}

func TestDecide_CandidateGlobals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := NewRuntime("")
	s, err := rt.LoadSource(ctx, `
ok := discriminator == "tandem" && kind == "object" && line == 3 && column == 2
id == "" || (ok && len(remove_set) == 2 && len(text) > 0)
`)
	require.NoError(t, err)

	ok, err := s.Decide(ctx, candidate("aboutMenuItem"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadSource_SyntaxError(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	_, err := rt.LoadSource(context.Background(), `member(id, `)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<inline>")
}

func TestDecide_HostFunctionArgErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rt := NewRuntime("")

	_, err := rt.LoadSource(ctx, `member(id)`)
	assert.Error(t, err)

	_, err = rt.LoadSource(ctx, `member(id, "not a list")`)
	assert.Error(t, err)

	_, err = rt.LoadSource(ctx, `glob("[", "x")`)
	assert.Error(t, err)
}

func TestLog_RoutedToLogger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var buf bytes.Buffer
	rt := NewRuntime("", WithLogger(log.New(&buf, "", 0)))
	s, err := rt.LoadSource(ctx, `log.Info("saw " + id)
false`)
	require.NoError(t, err)

	_, err = s.Decide(ctx, candidate("aboutMenuItem"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "script INFO: saw aboutMenuItem")
}

// --- Script loading tests ---

func TestLoad_FromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop.risor"), []byte(`id == "aboutMenuItem"`), 0o644))

	rt := NewRuntime(dir)
	s, err := rt.Load(context.Background(), "drop.risor")
	require.NoError(t, err)
	assert.Equal(t, "drop.risor", s.Label())

	ok, err := s.Decide(context.Background(), candidate("aboutMenuItem"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadScript_AbsolutePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rt := NewRuntime("/elsewhere")
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_Missing(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(t.TempDir())
	_, err := rt.LoadScript("nope.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading script")
}

// --- fs.FS-based script loading tests ---

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"predicates/menu.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("predicates/menu.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"predicates/menu.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/predicates/menu.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "menus" by trying name + ".risor",
	// so the file must be at the flat path "menus.risor" in the FS.
	mapFS := fstest.MapFS{
		"menus.risor": &fstest.MapFile{Data: []byte(`
func online_only(name) {
	return name == "screenshotMenuItem" || name == "aboutMenuItem"
}
`)},
		"main.risor": &fstest.MapFile{Data: []byte(`
import menus

menus.online_only(id)
`)},
	}

	ctx := context.Background()
	rt := NewRuntime("", WithRuntimeFS(mapFS))
	s, err := rt.Load(ctx, "main.risor")
	require.NoError(t, err)

	ok, err := s.Decide(ctx, candidate("screenshotMenuItem"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "menus.risor"), []byte(`
func prefixed(name) {
	return glob("phet*", name)
}
`), 0o644))

	ctx := context.Background()
	rt := NewRuntime(dir)
	s, err := rt.LoadSource(ctx, `
import menus
menus.prefixed(id)
`)
	require.NoError(t, err)

	ok, err := s.Decide(ctx, candidate("phetWebsiteButton"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.NotNil(t, rt.logger)
}
