package syntax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuSource = `// menu items
const items = [
  { label: 'About', tandem: tandem.createTandem( 'aboutMenuItem' ) },
  /* keep */ { label: 'Help' },
  { label: 'Shot', tandem: tandem.createTandem( "screenshotMenuItem" ) }
];
`

func parseJS(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), []byte(src), JavaScript)
	require.NoError(t, err)
	return tree
}

// findKind returns the first node of the given kind in pre-order.
func findKind(n *Node, kind string) *Node {
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if found := findKind(c, kind); found != nil {
			return found
		}
	}
	return nil
}

// --- Language detection tests ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"app.js", JavaScript, true},
		{"app.jsx", JavaScript, true},
		{"mod.mjs", JavaScript, true},
		{"mod.cjs", JavaScript, true},
		{"app.ts", TypeScript, true},
		{"app.tsx", TSX, true},
		{"sim.html", HTML, true},
		{"sim.HTM", HTML, true},
		{"main.go", "", false},
		{"README", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrammarForLanguage(t *testing.T) {
	t.Parallel()
	for _, lang := range []string{JavaScript, TypeScript, TSX} {
		g, ok := GrammarForLanguage(lang)
		assert.True(t, ok, lang)
		assert.NotNil(t, g, lang)
	}
	_, ok := GrammarForLanguage(HTML)
	assert.False(t, ok)
}

// --- Parse tests ---

func TestParse_RootIsProgram(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, menuSource)
	assert.Equal(t, "program", tree.Root.Kind)
	assert.Nil(t, tree.Root.Parent)
	assert.Same(t, tree, tree.Root.Tree())
}

func TestParse_ArrayElementsIndexed(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, menuSource)

	arr := findKind(tree.Root, "array")
	require.NotNil(t, arr)

	elems := arr.Elements()
	require.Len(t, elems, 3)
	for i, e := range elems {
		assert.Equal(t, "object", e.Kind)
		assert.Equal(t, i, e.Index)
		assert.Same(t, arr, e.Parent)
	}
}

func TestParse_FieldsAndText(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, `f({ tandem: t('x') });`)

	pair := findKind(tree.Root, "pair")
	require.NotNil(t, pair)
	assert.Equal(t, "tandem", pair.Child("key").Text())
	value := pair.Child("value")
	require.NotNil(t, value)
	assert.Equal(t, "call_expression", value.Kind)
	assert.Equal(t, "t('x')", value.Text())
	assert.Nil(t, pair.Child("nope"))
}

func TestParse_SyntaxErrorReturnsParseError(t *testing.T) {
	t.Parallel()
	_, err := Parse(context.Background(), []byte("const x = [1, 2;\n"), JavaScript)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, JavaScript, pe.Language)
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, err := Parse(context.Background(), []byte("<p></p>"), HTML)
	assert.Error(t, err)
}

// --- Print and splice tests ---

func TestPrint_UnmodifiedRoundTrip(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, menuSource)
	assert.False(t, tree.Modified())
	assert.Equal(t, menuSource, string(tree.Print()))
}

func TestSplice_MiddleElement(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, "x = [a, b, c];")
	arr := findKind(tree.Root, "array")

	idx, err := tree.Splice(arr.Elements()[1])
	require.NoError(t, err)
	assert.Equal(t, 3, idx) // "[" a "," b
	assert.Len(t, arr.Elements(), 2)
	assert.Equal(t, "x = [a, c];", string(tree.Print()))
}

func TestSplice_LastElement(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, "x = [a, b, c];")
	arr := findKind(tree.Root, "array")

	_, err := tree.Splice(arr.Elements()[2])
	require.NoError(t, err)
	assert.Equal(t, "x = [a, b];", string(tree.Print()))
}

func TestSplice_TrailingComma(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, "x = [\n  a,\n  b,\n];")
	arr := findKind(tree.Root, "array")

	_, err := tree.Splice(arr.Elements()[1])
	require.NoError(t, err)
	assert.Equal(t, "x = [\n  a,\n];", string(tree.Print()))
}

func TestSplice_AllElements(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, "x = [a, b];")
	arr := findKind(tree.Root, "array")

	elems := arr.Elements()
	_, err := tree.Splice(elems[1])
	require.NoError(t, err)
	_, err = tree.Splice(elems[0])
	require.NoError(t, err)

	assert.Empty(t, arr.Elements())
	assert.Equal(t, "x = [];", string(tree.Print()))
}

func TestSplice_SoleElementWithComma(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, "x = [a,];")
	arr := findKind(tree.Root, "array")

	_, err := tree.Splice(arr.Elements()[0])
	require.NoError(t, err)
	assert.Equal(t, "x = [];", string(tree.Print()))
}

func TestSplice_PreservesComments(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, menuSource)
	arr := findKind(tree.Root, "array")

	_, err := tree.Splice(arr.Elements()[0])
	require.NoError(t, err)

	want := `// menu items
const items = [
  /* keep */ { label: 'Help' },
  { label: 'Shot', tandem: tandem.createTandem( "screenshotMenuItem" ) }
];
`
	assert.Equal(t, want, string(tree.Print()))
}

func TestSplice_DetachedNode(t *testing.T) {
	t.Parallel()
	tree := parseJS(t, "x = [a, b];")
	arr := findKind(tree.Root, "array")
	a := arr.Elements()[0]

	_, err := tree.Splice(a)
	require.NoError(t, err)
	_, err = tree.Splice(a)
	assert.ErrorIs(t, err, ErrDetached)
}

func TestSplice_ForeignTree(t *testing.T) {
	t.Parallel()
	one := parseJS(t, "x = [a];")
	two := parseJS(t, "y = [b];")

	_, err := one.Splice(findKind(two.Root, "array").Elements()[0])
	assert.Error(t, err)
}

func TestCuts_Merged(t *testing.T) {
	t.Parallel()
	tree := &Tree{Source: []byte("0123456789")}
	tree.cuts = []Span{{6, 8}, {1, 3}, {2, 5}, {8, 9}}

	assert.Equal(t, []Span{{1, 5}, {6, 9}}, tree.Cuts())
	assert.Equal(t, "059", string(tree.Print()))
}

// --- String literal tests ---

func TestStringValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
		ok   bool
	}{
		{`f('aboutMenuItem')`, "aboutMenuItem", true},
		{`f("double")`, "double", true},
		{`f('it\'s')`, "it's", true},
		{`f("tab\there")`, "tab\there", true},
		{`f('A\x42\u{43}')`, "ABC", true},
		{`f('')`, "", true},
		{"f(`template`)", "", false},
		{`f(42)`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			tree := parseJS(t, tt.src)
			args := findKind(tree.Root, "arguments")
			require.NotNil(t, args)
			require.NotEmpty(t, args.Elements())
			got, ok := args.Elements()[0].StringValue()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringValue_NilNode(t *testing.T) {
	t.Parallel()
	var n *Node
	_, ok := n.StringValue()
	assert.False(t, ok)
}
