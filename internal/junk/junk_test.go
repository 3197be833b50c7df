package junk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/mutir/internal/ir"
	"github.com/sivchari/mutir/internal/mutate"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func pointAt(kind mutate.Kind, path string, line, column int) *mutate.Point {
	return &mutate.Point{
		Operator: kind,
		Loc:      &ir.SourceLocation{Path: path, Line: line, Column: column},
	}
}

func TestIsJunk_NilLocIsAlwaysJunk(t *testing.T) {
	d := New(nil, "")

	isJunk, err := d.IsJunk(&mutate.Point{Operator: mutate.MathAdd})
	require.NoError(t, err)
	assert.True(t, isJunk)
}

func TestIsJunk_RealAddOperatorIsNotJunk(t *testing.T) {
	path := writeSource(t, "add.c", "int add(int a, int b) {\n    return a + b;\n}\n")
	d := New(nil, "")

	isJunk, err := d.IsJunk(pointAt(mutate.MathAdd, path, 2, 14))
	require.NoError(t, err)
	assert.False(t, isJunk)
}

func TestIsJunk_LocationWithoutMatchingConstructIsJunk(t *testing.T) {
	path := writeSource(t, "add.c", "int add(int a, int b) {\n    return a + b;\n}\n")
	d := New(nil, "")

	isJunk, err := d.IsJunk(pointAt(mutate.MathAdd, path, 1, 5))
	require.NoError(t, err)
	assert.True(t, isJunk)
}

func TestIsJunk_RealRelationalOperatorIsNotJunk(t *testing.T) {
	path := writeSource(t, "cmp.c", "int cmp(int a, int b) {\n    if (a < b) return 1;\n    return 0;\n}\n")
	d := New(nil, "")

	isJunk, err := d.IsJunk(pointAt(mutate.ConditionalsBoundary, path, 2, 11))
	require.NoError(t, err)
	assert.False(t, isJunk)
}

func TestIsJunk_UnreadableSourceReturnsError(t *testing.T) {
	d := New(nil, "")

	isJunk, err := d.IsJunk(pointAt(mutate.MathAdd, filepath.Join(t.TempDir(), "missing.c"), 1, 1))
	require.Error(t, err)
	assert.False(t, isJunk)

	var jerr *Error
	require.ErrorAs(t, err, &jerr)
}

func TestIsJunk_CachesParsedTreeAcrossCalls(t *testing.T) {
	path := writeSource(t, "add.c", "int add(int a, int b) {\n    return a + b;\n}\n")
	d := New(nil, "")

	_, err := d.IsJunk(pointAt(mutate.MathAdd, path, 2, 14))
	require.NoError(t, err)

	first := d.trees[path]
	require.NotNil(t, first)

	_, err = d.IsJunk(pointAt(mutate.MathAdd, path, 2, 14))
	require.NoError(t, err)

	assert.Same(t, first, d.trees[path])
}

func TestLoadCompilationDatabase_ResolvesFlags(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "add.c")
	require.NoError(t, os.WriteFile(srcPath, []byte("int x;\n"), 0o644))

	compdbJSON := `[{"directory": "` + dir + `", "file": "add.c", "arguments": ["cc", "-x", "c++"]}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compile_commands.json"), []byte(compdbJSON), 0o644))

	db, err := LoadCompilationDatabase(dir)
	require.NoError(t, err)

	flags, ok := db.FlagsFor(srcPath)
	require.True(t, ok)
	assert.Equal(t, []string{"cc", "-x", "c++"}, flags)
}
