package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Enumerator:
// - Finds .py files at every nesting depth with an empty exclusion name
// - Ignores files with other extensions
// - Returns an empty (non-nil) list for a tree without source files
// - Excludes every path containing the exclusion name as a substring
// - Skips hidden files and directories unless IncludeHidden is set
// - Prunes directories matching ignore globs
// - Sequence is restartable: two iterations yield the same files
// - Early break stops the walk without yielding an error
// - Missing root surfaces as an error through the sequence
// - Invalid glob pattern is rejected at construction

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("import os\n"), 0644))
	}
}

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	sort.Strings(out)
	return out
}

func TestEnumerator_FindsFilesAtAnyDepth(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root,
		"main.py",
		"pkg/__init__.py",
		"pkg/sub/deep/module.py",
		"README.md",
		"pkg/data.json",
		"scripts/run.pyc",
	)

	e, err := NewEnumerator(root, Options{})
	require.NoError(t, err)

	files, err := Collect(e.Files())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"main.py",
		"pkg/__init__.py",
		"pkg/sub/deep/module.py",
	}, relAll(t, root, files))
}

func TestEnumerator_EmptyTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "notes.txt")

	e, err := NewEnumerator(root, Options{})
	require.NoError(t, err)

	files, err := Collect(e.Files())
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestEnumerator_ExcludesSubstringMatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root,
		"app.py",
		"venv/lib/python3.12/site-packages/requests/__init__.py",
		"tools/venv_helper.py",
		"src/core.py",
	)

	e, err := NewEnumerator(root, Options{Exclude: "venv"})
	require.NoError(t, err)

	files, err := Collect(e.Files())
	require.NoError(t, err)

	// Substring semantics: tools/venv_helper.py is dropped too
	assert.Equal(t, []string{"app.py", "src/core.py"}, relAll(t, root, files))
}

func TestEnumerator_HiddenEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root,
		"visible.py",
		".hidden.py",
		".tox/py312/lib/site.py",
	)

	t.Run("skipped by default", func(t *testing.T) {
		t.Parallel()
		e, err := NewEnumerator(root, Options{})
		require.NoError(t, err)
		files, err := Collect(e.Files())
		require.NoError(t, err)
		assert.Equal(t, []string{"visible.py"}, relAll(t, root, files))
	})

	t.Run("included on request", func(t *testing.T) {
		t.Parallel()
		e, err := NewEnumerator(root, Options{IncludeHidden: true})
		require.NoError(t, err)
		files, err := Collect(e.Files())
		require.NoError(t, err)
		assert.Equal(t, []string{".hidden.py", ".tox/py312/lib/site.py", "visible.py"}, relAll(t, root, files))
	})
}

func TestEnumerator_IgnorePatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root,
		"keep.py",
		"build/lib/generated.py",
		"docs/conf.py",
		"tests/test_keep.py",
	)

	e, err := NewEnumerator(root, Options{Ignore: []string{"build/**", "docs/conf.py"}})
	require.NoError(t, err)

	files, err := Collect(e.Files())
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.py", "tests/test_keep.py"}, relAll(t, root, files))
}

func TestEnumerator_CustomExtension(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.py", "stubs/a.pyi")

	e, err := NewEnumerator(root, Options{Extension: ".pyi"})
	require.NoError(t, err)

	files, err := Collect(e.Files())
	require.NoError(t, err)
	assert.Equal(t, []string{"stubs/a.pyi"}, relAll(t, root, files))
}

func TestEnumerator_Restartable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.py", "b/c.py")

	e, err := NewEnumerator(root, Options{})
	require.NoError(t, err)

	seq := e.Files()
	first, err := Collect(seq)
	require.NoError(t, err)
	second, err := Collect(seq)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestEnumerator_EarlyBreak(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.py", "b.py", "c.py")

	e, err := NewEnumerator(root, Options{})
	require.NoError(t, err)

	count := 0
	for _, err := range e.Files() {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestEnumerator_MissingRoot(t *testing.T) {
	t.Parallel()

	e, err := NewEnumerator(filepath.Join(t.TempDir(), "missing"), Options{})
	require.NoError(t, err)

	_, err = Collect(e.Files())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewEnumerator_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewEnumerator(t.TempDir(), Options{Ignore: []string{"[unclosed"}})
	assert.Error(t, err)
}
