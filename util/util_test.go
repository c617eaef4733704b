// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a", "c.PDF"))
	touch(t, filepath.Join(root, "a", "notes.txt"))
	touch(t, filepath.Join(root, "a", "b", "d.pdf"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.pdf"), 0755))

	got, err := FindFiles(root, ".pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "b", "d.pdf"),
		filepath.Join(root, "a", "c.PDF"),
		filepath.Join(root, "b.pdf"),
	}, got)

	none, err := FindFiles(root, ".docx")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = FindFiles(filepath.Join(root, "missing"), ".pdf")
	assert.Error(t, err)
}

func TestRelPath(t *testing.T) {
	root := filepath.Join("tmp", "in")
	rel, err := RelPath(root, filepath.Join(root, "a", "b", "x.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "a/b/x.pdf", rel)
}

func TestFindDirUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "doc"), 0755))
	start := filepath.Join(root, "one", "two", "three")
	require.NoError(t, os.MkdirAll(start, 0755))

	found, err := FindDirUpward(start, "doc", 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "doc"), found)

	_, err = FindDirUpward(start, "doc", 3)
	assert.Error(t, err, "doc is four levels up")
}

func TestBundle(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "out")
	touch(t, filepath.Join(src, "a", "x.pdf"))

	dest := filepath.Join(root, "bundle", "out.tar.gz")
	require.NoError(t, Bundle(src, dest))
	assert.FileExists(t, dest)

	// A second bundle replaces the first.
	require.NoError(t, Bundle(src, dest))
	assert.FileExists(t, dest)
}
