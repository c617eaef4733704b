// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/nifredact/pdf/pdftest"
)

func TestExtractText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	pdftest.Write(t, path, pdftest.Page{"hello 00000001R"}, pdftest.Page{"second page"})

	pages, err := ExtractText(path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "00000001R")
	assert.Contains(t, pages[1], "second")
}

func TestExtractText_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ExtractText(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	corrupt := filepath.Join(dir, "corrupt.pdf")
	pdftest.WriteCorrupt(t, corrupt)
	_, err = ExtractText(corrupt)
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	pdftest.Write(t, path,
		pdftest.Page{"clean text", "bad 12345678A"},
		pdftest.Page{"leak X1234567L and 00000001R"},
	)

	v := New(hclog.NewNullLogger(), nil, nil)
	found, err := v.File(path)
	require.NoError(t, err)

	assert.Equal(t, []Residual{
		{Path: path, Page: 2, Value: "00000001R"},
		{Path: path, Page: 2, Value: "X1234567L"},
	}, found)
}

func TestFile_Template(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	pdftest.WriteWithOptions(t, path,
		pdftest.Options{Template: pdftest.Page{"Titular: Z7654321H"}},
		pdftest.Page{"Cuerpo sin datos"},
	)

	pages, err := ExtractText(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0], "Cuerpo")
	assert.Contains(t, pages[0], "Z7654321H")

	found, err := New(hclog.NewNullLogger(), nil, nil).File(path)
	require.NoError(t, err)
	assert.Equal(t, []Residual{{Path: path, Page: 1, Value: "Z7654321H"}}, found)
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	pdftest.Write(t, filepath.Join(root, "b", "leak.pdf"), pdftest.Page{"Y0000000Z"})
	pdftest.Write(t, filepath.Join(root, "a", "clean.pdf"), pdftest.Page{"nothing here"})
	pdftest.WriteCorrupt(t, filepath.Join(root, "broken.PDF"))

	v := New(hclog.NewNullLogger(), nil, nil)
	res, err := v.Dir(root, ".pdf")
	assert.Error(t, err, "the corrupt file is reported")
	assert.Equal(t, 3, res.Files)
	require.Len(t, res.Residuals, 1)
	assert.Equal(t, "Y0000000Z", res.Residuals[0].Value)
	assert.Equal(t, 1, res.Residuals[0].Page)
	assert.Equal(t, filepath.Join(root, "b", "leak.pdf")+" page 1: Y0000000Z", res.Residuals[0].String())
}

func TestDir_Empty(t *testing.T) {
	v := New(hclog.NewNullLogger(), nil, nil)
	res, err := v.Dir(t.TempDir(), ".pdf")
	assert.NoError(t, err)
	assert.Zero(t, res.Files)
	assert.Empty(t, res.Residuals)
}
