// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

// Package pdftest generates small PDF documents for tests.
package pdftest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
)

// Page holds the lines of text written to one page, top to bottom.
type Page []string

// Options controls how a document is generated.
type Options struct {
	// UserPassword and OwnerPassword enable the standard security handler when either is set.
	UserPassword  string
	OwnerPassword string
	// Uncompressed leaves content streams unfiltered.
	Uncompressed bool
	FontSize     float64
	// Template lines are drawn inside a form XObject that every page paints before its own lines.
	Template Page
}

// Write creates a PDF at path with one page per Page, using the core Helvetica font.
func Write(t testing.TB, path string, pages ...Page) {
	t.Helper()
	WriteWithOptions(t, path, Options{}, pages...)
}

// WriteEncrypted creates a password protected PDF at path.
func WriteEncrypted(t testing.TB, path, password string, pages ...Page) {
	t.Helper()
	WriteWithOptions(t, path, Options{UserPassword: password, OwnerPassword: password + "-owner"}, pages...)
}

func WriteWithOptions(t testing.TB, path string, opts Options, pages ...Page) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	size := opts.FontSize
	if size == 0 {
		size = 12
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(!opts.Uncompressed)
	if opts.UserPassword != "" || opts.OwnerPassword != "" {
		doc.SetProtection(gofpdf.CnProtectPrint, opts.UserPassword, opts.OwnerPassword)
	}
	doc.SetFont("Helvetica", "", size)

	var tpl gofpdf.Template
	if len(opts.Template) > 0 {
		tpl = doc.CreateTemplate(func(t *gofpdf.Tpl) {
			t.SetFont("Helvetica", "", size)
			for i, line := range opts.Template {
				t.Text(20, 15+float64(i)*5, line)
			}
		})
	}

	for _, page := range pages {
		doc.AddPage()
		if tpl != nil {
			doc.UseTemplate(tpl)
		}
		for i, line := range page {
			doc.Text(20, 30+float64(i)*10, line)
		}
	}
	require.NoError(t, doc.OutputFileAndClose(path))
}

// WriteCorrupt creates a file at path that carries a PDF extension but cannot be parsed.
func WriteCorrupt(t testing.TB, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nthis is not a pdf body\n"), 0644))
}
