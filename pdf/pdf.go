// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

// Package pdf opens PDF documents, extracts the text of their pages together with glyph positions,
// and removes text from page content streams under redaction marks.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrEncrypted is returned by Open for password protected or otherwise encrypted documents.
	ErrEncrypted = errors.New("document is encrypted")

	// ErrClosed is returned when a closed Document is used.
	ErrClosed = errors.New("document is closed")
)

var disableConfigDir sync.Once

// configuration returns the pdfcpu configuration used for reading and writing. pdfcpu would otherwise create a
// configuration directory under the user's home on first use.
func configuration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Document is an open PDF. It is not safe for concurrent use.
type Document struct {
	path  string
	ctx   *model.Context
	pages map[int]*Page
	l     hclog.Logger
}

// Open reads and validates the document at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), configuration())
	if err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) || hasEncryptDict(data) {
			return nil, fmt.Errorf("%s: %w", path, ErrEncrypted)
		}
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	if ctx.Encrypt != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrEncrypted)
	}

	if err = api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("invalid document %s: %w", path, err)
	}
	if err = ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("unable to count pages of %s: %w", path, err)
	}

	return &Document{
		path:  path,
		ctx:   ctx,
		pages: make(map[int]*Page),
		l:     hclog.L().Named("pdf"),
	}, nil
}

// hasEncryptDict looks for an /Encrypt entry in the trailer area, for files pdfcpu refuses to read at all.
func hasEncryptDict(data []byte) bool {
	tail := data
	if len(tail) > 4096 {
		tail = tail[len(tail)-4096:]
	}
	return bytes.Contains(tail, []byte("/Encrypt"))
}

func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	if d.ctx == nil {
		return 0
	}
	return d.ctx.PageCount
}

// Page returns page n, counting from 1.
func (d *Document) Page(n int) (*Page, error) {
	if d.ctx == nil {
		return nil, ErrClosed
	}
	if p, ok := d.pages[n]; ok {
		return p, nil
	}
	if n < 1 || n > d.ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range 1-%d", n, d.ctx.PageCount)
	}

	p, err := newPage(d.ctx.XRefTable, n)
	if err != nil {
		return nil, err
	}
	d.pages[n] = p
	return p, nil
}

// Save writes the document to path. The file is written next to path and renamed into place, so a failed save
// never leaves a partial document behind.
func (d *Document) Save(path string) error {
	if d.ctx == nil {
		return ErrClosed
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".nifredact-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err = api.WriteContext(d.ctx, tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	d.l.Debug("saved document", "path", path)
	return os.Rename(tmp.Name(), path)
}

// Close releases the document. It is safe to call more than once.
func (d *Document) Close() error {
	d.ctx = nil
	d.pages = nil
	return nil
}
