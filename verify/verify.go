// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

// Package verify re-reads sanitized documents with an independent PDF text extractor and reports any valid
// identifier that is still recoverable.
package verify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/ledongthuc/pdf"

	"github.com/hashicorp/nifredact/identifier"
	"github.com/hashicorp/nifredact/util"
)

// Residual is a valid identifier found in a document that should have been sanitized.
type Residual struct {
	Path  string `json:"path"`
	Page  int    `json:"page"`
	Value string `json:"value"`
}

func (r Residual) String() string {
	return fmt.Sprintf("%s page %d: %s", r.Path, r.Page, r.Value)
}

// Result summarizes a verification pass over a directory.
type Result struct {
	Files     int
	Residuals []Residual
}

// Verifier scans documents for residual identifiers.
type Verifier struct {
	l         hclog.Logger
	extractor *identifier.Extractor
	validator *identifier.Validator
}

func New(logger hclog.Logger, extractor *identifier.Extractor, validator *identifier.Validator) *Verifier {
	if extractor == nil {
		extractor = identifier.DefaultExtractor()
	}
	if validator == nil {
		validator = identifier.DefaultValidator()
	}
	return &Verifier{
		l:         logger.Named("verify"),
		extractor: extractor,
		validator: validator,
	}
}

// ExtractText returns the plain text of every page of the document at path, indexed from zero.
func ExtractText(path string) (pages []string, err error) {
	// The reader panics on malformed objects.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("unable to read %s: %v", path, rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("unable to extract text from %s page %d: %w", path, i, err)
		}
		var forms strings.Builder
		formText(&forms, p.Resources(), 0)
		if forms.Len() > 0 {
			text += "\n" + forms.String()
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// maxFormDepth bounds how deeply formText follows forms listed in the resources of other forms.
const maxFormDepth = 16

// formText writes the text shown by every Form XObject listed in resources, and by the forms listed in theirs.
// The reader's plain text extraction only covers the page content stream itself. Forms are read whether or not
// the page paints them.
func formText(w *strings.Builder, resources pdf.Value, depth int) {
	if depth >= maxFormDepth {
		return
	}
	xobjects := resources.Key("XObject")
	for _, key := range xobjects.Keys() {
		x := xobjects.Key(key)
		if x.Kind() != pdf.Stream || x.Key("Subtype").Name() != "Form" {
			continue
		}
		own := x.Key("Resources")
		if own.IsNull() {
			own = resources
		}
		showText(w, x, own)
		formText(w, own, depth+1)
	}
}

// showText writes the strings shown by the content stream strm, decoded with the fonts in resources. Strings
// shown before any font is selected in strm are written as they are.
func showText(w *strings.Builder, strm, resources pdf.Value) {
	var enc pdf.TextEncoding
	write := func(raw string) {
		if enc != nil {
			raw = enc.Decode(raw)
		}
		w.WriteString(raw)
	}

	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "BT", "T*", "Td", "TD", "Tm":
			w.WriteString("\n")
		case "Tf":
			if len(args) == 2 {
				f := pdf.Font{V: resources.Key("Font").Key(args[0].Name())}
				enc = f.Encoder()
			}
		case "Tj", "'", "\"":
			if len(args) > 0 {
				write(args[len(args)-1].RawString())
			}
		case "TJ":
			if len(args) == 1 {
				for i := 0; i < args[0].Len(); i++ {
					if v := args[0].Index(i); v.Kind() == pdf.String {
						write(v.RawString())
					}
				}
			}
		}
	})
}

// File returns the residual identifiers found in the document at path.
func (v *Verifier) File(path string) ([]Residual, error) {
	pages, err := ExtractText(path)
	if err != nil {
		return nil, err
	}

	var residuals []Residual
	for i, text := range pages {
		for _, c := range v.validator.Check(v.extractor.Extract(text)) {
			if c.Verdict != identifier.Valid {
				continue
			}
			residuals = append(residuals, Residual{Path: path, Page: i + 1, Value: c.Value})
		}
	}
	return residuals, nil
}

// Dir verifies every file under root with the given extension. Files that cannot be read are reported in the
// returned error but do not stop the pass.
func (v *Verifier) Dir(root, ext string) (Result, error) {
	var res Result
	files, err := util.FindFiles(root, ext)
	if err != nil {
		return res, err
	}

	var errs *multierror.Error
	for _, f := range files {
		res.Files++
		found, err := v.File(f)
		if err != nil {
			v.l.Warn("unable to verify file", "path", f, "error", err)
			errs = multierror.Append(errs, err)
			continue
		}
		for _, r := range found {
			v.l.Warn("residual identifier", "path", r.Path, "page", r.Page, "value", r.Value)
		}
		res.Residuals = append(res.Residuals, found...)
	}

	sort.SliceStable(res.Residuals, func(i, j int) bool {
		if res.Residuals[i].Path != res.Residuals[j].Path {
			return res.Residuals[i].Path < res.Residuals[j].Path
		}
		return res.Residuals[i].Page < res.Residuals[j].Page
	})
	return res, errs.ErrorOrNil()
}
