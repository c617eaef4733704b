// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var _ resolver = &Page{}

// source is one content stream that takes part in drawing a page: the page content itself, or a Form XObject
// painted by it, directly or through another form.
type source struct {
	content   []byte
	ops       []operation
	resources types.Dict
	fonts     map[string]*font
	// forms maps XObject resource names to source indexes, -1 for XObjects that are not forms.
	forms map[string]int

	// parent is the index of the source whose resources name this form, -1 for the page content.
	parent int
	name   string
	// stream is the form as read from the document; nil for the page content.
	stream *types.StreamDict
	matrix matrix
}

func newSource(content []byte, resources types.Dict, parent int, name string) *source {
	return &source{
		content:   content,
		resources: resources,
		fonts:     make(map[string]*font),
		forms:     make(map[string]int),
		parent:    parent,
		name:      name,
		matrix:    identity,
	}
}

func (s *source) reset() {
	s.ops = nil
	s.forms = make(map[string]int)
}

// edited returns the content with every operation in edits replaced by its rewrite. Everything else is copied
// byte for byte.
func (s *source) edited(edits map[int]*edit) []byte {
	var buf bytes.Buffer
	last := 0
	for i, o := range s.ops {
		e, ok := edits[i]
		if !ok {
			continue
		}
		buf.Write(s.content[last:o.start])
		buf.WriteString(e.show.rewrite(e.removed))
		last = o.end
	}
	buf.Write(s.content[last:])
	return buf.Bytes()
}

// edit collects the codes to remove from one show operation.
type edit struct {
	show    show
	removed map[int]bool
}

func (p *Page) source(src int) *source {
	return p.sources[src]
}

func (p *Page) font(src int, resName string) *font {
	s := p.sources[src]
	if f, ok := s.fonts[resName]; ok {
		return f
	}

	var f *font
	if fonts, err := p.xt.DereferenceDict(s.resources["Font"]); err == nil && fonts != nil {
		if o, found := fonts.Find(resName); found {
			f, _ = loadFont(p.xt, resName, o)
		}
	}
	if f == nil {
		f = fallbackFont()
	}
	s.fonts[resName] = f
	return f
}

// form loads the XObject resName of source src when it is a form. Forms without resources of their own use
// those of the source that paints them.
func (p *Page) form(src int, resName string) (int, error) {
	s := p.sources[src]
	if i, ok := s.forms[resName]; ok {
		return i, nil
	}
	s.forms[resName] = -1

	xobjects, err := p.xt.DereferenceDict(s.resources["XObject"])
	if err != nil {
		return -1, fmt.Errorf("unable to read XObject resources: %w", err)
	}
	if xobjects == nil {
		return -1, nil
	}
	o, found := xobjects.Find(resName)
	if !found {
		return -1, nil
	}

	sd, _, err := p.xt.DereferenceStreamDict(o)
	if err != nil {
		return -1, fmt.Errorf("xobject %s: %w", resName, err)
	}
	if sd == nil || sd.Subtype() == nil || *sd.Subtype() != "Form" {
		return -1, nil
	}
	if err = sd.Decode(); err != nil {
		return -1, fmt.Errorf("unable to decode form %s: %w", resName, err)
	}
	ops, err := parseContent(sd.Content)
	if err != nil {
		return -1, fmt.Errorf("form %s: %w", resName, err)
	}

	resources, err := p.xt.DereferenceDict(sd.Dict["Resources"])
	if err != nil {
		return -1, fmt.Errorf("form %s: unable to read resources: %w", resName, err)
	}
	if resources == nil {
		resources = s.resources
	}

	f := newSource(sd.Content, resources, src, resName)
	f.ops = ops
	f.stream = sd
	if m, ok := formMatrix(sd.ArrayEntry("Matrix")); ok {
		f.matrix = m
	}

	p.sources = append(p.sources, f)
	i := len(p.sources) - 1
	s.forms[resName] = i
	return i, nil
}

func formMatrix(a types.Array) (matrix, bool) {
	if len(a) != 6 {
		return identity, false
	}
	var m matrix
	for i, o := range a {
		switch v := o.(type) {
		case types.Integer:
			m[i] = float64(v)
		case types.Float:
			m[i] = float64(v)
		default:
			return identity, false
		}
	}
	return m, true
}

// rewriteForm stores a copy of form src with its edits applied and its resources pointing at any rewritten
// child forms. The original object is left alone since other pages may paint it too.
func (p *Page) rewriteForm(src int, edits map[int]*edit, rewritten map[int]types.IndirectRef) (*types.IndirectRef, error) {
	s := p.sources[src]

	sd, err := p.xt.NewStreamDictForBuf(s.edited(edits))
	if err != nil {
		return nil, err
	}
	for k, v := range s.stream.Dict {
		switch k {
		case "Filter", "DecodeParms", "Length":
			continue
		}
		if v != nil {
			v = v.Clone()
		}
		sd.Dict[k] = v
	}

	resources, err := p.relinkedResources(src, rewritten)
	if err != nil {
		return nil, err
	}
	if resources != nil {
		sd.Dict["Resources"] = resources
	}

	if err = sd.Encode(); err != nil {
		return nil, err
	}
	return p.xt.IndRefForNewObject(*sd)
}

// relinkedResources returns a copy of the resources of src in which every rewritten form is replaced by its new
// object, or nil when src paints no rewritten form.
func (p *Page) relinkedResources(src int, rewritten map[int]types.IndirectRef) (types.Dict, error) {
	s := p.sources[src]
	changed := make(map[string]types.IndirectRef)
	for n, i := range s.forms {
		if ref, ok := rewritten[i]; ok {
			changed[n] = ref
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}

	resources := types.NewDict()
	if s.resources != nil {
		resources = s.resources.Clone().(types.Dict)
	}
	xobjects, err := p.xt.DereferenceDict(resources["XObject"])
	if err != nil {
		return nil, err
	}
	if xobjects == nil {
		xobjects = types.NewDict()
	} else {
		xobjects = xobjects.Clone().(types.Dict)
	}
	for n, ref := range changed {
		xobjects[n] = ref
	}
	resources["XObject"] = xobjects
	return resources, nil
}
