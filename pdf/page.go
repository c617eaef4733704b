// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package pdf

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	// lineTolerance is how far, relative to the font size, a glyph may sit off the previous baseline and
	// still belong to the same line.
	lineTolerance = 0.5
	// spaceGap is the horizontal gap, relative to the font size, treated as a word break.
	spaceGap = 0.15
)

// Page is one page of an open Document. Text, Search and the redaction calls work on the page's
// current content; ApplyRedactions replaces that content.
type Page struct {
	Number int

	xt   *model.XRefTable
	dict types.Dict

	// sources holds the page content at index 0, followed by every form it paints, in the order first painted.
	sources []*source
	glyphs  []glyph
	shows   []show

	// text is the extracted text; owner maps each rune of text to a glyph, or -1 for inserted separators.
	text  []rune
	owner []int
	lines []int

	marks []Rect
}

func newPage(xt *model.XRefTable, n int) (*Page, error) {
	d, _, inh, err := xt.PageDict(n, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	if d == nil {
		return nil, fmt.Errorf("page %d: missing page dictionary", n)
	}

	p := &Page{
		Number: n,
		xt:     xt,
		dict:   d,
	}

	var resources types.Dict
	if res, err := xt.DereferenceDict(d["Resources"]); err == nil && res != nil {
		resources = res
	} else if inh != nil {
		resources = inh.Resources
	}

	content, err := p.readContent()
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	p.sources = []*source{newSource(content, resources, -1, "")}
	return p, nil
}

// readContent concatenates the page's content streams, separated by newlines so tokens never merge.
func (p *Page) readContent() ([]byte, error) {
	o, found := p.dict.Find("Contents")
	if !found {
		return nil, nil
	}
	o, err := p.xt.Dereference(o)
	if err != nil || o == nil {
		return nil, err
	}

	var refs []types.Object
	switch v := o.(type) {
	case types.StreamDict:
		refs = append(refs, v)
	case types.Array:
		refs = v
	default:
		return nil, fmt.Errorf("unexpected page content type %T", o)
	}

	var buf bytes.Buffer
	for _, ref := range refs {
		sd, _, err := p.xt.DereferenceStreamDict(ref)
		if err != nil {
			return nil, err
		}
		if sd == nil {
			continue
		}
		if err = sd.Decode(); err != nil {
			return nil, fmt.Errorf("unable to decode content stream: %w", err)
		}
		buf.Write(sd.Content)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// layout interprets the content stream, and the forms it paints, once and builds the text and glyph index.
func (p *Page) layout() error {
	if p.text != nil {
		return nil
	}

	page := p.sources[0]
	p.sources = p.sources[:1]
	page.reset()
	ops, err := parseContent(page.content)
	if err != nil {
		return fmt.Errorf("page %d: %w", p.Number, err)
	}
	page.ops = ops

	in := newInterpreter(p)
	if err = in.run(0); err != nil {
		return fmt.Errorf("page %d: %w", p.Number, err)
	}

	p.glyphs = in.glyphs
	p.shows = in.shows
	p.text, p.owner, p.lines = buildText(p.glyphs)
	return nil
}

// buildText follows content order, starting a new line when the baseline moves and inserting a space where
// the gap between two glyphs looks like a word break.
func buildText(glyphs []glyph) ([]rune, []int, []int) {
	text := []rune{}
	var owner []int
	lines := make([]int, len(glyphs))
	line := 0
	prev := -1

	for i, g := range glyphs {
		if g.text == "" {
			lines[i] = line
			continue
		}
		if prev >= 0 {
			pg := glyphs[prev]
			dx, dy := pg.endX-pg.x, pg.endY-pg.y
			if l := math.Hypot(dx, dy); l > 0 {
				dx, dy = dx/l, dy/l
			} else {
				dx, dy = 1, 0
			}
			size := math.Max(math.Max(g.size, pg.size), 1e-6)
			along := (g.x-pg.endX)*dx + (g.y-pg.endY)*dy
			across := -(g.x-pg.x)*dy + (g.y-pg.y)*dx

			last := text[len(text)-1]
			switch {
			case math.Abs(across) > lineTolerance*size || along < -lineTolerance*size:
				line++
				if last != '\n' {
					text = append(text, '\n')
					owner = append(owner, -1)
				}
			case along > spaceGap*size && !unicode.IsSpace(last) && !strings.HasPrefix(g.text, " "):
				text = append(text, ' ')
				owner = append(owner, -1)
			}
		}
		lines[i] = line
		for _, r := range g.text {
			text = append(text, r)
			owner = append(owner, i)
		}
		prev = i
	}
	return text, owner, lines
}

// Text returns the page text in content order, one line per baseline.
func (p *Page) Text() (string, error) {
	if err := p.layout(); err != nil {
		return "", err
	}
	return string(p.text), nil
}

// Search returns a bounding rectangle, per line, for every occurrence of literal in the page text.
// Matching ignores case, and an occurrence flanked by a letter, digit or underscore is part of a longer word
// and is not returned.
func (p *Page) Search(literal string) ([]Rect, error) {
	if err := p.layout(); err != nil {
		return nil, err
	}
	needle := []rune(strings.ToUpper(literal))
	if len(needle) == 0 {
		return nil, nil
	}

	var rects []Rect
	for i := 0; i+len(needle) <= len(p.text); {
		if !matchAt(p.text, needle, i) || !wordBounded(p.text, i, i+len(needle)) {
			i++
			continue
		}
		rects = append(rects, p.matchRects(i, i+len(needle))...)
		i += len(needle)
	}
	return rects, nil
}

func matchAt(text, needle []rune, at int) bool {
	for j, r := range needle {
		if unicode.ToUpper(text[at+j]) != r {
			return false
		}
	}
	return true
}

// wordBounded reports whether text[from:to] starts and ends at word boundaries, in the ASCII sense regular
// expressions give \b.
func wordBounded(text []rune, from, to int) bool {
	if from > 0 && isWordRune(text[from-1]) && isWordRune(text[from]) {
		return false
	}
	if to < len(text) && isWordRune(text[to]) && isWordRune(text[to-1]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func (p *Page) matchRects(from, to int) []Rect {
	byLine := make(map[int]Rect)
	seen := make(map[int]bool)
	for k := from; k < to; k++ {
		gi := p.owner[k]
		if gi < 0 || seen[gi] {
			continue
		}
		seen[gi] = true
		g := p.glyphs[gi]
		byLine[p.lines[gi]] = byLine[p.lines[gi]].Union(g.box)
	}

	keys := make([]int, 0, len(byLine))
	for k := range byLine {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	rects := make([]Rect, 0, len(keys))
	for _, k := range keys {
		if r := byLine[k]; !r.Empty() {
			rects = append(rects, r)
		}
	}
	return rects
}

// AddRedaction marks r for redaction. Nothing changes until ApplyRedactions is called.
func (p *Page) AddRedaction(r Rect) {
	p.marks = append(p.marks, r)
}

// Marks returns the pending redaction marks.
func (p *Page) Marks() []Rect {
	return append([]Rect(nil), p.marks...)
}

// ApplyRedactions commits every pending mark at once: glyphs whose centers fall inside a mark are removed from
// the content stream that shows them, and each mark is painted as an opaque black rectangle. The page content is
// replaced by a single new stream. Forms that showed removed glyphs are replaced, for this page only, by
// rewritten copies.
func (p *Page) ApplyRedactions() error {
	if len(p.marks) == 0 {
		return nil
	}
	if err := p.layout(); err != nil {
		return err
	}

	edits := make(map[int]map[int]*edit)
	for _, g := range p.glyphs {
		cx, cy := g.box.center()
		for _, m := range p.marks {
			if !m.Contains(cx, cy) {
				continue
			}
			s := p.shows[g.show]
			if s.ts.size == 0 {
				break
			}
			if edits[s.src] == nil {
				edits[s.src] = make(map[int]*edit)
			}
			e := edits[s.src][s.op]
			if e == nil {
				e = &edit{show: s, removed: make(map[int]bool)}
				edits[s.src][s.op] = e
			}
			e.removed[g.elem] = true
			break
		}
	}

	// A form is rewritten when it shows a removed glyph or paints a form that does.
	dirty := make([]bool, len(p.sources))
	for src := range edits {
		for i := src; i >= 0 && !dirty[i]; i = p.sources[i].parent {
			dirty[i] = true
		}
	}
	rewritten := make(map[int]types.IndirectRef)
	for i := len(p.sources) - 1; i > 0; i-- {
		if !dirty[i] {
			continue
		}
		ref, err := p.rewriteForm(i, edits[i], rewritten)
		if err != nil {
			return fmt.Errorf("page %d: unable to store form %s: %w", p.Number, p.sources[i].name, err)
		}
		rewritten[i] = *ref
	}

	page := p.sources[0]
	var buf bytes.Buffer
	buf.WriteString("q\n")
	buf.Write(page.edited(edits[0]))
	buf.WriteString("\nQ\nq 0 0 0 rg\n")
	for _, m := range p.marks {
		fmt.Fprintf(&buf, "%s %s %s %s re\n", formatNumber(m.X0), formatNumber(m.Y0), formatNumber(m.Width()), formatNumber(m.Height()))
	}
	buf.WriteString("f\nQ\n")

	resources, err := p.relinkedResources(0, rewritten)
	if err != nil {
		return fmt.Errorf("page %d: unable to update resources: %w", p.Number, err)
	}
	ir, err := p.xt.StreamDictIndRef(buf.Bytes())
	if err != nil {
		return fmt.Errorf("page %d: unable to store content: %w", p.Number, err)
	}
	p.dict.Update("Contents", *ir)
	if resources != nil {
		p.dict.Update("Resources", resources)
		page.resources = resources
	}

	page.content = buf.Bytes()
	page.fonts = make(map[string]*font)
	page.reset()
	p.sources = p.sources[:1]
	p.marks = nil
	p.glyphs, p.shows = nil, nil
	p.text, p.owner, p.lines = nil, nil, nil
	return nil
}

// rewrite renders s as a TJ operation in which the removed codes are replaced by adjustments of the same width,
// so that the remaining glyphs stay where they were.
func (s show) rewrite(removed map[int]bool) string {
	var b strings.Builder
	switch s.kind {
	case "'":
		b.WriteString("T* ")
	case "\"":
		fmt.Fprintf(&b, "%s Tw %s Tc T* ", formatNumber(s.ts.wordSp), formatNumber(s.ts.charSp))
	}

	b.WriteString("[")
	var run []byte
	flush := func() {
		if len(run) > 0 {
			b.WriteString("<" + hex.EncodeToString(run) + ">")
			run = nil
		}
	}
	for i, e := range s.elems {
		if e.code == nil {
			flush()
			b.WriteString(" " + formatNumber(e.adjust) + " ")
			continue
		}
		if !removed[i] {
			run = append(run, e.code.raw...)
			continue
		}
		flush()
		sp := s.ts.charSp
		if e.wordSpace {
			sp += s.ts.wordSp
		}
		adj := -(e.w0*1000 + sp*1000/s.ts.size)
		b.WriteString(" " + formatNumber(adj) + " ")
	}
	flush()
	b.WriteString("] TJ")
	return b.String()
}

func formatNumber(f float64) string {
	f = math.Round(f*1000) / 1000
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
