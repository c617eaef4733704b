// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package pdf

import (
	"fmt"
	"math"
)

// maxFormDepth bounds how deeply Form XObjects may paint other forms.
const maxFormDepth = 16

type textState struct {
	font    *font
	size    float64
	charSp  float64
	wordSp  float64
	hScale  float64
	leading float64
	rise    float64
}

type graphicsState struct {
	ctm matrix
	ts  textState
}

// glyph is one shown character code placed on the page.
type glyph struct {
	text string
	box  Rect
	// show and elem locate the code in the show operation that painted it.
	show int
	elem int
	// src is the content stream the show operation belongs to.
	src int

	x, y       float64
	endX, endY float64
	size       float64
}

// showElem is either a TJ adjustment (code == nil) or a shown code with its unit displacement.
type showElem struct {
	adjust    float64
	code      *glyphCode
	w0        float64
	wordSpace bool
}

// show records a text showing operator and the text state it ran with, which is what a rewrite needs.
type show struct {
	src   int
	op    int
	kind  string
	ts    textState
	elems []showElem
}

// resolver looks up the resources named by the content stream src.
type resolver interface {
	font(src int, resName string) *font
	// form returns the source index of the Form XObject resName, or -1 when resName is not a form.
	form(src int, resName string) (int, error)
	source(src int) *source
}

// interpreter walks content stream operations and places every shown glyph in default user space, following
// Form XObjects into their own streams.
type interpreter struct {
	res   resolver
	src   int
	depth int
	err   error

	gs    graphicsState
	stack []graphicsState
	tm    matrix
	tlm   matrix

	glyphs []glyph
	shows  []show
}

func newInterpreter(res resolver) *interpreter {
	return &interpreter{
		res: res,
		gs: graphicsState{
			ctm: identity,
			ts:  textState{hScale: 1},
		},
		tm:  identity,
		tlm: identity,
	}
}

func number(o any) (float64, bool) {
	f, ok := o.(float64)
	return f, ok
}

// numbers returns the first n operands as numbers, or false when any of them is missing or not numeric.
func numbers(operands []any, n int) ([]float64, bool) {
	if len(operands) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, o := range operands[len(operands)-n:] {
		f, ok := number(o)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// run interprets the content stream src. It stops at the first form that cannot be read.
func (in *interpreter) run(src int) error {
	in.src = src
	for i, o := range in.res.source(src).ops {
		in.exec(i, o)
		if in.err != nil {
			return in.err
		}
	}
	return nil
}

func (in *interpreter) exec(i int, o operation) {
	ts := &in.gs.ts
	switch o.op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if v, ok := numbers(o.operands, 6); ok {
			in.gs.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.mult(in.gs.ctm)
		}
	case "BT":
		in.tm = identity
		in.tlm = identity
	case "Tf":
		if len(o.operands) >= 2 {
			if n, ok := o.operands[0].(name); ok {
				ts.font = in.res.font(in.src, string(n))
			}
			if size, ok := number(o.operands[1]); ok {
				ts.size = size
			}
		}
	case "Tc":
		if v, ok := numbers(o.operands, 1); ok {
			ts.charSp = v[0]
		}
	case "Tw":
		if v, ok := numbers(o.operands, 1); ok {
			ts.wordSp = v[0]
		}
	case "Tz":
		if v, ok := numbers(o.operands, 1); ok {
			ts.hScale = v[0] / 100
		}
	case "TL":
		if v, ok := numbers(o.operands, 1); ok {
			ts.leading = v[0]
		}
	case "Ts":
		if v, ok := numbers(o.operands, 1); ok {
			ts.rise = v[0]
		}
	case "Td":
		if v, ok := numbers(o.operands, 2); ok {
			in.moveLine(v[0], v[1])
		}
	case "TD":
		if v, ok := numbers(o.operands, 2); ok {
			ts.leading = -v[1]
			in.moveLine(v[0], v[1])
		}
	case "Tm":
		if v, ok := numbers(o.operands, 6); ok {
			in.tlm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			in.tm = in.tlm
		}
	case "T*":
		in.moveLine(0, -ts.leading)
	case "Tj":
		if len(o.operands) > 0 {
			if s, ok := o.operands[len(o.operands)-1].(str); ok {
				in.show(i, o.op, array{s})
			}
		}
	case "'":
		in.moveLine(0, -ts.leading)
		if len(o.operands) > 0 {
			if s, ok := o.operands[len(o.operands)-1].(str); ok {
				in.show(i, o.op, array{s})
			}
		}
	case "\"":
		if len(o.operands) >= 3 {
			aw, ok1 := number(o.operands[0])
			ac, ok2 := number(o.operands[1])
			s, ok3 := o.operands[2].(str)
			if ok1 && ok2 && ok3 {
				ts.wordSp = aw
				ts.charSp = ac
				in.moveLine(0, -ts.leading)
				in.show(i, o.op, array{s})
			}
		}
	case "TJ":
		if len(o.operands) > 0 {
			if a, ok := o.operands[len(o.operands)-1].(array); ok {
				in.show(i, o.op, a)
			}
		}
	case "Do":
		if len(o.operands) > 0 {
			if n, ok := o.operands[len(o.operands)-1].(name); ok {
				in.paintForm(string(n))
			}
		}
	}
}

// paintForm runs the Form XObject resName with its matrix applied over the current transformation. The caller's
// graphics and text state are restored afterwards.
func (in *interpreter) paintForm(resName string) {
	if in.depth >= maxFormDepth {
		in.err = fmt.Errorf("form %s nested more than %d levels deep", resName, maxFormDepth)
		return
	}
	fi, err := in.res.form(in.src, resName)
	if err != nil {
		in.err = err
		return
	}
	if fi < 0 {
		return
	}
	f := in.res.source(fi)

	gs, stack, tm, tlm, src := in.gs, in.stack, in.tm, in.tlm, in.src
	in.gs.ctm = f.matrix.mult(in.gs.ctm)
	in.stack = nil
	in.src = fi
	in.depth++
	for i, o := range f.ops {
		in.exec(i, o)
		if in.err != nil {
			break
		}
	}
	in.depth--
	in.gs, in.stack, in.tm, in.tlm, in.src = gs, stack, tm, tlm, src
}

func (in *interpreter) moveLine(tx, ty float64) {
	in.tlm = translate(tx, ty).mult(in.tlm)
	in.tm = in.tlm
}

func (in *interpreter) show(opIndex int, kind string, items array) {
	ts := in.gs.ts
	f := ts.font
	if f == nil {
		f = fallbackFont()
	}

	s := show{src: in.src, op: opIndex, kind: kind, ts: ts}
	s.ts.font = f
	showIndex := len(in.shows)

	for _, item := range items {
		switch v := item.(type) {
		case float64:
			s.elems = append(s.elems, showElem{adjust: v})
			tx := -v / 1000 * ts.size * ts.hScale
			in.tm = translate(tx, 0).mult(in.tm)
		case str:
			for _, gc := range f.split(v) {
				gc := gc
				w0 := f.width(gc.code)
				ws := f.wordSpacing(gc)
				s.elems = append(s.elems, showElem{code: &gc, w0: w0, wordSpace: ws})

				in.place(f, ts, w0, gc, showIndex, len(s.elems)-1)

				tx := w0*ts.size + ts.charSp
				if ws {
					tx += ts.wordSp
				}
				in.tm = translate(tx*ts.hScale, 0).mult(in.tm)
			}
		}
	}

	in.shows = append(in.shows, s)
}

// place records the glyph for gc at the current text position.
func (in *interpreter) place(f *font, ts textState, w0 float64, gc glyphCode, showIndex, elem int) {
	trm := matrix{ts.size * ts.hScale, 0, 0, ts.size, 0, ts.rise}.mult(in.tm).mult(in.gs.ctm)

	x, y := trm.apply(0, 0)
	endX, endY := trm.apply(w0, 0)
	upX, upY := trm.apply(0, 1)

	in.glyphs = append(in.glyphs, glyph{
		text: f.text(gc.code),
		box:  trm.bounds(0, f.descent, w0, f.ascent),
		show: showIndex,
		elem: elem,
		src:  in.src,
		x:    x,
		y:    y,
		endX: endX,
		endY: endY,
		size: math.Hypot(upX-x, upY-y),
	})
}

func fallbackFont() *font {
	return &font{
		name:     "fallback",
		scale:    0.001,
		enc:      standardEncoding,
		defWidth: 500,
		ascent:   defaultAscent,
		descent:  defaultDescent,
	}
}
