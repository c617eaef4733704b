// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package pdf

import (
	"fmt"
	"strings"
	"unicode/utf16"

	pdffont "github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	defaultAscent  = 0.8
	defaultDescent = -0.2
	maxRangeSize   = 1 << 16
)

// coreAliases maps common names of the standard fonts to the names pdfcpu keeps metrics for.
var coreAliases = map[string]string{
	"Arial":                  "Helvetica",
	"Arial,Bold":             "Helvetica-Bold",
	"Arial,Italic":           "Helvetica-Oblique",
	"Arial,BoldItalic":       "Helvetica-BoldOblique",
	"ArialMT":                "Helvetica",
	"Arial-BoldMT":           "Helvetica-Bold",
	"TimesNewRoman":          "Times-Roman",
	"TimesNewRoman,Bold":     "Times-Bold",
	"TimesNewRomanPSMT":      "Times-Roman",
	"TimesNewRomanPS-BoldMT": "Times-Bold",
	"CourierNew":             "Courier",
	"CourierNewPSMT":         "Courier",
}

// font holds what the text interpreter needs to know about a font resource: how to split strings into
// character codes, how wide each code is and which text it stands for.
type font struct {
	name    string
	subtype string
	twoByte bool

	// scale converts glyph space widths to text space.
	scale     float64
	firstChar int
	widths    []float64
	cidWidths map[int]float64
	defWidth  float64
	core      string

	enc       baseEncoding
	diffs     map[int]string
	toUnicode map[int]string

	ascent  float64
	descent float64
}

// glyphCode is one character code read from a shown string, with the bytes it was encoded as.
type glyphCode struct {
	raw  []byte
	code int
}

func loadFont(xt *model.XRefTable, resName string, o types.Object) (*font, error) {
	d, err := xt.DereferenceDict(o)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", resName, err)
	}
	if d == nil {
		return nil, fmt.Errorf("font %s: missing font dictionary", resName)
	}

	f := &font{
		name:     resName,
		scale:    0.001,
		ascent:   defaultAscent,
		descent:  defaultDescent,
		defWidth: -1,
	}
	if st := d.NameEntry("Subtype"); st != nil {
		f.subtype = *st
	}
	if bf := d.NameEntry("BaseFont"); bf != nil {
		f.core = coreName(*bf)
	}

	if tu, found := d.Find("ToUnicode"); found {
		if m, err := loadToUnicode(xt, tu); err == nil {
			f.toUnicode = m
		}
	}

	if f.subtype == "Type0" {
		return f, f.loadCIDFont(xt, d)
	}
	return f, f.loadSimpleFont(xt, d)
}

func coreName(baseFont string) string {
	if i := strings.IndexByte(baseFont, '+'); i == 6 {
		baseFont = baseFont[i+1:]
	}
	if alias, ok := coreAliases[baseFont]; ok {
		baseFont = alias
	}
	if pdffont.IsCoreFont(baseFont) {
		return baseFont
	}
	return ""
}

func (f *font) loadSimpleFont(xt *model.XRefTable, d types.Dict) error {
	f.enc = standardEncoding
	switch {
	case f.subtype == "TrueType":
		f.enc = winAnsiEncoding
	case f.core == "Symbol" || f.core == "ZapfDingbats":
		f.enc = symbolicEncoding
	}

	if f.subtype == "Type3" {
		f.defWidth = 0
		if a, err := xt.DereferenceArray(d["FontMatrix"]); err == nil && len(a) == 6 {
			if s, err := xt.DereferenceNumber(a[0]); err == nil && s != 0 {
				f.scale = s
			}
		}
	}

	if err := f.loadEncoding(xt, d); err != nil {
		return err
	}

	if fc, err := xt.DereferenceNumber(d["FirstChar"]); err == nil {
		f.firstChar = int(fc)
	}
	if a, err := xt.DereferenceArray(d["Widths"]); err == nil {
		for _, o := range a {
			w, err := xt.DereferenceNumber(o)
			if err != nil {
				w = 0
			}
			f.widths = append(f.widths, w)
		}
	}

	f.loadDescriptor(xt, d)
	return nil
}

func (f *font) loadEncoding(xt *model.XRefTable, d types.Dict) error {
	o, found := d.Find("Encoding")
	if !found {
		return nil
	}
	o, err := xt.Dereference(o)
	if err != nil {
		return fmt.Errorf("font %s encoding: %w", f.name, err)
	}

	switch enc := o.(type) {
	case types.Name:
		if e, ok := encodingFromName(enc.Value()); ok {
			f.enc = e
		}
	case types.Dict:
		if base := enc.NameEntry("BaseEncoding"); base != nil {
			if e, ok := encodingFromName(*base); ok {
				f.enc = e
			}
		}
		diffs, err := xt.DereferenceArray(enc["Differences"])
		if err != nil {
			return fmt.Errorf("font %s differences: %w", f.name, err)
		}
		f.diffs = make(map[int]string)
		code := 0
		for _, o := range diffs {
			o, _ = xt.Dereference(o)
			switch v := o.(type) {
			case types.Integer:
				code = v.Value()
			case types.Float:
				code = int(v.Value())
			case types.Name:
				if s, ok := glyphText(v.Value()); ok {
					f.diffs[code] = s
				}
				code++
			}
		}
	}
	return nil
}

func (f *font) loadCIDFont(xt *model.XRefTable, d types.Dict) error {
	f.twoByte = true
	f.defWidth = 1000

	descendants, err := xt.DereferenceArray(d["DescendantFonts"])
	if err != nil || len(descendants) == 0 {
		return fmt.Errorf("font %s: missing descendant font", f.name)
	}
	cid, err := xt.DereferenceDict(descendants[0])
	if err != nil || cid == nil {
		return fmt.Errorf("font %s: bad descendant font", f.name)
	}

	if dw, err := xt.DereferenceNumber(cid["DW"]); err == nil {
		f.defWidth = dw
	}

	f.cidWidths = make(map[int]float64)
	w, _ := xt.DereferenceArray(cid["W"])
	for i := 0; i < len(w); {
		first, err := xt.DereferenceNumber(w[i])
		if err != nil || i+1 >= len(w) {
			break
		}
		next, _ := xt.Dereference(w[i+1])
		if list, ok := next.(types.Array); ok {
			for j, o := range list {
				if width, err := xt.DereferenceNumber(o); err == nil {
					f.cidWidths[int(first)+j] = width
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		last, err1 := xt.DereferenceNumber(w[i+1])
		width, err2 := xt.DereferenceNumber(w[i+2])
		if err1 == nil && err2 == nil && last-first < maxRangeSize {
			for c := int(first); c <= int(last); c++ {
				f.cidWidths[c] = width
			}
		}
		i += 3
	}

	f.loadDescriptor(xt, cid)
	return nil
}

func (f *font) loadDescriptor(xt *model.XRefTable, d types.Dict) {
	fd, err := xt.DereferenceDict(d["FontDescriptor"])
	if err != nil || fd == nil {
		if f.core != "" {
			if bb := pdffont.BoundingBox(f.core); bb != nil && bb.UR.Y > bb.LL.Y {
				f.ascent = bb.UR.Y / 1000
				f.descent = bb.LL.Y / 1000
			}
		}
		return
	}
	if mw, err := xt.DereferenceNumber(fd["MissingWidth"]); err == nil && f.defWidth < 0 {
		f.defWidth = mw
	}
	asc, err1 := xt.DereferenceNumber(fd["Ascent"])
	desc, err2 := xt.DereferenceNumber(fd["Descent"])
	if err1 == nil && err2 == nil && asc > desc && asc != 0 {
		f.ascent = asc / 1000
		f.descent = desc / 1000
	}
}

// split breaks a shown string into character codes.
func (f *font) split(s []byte) []glyphCode {
	step := 1
	if f.twoByte {
		step = 2
	}
	codes := make([]glyphCode, 0, len(s)/step)
	for i := 0; i < len(s); i += step {
		end := i + step
		if end > len(s) {
			end = len(s)
		}
		c := 0
		for _, b := range s[i:end] {
			c = c<<8 | int(b)
		}
		codes = append(codes, glyphCode{raw: s[i:end], code: c})
	}
	return codes
}

// width returns the horizontal displacement of code in text space units for a font size of 1.
func (f *font) width(code int) float64 {
	if f.twoByte {
		if w, ok := f.cidWidths[code]; ok {
			return w * f.scale
		}
		return f.defWidth * f.scale
	}
	if i := code - f.firstChar; i >= 0 && i < len(f.widths) {
		return f.widths[i] * f.scale
	}
	if f.defWidth >= 0 && len(f.widths) > 0 {
		return f.defWidth * f.scale
	}
	if f.core != "" && code < 256 {
		return float64(pdffont.CharWidth(f.core, rune(code))) * f.scale
	}
	if f.defWidth >= 0 {
		return f.defWidth * f.scale
	}
	return 500 * f.scale
}

// text returns the Unicode text for code, or "" when it cannot be determined.
func (f *font) text(code int) string {
	if s, ok := f.toUnicode[code]; ok {
		return s
	}
	if f.twoByte {
		return ""
	}
	if s, ok := f.diffs[code]; ok {
		return s
	}
	if r := f.enc.decode(byte(code)); r != 0 && r != '\ufffd' {
		return string(r)
	}
	return ""
}

// wordSpacing reports whether word spacing applies to code, which is only the case for the single-byte code 32.
func (f *font) wordSpacing(gc glyphCode) bool {
	return len(gc.raw) == 1 && gc.code == ' '
}

func loadToUnicode(xt *model.XRefTable, o types.Object) (map[int]string, error) {
	sd, _, err := xt.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return nil, fmt.Errorf("bad ToUnicode stream: %v", err)
	}
	if err := sd.Decode(); err != nil {
		return nil, err
	}
	return parseCMap(sd.Content)
}

// parseCMap reads the bfchar and bfrange mappings of a ToUnicode CMap.
func parseCMap(data []byte) (map[int]string, error) {
	ops, err := parseContent(data)
	if err != nil && len(ops) == 0 {
		return nil, err
	}

	m := make(map[int]string)
	for _, o := range ops {
		switch o.op {
		case "endbfchar":
			for i := 0; i+1 < len(o.operands); i += 2 {
				src, ok1 := o.operands[i].(str)
				dst, ok2 := o.operands[i+1].(str)
				if ok1 && ok2 {
					m[codeValue(src)] = utf16Text(dst)
				}
			}
		case "endbfrange":
			for i := 0; i+2 < len(o.operands); i += 3 {
				lo, ok1 := o.operands[i].(str)
				hi, ok2 := o.operands[i+1].(str)
				if !ok1 || !ok2 {
					continue
				}
				first, last := codeValue(lo), codeValue(hi)
				if last < first || last-first >= maxRangeSize {
					continue
				}
				switch dst := o.operands[i+2].(type) {
				case str:
					runes := []rune(utf16Text(dst))
					if len(runes) == 0 {
						continue
					}
					for c := first; c <= last; c++ {
						r := append([]rune(nil), runes...)
						r[len(r)-1] += rune(c - first)
						m[c] = string(r)
					}
				case array:
					for j, v := range dst {
						if s, ok := v.(str); ok && first+j <= last {
							m[first+j] = utf16Text(s)
						}
					}
				}
			}
		}
	}
	return m, nil
}

func codeValue(b []byte) int {
	c := 0
	for _, x := range b {
		c = c<<8 | int(x)
	}
	return c
}

func utf16Text(b []byte) string {
	if len(b)%2 == 1 {
		return string(b)
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}
