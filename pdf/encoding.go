// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package pdf

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

type baseEncoding int

const (
	standardEncoding baseEncoding = iota
	winAnsiEncoding
	macRomanEncoding
	// symbolicEncoding maps codes to themselves; used for fonts whose built-in encoding is unknown.
	symbolicEncoding
)

func encodingFromName(n string) (baseEncoding, bool) {
	switch n {
	case "WinAnsiEncoding":
		return winAnsiEncoding, true
	case "MacRomanEncoding":
		return macRomanEncoding, true
	case "StandardEncoding", "MacExpertEncoding":
		return standardEncoding, true
	}
	return standardEncoding, false
}

func (e baseEncoding) decode(code byte) rune {
	switch e {
	case winAnsiEncoding:
		return charmap.Windows1252.DecodeByte(code)
	case macRomanEncoding:
		return charmap.Macintosh.DecodeByte(code)
	case symbolicEncoding:
		return rune(code)
	}
	if r, ok := standardHigh[code]; ok {
		return r
	}
	if code >= 0x20 && code < 0x7f {
		return rune(code)
	}
	return 0
}

// standardHigh holds the StandardEncoding codes that differ from ASCII.
var standardHigh = map[byte]rune{
	0x27: '’', 0x60: '‘',
	0xa1: '¡', 0xa2: '¢', 0xa3: '£', 0xa4: '⁄', 0xa5: '¥', 0xa6: 'ƒ', 0xa7: '§',
	0xa8: '¤', 0xa9: '\'', 0xaa: '“', 0xab: '«', 0xac: '‹', 0xad: '›',
	0xae: 'ﬁ', 0xaf: 'ﬂ', 0xb1: '–', 0xb2: '†', 0xb3: '‡',
	0xb4: '·', 0xb6: '¶', 0xb7: '•', 0xb8: '‚', 0xb9: '„', 0xba: '”',
	0xbb: '»', 0xbc: '…', 0xbd: '‰', 0xbf: '¿', 0xc1: '`', 0xc2: '´', 0xc3: 'ˆ',
	0xc4: '˜', 0xc5: '¯', 0xc6: '˘', 0xc7: '˙', 0xc8: '¨', 0xca: '˚', 0xcb: '¸', 0xcd: '˝',
	0xce: '˛', 0xcf: 'ˇ', 0xd0: '—', 0xe1: 'Æ', 0xe3: 'ª', 0xe8: 'Ł', 0xe9: 'Ø',
	0xea: 'Œ', 0xeb: 'º', 0xf1: 'æ', 0xf5: 'ı', 0xf8: 'ł', 0xf9: 'ø', 0xfa: 'œ', 0xfb: 'ß',
}

// glyphNames covers the Adobe glyph names that show up in Differences arrays of Latin documents.
var glyphNames = map[string]string{
	"space": " ", "exclam": "!", "quotedbl": "\"", "numbersign": "#", "dollar": "$",
	"percent": "%", "ampersand": "&", "quotesingle": "'", "quoteright": "’",
	"quoteleft": "‘", "parenleft": "(", "parenright": ")", "asterisk": "*", "plus": "+",
	"comma": ",", "hyphen": "-", "minus": "−", "period": ".", "slash": "/",
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4", "five": "5", "six": "6",
	"seven": "7", "eight": "8", "nine": "9", "colon": ":", "semicolon": ";", "less": "<",
	"equal": "=", "greater": ">", "question": "?", "at": "@", "bracketleft": "[",
	"backslash": "\\", "bracketright": "]", "asciicircum": "^", "underscore": "_",
	"grave": "`", "braceleft": "{", "bar": "|", "braceright": "}", "asciitilde": "~",
	"bullet": "•", "endash": "–", "emdash": "—", "ellipsis": "…",
	"quotedblleft": "“", "quotedblright": "”", "quotesinglbase": "‚",
	"quotedblbase": "„", "guillemotleft": "«", "guillemotright": "»", "Euro": "€",
	"exclamdown": "¡", "questiondown": "¿", "ordfeminine": "ª", "ordmasculine": "º",
	"degree": "°", "periodcentered": "·", "copyright": "©", "registered": "®",
	"section": "§", "paragraph": "¶", "nbspace": " ", "sfthyphen": "­",
	"fi": "fi", "fl": "fl", "ff": "ff", "ffi": "ffi", "ffl": "ffl",
	"Aacute": "Á", "Eacute": "É", "Iacute": "Í", "Oacute": "Ó", "Uacute": "Ú",
	"aacute": "á", "eacute": "é", "iacute": "í", "oacute": "ó", "uacute": "ú",
	"Agrave": "À", "Egrave": "È", "Igrave": "Ì", "Ograve": "Ò", "Ugrave": "Ù",
	"agrave": "à", "egrave": "è", "igrave": "ì", "ograve": "ò", "ugrave": "ù",
	"Adieresis": "Ä", "Edieresis": "Ë", "Idieresis": "Ï", "Odieresis": "Ö", "Udieresis": "Ü",
	"adieresis": "ä", "edieresis": "ë", "idieresis": "ï", "odieresis": "ö", "udieresis": "ü",
	"Acircumflex": "Â", "Ecircumflex": "Ê", "Icircumflex": "Î", "Ocircumflex": "Ô",
	"Ucircumflex": "Û", "acircumflex": "â", "ecircumflex": "ê", "icircumflex": "î",
	"ocircumflex": "ô", "ucircumflex": "û", "Ntilde": "Ñ", "ntilde": "ñ", "Ccedilla": "Ç",
	"ccedilla": "ç", "Atilde": "Ã", "atilde": "ã", "Otilde": "Õ", "otilde": "õ",
	"germandbls": "ß",
}

// glyphText maps a glyph name to the text it represents, following the Adobe glyph list conventions
// for single letters, uniXXXX and uXXXX[XX] names, suffixes and ligature components.
func glyphText(n string) (string, bool) {
	if i := strings.IndexByte(n, '.'); i > 0 {
		n = n[:i]
	}
	if s, ok := glyphNames[n]; ok {
		return s, true
	}
	if len(n) == 1 {
		return n, true
	}
	if strings.Contains(n, "_") {
		var b strings.Builder
		for _, part := range strings.Split(n, "_") {
			s, ok := glyphText(part)
			if !ok {
				return "", false
			}
			b.WriteString(s)
		}
		return b.String(), true
	}
	if strings.HasPrefix(n, "uni") && len(n) >= 7 && (len(n)-3)%4 == 0 {
		var b strings.Builder
		for i := 3; i < len(n); i += 4 {
			v, err := strconv.ParseUint(n[i:i+4], 16, 32)
			if err != nil {
				return "", false
			}
			b.WriteRune(rune(v))
		}
		return b.String(), true
	}
	if strings.HasPrefix(n, "u") && len(n) >= 5 && len(n) <= 7 {
		v, err := strconv.ParseUint(n[1:], 16, 32)
		if err == nil && v > 0 && v <= 0x10ffff {
			return string(rune(v)), true
		}
	}
	return "", false
}
