// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Operand values produced by the content lexer. Numbers are float64.
type (
	name    string
	array   []any
	dict    map[string]any
	keyword string
	// str holds the decoded bytes of a literal or hex string.
	str []byte
)

// operation is one content stream operator together with its operands. start and end delimit the
// operation in the source bytes so that edits can be spliced without re-serializing the whole stream.
type operation struct {
	op       string
	operands []any
	start    int
	end      int
}

var errUnterminated = errors.New("unterminated token")

type lexer struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// parseContent splits a content stream (or CMap) into operations.
func parseContent(data []byte) ([]operation, error) {
	l := &lexer{data: data}
	var (
		ops      []operation
		operands []any
		start    int
	)

	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		if len(operands) == 0 {
			start = l.pos
		}

		v, err := l.next()
		if err != nil {
			return ops, fmt.Errorf("content offset %d: %w", l.pos, err)
		}
		if v == nil {
			continue
		}

		kw, ok := v.(keyword)
		if !ok || kw == "true" || kw == "false" || kw == "null" {
			operands = append(operands, v)
			continue
		}

		if kw == "BI" {
			if err := l.skipInlineImage(); err != nil {
				return ops, fmt.Errorf("inline image at offset %d: %w", start, err)
			}
		}

		ops = append(ops, operation{
			op:       string(kw),
			operands: operands,
			start:    start,
			end:      l.pos,
		})
		operands = nil
	}

	return ops, nil
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// next reads one object or keyword. It returns nil for stray delimiters, which are skipped.
func (l *lexer) next() (any, error) {
	c := l.data[l.pos]
	switch {
	case c == '/':
		l.pos++
		return name(l.regular(true)), nil
	case c == '(':
		l.pos++
		return l.literal()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return l.dict()
		}
		l.pos++
		return l.hex()
	case c == '[':
		l.pos++
		return l.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		tok := l.regular(false)
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			// Malformed numbers such as "--1" are read as zero, the way viewers do.
			return float64(0), nil
		}
		return f, nil
	case isDelim(c):
		l.pos++
		return nil, nil
	default:
		return keyword(l.regular(false)), nil
	}
}

// regular reads a run of regular characters, decoding #xx escapes when asked to.
func (l *lexer) regular(escapes bool) string {
	var b bytes.Buffer
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isSpace(c) || isDelim(c) {
			break
		}
		if escapes && c == '#' && l.pos+2 < len(l.data) {
			if v, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				b.WriteByte(byte(v))
				l.pos += 3
				continue
			}
		}
		b.WriteByte(c)
		l.pos++
	}
	return b.String()
}

func (l *lexer) literal() (any, error) {
	var b bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return str(b.Bytes()), nil
			}
		case '\\':
			if l.pos >= len(l.data) {
				return nil, errUnterminated
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					b.WriteByte(byte(v))
					continue
				}
				b.WriteByte(e)
			}
			continue
		}
		b.WriteByte(c)
	}
	return nil, errUnterminated
}

func (l *lexer) hex() (any, error) {
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("bad hex string: %w", err)
				}
				out[i] = byte(v)
			}
			return str(out), nil
		}
		if isSpace(c) {
			continue
		}
		digits = append(digits, c)
	}
	return nil, errUnterminated
}

func (l *lexer) array() (any, error) {
	a := array{}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, errUnterminated
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return a, nil
		}
		v, err := l.next()
		if err != nil {
			return nil, err
		}
		if v != nil {
			a = append(a, v)
		}
	}
}

func (l *lexer) dict() (any, error) {
	d := dict{}
	var key *name
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, errUnterminated
		}
		if l.data[l.pos] == '>' {
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return d, nil
		}
		v, err := l.next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if key == nil {
			if n, ok := v.(name); ok {
				key = &n
			}
			continue
		}
		d[string(*key)] = v
		key = nil
	}
}

// skipInlineImage advances past the dictionary, the ID keyword and the binary data of an inline image.
func (l *lexer) skipInlineImage() error {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return errUnterminated
		}
		v, err := l.next()
		if err != nil {
			return err
		}
		if kw, ok := v.(keyword); ok && kw == "ID" {
			break
		}
	}
	// A single white-space character separates ID from the data.
	l.pos++

	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isSpace(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !isSpace(l.data[i+2]) && !isDelim(l.data[i+2]) {
			continue
		}
		l.pos = i + 2
		return nil
	}
	return errUnterminated
}
