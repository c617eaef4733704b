// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package identifier

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Verdict describes the outcome of checking a candidate against the check-letter table.
type Verdict string

const (
	// Valid means the trailing letter matches the check letter computed from the number.
	Valid Verdict = "VALID"
	// Invalid means the candidate is well formed but the trailing letter does not match.
	Invalid Verdict = "INVALID"
	// Malformed means the candidate cannot be interpreted as a number followed by a letter.
	Malformed Verdict = "MALFORMED"
)

const (
	// DefaultTable is the official check-letter table, indexed by number mod 23.
	DefaultTable = "TRWAGMYFPDXBNJZSQVHLCKE"

	// DefaultPattern matches an optional X/Y/Z prefix, 7 or 8 digits and a trailing letter on word boundaries.
	DefaultPattern = `(?i)\b([XYZ]?\d{7,8}[A-Z])\b`
)

// DefaultPrefixes maps NIE prefix letters to the digit that replaces them before the check is computed.
var DefaultPrefixes = map[byte]byte{
	'X': '0',
	'Y': '1',
	'Z': '2',
}

// Candidate is a normalized identifier found in page text, along with its verdict once validated.
type Candidate struct {
	Value   string  `json:"value"`
	Verdict Verdict `json:"verdict"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s (%s)", c.Value, c.Verdict)
}

// Validator computes verdicts for candidates.
type Validator struct {
	table    string
	prefixes map[byte]byte
}

// NewValidator returns a Validator for the given check-letter table and prefix substitutions. An empty table or nil
// prefixes select the defaults.
func NewValidator(table string, prefixes map[byte]byte) (*Validator, error) {
	if table == "" {
		table = DefaultTable
	}
	if prefixes == nil {
		prefixes = DefaultPrefixes
	}
	if len(table) != len(DefaultTable) {
		return nil, fmt.Errorf("check-letter table must hold %d letters, got %d", len(DefaultTable), len(table))
	}
	return &Validator{
		table:    strings.ToUpper(table),
		prefixes: prefixes,
	}, nil
}

// DefaultValidator returns a Validator using the official table and NIE prefixes.
func DefaultValidator() *Validator {
	v, _ := NewValidator(DefaultTable, DefaultPrefixes)
	return v
}

// Validate returns the Verdict for a single candidate. The candidate is upper-cased first.
func (v *Validator) Validate(candidate string) Verdict {
	c := strings.ToUpper(candidate)
	if len(c) < 2 {
		return Malformed
	}

	body := []byte(c[:len(c)-1])
	letter := c[len(c)-1]
	if sub, ok := v.prefixes[body[0]]; ok {
		body[0] = sub
	}
	for _, b := range body {
		if b < '0' || b > '9' {
			return Malformed
		}
	}

	n, err := strconv.ParseUint(string(body), 10, 64)
	if err != nil {
		return Malformed
	}

	if v.table[n%uint64(len(v.table))] != letter {
		return Invalid
	}
	return Valid
}

// Check validates every value and returns the resulting candidates in the same order.
func (v *Validator) Check(values []string) []Candidate {
	candidates := make([]Candidate, 0, len(values))
	for _, val := range values {
		candidates = append(candidates, Candidate{Value: val, Verdict: v.Validate(val)})
	}
	return candidates
}

// Extractor finds identifier-shaped substrings in text.
type Extractor struct {
	matcher *regexp.Regexp
}

// NewExtractor compiles pattern into an Extractor. An empty pattern selects DefaultPattern. The first capture group,
// when present, is what gets extracted.
func NewExtractor(pattern string) (*Extractor, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	r, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("unable to compile identifier pattern %q: %w", pattern, err)
	}
	return &Extractor{matcher: r}, nil
}

// DefaultExtractor returns an Extractor using DefaultPattern.
func DefaultExtractor() *Extractor {
	e, _ := NewExtractor(DefaultPattern)
	return e
}

// Extract returns the distinct upper-cased matches in text, sorted for stable output.
func (e *Extractor) Extract(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range e.matcher.FindAllStringSubmatch(text, -1) {
		val := m[0]
		if len(m) > 1 && m[1] != "" {
			val = m[1]
		}
		seen[strings.ToUpper(val)] = struct{}{}
	}

	found := make([]string, 0, len(seen))
	for val := range seen {
		found = append(found, val)
	}
	sort.Strings(found)
	return found
}
