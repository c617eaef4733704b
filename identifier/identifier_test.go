// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	tcs := []struct {
		name   string
		input  string
		expect Verdict
	}{
		{name: "index zero", input: "00000000T", expect: Valid},
		{name: "index one", input: "00000001R", expect: Valid},
		{name: "wrong letter", input: "00000001T", expect: Invalid},
		{name: "eight digits", input: "12345678Z", expect: Valid},
		{name: "eight digits wrong letter", input: "12345678A", expect: Invalid},
		{name: "lower case is normalized", input: "00000001r", expect: Valid},
		{name: "seven digits", input: "1234567L", expect: Valid},
		{name: "nie X prefix", input: "X0000000T", expect: Valid},
		{name: "nie Y prefix", input: "Y0000000Z", expect: Valid},
		{name: "nie Z prefix", input: "Z0000000M", expect: Valid},
		{name: "nie wrong letter", input: "X0000000R", expect: Invalid},
		{name: "empty", input: "", expect: Malformed},
		{name: "single letter", input: "T", expect: Malformed},
		{name: "non digit body", input: "00A00001R", expect: Malformed},
		{name: "unknown prefix", input: "W0000000T", expect: Malformed},
		{name: "overflow", input: "99999999999999999999999T", expect: Malformed},
	}

	v := DefaultValidator()
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, v.Validate(tc.input), tc.input)
		})
	}
}

func TestNewValidator(t *testing.T) {
	_, err := NewValidator("TRW", nil)
	assert.Error(t, err)

	v, err := NewValidator("", nil)
	require.NoError(t, err)
	assert.Equal(t, Valid, v.Validate("00000000T"))

	// A rotated table moves every check letter by one position.
	rotated := DefaultTable[1:] + DefaultTable[:1]
	v, err = NewValidator(rotated, map[byte]byte{})
	require.NoError(t, err)
	assert.Equal(t, Valid, v.Validate("00000000R"))
	assert.Equal(t, Malformed, v.Validate("X0000000T"), "prefix substitution disabled")
}

func TestValidator_Check(t *testing.T) {
	got := DefaultValidator().Check([]string{"00000001R", "00000001T"})
	assert.Equal(t, []Candidate{
		{Value: "00000001R", Verdict: Valid},
		{Value: "00000001T", Verdict: Invalid},
	}, got)
}

func TestExtractor_Extract(t *testing.T) {
	tcs := []struct {
		name   string
		text   string
		expect []string
	}{
		{
			name:   "no candidates",
			text:   "nothing to see here",
			expect: []string{},
		},
		{
			name:   "single candidate",
			text:   "DNI: 00000001R.",
			expect: []string{"00000001R"},
		},
		{
			name:   "duplicates collapse",
			text:   "00000001R and again 00000001R",
			expect: []string{"00000001R"},
		},
		{
			name:   "lower case is upper-cased",
			text:   "nie x0000000t",
			expect: []string{"X0000000T"},
		},
		{
			name:   "seven and eight digits",
			text:   "1234567L 12345678Z",
			expect: []string{"12345678Z", "1234567L"},
		},
		{
			name:   "nine digits never match",
			text:   "123456789Z",
			expect: []string{},
		},
		{
			name:   "six digits never match",
			text:   "123456Z",
			expect: []string{},
		},
		{
			name:   "embedded in a word does not match",
			text:   "ref00000001R AB00000001RX",
			expect: []string{},
		},
		{
			name:   "adjacent punctuation is a boundary",
			text:   "(00000001R),[12345678A]",
			expect: []string{"00000001R", "12345678A"},
		},
	}

	e := DefaultExtractor()
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, e.Extract(tc.text))
		})
	}
}

func TestNewExtractor(t *testing.T) {
	_, err := NewExtractor("(")
	assert.Error(t, err)

	e, err := NewExtractor(`\d{3}-[A-Z]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"123-A"}, e.Extract("x 123-A y 45-B"))
}
