// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package hcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/nifredact/identifier"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name   string
		path   string
		expect HCL
	}{
		{
			name:   "Empty config is valid",
			path:   "testdata/empty.hcl",
			expect: HCL{},
		},
		{
			name: "Every attribute and block is decoded",
			path: "testdata/full.hcl",
			expect: HCL{
				InputDir:  "~/expedientes/doc",
				OutputDir: "/srv/expedientes/redacted_output",
				Extension: ".PDF",
				LogFile:   "audit.jsonl",
				Bundle:    "/srv/expedientes/redacted.tar.gz",
				Selects:   []string{"2024/*"},
				Excludes:  []string{"2024/borradores-*"},
				Identifier: &Identifier{
					Pattern: `\b(\d{8}[A-Z])\b`,
				},
				Redactions: []Redact{
					{Label: "literal", ID: "pinned", Match: "47590565T"},
					{Label: "regex", Match: "EXP-[0-9]{4}"},
				},
			},
		},
	}

	for _, tc := range testCases {
		res, err := Parse(tc.path)
		assert.NoError(t, err, tc.name)
		assert.Equal(t, tc.expect, res, tc.name)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("testdata/invalid.hcl")
	assert.Error(t, err)

	_, err = Parse("testdata/does-not-exist.hcl")
	assert.Error(t, err)
}

func TestHCL_Identifier(t *testing.T) {
	h, err := Parse("testdata/full.hcl")
	require.NoError(t, err)

	e, err := h.Extractor()
	require.NoError(t, err)
	assert.Equal(t, []string{"00000001R"}, e.Extract("00000001R X1234567L"))

	v, err := h.Validator()
	require.NoError(t, err)
	assert.Equal(t, identifier.Valid, v.Validate("00000001R"))

	empty := HCL{}
	e, err = empty.Extractor()
	require.NoError(t, err)
	assert.Equal(t, []string{"00000001R", "X1234567L"}, e.Extract("00000001R X1234567L"))

	_, err = HCL{Identifier: &Identifier{Table: "TOO SHORT"}}.Validator()
	assert.Error(t, err)
	_, err = HCL{Identifier: &Identifier{Pattern: "(unclosed"}}.Extractor()
	assert.Error(t, err)
}

func TestMapRedacts(t *testing.T) {
	h, err := Parse("testdata/full.hcl")
	require.NoError(t, err)

	redactions, err := MapRedacts(h.Redactions)
	require.NoError(t, err)
	require.Len(t, redactions, 2)
	assert.Equal(t, "pinned", redactions[0].ID)
	assert.NotEmpty(t, redactions[1].ID)
	assert.Equal(t, []string{"47590565T"}, redactions[0].Matches("a 47590565T b"))
	assert.Equal(t, []string{"EXP-0001"}, redactions[1].Matches("EXP-0001"))

	// Literal matches are taken verbatim.
	lit, err := MapRedacts([]Redact{{Label: "literal", Match: "a.b"}})
	require.NoError(t, err)
	assert.Empty(t, lit[0].Matches("axb"))
	assert.Equal(t, []string{"a.b"}, lit[0].Matches("a.b"))

	bad, err := Parse("testdata/bad_redact.hcl")
	require.NoError(t, err)
	_, err = MapRedacts(bad.Redactions)
	assert.Error(t, err)
}

func TestValidateRedactions(t *testing.T) {
	type testCase struct {
		name       string
		redactions []Redact
	}
	shouldPass := []testCase{
		{
			name:       "empty redactions",
			redactions: []Redact{},
		},
		{
			name: "one literal",
			redactions: []Redact{
				{
					Label: "literal",
					Match: "47590565T",
				},
			},
		},
		{
			name: "many regexes",
			redactions: []Redact{
				{
					Label: "regex",
					ID:    "reg1",
					Match: "just a regex",
				},
				{
					Label: "regex",
					ID:    "reg2",
					Match: "^a very fancy (.) regex?",
				},
			},
		},
		{
			name: "both regexes and literals",
			redactions: []Redact{
				{
					Label: "regex",
					ID:    "reg",
					Match: "just a regex",
				},
				{
					Label: "literal",
					ID:    "lit",
					Match: "something",
				},
			},
		},
	}
	shouldErr := []testCase{
		{
			name: "bad label",
			redactions: []Redact{
				{
					Label: "shouldNotMatchAnyRegexLabel",
				},
			},
		},
		{
			name: "one bad regex",
			redactions: []Redact{
				{
					Label: "regex",
					ID:    "bad-reg-perl-stuff",
					Match: "\"^/(?!/)(.*?)\"",
				},
			},
		},
		{
			name: "empty literal",
			redactions: []Redact{
				{
					Label: "literal",
				},
			},
		},
	}
	for _, tc := range shouldPass {
		assert.NoError(t, ValidateRedactions(tc.redactions), tc.name)
	}
	for _, tc := range shouldErr {
		assert.Error(t, ValidateRedactions(tc.redactions), tc.name)
	}
}
