// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package hcl

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/hashicorp/nifredact/identifier"
	"github.com/hashicorp/nifredact/redact"
)

type HCL struct {
	InputDir  string `hcl:"input_dir,optional" json:"input_dir"`
	OutputDir string `hcl:"output_dir,optional" json:"output_dir"`
	Extension string `hcl:"extension,optional" json:"extension"`
	LogFile   string `hcl:"log_file,optional" json:"log_file"`
	Bundle    string `hcl:"bundle,optional" json:"bundle"`

	Excludes []string `hcl:"excludes,optional" json:"excludes"`
	Selects  []string `hcl:"selects,optional" json:"selects"`

	Identifier *Identifier `hcl:"identifier,block" json:"identifier"`
	Redactions []Redact    `hcl:"redact,block" json:"redactions"`
}

// Identifier overrides how identifiers are found and checked.
type Identifier struct {
	Pattern string `hcl:"pattern,optional" json:"pattern"`
	Table   string `hcl:"table,optional" json:"table"`
}

type Redact struct {
	Label string `hcl:"name,label" json:"name"`
	ID    string `hcl:"id,optional" json:"id"`
	Match string `hcl:"match" json:"match"`
}

// Parse takes a file path and decodes the file from disk into HCL types.
func Parse(path string) (HCL, error) {
	var h HCL
	err := hclsimple.DecodeFile(path, nil, &h)
	if err != nil {
		return HCL{}, err
	}
	return h, nil
}

// Extractor returns the extractor configured by the identifier block, or the default one.
func (h HCL) Extractor() (*identifier.Extractor, error) {
	if h.Identifier == nil || h.Identifier.Pattern == "" {
		return identifier.DefaultExtractor(), nil
	}
	return identifier.NewExtractor(h.Identifier.Pattern)
}

// Validator returns the validator configured by the identifier block, or the default one.
func (h HCL) Validator() (*identifier.Validator, error) {
	if h.Identifier == nil || h.Identifier.Table == "" {
		return identifier.DefaultValidator(), nil
	}
	return identifier.NewValidator(h.Identifier.Table, nil)
}

// MapRedacts maps HCL redactions to "real" `redact.Redact`s. Literal matches are quoted so they match verbatim.
func MapRedacts(redactions []Redact) ([]*redact.Redact, error) {
	err := ValidateRedactions(redactions)
	if err != nil {
		return nil, err
	}

	s := make([]*redact.Redact, len(redactions))
	for i, r := range redactions {
		matcher := r.Match
		if r.Label == "literal" {
			matcher = regexp.QuoteMeta(r.Match)
		}
		red, err := redact.New(matcher, r.ID)
		if err != nil {
			return nil, err
		}
		s[i] = red
	}
	return s, nil
}

// ValidateRedactions takes a slice of redactions and ensures they match valid names.
func ValidateRedactions(redactions []Redact) error {
	hclog.L().Trace("hcl.ValidateRedactions()", "redactions", redactions)
	for _, r := range redactions {
		switch r.Label {
		case "regex":
			_, err := regexp.Compile(r.Match)
			if err != nil {
				return fmt.Errorf("could not compile regex, matcher=%s, err=%s", r.Match, err)
			}
		case "literal":
			if r.Match == "" {
				return fmt.Errorf("literal redact must not be empty, id=%s", r.ID)
			}
		default:
			return fmt.Errorf("invalid redact name, name=%s", r.Label)
		}
	}
	return nil
}
