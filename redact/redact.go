// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

// Package redact turns validated identifiers and configured rules into redaction marks on a page.
package redact

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"sort"

	"github.com/hashicorp/nifredact/identifier"
	"github.com/hashicorp/nifredact/pdf"
)

// Page is the part of a document page the applier needs.
type Page interface {
	Search(literal string) ([]pdf.Rect, error)
	AddRedaction(r pdf.Rect)
}

// Redact is an extra redaction rule. Every match of its expression in page text is redacted like a valid
// identifier.
type Redact struct {
	ID      string `json:"ID"`
	matcher *regexp.Regexp
}

// New takes the matcher as a string and returns a compiled and ready-to-use rule. ID is optional and can be
// left empty.
func New(matcher, id string) (*Redact, error) {
	r, err := regexp.Compile(matcher)
	if err != nil {
		return nil, err
	}
	if id == "" {
		genID := md5.Sum([]byte(matcher))
		id = fmt.Sprintf("%x", genID)
	}
	return &Redact{ID: id, matcher: r}, nil
}

// Matches returns the distinct literals x matches in text.
func (x Redact) Matches(text string) []string {
	return unique(x.matcher.FindAllString(text, -1))
}

// Applier adds redaction marks to pages.
type Applier struct {
	rules []*Redact
}

func NewApplier(rules []*Redact) *Applier {
	return &Applier{rules: rules}
}

// Rules returns the extra rules the applier was built with.
func (a *Applier) Rules() []*Redact {
	return a.rules
}

// RuleMatches returns the distinct literals matched by every rule in text, sorted.
func (a *Applier) RuleMatches(text string) []string {
	var all []string
	for _, r := range a.rules {
		all = append(all, r.Matches(text)...)
	}
	return unique(all)
}

// Apply marks every occurrence of c on p and returns the number of marks added. Candidates that are not
// valid are never marked. Nothing is removed until the page's redactions are applied.
func (a *Applier) Apply(p Page, c identifier.Candidate) (int, error) {
	if c.Verdict != identifier.Valid || c.Value == "" {
		return 0, nil
	}
	rects, err := p.Search(c.Value)
	if err != nil {
		return 0, fmt.Errorf("unable to search for %s: %w", c.Value, err)
	}
	for _, r := range rects {
		p.AddRedaction(r)
	}
	return len(rects), nil
}

func unique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := set[s]; ok || s == "" {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
