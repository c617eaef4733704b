// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package op

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/nifredact/audit"
	"github.com/hashicorp/nifredact/identifier"
	"github.com/hashicorp/nifredact/pdf"
	"github.com/hashicorp/nifredact/redact"
	"github.com/hashicorp/nifredact/util"
)

// ResultRecord is the key of the audit.Record in a processor Op's result.
const ResultRecord = "record"

var _ Runner = Processor{}

// Reporter receives page level events while a document is processed.
type Reporter interface {
	// Rejected is called for every candidate that failed validation and was left in place.
	Rejected(path string, page int, c identifier.Candidate)
	// Unlocated is called for a valid identifier that was extracted from the page text but could not be found on
	// the page.
	Unlocated(path string, page int, value string)
	// PageRedacted is called once per page on which n occurrences were redacted.
	PageRedacted(path string, page int, n int)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) Rejected(string, int, identifier.Candidate) {}
func (NopReporter) Unlocated(string, int, string)              {}
func (NopReporter) PageRedacted(string, int, int)              {}

type ProcessorConfig struct {
	// Source is the document to sanitize and Dest the path of the sanitized copy.
	Source string
	Dest   string
	// RelPath is the document's path relative to the input root. It identifies the processor.
	RelPath string

	Extractor *identifier.Extractor
	Validator *identifier.Validator
	Applier   *redact.Applier
	Reporter  Reporter
	Logger    hclog.Logger

	Dryrun bool
}

// Processor sanitizes one document: every valid identifier on every page is redacted and the result is saved to
// Dest. A document without anything to redact is copied unchanged.
type Processor struct {
	Source  string `json:"source"`
	Dest    string `json:"destination"`
	RelPath string `json:"path"`
	Dryrun  bool   `json:"dry_run"`

	extractor *identifier.Extractor
	validator *identifier.Validator
	applier   *redact.Applier
	reporter  Reporter
	l         hclog.Logger
}

func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if cfg.Source == "" || cfg.Dest == "" {
		return nil, ProcessorConfigError{
			config: cfg,
			err:    errors.New("source and destination must not be empty"),
		}
	}
	if cfg.RelPath == "" {
		cfg.RelPath = cfg.Source
	}
	if cfg.Extractor == nil {
		cfg.Extractor = identifier.DefaultExtractor()
	}
	if cfg.Validator == nil {
		cfg.Validator = identifier.DefaultValidator()
	}
	if cfg.Applier == nil {
		cfg.Applier = redact.NewApplier(nil)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = NopReporter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.L()
	}

	return &Processor{
		Source:    cfg.Source,
		Dest:      cfg.Dest,
		RelPath:   cfg.RelPath,
		Dryrun:    cfg.Dryrun,
		extractor: cfg.Extractor,
		validator: cfg.Validator,
		applier:   cfg.Applier,
		reporter:  cfg.Reporter,
		l:         cfg.Logger.Named("processor").With("path", cfg.RelPath),
	}, nil
}

func (p Processor) ID() string {
	return p.RelPath
}

// Run satisfies the Runner interface. The returned Op always carries an audit.Record under ResultRecord; on
// failure the record holds the error and nothing is written to Dest.
func (p Processor) Run() Op {
	startTime := time.Now()

	if p.Dryrun {
		p.l.Info("dry run, skipping", "destination", p.Dest)
		return New(p.ID(), map[string]any{ResultRecord: audit.Record{}}, Skip, nil, Params(p), startTime, time.Now())
	}

	rec, err := p.process()
	if err != nil {
		rec.Fail(err)
		p.l.Error("unable to sanitize document", "error", err)
		return New(p.ID(), map[string]any{ResultRecord: rec}, Fail, err, Params(p), startTime, time.Now())
	}

	p.l.Info("sanitized document", "redacted", rec.TotalRedacted, "destination", p.Dest)
	return New(p.ID(), map[string]any{ResultRecord: rec}, Success, nil, Params(p), startTime, time.Now())
}

// RecordOf returns the audit.Record stored in the result of a processor Op.
func RecordOf(o Op) audit.Record {
	rec, _ := o.Result[ResultRecord].(audit.Record)
	if rec.Error == "" && o.ErrString != "" {
		rec.Error = o.ErrString
	}
	return rec
}

func (p Processor) process() (audit.Record, error) {
	var rec audit.Record

	doc, err := pdf.Open(p.Source)
	if err != nil {
		return rec, OpenError{path: p.Source, err: err}
	}
	defer doc.Close()

	for n := 1; n <= doc.PageCount(); n++ {
		if err = p.page(doc, n, &rec); err != nil {
			return rec, PageError{page: n, err: err}
		}
	}

	if rec.TotalRedacted == 0 {
		if err = util.CopyFile(p.Dest, p.Source); err != nil {
			return rec, SaveError{path: p.Dest, err: err}
		}
		return rec, nil
	}
	if err = doc.Save(p.Dest); err != nil {
		return rec, SaveError{path: p.Dest, err: err}
	}
	return rec, nil
}

// page redacts every valid identifier on page n and commits the marks in one go.
func (p Processor) page(doc *pdf.Document, n int, rec *audit.Record) error {
	page, err := doc.Page(n)
	if err != nil {
		return err
	}
	text, err := page.Text()
	if err != nil {
		return err
	}

	candidates := p.candidates(text)
	redacted := 0
	for _, c := range candidates {
		if c.Verdict != identifier.Valid {
			p.l.Warn("invalid identifier left in place", "page", n, "value", c.Value, "verdict", c.Verdict)
			p.reporter.Rejected(p.RelPath, n, c)
			continue
		}

		count, err := p.applier.Apply(page, c)
		if err != nil {
			return err
		}
		if count == 0 {
			p.l.Warn("identifier not located on page", "page", n, "value", c.Value)
			p.reporter.Unlocated(p.RelPath, n, c.Value)
			continue
		}
		rec.Add(n, c.Value, count)
		redacted += count
	}

	if err = page.ApplyRedactions(); err != nil {
		return err
	}
	if redacted > 0 {
		p.l.Debug("redacted page", "page", n, "count", redacted)
		p.reporter.PageRedacted(p.RelPath, n, redacted)
	}
	return nil
}

// candidates extracts and validates identifiers from text, then adds the matches of any configured rules as
// valid candidates.
func (p Processor) candidates(text string) []identifier.Candidate {
	candidates := p.validator.Check(p.extractor.Extract(text))

	index := make(map[string]int, len(candidates))
	for i, c := range candidates {
		index[c.Value] = i
	}
	for _, m := range p.applier.RuleMatches(text) {
		if i, ok := index[m]; ok {
			candidates[i].Verdict = identifier.Valid
			continue
		}
		index[m] = len(candidates)
		candidates = append(candidates, identifier.Candidate{Value: m, Verdict: identifier.Valid})
	}
	return candidates
}

type ProcessorConfigError struct {
	config ProcessorConfig
	err    error
}

func (e ProcessorConfigError) Error() string {
	message := "invalid Processor Config"
	if e.err != nil {
		return fmt.Sprintf("%s: %s", message, e.err.Error())
	}
	return message
}

func (e ProcessorConfigError) Unwrap() error {
	return e.err
}

type OpenError struct {
	path string
	err  error
}

func (e OpenError) Error() string {
	return fmt.Sprintf("unable to open document, path=%s, err=%s", e.path, e.err.Error())
}

func (e OpenError) Unwrap() error {
	return e.err
}

type PageError struct {
	page int
	err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("unable to process page, page=%d, err=%s", e.page, e.err.Error())
}

func (e PageError) Unwrap() error {
	return e.err
}

type SaveError struct {
	path string
	err  error
}

func (e SaveError) Error() string {
	return fmt.Sprintf("unable to save document, path=%s, err=%s", e.path, e.err.Error())
}

func (e SaveError) Unwrap() error {
	return e.err
}
