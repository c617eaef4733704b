// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

// Package agent runs a redaction pass over a directory tree, writing sanitized copies under a mirrored output tree
// and one audit log entry per run.
package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp/nifredact/audit"
	"github.com/hashicorp/nifredact/identifier"
	"github.com/hashicorp/nifredact/op"
	"github.com/hashicorp/nifredact/redact"
	"github.com/hashicorp/nifredact/util"
)

var (
	// ErrRootNotFound is returned when the input root does not exist or is not a directory.
	ErrRootNotFound = errors.New("input directory not found")

	// ErrNoFilesFound is returned when the input root holds no file with the target extension.
	ErrNoFilesFound = errors.New("no files found")
)

// Reporter receives progress events for the person running the tool.
type Reporter interface {
	op.Reporter

	// Processed is called after a file was sanitized, with the number of occurrences redacted in it.
	Processed(path string, redacted int)
	// Failed is called for a file that could not be sanitized.
	Failed(path string, err error)
	// Skipped is called for every file a dry run would process.
	Skipped(path string)
	// Finished is called once at the end of a run that processed files.
	Finished(a *Agent)
}

// Agent holds the configuration of a run and, once run, its results.
type Agent struct {
	l        hclog.Logger
	reporter Reporter
	records  map[string]audit.Record

	Start         time.Time    `json:"started_at"`
	End           time.Time    `json:"ended_at"`
	Duration      string       `json:"duration"`
	NumErrors     int          `json:"num_errors"`
	NumFiles      int          `json:"num_files"`
	TotalRedacted int          `json:"total_redacted"`
	Config        Config       `json:"configuration"`
	ManifestOps   []ManifestOp `json:"ops"`
}

func NewAgent(config Config, reporter Reporter, logger hclog.Logger) (*Agent, error) {
	if config.InputDir == "" {
		return nil, errors.New("input directory must not be empty")
	}
	if config.OutputDir == "" {
		config.OutputDir = DefaultOutputDir(config.InputDir)
	}
	if config.Extension == "" {
		config.Extension = DefaultExtension
	}
	if !strings.HasPrefix(config.Extension, ".") {
		config.Extension = "." + config.Extension
	}
	if config.LogFile == "" {
		config.LogFile = audit.DefaultFileName
	}
	if config.Extractor == nil {
		config.Extractor = identifier.DefaultExtractor()
	}
	if config.Validator == nil {
		config.Validator = identifier.DefaultValidator()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}

	var err error
	if config.InputDir, err = filepath.Abs(config.InputDir); err != nil {
		return nil, err
	}
	if config.OutputDir, err = filepath.Abs(config.OutputDir); err != nil {
		return nil, err
	}

	return &Agent{
		l:        logger.Named("agent"),
		reporter: reporter,
		records:  make(map[string]audit.Record),
		Config:   config,
	}, nil
}

// DefaultOutputDir returns the output root used when none is configured: redacted_output next to the input root.
func DefaultOutputDir(inputDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(inputDir)), "redacted_output")
}

// Run manages the Agent's lifecycle. We find the files, process each of them in turn, then append the run to the
// audit log. ErrRootNotFound and ErrNoFilesFound end the run before anything is written. A file that cannot be
// processed does not stop the run; its error is recorded and included in the returned error.
func (a *Agent) Run() error {
	a.Start = time.Now()
	defer a.recordEnd()

	if !util.IsDir(a.Config.InputDir) {
		return fmt.Errorf("%w: %s", ErrRootNotFound, a.Config.InputDir)
	}

	a.l.Info("Finding files", "input", a.Config.InputDir, "extension", a.Config.Extension)
	runners, err := a.Setup()
	if err != nil {
		return err
	}
	if len(runners) == 0 {
		return fmt.Errorf("%w: no %s files in %s", ErrNoFilesFound, a.Config.Extension, a.Config.InputDir)
	}

	if a.Config.Dryrun {
		for _, r := range runners {
			a.reporter.Skipped(r.ID())
			a.store(r.Run())
		}
		return nil
	}

	if err = os.MkdirAll(a.Config.OutputDir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	a.l.Info("Sanitizing files", "count", len(runners), "output", a.Config.OutputDir)
	var errs *multierror.Error
	for _, r := range runners {
		o := r.Run()
		a.store(o)
		if o.Error != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.Identifier, o.Error))
			a.reporter.Failed(o.Identifier, o.Error)
			continue
		}
		a.reporter.Processed(o.Identifier, op.RecordOf(o).TotalRedacted)
	}

	if err = a.WriteOutput(); err != nil {
		errs = multierror.Append(errs, err)
		a.l.Error("Failed writing output", "error", err)
	}

	a.recordEnd()
	a.reporter.Finished(a)
	return errs.ErrorOrNil()
}

// Setup builds one processor per file found under the input root, filtered by the configured selects and
// excludes. Files under the output root are never picked up, so an output root nested in the input root is safe to
// run twice.
func (a *Agent) Setup() ([]op.Runner, error) {
	files, err := util.FindFiles(a.Config.InputDir, a.Config.Extension)
	if err != nil {
		return nil, fmt.Errorf("unable to list files: %w", err)
	}

	applier := redact.NewApplier(a.Config.Redactions)
	runners := make([]op.Runner, 0, len(files))
	for _, f := range files {
		if within(a.Config.OutputDir, f) {
			a.l.Debug("skipping file in output directory", "path", f)
			continue
		}
		rel, err := util.RelPath(a.Config.InputDir, f)
		if err != nil {
			return nil, err
		}

		p, err := op.NewProcessor(op.ProcessorConfig{
			Source:    f,
			Dest:      filepath.Join(a.Config.OutputDir, filepath.FromSlash(rel)),
			RelPath:   rel,
			Extractor: a.Config.Extractor,
			Validator: a.Config.Validator,
			Applier:   applier,
			Reporter:  a.reporter,
			Logger:    a.l,
			Dryrun:    a.Config.Dryrun,
		})
		if err != nil {
			return nil, err
		}
		runners = append(runners, p)
	}

	if len(a.Config.Selects) > 0 {
		if runners, err = op.Select(a.Config.Selects, runners); err != nil {
			return nil, err
		}
	}
	if runners, err = op.Exclude(a.Config.Excludes, runners); err != nil {
		return nil, err
	}
	return runners, nil
}

// WriteOutput appends the run to the audit log and, if configured, archives the output root.
func (a *Agent) WriteOutput() error {
	if a.Config.Dryrun {
		return nil
	}

	lg := audit.NewLogger(a.Config.OutputDir, a.Config.LogFile, a.l)
	run := audit.RunLog{
		Timestamp: a.Start,
		InputDir:  a.Config.InputDir,
		OutputDir: a.Config.OutputDir,
		Files:     a.records,
	}
	if err := lg.Append(run); err != nil {
		return err
	}

	if a.Config.Bundle != "" {
		if err := util.Bundle(a.Config.OutputDir, a.Config.Bundle); err != nil {
			return fmt.Errorf("unable to create bundle: %w", err)
		}
		a.l.Info("Compressed and archived output directory", "dest", a.Config.Bundle)
	}
	return nil
}

// Records returns the audit record of every processed file, keyed by relative path.
func (a *Agent) Records() map[string]audit.Record {
	return a.records
}

// LogPath returns the path of the audit log.
func (a *Agent) LogPath() string {
	return filepath.Join(a.Config.OutputDir, a.Config.LogFile)
}

func (a *Agent) store(o op.Op) {
	a.ManifestOps = append(a.ManifestOps, manifestOp(o))
	a.NumFiles++
	if o.Status == op.Skip {
		return
	}
	if o.Error != nil {
		a.NumErrors++
	}
	rec := op.RecordOf(o)
	a.records[o.Identifier] = rec
	a.TotalRedacted += rec.TotalRedacted
}

func (a *Agent) recordEnd() {
	// Record the end timestamps so we can write it out.
	a.End = time.Now()
	a.Duration = fmt.Sprintf("%v seconds", a.End.Sub(a.Start).Seconds())
}

// within reports whether path lies inside dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type nopReporter struct {
	op.NopReporter
}

func (nopReporter) Processed(string, int) {}
func (nopReporter) Failed(string, error)  {}
func (nopReporter) Skipped(string)        {}
func (nopReporter) Finished(*Agent)       {}
