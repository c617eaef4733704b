// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

// Package audit records what every run redacted in an append-only JSON Lines log.
package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultFileName is the log file name under the output root.
const DefaultFileName = "redaction_log.jsonl"

const pagePrefix = "page_"

// Record is what was redacted in one file: occurrence counts per page and identifier. When Error is set the
// counts are not complete.
type Record struct {
	Pages         map[int]map[string]int
	TotalRedacted int
	Error         string
}

// Add records n occurrences of id on page. Pages only appear once something was redacted on them.
func (r *Record) Add(page int, id string, n int) {
	if n <= 0 {
		return
	}
	if r.Pages == nil {
		r.Pages = make(map[int]map[string]int)
	}
	if r.Pages[page] == nil {
		r.Pages[page] = make(map[string]int)
	}
	r.Pages[page][id] += n
	r.TotalRedacted += n
}

// Fail marks the record as failed.
func (r *Record) Fail(err error) {
	if err != nil {
		r.Error = err.Error()
	}
}

// Failed reports whether the file could not be processed.
func (r Record) Failed() bool {
	return r.Error != ""
}

// MarshalJSON writes the page entries in page order, followed by total_redacted and, on failure, error.
func (r Record) MarshalJSON() ([]byte, error) {
	pages := make([]int, 0, len(r.Pages))
	for p := range r.Pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, p := range pages {
		counts, err := json.Marshal(r.Pages[p])
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:%s,", pagePrefix+strconv.Itoa(p), counts)
	}
	fmt.Fprintf(&buf, `"total_redacted":%d`, r.TotalRedacted)
	if r.Error != "" {
		msg, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"error":`)
		buf.Write(msg)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{}
	for k, v := range raw {
		switch {
		case k == "total_redacted":
			if err := json.Unmarshal(v, &r.TotalRedacted); err != nil {
				return fmt.Errorf("total_redacted: %w", err)
			}
		case k == "error":
			if err := json.Unmarshal(v, &r.Error); err != nil {
				return fmt.Errorf("error: %w", err)
			}
		case strings.HasPrefix(k, pagePrefix):
			n, err := strconv.Atoi(strings.TrimPrefix(k, pagePrefix))
			if err != nil {
				return fmt.Errorf("invalid page key %q", k)
			}
			var counts map[string]int
			if err = json.Unmarshal(v, &counts); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			if r.Pages == nil {
				r.Pages = make(map[int]map[string]int)
			}
			r.Pages[n] = counts
		}
	}
	return nil
}

// RunLog is one line of the audit log.
type RunLog struct {
	Timestamp time.Time         `json:"timestamp"`
	InputDir  string            `json:"input_dir"`
	OutputDir string            `json:"output_dir"`
	Files     map[string]Record `json:"files"`
}

// Logger appends run logs to a file. Concurrent runs against the same file are not supported.
type Logger struct {
	path string
	l    hclog.Logger
}

// NewLogger returns a Logger writing to name under dir. An empty name selects DefaultFileName.
func NewLogger(dir, name string, logger hclog.Logger) *Logger {
	if name == "" {
		name = DefaultFileName
	}
	return &Logger{
		path: filepath.Join(dir, name),
		l:    logger.Named("audit"),
	}
}

func (lg *Logger) Path() string {
	return lg.path
}

// Append writes run as a single line at the end of the log, creating the log if needed. Earlier lines are never
// modified.
func (lg *Logger) Append(run RunLog) error {
	if run.Files == nil {
		run.Files = map[string]Record{}
	}
	line, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("unable to encode run log: %w", err)
	}
	line = append(line, '\n')

	if err = os.MkdirAll(filepath.Dir(lg.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(lg.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("unable to open audit log: %w", err)
	}

	if _, err = f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("unable to write audit log: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	lg.l.Info("appended run to audit log", "path", lg.path, "files", len(run.Files))
	return nil
}

// ReadAll returns every run recorded in the log at path, oldest first. A missing log holds no runs.
func ReadAll(path string) ([]RunLog, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var runs []RunLog
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var run RunLog
		if err := json.Unmarshal(line, &run); err != nil {
			return runs, fmt.Errorf("%s line %d: %w", path, n, err)
		}
		runs = append(runs, run)
	}
	return runs, sc.Err()
}
