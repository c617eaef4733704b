// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package op

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Status describes the result of an op run
type Status string

const (
	// Success means all systems green
	Success Status = "success"
	// Fail means that we detected a known error and can conclusively say that the op did not complete.
	Fail Status = "fail"
	// Skip means the op was intentionally not run, such as during a dry run.
	Skip Status = "skip"
	// Unknown means that we detected an error and the result is indeterminate (e.g. some side effect like disk
	// may or may not have completed) or we don't recognize the error.
	Unknown Status = "unknown"
)

// Op is the outcome of running a Runner.
type Op struct {
	Identifier string         `json:"op"`
	Result     map[string]any `json:"result"`
	ErrString  string         `json:"error"` // this simplifies json marshaling
	Error      error          `json:"-"`
	Status     Status         `json:"status"`
	Params     map[string]any `json:"params,omitempty"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
}

// New builds an Op, capturing the error message for serialization.
func New(id string, result map[string]any, status Status, err error, params map[string]any, start, end time.Time) Op {
	o := Op{
		Identifier: id,
		Result:     result,
		Error:      err,
		Status:     status,
		Params:     params,
		Start:      start,
		End:        end,
	}
	if err != nil {
		o.ErrString = err.Error()
	}
	return o
}

// Runner runs things and reports the outcome as an Op.
type Runner interface {
	ID() string
	Run() Op
}

// Params takes a Runner and returns a map of its public fields
func Params(r Runner) map[string]any {
	var inInterface map[string]any
	inrec, err := json.Marshal(&r)
	if err != nil {
		hclog.L().Error("op.Params failed to serialize params", "runner", r.ID(), "error", err)
	}
	_ = json.Unmarshal(inrec, &inInterface)
	return inInterface
}

// Exclude takes a slice of matcher strings and a slice of runners. If any of the runner identifiers match the exclude
// according to filepath.Match() then it will not be present in the returned runner slice.
func Exclude(excludes []string, runners []Runner) ([]Runner, error) {
	newRunners := make([]Runner, 0)
	for _, r := range runners {
		// Set our match flag if we get a hit for any of the matchers on this runner
		var match bool
		var err error
		for _, matcher := range excludes {
			match, err = filepath.Match(matcher, r.ID())
			if err != nil {
				return newRunners, fmt.Errorf("filter error: '%s' for '%s'", err, matcher)
			}
			if match {
				break
			}
		}

		// Add the runner back to our set if we have not matched an exclude
		if !match {
			newRunners = append(newRunners, r)
		}
	}
	return newRunners, nil
}

// Select takes a slice of matcher strings and a slice of runners. The only runners returned will be those
// matching the given select strings according to filepath.Match()
func Select(selects []string, runners []Runner) ([]Runner, error) {
	newRunners := make([]Runner, 0)
	for _, r := range runners {
		var match bool
		var err error
		for _, matcher := range selects {
			match, err = filepath.Match(matcher, r.ID())
			if err != nil {
				return newRunners, fmt.Errorf("filter error: '%s' for '%s'", err, matcher)
			}
			if match {
				break
			}
		}

		// Only include the runner if we've matched it
		if match {
			newRunners = append(newRunners, r)
		}
	}
	return newRunners, nil
}

// StatusCounts takes a slice of ops and returns a map containing sums of each Status
func StatusCounts(ops []Op) (map[Status]int, error) {
	statuses := make(map[Status]int)
	for _, o := range ops {
		if o.Status == "" {
			return nil, fmt.Errorf("unable to build Statuses map, op not run: op=%s", o.Identifier)
		}
		statuses[o.Status]++
	}
	return statuses, nil
}
