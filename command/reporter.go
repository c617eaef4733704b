// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/nifredact/agent"
	"github.com/hashicorp/nifredact/identifier"
)

var _ agent.Reporter = uiReporter{}

// uiReporter prints run progress through a cli.Ui. With a cli.ColoredUi, Info lines are green, Warn lines yellow
// and Error lines red.
type uiReporter struct {
	ui cli.Ui
}

func newUIReporter(ui cli.Ui) uiReporter {
	return uiReporter{ui: ui}
}

func (r uiReporter) Rejected(path string, page int, c identifier.Candidate) {
	kind := "Invalid"
	if c.Verdict == identifier.Malformed {
		kind = "Malformed"
	}
	r.ui.Warn(fmt.Sprintf("[WARNING] %s NIF '%s' on page %d of %s", kind, c.Value, page, path))
}

func (r uiReporter) Unlocated(path string, page int, value string) {
	r.ui.Warn(fmt.Sprintf("[WARNING] NIF '%s' on page %d of %s could not be located for redaction", value, page, path))
}

func (r uiReporter) PageRedacted(_ string, page int, n int) {
	r.ui.Info(fmt.Sprintf("[PAGE %d] Redacted %d NIF(s)", page, n))
}

func (r uiReporter) Processed(path string, redacted int) {
	if redacted == 0 {
		r.ui.Warn(fmt.Sprintf("[NO MATCH] %s", path))
		return
	}
	r.ui.Info(fmt.Sprintf("[REDACTED %d] %s", redacted, path))
}

func (r uiReporter) Failed(path string, err error) {
	r.ui.Error(fmt.Sprintf("[ERROR] %s: %s", path, err))
}

func (r uiReporter) Skipped(path string) {
	r.ui.Output(fmt.Sprintf("[DRY RUN] %s", path))
}

func (r uiReporter) Finished(a *agent.Agent) {
	if a.NumErrors > 0 {
		r.ui.Warn(fmt.Sprintf("[DONE] %d of %d files processed, %d failed", a.NumFiles-a.NumErrors, a.NumFiles, a.NumErrors))
		return
	}
	r.ui.Info("[DONE] All files processed")
}
