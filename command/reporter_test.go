// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"

	"github.com/hashicorp/nifredact/agent"
	"github.com/hashicorp/nifredact/identifier"
)

func TestUIReporter(t *testing.T) {
	ui := cli.NewMockUi()
	r := newUIReporter(ui)

	r.Rejected("a/b.pdf", 2, identifier.Candidate{Value: "12345678A", Verdict: identifier.Invalid})
	r.Rejected("a/b.pdf", 3, identifier.Candidate{Value: "X12A", Verdict: identifier.Malformed})
	r.Unlocated("a/b.pdf", 1, "00000001R")
	r.PageRedacted("a/b.pdf", 1, 2)
	r.Processed("a/b.pdf", 2)
	r.Processed("c.pdf", 0)
	r.Failed("d.pdf", errors.New("document is encrypted"))
	r.Skipped("e.pdf")

	assert.Equal(t, "[PAGE 1] Redacted 2 NIF(s)\n[REDACTED 2] a/b.pdf\n[DRY RUN] e.pdf\n", ui.OutputWriter.String())
	assert.Equal(t, "[WARNING] Invalid NIF '12345678A' on page 2 of a/b.pdf\n"+
		"[WARNING] Malformed NIF 'X12A' on page 3 of a/b.pdf\n"+
		"[WARNING] NIF '00000001R' on page 1 of a/b.pdf could not be located for redaction\n"+
		"[NO MATCH] c.pdf\n"+
		"[ERROR] d.pdf: document is encrypted\n", ui.ErrorWriter.String())
}

func TestUIReporter_Finished(t *testing.T) {
	tcs := []struct {
		name   string
		agent  agent.Agent
		stdout string
		stderr string
	}{
		{
			name:   "all processed",
			agent:  agent.Agent{NumFiles: 3},
			stdout: "[DONE] All files processed\n",
		},
		{
			name:   "some failed",
			agent:  agent.Agent{NumFiles: 3, NumErrors: 1},
			stderr: "[DONE] 2 of 3 files processed, 1 failed\n",
		},
	}

	for _, tc := range tcs {
		ui := cli.NewMockUi()
		newUIReporter(ui).Finished(&tc.agent)
		assert.Equal(t, tc.stdout, ui.OutputWriter.String(), tc.name)
		assert.Equal(t, tc.stderr, ui.ErrorWriter.String(), tc.name)
	}
}
