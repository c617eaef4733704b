// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"github.com/hashicorp/nifredact/identifier"
	"github.com/hashicorp/nifredact/redact"
)

// DefaultExtension is the extension of the documents processed when none is configured.
const DefaultExtension = ".pdf"

type Config struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	// Extension selects the files to process, ignoring case.
	Extension string `json:"extension"`
	// LogFile is the audit log file name under OutputDir.
	LogFile string `json:"log_file"`
	Dryrun  bool   `json:"dry_run"`
	// Bundle, when set, is the path of a tar.gz archive of OutputDir written at the end of a run.
	Bundle string `json:"bundle"`

	// Selects and Excludes filter files by their slash separated path relative to InputDir, per filepath.Match.
	Selects  []string `json:"selects"`
	Excludes []string `json:"excludes"`

	Redactions []*redact.Redact      `json:"-"`
	Extractor  *identifier.Extractor `json:"-"`
	Validator  *identifier.Validator `json:"-"`
}
