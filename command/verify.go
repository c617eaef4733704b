// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/mitchellh/cli"
	"github.com/mitchellh/go-homedir"

	"github.com/hashicorp/nifredact/agent"
	"github.com/hashicorp/nifredact/audit"
	"github.com/hashicorp/nifredact/hcl"
	"github.com/hashicorp/nifredact/util"
	"github.com/hashicorp/nifredact/verify"
)

var _ cli.Command = &VerifyCommand{}

type VerifyCommand struct {
	ui    cli.Ui
	flags *flag.FlagSet

	extension string
	logFile   string
	config    string
}

func (c *VerifyCommand) init() {
	const (
		extensionUsageText = "`Extension` of the documents to check, matched without regard to case"
		logFileUsageText   = "`Name` of the audit log file within the directory"
		configUsageText    = "`Path` to HCL configuration file; its output_dir is checked when no directory is given"
	)

	c.flags = flag.NewFlagSet("verify", flag.ContinueOnError)
	c.flags.StringVar(&c.extension, "extension", "", extensionUsageText)
	c.flags.StringVar(&c.logFile, "log-file", "", logFileUsageText)
	c.flags.StringVar(&c.config, "config", "", configUsageText)
	c.flags.SetOutput(io.Discard)
}

func NewVerifyCommand(ui cli.Ui) *VerifyCommand {
	c := &VerifyCommand{ui: ui}
	c.init()
	return c
}

// VerifyCommandFactory provides a cli.CommandFactory that will produce an appropriately-initiated *command.
func VerifyCommandFactory(ui cli.Ui) cli.CommandFactory {
	return func() (cli.Command, error) {
		return NewVerifyCommand(ui), nil
	}
}

func (c *VerifyCommand) Help() string {
	helpText := `Usage: nifredact verify [options] [directory]

Re-reads every document under a directory of sanitized copies with an independent text extractor and reports
any valid DNI, NIF or NIE that can still be recovered. The command fails when one is found.
`
	return usage(helpText, c.flags,
		flagGroup{title: "Document Options", names: []string{"extension", "log-file"}},
	)
}

func (c *VerifyCommand) Synopsis() string {
	return "Check sanitized documents for residual identifiers"
}

func (c *VerifyCommand) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		c.ui.Warn(err.Error())
		c.ui.Warn(c.Help())
		return FlagParseError
	}

	l := configureLogging("nifredact")

	var h hcl.HCL
	if c.config != "" {
		configPath, err := homedir.Expand(c.config)
		if err != nil {
			l.Error("Failed to expand configuration path", "config", c.config, "error", err)
			return ConfigError
		}
		if h, err = hcl.Parse(configPath); err != nil {
			l.Error("Failed to load configuration", "config", c.config, "error", err)
			return ConfigError
		}
	}

	var dir string
	switch c.flags.NArg() {
	case 0:
		dir = h.OutputDir
	case 1:
		dir = c.flags.Arg(0)
	default:
		c.ui.Warn(fmt.Sprintf("expected at most one directory, got %v", c.flags.Args()))
		c.ui.Warn(c.Help())
		return FlagParseError
	}
	if dir == "" {
		c.ui.Warn("a directory to verify is required")
		c.ui.Warn(c.Help())
		return FlagParseError
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		l.Error("Failed to expand directory", "dir", dir, "error", err)
		return ConfigError
	}
	if !util.IsDir(dir) {
		c.ui.Error(fmt.Sprintf("[ERROR] %s directory not found", dir))
		return RootNotFoundError
	}

	extractor, err := h.Extractor()
	if err != nil {
		l.Error("Invalid identifier pattern", "error", err)
		return ConfigError
	}
	validator, err := h.Validator()
	if err != nil {
		l.Error("Invalid identifier table", "error", err)
		return ConfigError
	}

	c.reportLastRun(dir, pick(c.logFile, pick(h.LogFile, audit.DefaultFileName)))

	ext := pick(c.extension, pick(h.Extension, agent.DefaultExtension))
	res, err := verify.New(l, extractor, validator).Dir(dir, ext)
	if res.Files == 0 && err == nil {
		c.ui.Warn(fmt.Sprintf("[WARNING] No %s files found on %s", ext, dir))
		return NoFilesFoundError
	}
	for _, r := range res.Residuals {
		c.ui.Error(fmt.Sprintf("[RESIDUAL] %s", r))
	}
	if len(res.Residuals) > 0 {
		return ResidualsFoundError
	}
	if err != nil {
		c.ui.Error(fmt.Sprintf("[ERROR] %s", err))
		return RunError
	}

	c.ui.Info(fmt.Sprintf("[OK] %d files verified, no residual identifiers", res.Files))
	return Success
}

// reportLastRun prints what the most recent run recorded in the audit log under dir, if there is one.
func (c *VerifyCommand) reportLastRun(dir, logFile string) {
	runs, err := audit.ReadAll(filepath.Join(dir, logFile))
	if err != nil {
		c.ui.Warn(fmt.Sprintf("[WARNING] unable to read audit log: %s", err))
		return
	}
	if len(runs) == 0 {
		return
	}

	last := runs[len(runs)-1]
	total, failed := 0, 0
	for _, rec := range last.Files {
		total += rec.TotalRedacted
		if rec.Failed() {
			failed++
		}
	}
	c.ui.Output(fmt.Sprintf("Last run %s: %d files, %d redacted, %d failed (%d runs logged)",
		last.Timestamp.Format(time.RFC3339), len(last.Files), total, failed, len(runs)))
}
