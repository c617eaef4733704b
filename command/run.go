// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/mitchellh/go-homedir"

	"github.com/hashicorp/nifredact/agent"
	"github.com/hashicorp/nifredact/hcl"
	"github.com/hashicorp/nifredact/op"
	"github.com/hashicorp/nifredact/util"
)

const (
	// inputDirName is the directory looked for when no input directory is configured.
	inputDirName = "doc"
	// inputSearchLevels is how many directories, starting with the working directory, are searched for inputDirName.
	inputSearchLevels = 5
)

var _ cli.Command = &RunCommand{}

type RunCommand struct {
	ui    cli.Ui
	out   io.Writer
	flags *flag.FlagSet

	dryrun bool

	input     string
	output    string
	extension string
	logFile   string
	bundle    string

	// HCL file location
	config string
}

func (c *RunCommand) init() {
	const (
		inputUsageText     = "`Directory` tree of documents to sanitize. Defaults to the first 'doc' directory found in the working directory or up to four of its parents"
		outputUsageText    = "`Directory` the sanitized copies and the audit log are written to. Defaults to 'redacted_output' next to the input directory"
		extensionUsageText = "`Extension` of the documents to process, matched without regard to case"
		logFileUsageText   = "`Name` of the audit log file within the output directory"
		bundleUsageText    = "`Path` of a .tar.gz archive of the output directory to create after the run"
		dryrunUsageText    = "Displays all documents that would be processed during a normal run without actually processing them."
		configUsageText    = "`Path` to HCL configuration file"
	)

	// flag.ContinueOnError allows flag.Parse to return an error if one comes up, rather than doing an `os.Exit(2)`
	// on its own.
	c.flags = flag.NewFlagSet("run", flag.ContinueOnError)

	c.flags.BoolVar(&c.dryrun, "dryrun", false, dryrunUsageText)
	c.flags.StringVar(&c.input, "input", "", inputUsageText)
	c.flags.StringVar(&c.output, "output", "", outputUsageText)
	c.flags.StringVar(&c.extension, "extension", "", extensionUsageText)
	c.flags.StringVar(&c.logFile, "log-file", "", logFileUsageText)
	c.flags.StringVar(&c.bundle, "bundle", "", bundleUsageText)
	c.flags.StringVar(&c.config, "config", "", configUsageText)

	// When invalid flags are provided, Go will output a usage message of its own. If we direct our flag set to
	// io.Discard, it will effectively be hidden, allowing us to print our own Help message upon failure.
	c.flags.SetOutput(io.Discard)
}

// NewRunCommand produces a new *command pointer, initialized for use in a CLI application.
func NewRunCommand(ui cli.Ui) *RunCommand {
	c := &RunCommand{ui: ui, out: os.Stdout}
	c.init()
	return c
}

// RunCommandFactory provides a cli.CommandFactory that will produce an appropriately-initiated *command.
func RunCommandFactory(ui cli.Ui) cli.CommandFactory {
	return func() (cli.Command, error) {
		return NewRunCommand(ui), nil
	}
}

// Help provides help text to users who pass in the --help flag or who enter invalid options.
func (c *RunCommand) Help() string {
	helpText := `Usage: nifredact run [options]

Redacts every valid DNI, NIF and NIE found in the documents under the input directory. Sanitized copies are
written to the output directory with the same relative paths, and the run is appended to the audit log.
`

	return usage(helpText, c.flags,
		flagGroup{title: "Document Options", names: []string{"input", "extension", "dryrun"}},
		flagGroup{title: "Output Options", names: []string{"output", "log-file", "bundle"}},
	)
}

// Synopsis provides a brief description of the command, for inclusion in the application's primary --help.
func (c *RunCommand) Synopsis() string {
	return "Redact Spanish identifiers from a directory of documents"
}

// Run executes the command.
func (c *RunCommand) Run(args []string) int {
	if err := c.parseFlags(args); err != nil {
		// Output the specific error to help the user understand what went wrong.
		c.ui.Warn(err.Error())
		// Since there was an issue in input, let's show our Help to try and assist the user.
		c.ui.Warn(c.Help())
		return FlagParseError
	}

	l := configureLogging("nifredact")

	// Parse the HCL file if one was given; flags take precedence over its values.
	var h hcl.HCL
	if c.config != "" {
		configPath, err := homedir.Expand(c.config)
		if err != nil {
			l.Error("Failed to expand configuration path", "config", c.config, "error", err)
			return ConfigError
		}
		h, err = hcl.Parse(configPath)
		if err != nil {
			l.Error("Failed to load configuration", "config", c.config, "error", err)
			return ConfigError
		}
		l.Debug("HCL config is", "hcl", h)
	}

	cfg, err := c.mergeAgentConfig(h)
	if err != nil {
		l.Error("Invalid configuration", "error", err)
		c.ui.Error(fmt.Sprintf("[ERROR] %s", err))
		return ConfigError
	}

	if cfg.InputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			l.Error("Unable to determine working directory", "error", err)
			return SetupError
		}
		cfg.InputDir, err = util.FindDirUpward(wd, inputDirName, inputSearchLevels)
		if err != nil {
			c.ui.Error(fmt.Sprintf("[ERROR] %s", err))
			return RootNotFoundError
		}
		l.Info("Resolved input directory", "input", cfg.InputDir)
	}
	l.Debug("merged cfg", "cfg", fmt.Sprintf("%+v", cfg))

	a, err := agent.NewAgent(cfg, newUIReporter(c.ui), l)
	if err != nil {
		l.Error("problem creating agent", "error", err)
		return SetupError
	}

	rc := Success
	if err = a.Run(); err != nil {
		switch {
		case errors.Is(err, agent.ErrRootNotFound):
			c.ui.Error(fmt.Sprintf("[ERROR] %s directory not found", a.Config.InputDir))
			return RootNotFoundError
		case errors.Is(err, agent.ErrNoFilesFound):
			c.ui.Warn(fmt.Sprintf("[WARNING] No %s files found on %s", a.Config.Extension, a.Config.InputDir))
			return NoFilesFoundError
		case a.NumFiles == 0:
			l.Error("Run failed", "error", err)
			c.ui.Error(fmt.Sprintf("[ERROR] %s", err))
			return RunError
		default:
			l.Warn("Some files could not be sanitized", "errors", a.NumErrors)
			rc = RunError
		}
	}

	// Skip any reporting on dry runs because there are no results to handle
	if c.dryrun {
		return rc
	}

	if err = writeSummary(c.out, a.Config.OutputDir, a.ManifestOps); err != nil {
		l.Warn("failed to generate report summary; please review output files to ensure everything expected is present", "err", err)
		return OutputError
	}
	return rc
}

// configureLogging takes a logger name, sets the default configuration, grabs the LOG_LEVEL from our ENV vars, and
// returns a configured and usable logger.
func configureLogging(loggerName string) hclog.Logger {
	// Create logger, set default and log level
	appLogger := hclog.New(&hclog.LoggerOptions{
		Name:  loggerName,
		Color: hclog.AutoColor,
	})
	hclog.SetDefault(appLogger)
	if logStr := os.Getenv("LOG_LEVEL"); logStr != "" {
		if level := hclog.LevelFromString(logStr); level != hclog.NoLevel {
			appLogger.SetLevel(level)
			appLogger.Debug("Logger configuration change", "LOG_LEVEL", hclog.Fmt("%s", logStr))
		}
	}
	return hclog.Default()
}

func (c *RunCommand) parseFlags(args []string) error {
	if err := c.flags.Parse(args); err != nil {
		return err
	}
	if c.flags.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", c.flags.Args())
	}
	return nil
}

// mergeAgentConfig merges flags into the agent.Config, prioritizing flags over HCL config.
func (c *RunCommand) mergeAgentConfig(h hcl.HCL) (agent.Config, error) {
	var config agent.Config
	var err error

	config.Dryrun = c.dryrun
	config.Extension = pick(c.extension, h.Extension)
	config.LogFile = pick(c.logFile, h.LogFile)
	config.Selects = h.Selects
	config.Excludes = h.Excludes

	if config.InputDir, err = homedir.Expand(pick(c.input, h.InputDir)); err != nil {
		return config, err
	}
	if config.OutputDir, err = homedir.Expand(pick(c.output, h.OutputDir)); err != nil {
		return config, err
	}
	if config.Bundle, err = homedir.Expand(pick(c.bundle, h.Bundle)); err != nil {
		return config, err
	}

	if config.Redactions, err = hcl.MapRedacts(h.Redactions); err != nil {
		return config, err
	}
	if config.Extractor, err = h.Extractor(); err != nil {
		return config, err
	}
	if config.Validator, err = h.Validator(); err != nil {
		return config, err
	}
	return config, nil
}

// pick returns the flag value when set, and the HCL value otherwise.
func pick(flagValue, hclValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return hclValue
}

func writeSummary(writer io.Writer, outputDir string, manifestOps []agent.ManifestOp) error {
	if outputDir == "" {
		outputDir = "<unknown>"
	}
	helpText := fmt.Sprintf("The redaction run has completed. Sanitized copies can be found at %s.\n", outputDir)
	_, err := writer.Write([]byte(helpText))
	if err != nil {
		return err
	}

	t := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	headers := []string{
		"directory",
		string(op.Success),
		string(op.Fail),
		string(op.Skip),
		"redacted",
		"total",
	}

	_, err = fmt.Fprint(t, formatReportLine(headers...))
	if err != nil {
		return err
	}

	// Files are grouped by the directory they were found in, relative to the input directory.
	byDir := make(map[string][]agent.ManifestOp)
	for _, o := range manifestOps {
		dir := path.Dir(o.ID)
		byDir[dir] = append(byDir[dir], o)
	}

	// For deterministic output, we sort the directories in alphabetical order.
	var dirs []string
	for k := range byDir {
		dirs = append(dirs, k)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		var success, fail, skip, redacted int
		ops := byDir[dir]

		for _, o := range ops {
			switch o.Status {
			case op.Success:
				success++
			case op.Skip:
				skip++
			default:
				fail++
			}
			redacted += o.Redacted
		}

		_, err := fmt.Fprint(t, formatReportLine(
			dir,
			strconv.Itoa(success),
			strconv.Itoa(fail),
			strconv.Itoa(skip),
			strconv.Itoa(redacted),
			strconv.Itoa(len(ops))))
		if err != nil {
			return err
		}
	}

	err = t.Flush()
	if err != nil {
		return err
	}
	return nil
}

func formatReportLine(cells ...string) string {
	format := ""

	// The coercion from the argument of type []string to type []interface is required for the later
	// call to fmt.Sprintf, in which variadic arguments must be of type any/interface{}.
	strValues := make([]interface{}, len(cells))
	for i, cell := range cells {
		format += "%s\t"
		strValues[i] = cell
	}

	format += "\n"

	return fmt.Sprintf(format, strValues...)
}
