// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/nifredact/command"
	"github.com/hashicorp/nifredact/version"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	ui := &cli.ColoredUi{
		InfoColor:  cli.UiColorGreen,
		WarnColor:  cli.UiColorYellow,
		ErrorColor: cli.UiColorRed,
		Ui: &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      os.Stdout,
			ErrorWriter: os.Stderr,
		},
	}

	c := cli.NewCLI("nifredact", version.GetVersion().SemanticVersion())
	c.Args = args
	c.Commands = commands(ui)

	rc, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return command.RunError
	}
	return rc
}

func commands(ui cli.Ui) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"run":     command.RunCommandFactory(ui),
		"verify":  command.VerifyCommandFactory(ui),
		"version": command.VersionCommandFactory(ui),
	}
}
