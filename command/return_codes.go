// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package command

// Success indicates a successful command execution.
const Success int = 0

// The following error group is intended for issues within the command's execution.
const (
	// FlagParseError indicates that a command was unable to successfully parse the flags/arguments provided to it.
	FlagParseError int = iota + 16

	// ConfigError indicates that there was an error in the nifredact configuration.
	ConfigError

	// RunError indicates that the run did not complete cleanly, such as when one or more files could not be sanitized.
	RunError

	// OutputError indicates an error writing the summary of a run.
	OutputError

	// SetupError is returned when errors are encountered while setting up prerequisites for an Agent to run.
	SetupError
)

// The following error group is intended for issues with the documents themselves.
const (
	// RootNotFoundError is returned when the input directory does not exist.
	RootNotFoundError int = iota + 32

	// NoFilesFoundError is returned when the input directory holds no documents to process.
	NoFilesFoundError

	// ResidualsFoundError is returned by verify when a sanitized document still contains a valid identifier.
	ResidualsFoundError
)
