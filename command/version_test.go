// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
)

func TestVersionCommand_Run(t *testing.T) {
	ui := cli.NewMockUi()
	c := NewVersionCommand(ui)

	assert.Equal(t, Success, c.Run(nil))
	assert.True(t, strings.HasPrefix(ui.OutputWriter.String(), "nifredact v"))
	assert.Equal(t, "Usage: nifredact version", c.Help())
}
