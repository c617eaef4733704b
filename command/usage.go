// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"flag"
	"fmt"
	"strings"

	"github.com/kr/text"
)

const (
	// helpWidth is the widest a help line gets, indentation included.
	helpWidth = 72
	// flagIndent and usageIndent are the left margins of a flag's name and of its description.
	flagIndent  = 2
	usageIndent = 6
)

// flagGroup is a titled section of a command's help listing the named flags in order.
type flagGroup struct {
	title string
	names []string
}

// usage renders a command's help text: the usage slug and description, then its flags section by section. Flags
// that no group names are listed last under "Other Options", in name order.
func usage(txt string, flags *flag.FlagSet, groups ...flagGroup) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(txt))
	b.WriteString("\n")
	if flags == nil {
		return strings.TrimRight(b.String(), "\n")
	}

	listed := make(map[string]bool)
	for _, g := range groups {
		var section []*flag.Flag
		for _, n := range g.names {
			if f := flags.Lookup(n); f != nil && !listed[n] {
				section = append(section, f)
				listed[n] = true
			}
		}
		writeFlagSection(&b, g.title, section)
	}

	var rest []*flag.Flag
	flags.VisitAll(func(f *flag.Flag) {
		if !listed[f.Name] {
			rest = append(rest, f)
		}
	})
	writeFlagSection(&b, "Other Options", rest)

	return strings.TrimRight(b.String(), "\n")
}

func writeFlagSection(b *strings.Builder, title string, section []*flag.Flag) {
	if len(section) == 0 {
		return
	}
	_, _ = fmt.Fprintf(b, "\n%s:\n\n", title)
	for _, f := range section {
		writeFlag(b, f)
	}
}

// writeFlag writes a flag as "-name=<value>" followed by its wrapped description. A word quoted with backticks in
// the usage text names the value; boolean flags take none.
func writeFlag(b *strings.Builder, f *flag.Flag) {
	value, desc := flag.UnquoteUsage(f)
	b.WriteString(strings.Repeat(" ", flagIndent))
	b.WriteString("-" + f.Name)
	if value != "" {
		b.WriteString("=<" + strings.ToLower(value) + ">")
	}
	b.WriteString("\n")
	b.WriteString(text.Indent(text.Wrap(desc, helpWidth-usageIndent), strings.Repeat(" ", usageIndent)))
	b.WriteString("\n\n")
}
