// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TextOptions controls [WriteText].
type TextOptions struct {
	// Color styles headers and ratios with terminal escape codes.
	Color bool

	// Group inserts thousands separators into large values.
	Group bool
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	ratioStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
)

// WriteText writes each section as a header line followed by one
// "<Label>:\t<value>" line per row, with sections separated by a blank line.
// Without options, the row lines are exactly what Engine.Render writes.
func WriteText(w io.Writer, secs []Section, opts TextOptions) error {
	p := message.NewPrinter(language.English)
	var sb strings.Builder
	for i, s := range secs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		header := s.Name
		if s.Trials > 1 {
			header = fmt.Sprintf("%s (per trial, %d trials)", s.Name, s.Trials)
		}
		if opts.Color {
			header = headerStyle.Render(header)
		}
		sb.WriteString(header + "\n")

		for _, r := range s.Rows {
			label, value := r.Label+":", r.String()
			if opts.Group && !r.Ratio {
				if r.Divided {
					value = p.Sprintf("%.2f", r.Value)
				} else {
					value = p.Sprintf("%d", r.Count)
				}
			}
			if opts.Color {
				label = labelStyle.Render(label)
				if r.Ratio {
					value = ratioStyle.Render(value)
				}
			}
			sb.WriteString(label + "\t" + value + "\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
