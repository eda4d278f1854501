// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package report formats the rows of one or more measured sections as text,
// JSON, or CSV, and exports them as Prometheus gauges.
package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/aclements/go-perfsection/section"
)

// A Section is the rendered result of one section of an Engine.
type Section struct {
	Name   string
	Trials uint64 // Divisor the rows were computed with
	Rows   []section.Row
}

// FromEngine collects every section of e, naming them by names (which may be
// shorter than the number of sections) and dividing by trials.
func FromEngine(e *section.Engine, names []string, trials uint64) ([]Section, error) {
	secs := make([]Section, e.Sections())
	for i := range secs {
		rows, err := e.Rows(i, trials)
		if err != nil {
			return nil, err
		}
		secs[i] = Section{Name: sectionName(names, i), Trials: trials, Rows: rows}
	}
	return secs, nil
}

func sectionName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return "section" + strconv.Itoa(i)
}

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatCSV}

// ParseFormat returns the Format called s, ignoring case.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown format %q", s)
}

// Write writes secs to w in format f. Text output uses opts; the other
// formats ignore it.
func Write(w io.Writer, f Format, secs []Section, opts TextOptions) error {
	switch f {
	case FormatText:
		return WriteText(w, secs, opts)
	case FormatJSON:
		return WriteJSON(w, secs)
	case FormatCSV:
		return WriteCSV(w, secs)
	}
	return errors.Errorf("unknown format %q", f)
}
