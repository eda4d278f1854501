// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package section

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// A Row is one reported line of a section.
type Row struct {
	Name  string // "cycles" or the kind's configuration name
	Label string // e.g. "Branch mispredictions"
	Kind  Kind   // Meaningless for the cycles row

	// Count is the undivided accumulated total. It is 0 for ratio rows.
	Count uint64

	// Value is the reported value: Count divided by the divisor for
	// measured rows, or the ratio for ratio rows.
	Value float64

	Cycles  bool // This is the cycles row
	Ratio   bool // Value is a ratio of other rows
	Divided bool // Value is Count divided by a divisor greater than 1
}

// String formats r's value the way [Engine.Render] does. Undivided counts are
// printed as integers.
func (r Row) String() string {
	if r.Ratio || r.Divided {
		return strconv.FormatFloat(r.Value, 'g', 6, 64)
	}
	return strconv.FormatUint(r.Count, 10)
}

// Rows returns the rows of section: cycles, then every configured kind in
// order. If div is greater than 1, measured values are divided by div, which
// is typically the number of trials accumulated. Ratios are always computed
// from the undivided totals, so div does not affect them. A ratio whose
// denominator is zero is NaN or ±Inf.
//
// Rows panics if section is out of range.
func (e *Engine) Rows(section int, div uint64) ([]Row, error) {
	acc := e.cumul[section]
	value := func(c uint64) (float64, bool) {
		if div > 1 {
			return float64(c) / float64(div), true
		}
		return float64(c), false
	}

	rows := make([]Row, 0, 1+len(e.kinds))
	v, divided := value(acc[0])
	rows = append(rows, Row{Name: cyclesName, Label: "Cycles", Count: acc[0], Value: v, Cycles: true, Divided: divided})

	params := make(map[string]interface{}, 1+len(e.measured))
	params[cyclesName] = float64(acc[0])
	for i, k := range e.measured {
		c := acc[1+i]
		params[k.String()] = float64(c)
		v, divided := value(c)
		rows = append(rows, Row{Name: k.String(), Label: k.Label(), Kind: k, Count: c, Value: v, Divided: divided})
	}

	for _, k := range e.ratios {
		r, err := evalRatio(k, params)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Name: k.String(), Label: k.Label(), Kind: k, Value: r, Ratio: true})
	}
	return rows, nil
}

func evalRatio(k Kind, params map[string]interface{}) (float64, error) {
	res, err := kindInfos[k].eval.Evaluate(params)
	if err != nil {
		return 0, errors.Wrapf(err, "section: computing %s", k)
	}
	r, ok := res.(float64)
	if !ok {
		return math.NaN(), errors.Errorf("section: %s evaluated to %T", k, res)
	}
	return r, nil
}

// Render writes section's rows to w, one "<Label>:\t<value>\n" line each,
// cycles first. div is applied as by [Engine.Rows].
func (e *Engine) Render(w io.Writer, section int, div uint64) error {
	rows, err := e.Rows(section, div)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s:\t%s\n", r.Label, r); err != nil {
			return err
		}
	}
	return nil
}
