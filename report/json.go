// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package report

import (
	"encoding/json"
	"io"
	"math"
)

type jsonSection struct {
	Name   string    `json:"name"`
	Trials uint64    `json:"trials"`
	Rows   []jsonRow `json:"rows"`
}

type jsonRow struct {
	Name  string   `json:"name"`
	Label string   `json:"label"`
	Count *uint64  `json:"count,omitempty"`
	Value *float64 `json:"value"` // null for NaN and infinite ratios
	Ratio bool     `json:"ratio,omitempty"`
}

// WriteJSON writes secs as an indented JSON array. Ratios that are not finite
// are written as null.
func WriteJSON(w io.Writer, secs []Section) error {
	out := make([]jsonSection, len(secs))
	for i, s := range secs {
		js := jsonSection{Name: s.Name, Trials: s.Trials, Rows: make([]jsonRow, len(s.Rows))}
		for j, r := range s.Rows {
			jr := jsonRow{Name: r.Name, Label: r.Label, Ratio: r.Ratio}
			if !r.Ratio {
				c := r.Count
				jr.Count = &c
			}
			if v := r.Value; !math.IsNaN(v) && !math.IsInf(v, 0) {
				jr.Value = &v
			}
			js.Rows[j] = jr
		}
		out[i] = js
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
