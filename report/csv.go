// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{"section", "trials", "name", "count", "value"}

// WriteCSV writes one record per row of every section, after a header
// record. The count column is empty for ratios.
func WriteCSV(w io.Writer, secs []Section) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range secs {
		trials := strconv.FormatUint(s.Trials, 10)
		for _, r := range s.Rows {
			count := ""
			if !r.Ratio {
				count = strconv.FormatUint(r.Count, 10)
			}
			rec := []string{s.Name, trials, r.Name, count, strconv.FormatFloat(r.Value, 'g', -1, 64)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
