// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclements/go-perfsection/section"
)

func testSections() []Section {
	return []Section{
		{
			Name:   "sum",
			Trials: 1,
			Rows: []section.Row{
				{Name: "cycles", Label: "Cycles", Count: 1000, Value: 1000, Cycles: true},
				{Name: "instructions", Label: "Instructions", Kind: section.Instructions, Count: 4000000, Value: 4000000},
				{Name: "IPC", Label: "IPC", Kind: section.IPC, Value: 4000, Ratio: true},
			},
		},
		{
			Name:   "branchy",
			Trials: 4,
			Rows: []section.Row{
				{Name: "cycles", Label: "Cycles", Count: 10, Value: 2.5, Cycles: true, Divided: true},
				{Name: "branches", Label: "Branch instructions", Kind: section.Branches, Count: 0, Value: 0, Divided: true},
				{Name: "branch_miss", Label: "Branch mispredictions", Kind: section.BranchMisses, Count: 0, Value: 0, Divided: true},
				{Name: "branch_miss_rate", Label: "Branch misprediction ratio", Kind: section.BranchMissRate, Value: math.NaN(), Ratio: true},
			},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testSections(), TextOptions{}))
	assert.Equal(t, `sum
Cycles:	1000
Instructions:	4000000
IPC:	4000

branchy (per trial, 4 trials)
Cycles:	2.5
Branch instructions:	0
Branch mispredictions:	0
Branch misprediction ratio:	NaN
`, buf.String())
}

func TestWriteTextGrouped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testSections(), TextOptions{Group: true}))
	out := buf.String()
	assert.Contains(t, out, "Instructions:\t4,000,000\n")
	assert.Contains(t, out, "Cycles:\t2.50\n")
	// Ratios are not grouped.
	assert.Contains(t, out, "IPC:\t4000\n")
}

func TestWriteTextColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testSections(), TextOptions{Color: true}))
	assert.Contains(t, buf.String(), "Instructions:")
	assert.Contains(t, buf.String(), "4000000")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testSections()))

	var got []struct {
		Name   string
		Trials uint64
		Rows   []struct {
			Name  string
			Count *uint64
			Value *float64
			Ratio bool
		}
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "sum", got[0].Name)
	assert.Equal(t, uint64(4000000), *got[0].Rows[1].Count)
	assert.Nil(t, got[0].Rows[2].Count)
	assert.Equal(t, 4000.0, *got[0].Rows[2].Value)
	assert.Equal(t, uint64(4), got[1].Trials)
	assert.Nil(t, got[1].Rows[3].Value, "NaN ratio")
	assert.True(t, got[1].Rows[3].Ratio)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSections()))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1+3+4)
	assert.Equal(t, csvHeader, recs[0])
	assert.Equal(t, []string{"sum", "1", "instructions", "4000000", "4e+06"}, recs[2])
	assert.Equal(t, []string{"sum", "1", "IPC", "", "4000"}, recs[3])
	assert.Equal(t, []string{"branchy", "4", "cycles", "10", "2.5"}, recs[4])
	assert.Equal(t, []string{"branchy", "4", "branch_miss_rate", "", "NaN"}, recs[7])
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
	assert.Error(t, Write(io.Discard, Format("xml"), nil, TextOptions{}))
}

func TestExporter(t *testing.T) {
	e := NewExporter()
	e.Update(testSections())

	assert.Equal(t, 4000.0, testutil.ToFloat64(e.value.WithLabelValues("sum", "IPC")))
	assert.Equal(t, 2.5, testutil.ToFloat64(e.value.WithLabelValues("branchy", "cycles")))
	// 3 rows of sum and 3 finite rows of branchy.
	assert.Equal(t, 6, testutil.CollectAndCount(e.value))

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `perfsection_value{kind="instructions",section="sum"} 4e+06`)
}
