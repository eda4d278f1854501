// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclements/go-perfsection/report"
	"github.com/aclements/go-perfsection/section"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sectionstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"instructions", "branch_miss", "L1D_miss", "IPC"}, c.Kinds)
	assert.Equal(t, []string{"sum", "branchy", "stride"}, c.Workloads)
	assert.Equal(t, 10, c.Trials)
	assert.Equal(t, 10*time.Second, c.Interval)
	assert.Equal(t, "text", c.Format)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
kinds: [branches, branch-misses, branch_miss_rate]
workloads: [branchy]
trials: 3
format: csv
interval: 1m
`)
	c, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"branches", "branch-misses", "branch_miss_rate"}, c.Kinds)
	assert.Equal(t, 3, c.Trials)
	assert.Equal(t, 1000000, c.Iterations, "default kept")
	assert.Equal(t, time.Minute, c.Interval)

	rc, err := c.check()
	require.NoError(t, err)
	assert.Equal(t, []section.Kind{section.Branches, section.BranchMisses, section.BranchMissRate}, rc.engine.Kinds)
	assert.Equal(t, 1, rc.engine.Sections)
	assert.Equal(t, report.FormatCSV, rc.format)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "trails: 3\n"))
	assert.Error(t, err, "unknown field")
}

func TestCheck(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*fileConfig)
	}{
		{"ratio first", func(c *fileConfig) { c.Kinds = []string{"IPC", "instructions"} }},
		{"unknown kind", func(c *fileConfig) { c.Kinds = []string{"flops"} }},
		{"unknown workload", func(c *fileConfig) { c.Workloads = []string{"sort"} }},
		{"no workloads", func(c *fileConfig) { c.Workloads = nil }},
		{"zero trials", func(c *fileConfig) { c.Trials = 0 }},
		{"zero iterations", func(c *fileConfig) { c.Iterations = 0 }},
		{"bad format", func(c *fileConfig) { c.Format = "xml" }},
		{"bad interval", func(c *fileConfig) { c.MetricsAddr = ":0"; c.Interval = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := defaultConfig()
			tc.modify(c)
			_, err := c.check()
			assert.Error(t, err)
		})
	}

	rc, err := defaultConfig().check()
	require.NoError(t, err)
	assert.Len(t, rc.workloads, 3)
	assert.Equal(t, 3, rc.engine.Sections)
}

func TestMergeFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--trials=7", "--workloads=sum,stride"}))

	file := &fileConfig{Trials: 2, Iterations: 5, Format: "json"}
	var f flags
	f.file.Trials = 7
	f.file.Workloads = []string{"sum", "stride"}
	mergeFlags(cmd.Flags(), file, &f)
	assert.Equal(t, 7, file.Trials)
	assert.Equal(t, []string{"sum", "stride"}, file.Workloads)
	assert.Equal(t, 5, file.Iterations, "unset flag overrode file")
	assert.Equal(t, "json", file.Format, "unset flag overrode file")
}

func TestWorkloads(t *testing.T) {
	for _, w := range workloads {
		fn := w.setup(1000)
		// Workloads are deterministic up to their own state.
		if w.name != "stride" {
			assert.Equal(t, fn(), fn(), w.name)
		}
	}
	sum, ok := lookupWorkload("sum")
	require.True(t, ok)
	assert.Equal(t, uint64(999*1000/2), sum.setup(1000)())
	_, ok = lookupWorkload("nope")
	assert.False(t, ok)
}

func TestRunCSV(t *testing.T) {
	e, err := section.New(section.Default(1))
	if err != nil {
		t.Skipf("counters not available: %v", err)
	}
	e.Close()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--workloads=sum,branchy", "--trials=2", "--iterations=10000", "--format=csv"})
	require.NoError(t, cmd.Execute())

	recs, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	// Header, then cycles plus four kinds for each of two sections.
	require.Len(t, recs, 1+2*5)
	assert.Equal(t, []string{"sum", "2", "cycles"}, recs[1][:3])
	assert.Equal(t, []string{"branchy", "2", "IPC"}, recs[10][:3])
}
