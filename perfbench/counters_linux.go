// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package perfbench

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/aclements/go-perfsection/section"
)

// benchKinds are the kinds every benchmark reports.
var benchKinds = []section.Kind{
	section.Instructions,
	section.BranchMisses,
	section.L1DMiss,
	section.IPC,
}

type countersOS struct {
	b  testingB
	bN int

	e       *section.Engine // nil if the counters could not be opened
	running bool
}

var printUnits = sync.OnceFunc(func() {
	// Print unit metadata.
	fmt.Printf("Unit cycles/op better=lower\n")
	for _, k := range benchKinds {
		switch {
		case k == section.IPC:
			fmt.Printf("Unit %s better=higher\n", k)
		case k.IsRatio():
			fmt.Printf("Unit %s better=lower\n", k)
		default:
			fmt.Printf("Unit %s/op better=lower\n", k)
		}
	}
	fmt.Printf("\n")
})

// testingB is the *testing.B interface needed by Counters. Used for testing.
type testingB interface {
	ReportMetric(n float64, unit string)
	Logf(format string, args ...any)
	Cleanup(func())
}

var openErrors sync.Map

// logOnce reports msg to b unless it has already been reported, to avoid
// flooding the benchmark log.
func logOnce(b testingB, msg string) {
	if _, prev := openErrors.Swap(msg, true); !prev {
		b.Logf("%s", msg)
	}
}

func openOS(b *testing.B) *Counters {
	printUnits()
	return open(b, b.N)
}

func open(b testingB, bN int) *Counters {
	cs := &Counters{countersOS{b: b, bN: bN}}

	e, err := section.New(section.Config{Kinds: benchKinds, Sections: 1})
	if err != nil {
		logOnce(b, fmt.Sprintf("error opening counters: %v", err))
	} else {
		cs.e = e
		cs.running = true
	}

	b.Cleanup(cs.close)
	return cs
}

func (cs *Counters) startOS() {
	if cs.e == nil || cs.running {
		return
	}
	if err := cs.e.Reset(); err != nil {
		logOnce(cs.b, fmt.Sprintf("error starting counters: %v", err))
		return
	}
	cs.running = true
}

func (cs *Counters) stopOS() {
	if cs.e == nil || !cs.running {
		return
	}
	if _, err := cs.e.Accumulate(0); err != nil {
		logOnce(cs.b, fmt.Sprintf("error reading counters: %v", err))
	}
	cs.running = false
}

func (cs *Counters) resetOS() {
	if cs.e == nil {
		return
	}
	if err := cs.e.Clear(); err != nil {
		logOnce(cs.b, fmt.Sprintf("error resetting counters: %v", err))
	}
}

func (cs *Counters) totalOS(name string) (float64, bool) {
	if cs.e == nil {
		return 0, false
	}
	rows, err := cs.e.Rows(0, 1)
	if err != nil {
		return 0, false
	}
	for _, r := range rows {
		if r.Name == name {
			if r.Ratio {
				return r.Value, true
			}
			return float64(r.Count), true
		}
	}
	return 0, false
}

func (cs *Counters) close() {
	if cs.b == nil {
		return
	}
	defer func() { cs.b = nil }()
	if cs.e == nil {
		return
	}

	cs.Stop()
	defer cs.e.Close()
	rows, err := cs.e.Rows(0, uint64(cs.bN))
	if err != nil {
		cs.b.Logf("error computing metrics: %v", err)
		return
	}
	for _, r := range rows {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		unit := r.Name + "/op"
		if r.Ratio {
			unit = r.Name
		}
		cs.b.ReportMetric(r.Value, unit)
	}
}
