// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package perfbench reports hardware performance counters as Go benchmark
// metrics, such as "instructions/op" and "IPC".
package perfbench

import "testing"

// Counters is a set of performance counters that will be reported in benchmark
// results.
type Counters struct {
	countersOS
}

// Open starts a set of performance counters for benchmark b. These counters
// will be reported as metrics when the benchmark ends: cycles and every
// counted event per op, and ratios such as IPC over the whole run. The
// counters only count performance events on the calling goroutine, which is
// locked to its OS thread until the benchmark ends.
//
// The counters are running on return. In general, any calls to b.StopTimer,
// b.StartTimer, or b.ResetTimer should be paired with the equivalent calls on
// Counters.
//
// The final value of the counters is captured in a b.Cleanup function. If the
// benchmark does substantial other work in cleanup functions, it may want to
// explicitly call [Counters.Stop] before returning.
func Open(b *testing.B) *Counters {
	return openOS(b)
}

// Start resumes counting after [Counters.Stop].
func (cs *Counters) Start() {
	cs.startOS()
}

// Stop pauses counting. Counts so far are kept.
func (cs *Counters) Stop() {
	cs.stopOS()
}

// Reset discards counts so far. It does not change whether the counters are
// running.
func (cs *Counters) Reset() {
	cs.resetOS()
}

// Total returns the total count of the named counter, which is a reported
// metric name without the "/op", such as "cycles" or "branch_miss". If the
// named counter is unknown or could not be opened, this returns 0, false.
func (cs *Counters) Total(name string) (float64, bool) {
	return cs.totalOS(name)
}
