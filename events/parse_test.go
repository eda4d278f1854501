// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package events

import (
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
)

type builtinTest struct {
	pmuName   string
	eventName string

	typ    uint32
	config uint64
}

const invalidType = ^uint32(0)

func getBuiltinTests() []builtinTest {
	var tests []builtinTest

	bad := func(pmu, name string) {
		tests = append(tests, builtinTest{pmu, name, invalidType, 0})
	}

	hw := func(config uint64, name string) {
		tests = append(tests,
			builtinTest{"cpu", name, unix.PERF_TYPE_HARDWARE, config},
			builtinTest{"", name, unix.PERF_TYPE_HARDWARE, config},
		)
		bad("xxx", name)
	}
	hw(unix.PERF_COUNT_HW_CPU_CYCLES, "cpu-cycles")
	hw(unix.PERF_COUNT_HW_CPU_CYCLES, "cycles")
	hw(unix.PERF_COUNT_HW_INSTRUCTIONS, "instructions")
	hw(unix.PERF_COUNT_HW_BRANCH_MISSES, "branch-misses")
	// "branches" could be interpreted as either
	// PERF_COUNT_HW_BRANCH_INSTRUCTIONS or PERF_COUNT_HW_CACHE_BPU, but perf
	// prefers to interpret as the former.
	hw(unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS, "branches")
	hw(unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS, "branch-instructions")

	sw := func(config uint64, name string) {
		tests = append(tests, builtinTest{"", name, unix.PERF_TYPE_SOFTWARE, config})
		bad("cpu", name)
		bad("xxx", name)
	}
	sw(unix.PERF_COUNT_SW_CPU_CLOCK, "cpu-clock")
	sw(unix.PERF_COUNT_SW_CONTEXT_SWITCHES, "context-switches")
	sw(unix.PERF_COUNT_SW_CONTEXT_SWITCHES, "cs")

	cache := func(level, op, result uint64, names ...string) {
		config := level | (op << 8) | (result << 16)
		for _, name := range names {
			tests = append(tests,
				builtinTest{"cpu", name, unix.PERF_TYPE_HW_CACHE, config},
				builtinTest{"", name, unix.PERF_TYPE_HW_CACHE, config},
			)
			bad("xxx", name)
			bad("", name+"x")
			bad("", name+"-x")
			bad("", "x-"+name)
		}
	}
	cache(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS,
		"L1-dcache", "l1d", "L1-dcache-loads", "l1d-loads", "l1d-load-refs", "l1d-refs", "l1d-read-access")
	cache(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS,
		"L1-dcache-load-misses", "l1d-misses", "l1d-miss-load")
	cache(unix.PERF_COUNT_HW_CACHE_DTLB, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS,
		"dTLB-load-misses", "d-tlb-misses")
	cache(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS,
		"LLC-loads", "LLC")
	// Perf accepts this, but it's nonsense. The perf yacc grammar doesn't
	// distinguish between op and result, then the C parser gets confused and
	// stops at the second "-", but without an error.
	bad("", "l1d-loads-stores")
	cache(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_PREFETCH, unix.PERF_COUNT_HW_CACHE_RESULT_MISS,
		"L1-dcache-prefetch-miss", "L1-dcache-speculative-load-misses")
	cache(unix.PERF_COUNT_HW_CACHE_BPU, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS,
		"branch", "branches-loads", "bpu-read", "bpu-loads-refs", "bpu-Reference")
	bad("", "bpu-stores")    // Disallowed combination
	bad("", "iTLB-prefetch") // Disallowed combination

	return tests
}

func (tc builtinTest) String() string {
	if tc.typ == invalidType {
		return "<invalid>"
	}
	return fmt.Sprintf("{%#x, %#x}", tc.typ, tc.config)
}

func TestParseBuiltin(t *testing.T) {
	for _, tc := range getBuiltinTests() {
		// Test via resolveBuiltinEvent
		got := builtinTest{tc.pmuName, tc.eventName, invalidType, 0}
		if ev, ok := resolveBuiltinEvent(tc.pmuName, tc.eventName); ok {
			got.typ, got.config = ev.typ, ev.config
		}
		if got != tc {
			t.Errorf("PMU %q, event %q: got %s, want %s", tc.pmuName, tc.eventName, got, tc)
			// If this is messed up, skip ParseEvent.
			continue
		}

		// Test via ParseEvent.
		var eventName string
		if tc.pmuName != "" {
			eventName = tc.pmuName + "/" + tc.eventName + "/"
		} else {
			eventName = tc.eventName
		}
		gotEv, err := ParseEvent(eventName)
		if tc.typ == invalidType {
			if err == nil {
				t.Errorf("%s: got %v, want error", eventName, gotEv)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %s", eventName, err)
			continue
		}
		typ, config, _ := Attr(gotEv)
		if typ != tc.typ || config != tc.config {
			t.Errorf("%s: got {%#x, %#x}, want %s", eventName, typ, config, tc)
		}
		if gotEv.String() != eventName {
			t.Errorf("%s: event is named %q", eventName, gotEv.String())
		}
	}
}

func TestNamedEvents(t *testing.T) {
	// Every predefined event must be reachable by its own name.
	for _, ev := range []Event{
		EventCPUCycles, EventInstructions, EventCacheReferences, EventCacheMisses,
		EventBranches, EventBranchMisses, EventBusCycles,
		EventL1DLoads, EventL1DLoadMisses, EventL1ILoads, EventL1ILoadMisses,
		EventDTLBLoadMisses, EventITLBLoadMisses, EventLLCLoads, EventLLCLoadMisses,
		EventCPUClock, EventTaskClock, EventPageFaults, EventContextSwitches, EventCPUMigrations,
	} {
		parsed, err := ParseEvent(ev.String())
		if err != nil {
			t.Errorf("%s: %s", ev, err)
			continue
		}
		wantTyp, wantConfig, _ := Attr(ev)
		gotTyp, gotConfig, _ := Attr(parsed)
		if wantTyp != gotTyp || wantConfig != gotConfig {
			t.Errorf("%s: parsed as {%#x, %#x}, want {%#x, %#x}", ev, gotTyp, gotConfig, wantTyp, wantConfig)
		}
	}
}

func TestParseErrors(t *testing.T) {
	testErr := func(name string, want string) {
		t.Helper()
		got, err := ParseEvent(name)
		if err == nil {
			t.Errorf("%s: want error %s, got %v", name, want, got)
			return
		}
		if err.Error() != want {
			t.Errorf("%s: want error %s, got error %s", name, want, err)
		}
	}

	testErr("bad", `unknown event "bad"`)
	testErr("cpu/bad/", `event "cpu/bad/": unknown event "bad"`)
	testErr("bad/cpu-cycles/", `unknown PMU "bad"`)
	testErr("cpu//", `event "cpu//": missing event name`)
	testErr("cpu/event=0xd0/", `event "cpu/event=0xd0/": event parameters are not supported`)
	testErr("cpu/instructions,edge/", `event "cpu/instructions,edge/": event parameters are not supported`)
}
