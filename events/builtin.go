// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package events

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

type cacheEventName struct {
	name   string
	config uint64
}

// builtinEvents are the event names that correspond to well-known perf event
// configs and thus generally don't appear in /sys.
var builtinEvents struct {
	cpu      map[string]eventBasic // No PMU or cpu/ PMU
	software map[string]eventBasic // No PMU

	cache        []cacheEventName
	cacheOp      []cacheEventName
	cacheResult  []cacheEventName
	cacheAllowed map[uint64]uint8 // Cache level -> bitmap of cache op

	once sync.Once
}

func initBuiltinEvents() {
	// See parse-events.c:event_symbols_hw
	builtinEvents.cpu = make(map[string]eventBasic)
	hw := func(ev eventBasic, aliases ...string) {
		builtinEvents.cpu[ev.name] = ev
		for _, name := range aliases {
			builtinEvents.cpu[name] = ev
		}
	}
	hw(EventCPUCycles, "cycles")
	hw(EventInstructions)
	hw(EventCacheReferences)
	hw(EventCacheMisses)
	hw(EventBranches, "branch-instructions")
	hw(EventBranchMisses)
	hw(EventBusCycles)

	// See parse-events.c:event_symbols_sw
	builtinEvents.software = make(map[string]eventBasic)
	sw := func(ev eventBasic, aliases ...string) {
		builtinEvents.software[ev.name] = ev
		for _, name := range aliases {
			builtinEvents.software[name] = ev
		}
	}
	sw(EventCPUClock)
	sw(EventTaskClock)
	sw(EventPageFaults, "faults")
	sw(EventContextSwitches, "cs")
	sw(EventCPUMigrations, "migrations")

	var m *[]cacheEventName
	c := func(config uint64, names ...string) {
		for _, name := range names {
			*m = append(*m, cacheEventName{name, config})
		}
	}
	cSort := func() {
		// Put longer names earlier for matching
		sort.Slice(*m, func(i, j int) bool {
			return len((*m)[i].name) > len((*m)[j].name)
		})
	}
	// See evsel.c:evsel__hw_cache
	m = &builtinEvents.cache
	c(unix.PERF_COUNT_HW_CACHE_L1D, "L1-dcache", "l1-d", "l1d", "L1-data")
	c(unix.PERF_COUNT_HW_CACHE_L1I, "L1-icache", "l1-i", "l1i", "L1-instruction")
	c(unix.PERF_COUNT_HW_CACHE_LL, "LLC", "L2")
	c(unix.PERF_COUNT_HW_CACHE_DTLB, "dTLB", "d-tlb", "Data-TLB")
	c(unix.PERF_COUNT_HW_CACHE_ITLB, "iTLB", "i-tlb", "Instruction-TLB")
	c(unix.PERF_COUNT_HW_CACHE_BPU, "branch", "branches", "bpu", "btb", "bpc")
	c(unix.PERF_COUNT_HW_CACHE_NODE, "node")
	cSort()
	// See evsel.c:evsel__hw_cache_op
	m = &builtinEvents.cacheOp
	c(unix.PERF_COUNT_HW_CACHE_OP_READ, "load", "loads", "read")
	c(unix.PERF_COUNT_HW_CACHE_OP_WRITE, "store", "stores", "write")
	c(unix.PERF_COUNT_HW_CACHE_OP_PREFETCH, "prefetch", "prefetches", "speculative-read", "speculative-load")
	cSort()
	// See evsel.c:evsel__hw_cache_result
	m = &builtinEvents.cacheResult
	c(unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS, "refs", "Reference", "ops", "access")
	c(unix.PERF_COUNT_HW_CACHE_RESULT_MISS, "misses", "miss")
	cSort()

	r := uint8(1) << unix.PERF_COUNT_HW_CACHE_OP_READ
	w := uint8(1) << unix.PERF_COUNT_HW_CACHE_OP_WRITE
	p := uint8(1) << unix.PERF_COUNT_HW_CACHE_OP_PREFETCH
	builtinEvents.cacheAllowed = map[uint64]uint8{
		unix.PERF_COUNT_HW_CACHE_L1D:  r | w | p,
		unix.PERF_COUNT_HW_CACHE_L1I:  r | p,
		unix.PERF_COUNT_HW_CACHE_LL:   r | w | p,
		unix.PERF_COUNT_HW_CACHE_DTLB: r | w | p,
		unix.PERF_COUNT_HW_CACHE_ITLB: r,
		unix.PERF_COUNT_HW_CACHE_BPU:  r,
		unix.PERF_COUNT_HW_CACHE_NODE: r | w | p,
	}
}

// resolveBuiltinEvent returns the built-in event called eventName on the
// given PMU. The returned event is named eventName, as written.
func resolveBuiltinEvent(pmu, eventName string) (eventBasic, bool) {
	builtinEvents.once.Do(initBuiltinEvents)

	// All builtin events are either under no PMU or under cpu/.
	if !(pmu == "" || pmu == "cpu") {
		return eventBasic{}, false
	}

	rename := func(ev eventBasic) eventBasic {
		ev.name = eventName
		return ev
	}

	// CPU events can be used with or without a PMU name.
	if e, ok := builtinEvents.cpu[eventName]; ok {
		return rename(e), true
	}

	// Software events can only be used with no PMU name.
	if pmu == "" {
		if e, ok := builtinEvents.software[eventName]; ok {
			return rename(e), true
		}
	}

	if config, ok := resolveCacheEvent(eventName); ok {
		return eventBasic{eventName, unix.PERF_TYPE_HW_CACHE, config}, true
	}
	return eventBasic{}, false
}

// resolveCacheEvent parses a legacy cache event name such as
// "L1-dcache-load-misses". See parse-events.c:parse_events__decode_legacy_cache
// and parse-events.l:PE_LEGACY_CACHE.
func resolveCacheEvent(eventName string) (uint64, bool) {
	findCache := func(s string, names []cacheEventName) (uint64, string, bool) {
		for i := range names {
			name := names[i].name
			if s == name {
				return names[i].config, "", true
			}
			if strings.HasPrefix(s, name) && s[len(name)] == '-' {
				return names[i].config, s[len(name)+1:], true
			}
		}
		return 0, "", false
	}
	config, s, ok := findCache(eventName, builtinEvents.cache)
	if !ok {
		return 0, false
	}
	// Perf accepts up to two more fields that are op and result, in either
	// order.
	op := uint64(unix.PERF_COUNT_HW_CACHE_OP_READ)
	result := uint64(unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)
	var haveOp, haveResult bool
	for i := 0; i < 2 && s != ""; i++ {
		if !haveOp {
			if op2, s2, ok := findCache(s, builtinEvents.cacheOp); ok {
				op, s, haveOp = op2, s2, true
				continue
			}
		}
		if !haveResult {
			if result2, s2, ok := findCache(s, builtinEvents.cacheResult); ok {
				result, s, haveResult = result2, s2, true
				continue
			}
		}
	}
	if s != "" || builtinEvents.cacheAllowed[config]&(1<<op) == 0 {
		return 0, false
	}
	return config | op<<8 | result<<16, true
}
