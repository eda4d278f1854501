// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package events

import "golang.org/x/sys/unix"

type eventBasic struct {
	name   string
	typ    uint32
	config uint64
}

// eventBasic implements Event
var _ Event = eventBasic{}

func (e eventBasic) SetAttrs(a *unix.PerfEventAttr) error {
	a.Type = e.typ
	a.Config = e.config
	return nil
}

func (e eventBasic) String() string {
	return e.name
}

// cacheEvent builds a PERF_TYPE_HW_CACHE event. See
// include/uapi/linux/perf_event.h for the config layout.
func cacheEvent(name string, level, op, result uint64) eventBasic {
	return eventBasic{name, unix.PERF_TYPE_HW_CACHE, level | op<<8 | result<<16}
}

var (
	// Hardware events
	EventCPUCycles       = eventBasic{"cpu-cycles", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES}
	EventInstructions    = eventBasic{"instructions", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS}
	EventCacheReferences = eventBasic{"cache-references", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES}
	EventCacheMisses     = eventBasic{"cache-misses", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES}
	EventBranches        = eventBasic{"branches", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS}
	EventBranchMisses    = eventBasic{"branch-misses", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES}
	EventBusCycles       = eventBasic{"bus-cycles", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BUS_CYCLES}
)

const (
	opRead       = unix.PERF_COUNT_HW_CACHE_OP_READ
	resultAccess = unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS
	resultMiss   = unix.PERF_COUNT_HW_CACHE_RESULT_MISS
)

var (
	// Hardware cache events. These all count reads.
	EventL1DLoads       = cacheEvent("L1-dcache-loads", unix.PERF_COUNT_HW_CACHE_L1D, opRead, resultAccess)
	EventL1DLoadMisses  = cacheEvent("L1-dcache-load-misses", unix.PERF_COUNT_HW_CACHE_L1D, opRead, resultMiss)
	EventL1ILoads       = cacheEvent("L1-icache-loads", unix.PERF_COUNT_HW_CACHE_L1I, opRead, resultAccess)
	EventL1ILoadMisses  = cacheEvent("L1-icache-load-misses", unix.PERF_COUNT_HW_CACHE_L1I, opRead, resultMiss)
	EventDTLBLoadMisses = cacheEvent("dTLB-load-misses", unix.PERF_COUNT_HW_CACHE_DTLB, opRead, resultMiss)
	EventITLBLoadMisses = cacheEvent("iTLB-load-misses", unix.PERF_COUNT_HW_CACHE_ITLB, opRead, resultMiss)
	EventLLCLoads       = cacheEvent("LLC-loads", unix.PERF_COUNT_HW_CACHE_LL, opRead, resultAccess)
	EventLLCLoadMisses  = cacheEvent("LLC-load-misses", unix.PERF_COUNT_HW_CACHE_LL, opRead, resultMiss)
)

var (
	// Software events
	EventCPUClock        = eventBasic{"cpu-clock", unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_CLOCK}
	EventTaskClock       = eventBasic{"task-clock", unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_TASK_CLOCK}
	EventPageFaults      = eventBasic{"page-faults", unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS}
	EventContextSwitches = eventBasic{"context-switches", unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CONTEXT_SWITCHES}
	EventCPUMigrations   = eventBasic{"cpu-migrations", unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_MIGRATIONS}
)
