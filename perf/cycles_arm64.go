// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package perf

// arm64 has no user-space counter read that the kernel enables by default, so
// counters are read with read(2).
const haveFastRead = false

// CanSerialize is false: there is no barrier that orders counter reads here.
const CanSerialize = false

// Implemented in cycles_arm64.s
func cntvct() uint64

func rdpmc(uint32) uint64 {
	panic("perf: rdpmc is not available on arm64")
}

// Cycles returns the current value of the virtual counter (CNTVCT_EL0). This
// ticks at the generic timer frequency, not the core clock.
func Cycles() uint64 {
	return cntvct()
}

// CycleSource names the register [Cycles] reads.
func CycleSource() string {
	return "cntvct_el0"
}

// Serialize panics. Configurations that request serialization are rejected
// before any counter is opened when CanSerialize is false.
func Serialize() {
	panic("perf: no serializing barrier on arm64")
}
