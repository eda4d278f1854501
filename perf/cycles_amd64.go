// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package perf

// haveFastRead is true if counters can be read with a user-space instruction
// once their metadata page is mapped.
const haveFastRead = true

// CanSerialize is true if [Serialize] issues a real instruction barrier on this
// architecture.
const CanSerialize = true

// Implemented in cycles_amd64.s
func rdtsc() uint64
func rdpmc(counter uint32) uint64
func cpuid()

// Cycles returns the current value of the free-running time-stamp counter.
func Cycles() uint64 {
	return rdtsc()
}

// CycleSource names the register [Cycles] reads.
func CycleSource() string {
	return "rdtsc"
}

// Serialize waits for all prior instructions to complete before any later
// instruction starts. It uses CPUID, which is architecturally serializing on
// both Intel and AMD parts.
func Serialize() {
	cpuid()
}
