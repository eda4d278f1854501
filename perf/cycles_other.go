// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && !amd64 && !arm64

package perf

import "time"

const haveFastRead = false

// CanSerialize is false: there is no barrier that orders counter reads here.
const CanSerialize = false

func rdpmc(uint32) uint64 {
	panic("perf: rdpmc is not available on this architecture")
}

var epoch = time.Now()

// Cycles returns nanoseconds on the monotonic clock. There is no portable
// cycle register, so this is a time base rather than a cycle count.
func Cycles() uint64 {
	return uint64(time.Since(epoch))
}

// CycleSource names the clock [Cycles] reads.
func CycleSource() string {
	return "clock_monotonic"
}

// Serialize panics. Configurations that request serialization are rejected
// before any counter is opened when CanSerialize is false.
func Serialize() {
	panic("perf: no serializing barrier on this architecture")
}
