// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package perf

import (
	"sync/atomic"
	"unsafe"
)

// pageSize is the size of the metadata page mapped for each event. We never
// map a data ring, so one page is enough.
const pageSize = 4096

// mmapPage is the head of struct perf_event_mmap_page from
// include/uapi/linux/perf_event.h.
type mmapPage struct {
	version       uint32
	compatVersion uint32
	lock          uint32 // seqlock for synchronization
	index         uint32 // hardware event identifier; 0 means not scheduled
	offset        int64  // add to hardware event value
	timeEnabled   uint64
	timeRunning   uint64
	capabilities  uint64
	pmcWidth      uint16
	timeShift     uint16
	timeMult      uint32
	timeOffset    uint64
}

const (
	capBitZeroIsDeprecated = 1 << 1
	capUserRDPMC           = 1 << 2
)

func asPage(b []byte) *mmapPage {
	return (*mmapPage)(unsafe.Pointer(&b[0]))
}

// userRDPMC reports whether user space may read this counter directly.
func (p *mmapPage) userRDPMC() bool {
	caps := atomic.LoadUint64(&p.capabilities)
	if caps&capBitZeroIsDeprecated == 0 {
		// Kernels before 3.12 put cap_usr_rdpmc in bit 0, which also
		// aliased cap_usr_time. Don't trust it.
		return false
	}
	return caps&capUserRDPMC != 0
}

// read returns the current value of the counter described by p. It follows the
// sequence documented in perf_event.h: the kernel bumps lock around every
// update, so retry until we see a consistent snapshot.
//
// read must only be called on the thread that owns the counter.
func (p *mmapPage) read() uint64 {
	for {
		seq := atomic.LoadUint32(&p.lock)
		idx := atomic.LoadUint32(&p.index)
		count := atomic.LoadInt64(&p.offset)
		if idx != 0 && p.userRDPMC() {
			shift := 64 - uint(p.pmcWidth)
			pmc := int64(rdpmc(idx-1)) << shift >> shift
			count += pmc
		}
		if atomic.LoadUint32(&p.lock) == seq {
			return uint64(count)
		}
	}
}
