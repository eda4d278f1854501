// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package perf opens groups of hardware performance counters on the calling
// thread and reads them, without a system call where the CPU allows it.
package perf

import (
	"encoding/binary"
	"os"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/aclements/go-perfsection/events"
)

var (
	// ErrClosed is returned when reading a Group after Close.
	ErrClosed = errors.New("perf: group is closed")

	// ErrShortRead is returned when read(2) on a group returns less data than
	// the group's read format requires.
	ErrShortRead = errors.New("perf: short read")

	// ErrNoFastRead is returned by OpenGroup when the kernel does not let
	// user space read a counter directly.
	ErrNoFastRead = errors.New("perf: direct counter read not available")
)

// Target specifies what goroutine, thread, or CPU a [Group] should monitor.
type Target interface {
	pidCPU() (pid, cpu int)
	open()
	close()
}

type targetThisGoroutine struct{}

func (targetThisGoroutine) pidCPU() (pid, cpu int) { return 0, -1 }
func (targetThisGoroutine) open()                  { runtime.LockOSThread() }
func (targetThisGoroutine) close()                 { runtime.UnlockOSThread() }

var (
	// TargetThisGoroutine monitors the calling goroutine. This will call
	// [runtime.LockOSThread] on Open and [runtime.UnlockOSThread] on Close.
	TargetThisGoroutine = targetThisGoroutine{}
)

// iocFlagGroup is PERF_IOC_FLAG_GROUP: apply an ioctl to every event in the
// leader's group.
const iocFlagGroup = 1

// fastReadEnabled is a variable so tests can force the read(2) path.
var fastReadEnabled = haveFastRead

// A Group is a set of performance counters that the kernel schedules onto the
// hardware together. The first event is the group leader; enabling and
// disabling the leader affects the whole group.
//
// A Group is owned by the thread that opened it and must not be used
// concurrently.
type Group struct {
	target Target

	events      []events.Event
	eventScales []scale

	fds   []int       // fds[0] is the leader
	pages [][]byte    // mapped metadata pages, parallel to fds
	fast  []*mmapPage // non-nil if counters can be read without a syscall

	enabled bool
	readBuf []byte
}

type scale struct {
	scale float64
	unit  string
}

// OpenGroup opens the given events as a group on target, enables them, and
// returns the running Group. Callers are expected to call [Group.Close] when
// done with it.
//
// Counting excludes kernel and hypervisor mode. On architectures with a
// user-space counter read instruction, OpenGroup also maps each event's
// metadata page and fails with an error wrapping [ErrNoFastRead] if the kernel
// does not allow direct reads.
//
// If OpenGroup fails, everything it acquired has been released.
func OpenGroup(target Target, evs ...events.Event) (*Group, error) {
	if len(evs) == 0 {
		return nil, errors.New("perf: no events to open")
	}

	// Get event scales.
	eventScales := make([]scale, len(evs))
	for i, event := range evs {
		sc, unit := 1.0, ""
		if es, ok := event.(events.EventScale); ok {
			sc, unit = es.ScaleUnit()
		}
		eventScales[i] = scale{sc, unit}
	}

	g := &Group{
		target:      target,
		events:      evs,
		eventScales: eventScales,
		// Read format is nr, time_enabled, time_running, then one value per
		// event.
		readBuf: make([]byte, 3*8+len(evs)*8),
	}

	success := false
	target.open()
	defer func() {
		if !success {
			g.release()
		}
	}()

	pid, cpu := target.pidCPU()
	leader := -1
	for i, event := range evs {
		attr := unix.PerfEventAttr{}
		attr.Size = uint32(unsafe.Sizeof(attr))
		if err := event.SetAttrs(&attr); err != nil {
			return nil, errors.Wrapf(err, "perf: event %s", event)
		}
		attr.Bits = unix.PerfBitDisabled | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv
		if i == 0 {
			attr.Read_format = unix.PERF_FORMAT_TOTAL_TIME_ENABLED |
				unix.PERF_FORMAT_TOTAL_TIME_RUNNING |
				unix.PERF_FORMAT_GROUP
		}

		fd, err := sys.perfEventOpen(&attr, pid, cpu, leader, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			return nil, errors.Wrapf(err, "perf: opening event %d (%s)", i, event)
		}
		g.fds = append(g.fds, fd)
		if i == 0 {
			leader = fd
		}
	}

	if err := g.Enable(); err != nil {
		return nil, err
	}

	if fastReadEnabled {
		if err := g.mapPages(); err != nil {
			return nil, err
		}
	}

	success = true
	return g, nil
}

// mapPages maps the metadata page of every event and checks that each one can
// be read from user space.
func (g *Group) mapPages() error {
	size := os.Getpagesize()
	for i, fd := range g.fds {
		b, err := sys.mmap(fd, size)
		if err != nil {
			return errors.Wrapf(err, "perf: mapping event %d (%s)", i, g.events[i])
		}
		g.pages = append(g.pages, b)

		p := asPage(b)
		if !p.userRDPMC() {
			return errors.Wrapf(ErrNoFastRead, "event %d (%s)", i, g.events[i])
		}
		if p.index == 0 {
			return errors.Wrapf(ErrNoFastRead, "event %d (%s) has no counter index", i, g.events[i])
		}
		g.fast = append(g.fast, p)
	}
	return nil
}

// Close disables the group, closes every event, unmaps every metadata page,
// and unlocks the goroutine from the OS thread. Calling Close more than once
// is a no-op.
func (g *Group) Close() error {
	if g == nil || g.target == nil {
		return nil
	}
	return g.release()
}

func (g *Group) release() error {
	var err error
	if g.enabled {
		err = multierr.Append(err, g.Disable())
	}
	// Close followers before the leader.
	for i := len(g.fds) - 1; i >= 0; i-- {
		err = multierr.Append(err, sys.close(g.fds[i]))
	}
	g.fds = nil
	for _, b := range g.pages {
		err = multierr.Append(err, sys.munmap(b))
	}
	g.pages, g.fast = nil, nil
	if g.target != nil {
		g.target.close()
		g.target = nil
	}
	return err
}

// Enable starts counting for every event in the group.
func (g *Group) Enable() error {
	if len(g.fds) == 0 {
		return ErrClosed
	}
	if err := sys.ioctl(g.fds[0], unix.PERF_EVENT_IOC_ENABLE, iocFlagGroup); err != nil {
		return errors.Wrap(err, "perf: enabling group")
	}
	g.enabled = true
	return nil
}

// Disable stops counting for every event in the group.
func (g *Group) Disable() error {
	if len(g.fds) == 0 {
		return ErrClosed
	}
	if err := sys.ioctl(g.fds[0], unix.PERF_EVENT_IOC_DISABLE, iocFlagGroup); err != nil {
		return errors.Wrap(err, "perf: disabling group")
	}
	g.enabled = false
	return nil
}

// Len returns the number of events in the group.
func (g *Group) Len() int {
	return len(g.events)
}

// FastRead reports whether [Group.Read] reads counters without a system call.
func (g *Group) FastRead() bool {
	return g.fast != nil
}

// Read stores the current raw value of each event in dst, which must have room
// for [Group.Len] values. Raw values are only meaningful as differences.
//
// If the group can be read directly, Read makes no system call, does not
// allocate, and never fails. Otherwise it reads the whole group with one
// read(2) call; on error, dst is not modified.
func (g *Group) Read(dst []uint64) error {
	if g.fast != nil {
		for i, p := range g.fast {
			dst[i] = p.read()
		}
		return nil
	}
	buf, err := g.readRaw()
	if err != nil {
		return err
	}
	for i := range g.events {
		dst[i] = binary.NativeEndian.Uint64(buf[24+i*8:])
	}
	return nil
}

func (g *Group) readRaw() ([]byte, error) {
	if g.target == nil {
		return nil, ErrClosed
	}
	buf := g.readBuf
	n, err := sys.read(g.fds[0], buf)
	if err != nil {
		return nil, errors.Wrap(err, "perf: reading group")
	}
	if n != len(buf) {
		return nil, errors.Wrapf(ErrShortRead, "got %d of %d bytes", n, len(buf))
	}
	if nr := binary.NativeEndian.Uint64(buf[0:]); nr != uint64(len(g.events)) {
		return nil, errors.Wrapf(ErrShortRead, "read returned %d events, expected %d", nr, len(g.events))
	}
	return buf, nil
}

// Count is the value of one event in a Group.
type Count struct {
	RawValue uint64 // The number of events while this counter was running.

	// Normally, TimeEnabled == TimeRunning. However, if more counters are
	// running than the hardware can support, events will be multiplexed onto
	// the hardware. In that case, TimeRunning < TimeEnabled, and the raw
	// counter value should be scaled under the assumption that the event is
	// happening at a regular rate and the sampled time is representative.

	TimeEnabled uint64 // Total time the Group was enabled.
	TimeRunning uint64 // Total time the Group was actually counting.

	scale scale
}

// Value returns the measured value of Count, scaled to account for time the
// counter was scheduled, and to account for any conversion factors in the
// underlying event.
func (c Count) Value() (float64, string) {
	raw := float64(c.RawValue)
	if c.TimeEnabled == c.TimeRunning && c.scale.scale == 1.0 {
		// Common case: it was running the whole time and there's no conversion factor.
		return raw, c.scale.unit
	}
	if c.TimeRunning == 0 {
		// Avoid divide by zero.
		return 0, c.scale.unit
	}
	return raw * (float64(c.TimeEnabled) / float64(c.TimeRunning)) * c.scale.scale, c.scale.unit
}

// ReadGroup reads the current value of all events in g with read(2), including
// the enabled and running times the kernel uses to account for multiplexing.
// Unlike [Group.Read], it always makes a system call.
func (g *Group) ReadGroup(cs []Count) error {
	buf, err := g.readRaw()
	if err != nil {
		return err
	}
	timeEnabled := binary.NativeEndian.Uint64(buf[8:])
	timeRunning := binary.NativeEndian.Uint64(buf[16:])
	for i := 0; i < len(cs) && i < len(g.events); i++ {
		cs[i].TimeEnabled = timeEnabled
		cs[i].TimeRunning = timeRunning
		cs[i].RawValue = binary.NativeEndian.Uint64(buf[24+i*8:])
		cs[i].scale = g.eventScales[i]
	}
	return nil
}
