// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package section measures hardware performance counters across regions of
// code ("sections") from inside the process being measured.
//
// An [Engine] keeps one accumulator per section. [Engine.Reset] samples the
// counters, and [Engine.Accumulate] adds everything counted since the last
// sample to a section and takes a new sample. Cycles are always measured, from
// the CPU's timestamp counter where one exists.
//
//	e, err := section.New(section.Default(2))
//	...
//	defer e.Close()
//	e.Reset()
//	parse()
//	e.Accumulate(0)
//	compile()
//	e.Accumulate(1)
//	e.Render(os.Stdout, 0, 1)
//
// An Engine is bound to the OS thread of the goroutine that created it and
// only counts work done on that thread.
package section

import (
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aclements/go-perfsection/events"
	"github.com/aclements/go-perfsection/perf"
)

// source is a started counter group. *perf.Group implements it.
type source interface {
	Read(dst []uint64) error
	Close() error
	FastRead() bool
}

// openGroup is a variable so tests can substitute a fake counter group.
var openGroup = func(evs []events.Event) (source, error) {
	g, err := perf.OpenGroup(perf.TargetThisGoroutine, evs...)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// An Engine accumulates counter deltas into a fixed number of sections.
type Engine struct {
	layout
	serialize bool

	src     source
	now     func() uint64
	barrier func()
	log     *zap.Logger
	closed  bool

	base  []uint64   // last sample, cycles first
	cur   []uint64   // scratch for the current sample
	cumul [][]uint64 // per-section totals
}

// New validates cfg, opens its counters on the calling thread, and takes an
// initial sample. The returned Engine must be used from the calling goroutine
// and closed with [Engine.Close].
//
// If the kernel refuses the counters, or does not allow reading them from
// user space, New returns an error and holds no resources.
func New(cfg Config) (*Engine, error) {
	l, err := cfg.layout()
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	evs := make([]events.Event, len(l.measured))
	names := make([]string, len(l.measured))
	for i, k := range l.measured {
		evs[i] = k.Event()
		names[i] = k.String()
	}
	src, err := openGroup(evs)
	if err != nil {
		log.Debug("opening counters failed", zap.Strings("kinds", names), zap.Error(err))
		return nil, errors.Wrap(err, "section: opening counters")
	}
	log.Debug("opened counters",
		zap.Strings("kinds", names),
		zap.Int("sections", cfg.Sections),
		zap.Bool("fastRead", src.FastRead()),
		zap.String("cycleSource", perf.CycleSource()))

	e := newEngine(l, cfg.Sections, src, log)
	e.serialize = cfg.Serialize
	if err := e.Reset(); err != nil {
		e.Close()
		return nil, errors.Wrap(err, "section: initial sample")
	}
	return e, nil
}

func newEngine(l layout, sections int, src source, log *zap.Logger) *Engine {
	n := 1 + len(l.measured)
	e := &Engine{
		layout:  l,
		src:     src,
		now:     perf.Cycles,
		barrier: perf.Serialize,
		log:     log,
		base:    make([]uint64, n),
		cur:     make([]uint64, n),
		cumul:   make([][]uint64, sections),
	}
	// One backing array keeps the accumulators contiguous.
	all := make([]uint64, n*sections)
	for i := range e.cumul {
		e.cumul[i] = all[i*n : (i+1)*n : (i+1)*n]
	}
	return e
}

// Reset samples the counters so the next [Engine.Accumulate] measures from
// here. Accumulated totals are unchanged. On error the previous sample is
// kept.
func (e *Engine) Reset() error {
	if e.serialize {
		e.barrier()
	}
	c := e.now()
	if err := e.src.Read(e.cur[1:]); err != nil {
		return err
	}
	e.cur[0] = c
	e.base, e.cur = e.cur, e.base
	return nil
}

// Accumulate adds the counts since the last sample to section's totals,
// then samples again, so consecutive calls measure back-to-back regions. It
// returns section's totals, which are only valid until the next call that
// modifies them.
//
// Accumulate panics if section is out of range. If reading the counters
// fails, neither the totals nor the last sample change.
func (e *Engine) Accumulate(section int) ([]uint64, error) {
	acc := e.cumul[section]
	if e.serialize {
		e.barrier()
	}
	c := e.now()
	if err := e.src.Read(e.cur[1:]); err != nil {
		return acc, err
	}
	e.cur[0] = c
	for i, v := range e.cur {
		acc[i] += v - e.base[i]
	}
	e.base, e.cur = e.cur, e.base
	if e.serialize {
		e.barrier()
	}
	return acc, nil
}

// Clear zeroes every section's totals and then calls [Engine.Reset].
func (e *Engine) Clear() error {
	for _, acc := range e.cumul {
		clear(acc)
	}
	return e.Reset()
}

// Get returns section's totals: cycles first, followed by each measured kind
// in configuration order. The slice aliases the Engine's storage. Get panics
// if section is out of range.
func (e *Engine) Get(section int) []uint64 {
	return e.cumul[section]
}

// Sections returns the number of sections.
func (e *Engine) Sections() int {
	return len(e.cumul)
}

// Kinds returns the configured kinds in order.
func (e *Engine) Kinds() []Kind {
	return slices.Clone(e.kinds)
}

// FastRead reports whether counters are read without a system call.
func (e *Engine) FastRead() bool {
	return e.src.FastRead()
}

// Close releases the counters and unbinds the calling goroutine from its OS
// thread. Reset and Accumulate fail after Close. Calling Close more than once
// is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.src.Close()
	e.log.Debug("closed counters", zap.Error(err))
	return err
}
