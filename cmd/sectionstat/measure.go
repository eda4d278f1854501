// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aclements/go-perfsection/report"
	"github.com/aclements/go-perfsection/section"
)

// sink keeps workload results live.
var sink uint64

// measure runs every workload rc.trials times, each trial accumulated into
// the workload's section, and returns per-trial results. With a metrics
// address it repeats every rc.interval, exporting each round, until ctx is
// done.
func measure(ctx context.Context, rc *runConfig, log *zap.Logger) ([]report.Section, error) {
	e, err := section.New(rc.engine)
	if err != nil {
		return nil, err
	}
	defer e.Close()
	log.Debug("engine ready", zap.Bool("fastRead", e.FastRead()))

	names := make([]string, len(rc.workloads))
	fns := make([]func() uint64, len(rc.workloads))
	for i, w := range rc.workloads {
		names[i] = w.name
		fns[i] = w.setup(rc.iterations)
	}

	round := func() ([]report.Section, error) {
		if err := e.Clear(); err != nil {
			return nil, err
		}
		for i, fn := range fns {
			for range rc.trials {
				if err := e.Reset(); err != nil {
					return nil, err
				}
				sink += fn()
				if _, err := e.Accumulate(i); err != nil {
					return nil, err
				}
			}
		}
		return report.FromEngine(e, names, uint64(rc.trials))
	}

	secs, err := round()
	if err != nil || rc.metricsAddr == "" {
		return secs, err
	}

	exp := report.NewExporter()
	exp.Update(secs)
	serveErr := make(chan error, 1)
	go func() { serveErr <- exp.Serve(ctx, rc.metricsAddr, log) }()

	tick := time.NewTicker(rc.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return secs, nil
		case err := <-serveErr:
			return secs, err
		case <-tick.C:
		}
		if secs, err = round(); err != nil {
			return nil, err
		}
		exp.Update(secs)
		log.Debug("measured round", zap.Int("sections", len(secs)))
	}
}
