// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package section

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aclements/go-perfsection/perf"
)

// ErrSerializeUnsupported is returned by [Config.Validate] when serialization
// is requested on an architecture without a serializing barrier.
var ErrSerializeUnsupported = errors.New("section: serialization is not supported on this architecture")

// Config describes the counters an [Engine] collects.
type Config struct {
	// Kinds lists what to report for each section, in order. Measured kinds
	// must all come before any ratio kind, and every kind a ratio is
	// computed from must appear earlier in the list. Kinds may repeat.
	Kinds []Kind

	// Sections is the number of independent accumulators. It must be at
	// least 1.
	Sections int

	// Serialize places a serializing instruction barrier around every
	// reset and accumulate so that out-of-order execution does not move
	// work across the measurement boundary.
	Serialize bool

	// Logger receives debug logs about opening and closing counters. If
	// nil, nothing is logged.
	Logger *zap.Logger
}

// A ConfigError reports a problem with one entry of [Config.Kinds].
type ConfigError struct {
	Index  int  // Position in Kinds
	Kind   Kind // Offending kind
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("section: kind %d (%s): %s", e.Index, e.Kind, e.Reason)
}

// layout is the shape of a validated Config. Slot 0 of every value vector is
// cycles; slot i+1 is measured[i].
type layout struct {
	kinds    []Kind
	measured []Kind
	ratios   []Kind
}

// Validate reports whether c is a usable configuration. It returns a
// *ConfigError for a badly ordered Kinds list.
func (c Config) Validate() error {
	_, err := c.layout()
	return err
}

func (c Config) layout() (layout, error) {
	var l layout
	if len(c.Kinds) == 0 {
		return l, errors.New("section: no kinds configured")
	}
	if c.Sections < 1 {
		return l, errors.Errorf("section: need at least one section, got %d", c.Sections)
	}
	if c.Serialize && !perf.CanSerialize {
		return l, ErrSerializeUnsupported
	}

	seen := mapset.NewThreadUnsafeSet[Kind]()
	for i, k := range c.Kinds {
		if !k.valid() {
			return l, &ConfigError{i, k, "unknown kind"}
		}
		if !k.IsRatio() {
			if len(l.ratios) > 0 {
				return l, &ConfigError{i, k, fmt.Sprintf("measured kind follows ratio kind %s", l.ratios[0])}
			}
			seen.Add(k)
			l.measured = append(l.measured, k)
			continue
		}
		if missing := kindInfos[k].requires.Difference(seen); missing.Cardinality() > 0 {
			names := make([]string, 0, missing.Cardinality())
			for _, m := range missing.ToSlice() {
				names = append(names, m.String())
			}
			slices.Sort(names)
			return l, &ConfigError{i, k, "requires " + strings.Join(names, ", ") + " earlier in the list"}
		}
		l.ratios = append(l.ratios, k)
	}
	l.kinds = slices.Clone(c.Kinds)
	return l, nil
}

// MustConfig returns a Config for kinds and sections, and panics if it is
// not valid.
func MustConfig(sections int, kinds ...Kind) Config {
	c := Config{Kinds: kinds, Sections: sections}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

// Default returns a Config with the usual general-purpose kinds: instructions,
// branch mispredictions, L1 data cache misses, and IPC.
func Default(sections int) Config {
	return Config{
		Kinds:    []Kind{Instructions, BranchMisses, L1DMiss, IPC},
		Sections: sections,
	}
}
