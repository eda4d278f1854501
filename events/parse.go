// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package events

import (
	"fmt"
	"strings"
)

// ParseEvent returns the Event named by name. name may be a perf built-in
// event ("instructions", "L1-dcache-load-misses", "dTLB-load-misses", and
// their aliases) optionally wrapped in a PMU, as in "cpu/instructions/".
//
// Model-specific events from /sys or the perf event tables are not
// supported.
func ParseEvent(name string) (Event, error) {
	pmu, eventName := "", name
	if strings.Count(name, "/") == 2 && !strings.HasPrefix(name, "/") && strings.HasSuffix(name, "/") {
		pmu, eventName, _ = strings.Cut(strings.TrimSuffix(name, "/"), "/")
		if eventName == "" {
			return nil, fmt.Errorf("event %q: missing event name", name)
		}
		if strings.ContainsAny(eventName, ",=") {
			return nil, fmt.Errorf("event %q: event parameters are not supported", name)
		}
	}
	if pmu != "" && pmu != "cpu" {
		return nil, fmt.Errorf("unknown PMU %q", pmu)
	}
	ev, ok := resolveBuiltinEvent(pmu, eventName)
	if !ok {
		if pmu != "" {
			return nil, fmt.Errorf("event %q: unknown event %q", name, eventName)
		}
		return nil, fmt.Errorf("unknown event %q", name)
	}
	ev.name = name
	return ev, nil
}
