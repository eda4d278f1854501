// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package section

import (
	"fmt"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/aclements/go-perfsection/events"
)

// A Kind is a quantity an [Engine] reports for each section. Most kinds are
// hardware events counted by the CPU. Ratio kinds (IPC and BranchMissRate) are
// computed from other kinds when results are rendered and must come after all
// measured kinds in a configuration.
//
// Elapsed cycles are always measured and are not a Kind.
type Kind uint8

const (
	Instructions   Kind = iota // Retired instructions
	BranchMisses               // Mispredicted branches
	Branches                   // Retired branch instructions
	L1DAccess                  // L1 data cache reads
	L1DMiss                    // L1 data cache read misses
	L1IAccess                  // L1 instruction cache reads
	L1IMiss                    // L1 instruction cache read misses
	DTLBMiss                   // Data TLB read misses
	ITLBMiss                   // Instruction TLB read misses
	LLAccess                   // Last level cache reads
	LLMiss                     // Last level cache read misses
	IPC                        // Instructions / cycles
	BranchMissRate             // BranchMisses / Branches

	numKinds
)

// cyclesName is the expression variable for the cycle slot.
const cyclesName = "cycles"

type kindInfo struct {
	name  string // configuration name and expression variable
	label string
	event events.Event // nil for ratio kinds
	expr  string       // ratio kinds only

	eval     *govaluate.EvaluableExpression
	requires mapset.Set[Kind] // measured kinds expr refers to
}

var kindInfos = [numKinds]kindInfo{
	Instructions:   {name: "instructions", label: "Instructions", event: events.EventInstructions},
	BranchMisses:   {name: "branch_miss", label: "Branch mispredictions", event: events.EventBranchMisses},
	Branches:       {name: "branches", label: "Branch instructions", event: events.EventBranches},
	L1DAccess:      {name: "L1D_access", label: "L1D accesses", event: events.EventL1DLoads},
	L1DMiss:        {name: "L1D_miss", label: "L1D misses", event: events.EventL1DLoadMisses},
	L1IAccess:      {name: "L1I_access", label: "L1I accesses", event: events.EventL1ILoads},
	L1IMiss:        {name: "L1I_miss", label: "L1I misses", event: events.EventL1ILoadMisses},
	DTLBMiss:       {name: "DTLB_miss", label: "DTLB misses", event: events.EventDTLBLoadMisses},
	ITLBMiss:       {name: "ITLB_miss", label: "ITLB misses", event: events.EventITLBLoadMisses},
	LLAccess:       {name: "LL_access", label: "LL accesses", event: events.EventLLCLoads},
	LLMiss:         {name: "LL_miss", label: "LL misses", event: events.EventLLCLoadMisses},
	IPC:            {name: "IPC", label: "IPC", expr: "instructions / cycles"},
	BranchMissRate: {name: "branch_miss_rate", label: "Branch misprediction ratio", expr: "branch_miss / branches"},
}

func init() {
	byName := make(map[string]Kind)
	for k := range kindInfos {
		byName[kindInfos[k].name] = Kind(k)
	}
	for k := range kindInfos {
		info := &kindInfos[k]
		if info.expr == "" {
			continue
		}
		eval, err := govaluate.NewEvaluableExpression(info.expr)
		if err != nil {
			panic(fmt.Sprintf("section: bad expression for %s: %v", info.name, err))
		}
		info.eval = eval
		info.requires = mapset.NewThreadUnsafeSet[Kind]()
		for _, v := range eval.Vars() {
			if v == cyclesName {
				continue
			}
			req, ok := byName[v]
			if !ok || kindInfos[req].expr != "" {
				panic(fmt.Sprintf("section: expression for %s refers to unknown kind %q", info.name, v))
			}
			info.requires.Add(req)
		}
	}
}

func (k Kind) valid() bool {
	return k < numKinds
}

// String returns the configuration name of k, such as "branch_miss".
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindInfos[k].name
}

// Label returns the human-readable name of k used by [Engine.Render].
func (k Kind) Label() string {
	if !k.valid() {
		return k.String()
	}
	return kindInfos[k].label
}

// IsRatio reports whether k is computed from other kinds rather than counted.
func (k Kind) IsRatio() bool {
	return k.valid() && kindInfos[k].expr != ""
}

// Event returns the hardware event counted for k, or nil for ratio kinds.
func (k Kind) Event() events.Event {
	if !k.valid() {
		return nil
	}
	return kindInfos[k].event
}

// Expr returns the expression a ratio kind is computed from, in terms of
// other kinds' names and "cycles". It is empty for measured kinds.
func (k Kind) Expr() string {
	if !k.valid() {
		return ""
	}
	return kindInfos[k].expr
}

// AllKinds returns every Kind, measured kinds first.
func AllKinds() []Kind {
	ks := make([]Kind, numKinds)
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}

// ParseKind returns the Kind called name. name may be a configuration name
// such as "L1D_miss" (case is ignored), or any perf event name that denotes
// the same hardware event, such as "L1-dcache-load-misses" or "l1d-misses".
func ParseKind(name string) (Kind, error) {
	for k := range kindInfos {
		if strings.EqualFold(kindInfos[k].name, name) {
			return Kind(k), nil
		}
	}
	switch strings.ToLower(name) {
	case "ipc", "insn-per-cycle":
		return IPC, nil
	case "branch-miss-rate":
		return BranchMissRate, nil
	}

	ev, err := events.ParseEvent(name)
	if err != nil {
		return 0, errors.Errorf("unknown kind %q", name)
	}
	typ, config, err := events.Attr(ev)
	if err != nil {
		return 0, err
	}
	for k := range kindInfos {
		if kindInfos[k].event == nil {
			continue
		}
		kTyp, kConfig, _ := events.Attr(kindInfos[k].event)
		if kTyp == typ && kConfig == config {
			return Kind(k), nil
		}
	}
	return 0, errors.Errorf("event %q is not a supported kind", name)
}
