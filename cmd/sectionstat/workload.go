// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import (
	"math/rand/v2"
	"slices"
	"strings"
)

// A workload is a small loop with a distinctive counter profile. setup
// prepares its input outside the measured region and returns the measured
// function.
type workload struct {
	name  string
	setup func(n int) func() uint64
}

var workloads = []workload{
	{"sum", setupSum},
	{"branchy", setupBranchy},
	{"stride", setupStride},
}

func lookupWorkload(name string) (workload, bool) {
	for _, w := range workloads {
		if w.name == name {
			return w, true
		}
	}
	return workload{}, false
}

func workloadNames() string {
	names := make([]string, len(workloads))
	for i, w := range workloads {
		names[i] = w.name
	}
	return strings.Join(names, ", ")
}

// setupSum sums a slice: predictable branches, sequential loads.
func setupSum(n int) func() uint64 {
	xs := make([]uint64, n)
	for i := range xs {
		xs[i] = uint64(i)
	}
	return func() uint64 {
		var s uint64
		for _, x := range xs {
			s += x
		}
		return s
	}
}

// setupBranchy branches on random bits, so about half of the branches
// mispredict.
func setupBranchy(n int) func() uint64 {
	r := rand.New(rand.NewPCG(1, 2))
	xs := make([]uint32, n)
	for i := range xs {
		xs[i] = r.Uint32()
	}
	return func() uint64 {
		var s uint64
		for _, x := range xs {
			if x&1 != 0 {
				s += uint64(x)
			} else {
				s ^= uint64(x)
			}
		}
		return s
	}
}

// strideStep is larger than a cache line, so every load touches a new line.
const strideStep = 4096/8 + 8

// setupStride makes n loads spread over a buffer much larger than the L1
// data cache.
func setupStride(n int) func() uint64 {
	buf := make([]uint64, 1<<22)
	idx := make([]int, 0, len(buf)/strideStep)
	for i := 0; i < len(buf); i += strideStep {
		idx = append(idx, i)
	}
	slices.Reverse(idx)
	return func() uint64 {
		var s uint64
		for i := range n {
			j := idx[i%len(idx)]
			buf[j]++
			s += buf[j]
		}
		return s
	}
}
