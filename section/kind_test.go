// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, tc := range []struct {
		name string
		want Kind
	}{
		{"instructions", Instructions},
		{"INSTRUCTIONS", Instructions},
		{"branch_miss", BranchMisses},
		{"branch-misses", BranchMisses},
		{"cpu/branch-misses/", BranchMisses},
		{"branch-instructions", Branches},
		{"L1D_miss", L1DMiss},
		{"L1-dcache-load-misses", L1DMiss},
		{"L1-icache-loads", L1IAccess},
		{"dTLB-load-misses", DTLBMiss},
		{"LLC-loads", LLAccess},
		{"ipc", IPC},
		{"branch_miss_rate", BranchMissRate},
	} {
		got, err := ParseKind(tc.name)
		if assert.NoError(t, err, tc.name) {
			assert.Equal(t, tc.want, got, tc.name)
		}
	}

	_, err := ParseKind("bogus")
	assert.Error(t, err)
	// Known event, but not one a section can report.
	_, err = ParseKind("page-faults")
	assert.Error(t, err)
}

func TestKindTable(t *testing.T) {
	for _, k := range AllKinds() {
		if k.IsRatio() {
			assert.Nil(t, k.Event(), k.String())
			assert.NotEmpty(t, k.Expr(), k.String())
			require.NotNil(t, kindInfos[k].requires, k.String())
		} else {
			assert.NotNil(t, k.Event(), k.String())
			assert.Empty(t, k.Expr(), k.String())
		}
		back, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
	assert.ElementsMatch(t, []Kind{Instructions}, kindInfos[IPC].requires.ToSlice())
	assert.ElementsMatch(t, []Kind{BranchMisses, Branches}, kindInfos[BranchMissRate].requires.ToSlice())
	assert.Equal(t, "Kind(200)", Kind(200).String())
}
