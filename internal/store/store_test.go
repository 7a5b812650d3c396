// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *PerThreadStore { return New(0, 127, -1) }

func timerByName(s *PerThreadStore, name string) *Timer {
	if idx, ok := s.lookupByName(name); ok {
		return s.Arena[idx]
	}
	return nil
}

// scenario 1: depth/recursion.
func TestScenarioDepthRecursion(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Stop("A", 1, 0, 0))
	require.NoError(t, s.Stop("A", 2, 0, 0))

	a := timerByName(s, "A")
	require.NotNil(t, a)
	assert.EqualValues(t, 1, a.Count)
	assert.EqualValues(t, 1, a.NRecurse)
	assert.False(t, a.OnFlg)
	assert.Equal(t, int32(0), s.depth)

	root := s.Arena[s.Root]
	require.Len(t, root.Children, 0) // children are populated by the tree builder, not Start/Stop
	require.Len(t, a.Parents, 1)
	assert.Equal(t, s.Root, a.Parents[0])
	assert.EqualValues(t, 1, a.Orphan)
}

// scenario 2: nested nonrecursive.
func TestScenarioNestedNonrecursive(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("B", 0, 0, 0))
	require.NoError(t, s.Stop("B", 1, 0, 0))
	require.NoError(t, s.Start("C", 1, 0, 0))
	require.NoError(t, s.Stop("C", 2, 0, 0))
	require.NoError(t, s.Stop("A", 3, 0, 0))

	a, b, c := timerByName(s, "A"), timerByName(s, "B"), timerByName(s, "C")
	aIdx, _ := s.lookupByName("A")

	assert.EqualValues(t, 1, a.Count)
	assert.EqualValues(t, 1, b.Count)
	assert.EqualValues(t, 1, c.Count)

	require.Len(t, b.Parents, 1)
	assert.Equal(t, aIdx, b.Parents[0])
	require.Len(t, c.Parents, 1)
	assert.Equal(t, aIdx, c.Parents[0])
}

// scenario 3: multiple parents.
func TestScenarioMultipleParents(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("X", 0, 0, 0))
	require.NoError(t, s.Stop("X", 1, 0, 0))
	require.NoError(t, s.Stop("A", 2, 0, 0))
	require.NoError(t, s.Start("B", 2, 0, 0))
	require.NoError(t, s.Start("X", 2, 0, 0))
	require.NoError(t, s.Stop("X", 3, 0, 0))
	require.NoError(t, s.Stop("B", 4, 0, 0))

	x := timerByName(s, "X")
	aIdx, _ := s.lookupByName("A")
	bIdx, _ := s.lookupByName("B")

	require.Len(t, x.Parents, 2)
	assert.Equal(t, aIdx, x.Parents[0])
	assert.Equal(t, bIdx, x.Parents[1])
	assert.Equal(t, []int64{1, 1}, x.ParentCounts)
}

// P1
func TestP1CountAndOnFlgAfterTopLevelStop(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Stop("A", 1, 0, 0))
	a := timerByName(s, "A")
	assert.EqualValues(t, 1, a.Count)
	assert.False(t, a.OnFlg)
}

// P2
func TestP2NestedAccumOrdering(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("B", 0.1, 0, 0))
	require.NoError(t, s.Stop("B", 0.4, 0, 0))
	require.NoError(t, s.Stop("A", 0.5, 0, 0))

	a, b := timerByName(s, "A"), timerByName(s, "B")
	assert.GreaterOrEqual(t, a.Wall.Accumulated, b.Wall.Accumulated)
}

// P3
func TestP3RecurseAndCount(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Stop("A", 1, 0, 0))
	require.NoError(t, s.Stop("A", 1, 0, 0))
	require.NoError(t, s.Stop("A", 1, 0, 0))

	a := timerByName(s, "A")
	assert.EqualValues(t, 2, a.NRecurse)
	assert.EqualValues(t, 1, a.Count)
}

func TestStopAlreadyOffErrors(t *testing.T) {
	s := newStore()
	err := s.Stop("nope", 0, 0, 0)
	assert.Error(t, err)

	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Stop("A", 1, 0, 0))
	err = s.Stop("A", 2, 0, 0)
	assert.Error(t, err)
}

// P6
func TestP6HashLookupIndependentOfInsertionOrder(t *testing.T) {
	s1, s2 := newStore(), newStore()
	names := []string{"alpha", "beta", "gamma", "delta"}
	for _, n := range names {
		require.NoError(t, s1.Start(n, 0, 0, 0))
		require.NoError(t, s1.Stop(n, 1, 0, 0))
	}
	for i := len(names) - 1; i >= 0; i-- {
		require.NoError(t, s2.Start(names[i], 0, 0, 0))
		require.NoError(t, s2.Stop(names[i], 1, 0, 0))
	}
	for _, n := range names {
		_, ok1 := s1.lookupByName(n)
		_, ok2 := s2.lookupByName(n)
		assert.True(t, ok1)
		assert.True(t, ok2)
	}
}

// P7
func TestP7MaxNameLen(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start("short", 0, 0, 0))
	require.NoError(t, s.Start("a-much-longer-region-name", 0, 0, 0))
	assert.Equal(t, len("a-much-longer-region-name"), s.MaxNameLen)
}

func TestHandleVariantBypassesLookupAfterFirstCall(t *testing.T) {
	s := newStore()
	var h Handle
	require.NoError(t, s.StartHandle("H", &h, 0, 0, 0))
	require.NotZero(t, h)
	require.NoError(t, s.StopHandle("H", &h, 1, 0, 0))

	for i := 0; i < 1000; i++ {
		require.NoError(t, s.StartHandle("H", &h, float64(i), 0, 0))
		require.NoError(t, s.StopHandle("H", &h, float64(i)+1, 0, 0))
	}
	timer := s.Arena[h]
	assert.EqualValues(t, 1001, timer.Count)
}

func TestInstrVariantUsesHexName(t *testing.T) {
	s := newStore()
	require.NoError(t, s.StartInstr(0x1000, 0, 0, 0))
	require.NoError(t, s.StopInstr(0x1000, 1, 0, 0))

	idx, ok := s.lookupByAddr(0x1000)
	require.True(t, ok)
	assert.Equal(t, "1000", s.Arena[idx].Name)
}

func TestNameTruncation(t *testing.T) {
	s := newStore()
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	require.NoError(t, s.Start(long, 0, 0, 0))
	idx, ok := s.lookupByName(truncateName(long))
	require.True(t, ok)
	assert.LessOrEqual(t, len(s.Arena[idx].Name), MaxChars)
}

func TestDepthLimitSuppressesWithoutCreatingTimer(t *testing.T) {
	s := New(0, 127, 1) // allow only the top level
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("B", 0, 0, 0)) // suppressed: depth already at limit
	_, ok := s.lookupByName("B")
	assert.False(t, ok)
	require.NoError(t, s.Stop("B", 1, 0, 0))
	require.NoError(t, s.Stop("A", 1, 0, 0))
	assert.Equal(t, int32(0), s.depth)
}

func TestStackOverflowBeyondMaxStack(t *testing.T) {
	s := newStore()
	for i := 0; i < MaxStack; i++ {
		name := string(rune('a'+i%26)) + string(rune(i))
		require.NoError(t, s.Start(name, 0, 0, 0))
	}
	err := s.Start("one-too-many", 0, 0, 0)
	assert.Error(t, err)
}
