// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/cc-timing/internal/store"
	"github.com/ClusterCockpit/cc-timing/reduce"
)

func buildStore(t *testing.T, thread int) *store.PerThreadStore {
	t.Helper()
	s := store.New(thread, 127, -1)
	require.NoError(t, s.Start("outer", 0, 0, 0))
	require.NoError(t, s.Start("inner", 0, 0, 0))
	require.NoError(t, s.Stop("inner", 1, 0, 0))
	require.NoError(t, s.Stop("outer", 2, 0, 0))
	return s
}

func TestWriteThreadsSingleThreadTreeIndentation(t *testing.T) {
	s := buildStore(t, 0)
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Preamble = false
	require.NoError(t, WriteThreads(&buf, []*store.PerThreadStore{s}, nil, nil, opts))

	out := buf.String()
	assert.Contains(t, out, "Stats for thread 0:")
	assert.Contains(t, out, "outer")
	assert.Contains(t, out, "inner")
	// inner must be indented further right than outer.
	outerLine := lineContaining(out, "outer")
	innerLine := lineContaining(out, "inner")
	require.NotEmpty(t, outerLine)
	require.NotEmpty(t, innerLine)
	assert.Greater(t, leadingSpaces(innerLine), leadingSpaces(outerLine))
}

func TestWriteThreadsMultipleThreadsAddsCrossThreadTable(t *testing.T) {
	s0 := buildStore(t, 0)
	s1 := buildStore(t, 1)
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Preamble = false
	require.NoError(t, WriteThreads(&buf, []*store.PerThreadStore{s0, s1}, nil, nil, opts))

	out := buf.String()
	assert.Contains(t, out, "Same stats sorted by timer for cross-thread comparison:")
	assert.Contains(t, out, "Stats for thread 1:")
}

func TestWriteThreadsMultipleParentSection(t *testing.T) {
	s := store.New(0, 127, -1)
	require.NoError(t, s.Start("A", 0, 0, 0))
	require.NoError(t, s.Start("X", 0, 0, 0))
	require.NoError(t, s.Stop("X", 1, 0, 0))
	require.NoError(t, s.Stop("A", 2, 0, 0))
	require.NoError(t, s.Start("B", 2, 0, 0))
	require.NoError(t, s.Start("X", 2, 0, 0))
	require.NoError(t, s.Stop("X", 3, 0, 0))
	require.NoError(t, s.Stop("B", 4, 0, 0))

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Preamble = false
	require.NoError(t, WriteThreads(&buf, []*store.PerThreadStore{s}, nil, nil, opts))

	out := buf.String()
	assert.Contains(t, out, "Multiple parent info:")
	assert.Contains(t, out, "*") // flag column on X's row
}

func TestWriteThreadsPercentIsRelativeToThreadsOwnFirstTimer(t *testing.T) {
	s := store.New(0, 127, -1)
	// "outer" is the first timer started on this thread: accum 10.
	require.NoError(t, s.Start("outer", 0, 0, 0))
	require.NoError(t, s.Stop("outer", 10, 0, 0))
	// "half" accumulates exactly half of "outer"'s wall time.
	require.NoError(t, s.Start("half", 10, 0, 0))
	require.NoError(t, s.Stop("half", 15, 0, 0))

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Preamble = false
	opts.Percent = true
	require.NoError(t, WriteThreads(&buf, []*store.PerThreadStore{s}, nil, nil, opts))

	out := buf.String()
	outerLine := lineContaining(out, "outer")
	halfLine := lineContaining(out, "half")
	require.NotEmpty(t, outerLine)
	require.NotEmpty(t, halfLine)
	assert.Contains(t, outerLine, "100.00%")
	assert.Contains(t, halfLine, "50.00%")
}

func TestWriteSummaryFormatsProvenance(t *testing.T) {
	regions := []reduce.GlobalRegion{{
		Name: "R", TotCalls: 3, TotTsk: 3,
		WallMax: 4.0, WallMaxRank: 2, WallMaxThread: 0,
		WallMin: 1.0, WallMinRank: 0, WallMinThread: 0,
		Mean: 2.3333333, M2: 4.6666667, N: 3,
	}}
	var buf bytes.Buffer
	WriteSummary(&buf, regions)
	out := buf.String()
	assert.Contains(t, out, "R")
	assert.Contains(t, out, "(2,0)")
	assert.Contains(t, out, "(0,0)")
}

func lineContaining(s, substr string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}

func leadingSpaces(s string) int {
	n := 0
	for _, c := range s {
		if c != ' ' {
			break
		}
		n++
	}
	return n
}
