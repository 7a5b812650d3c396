// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/cc-timing/internal/store"
)

func mkStore(t *testing.T, thread int, name string, start, stop float64) *store.PerThreadStore {
	t.Helper()
	s := store.New(thread, 127, -1)
	require.NoError(t, s.Start(name, start, 0, 0))
	require.NoError(t, s.Stop(name, stop, 0, 0))
	return s
}

func find(regions []RegionStat, name string) *RegionStat {
	for i := range regions {
		if regions[i].Name == name {
			return &regions[i]
		}
	}
	return nil
}

func TestFoldSumsCountsAcrossThreads(t *testing.T) {
	s0 := mkStore(t, 0, "R", 0, 1)
	s1 := mkStore(t, 1, "R", 0, 2)
	regions := Fold([]*store.PerThreadStore{s0, s1}, nil)

	r := find(regions, "R")
	require.NotNil(t, r)
	assert.EqualValues(t, 2, r.TotCalls)
}

func TestFoldTracksMaxMinWithThreadProvenance(t *testing.T) {
	s0 := mkStore(t, 0, "R", 0, 1) // accumulated 1.0
	s1 := mkStore(t, 1, "R", 0, 3) // accumulated 3.0
	s2 := mkStore(t, 2, "R", 0, 2) // accumulated 2.0
	regions := Fold([]*store.PerThreadStore{s0, s1, s2}, nil)

	r := find(regions, "R")
	require.NotNil(t, r)
	assert.InDelta(t, 3.0, r.WallMax, 1e-9)
	assert.Equal(t, 1, r.WallMaxThread)
	assert.InDelta(t, 1.0, r.WallMin, 1e-9)
	assert.Equal(t, 0, r.WallMinThread)
	assert.InDelta(t, 3.0, r.Sample, 1e-9)
}

func TestFoldFirstThreadWinsInitialMinComparison(t *testing.T) {
	// A region whose only observation has accumulated == 0 must still be
	// recorded rather than being treated as permanently "unset".
	s := store.New(0, 127, -1)
	require.NoError(t, s.Start("Instant", 5, 0, 0))
	require.NoError(t, s.Stop("Instant", 5, 0, 0))
	regions := Fold([]*store.PerThreadStore{s}, nil)

	r := find(regions, "Instant")
	require.NotNil(t, r)
	assert.InDelta(t, 0.0, r.WallMin, 1e-9)
	assert.InDelta(t, 0.0, r.WallMax, 1e-9)
}

func TestFoldSkipsTimersNeverStopped(t *testing.T) {
	s := store.New(0, 127, -1)
	require.NoError(t, s.Start("Never", 0, 0, 0))
	regions := Fold([]*store.PerThreadStore{s}, nil)
	assert.Nil(t, find(regions, "Never"))
}

func TestFoldResultSortedByName(t *testing.T) {
	s := store.New(0, 127, -1)
	for _, n := range []string{"zeta", "alpha", "mu"} {
		require.NoError(t, s.Start(n, 0, 0, 0))
		require.NoError(t, s.Stop(n, 1, 0, 0))
	}
	regions := Fold([]*store.PerThreadStore{s}, nil)
	require.Len(t, regions, 3)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, []string{regions[0].Name, regions[1].Name, regions[2].Name})
}
