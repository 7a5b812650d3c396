// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package aggregate folds a rank's per-thread PerThreadStores into one
// RegionStat per named region, per spec.md §4.6.
package aggregate

import (
	"sort"

	"github.com/ClusterCockpit/cc-timing/hwcounter"
	"github.com/ClusterCockpit/cc-timing/internal/store"
)

// RegionStat is one named region's cross-thread summary within a single
// rank. Sample is the max-over-threads wall-accumulated value: the unit
// datum the distributed reducer (package reduce) folds in as an n=1,
// m2=0 sample per rank, per spec.md §4.7's "per-rank max-over-threads
// samples".
type RegionStat struct {
	Name   string
	TotCalls int64

	WallMax       float64
	WallMaxThread int
	WallMin       float64
	WallMinThread int
	// wallMaxSet/wallMinSet distinguish an honest zero extremum from
	// "unset": the first thread observed for a region always wins the
	// initial comparison, per spec.md §4.6.
	wallMaxSet bool
	wallMinSet bool

	Sample float64
	Aux    hwcounter.Value
}

// Fold walks every store's arena once per thread and accumulates into a
// name-keyed table, returned sorted by name (the report's flat
// cross-thread table is sorted by name, per spec.md §4.8, and sorting
// here means callers never need to re-sort). plugin may be nil; when
// present its Add combines per-thread hardware-counter values, per
// spec.md §4.6 ("hardware-counter aggregation is deferred to the opaque
// counter plug-in").
func Fold(stores []*store.PerThreadStore, plugin hwcounter.Plugin) []RegionStat {
	byName := make(map[string]*RegionStat)
	var order []string

	for _, s := range stores {
		for _, idx := range s.Order {
			if idx == s.Root {
				continue
			}
			t := s.Arena[idx]
			if t.Count == 0 {
				continue // never started/stopped on this thread: nothing to fold
			}
			rs, ok := byName[t.Name]
			if !ok {
				rs = &RegionStat{Name: t.Name}
				byName[t.Name] = rs
				order = append(order, t.Name)
			}
			foldTimer(rs, s.ThreadIndex, t, plugin)
		}
	}

	out := make([]RegionStat, len(order))
	sort.Strings(order)
	for i, name := range order {
		out[i] = *byName[name]
	}
	return out
}

func foldTimer(rs *RegionStat, thread int, t *store.Timer, plugin hwcounter.Plugin) {
	rs.TotCalls += t.Count

	if !rs.wallMaxSet || t.Wall.Accumulated > rs.WallMax {
		rs.WallMax = t.Wall.Accumulated
		rs.WallMaxThread = thread
		rs.wallMaxSet = true
	}
	if !rs.wallMinSet || t.Wall.Accumulated < rs.WallMin {
		rs.WallMin = t.Wall.Accumulated
		rs.WallMinThread = thread
		rs.wallMinSet = true
	}
	rs.Sample = rs.WallMax

	if plugin != nil {
		rs.Aux = plugin.Add(rs.Aux, t.Aux)
	}
}
