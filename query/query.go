// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package query implements the programmatic Query API of spec.md §6:
// get_wallclock, get_eventvalue, get_nregions, get_regionname, query.
package query

import (
	"github.com/ClusterCockpit/cc-timing/hwcounter"
	"github.com/ClusterCockpit/cc-timing/internal/gptlerrors"
	"github.com/ClusterCockpit/cc-timing/internal/store"
)

// Result is one timer's full stat snapshot, returned by Query.
type Result struct {
	Name       string
	Count      int64
	NRecurse   int64
	Wall       store.WallStats
	CPU        store.CPUStats
	Aux        hwcounter.Value
	NumParents int
}

// Query returns the current snapshot of the named timer on the given
// thread's store (spec.md §6's `query(name, thread, …)`).
func Query(s *store.PerThreadStore, name string) (Result, error) {
	idx, ok := lookup(s, name)
	if !ok {
		return Result{}, gptlerrors.ErrTimerNotFound
	}
	t := s.Arena[idx]
	return Result{
		Name:       t.Name,
		Count:      t.Count,
		NRecurse:   t.NRecurse,
		Wall:       t.Wall,
		CPU:        t.CPU,
		Aux:        t.Aux,
		NumParents: len(t.Parents),
	}, nil
}

// GetWallclock returns the named timer's accumulated wall time on the
// given thread's store.
func GetWallclock(s *store.PerThreadStore, name string) (float64, error) {
	r, err := Query(s, name)
	if err != nil {
		return 0, err
	}
	return r.Wall.Accumulated, nil
}

// GetEventValue returns the named hardware-counter event's accumulated
// value for the named timer on the given thread's store.
func GetEventValue(s *store.PerThreadStore, name, event string) (float64, error) {
	idx, ok := lookup(s, name)
	if !ok {
		return 0, gptlerrors.ErrTimerNotFound
	}
	v, ok := s.Arena[idx].Aux.Counts[event]
	if !ok {
		return 0, gptlerrors.ErrTimerNotFound
	}
	return v, nil
}

// GetNRegions returns the number of distinct timers recorded on the
// given thread's store (excluding the root sentinel).
func GetNRegions(s *store.PerThreadStore) int {
	return len(s.Arena) - 1
}

// GetRegionName returns the name of the region'th timer recorded on the
// given thread's store (0-based, in arena/insertion order, excluding the
// root sentinel). This mirrors spec.md §6's `get_regionname(thread,
// region, &buf, n)`.
func GetRegionName(s *store.PerThreadStore, region int) (string, error) {
	idx := region + 1 // arena index 0 is always the root sentinel
	if region < 0 || idx >= len(s.Arena) {
		return "", gptlerrors.ErrOutOfRange
	}
	return s.Arena[idx].Name, nil
}

func lookup(s *store.PerThreadStore, name string) (int32, bool) {
	for i, t := range s.Arena {
		if i == int(s.Root) {
			continue
		}
		if t.Name == name {
			return int32(i), true
		}
	}
	return 0, false
}
