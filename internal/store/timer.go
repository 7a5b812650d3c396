// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package store

import "github.com/ClusterCockpit/cc-timing/hwcounter"

// WallStats holds accumulated/max/min wallclock for a Timer, plus the
// stamp taken at the Timer's last (unmatched) start.
type WallStats struct {
	Accumulated float64
	Max         float64
	Min         float64
	LastStart   float64
}

// CPUStats holds accumulated user/system ticks plus the stamps taken at
// the Timer's last start.
type CPUStats struct {
	AccumUser float64
	AccumSys  float64
	LastUser  float64
	LastSys   float64
}

// Timer is the runtime record for one named region in one thread. See
// spec.md §3 for the field-level invariants.
type Timer struct {
	Name   string
	Addr   uintptr
	IsAddr bool

	OnFlg      bool
	RecurseLvl int32
	Count      int64
	NRecurse   int64
	Orphan     int64

	Wall WallStats
	CPU  CPUStats
	Aux  hwcounter.Value

	// Parents/ParentCounts are parallel arrays: spec.md's ParentRecord.
	// Parents holds arena indices into the owning PerThreadStore, never
	// duplicated.
	Parents      []int32
	ParentCounts []int64

	// Children is populated only by the tree builder (internal/tree), on
	// demand at report time. It holds non-owning arena indices, never
	// pointers, so the possibly-cyclic observed parent graph can never
	// produce a retain cycle (Design Notes §9).
	Children []int32
}
