// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hwcounter models the hardware-counter auxiliary-statistics
// plug-in as the capability set Design Notes §9 describes: init, per-slot
// start/stop, merge (add), query and print. The core never interprets a
// Timer's aux slot. The timer store does not call a Plugin's Start or
// Stop, so Timer.Aux stays empty unless a caller fills it; aggregation
// and reduction merge it with Add.
package hwcounter

import "io"

// Plugin is the capability set a hardware-counter back end implements.
// Slot identifies one configured counter event; thread is a per-thread
// index from the registry.
type Plugin interface {
	// Init prepares nthreads independent event sets.
	Init(nthreads int) error
	// Start begins counting event set slot on thread.
	Start(thread, slot int) error
	// Stop ends counting and returns the accumulated opaque value for
	// (thread, slot), to be stored in Timer.Aux.
	Stop(thread, slot int) (Value, error)
	// Add merges src into dst, for cross-thread and cross-rank
	// aggregation of the opaque aux value.
	Add(dst, src Value) Value
	// Query renders a slot's current value as a display string.
	Query(slot int) (string, error)
	// Print writes the plug-in's active configuration to w, for the
	// reporter preamble.
	Print(w io.Writer) error
	// Finalize releases all plugin state.
	Finalize() error
}

// Value is the opaque per-timer auxiliary-statistics payload. The core
// treats it as inert data; plugins populate and interpret it.
type Value struct {
	Counts map[string]float64
}

func (v Value) Clone() Value {
	out := Value{Counts: make(map[string]float64, len(v.Counts))}
	for k, val := range v.Counts {
		out.Counts[k] = val
	}
	return out
}
