// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clock implements the pluggable monotonic time source described
// in spec.md §4.1. A Backend is selected once, before Context.Initialize,
// from a fixed enumeration; a back end the platform cannot support
// reports ErrClockUnavailable or ErrPlatformUnsupported rather than
// silently degrading.
package clock

import (
	"runtime"
	"time"

	"github.com/ClusterCockpit/cc-timing/internal/gptlerrors"
)

// Backend names one of the concrete time sources spec.md §4.1 enumerates.
type Backend int

const (
	// WallTime uses time.Now(), which is monotonic on every platform Go
	// targets; this is the default and the fallback Design Notes §9 calls
	// for when a more specific backend is unavailable.
	WallTime Backend = iota
	// HighResPosix models the POSIX CLOCK_MONOTONIC backend. On Go,
	// time.Now() already reads the high-resolution monotonic clock, so
	// this backend is functionally identical to WallTime; it is kept as a
	// distinct enum value so the reporter preamble can still say which
	// backend was requested.
	HighResPosix
	// CycleCounter models a raw cycle-counter read scaled by a measured
	// frequency. Go provides no portable cycle-counter primitive without
	// assembly per architecture, so this backend reports
	// ErrPlatformUnsupported everywhere; see DESIGN.md.
	CycleCounter
	// MPIWall models an MPI_Wtime-backed clock, fed externally via
	// WithExternalReader. Without one configured it reports
	// ErrClockUnavailable.
	MPIWall
	// AIXHighRes models the AIX-only read_real_time() primitive; always
	// unavailable off AIX.
	AIXHighRes
	// Placebo is the no-op clock used to measure the library's own
	// overhead: every read returns 0.
	Placebo
)

func (b Backend) String() string {
	switch b {
	case WallTime:
		return "walltime"
	case HighResPosix:
		return "highres-posix"
	case CycleCounter:
		return "cycle-counter"
	case MPIWall:
		return "mpi-wall"
	case AIXHighRes:
		return "aix-highres"
	case Placebo:
		return "placebo"
	default:
		return "unknown"
	}
}

// readerFunc returns seconds elapsed since an arbitrary fixed point.
type readerFunc func() float64

// Clock is the initialized, selected time source. A reference timestamp
// is captured at Init so that readings stay small (spec.md: "reference
// timestamp... so readings fit in 32-bit-float-friendly magnitudes").
type Clock struct {
	backend   Backend
	read      readerFunc
	reference time.Time
	overhead  float64
}

// externalMPIReader, if non-nil, backs the MPIWall backend. Set via
// WithExternalReader before calling New(MPIWall).
var externalMPIReader readerFunc

// WithExternalReader installs the clock used by the MPIWall backend. This
// is the seam an MPI-profiling shim (spec.md §9 open question (b)) would
// use to supply MPI_Wtime without this package importing an MPI binding
// directly.
func WithExternalReader(r func() float64) {
	externalMPIReader = r
}

// New selects and initializes backend b, measuring its overhead as the
// average of 100 back-to-back reads (spec.md §4.1).
func New(b Backend) (*Clock, error) {
	var read readerFunc

	switch b {
	case WallTime, HighResPosix:
		read = func() float64 { return 0 } // replaced below once reference is known
	case CycleCounter:
		return nil, gptlerrors.ErrPlatformUnsupported
	case MPIWall:
		if externalMPIReader == nil {
			return nil, gptlerrors.ErrClockUnavailable
		}
		read = externalMPIReader
	case AIXHighRes:
		if runtime.GOOS != "aix" {
			return nil, gptlerrors.ErrPlatformUnsupported
		}
		read = func() float64 { return float64(time.Now().UnixNano()) / 1e9 }
	case Placebo:
		read = func() float64 { return 0 }
	default:
		return nil, gptlerrors.ErrOutOfRange
	}

	reference := time.Now()
	if b == WallTime || b == HighResPosix {
		read = func() float64 { return time.Since(reference).Seconds() }
	}

	c := &Clock{backend: b, read: read, reference: reference}
	c.overhead = c.measureOverhead()
	return c, nil
}

// measureOverhead performs 100 back-to-back reads and returns the mean
// delta between consecutive reads, per spec.md §4.1.
func (c *Clock) measureOverhead() float64 {
	if c.backend == Placebo {
		return 0
	}
	const samples = 100
	total := 0.0
	prev := c.read()
	for i := 0; i < samples; i++ {
		now := c.read()
		total += now - prev
		prev = now
	}
	return total / float64(samples)
}

// Now returns the current reading in seconds: elapsed since the Clock's
// reference point for WallTime and HighResPosix, the source's own
// reading for MPIWall and AIXHighRes, and 0 for Placebo.
func (c *Clock) Now() float64 { return c.read() }

// Overhead returns the measured self-overhead in seconds.
func (c *Clock) Overhead() float64 { return c.overhead }

// Backend returns the selected backend.
func (c *Clock) Backend() Backend { return c.backend }
