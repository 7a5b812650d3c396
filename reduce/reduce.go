// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reduce implements the distributed summary reducer of spec.md
// §4.7: a logarithmic tree reduction over an opaque N-rank communicator
// that merges per-rank region statistics into one global summary using
// Chan's single-pass parallel mean/variance algorithm, tolerant of
// non-power-of-two N.
package reduce

import (
	"context"
	"math"

	"github.com/ClusterCockpit/cc-timing/hwcounter"
	"github.com/ClusterCockpit/cc-timing/internal/aggregate"
	"github.com/ClusterCockpit/cc-timing/internal/logging"
)

// GlobalRegion is one named region's reduced, cross-rank summary. It
// carries no owning references (Design Notes §9), so a merge step can
// freely discard, clone or append entries without aliasing concerns.
type GlobalRegion struct {
	Name     string
	TotCalls int64
	TotTsk   int

	WallMax       float64
	WallMaxRank   int
	WallMaxThread int

	WallMin       float64
	WallMinRank   int
	WallMinThread int

	// Mean/M2/N are Chan's running mean, sum-of-squared-deviations and
	// sample count, where each rank initially contributes exactly one
	// sample: its max-over-threads wall time (spec.md §4.6/§4.7).
	Mean float64
	M2   float64
	N    int64

	Aux hwcounter.Value
}

// Stdev returns the sample standard deviation, or 0 for fewer than two
// samples (the timing.summary format's "stdev" column, spec.md §4.8).
func (g GlobalRegion) Stdev() float64 {
	if g.N < 2 {
		return 0
	}
	return math.Sqrt(g.M2 / float64(g.N-1))
}

// FromRegionStats converts one rank's per-thread aggregate into the
// initial per-rank GlobalRegion array the reduction tree starts from.
func FromRegionStats(rank int, stats []aggregate.RegionStat) []GlobalRegion {
	out := make([]GlobalRegion, len(stats))
	for i, rs := range stats {
		out[i] = GlobalRegion{
			Name:          rs.Name,
			TotCalls:      rs.TotCalls,
			TotTsk:        1,
			WallMax:       rs.WallMax,
			WallMaxRank:   rank,
			WallMaxThread: rs.WallMaxThread,
			WallMin:       rs.WallMin,
			WallMinRank:   rank,
			WallMinThread: rs.WallMinThread,
			Mean:          rs.Sample,
			M2:            0,
			N:             1,
			Aux:           rs.Aux,
		}
	}
	return out
}

// Communicator abstracts the point-to-point transport the reduction tree
// sends region arrays over (spec.md §4.7: "an opaque communicator of N
// ranks"). Implementations: InMemoryCommunicator for tests, and
// NewNATSCommunicator for the one wire protocol the Non-goals permit.
type Communicator interface {
	Rank() int
	Size() int
	Send(ctx context.Context, dest int, regions []GlobalRegion) error
	Recv(ctx context.Context, src int) ([]GlobalRegion, error)
}

// Reduce runs the logarithmic tree reduction of spec.md §4.7 and returns
// the fully merged array at rank 0; every other rank gets nil. plugin
// may be nil; when present its Add combines hardware-counter values
// across ranks on merge, mirroring aggregate.Fold's convention.
func Reduce(ctx context.Context, comm Communicator, local []GlobalRegion, plugin hwcounter.Plugin) ([]GlobalRegion, error) {
	iam := comm.Rank()
	n := comm.Size()
	current := local

	for incr := 1; incr < n; incr *= 2 {
		two := incr * 2
		sendto := iam - incr
		recvfm := iam + incr
		dosend := (iam+incr)%two == 0 && sendto >= 0
		dorecv := (iam+two)%two == 0 && recvfm < n

		if dosend && dorecv {
			logging.Warnf("gptl: rank %d scheduled to both send and receive on incr=%d; this indicates a reduction-schedule bug", iam, incr)
		}

		if dosend {
			if err := comm.Send(ctx, sendto, current); err != nil {
				return nil, err
			}
			return nil, nil // sent our data upward; nothing further to do
		}
		if dorecv {
			incoming, err := comm.Recv(ctx, recvfm)
			if err != nil {
				return nil, err
			}
			current = merge(current, incoming, plugin)
		}
	}

	if iam != 0 {
		return nil, nil
	}
	return current, nil
}

// merge walks incoming and, for each region, linear-searches dst by
// name: on hit, combines in place; on miss, appends a verbatim copy
// (spec.md §4.7).
func merge(dst, incoming []GlobalRegion, plugin hwcounter.Plugin) []GlobalRegion {
	for _, in := range incoming {
		idx := -1
		for i := range dst {
			if dst[i].Name == in.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			dst = append(dst, in)
			continue
		}
		dst[idx] = mergeOne(dst[idx], in, plugin)
	}
	return dst
}

// mergeOne combines two GlobalRegion records for the same name via
// Chan's parallel mean/variance formula (spec.md §4.7).
func mergeOne(a, b GlobalRegion, plugin hwcounter.Plugin) GlobalRegion {
	out := a
	out.TotCalls += b.TotCalls
	out.TotTsk += b.TotTsk

	if b.WallMax > a.WallMax {
		out.WallMax = b.WallMax
		out.WallMaxRank = b.WallMaxRank
		out.WallMaxThread = b.WallMaxThread
	}
	if b.WallMin < a.WallMin {
		out.WallMin = b.WallMin
		out.WallMinRank = b.WallMinRank
		out.WallMinThread = b.WallMinThread
	}

	delta := b.Mean - a.Mean
	total := a.N + b.N
	out.Mean = a.Mean + delta*float64(b.N)/float64(total)
	out.M2 = a.M2 + b.M2 + delta*delta*float64(a.N*b.N)/float64(total)
	out.N = total

	if plugin != nil {
		out.Aux = plugin.Add(a.Aux, b.Aux)
	}
	return out
}
