// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package reduce

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/cc-timing/internal/aggregate"
)

func reduceAll(t *testing.T, n int, samples []float64) []GlobalRegion {
	t.Helper()
	require.Len(t, samples, n)
	comms := NewInMemoryCommunicators(n)

	var mu sync.Mutex
	var result []GlobalRegion
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			local := FromRegionStats(rank, []aggregate.RegionStat{{
				Name:          "R",
				TotCalls:      1,
				WallMax:       samples[rank],
				WallMaxThread: 0,
				WallMin:       samples[rank],
				WallMinThread: 0,
				Sample:        samples[rank],
			}})
			out, err := Reduce(ctx, comms[rank], local, nil)
			if err != nil {
				errs[rank] = err
				return
			}
			if out != nil {
				mu.Lock()
				result = out
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	return result
}

// scenario 5 / P5: N=3, wall times 1.0, 2.0, 4.0.
func TestReduceScenario5ThreeRanks(t *testing.T) {
	result := reduceAll(t, 3, []float64{1.0, 2.0, 4.0})
	require.Len(t, result, 1)
	r := result[0]

	assert.Equal(t, "R", r.Name)
	assert.EqualValues(t, 3, r.TotCalls)
	assert.Equal(t, 3, r.TotTsk)
	assert.InDelta(t, 4.0, r.WallMax, 1e-9)
	assert.Equal(t, 2, r.WallMaxRank)
	assert.InDelta(t, 1.0, r.WallMin, 1e-9)
	assert.Equal(t, 0, r.WallMinRank)
	assert.InDelta(t, 2.3333333333, r.Mean, 1e-6)
	assert.InDelta(t, 1.527525, r.Stdev(), 1e-4)
}

// P5: totcalls sums correctly and mean/m2 match a sequential one-pass
// computation to within 1e-6 relative error, for N not a power of two.
func TestReduceMatchesSequentialMeanVarianceNonPowerOfTwo(t *testing.T) {
	samples := []float64{1.0, 3.0, 2.0, 9.0, 5.0}
	result := reduceAll(t, len(samples), samples)
	require.Len(t, result, 1)
	r := result[0]

	assert.EqualValues(t, len(samples), r.TotCalls)

	var sum float64
	for _, s := range samples {
		sum += s
	}
	seqMean := sum / float64(len(samples))

	var seqM2 float64
	for _, s := range samples {
		seqM2 += (s - seqMean) * (s - seqMean)
	}

	assert.InDelta(t, seqMean, r.Mean, math.Abs(seqMean)*1e-6+1e-9)
	assert.InDelta(t, seqM2, r.M2, math.Abs(seqM2)*1e-6+1e-9)
}

func TestReduceSingleRankIsIdentity(t *testing.T) {
	result := reduceAll(t, 1, []float64{7.0})
	require.Len(t, result, 1)
	assert.InDelta(t, 7.0, result[0].Mean, 1e-9)
	assert.EqualValues(t, 1, result[0].N)
}

func TestMergeOneAppendsOnNameMiss(t *testing.T) {
	a := []GlobalRegion{{Name: "A", TotCalls: 1, N: 1, Mean: 1}}
	b := []GlobalRegion{{Name: "B", TotCalls: 1, N: 1, Mean: 2}}
	out := merge(a, b, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "B", out[1].Name)
}

func TestMergeOneChanFormulaMatchesKnownPair(t *testing.T) {
	a := GlobalRegion{Name: "R", N: 1, Mean: 1.0, M2: 0}
	b := GlobalRegion{Name: "R", N: 1, Mean: 2.0, M2: 0}
	out := mergeOne(a, b, nil)
	assert.InDelta(t, 1.5, out.Mean, 1e-9)
	assert.InDelta(t, 0.5, out.M2, 1e-9)
	assert.EqualValues(t, 2, out.N)
}
