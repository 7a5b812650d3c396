// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForkJoinLookupValidatesRange(t *testing.T) {
	r := New(ForkJoin, 4)

	idx, err := r.Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, int32(3), r.NThreads())

	_, err = r.Lookup(-1)
	assert.Error(t, err)
	_, err = r.Lookup(4)
	assert.Error(t, err)
}

func TestSelfManagedRegistersOncePerGoroutine(t *testing.T) {
	r := New(SelfManaged, 8)

	idx1, err := r.Self()
	require.NoError(t, err)
	idx2, err := r.Self()
	require.NoError(t, err)
	assert.Equal(t, idx1, idx2, "same goroutine must resolve to the same index")
}

func TestSelfManagedDistinctGoroutinesGetDistinctIndices(t *testing.T) {
	r := New(SelfManaged, 32)

	const n = 16
	var wg sync.WaitGroup
	indices := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := r.Self()
			require.NoError(t, err)
			indices[i] = idx
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, idx := range indices {
		assert.False(t, seen[idx], "index %d reused across goroutines", idx)
		seen[idx] = true
	}
	assert.LessOrEqual(t, r.NThreads(), int32(n))
}

func TestSelfManagedExhaustsMaxThreads(t *testing.T) {
	r := New(SelfManaged, 1)
	_, err := r.Self()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.Self()
		assert.Error(t, err)
	}()
	<-done
}
