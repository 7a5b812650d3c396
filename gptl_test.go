// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package gptl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/cc-timing/config"
)

// TestContextQueryThreadReadsAnotherThreadsTimers exercises the
// thread-parameterized Query API (spec.md §6's query(name, thread, …)):
// a second goroutine times a region, and the test goroutine reads it
// back by explicit thread index rather than via its own resolveThread.
func TestContextQueryThreadReadsAnotherThreadsTimers(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Initialize(config.Default()))
	defer c.Finalize()

	require.NoError(t, c.Start("main-thread-region"))
	require.NoError(t, c.Stop("main-thread-region"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, c.Start("worker-region"))
		require.NoError(t, c.Stop("worker-region"))
	}()
	<-done

	// The calling goroutine only ever sees its own thread's region.
	_, err := c.GetWallclock("worker-region")
	assert.ErrorIs(t, err, ErrTimerNotFound)

	// One of the two self-managed thread indices must carry
	// "worker-region"; find it and confirm the others don't.
	found := false
	for thread := 0; thread < 2; thread++ {
		wall, err := c.GetWallclockThread("worker-region", thread)
		if err == nil {
			found = true
			assert.GreaterOrEqual(t, wall, 0.0)

			res, err := c.QueryThread("worker-region", thread)
			require.NoError(t, err)
			assert.Equal(t, "worker-region", res.Name)

			n, err := c.GetNRegionsThread(thread)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			name, err := c.GetRegionNameThread(thread, 0)
			require.NoError(t, err)
			assert.Equal(t, "worker-region", name)
			continue
		}
		assert.ErrorIs(t, err, ErrTimerNotFound)
	}
	assert.True(t, found, "worker-region must be found on exactly one thread")
}

// TestContextQueryThreadRejectsUnknownThread confirms an out-of-range or
// never-observed thread index fails instead of silently allocating a
// fresh, empty store the way storeFor's lazy allocation would.
func TestContextQueryThreadRejectsUnknownThread(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Initialize(config.Default()))
	defer c.Finalize()

	require.NoError(t, c.Start("A"))
	require.NoError(t, c.Stop("A"))

	_, err := c.QueryThread("A", 7)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = c.GetWallclockThread("A", -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

// TestContextQueryThreadBeforeInitializeFails confirms the thread-
// parameterized variants share Query's ErrNotInitialized behavior.
func TestContextQueryThreadBeforeInitializeFails(t *testing.T) {
	c := NewContext()
	_, err := c.QueryThread("A", 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
}
