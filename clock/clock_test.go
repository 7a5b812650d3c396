// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package clock

import (
	"errors"
	"testing"

	"github.com/ClusterCockpit/cc-timing/internal/gptlerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallTimeMonotonic(t *testing.T) {
	c, err := New(WallTime)
	require.NoError(t, err)

	a := c.Now()
	b := c.Now()
	assert.GreaterOrEqual(t, b, a)
}

func TestPlaceboAlwaysZero(t *testing.T) {
	c, err := New(Placebo)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Now())
	assert.Equal(t, 0.0, c.Overhead())
}

func TestCycleCounterUnsupported(t *testing.T) {
	_, err := New(CycleCounter)
	assert.True(t, errors.Is(err, gptlerrors.ErrPlatformUnsupported))
}

func TestMPIWallRequiresExternalReader(t *testing.T) {
	_, err := New(MPIWall)
	assert.True(t, errors.Is(err, gptlerrors.ErrClockUnavailable))

	WithExternalReader(func() float64 { return 42 })
	defer WithExternalReader(nil)

	c, err := New(MPIWall)
	require.NoError(t, err)
	assert.Equal(t, 42.0, c.Now())
}

func TestBackendString(t *testing.T) {
	assert.Equal(t, "walltime", WallTime.String())
	assert.Equal(t, "placebo", Placebo.String())
}
