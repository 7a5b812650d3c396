// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux && !darwin

package clock

// ReadCPUTimes reports zero on platforms without a Getrusage equivalent
// wired up here; the "cpu" setoption simply has nothing to accumulate.
func ReadCPUTimes() (user, sys float64) { return 0, 0 }
