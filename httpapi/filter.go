// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ClusterCockpit/cc-timing/internal/aggregate"
)

// filterEnv is the variable set a ?filter= expression is evaluated
// against, one RegionStat at a time. Aux is flattened out: expr has no
// use for the opaque hardware-counter payload.
type filterEnv struct {
	Name          string
	TotCalls      int64
	WallMax       float64
	WallMaxThread int
	WallMin       float64
	WallMinThread int
	Sample        float64
}

func toFilterEnv(rs aggregate.RegionStat) filterEnv {
	return filterEnv{
		Name:          rs.Name,
		TotCalls:      rs.TotCalls,
		WallMax:       rs.WallMax,
		WallMaxThread: rs.WallMaxThread,
		WallMin:       rs.WallMin,
		WallMinThread: rs.WallMinThread,
		Sample:        rs.Sample,
	}
}

// filterRegions compiles expression once and evaluates it against every
// stat's filterEnv, keeping the ones where it evaluates to true.
// Compiling against filterEnv{} with expr.Env fails fast on a typo'd
// field name instead of on the first request that happens to reach it.
func filterRegions(stats []aggregate.RegionStat, expression string) ([]aggregate.RegionStat, error) {
	program, err := expr.Compile(expression, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("httpapi: invalid filter expression: %w", err)
	}

	out := make([]aggregate.RegionStat, 0, len(stats))
	for _, rs := range stats {
		keep, err := runFilter(program, toFilterEnv(rs))
		if err != nil {
			return nil, fmt.Errorf("httpapi: filter evaluation failed: %w", err)
		}
		if keep {
			out = append(out, rs)
		}
	}
	return out, nil
}

func runFilter(program *vm.Program, env filterEnv) (bool, error) {
	result, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	keep, _ := result.(bool)
	return keep, nil
}
