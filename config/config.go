// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the setoption surface of spec.md §6 and validates
// it against a JSON schema before it is applied, the way
// internal/config/validate.go validates cc-backend's own config.json.
package config

import (
	"github.com/ClusterCockpit/cc-timing/internal/tree"
)

// PrintMethod selects how nested call counts are reported (mirrors the
// original library's print_method option).
type PrintMethod int

const (
	PrintMethodFirstParent PrintMethod = iota
	PrintMethodLastParent
	PrintMethodMostFrequent
	PrintMethodFullTree
)

func (m PrintMethod) Policy() tree.Policy {
	switch m {
	case PrintMethodFirstParent:
		return tree.FirstParent
	case PrintMethodLastParent:
		return tree.LastParent
	case PrintMethodMostFrequent:
		return tree.MostFrequent
	default:
		return tree.FullTree
	}
}

// Config is every setoption value named in spec.md §6, collected into
// one struct so it can be loaded from JSON and validated in one pass.
type Config struct {
	CPU       bool `json:"cpu"`
	Wall      bool `json:"wall"`
	Overhead  bool `json:"overhead"`

	DepthLimit int32 `json:"depthlimit"`
	Verbose    bool  `json:"verbose"`
	Percent    bool  `json:"percent"`
	Preamble   bool  `json:"preamble"`

	ThreadSort bool `json:"threadsort"`
	MultParent bool `json:"multparent"`

	Collision bool `json:"collision"`
	MemUsage  bool `json:"memusage"`

	PrintMethod PrintMethod `json:"print_method"`
	TableSize   int         `json:"tablesize"`
	SyncMPI     bool        `json:"sync_mpi"`
	MaxThreads  int         `json:"maxthreads"`

	AbortOnError bool `json:"abort_on_error"`

	// HWCounterEvents names the hardware-counter events a configured
	// Prometheus-backed plugin should track, per spec.md §6's "hardware-
	// counter-plug-in options".
	HWCounterEvents []string `json:"hwcounter_events"`
}

// Default matches the original library's out-of-the-box behavior: wall
// time on, everything else conservative.
func Default() Config {
	return Config{
		Wall:        true,
		Preamble:    true,
		Collision:   true,
		MemUsage:    true,
		TableSize:   1023,
		MaxThreads:  64,
		DepthLimit:  -1,
		PrintMethod: PrintMethodFullTree,
	}
}
