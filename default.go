// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package gptl

import (
	"context"
	"io"

	"github.com/ClusterCockpit/cc-timing/clock"
	"github.com/ClusterCockpit/cc-timing/config"
	"github.com/ClusterCockpit/cc-timing/query"
	"github.com/ClusterCockpit/cc-timing/reduce"
)

// defaultContext is the package-level instance the free functions below
// operate on, for callers who don't need multiple independent
// instruments (Design Notes §9: "a global default may be provided for
// convenience, but the core must be usable as a library embedded
// multiple times per process by keeping the context explicit").
var defaultContext = NewContext()

// Default returns the package-level Context the free functions in this
// file delegate to, for callers that want to pass it explicitly to
// something like PrSummary alongside using Start/Stop directly.
func Default() *Context { return defaultContext }

func Initialize(cfg config.Config) error { return defaultContext.Initialize(cfg) }
func IsInitialized() bool                { return defaultContext.IsInitialized() }
func Finalize() error                    { return defaultContext.Finalize() }

func Enable()      { defaultContext.Enable() }
func Disable()     { defaultContext.Disable() }
func Reset() error { return defaultContext.Reset() }

func Start(name string) error { return defaultContext.Start(name) }
func Stop(name string) error  { return defaultContext.Stop(name) }

func StartHandle(name string, handle *Handle) error { return defaultContext.StartHandle(name, handle) }
func StopHandle(name string, handle *Handle) error  { return defaultContext.StopHandle(name, handle) }

func StartInstr(addr uintptr) error { return defaultContext.StartInstr(addr) }
func StopInstr(addr uintptr) error  { return defaultContext.StopInstr(addr) }

func Stamp() (wall, usr, sys float64, err error) { return defaultContext.Stamp() }

func Pr(id string) error       { return defaultContext.Pr(id) }
func PrFile(path string) error { return defaultContext.PrFile(path) }

func PrSummary(ctx context.Context, comm reduce.Communicator, w io.Writer) error {
	return defaultContext.PrSummary(ctx, comm, w)
}

func Barrier(ctx context.Context, comm reduce.Communicator, name string) error {
	return defaultContext.Barrier(ctx, comm, name)
}

func SetOption(option string, value any) error { return defaultContext.SetOption(option, value) }
func SetUTR(backend clock.Backend) error       { return defaultContext.SetUTR(backend) }

func Query(name string) (query.Result, error)          { return defaultContext.Query(name) }
func GetWallclock(name string) (float64, error)        { return defaultContext.GetWallclock(name) }
func GetEventValue(name, event string) (float64, error) {
	return defaultContext.GetEventValue(name, event)
}
func GetNRegions() (int, error)                { return defaultContext.GetNRegions() }
func GetRegionName(region int) (string, error) { return defaultContext.GetRegionName(region) }
