// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gptl is the public façade: an explicit Context bundling a
// clock, a thread registry and one PerThreadStore per thread, plus a
// package-level default Context so callers who don't need multiple
// independent instruments can call the free functions directly. Every
// hot-path operation returns a Go error instead of the boolean-success
// convention spec.md describes (§6's ambient addition), and sentinel
// errors are re-exported from internal/gptlerrors so callers can
// errors.Is against them without importing an internal package.
package gptl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ClusterCockpit/cc-timing/clock"
	"github.com/ClusterCockpit/cc-timing/config"
	"github.com/ClusterCockpit/cc-timing/hwcounter"
	"github.com/ClusterCockpit/cc-timing/internal/aggregate"
	"github.com/ClusterCockpit/cc-timing/internal/gptlerrors"
	"github.com/ClusterCockpit/cc-timing/internal/logging"
	"github.com/ClusterCockpit/cc-timing/internal/registry"
	"github.com/ClusterCockpit/cc-timing/internal/store"
	"github.com/ClusterCockpit/cc-timing/query"
	"github.com/ClusterCockpit/cc-timing/reduce"
	"github.com/ClusterCockpit/cc-timing/report"
)

// Re-exported sentinel errors, per SPEC_FULL.md §7.
var (
	ErrNotInitialized       = gptlerrors.ErrNotInitialized
	ErrAlreadyInitialized   = gptlerrors.ErrAlreadyInitialized
	ErrOutOfRange           = gptlerrors.ErrOutOfRange
	ErrStackOverflow        = gptlerrors.ErrStackOverflow
	ErrTimerNotFound        = gptlerrors.ErrTimerNotFound
	ErrTimerAlreadyOff      = gptlerrors.ErrTimerAlreadyOff
	ErrAllocationFailure    = gptlerrors.ErrAllocationFailure
	ErrClockUnavailable     = gptlerrors.ErrClockUnavailable
	ErrPlatformUnsupported  = gptlerrors.ErrPlatformUnsupported
	ErrCommunicationFailure = gptlerrors.ErrCommunicationFailure
)

// Handle is a direct, hash-lookup-bypassing reference returned on first
// resolution by StartHandle, valid until Finalize (spec.md §6).
type Handle = store.Handle

// Context bundles everything one independent instrument needs: a
// selected clock, a thread registry, and a PerThreadStore per observed
// thread, created lazily on first use. Most programs use the
// package-level default instance via the free functions below; an
// application embedding more than one independently-reported instrument
// (e.g. a library and its host) can construct additional Contexts.
type Context struct {
	mu sync.RWMutex

	cfg         config.Config
	clk         *clock.Clock
	reg         *registry.Registry
	plugin      hwcounter.Plugin
	stores      []*store.PerThreadStore
	enabled     bool
	initialized bool
}

// NewContext allocates an uninitialized Context. Call Initialize before
// any Start/Stop.
func NewContext() *Context {
	return &Context{enabled: true}
}

// Initialize selects the clock back end and thread registry, and
// prepares the hardware-counter plug-in named in cfg.HWCounterEvents
// (Prometheus-backed if non-empty, Null otherwise), per spec.md §6's
// "initialize() must precede any start/stop".
func (c *Context) Initialize(cfg config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return ErrAlreadyInitialized
	}

	clk := c.clk // set by SetUTR, if it was called
	if clk == nil {
		var err error
		clk, err = clock.New(clock.WallTime)
		if err != nil {
			return err
		}
	}

	var plugin hwcounter.Plugin = hwcounter.Null{}
	if len(cfg.HWCounterEvents) > 0 {
		p, err := hwcounter.NewPrometheus(nil, cfg.HWCounterEvents)
		if err != nil {
			return fmt.Errorf("gptl: hardware-counter plug-in: %w", err)
		}
		plugin = p
	}
	if err := plugin.Init(cfg.MaxThreads); err != nil {
		return err
	}

	c.cfg = cfg
	c.clk = clk
	c.reg = registry.New(registry.SelfManaged, cfg.MaxThreads)
	c.plugin = plugin
	c.stores = nil
	c.enabled = true
	c.initialized = true
	return nil
}

// IsInitialized reports whether Initialize has run without a matching
// Finalize.
func (c *Context) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// Finalize releases all per-thread state. After it returns, Initialize
// may be called again, per spec.md §6.
func (c *Context) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	if c.plugin != nil {
		if err := c.plugin.Finalize(); err != nil {
			return err
		}
	}
	c.stores = nil
	c.reg = nil
	c.clk = nil
	c.initialized = false
	return nil
}

// Enable/Disable toggle the global on/off switch spec.md §6 names;
// while disabled, Start/Stop return success immediately without
// touching any Timer.
func (c *Context) Enable() { c.mu.Lock(); c.enabled = true; c.mu.Unlock() }

func (c *Context) Disable() { c.mu.Lock(); c.enabled = false; c.mu.Unlock() }

// Reset clears every Timer's accumulated statistics on every thread
// without forgetting thread/timer identities (spec.md §6 "reset()").
func (c *Context) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	for _, s := range c.stores {
		if s == nil {
			continue
		}
		for _, t := range s.Arena {
			t.OnFlg, t.RecurseLvl = false, 0
			t.Count, t.NRecurse = 0, 0
			t.Wall = store.WallStats{}
			t.CPU = store.CPUStats{}
			t.Aux = hwcounter.Value{}
		}
	}
	return nil
}

// storeFor resolves a dense thread index to its PerThreadStore,
// growing c.stores and allocating a fresh store on first sight. The
// shape mirrors internal/registry's own double-checked-locking pattern:
// an RLock-guarded fast path for the common case of an already-allocated
// store, a Lock-guarded slow path that re-checks before allocating.
func (c *Context) storeFor(threadIdx int) (*store.PerThreadStore, error) {
	c.mu.RLock()
	if threadIdx < len(c.stores) && c.stores[threadIdx] != nil {
		s := c.stores[threadIdx]
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if threadIdx >= len(c.stores) {
		grown := make([]*store.PerThreadStore, threadIdx+1)
		copy(grown, c.stores)
		c.stores = grown
	}
	if c.stores[threadIdx] == nil {
		c.stores[threadIdx] = store.New(threadIdx, c.cfg.TableSize, c.cfg.DepthLimit)
	}
	return c.stores[threadIdx], nil
}

// resolveThread resolves the calling goroutine to a dense thread index
// via the self-managed registry, then to its PerThreadStore.
func (c *Context) resolveThread() (*store.PerThreadStore, bool, error) {
	c.mu.RLock()
	initialized, enabled, reg := c.initialized, c.enabled, c.reg
	c.mu.RUnlock()
	if !initialized {
		return nil, false, ErrNotInitialized
	}
	if !enabled {
		return nil, false, nil
	}
	idx, err := reg.Self()
	if err != nil {
		return nil, false, err
	}
	s, err := c.storeFor(idx)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (c *Context) nowAndCPU() (wall, user, sys float64) {
	wall = c.clk.Now()
	user, sys = clock.ReadCPUTimes()
	return
}

// Start begins timing region name on the calling goroutine's thread.
func (c *Context) Start(name string) error {
	s, active, err := c.resolveThread()
	if err != nil || !active {
		return err
	}
	wall, user, sys := c.nowAndCPU()
	return s.Start(name, wall, user, sys)
}

// Stop ends timing region name on the calling goroutine's thread.
func (c *Context) Stop(name string) error {
	s, active, err := c.resolveThread()
	if err != nil || !active {
		return err
	}
	wall, user, sys := c.nowAndCPU()
	return s.Stop(name, wall, user, sys)
}

// StartHandle is Start's handle-caching variant (spec.md §6).
func (c *Context) StartHandle(name string, handle *Handle) error {
	s, active, err := c.resolveThread()
	if err != nil || !active {
		return err
	}
	wall, user, sys := c.nowAndCPU()
	return s.StartHandle(name, handle, wall, user, sys)
}

// StopHandle is Stop's handle-caching variant.
func (c *Context) StopHandle(name string, handle *Handle) error {
	s, active, err := c.resolveThread()
	if err != nil || !active {
		return err
	}
	wall, user, sys := c.nowAndCPU()
	return s.StopHandle(name, handle, wall, user, sys)
}

// StartInstr is the address-keyed variant, for call sites that want to
// key on a return address rather than a string.
func (c *Context) StartInstr(addr uintptr) error {
	s, active, err := c.resolveThread()
	if err != nil || !active {
		return err
	}
	wall, user, sys := c.nowAndCPU()
	return s.StartInstr(addr, wall, user, sys)
}

// StopInstr is StartInstr's counterpart.
func (c *Context) StopInstr(addr uintptr) error {
	s, active, err := c.resolveThread()
	if err != nil || !active {
		return err
	}
	wall, user, sys := c.nowAndCPU()
	return s.StopInstr(addr, wall, user, sys)
}

// Stamp returns the current wall/user/sys readings without touching any
// Timer, per spec.md §6's "stamp(&wall, &usr, &sys)".
func (c *Context) Stamp() (wall, usr, sys float64, err error) {
	c.mu.RLock()
	initialized, clk := c.initialized, c.clk
	c.mu.RUnlock()
	if !initialized {
		return 0, 0, 0, ErrNotInitialized
	}
	wall = clk.Now()
	usr, sys = clock.ReadCPUTimes()
	return wall, usr, sys, nil
}

// liveStores returns a snapshot slice of the allocated, non-nil stores.
func (c *Context) liveStores() []*store.PerThreadStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*store.PerThreadStore, 0, len(c.stores))
	for _, s := range c.stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Pr writes "timing.<id>" in the process's working directory, per
// spec.md §6's pr(id). The file-open failure race spec.md's Open
// Question (a) names is not papered over: if os.Create fails, the
// report is written to stderr instead and the error is still returned.
func (c *Context) Pr(id string) error {
	path := fmt.Sprintf("timing.%s", id)
	return c.PrFile(path)
}

// PrFile writes the full report to path (spec.md §6's pr_file(path)).
func (c *Context) PrFile(path string) error {
	c.mu.RLock()
	initialized, clk, plugin, cfg := c.initialized, c.clk, c.plugin, c.cfg
	c.mu.RUnlock()
	if !initialized {
		return ErrNotInitialized
	}

	f, err := os.Create(path)
	var w io.Writer = os.Stderr
	if err != nil {
		logging.Warnf("gptl: opening report file %q failed, writing to stderr: %v", path, err)
	} else {
		defer f.Close()
		w = f
	}

	opts := report.DefaultOptions()
	opts.Policy = cfg.PrintMethod.Policy()
	opts.Percent = cfg.Percent
	opts.Overhead = cfg.Overhead
	opts.Collision = cfg.Collision
	opts.MemUsage = cfg.MemUsage
	opts.Preamble = cfg.Preamble

	reportErr := report.WriteThreads(w, c.liveStores(), clk, plugin, opts)
	return errors.Join(err, reportErr)
}

// RegionStats folds every thread's live store into one cross-thread
// RegionStat slice, the snapshot httpapi.StatsSource exposes over HTTP.
func (c *Context) RegionStats() []aggregate.RegionStat {
	c.mu.RLock()
	plugin := c.plugin
	c.mu.RUnlock()
	return aggregate.Fold(c.liveStores(), plugin)
}

// PrSummary reduces every rank's folded RegionStats across comm and, at
// rank 0, writes the timing.summary format to w (spec.md §6's
// pr_summary(communicator)).
func (c *Context) PrSummary(ctx context.Context, comm reduce.Communicator, w io.Writer) error {
	c.mu.RLock()
	initialized, plugin := c.initialized, c.plugin
	c.mu.RUnlock()
	if !initialized {
		return ErrNotInitialized
	}

	local := reduce.FromRegionStats(comm.Rank(), c.RegionStats())
	global, err := reduce.Reduce(ctx, comm, local, plugin)
	if err != nil {
		return err
	}
	if global == nil {
		return nil // this rank is not rank 0; nothing to write
	}
	report.WriteSummary(w, global)
	return nil
}

// Barrier is a naming convenience over comm: spec.md §6 lists
// barrier(communicator, name) as a synchronization point an application
// can insert around a timed region across ranks. The opaque
// Communicator interface carries no barrier primitive of its own (only
// Send/Recv), so Barrier gathers a single-entry marker named name up
// the reducer's log-N tree to rank 0, then rank 0 sends a release
// marker to every other rank; no rank returns before every rank has
// entered Barrier.
func (c *Context) Barrier(ctx context.Context, comm reduce.Communicator, name string) error {
	marker := []reduce.GlobalRegion{{Name: name, N: 1}}
	if _, err := reduce.Reduce(ctx, comm, marker, hwcounter.Null{}); err != nil {
		return err
	}
	if comm.Rank() != 0 {
		_, err := comm.Recv(ctx, 0)
		return err
	}
	for dest := 1; dest < comm.Size(); dest++ {
		if err := comm.Send(ctx, dest, marker); err != nil {
			return err
		}
	}
	return nil
}

// SetOption applies one setoption(option, value) pair (spec.md §6) by
// validating a single-key JSON patch against config.Schema, then
// overlaying it onto the live Config — the same validate-then-overlay
// sequence config.Load uses for a whole document, just narrowed to one
// field so a single bad option never touches the rest of the Config.
func (c *Context) SetOption(option string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	patch, err := json.Marshal(map[string]any{option: value})
	if err != nil {
		return fmt.Errorf("gptl: setoption %q: %w", option, err)
	}
	if err := config.Validate(patch); err != nil {
		return err
	}
	if err := json.Unmarshal(patch, &c.cfg); err != nil {
		return fmt.Errorf("gptl: setoption %q: %w", option, err)
	}
	return nil
}

// SetUTR selects the underlying clock back end (spec.md §6's
// setutr(clock_id)). It may only be called before Initialize, per
// spec.md §4.1 ("selected once, before initialization").
func (c *Context) SetUTR(backend clock.Backend) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return ErrAlreadyInitialized
	}
	clk, err := clock.New(backend)
	if err != nil {
		return err
	}
	c.clk = clk
	return nil
}

// storeForThread resolves an explicit, caller-named thread index to its
// PerThreadStore, for the Query-API variants spec.md §6 parameterizes by
// thread (query(name, thread, …)) rather than by the calling goroutine —
// e.g. a reporter thread inspecting another thread's timers.
func (c *Context) storeForThread(thread int) (*store.PerThreadStore, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	if thread < 0 || thread >= len(c.stores) || c.stores[thread] == nil {
		return nil, ErrOutOfRange
	}
	return c.stores[thread], nil
}

// Query returns the named timer's full snapshot on the calling
// goroutine's thread (spec.md §6's query(name, thread, …)).
func (c *Context) Query(name string) (query.Result, error) {
	s, active, err := c.resolveThread()
	if err != nil {
		return query.Result{}, err
	}
	if !active {
		return query.Result{}, ErrNotInitialized
	}
	return query.Query(s, name)
}

// QueryThread is Query's thread-parameterized counterpart: it returns
// the named timer's snapshot on the given thread rather than the calling
// goroutine's own, per spec.md §6's query(name, thread, …).
func (c *Context) QueryThread(name string, thread int) (query.Result, error) {
	s, err := c.storeForThread(thread)
	if err != nil {
		return query.Result{}, err
	}
	return query.Query(s, name)
}

// GetWallclock returns the named timer's accumulated wall time on the
// calling goroutine's thread.
func (c *Context) GetWallclock(name string) (float64, error) {
	s, active, err := c.resolveThread()
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, ErrNotInitialized
	}
	return query.GetWallclock(s, name)
}

// GetWallclockThread is GetWallclock's thread-parameterized counterpart.
func (c *Context) GetWallclockThread(name string, thread int) (float64, error) {
	s, err := c.storeForThread(thread)
	if err != nil {
		return 0, err
	}
	return query.GetWallclock(s, name)
}

// GetEventValue returns the named hardware-counter event's accumulated
// value for the named timer on the calling goroutine's thread.
func (c *Context) GetEventValue(name, event string) (float64, error) {
	s, active, err := c.resolveThread()
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, ErrNotInitialized
	}
	return query.GetEventValue(s, name, event)
}

// GetEventValueThread is GetEventValue's thread-parameterized counterpart.
func (c *Context) GetEventValueThread(name, event string, thread int) (float64, error) {
	s, err := c.storeForThread(thread)
	if err != nil {
		return 0, err
	}
	return query.GetEventValue(s, name, event)
}

// GetNRegions returns the number of distinct timers recorded on the
// calling goroutine's thread.
func (c *Context) GetNRegions() (int, error) {
	s, active, err := c.resolveThread()
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, ErrNotInitialized
	}
	return query.GetNRegions(s), nil
}

// GetNRegionsThread is GetNRegions's thread-parameterized counterpart.
func (c *Context) GetNRegionsThread(thread int) (int, error) {
	s, err := c.storeForThread(thread)
	if err != nil {
		return 0, err
	}
	return query.GetNRegions(s), nil
}

// GetRegionName returns the name of the region'th timer recorded on the
// calling goroutine's thread.
func (c *Context) GetRegionName(region int) (string, error) {
	s, active, err := c.resolveThread()
	if err != nil {
		return "", err
	}
	if !active {
		return "", ErrNotInitialized
	}
	return query.GetRegionName(s, region)
}

// GetRegionNameThread is GetRegionName's thread-parameterized
// counterpart (spec.md §6's get_regionname(thread, region, &buf, n)).
func (c *Context) GetRegionNameThread(thread, region int) (string, error) {
	s, err := c.storeForThread(thread)
	if err != nil {
		return "", err
	}
	return query.GetRegionName(s, region)
}
