// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry maps a calling goroutine to a dense logical thread
// index in [0, maxthreads), per spec.md §4.2. Two regimes are supported:
// ForkJoin, where the caller supplies the index directly (only validated
// and lazily recorded), and SelfManaged, where the goroutine's identity
// is discovered and registered on first call.
package registry

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ClusterCockpit/cc-timing/internal/gptlerrors"
)

// Regime selects how thread identity is established.
type Regime int

const (
	ForkJoin Regime = iota
	SelfManaged
)

const defaultSelfManagedMax = 64

// Registry is the single shared mutable structure the hot path touches.
// In SelfManaged regime, registration locks; in ForkJoin regime, each
// goroutine only ever writes its own slot, so no lock is needed.
type Registry struct {
	regime     Regime
	maxThreads int32
	nthreads   atomic.Int32

	// SelfManaged regime: append-only array of goroutine ids. The
	// double-checked-locking shape (RLock scan, Lock-and-recheck before
	// mutating) mirrors findLevelOrCreate's RLock-then-Lock dance in the
	// teacher's hierarchical metric store — including scanning the
	// shared slice only while the lock (or a lock-taken snapshot of it)
	// is held, since a concurrent append rewrites ids's header.
	mu  sync.RWMutex
	ids []int64
}

// New creates a Registry. maxThreads <= 0 defaults to 64 for SelfManaged
// and 1 for ForkJoin (the caller is expected to set a real hint before
// any start/stop in ForkJoin regime via SetMaxThreads).
func New(regime Regime, maxThreads int) *Registry {
	if maxThreads <= 0 {
		if regime == SelfManaged {
			maxThreads = defaultSelfManagedMax
		} else {
			maxThreads = 1
		}
	}
	r := &Registry{regime: regime, maxThreads: int32(maxThreads)}
	if regime == SelfManaged {
		r.ids = make([]int64, 0, maxThreads)
	}
	return r
}

func (r *Registry) Regime() Regime      { return r.regime }
func (r *Registry) MaxThreads() int32   { return r.maxThreads }
func (r *Registry) NThreads() int32     { return r.nthreads.Load() }

// SetMaxThreads adjusts the cap before first use; callers must not call
// this concurrently with Lookup/Self.
func (r *Registry) SetMaxThreads(n int) { r.maxThreads = int32(n) }

// Lookup validates an explicit ForkJoin thread index and records the new
// high-water mark of observed threads.
func (r *Registry) Lookup(threadIndex int) (int, error) {
	if r.regime != ForkJoin {
		return 0, gptlerrors.ErrOutOfRange
	}
	if threadIndex < 0 || int32(threadIndex) >= r.maxThreads {
		return 0, gptlerrors.ErrOutOfRange
	}
	r.bumpNThreads(int32(threadIndex) + 1)
	return threadIndex, nil
}

// Self resolves the calling goroutine to a dense index in SelfManaged
// regime, registering it on first sight.
func (r *Registry) Self() (int, error) {
	if r.regime != SelfManaged {
		return 0, gptlerrors.ErrOutOfRange
	}

	gid := goroutineID()

	// Fast path: snapshot the slice header under RLock, then scan the
	// snapshot without holding the lock. ids is append-only, so any
	// entry within the snapshot's length is immutable once written; but
	// the snapshot itself — the (pointer, len, cap) triple — must be
	// read while holding the lock, since a concurrent append rewrites
	// r.ids's header, and reading that field unsynchronized with the
	// writer would be a data race regardless of preallocated capacity.
	r.mu.RLock()
	ids := r.ids
	r.mu.RUnlock()

	for i, id := range ids {
		if id == gid {
			return i, nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the lock: another goroutine may have registered gid
	// while we waited for it.
	for i, id := range r.ids {
		if id == gid {
			return i, nil
		}
	}
	if int32(len(r.ids)) >= r.maxThreads {
		return 0, gptlerrors.ErrOutOfRange
	}
	idx := len(r.ids)
	r.ids = append(r.ids, gid)
	r.bumpNThreadsLocked(int32(idx) + 1)
	return idx, nil
}

func (r *Registry) bumpNThreads(n int32) {
	for {
		cur := r.nthreads.Load()
		if n <= cur {
			return
		}
		if r.nthreads.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (r *Registry) bumpNThreadsLocked(n int32) { r.bumpNThreads(n) }

// goroutineID recovers a best-effort identity for the calling goroutine
// by parsing the "goroutine N [...]:" header off a runtime.Stack dump.
// Go deliberately exposes no public goroutine-id API; this is the same
// technique several goroutine-local-storage shims in the ecosystem use.
// Self calls it on every call; only the registration of a new id under
// the lock is limited to a goroutine's first call.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return -1
	}
	b = b[len(prefix):]
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
