// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store implements the per-thread hash table, linked list and
// call-stack tracker of spec.md §4.3/§4.4: a Timer arena addressed by
// dense int32 indices (Design Notes §9's "flat arena" rather than owning
// pointers or Go's builtin map), so the hash function and collision
// histogram spec.md describes are real, inspectable structures and the
// observed parent/child graph — which may contain cycles — is never
// modeled with owning references.
package store

import (
	"fmt"

	"github.com/ClusterCockpit/cc-timing/internal/gptlerrors"
	"github.com/ClusterCockpit/cc-timing/internal/logging"
)

// Handle is a direct, hash-lookup-bypassing reference to a Timer, valid
// for the PerThreadStore's lifetime. The zero Handle means "unresolved";
// arena index 0 is permanently reserved for the root sentinel so this is
// never ambiguous.
type Handle = int32

// PerThreadStore is owned by exactly one thread; nothing on the hot path
// synchronizes access to it (spec.md §5, "per-thread isolation").
type PerThreadStore struct {
	ThreadIndex int
	TableSize   int
	// DepthLimit < 0 means unlimited (spec.md's default "depthlimit").
	DepthLimit int32

	Arena []*Timer
	// Order records arena append order; this is the "linked list" of
	// spec.md §3 (PerThreadStore), kept as an explicit field even though
	// it is currently always equal to arena order, since nothing ever
	// reorders or removes an entry before teardown.
	Order []int32

	nameBuckets [][]int32
	addrBuckets [][]int32

	Root       int32
	callStack  [MaxStack]int32
	depth      int32
	MaxNameLen int
}

// New allocates a PerThreadStore with tableSize hash slots (spec.md
// default 1023) and seeds the GPTL_ROOT sentinel at arena index 0.
func New(threadIndex, tableSize int, depthLimit int32) *PerThreadStore {
	if tableSize <= 0 {
		tableSize = DefaultTableSize
	}
	s := &PerThreadStore{
		ThreadIndex: threadIndex,
		TableSize:   tableSize,
		DepthLimit:  depthLimit,
		nameBuckets: make([][]int32, tableSize),
		addrBuckets: make([][]int32, tableSize),
	}
	root := &Timer{Name: RootName}
	s.Arena = append(s.Arena, root)
	s.Order = append(s.Order, 0)
	s.Root = 0
	s.MaxNameLen = len(RootName)
	return s
}

// Depth returns the current nesting depth, including frames suppressed
// by DepthLimit.
func (s *PerThreadStore) Depth() int32 { return s.depth }

func (s *PerThreadStore) lookupByName(name string) (int32, bool) {
	slot := hashName(name, s.TableSize)
	for _, idx := range s.nameBuckets[slot] {
		if s.Arena[idx].Name == name {
			return idx, true
		}
	}
	return 0, false
}

func (s *PerThreadStore) lookupByAddr(addr uintptr) (int32, bool) {
	slot := hashAddr(addr, s.TableSize)
	for _, idx := range s.addrBuckets[slot] {
		if s.Arena[idx].Addr == addr {
			return idx, true
		}
	}
	return 0, false
}

func (s *PerThreadStore) insertName(name string) int32 {
	t := &Timer{Name: name}
	idx := int32(len(s.Arena))
	s.Arena = append(s.Arena, t)
	s.Order = append(s.Order, idx)
	slot := hashName(name, s.TableSize)
	s.nameBuckets[slot] = append(s.nameBuckets[slot], idx)
	if len(name) > s.MaxNameLen {
		s.MaxNameLen = len(name)
	}
	return idx
}

func (s *PerThreadStore) insertAddr(addr uintptr) int32 {
	name := truncateName(fmt.Sprintf("%x", addr))
	t := &Timer{Name: name, Addr: addr, IsAddr: true}
	idx := int32(len(s.Arena))
	s.Arena = append(s.Arena, t)
	s.Order = append(s.Order, idx)
	slot := hashAddr(addr, s.TableSize)
	s.addrBuckets[slot] = append(s.addrBuckets[slot], idx)
	if len(name) > s.MaxNameLen {
		s.MaxNameLen = len(name)
	}
	return idx
}

// recordParent implements spec.md §4.4: a linear scan of the Timer's
// Parents array, incrementing ParentCounts on a hit or growing both
// arrays by one on a miss.
func (s *PerThreadStore) recordParent(t *Timer, parentIdx int32) {
	if parentIdx == s.Root {
		t.Orphan++
	}
	for i, p := range t.Parents {
		if p == parentIdx {
			t.ParentCounts[i]++
			return
		}
	}
	t.Parents = append(t.Parents, parentIdx)
	t.ParentCounts = append(t.ParentCounts, 1)
}

// startResolved implements the shared tail of Start/StartHandle/StartInstr
// once the Timer's arena index is known: spec.md §4.3 steps (4)–(8).
func (s *PerThreadStore) startResolved(idx int32, wallNow, cpuUser, cpuSys float64) error {
	t := s.Arena[idx]
	if t.OnFlg {
		t.RecurseLvl++
		return nil
	}
	if s.depth >= MaxStack {
		return gptlerrors.ErrStackOverflow
	}

	parentIdx := s.Root
	if s.depth > 0 {
		parentIdx = s.callStack[s.depth-1]
	}
	s.recordParent(t, parentIdx)

	s.callStack[s.depth] = idx
	s.depth++

	t.Wall.LastStart = wallNow
	t.CPU.LastUser = cpuUser
	t.CPU.LastSys = cpuSys
	t.OnFlg = true
	return nil
}

// stopResolved implements the shared tail of Stop/StopHandle/StopInstr:
// spec.md §4.3 steps (6)–(9).
//
// Count is only incremented on the recursion-level-zero branch. Read
// literally, spec.md's numbered step list increments count before
// checking recurselvl, but that contradicts its own worked example
// (scenario 1: two nested starts, two stops on "A" yields count=1) and
// testable property P3 ("count equals the number of top-level stops");
// this resolves the conflict in favor of the invariant and the example.
func (s *PerThreadStore) stopResolved(idx int32, wallNow, cpuUser, cpuSys float64) error {
	t := s.Arena[idx]
	if !t.OnFlg {
		return gptlerrors.ErrTimerAlreadyOff
	}

	if t.RecurseLvl > 0 {
		t.RecurseLvl--
		t.NRecurse++
		return nil
	}

	t.Count++
	delta := wallNow - t.Wall.LastStart
	if delta < 0 {
		logging.Warnf("gptl: negative delta %.9fs for timer %q (thread %d); clock assumed monotonic, accumulating as-is", delta, t.Name, s.ThreadIndex)
	}
	t.Wall.Accumulated += delta
	if t.Count == 1 {
		t.Wall.Max = delta
		t.Wall.Min = delta
	} else {
		if delta > t.Wall.Max {
			t.Wall.Max = delta
		}
		if delta < t.Wall.Min {
			t.Wall.Min = delta
		}
	}

	t.CPU.AccumUser += cpuUser - t.CPU.LastUser
	t.CPU.AccumSys += cpuSys - t.CPU.LastSys

	t.OnFlg = false
	s.depth--
	return nil
}

// Start resolves name via hash lookup, per spec.md §4.3.
func (s *PerThreadStore) Start(name string, wallNow, cpuUser, cpuSys float64) error {
	if s.DepthLimit >= 0 && s.depth >= s.DepthLimit {
		s.depth++
		return nil
	}
	key := truncateName(name)
	idx, found := s.lookupByName(key)
	if !found {
		idx = s.insertName(key)
	}
	return s.startResolved(idx, wallNow, cpuUser, cpuSys)
}

// Stop resolves name via hash lookup, per spec.md §4.3.
func (s *PerThreadStore) Stop(name string, wallNow, cpuUser, cpuSys float64) error {
	if s.DepthLimit >= 0 && s.depth > s.DepthLimit {
		s.depth--
		return nil
	}
	idx, found := s.lookupByName(truncateName(name))
	if !found {
		return gptlerrors.ErrTimerNotFound
	}
	return s.stopResolved(idx, wallNow, cpuUser, cpuSys)
}

// StartHandle resolves name via hash lookup only on the first call for a
// given handle; subsequent calls bypass the lookup entirely.
func (s *PerThreadStore) StartHandle(name string, handle *Handle, wallNow, cpuUser, cpuSys float64) error {
	if s.DepthLimit >= 0 && s.depth >= s.DepthLimit {
		s.depth++
		return nil
	}
	idx := *handle
	if idx == 0 {
		key := truncateName(name)
		var found bool
		idx, found = s.lookupByName(key)
		if !found {
			idx = s.insertName(key)
		}
		*handle = idx
	}
	return s.startResolved(idx, wallNow, cpuUser, cpuSys)
}

// StopHandle is StartHandle's counterpart.
func (s *PerThreadStore) StopHandle(name string, handle *Handle, wallNow, cpuUser, cpuSys float64) error {
	if s.DepthLimit >= 0 && s.depth > s.DepthLimit {
		s.depth--
		return nil
	}
	idx := *handle
	if idx == 0 {
		var found bool
		idx, found = s.lookupByName(truncateName(name))
		if !found {
			return gptlerrors.ErrTimerNotFound
		}
		*handle = idx
	}
	return s.stopResolved(idx, wallNow, cpuUser, cpuSys)
}

// StartInstr is the address-keyed variant: the timer's name is the
// address rendered as lowercase hex, per spec.md §4.3.
func (s *PerThreadStore) StartInstr(addr uintptr, wallNow, cpuUser, cpuSys float64) error {
	if s.DepthLimit >= 0 && s.depth >= s.DepthLimit {
		s.depth++
		return nil
	}
	idx, found := s.lookupByAddr(addr)
	if !found {
		idx = s.insertAddr(addr)
	}
	return s.startResolved(idx, wallNow, cpuUser, cpuSys)
}

// StopInstr is StartInstr's counterpart.
func (s *PerThreadStore) StopInstr(addr uintptr, wallNow, cpuUser, cpuSys float64) error {
	if s.DepthLimit >= 0 && s.depth > s.DepthLimit {
		s.depth--
		return nil
	}
	idx, found := s.lookupByAddr(addr)
	if !found {
		return gptlerrors.ErrTimerNotFound
	}
	return s.stopResolved(idx, wallNow, cpuUser, cpuSys)
}

// CollisionHistogram returns, for each occupied slot across both bucket
// tables, the number of entries sharing it — the reporter's diagnostic
// section (spec.md §6).
func (s *PerThreadStore) CollisionHistogram() map[int]int {
	hist := make(map[int]int)
	for _, bucket := range s.nameBuckets {
		if len(bucket) > 0 {
			hist[len(bucket)]++
		}
	}
	for _, bucket := range s.addrBuckets {
		if len(bucket) > 0 {
			hist[len(bucket)]++
		}
	}
	return hist
}

// ArenaBytes estimates the store's live memory footprint, for the
// reporter's memory-usage diagnostic.
func (s *PerThreadStore) ArenaBytes() int64 {
	const perTimer = 200 // rough: fixed fields + small slice headers
	total := int64(len(s.Arena)) * perTimer
	for _, t := range s.Arena {
		total += int64(len(t.Parents)) * 12
		total += int64(len(t.Children)) * 4
	}
	for _, b := range s.nameBuckets {
		total += int64(len(b)) * 4
	}
	for _, b := range s.addrBuckets {
		total += int64(len(b)) * 4
	}
	return total
}
