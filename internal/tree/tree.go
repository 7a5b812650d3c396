// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tree reconstructs the dynamic call tree from a PerThreadStore's
// per-timer parent/parent-count records, per spec.md §4.5. It runs once
// per thread at report time and guarantees the output is acyclic under
// every policy, even when the observed caller discipline is not strictly
// hierarchical.
package tree

import (
	"github.com/ClusterCockpit/cc-timing/internal/logging"
	"github.com/ClusterCockpit/cc-timing/internal/store"
)

// Policy selects how a timer with multiple observed parents is attributed
// to exactly one (or, under FullTree, every) parent in the printed tree.
type Policy int

const (
	// FullTree attributes a child to every known parent; the result is a
	// DAG, printed via depth-first traversal that may list a timer under
	// more than one parent. This is the default.
	FullTree Policy = iota
	FirstParent
	LastParent
	MostFrequent
)

func (p Policy) String() string {
	switch p {
	case FirstParent:
		return "FirstParent"
	case LastParent:
		return "LastParent"
	case MostFrequent:
		return "MostFrequent"
	default:
		return "FullTree"
	}
}

// Result carries the side information Build computes alongside the
// Children arrays it writes into the store's Timer records.
type Result struct {
	MaxDepth    int
	LoopsDropped int
}

// Build populates Children on every Timer in s under the given policy,
// guaranteeing the result is acyclic (spec.md §4.5, property P4).
func Build(s *store.PerThreadStore, policy Policy) Result {
	for _, t := range s.Arena {
		t.Children = nil
	}

	var res Result
	for _, idx := range s.Order {
		if idx == s.Root {
			continue
		}
		t := s.Arena[idx]
		switch policy {
		case FirstParent:
			if len(t.Parents) > 0 {
				res.link(s, t.Parents[0], idx)
			}
		case LastParent:
			if len(t.Parents) > 0 {
				res.link(s, t.Parents[len(t.Parents)-1], idx)
			}
		case MostFrequent:
			if len(t.Parents) > 0 {
				res.link(s, mostFrequentParent(t), idx)
			}
		default: // FullTree
			for _, p := range t.Parents {
				res.link(s, p, idx)
			}
		}
	}

	res.MaxDepth = maxDepth(s, s.Root, make(map[int32]bool))
	return res
}

func mostFrequentParent(t *store.Timer) int32 {
	best := 0
	for i, c := range t.ParentCounts {
		if c > t.ParentCounts[best] {
			best = i
		}
	}
	return t.Parents[best]
}

// link attaches child under parent unless doing so would create a cycle
// (parent is already reachable from child through the partially built
// Children graph), in which case the edge is silently dropped and logged
// per spec.md §4.5/§7 (LoopDetected is non-fatal).
func (res *Result) link(s *store.PerThreadStore, parent, child int32) {
	if parent == child {
		res.LoopsDropped++
		logging.Warnf("gptl: loop detected (timer %q is its own parent), edge dropped", s.Arena[child].Name)
		return
	}
	if isDescendant(s, child, parent) {
		res.LoopsDropped++
		logging.Warnf("gptl: loop detected (%q is already an ancestor of %q), edge dropped",
			s.Arena[child].Name, s.Arena[parent].Name)
		return
	}
	s.Arena[parent].Children = append(s.Arena[parent].Children, child)
}

// isDescendant reports whether target is reachable from root through the
// partially built Children arrays — a breadth-first search, as spec.md
// §4.5 calls for.
func isDescendant(s *store.PerThreadStore, root, target int32) bool {
	if root == target {
		return true
	}
	visited := map[int32]bool{root: true}
	queue := []int32{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range s.Arena[cur].Children {
			if c == target {
				return true
			}
			if !visited[c] {
				visited[c] = true
				queue = append(queue, c)
			}
		}
	}
	return false
}

// maxDepth computes the maximum indentation depth for printing, after
// linking (spec.md §4.5).
func maxDepth(s *store.PerThreadStore, node int32, visiting map[int32]bool) int {
	if visiting[node] {
		return 0 // defensive: Build guarantees acyclicity, but don't spin if it didn't.
	}
	visiting[node] = true
	defer delete(visiting, node)

	best := 0
	for _, c := range s.Arena[node].Children {
		if d := maxDepth(s, c, visiting); d+1 > best {
			best = d + 1
		}
	}
	return best
}
