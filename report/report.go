// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package report renders the per-thread indented call tree, the
// cross-thread flat table, the multiple-parent section and the
// collision/memory diagnostics, per spec.md §4.8, and the
// timing.summary distributed-summary format of §4.7/§4.8.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ClusterCockpit/cc-timing/clock"
	"github.com/ClusterCockpit/cc-timing/hwcounter"
	"github.com/ClusterCockpit/cc-timing/internal/aggregate"
	"github.com/ClusterCockpit/cc-timing/internal/store"
	"github.com/ClusterCockpit/cc-timing/internal/tree"
	"github.com/ClusterCockpit/cc-timing/internal/units"
	"github.com/ClusterCockpit/cc-timing/reduce"
)

// scientificThreshold is spec.md §4.8's "10⁶" cutoff above which counts
// switch from fixed to scientific notation.
const scientificThreshold = 1_000_000

// Options controls which optional columns/sections the preamble and
// per-timer rows carry, mirroring spec.md §6's setoption surface.
type Options struct {
	Policy     tree.Policy
	Percent    bool // %_of_first: each row as a percentage of its own thread's first timer
	Overhead   bool // accepted but not rendered: rows carry no overhead column
	Collision  bool
	MemUsage   bool
	Preamble   bool
}

// DefaultOptions matches the original library's defaults: full call
// tree, no percent/overhead columns, diagnostics on.
func DefaultOptions() Options {
	return Options{Policy: tree.FullTree, Collision: true, MemUsage: true, Preamble: true}
}

// WriteThreads renders the full per-process report — preamble, one
// indented tree per thread, a cross-thread flat table if more than one
// thread ran, the multiple-parent section, and diagnostics — to w.
func WriteThreads(w io.Writer, stores []*store.PerThreadStore, clk *clock.Clock, plugin hwcounter.Plugin, opts Options) error {
	if opts.Preamble {
		writePreamble(w, clk, plugin)
	}

	for i, s := range stores {
		res := tree.Build(s, opts.Policy)
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Stats for thread %d:\n", s.ThreadIndex)
		writeThreadTree(w, s, res, opts)
	}

	if len(stores) > 1 {
		fmt.Fprintln(w)
		writeCrossThreadTable(w, stores, plugin)
	}

	writeMultipleParentSection(w, stores)

	if opts.Collision {
		fmt.Fprintln(w)
		writeCollisionHistogram(w, stores)
	}
	if opts.MemUsage {
		fmt.Fprintln(w)
		writeMemoryUsage(w, stores)
	}
	return nil
}

func writePreamble(w io.Writer, clk *clock.Clock, plugin hwcounter.Plugin) {
	if clk != nil {
		fmt.Fprintf(w, "Clock backend: %s\n", clk.Backend())
		fmt.Fprintf(w, "Per-call timer overhead est: %.3g sec.\n", clk.Overhead())
	}
	fmt.Fprintln(w, "Threading model: self-managed goroutine registry.")
	if plugin != nil {
		if err := plugin.Print(w); err != nil {
			fmt.Fprintf(w, "hardware-counter plugin: error printing configuration: %v\n", err)
		}
	}
	fmt.Fprintln(w, "A '*' in column 1 means the timer had multiple observed parents.")
	fmt.Fprintln(w)
}

// firstTimerAccum returns the accumulated wall time of the first timer
// started on s (s.Order[0] is always the root sentinel, so the first
// real timer is s.Order[1]), the percent-of-root denominator gptl.c's
// printstats uses (timers[0]->next->wall.accum — "timers[0]" there is
// the very same per-thread root sentinel this store calls Root).
func firstTimerAccum(s *store.PerThreadStore) float64 {
	if len(s.Order) < 2 {
		return 0
	}
	return s.Arena[s.Order[1]].Wall.Accumulated
}

// writeThreadTree prints the header row and the depth-first call tree
// for one thread. The percent-of-root column (when enabled) is each
// row's wall time as a percentage of this same thread's own first
// timer, per spec.md §6 and gptl.c's printstats.
func writeThreadTree(w io.Writer, s *store.PerThreadStore, res tree.Result, opts Options) {
	headerIndent := (res.MaxDepth + 1) * 2
	fmt.Fprintf(w, "%*s%-*s  Called  Recurse      Wallclock       Max       Min\n",
		headerIndent, "", s.MaxNameLen, "")

	firstAccum := firstTimerAccum(s)
	var walk func(idx int32, depth int)
	walk = func(idx int32, depth int) {
		t := s.Arena[idx]
		if idx != s.Root {
			writeTimerRow(w, t, depth, s.MaxNameLen, res.MaxDepth, opts, firstAccum)
		}
		for _, c := range t.Children {
			walk(c, depth+1)
		}
	}
	walk(s.Root, -1) // -1: never indent/print the root sentinel itself
}

// writeTimerRow mirrors original_source/gptl.c's printstats: the flag and
// depth-proportional indent go BEFORE the name (so deeper timers print
// further right), then the name is padded out to maxNameLen plus however
// much more indent the deepest timer on this thread needed, so the stat
// columns that follow always start at the same position regardless of
// depth.
func writeTimerRow(w io.Writer, t *store.Timer, depth, maxNameLen, maxDepth int, opts Options, firstAccum float64) {
	flag := "  "
	if len(t.Parents) > 1 {
		flag = "* "
	}
	indent := strings.Repeat("  ", depth)
	trailingIndent := strings.Repeat("  ", maxDepth-depth)
	fmt.Fprintf(w, "%s%s%-*s%s %s %s", flag, indent, maxNameLen, t.Name, trailingIndent,
		formatCount(t.Count), formatCount(t.NRecurse))
	fmt.Fprintf(w, " %14.6g %9.6g %9.6g", t.Wall.Accumulated, t.Wall.Max, t.Wall.Min)
	if opts.Percent && firstAccum > 0 {
		fmt.Fprintf(w, " %6.2f%%", 100*t.Wall.Accumulated/firstAccum)
	}
	fmt.Fprintln(w)
}

func formatCount(n int64) string {
	if n >= scientificThreshold {
		return fmt.Sprintf("%8.2e", float64(n))
	}
	return fmt.Sprintf("%8d", n)
}

func writeCrossThreadTable(w io.Writer, stores []*store.PerThreadStore, plugin hwcounter.Plugin) {
	fmt.Fprintln(w, "Same stats sorted by timer for cross-thread comparison:")
	fmt.Fprintf(w, "%-*s  %8s  %14s  %9s  %9s\n", maxNameLenAcross(stores), "name", "calls", "wallclock", "max", "min")

	regions := aggregate.Fold(stores, plugin)
	for _, r := range regions {
		fmt.Fprintf(w, "%-*s  %s  %14.6g  %9.6g  %9.6g\n", maxNameLenAcross(stores), r.Name,
			formatCount(r.TotCalls), r.Sample, r.WallMax, r.WallMin)
	}
}

func maxNameLenAcross(stores []*store.PerThreadStore) int {
	max := 0
	for _, s := range stores {
		if s.MaxNameLen > max {
			max = s.MaxNameLen
		}
	}
	return max
}

func writeMultipleParentSection(w io.Writer, stores []*store.PerThreadStore) {
	type row struct {
		thread int
		name   string
		t      *store.Timer
	}
	var rows []row
	for _, s := range stores {
		for _, idx := range s.Order {
			if idx == s.Root {
				continue
			}
			t := s.Arena[idx]
			if len(t.Parents) > 1 {
				rows = append(rows, row{s.ThreadIndex, t.Name, t})
			}
		}
	}
	if len(rows) == 0 {
		return
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].thread != rows[j].thread {
			return rows[i].thread < rows[j].thread
		}
		return rows[i].name < rows[j].name
	})

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Multiple parent info:")
	var lastThread, lastName = -1, ""
	for _, r := range rows {
		if r.thread != lastThread || r.name != lastName {
			fmt.Fprintf(w, "Multiple parents for %s (thread %d):\n", r.name, r.thread)
			lastThread, lastName = r.thread, r.name
		}
		for i, p := range r.t.Parents {
			parentName := parentNameFor(stores, r.thread, p)
			fmt.Fprintf(w, "  %-20s %s\n", parentName, formatCount(r.t.ParentCounts[i]))
		}
		fmt.Fprintf(w, "  %-20s %s\n", r.name, formatCount(r.t.Count))
	}
}

func parentNameFor(stores []*store.PerThreadStore, thread int, idx int32) string {
	for _, s := range stores {
		if s.ThreadIndex == thread {
			return s.Arena[idx].Name
		}
	}
	return "?"
}

func writeCollisionHistogram(w io.Writer, stores []*store.PerThreadStore) {
	fmt.Fprintln(w, "Hash collision histogram:")
	totals := make(map[int]int)
	for _, s := range stores {
		for bucketLen, count := range s.CollisionHistogram() {
			totals[bucketLen] += count
		}
	}
	var lens []int
	for l := range totals {
		lens = append(lens, l)
	}
	sort.Ints(lens)
	for _, l := range lens {
		fmt.Fprintf(w, "  buckets with %d entries: %d\n", l, totals[l])
	}
}

func writeMemoryUsage(w io.Writer, stores []*store.PerThreadStore) {
	var total int64
	for _, s := range stores {
		total += s.ArenaBytes()
	}
	fmt.Fprintf(w, "Memory usage: %s\n", units.FormatBytes(total))
}

// WriteSummary writes the timing.summary format of spec.md §4.8: one row
// per region with ncalls, nranks, mean, stdev, wallmax/wallmin with
// provenance.
func WriteSummary(w io.Writer, regions []reduce.GlobalRegion) {
	fmt.Fprintf(w, "%-*s  %10s  %6s  %14s  %14s  %20s  %20s\n", maxGlobalNameLen(regions), "name",
		"ncalls", "nranks", "mean", "stdev", "wallmax(rank,thread)", "wallmin(rank,thread)")
	for _, r := range regions {
		fmt.Fprintf(w, "%-*s  %s  %6d  %14.6g  %14.6g  %14.6g(%d,%d)  %14.6g(%d,%d)\n",
			maxGlobalNameLen(regions), r.Name,
			formatCount(r.TotCalls), r.TotTsk, r.Mean, r.Stdev(),
			r.WallMax, r.WallMaxRank, r.WallMaxThread,
			r.WallMin, r.WallMinRank, r.WallMinThread)
	}
}

func maxGlobalNameLen(regions []reduce.GlobalRegion) int {
	max := 4
	for _, r := range regions {
		if len(r.Name) > max {
			max = len(r.Name)
		}
	}
	return max
}
