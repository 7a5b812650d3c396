// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package units formats byte counts for the reporter's memory-usage
// diagnostic (spec.md §4.8), adapted from pkg/units/unitPrefix.go's
// binary-prefix table — trimmed to the Kibi/Mebi/Gibi/Tebi subset a
// timer arena can plausibly reach, since the timing library needs an
// auto-scaling byte formatter, not the teacher's full rate/measure
// conversion surface (which also handled decimal SI prefixes and
// arbitrary unit-string parsing for metric time series).
package units

import "fmt"

// BinaryPrefix is a power-of-1024 scale factor, named after
// pkg/units/unitPrefix.go's Prefix type.
type BinaryPrefix float64

const (
	Base BinaryPrefix = 1
	Kibi BinaryPrefix = 1024
	Mebi BinaryPrefix = 1024 * 1024
	Gibi BinaryPrefix = 1024 * 1024 * 1024
	Tebi BinaryPrefix = 1024 * 1024 * 1024 * 1024
)

var table = []struct {
	scale  BinaryPrefix
	suffix string
}{
	{Tebi, "TiB"},
	{Gibi, "GiB"},
	{Mebi, "MiB"},
	{Kibi, "KiB"},
	{Base, "B"},
}

// FormatBytes auto-scales n to the largest binary prefix that keeps the
// mantissa at or above 1, matching the reporter's memory-usage tally
// formatting (spec.md §4.8).
func FormatBytes(n int64) string {
	for _, e := range table {
		if BinaryPrefix(n) >= e.scale || e.scale == Base {
			return fmt.Sprintf("%.2f %s", float64(n)/float64(e.scale), e.suffix)
		}
	}
	return fmt.Sprintf("%d B", n)
}
