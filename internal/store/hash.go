// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package store

// hashName implements spec.md §4.3's name-key hash:
// (Σ name[i]·(i+1)) mod tablesize, iterating up to MaxChars.
func hashName(name string, tableSize int) int {
	sum := 0
	n := len(name)
	if n > MaxChars {
		n = MaxChars
	}
	for i := 0; i < n; i++ {
		sum += int(name[i]) * (i + 1)
	}
	sum %= tableSize
	if sum < 0 {
		sum += tableSize
	}
	return sum
}

// hashAddr implements spec.md §4.3's address-key hash: right-shift by 4
// to defeat function-alignment clustering, then mod tablesize.
func hashAddr(addr uintptr, tableSize int) int {
	return int((addr >> 4) % uintptr(tableSize))
}

func truncateName(name string) string {
	if len(name) <= MaxChars {
		return name
	}
	return name[:MaxChars]
}
