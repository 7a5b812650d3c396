// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package store

// Resource caps from spec.md §5.
const (
	MaxChars         = 63
	MaxStack         = 128
	DefaultTableSize = 1023

	RootName = "GPTL_ROOT"
)
