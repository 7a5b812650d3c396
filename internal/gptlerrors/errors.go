// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gptlerrors defines the sentinel error values shared across the
// timing library's internal packages. It has no dependencies so that
// store, tree, registry, reduce and the public gptl package can all
// import it without creating a cycle.
package gptlerrors

import "errors"

var (
	ErrNotInitialized     = errors.New("gptl: not initialized")
	ErrAlreadyInitialized = errors.New("gptl: already initialized")
	ErrOutOfRange         = errors.New("gptl: value out of range")
	ErrStackOverflow      = errors.New("gptl: call stack overflow")
	ErrTimerNotFound      = errors.New("gptl: timer not found")
	ErrTimerAlreadyOff    = errors.New("gptl: timer already off")
	ErrAllocationFailure  = errors.New("gptl: allocation failure")
	ErrClockUnavailable   = errors.New("gptl: clock unavailable")
	ErrPlatformUnsupported = errors.New("gptl: platform unsupported")
	ErrCommunicationFailure = errors.New("gptl: communication failure")

	// ErrLoopDetected and ErrNegativeDelta are never returned to a caller.
	// Both are designed-in, non-fatal conditions that are logged and
	// otherwise ignored; the log messages in store and tree are plain
	// strings and do not wrap these values.
	ErrLoopDetected  = errors.New("gptl: loop detected in parent/child graph")
	ErrNegativeDelta = errors.New("gptl: negative delta observed")
)
