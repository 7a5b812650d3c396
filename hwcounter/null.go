// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package hwcounter

import (
	"fmt"
	"io"
)

// Null is the default plug-in: it does nothing, the Go analogue of
// original_source/private.h's empty Auxstats struct kept around only
// "because some compilers don't allow empty structs".
type Null struct{}

func (Null) Init(nthreads int) error                { return nil }
func (Null) Start(thread, slot int) error            { return nil }
func (Null) Stop(thread, slot int) (Value, error)    { return Value{}, nil }
func (Null) Add(dst, src Value) Value                { return Value{} }
func (Null) Query(slot int) (string, error)          { return "", nil }
func (Null) Print(w io.Writer) error                 { _, err := fmt.Fprintln(w, "hwcounter: none configured"); return err }
func (Null) Finalize() error                         { return nil }
