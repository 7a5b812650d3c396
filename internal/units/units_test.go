// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytesPicksLargestFittingPrefix(t *testing.T) {
	assert.Equal(t, "512.00 B", FormatBytes(512))
	assert.Equal(t, "1.00 KiB", FormatBytes(1024))
	assert.Equal(t, "1.50 MiB", FormatBytes(1024*1024+512*1024))
	assert.Equal(t, "2.00 GiB", FormatBytes(2*1024*1024*1024))
}

func TestFormatBytesZero(t *testing.T) {
	assert.Equal(t, "0.00 B", FormatBytes(0))
}
