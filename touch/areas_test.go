// go-maibridge
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-maibridge.
//
// go-maibridge is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-maibridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-maibridge; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package touch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// pressedAreas lists the areas set in r, in table order
func pressedAreas(r *Report) []Area {
	var out []Area
	for idx := 1; idx < ReportLength-1; idx++ {
		for bit := 0; bit < sourceBits; bit++ {
			if mask := byte(1 << bit); r[idx]&mask != 0 {
				out = append(out, Area{idx, mask})
			}
		}
	}
	return out
}

func TestRemapNothingPressed(t *testing.T) {
	t.Parallel()

	var r Report
	Remap([SourceBytes]byte{}, &r)
	assert.Equal(t, DefaultReport, r)

	// FiNALE bytes carry an '@' base that must not light anything
	Remap([SourceBytes]byte{'@', '@', '@', '@'}, &r)
	assert.Equal(t, DefaultReport, r)
}

func TestRemap(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want []Area
		src  [SourceBytes]byte
	}{
		{name: "A1 lights D1 and D2", src: [SourceBytes]byte{0x01}, want: []Area{A1, D1, D2}},
		{name: "B1 lights E1 and E2", src: [SourceBytes]byte{0x02}, want: []Area{B1, E1, E2}},
		{name: "A4", src: [SourceBytes]byte{0, 0x04}, want: []Area{A4, D4, D5}},
		{name: "B6", src: [SourceBytes]byte{0, 0, 0x08}, want: []Area{B6, E6, E7}},
		{name: "A8 wraps to D1", src: [SourceBytes]byte{0, 0, 0, 0x04}, want: []Area{A8, D8, D1}},
		{name: "B8 wraps to E1", src: [SourceBytes]byte{0, 0, 0, 0x08}, want: []Area{B8, E8, E1}},
		{name: "C lights both halves", src: [SourceBytes]byte{0, 0, 0, 0x10}, want: []Area{C1, C2}},
		{name: "unused bit 4", src: [SourceBytes]byte{0x10, 0x10, 0x10}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			want := DefaultReport
			for _, a := range tt.want {
				want[a.Index] |= a.Mask
			}
			var got Report
			Remap(tt.src, &got)
			assert.Equal(t, want, got)
			assert.Len(t, pressedAreas(&got), len(tt.want))
		})
	}
}

func TestRemapOverlapIsORed(t *testing.T) {
	t.Parallel()

	// A1 and A2 share D2
	var r Report
	Remap([SourceBytes]byte{0x01 | 0x04}, &r)
	assert.Equal(t, byte(0x01|0x02), r[1])
	assert.Equal(t, byte(0x08|0x10), r[4])
	assert.Equal(t, byte(0x01), r[5])
}

func TestRemapEverything(t *testing.T) {
	t.Parallel()

	var r Report
	Remap([SourceBytes]byte{0x1F, 0x1F, 0x1F, 0x1F}, &r)
	assert.Equal(t, Report{'(', 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x0F, ')'}, r)
	assert.Len(t, pressedAreas(&r), 34)
}

func TestRemapResetsPreviousReport(t *testing.T) {
	t.Parallel()

	var r Report
	Remap([SourceBytes]byte{0x1F, 0x1F, 0x1F, 0x1F}, &r)
	Remap([SourceBytes]byte{}, &r)
	assert.Equal(t, DefaultReport, r)
}
