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

// Package touch bridges the two-player FiNALE touch sensor controller to the
// pair of DX touch ports the game talks to.
//
// The FiNALE controller reports one 14-byte frame for both players. Each
// player gets 4 bytes with 5 sensor bits each. The DX side expects a 9-byte
// frame per player with 34 areas, several of which have no FiNALE
// counterpart; those are lit together with the nearest FiNALE area.
package touch

// Area is one DX touch area: a byte in the report and a bit inside it
type Area struct {
	Index int
	Mask  byte
}

// DX touch areas
var (
	A1 = Area{1, 0x01}
	A2 = Area{1, 0x02}
	A3 = Area{1, 0x04}
	A4 = Area{1, 0x08}
	A5 = Area{1, 0x10}
	A6 = Area{2, 0x01}
	A7 = Area{2, 0x02}
	A8 = Area{2, 0x04}
	B1 = Area{2, 0x08}
	B2 = Area{2, 0x10}
	B3 = Area{3, 0x01}
	B4 = Area{3, 0x02}
	B5 = Area{3, 0x04}
	B6 = Area{3, 0x08}
	B7 = Area{3, 0x10}
	B8 = Area{4, 0x01}
	C1 = Area{4, 0x02}
	C2 = Area{4, 0x04}
	D1 = Area{4, 0x08}
	D2 = Area{4, 0x10}
	D3 = Area{5, 0x01}
	D4 = Area{5, 0x02}
	D5 = Area{5, 0x04}
	D6 = Area{5, 0x08}
	D7 = Area{5, 0x10}
	D8 = Area{6, 0x01}
	E1 = Area{6, 0x02}
	E2 = Area{6, 0x04}
	E3 = Area{6, 0x08}
	E4 = Area{6, 0x10}
	E5 = Area{7, 0x01}
	E6 = Area{7, 0x02}
	E7 = Area{7, 0x04}
	E8 = Area{7, 0x08}
)

const (
	// SourceBytes is the number of FiNALE area bytes per player
	SourceBytes = 4
	// sourceBits is the number of sensor bits used in each FiNALE byte
	sourceBits = 5
)

// finaleAreas maps each FiNALE sensor bit to the DX areas it lights. The
// FiNALE panel has no separate D and E sensors, so every A and B press also
// lights its two neighbours on the outer ring.
var finaleAreas = [SourceBytes][sourceBits][]Area{
	{{A1, D1, D2}, {B1, E1, E2}, {A2, D2, D3}, {B2, E2, E3}, nil},
	{{A3, D3, D4}, {B3, E3, E4}, {A4, D4, D5}, {B4, E4, E5}, nil},
	{{A5, D5, D6}, {B5, E5, E6}, {A6, D6, D7}, {B6, E6, E7}, nil},
	{{A7, D7, D8}, {B7, E7, E8}, {A8, D8, D1}, {B8, E8, E1}, {C1, C2}},
}

// ReportLength is the size of a DX touch report
const ReportLength = 9

// Report is one DX touch report: '(' then 7 area bytes then ')'
type Report [ReportLength]byte

// DefaultReport has no area pressed
var DefaultReport = Report{'(', 0, 0, 0, 0, 0, 0, 0, ')'}

// Remap expands the four FiNALE area bytes of one player into dst. Bits
// above bit 4 are ignored, so the '@' base of FiNALE bytes is harmless.
func Remap(src [SourceBytes]byte, dst *Report) {
	*dst = DefaultReport
	for i, b := range src {
		for bit := 0; bit < sourceBits; bit++ {
			if b&(1<<bit) == 0 {
				continue
			}
			for _, a := range finaleAreas[i][bit] {
				dst[a.Index] |= a.Mask
			}
		}
	}
}
