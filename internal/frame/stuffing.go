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

package frame

// NeedsEscape reports whether b collides with a reserved wire byte.
func NeedsEscape(b byte) bool {
	return b == Sync || b == Mark
}

// AppendEscaped appends the wire form of logical byte b to dst.
func AppendEscaped(dst []byte, b byte) []byte {
	if NeedsEscape(b) {
		return append(dst, Mark, b-1)
	}
	return append(dst, b)
}

// Unescape returns the logical value of the byte that followed a Mark.
// Addition wraps, so 0xFF decodes to 0x00 exactly as the hardware does.
func Unescape(b byte) byte {
	return b + 1
}
