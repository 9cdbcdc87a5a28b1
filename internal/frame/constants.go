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

// Package frame implements the byte-stuffed frame format shared by the Aime
// card reader link and the JVS bus.
package frame

// Reserved wire bytes. Either value inside a frame is sent as Mark followed by
// the value minus one.
const (
	Sync = 0xE0 // Start of frame, never escaped
	Mark = 0xD0 // Escape prefix
)

// Addresses
const (
	Broadcast     = 0xFF // JVS broadcast, used for bus reset and address assignment
	MasterAddress = 0x00 // JVS responses are addressed to the host
)

// SequenceModulus bounds the card reader sequence number to 0..31.
const SequenceModulus = 32

// maxRawSize is the largest value the one-byte size field can carry
const maxRawSize = 0xFF
