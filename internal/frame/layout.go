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

// Layout names the offsets of the header fields inside the logical (unescaped,
// sync-less) bytes of a frame. An offset of -1 means the field is absent.
type Layout struct {
	Name   string
	Size   int
	Dest   int
	Seq    int
	Cmd    int
	Status int
	Data   int
}

// Frame layouts of the two links. The card reader size byte counts itself
// through the end of the payload; the JVS size byte counts everything after
// itself including the checksum. Both reduce to Data-Size+len(data).
var (
	CardRequest = Layout{
		Name: "card request", Size: 0, Dest: 1, Seq: 2, Cmd: 3, Status: -1, Data: 4,
	}
	CardResponse = Layout{
		Name: "card response", Size: 0, Dest: 1, Seq: 2, Cmd: 3, Status: 4, Data: 5,
	}
	JVSRequest = Layout{
		Name: "jvs request", Size: 1, Dest: 0, Seq: -1, Cmd: -1, Status: -1, Data: 2,
	}
	JVSResponse = Layout{
		Name: "jvs response", Size: 1, Dest: 0, Seq: -1, Cmd: -1, Status: 2, Data: 3,
	}
)

// RawSize returns the size field value for a payload of dataLen bytes
func (l Layout) RawSize(dataLen int) int {
	return l.Data - l.Size + dataLen
}

// MaxData returns the largest payload that still fits the size byte
func (l Layout) MaxData() int {
	return maxRawSize - (l.Data - l.Size)
}

// minRawSize is the size field value of a frame with an empty payload
func (l Layout) minRawSize() int {
	return l.Data - l.Size
}

// capacity is the logical buffer length needed for the largest frame
func (l Layout) capacity() int {
	return l.Size + maxRawSize
}
