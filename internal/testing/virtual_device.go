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

package testing

import (
	"sync"

	"github.com/ZaparooProject/go-maibridge/internal/frame"
)

// Card reader command bytes understood by VirtualReader
const (
	readerCmdFirmware = 0x30
	readerCmdHardware = 0x32
	readerCmdPoll     = 0x42
)

// VirtualReader simulates an Aime card reader behind a MockTransport.
// Install it with mock.SetResponder(reader.Respond).
type VirtualReader struct {
	idm      []byte
	pmm      []byte
	commands []byte
	mu       sync.Mutex
	present  bool
	silent   bool
}

// NewVirtualReader creates a reader with no card on it
func NewVirtualReader() *VirtualReader {
	return &VirtualReader{}
}

// Insert places a FeliCa card with the given IDm and PMm on the reader
func (v *VirtualReader) Insert(idm, pmm []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.idm = append([]byte(nil), idm...)
	v.pmm = append([]byte(nil), pmm...)
	v.present = true
}

// Remove takes the card off the reader
func (v *VirtualReader) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = false
}

// SetSilent makes the reader ignore requests, so every read times out
func (v *VirtualReader) SetSilent(silent bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = silent
}

// Commands returns the command bytes received so far
func (v *VirtualReader) Commands() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commands...)
}

// Respond answers every request frame in written
func (v *VirtualReader) Respond(written []byte) []byte {
	requests, _ := DecodeFrames(written, frame.CardRequest)

	v.mu.Lock()
	defer v.mu.Unlock()
	var out []byte
	for _, req := range requests {
		v.commands = append(v.commands, req.Cmd())
		if v.silent {
			continue
		}
		out = append(out, BuildCardResponse(req.Seq(), req.Cmd(), 0x00, v.dataFor(req.Cmd()))...)
	}
	return out
}

func (v *VirtualReader) dataFor(cmd byte) []byte {
	switch cmd {
	case readerCmdFirmware:
		return TextData("TN32MSEC003S F/W Ver1.2")
	case readerCmdHardware:
		return TextData("TN32MSEC003S H/W Ver3.0")
	case readerCmdPoll:
		if v.present {
			return FelicaPollData(v.idm, v.pmm)
		}
		return EmptyPollData()
	default:
		return []byte{0x00}
	}
}

// VirtualIOBoard simulates a JVS I/O board at the end of the bus
type VirtualIOBoard struct {
	switches []byte
	commands [][]byte
	mu       sync.Mutex
	address  byte
	failOn   byte
}

// NewVirtualIOBoard creates a board whose switch report has nothing pressed
func NewVirtualIOBoard() *VirtualIOBoard {
	return &VirtualIOBoard{
		// report, system, then two bytes per player with active-low buttons
		switches: []byte{0x01, 0x00, 0x3F, 0xC0, 0x3F, 0xC0},
	}
}

// SetSwitches replaces the digital input report returned for 0x20
func (b *VirtualIOBoard) SetSwitches(report []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.switches = append([]byte(nil), report...)
}

// FailOn makes the board answer cmd with a bad status
func (b *VirtualIOBoard) FailOn(cmd byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOn = cmd
}

// Address returns the address assigned by the master
func (b *VirtualIOBoard) Address() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.address
}

// Commands returns the payload of every request received so far
func (b *VirtualIOBoard) Commands() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.commands))
	copy(out, b.commands)
	return out
}

// Respond answers every request frame in written
func (b *VirtualIOBoard) Respond(written []byte) []byte {
	requests, _ := DecodeFrames(written, frame.JVSRequest)

	b.mu.Lock()
	defer b.mu.Unlock()
	var out []byte
	for _, req := range requests {
		data := append([]byte(nil), req.Data()...)
		b.commands = append(b.commands, data)
		if len(data) == 0 {
			continue
		}
		cmd := data[0]
		if cmd == b.failOn {
			out = append(out, BuildJVSResponse(0x02, nil)...)
			continue
		}
		switch cmd {
		case 0xF0:
			// bus reset has no reply
		case 0xF1:
			if len(data) > 1 {
				b.address = data[1]
			}
			out = append(out, BuildJVSResponse(0x01, []byte{0x01})...)
		case 0x10:
			out = append(out, BuildJVSResponse(0x01, append([]byte{0x01}, "SEGA CORPORATION;I/O BD JVS;837-15257\x00"...))...)
		case 0x11, 0x12, 0x13:
			out = append(out, BuildJVSResponse(0x01, []byte{0x01, 0x13})...)
		case 0x14:
			out = append(out, BuildJVSResponse(0x01, []byte{0x01, 0x01, 0x02, 0x0C, 0x00, 0x00})...)
		case 0x20:
			out = append(out, BuildJVSResponse(0x01, b.switches)...)
		default:
			out = append(out, BuildJVSResponse(0x01, []byte{0x01})...)
		}
	}
	return out
}
