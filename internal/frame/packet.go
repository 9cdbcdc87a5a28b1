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

import (
	"fmt"

	"github.com/ZaparooProject/go-maibridge"
)

// Packet is a reusable frame buffer owned by one pipeline. It holds the
// logical bytes from the first header field through the end of the payload;
// the sync byte and checksum exist only on the wire.
//
// The buffer is allocated once at its maximum size, so reading or building a
// frame never allocates.
type Packet struct {
	buf    []byte
	layout Layout
}

// NewPacket allocates an empty packet for the given layout
func NewPacket(layout Layout) *Packet {
	p := &Packet{
		layout: layout,
		buf:    make([]byte, 0, layout.capacity()),
	}
	p.Reset()
	return p
}

// Reset zeroes the header and empties the payload
func (p *Packet) Reset() {
	p.buf = p.buf[:p.layout.Data]
	clear(p.buf)
	p.buf[p.layout.Size] = byte(p.layout.minRawSize())
}

// Layout returns the packet layout
func (p *Packet) Layout() Layout {
	return p.layout
}

// Bytes returns the logical frame bytes. The slice aliases the packet buffer.
func (p *Packet) Bytes() []byte {
	return p.buf
}

// RawSize returns the size field as currently stored
func (p *Packet) RawSize() byte {
	return p.buf[p.layout.Size]
}

// Dest returns the destination address
func (p *Packet) Dest() byte {
	return p.buf[p.layout.Dest]
}

// SetDest sets the destination address
func (p *Packet) SetDest(addr byte) {
	p.buf[p.layout.Dest] = addr
}

// Seq returns the sequence number, or zero for layouts without one
func (p *Packet) Seq() byte {
	return p.field(p.layout.Seq)
}

// SetSeq stamps the sequence number. It is ignored for JVS layouts.
func (p *Packet) SetSeq(seq byte) {
	p.setField(p.layout.Seq, seq)
}

// Cmd returns the command byte. JVS frames carry the command as the first
// payload byte instead.
func (p *Packet) Cmd() byte {
	if p.layout.Cmd < 0 {
		if len(p.buf) > p.layout.Data {
			return p.buf[p.layout.Data]
		}
		return 0
	}
	return p.buf[p.layout.Cmd]
}

// SetCmd sets the command byte
func (p *Packet) SetCmd(cmd byte) {
	p.setField(p.layout.Cmd, cmd)
}

// Status returns the report/status byte of a response
func (p *Packet) Status() byte {
	return p.field(p.layout.Status)
}

// SetStatus sets the report/status byte of a response
func (p *Packet) SetStatus(status byte) {
	p.setField(p.layout.Status, status)
}

// Data returns the payload. The slice aliases the packet buffer and is only
// valid until the next read into this packet.
func (p *Packet) Data() []byte {
	return p.buf[p.layout.Data:]
}

// SetData copies data into the payload and updates the size byte with it.
func (p *Packet) SetData(data []byte) error {
	if len(data) > p.layout.MaxData() {
		return fmt.Errorf("%w: %d bytes exceeds %s limit of %d",
			maibridge.ErrDataTooLarge, len(data), p.layout.Name, p.layout.MaxData())
	}
	p.buf = append(p.buf[:p.layout.Data], data...)
	p.buf[p.layout.Size] = byte(p.layout.RawSize(len(data)))
	return nil
}

// Checksum returns the checksum that will be sent with the packet
func (p *Packet) Checksum() byte {
	return CalculateChecksum(p.buf)
}

// String renders the packet for debug logs
func (p *Packet) String() string {
	return fmt.Sprintf("%s [% X]", p.layout.Name, p.buf)
}

func (p *Packet) field(off int) byte {
	if off < 0 {
		return 0
	}
	return p.buf[off]
}

func (p *Packet) setField(off int, v byte) {
	if off >= 0 {
		p.buf[off] = v
	}
}

// AppendFrame appends the complete wire form of p to dst: an unescaped sync
// byte, the escaped logical bytes, then the escaped checksum.
func AppendFrame(dst []byte, p *Packet) []byte {
	dst = append(dst, Sync)
	for _, b := range p.buf {
		dst = AppendEscaped(dst, b)
	}
	return AppendEscaped(dst, p.Checksum())
}
