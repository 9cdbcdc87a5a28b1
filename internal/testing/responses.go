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
	"context"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/internal/frame"
)

// BuildCardRequest returns the wire bytes of a card reader request
func BuildCardRequest(seq, cmd byte, data []byte) []byte {
	p := frame.NewPacket(frame.CardRequest)
	p.SetSeq(seq)
	p.SetCmd(cmd)
	_ = p.SetData(data)
	return frame.AppendFrame(nil, p)
}

// BuildCardResponse returns the wire bytes of a card reader response
func BuildCardResponse(seq, cmd, status byte, data []byte) []byte {
	p := frame.NewPacket(frame.CardResponse)
	p.SetSeq(seq)
	p.SetCmd(cmd)
	p.SetStatus(status)
	_ = p.SetData(data)
	return frame.AppendFrame(nil, p)
}

// FelicaPollData returns the 20 byte poll payload reporting one FeliCa card:
// payload length, card count, card type, id length, IDm, PMm.
func FelicaPollData(idm, pmm []byte) []byte {
	data := []byte{0x13, 0x01, 0x20, 0x10}
	data = append(data, idm[:8]...)
	return append(data, pmm[:8]...)
}

// EmptyPollData returns the poll payload reporting no card
func EmptyPollData() []byte {
	return []byte{0x01, 0x00}
}

// TextData returns a length-prefixed ASCII payload as used by version replies
func TextData(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

// BuildJVSResponse returns the wire bytes of a JVS reply addressed to the host
func BuildJVSResponse(status byte, data []byte) []byte {
	p := frame.NewPacket(frame.JVSResponse)
	p.SetDest(frame.MasterAddress)
	p.SetStatus(status)
	_ = p.SetData(data)
	return frame.AppendFrame(nil, p)
}

// DecodeFrames parses every complete frame in wire using layout
func DecodeFrames(wire []byte, layout frame.Layout) ([]*frame.Packet, error) {
	m := NewMockTransport("decode")
	_ = m.SetReadTimeout(0)
	m.Enqueue(wire)

	codec := frame.NewCodec(m, frame.WithReadTimeout(0))
	var packets []*frame.Packet
	for {
		p := frame.NewPacket(layout)
		err := codec.ReadPacket(context.Background(), p)
		if maibridge.IsTimeout(err) {
			return packets, nil
		}
		if err != nil {
			return packets, err
		}
		packets = append(packets, p)
	}
}
