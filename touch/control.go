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
	"fmt"

	"github.com/ZaparooProject/go-maibridge"
)

// Opcode is the fourth byte of a control frame
type Opcode byte

// Control opcodes sent by the game
const (
	OpReset       Opcode = 'E' // {RSET}
	OpHalt        Opcode = 'L' // {HALT}
	OpStat        Opcode = 'A' // {STAT}
	OpSensitivity Opcode = 'k' // {side area k value}
	OpRatio       Opcode = 'r' // {side area r value}
)

// String returns the opcode mnemonic
func (o Opcode) String() string {
	switch o {
	case OpReset:
		return "RSET"
	case OpHalt:
		return "HALT"
	case OpStat:
		return "STAT"
	case OpSensitivity:
		return "SENS"
	case OpRatio:
		return "RATIO"
	default:
		return fmt.Sprintf("Opcode(%q)", byte(o))
	}
}

// Control frame delimiters and length
const (
	ControlStart  = '{'
	ControlEnd    = '}'
	ControlLength = 6

	ackStart = '('
	ackEnd   = ')'
)

// Commands written to the FiNALE controller
var (
	Halt = []byte("{HALT}")
	Stat = []byte("{STAT}")
)

// Control is one decoded control frame from a game-side port
type Control struct {
	Raw    [ControlLength]byte
	Player int
	Op     Opcode
	Side   byte
	Area   byte
	Value  byte
}

// DecodeControl decodes a 6-byte control frame received from player
func DecodeControl(player int, frame []byte) (Control, error) {
	var c Control
	if len(frame) != ControlLength || frame[0] != ControlStart || frame[ControlLength-1] != ControlEnd {
		return c, fmt.Errorf("%w: control frame % X", maibridge.ErrProtocolViolation, frame)
	}
	copy(c.Raw[:], frame)
	c.Player = player
	c.Side = frame[1]
	c.Area = frame[2]
	c.Op = Opcode(frame[3])
	c.Value = frame[4]
	return c, nil
}

// Known reports whether the opcode is one the bridge acts on
func (c Control) Known() bool {
	switch c.Op {
	case OpReset, OpHalt, OpStat, OpSensitivity, OpRatio:
		return true
	default:
		return false
	}
}

// Ack returns the acknowledgement the game expects for a sensitivity or
// ratio frame: the same four inner bytes in parentheses.
func (c Control) Ack() []byte {
	return []byte{ackStart, c.Side, c.Area, byte(c.Op), c.Value, ackEnd}
}
