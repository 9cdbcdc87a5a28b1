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

// Package cardreader drives an Aime card reader over the byte-stuffed card
// link. Reader polls the device itself and turns a FeliCa card into a card
// id file write plus a key press; Proxy relays the game's own requests.
package cardreader

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Card reader commands
const (
	CmdLEDReset    = 0x10
	CmdGetFirmware = 0x30
	CmdGetHardware = 0x32
	CmdRadioOn     = 0x40
	CmdRadioOff    = 0x41
	CmdPoll        = 0x42
	CmdReset       = 0x62
)

// Poll response layout. The first payload byte is the payload length.
const (
	PollResponseLength = 20
	idmOffset          = 4
	pmmOffset          = 12
	felicaIDLength     = 8
)

// Fixed command arguments
var (
	argNone    = []byte{0x00}
	argRadioOn = []byte{0x01, 0x03}
)

// CommandName returns a readable name for cmd
func CommandName(cmd byte) string {
	switch cmd {
	case CmdLEDReset:
		return "led reset"
	case CmdGetFirmware:
		return "get firmware"
	case CmdGetHardware:
		return "get hardware"
	case CmdRadioOn:
		return "radio on"
	case CmdRadioOff:
		return "radio off"
	case CmdPoll:
		return "poll"
	case CmdReset:
		return "reset"
	default:
		return fmt.Sprintf("cmd 0x%02X", cmd)
	}
}

// ExtractCardID renders the FeliCa IDm of a poll response payload as 16
// uppercase hex digits. Payloads of any other length carry no card.
func ExtractCardID(data []byte) (string, bool) {
	if len(data) != PollResponseLength {
		return "", false
	}
	return strings.ToUpper(hex.EncodeToString(data[idmOffset : idmOffset+felicaIDLength])), true
}

// versionText extracts the printable text of a version reply
func versionText(data []byte) string {
	if len(data) > 0 && int(data[0]) == len(data)-1 {
		data = data[1:]
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7E {
			return -1
		}
		return r
	}, string(data)))
}

// State is the lifecycle state of a card reader link
type State int32

// Link states in order of the normal lifecycle
const (
	StateUninitialized State = iota
	StateResetting
	StateIdentifying
	StateReady
	StatePollSent
	StateAwaitingResponse
	StateShuttingDown
)

// String returns the state name for logs
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResetting:
		return "resetting"
	case StateIdentifying:
		return "identifying"
	case StateReady:
		return "ready"
	case StatePollSent:
		return "poll sent"
	case StateAwaitingResponse:
		return "awaiting response"
	case StateShuttingDown:
		return "shutting down"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
