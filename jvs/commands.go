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

// Package jvs is a minimal JVS bus master: it brings up one I/O board and
// turns its digital switch reports into key presses.
package jvs

import (
	"fmt"
	"strings"
)

// Bus control commands, always broadcast
const (
	CmdReset      = 0xF0
	CmdResetArg   = 0xD9
	CmdAssignAddr = 0xF1
)

// Board commands
const (
	CmdRequestID       = 0x10
	CmdCommandRevision = 0x11
	CmdJVSVersion      = 0x12
	CmdCommsVersion    = 0x13
	CmdCapabilities    = 0x14
	CmdReadDigital     = 0x20
)

// StatusOK is the only status byte that carries a usable reply
const StatusOK = 0x01

// readDigitalArgs asks for two players with two switch bytes each
var readDigitalArgs = []byte{CmdReadDigital, 0x02, 0x02}

// State is the lifecycle state of the JVS master
type State int32

// Master states in order of the normal lifecycle
const (
	StateIdle State = iota
	StateReset
	StateAddressAssignment
	StateIdentify
	StateDigitalPollLoop
	StateStopped
)

// String returns the state name for logs
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReset:
		return "reset"
	case StateAddressAssignment:
		return "address assignment"
	case StateIdentify:
		return "identify"
	case StateDigitalPollLoop:
		return "digital poll loop"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Identity is what the board reported during identification
type Identity struct {
	ID              string
	Capabilities    []byte
	CommandRevision byte
	JVSVersion      byte
	CommsVersion    byte
}

// Version bytes are BCD, 0x13 reads as 1.3
func bcdVersion(b byte) string {
	return fmt.Sprintf("%d.%d", b>>4, b&0x0F)
}

func idText(data []byte) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7E {
			return -1
		}
		return r
	}, string(data)))
}
