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

package jvs

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/keyboard"
)

// Offsets into a digital report: report, system, then two bytes per player
const (
	switchReportLength = 6
	systemOffset       = 1
	playerOffset       = 2
	bytesPerPlayer     = 2
	ButtonsPerPlayer   = 8
	Players            = 2

	serviceMask = 0x80 // system byte
	testMask    = 0x40 // first player byte
)

// buttonBits locates the eight player buttons inside the two player bytes
var buttonBits = [ButtonsPerPlayer]struct {
	offset int
	mask   byte
}{
	{0, 0x20}, {0, 0x10}, {0, 0x08}, {0, 0x04}, {0, 0x02}, {0, 0x01},
	{1, 0x80}, {1, 0x40},
}

// KeyMap maps switches to keys. KeyNone leaves a switch unmapped.
type KeyMap struct {
	Players [Players][ButtonsPerPlayer]keyboard.KeyCode
	Service keyboard.KeyCode
	Test    keyboard.KeyCode
}

// DefaultKeyMap is the layout expected by the game's keyboard input
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Service: keyboard.Key2,
		Test:    keyboard.KeyT,
		Players: [Players][ButtonsPerPlayer]keyboard.KeyCode{
			{keyboard.KeyW, keyboard.KeyE, keyboard.KeyD, keyboard.KeyC,
				keyboard.KeyX, keyboard.KeyZ, keyboard.KeyA, keyboard.KeyQ},
			{keyboard.KeyKP8, keyboard.KeyKP9, keyboard.KeyKP6, keyboard.KeyKP3,
				keyboard.KeyKP2, keyboard.KeyKP1, keyboard.KeyKP4, keyboard.KeyKP7},
		},
	}
}

// Keys returns every mapped key
func (k KeyMap) Keys() []keyboard.KeyCode {
	keys := make([]keyboard.KeyCode, 0, 2+Players*ButtonsPerPlayer)
	for _, code := range []keyboard.KeyCode{k.Service, k.Test} {
		if code != keyboard.KeyNone {
			keys = append(keys, code)
		}
	}
	for _, player := range k.Players {
		for _, code := range player {
			if code != keyboard.KeyNone {
				keys = append(keys, code)
			}
		}
	}
	return keys
}

// KeySetter moves a key to a state. keyboard.Sink implements it.
type KeySetter interface {
	Set(code keyboard.KeyCode, pressed bool) error
}

// Switches is a decoded digital report
type Switches struct {
	Buttons [Players][ButtonsPerPlayer]bool
	Service bool
	Test    bool
}

// DecodeSwitches decodes a digital report. Service and test are active-high,
// player buttons are active-low.
func DecodeSwitches(report []byte) (Switches, error) {
	var sw Switches
	if len(report) < switchReportLength {
		return sw, fmt.Errorf("%w: switch report has %d bytes, want %d",
			maibridge.ErrProtocolViolation, len(report), switchReportLength)
	}

	sw.Service = report[systemOffset]&serviceMask != 0
	sw.Test = report[playerOffset]&testMask != 0
	for p := 0; p < Players; p++ {
		base := playerOffset + p*bytesPerPlayer
		for i, bit := range buttonBits {
			sw.Buttons[p][i] = report[base+bit.offset]&bit.mask == 0
		}
	}
	return sw, nil
}

// ApplySwitches decodes report and moves every mapped key to the state of
// its switch. The sink drops repeated states.
func ApplySwitches(report []byte, km KeyMap, keys KeySetter) error {
	sw, err := DecodeSwitches(report)
	if err != nil {
		return err
	}

	var errs []error
	set := func(code keyboard.KeyCode, pressed bool) {
		if code == keyboard.KeyNone {
			return
		}
		if err := keys.Set(code, pressed); err != nil {
			errs = append(errs, err)
		}
	}

	set(km.Service, sw.Service)
	set(km.Test, sw.Test)
	for p := 0; p < Players; p++ {
		for i := 0; i < ButtonsPerPlayer; i++ {
			set(km.Players[p][i], sw.Buttons[p][i])
		}
	}
	return errors.Join(errs...)
}
