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

// Package keyboard emulates key presses for the game. Codes are PC set 1
// scan codes, which coincide with Linux evdev key codes for every key here.
package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-maibridge"
)

// KeyCode is a set 1 scan code. Zero means "not mapped".
type KeyCode uint16

// MaxKeyCode is the highest code ParseKey accepts
const MaxKeyCode KeyCode = 0xFF

// Keys used by the default configuration
const (
	KeyNone  KeyCode = 0
	KeyEsc   KeyCode = 1
	Key1     KeyCode = 2
	Key2     KeyCode = 3
	Key3     KeyCode = 4
	KeyTab   KeyCode = 15
	KeyQ     KeyCode = 16
	KeyW     KeyCode = 17
	KeyE     KeyCode = 18
	KeyT     KeyCode = 20
	KeyEnter KeyCode = 28
	KeyA     KeyCode = 30
	KeyD     KeyCode = 32
	KeyZ     KeyCode = 44
	KeyX     KeyCode = 45
	KeyC     KeyCode = 46
	KeySpace KeyCode = 57
	KeyKP7   KeyCode = 71
	KeyKP8   KeyCode = 72
	KeyKP9   KeyCode = 73
	KeyKP4   KeyCode = 75
	KeyKP5   KeyCode = 76
	KeyKP6   KeyCode = 77
	KeyKP1   KeyCode = 79
	KeyKP2   KeyCode = 80
	KeyKP3   KeyCode = 81
	KeyKP0   KeyCode = 82
)

var keyNames = map[string]KeyCode{
	"ESC": KeyEsc, "TAB": KeyTab, "ENTER": KeyEnter, "RETURN": KeyEnter, "SPACE": KeySpace,
	"1": Key1, "2": Key2, "3": Key3, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"Q": KeyQ, "W": KeyW, "E": KeyE, "R": 19, "T": KeyT, "Y": 21, "U": 22, "I": 23, "O": 24, "P": 25,
	"A": KeyA, "S": 31, "D": KeyD, "F": 33, "G": 34, "H": 35, "J": 36, "K": 37, "L": 38,
	"Z": KeyZ, "X": KeyX, "C": KeyC, "V": 47, "B": 48, "N": 49, "M": 50,
	"F1": 59, "F2": 60, "F3": 61, "F4": 62, "F5": 63, "F6": 64, "F7": 65, "F8": 66, "F9": 67, "F10": 68,
	"KP7": KeyKP7, "KP8": KeyKP8, "KP9": KeyKP9, "KP4": KeyKP4, "KP5": KeyKP5, "KP6": KeyKP6,
	"KP1": KeyKP1, "KP2": KeyKP2, "KP3": KeyKP3, "KP0": KeyKP0,
}

var codeNames = func() map[KeyCode]string {
	m := make(map[KeyCode]string, len(keyNames))
	for name, code := range keyNames {
		// prefer ENTER over RETURN
		if existing, ok := m[code]; ok && existing < name {
			continue
		}
		m[code] = name
	}
	return m
}()

// ParseKey resolves a key name such as "W", "KP8" or "ENTER", or a decimal
// or 0x-prefixed scan code. An empty name yields KeyNone.
func ParseKey(name string) (KeyCode, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || name == "NONE" {
		return KeyNone, nil
	}
	if code, ok := keyNames[name]; ok {
		return code, nil
	}
	if n, err := strconv.ParseUint(name, 0, 16); err == nil && n <= uint64(MaxKeyCode) {
		return KeyCode(n), nil
	}
	return KeyNone, fmt.Errorf("%w: unknown key %q", maibridge.ErrInvalidParameter, name)
}

// String returns the key name, or the numeric code for unnamed keys
func (k KeyCode) String() string {
	if k == KeyNone {
		return "NONE"
	}
	if name, ok := codeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint16(k))
}

// InjectableKeys returns every code a virtual keyboard must declare so that
// any key ParseKey resolves can be pressed, in ascending order
func InjectableKeys() []KeyCode {
	codes := make([]KeyCode, 0, MaxKeyCode)
	for code := KeyCode(1); code <= MaxKeyCode; code++ {
		codes = append(codes, code)
	}
	return codes
}
