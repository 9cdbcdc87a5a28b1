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

//go:build windows

package keyboard

import (
	"golang.org/x/sys/windows"
)

const (
	keyeventfKeyUp    = 0x0002
	keyeventfScanCode = 0x0008
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procKeybdEvent = user32.NewProc("keybd_event")
)

type scanCodePrimitive struct{}

// NewOSPrimitive returns a primitive that injects scan codes with keybd_event
func NewOSPrimitive() (Primitive, error) {
	if err := procKeybdEvent.Find(); err != nil {
		return nil, err
	}
	return scanCodePrimitive{}, nil
}

// SetKeyState implements Primitive
func (scanCodePrimitive) SetKeyState(code KeyCode, pressed bool) error {
	flags := uintptr(keyeventfScanCode)
	if !pressed {
		flags |= keyeventfKeyUp
	}
	// keybd_event has no return value; the virtual key is ignored with KEYEVENTF_SCANCODE
	_, _, _ = procKeybdEvent.Call(0, uintptr(code), flags, 0)
	return nil
}
