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

//go:build linux && (amd64 || arm64)

package keyboard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// uinput ioctls and event types from linux/uinput.h and linux/input.h
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0

	busUSB = 0x03

	uinputUserDevSize = 80 + 8 + 4 + 4*64*4
	inputEventSize    = 24
)

// UinputPath is the uinput device node
var UinputPath = "/dev/uinput"

// uinputPrimitive is a virtual keyboard created through uinput
type uinputPrimitive struct {
	fd    int
	event [inputEventSize]byte
}

// NewOSPrimitive creates a virtual keyboard through uinput. The process
// needs write access to the uinput device.
func NewOSPrimitive() (Primitive, error) {
	fd, err := unix.Open(UinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", UinputPath, err)
	}
	p := &uinputPrimitive{fd: fd}
	if err := p.setup(); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return p, nil
}

func (p *uinputPrimitive) setup() error {
	if err := unix.IoctlSetInt(p.fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("UI_SET_EVBIT: %w", err)
	}
	for _, code := range InjectableKeys() {
		if err := unix.IoctlSetInt(p.fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("UI_SET_KEYBIT %s: %w", code, err)
		}
	}

	dev := make([]byte, uinputUserDevSize)
	copy(dev, "maibridge virtual keyboard")
	binary.LittleEndian.PutUint16(dev[80:], busUSB)
	binary.LittleEndian.PutUint16(dev[82:], 0x0ca3) // vendor
	binary.LittleEndian.PutUint16(dev[84:], 0x0021) // product
	binary.LittleEndian.PutUint16(dev[86:], 1)      // version
	if _, err := unix.Write(p.fd, dev); err != nil {
		return fmt.Errorf("failed to write uinput device: %w", err)
	}

	if err := unix.IoctlSetInt(p.fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	// udev needs a moment before the new device receives events
	time.Sleep(200 * time.Millisecond)
	return nil
}

// SetKeyState implements Primitive
func (p *uinputPrimitive) SetKeyState(code KeyCode, pressed bool) error {
	var value int32
	if pressed {
		value = 1
	}
	return errors.Join(p.emit(evKey, uint16(code), value), p.emit(evSyn, synReport, 0))
}

func (p *uinputPrimitive) emit(typ, code uint16, value int32) error {
	now := time.Now()
	binary.LittleEndian.PutUint64(p.event[0:], uint64(now.Unix()))
	binary.LittleEndian.PutUint64(p.event[8:], uint64(now.Nanosecond()/1000))
	binary.LittleEndian.PutUint16(p.event[16:], typ)
	binary.LittleEndian.PutUint16(p.event[18:], code)
	binary.LittleEndian.PutUint32(p.event[20:], uint32(value))
	if _, err := unix.Write(p.fd, p.event[:]); err != nil {
		return fmt.Errorf("failed to write input event: %w", err)
	}
	return nil
}

// Close destroys the virtual keyboard
func (p *uinputPrimitive) Close() error {
	return errors.Join(unix.IoctlSetInt(p.fd, uiDevDestroy, 0), unix.Close(p.fd))
}
