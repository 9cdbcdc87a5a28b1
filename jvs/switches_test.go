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
	"sync"
	"testing"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/keyboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPrimitive struct {
	err   error
	state map[keyboard.KeyCode]bool
	calls int
	mu    sync.Mutex
}

func newRecordingPrimitive() *recordingPrimitive {
	return &recordingPrimitive{state: make(map[keyboard.KeyCode]bool)}
}

func (r *recordingPrimitive) SetKeyState(code keyboard.KeyCode, pressed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls++
	r.state[code] = pressed
	return nil
}

func (r *recordingPrimitive) pressed(code keyboard.KeyCode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state[code]
}

// idle has every active-low button released and service and test off
var idle = []byte{0x01, 0x00, 0x3F, 0xC0, 0x3F, 0xC0}

func TestServiceAndTestScenario(t *testing.T) {
	t.Parallel()

	prim := newRecordingPrimitive()
	sink := keyboard.NewSink(prim)
	require.NoError(t, ApplySwitches([]byte{0x00, 0x80, 0x40, 0x00, 0x00, 0x00}, DefaultKeyMap(), sink))

	assert.True(t, prim.pressed(keyboard.Key2), "service")
	assert.True(t, prim.pressed(keyboard.KeyT), "test")
}

func TestDecodeSwitchesIdle(t *testing.T) {
	t.Parallel()

	sw, err := DecodeSwitches(idle)
	require.NoError(t, err)
	assert.False(t, sw.Service)
	assert.False(t, sw.Test)
	for p := 0; p < Players; p++ {
		for i := 0; i < ButtonsPerPlayer; i++ {
			assert.False(t, sw.Buttons[p][i], "player %d button %d", p+1, i+1)
		}
	}
}

func TestDecodeSwitchesButtons(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		report []byte
		player int
		button int
	}{
		{name: "p1 button 1", report: []byte{0x01, 0x00, 0x1F, 0xC0, 0x3F, 0xC0}, player: 0, button: 0},
		{name: "p1 button 6", report: []byte{0x01, 0x00, 0x3E, 0xC0, 0x3F, 0xC0}, player: 0, button: 5},
		{name: "p1 button 7", report: []byte{0x01, 0x00, 0x3F, 0x40, 0x3F, 0xC0}, player: 0, button: 6},
		{name: "p2 button 3", report: []byte{0x01, 0x00, 0x3F, 0xC0, 0x37, 0xC0}, player: 1, button: 2},
		{name: "p2 button 8", report: []byte{0x01, 0x00, 0x3F, 0xC0, 0x3F, 0x80}, player: 1, button: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sw, err := DecodeSwitches(tt.report)
			require.NoError(t, err)
			for p := 0; p < Players; p++ {
				for i := 0; i < ButtonsPerPlayer; i++ {
					want := p == tt.player && i == tt.button
					assert.Equal(t, want, sw.Buttons[p][i], "player %d button %d", p+1, i+1)
				}
			}
		})
	}
}

func TestDecodeSwitchesShortReport(t *testing.T) {
	t.Parallel()
	_, err := DecodeSwitches([]byte{0x01, 0x00})
	require.ErrorIs(t, err, maibridge.ErrProtocolViolation)
}

func TestApplySwitchesMapsKeys(t *testing.T) {
	t.Parallel()

	prim := newRecordingPrimitive()
	sink := keyboard.NewSink(prim)
	km := DefaultKeyMap()

	require.NoError(t, ApplySwitches([]byte{0x01, 0x00, 0x1F, 0xC0, 0x3F, 0x80}, km, sink))
	assert.True(t, prim.pressed(keyboard.KeyW))
	assert.True(t, prim.pressed(keyboard.KeyKP7))
	assert.False(t, prim.pressed(keyboard.KeyE))
	assert.Equal(t, 2, prim.calls)

	require.NoError(t, ApplySwitches(idle, km, sink))
	assert.False(t, prim.pressed(keyboard.KeyW))
	assert.False(t, prim.pressed(keyboard.KeyKP7))
	assert.Equal(t, 4, prim.calls)
}

func TestApplySwitchesSkipsUnmapped(t *testing.T) {
	t.Parallel()

	prim := newRecordingPrimitive()
	sink := keyboard.NewSink(prim)
	var km KeyMap
	km.Players[0][0] = keyboard.KeyW

	require.NoError(t, ApplySwitches([]byte{0x01, 0x80, 0x40, 0x00, 0x00, 0x00}, km, sink))
	assert.Equal(t, 1, prim.calls)
	assert.True(t, prim.pressed(keyboard.KeyW))
}

func TestApplySwitchesCollectsErrors(t *testing.T) {
	t.Parallel()

	prim := newRecordingPrimitive()
	prim.err = errors.New("denied")
	sink := keyboard.NewSink(prim)
	require.Error(t, ApplySwitches([]byte{0x01, 0x80, 0x40, 0x00, 0x00, 0x00}, DefaultKeyMap(), sink))
}

func TestKeyMapKeys(t *testing.T) {
	t.Parallel()
	assert.Len(t, DefaultKeyMap().Keys(), 18)

	var km KeyMap
	km.Test = keyboard.KeyT
	assert.Equal(t, []keyboard.KeyCode{keyboard.KeyT}, km.Keys())
}
