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

package keyboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyEvent struct {
	code    KeyCode
	pressed bool
}

type recordingPrimitive struct {
	err    error
	events []keyEvent
	mu     sync.Mutex
}

func (r *recordingPrimitive) SetKeyState(code KeyCode, pressed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, keyEvent{code: code, pressed: pressed})
	return nil
}

func (r *recordingPrimitive) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestSinkDeduplicatesKeyDown(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{}
	sink := NewSink(prim)

	require.NoError(t, sink.KeyDown(KeyW))
	require.NoError(t, sink.KeyDown(KeyW))
	assert.Equal(t, 1, prim.count())
	assert.True(t, sink.pressed[KeyW])
}

func TestSinkInterleavedUpDown(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{}
	sink := NewSink(prim)

	require.NoError(t, sink.KeyDown(KeyE))
	require.NoError(t, sink.KeyUp(KeyE))
	require.NoError(t, sink.KeyDown(KeyE))

	assert.Equal(t, []keyEvent{
		{code: KeyE, pressed: true},
		{code: KeyE, pressed: false},
		{code: KeyE, pressed: true},
	}, prim.events)
}

func TestSinkKeyUpWhenReleased(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{}
	sink := NewSink(prim)

	require.NoError(t, sink.KeyUp(KeyD))
	assert.Zero(t, prim.count())
}

func TestSinkReleaseAll(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{}
	sink := NewSink(prim)
	for _, k := range []KeyCode{KeyQ, KeyKP1, KeyEnter} {
		require.NoError(t, sink.KeyDown(k))
	}

	require.NoError(t, sink.ReleaseAll())
	for _, k := range []KeyCode{KeyQ, KeyKP1, KeyEnter} {
		assert.False(t, sink.pressed[k])
	}
	assert.Equal(t, 6, prim.count())

	require.NoError(t, sink.ReleaseAll())
	assert.Equal(t, 6, prim.count())
}

func TestSinkPrimitiveErrorKeepsState(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{err: errors.New("access denied")}
	sink := NewSink(prim)

	require.Error(t, sink.KeyDown(KeyA))
	assert.False(t, sink.pressed[KeyA])
}

func TestSinkTap(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{}
	sink := NewSink(prim)

	start := time.Now()
	require.NoError(t, sink.Tap(context.Background(), KeyEnter, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, 2, prim.count())
	assert.False(t, sink.pressed[KeyEnter])
}

func TestSinkTapReleasesOnCancel(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{}
	sink := NewSink(prim)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	require.NoError(t, sink.Tap(ctx, KeyEnter, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, sink.pressed[KeyEnter])
}

func TestSinkConcurrentUse(t *testing.T) {
	t.Parallel()

	prim := &recordingPrimitive{}
	sink := NewSink(prim)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = sink.KeyDown(KeyX)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, prim.count())
}

func TestLogPrimitiveNilLogger(t *testing.T) {
	t.Parallel()
	assert.NoError(t, LogPrimitive{}.SetKeyState(KeyW, true))
}
