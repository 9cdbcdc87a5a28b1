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
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Primitive sets the state of one key at the operating system level
type Primitive interface {
	SetKeyState(code KeyCode, pressed bool) error
}

// Sink tracks which keys are held and only forwards state changes to the
// primitive. It is shared by the JVS and card reader pipelines.
type Sink struct {
	primitive Primitive
	logger    *zap.Logger
	pressed   map[KeyCode]bool
	mu        sync.Mutex
}

// SinkOption configures a Sink
type SinkOption func(*Sink)

// WithLogger sets the logger used for key transitions
func WithLogger(logger *zap.Logger) SinkOption {
	return func(s *Sink) {
		s.logger = logger
	}
}

// NewSink creates a sink with every key released
func NewSink(primitive Primitive, opts ...SinkOption) *Sink {
	s := &Sink{
		primitive: primitive,
		logger:    zap.NewNop(),
		pressed:   make(map[KeyCode]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KeyDown presses code unless it is already held
func (s *Sink) KeyDown(code KeyCode) error {
	return s.Set(code, true)
}

// KeyUp releases code unless it is already released
func (s *Sink) KeyUp(code KeyCode) error {
	return s.Set(code, false)
}

// Set moves code to the requested state. Repeating the current state does
// not reach the primitive.
func (s *Sink) Set(code KeyCode, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pressed[code] == pressed {
		return nil
	}
	if err := s.primitive.SetKeyState(code, pressed); err != nil {
		return fmt.Errorf("failed to set key %s: %w", code, err)
	}
	if pressed {
		s.pressed[code] = true
	} else {
		delete(s.pressed, code)
	}
	s.logger.Debug("key state", zap.Stringer("key", code), zap.Bool("pressed", pressed))
	return nil
}

// Tap holds code for the given duration. The key is released even when ctx
// is cancelled during the hold.
func (s *Sink) Tap(ctx context.Context, code KeyCode, hold time.Duration) error {
	if err := s.KeyDown(code); err != nil {
		return err
	}

	timer := time.NewTimer(hold)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	return s.KeyUp(code)
}

// ReleaseAll releases every held key. It must run before the process exits
// so no key stays stuck in the game.
func (s *Sink) ReleaseAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for code := range s.pressed {
		if err := s.primitive.SetKeyState(code, false); err != nil {
			errs = append(errs, fmt.Errorf("failed to release key %s: %w", code, err))
			continue
		}
		delete(s.pressed, code)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.logger.Debug("released all keys")
	return nil
}

// LogPrimitive logs key transitions instead of sending them to the OS.
// It backs dry-run mode and platforms without key injection.
type LogPrimitive struct {
	Logger *zap.Logger
}

// SetKeyState implements Primitive
func (l LogPrimitive) SetKeyState(code KeyCode, pressed bool) error {
	if l.Logger != nil {
		l.Logger.Info("key", zap.Stringer("key", code), zap.Bool("pressed", pressed))
	}
	return nil
}
