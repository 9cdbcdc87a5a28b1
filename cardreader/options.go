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

package cardreader

import (
	"time"

	"github.com/ZaparooProject/go-maibridge/keyboard"
	"go.uber.org/zap"
)

// Defaults for the local reader
const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultHoldDuration  = 2 * time.Second
	DefaultReadTimeout   = time.Second
	DefaultInitRetries   = 2
	DefaultRetryDelay    = 100 * time.Millisecond
	DefaultGameTimeout   = 100 * time.Millisecond
	DefaultReaderAddress = 0x00
)

type settings struct {
	logger       *zap.Logger
	rewriters    []ResponseRewriter
	pollInterval time.Duration
	hold         time.Duration
	readTimeout  time.Duration
	gameTimeout  time.Duration
	retryDelay   time.Duration
	initRetries  int
	cardKey      keyboard.KeyCode
	dest         byte
}

func defaultSettings() settings {
	return settings{
		logger:       zap.NewNop(),
		rewriters:    []ResponseRewriter{NewFelicaPMmRewrite()},
		pollInterval: DefaultPollInterval,
		hold:         DefaultHoldDuration,
		readTimeout:  DefaultReadTimeout,
		gameTimeout:  DefaultGameTimeout,
		retryDelay:   DefaultRetryDelay,
		initRetries:  DefaultInitRetries,
		cardKey:      keyboard.KeyEnter,
		dest:         DefaultReaderAddress,
	}
}

// Option configures a Reader or a Proxy
type Option func(*settings)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithPollInterval sets the cadence of local polling
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		s.pollInterval = d
	}
}

// WithCardKey sets the key pressed when a card is detected
func WithCardKey(code keyboard.KeyCode) Option {
	return func(s *settings) {
		s.cardKey = code
	}
}

// WithHoldDuration sets how long the card key is held
func WithHoldDuration(d time.Duration) Option {
	return func(s *settings) {
		s.hold = d
	}
}

// WithReadTimeout bounds a response read from the reader device
func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.readTimeout = d
	}
}

// WithGameTimeout bounds a request read from the game in proxy mode
func WithGameTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.gameTimeout = d
	}
}

// WithInitRetries sets how often a timed out init command is repeated
func WithInitRetries(retries int, delay time.Duration) Option {
	return func(s *settings) {
		s.initRetries = retries
		s.retryDelay = delay
	}
}

// WithRewriters replaces the proxy response rewriters. Pass none to relay
// responses unchanged.
func WithRewriters(rewriters ...ResponseRewriter) Option {
	return func(s *settings) {
		s.rewriters = rewriters
	}
}

// WithAddress sets the destination address of local requests
func WithAddress(dest byte) Option {
	return func(s *settings) {
		s.dest = dest
	}
}
