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

// Package transport provides retry helpers for init-phase device commands and
// a backoff for steady-state read loops
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-maibridge"
)

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry     func(attempt int) error
	Description string
	Port        string
	MaxRetries  int
	RetryDelay  time.Duration
}

// WithRetry runs operation until it succeeds, fails permanently, runs out of
// retries or ctx is cancelled. Exhausted retries are reported as a timeout.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}

		if err := Sleep(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}

	return zero, maibridge.NewTransportError(config.Description, config.Port,
		fmt.Errorf("%w after %d attempts", maibridge.ErrTransportTimeout, config.MaxRetries+1),
		maibridge.ErrorTypeTimeout)
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Default bounds for a read loop backoff
const (
	DefaultBackoffMin = 10 * time.Millisecond
	DefaultBackoffMax = time.Second
)

// Backoff spaces out attempts after consecutive failures, doubling the pause
// from min up to max. It is owned by one loop and not safe for concurrent use.
type Backoff struct {
	min      time.Duration
	max      time.Duration
	next     time.Duration
	failures int
}

// NewBackoff creates a backoff with the given bounds
func NewBackoff(minDelay, maxDelay time.Duration) *Backoff {
	return &Backoff{min: minDelay, max: maxDelay, next: minDelay}
}

// Fail records a failure. It returns the pause before the next attempt and
// whether this failure should be logged: the first one and then every power
// of two, so a dead port does not flood the log.
func (b *Backoff) Fail() (time.Duration, bool) {
	b.failures++
	d := b.next
	b.next = min(2*b.next, b.max)
	return d, b.failures&(b.failures-1) == 0
}

// Failures returns the length of the current failure streak
func (b *Backoff) Failures() int {
	return b.failures
}

// Reset ends the failure streak and returns its length
func (b *Backoff) Reset() int {
	n := b.failures
	b.failures = 0
	b.next = b.min
	return n
}
