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

package maibridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "timeout", err: ErrTransportTimeout, want: true},
		{name: "read", err: ErrTransportRead, want: true},
		{name: "write", err: ErrTransportWrite, want: true},
		{name: "checksum error type", err: &ChecksumError{Expected: 1, Actual: 2}, want: true},
		{name: "protocol violation", err: ErrProtocolViolation, want: true},
		{name: "wrapped timeout", err: fmt.Errorf("poll: %w", ErrTransportTimeout), want: true},
		{name: "bad status", err: ErrBadStatus, want: false},
		{name: "closed", err: ErrTransportClosed, want: false},
		{name: "unknown", err: errors.New("boom"), want: false},
		{
			name: "permanent transport error",
			err:  NewTransportError("open", "COM1", errors.New("no such port"), ErrorTypePermanent),
			want: false,
		},
		{
			name: "transient transport error",
			err:  NewTransportError("read", "COM1", ErrTransportRead, ErrorTypeTransient),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypePermanent},
		{name: "timeout", err: ErrTransportTimeout, want: ErrorTypeTimeout},
		{name: "timeout error", err: NewTimeoutError("read", "COM24"), want: ErrorTypeTimeout},
		{name: "checksum", err: &ChecksumError{}, want: ErrorTypeCorrupted},
		{name: "protocol violation", err: ErrProtocolViolation, want: ErrorTypeCorrupted},
		{name: "read", err: ErrTransportRead, want: ErrorTypeTransient},
		{name: "write", err: fmt.Errorf("send: %w", ErrTransportWrite), want: ErrorTypeTransient},
		{name: "other", err: ErrInvalidParameter, want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()

	withPort := &TransportError{Err: errors.New("connection failed"), Op: "read", Port: "COM6"}
	assert.Contains(t, withPort.Error(), "read")
	assert.Contains(t, withPort.Error(), "COM6")
	assert.Contains(t, withPort.Error(), "connection failed")

	withoutPort := &TransportError{Err: errors.New("device busy"), Op: "write"}
	assert.Equal(t, "write: device busy", withoutPort.Error())
}

func TestNewTimeoutError(t *testing.T) {
	t.Parallel()
	te := NewTimeoutError("read", "COM9")

	assert.Equal(t, "read", te.Op)
	assert.Equal(t, "COM9", te.Port)
	assert.Equal(t, ErrorTypeTimeout, te.Type)
	assert.True(t, te.Retryable)
	require.ErrorIs(t, te, ErrTransportTimeout)
	assert.True(t, IsTimeout(te))
	assert.False(t, IsChecksumError(te))
}

func TestChecksumError(t *testing.T) {
	t.Parallel()
	var err error = &ChecksumError{Expected: 0x07, Actual: 0x08}

	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.True(t, IsChecksumError(fmt.Errorf("read frame: %w", err)))
	assert.False(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "0x07")
	assert.Contains(t, err.Error(), "0x08")
}

func TestErrorTypeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
	assert.Equal(t, "corrupted", ErrorTypeCorrupted.String())
	assert.Equal(t, "ErrorType(42)", ErrorType(42).String())
}
