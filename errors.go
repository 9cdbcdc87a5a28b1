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
)

// Transport level errors
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportClosed  = errors.New("transport closed")
)

// Frame and protocol errors
var (
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrDataTooLarge      = errors.New("data too large for frame")
	ErrBadStatus         = errors.New("device reported bad status")
)

// ErrInvalidParameter is returned for out of range arguments and configuration.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrorType classifies how a pipeline should react to an error
type ErrorType int

const (
	// ErrorTypePermanent errors abort the current phase
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors are port hiccups worth retrying
	ErrorTypeTransient
	// ErrorTypeTimeout means no data arrived within the read window
	ErrorTypeTimeout
	// ErrorTypeCorrupted means a frame was received but could not be trusted
	ErrorTypeCorrupted
)

// String returns a short name for logs
func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeCorrupted:
		return "corrupted"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError wraps an error with the operation and port it happened on
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new transport error. Timeout, transient and
// corrupted errors are marked retryable.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Err:       err,
		Op:        op,
		Port:      port,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a timeout error for the given operation
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// ChecksumError reports a frame whose trailing checksum disagrees with its contents.
type ChecksumError struct {
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrChecksumMismatch) hold for any ChecksumError
func (*ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// IsRetryable reports whether the operation that produced err may be attempted again
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrProtocolViolation):
		return true
	default:
		return false
	}
}

// GetErrorType classifies err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrChecksumMismatch), errors.Is(err, ErrProtocolViolation):
		return ErrorTypeCorrupted
	case errors.Is(err, ErrTransportRead), errors.Is(err, ErrTransportWrite):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// IsTimeout reports whether err is a read timeout
func IsTimeout(err error) bool {
	return err != nil && GetErrorType(err) == ErrorTypeTimeout
}

// IsChecksumError reports whether err is a frame checksum failure
func IsChecksumError(err error) bool {
	return errors.Is(err, ErrChecksumMismatch)
}
