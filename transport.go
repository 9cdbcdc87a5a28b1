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
	"io"
	"time"
)

// Transport is a duplex byte stream to one serial peripheral.
// The uart package implements it on top of a physical port; tests use
// the scripted mock in internal/testing.
type Transport interface {
	io.Reader
	io.Writer

	// SetReadTimeout bounds every subsequent Read. Zero makes Read return
	// immediately with whatever is buffered.
	SetReadTimeout(timeout time.Duration) error

	// Flush blocks until written bytes have left the host
	Flush() error

	// ResetInputBuffer discards bytes received but not yet read
	ResetInputBuffer() error

	// Close closes the transport connection
	Close() error

	// Name returns the port name used in logs and errors
	Name() string
}

// Cloner is implemented by transports that can hand out a second handle to
// the same port, so one goroutine can write while another reads.
type Cloner interface {
	Clone() (Transport, error)
}
