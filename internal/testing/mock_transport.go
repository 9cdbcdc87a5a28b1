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

package testing

import (
	"sync"
	"time"

	"github.com/ZaparooProject/go-maibridge"
)

// MockTransport is a scripted maibridge.Transport. Reads drain a queue of
// enqueued bytes and fail with a timeout error once it is empty. Writes are
// recorded and may feed a responder that enqueues the reply.
type MockTransport struct {
	responder func(written []byte) []byte
	readErr   error
	writeErr  error
	name      string
	rx        []byte
	writes    [][]byte
	timeout   time.Duration
	readChunk int
	reads     int
	flushes   int
	resets    int
	mu        sync.Mutex
	closed    bool
}

// NewMockTransport creates an empty mock with a 1ms read timeout
func NewMockTransport(name string) *MockTransport {
	return &MockTransport{
		name:    name,
		timeout: time.Millisecond,
	}
}

// Enqueue appends bytes to be returned by Read
func (m *MockTransport) Enqueue(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.rx = append(m.rx, c...)
	}
}

// SetResponder installs fn, whose return value is enqueued after every write
func (m *MockTransport) SetResponder(fn func(written []byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// SetReadError makes every Read fail with err until cleared with nil
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes every Write fail with err until cleared with nil
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetReadChunk limits how many bytes one Read returns. Zero means no limit.
func (m *MockTransport) SetReadChunk(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readChunk = n
}

// Read implements io.Reader
func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	m.reads++
	if m.closed {
		m.mu.Unlock()
		return 0, maibridge.ErrTransportClosed
	}
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return 0, err
	}
	if len(m.rx) == 0 {
		timeout := m.timeout
		m.mu.Unlock()
		if timeout > 0 {
			time.Sleep(timeout)
		}
		return 0, maibridge.NewTimeoutError("read", m.name)
	}

	limit := len(p)
	if m.readChunk > 0 && m.readChunk < limit {
		limit = m.readChunk
	}
	n := copy(p[:limit], m.rx)
	m.rx = m.rx[n:]
	m.mu.Unlock()
	return n, nil
}

// Write implements io.Writer
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, maibridge.ErrTransportClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	written := append([]byte(nil), p...)
	m.writes = append(m.writes, written)
	if m.responder != nil {
		m.rx = append(m.rx, m.responder(written)...)
	}
	return len(p), nil
}

// SetReadTimeout implements maibridge.Transport
func (m *MockTransport) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Flush implements maibridge.Transport
func (m *MockTransport) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// ResetInputBuffer drops pending read bytes
func (m *MockTransport) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.rx = nil
	return nil
}

// Close implements maibridge.Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Name implements maibridge.Transport
func (m *MockTransport) Name() string {
	return m.name
}

// Clone returns the mock itself; clones share the queue and write log
func (m *MockTransport) Clone() (maibridge.Transport, error) {
	return m, nil
}

// Writes returns a copy of every recorded write
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Written returns all recorded writes concatenated
func (m *MockTransport) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return out
}

// Pending returns how many enqueued bytes have not been read yet
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx)
}

// Reads returns how often Read was called
func (m *MockTransport) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Flushes returns how often Flush was called
func (m *MockTransport) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

// IsClosed reports whether Close was called
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
