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

// Package uart provides a serial port implementation of maibridge.Transport
// built on go.bug.st/serial.
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-maibridge"
	"go.bug.st/serial"
)

// DefaultReadTimeout is used when no WithReadTimeout option is given
const DefaultReadTimeout = 100 * time.Millisecond

// port is the subset of serial.Port used by Transport
type port interface {
	io.ReadWriteCloser
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// sharedPort reference counts a port handed out to several Transports
type sharedPort struct {
	port port
	mu   sync.Mutex
	refs int
}

func (s *sharedPort) acquire() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

func (s *sharedPort) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.refs > 0 {
		return nil
	}
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Transport is one handle to an open serial port
type Transport struct {
	shared   *sharedPort
	portName string
	baudRate int
	mu       sync.Mutex
	closed   bool
}

type options struct {
	readTimeout time.Duration
	clearOnOpen bool
	dataBits    int
	parity      serial.Parity
	stopBits    serial.StopBits
}

// Option configures how New opens a port
type Option func(*options)

// WithReadTimeout bounds each Read. Zero makes Read non-blocking.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.readTimeout = timeout
	}
}

// WithClearOnOpen discards whatever the device sent before the port was opened
func WithClearOnOpen() Option {
	return func(o *options) {
		o.clearOnOpen = true
	}
}

// New opens portName at baudRate with 8N1 framing
func New(portName string, baudRate int, opts ...Option) (*Transport, error) {
	if baudRate <= 0 {
		return nil, fmt.Errorf("%w: baud rate %d", maibridge.ErrInvalidParameter, baudRate)
	}
	o := options{
		readTimeout: DefaultReadTimeout,
		dataBits:    8,
		parity:      serial.NoParity,
		stopBits:    serial.OneStopBit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	p, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: o.dataBits,
		Parity:   o.parity,
		StopBits: o.stopBits,
	})
	if err != nil {
		return nil, maibridge.NewTransportError("open", portName, err, maibridge.ErrorTypePermanent)
	}

	t := newTransport(p, portName, baudRate)
	if err := t.SetReadTimeout(o.readTimeout); err != nil {
		_ = t.Close()
		return nil, err
	}
	if o.clearOnOpen {
		if err := t.ResetInputBuffer(); err != nil {
			_ = t.Close()
			return nil, err
		}
	}
	return t, nil
}

func newTransport(p port, portName string, baudRate int) *Transport {
	return &Transport{
		shared:   &sharedPort{port: p, refs: 1},
		portName: portName,
		baudRate: baudRate,
	}
}

// Read reads available bytes. A read that returns nothing within the read
// timeout yields a timeout TransportError instead of (0, nil).
func (t *Transport) Read(buf []byte) (int, error) {
	if t.isClosed() {
		return 0, maibridge.ErrTransportClosed
	}
	n, err := t.shared.port.Read(buf)
	if err != nil {
		return n, t.wrap("read", maibridge.ErrTransportRead, err)
	}
	if n == 0 && len(buf) > 0 {
		return 0, maibridge.NewTimeoutError("read", t.portName)
	}
	return n, nil
}

// Write writes buf to the port
func (t *Transport) Write(buf []byte) (int, error) {
	if t.isClosed() {
		return 0, maibridge.ErrTransportClosed
	}
	n, err := t.shared.port.Write(buf)
	if err != nil {
		return n, t.wrap("write", maibridge.ErrTransportWrite, err)
	}
	if n < len(buf) {
		return n, t.wrap("write", maibridge.ErrTransportWrite, io.ErrShortWrite)
	}
	return n, nil
}

// SetReadTimeout sets the read timeout of the port. Clones share the
// underlying port, so the timeout applies to all of them.
func (t *Transport) SetReadTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("%w: negative read timeout", maibridge.ErrInvalidParameter)
	}
	if err := t.shared.port.SetReadTimeout(timeout); err != nil {
		return maibridge.NewTransportError("set timeout", t.portName, err, maibridge.ErrorTypePermanent)
	}
	return nil
}

// Flush waits until all written bytes have been transmitted
func (t *Transport) Flush() error {
	if err := t.shared.port.Drain(); err != nil {
		return t.wrap("drain", maibridge.ErrTransportWrite, err)
	}
	return nil
}

// ResetInputBuffer discards received but unread bytes
func (t *Transport) ResetInputBuffer() error {
	if err := t.shared.port.ResetInputBuffer(); err != nil {
		return t.wrap("reset input", maibridge.ErrTransportRead, err)
	}
	return nil
}

// Clone returns a second handle to the same port. The port is closed when
// the last handle is closed.
func (t *Transport) Clone() (maibridge.Transport, error) {
	if t.isClosed() {
		return nil, maibridge.ErrTransportClosed
	}
	t.shared.acquire()
	return &Transport{
		shared:   t.shared,
		portName: t.portName,
		baudRate: t.baudRate,
	}, nil
}

// Close releases this handle. Closing twice is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.shared.release()
}

// Name returns the port name
func (t *Transport) Name() string {
	return t.portName
}

// BaudRate returns the configured baud rate
func (t *Transport) BaudRate() int {
	return t.baudRate
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) wrap(op string, sentinel, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return maibridge.NewTransportError(op, t.portName,
			fmt.Errorf("%w: %w", maibridge.ErrTransportClosed, err), maibridge.ErrorTypePermanent)
	}
	return maibridge.NewTransportError(op, t.portName,
		fmt.Errorf("%w: %w", sentinel, err), maibridge.ErrorTypeTransient)
}
