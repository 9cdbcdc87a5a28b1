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

package frame

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-maibridge"
	"go.uber.org/zap/zapcore"
)

// DefaultReadTimeout bounds a single ReadPacket call
const DefaultReadTimeout = time.Second

// errResync is returned internally when a raw sync byte shows up mid-frame
var errResync = errors.New("sync byte inside frame")

// Stats counts codec activity for diagnostics
type Stats struct {
	FramesRead     uint64
	FramesWritten  uint64
	ChecksumErrors uint64
	Resyncs        uint64
	DiscardedBytes uint64
}

// Codec reads and writes framed packets over a transport. A codec belongs to
// exactly one pipeline and is not safe for concurrent use, except for Stats.
type Codec struct {
	transport maibridge.Transport
	reader    *bufio.Reader
	scratch   []byte
	timeout   time.Duration
	seq       byte

	framesRead     atomic.Uint64
	framesWritten  atomic.Uint64
	checksumErrors atomic.Uint64
	resyncs        atomic.Uint64
	discarded      atomic.Uint64
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("frames_read", s.FramesRead)
	enc.AddUint64("frames_written", s.FramesWritten)
	enc.AddUint64("checksum_errors", s.ChecksumErrors)
	enc.AddUint64("resyncs", s.Resyncs)
	enc.AddUint64("discarded_bytes", s.DiscardedBytes)
	return nil
}

// CodecOption configures a Codec
type CodecOption func(*Codec)

// WithReadTimeout bounds each ReadPacket call. Zero means a single read
// attempt: the call fails unless a whole frame is already available.
func WithReadTimeout(timeout time.Duration) CodecOption {
	return func(c *Codec) {
		c.timeout = timeout
	}
}

// NewCodec creates a codec over transport
func NewCodec(transport maibridge.Transport, opts ...CodecOption) *Codec {
	c := &Codec{
		transport: transport,
		reader:    bufio.NewReaderSize(transport, 512),
		scratch:   make([]byte, 0, 2*maxRawSize+4),
		timeout:   DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the name of the underlying port
func (c *Codec) Name() string {
	return c.transport.Name()
}

// NextSequence returns the sequence number for the next request and advances
// the counter, wrapping from 31 to 0.
func (c *Codec) NextSequence() byte {
	seq := c.seq
	c.seq = (c.seq + 1) % SequenceModulus
	return seq
}

// Stats returns a snapshot of the codec counters
func (c *Codec) Stats() Stats {
	return Stats{
		FramesRead:     c.framesRead.Load(),
		FramesWritten:  c.framesWritten.Load(),
		ChecksumErrors: c.checksumErrors.Load(),
		Resyncs:        c.resyncs.Load(),
		DiscardedBytes: c.discarded.Load(),
	}
}

// Discard drops buffered input both here and in the transport
func (c *Codec) Discard() error {
	c.reader.Reset(c.transport)
	if err := c.transport.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	return nil
}

// WritePacket encodes p and writes it in one call, then flushes the transport.
func (c *Codec) WritePacket(p *Packet) error {
	c.scratch = AppendFrame(c.scratch[:0], p)
	if _, err := c.transport.Write(c.scratch); err != nil {
		return maibridge.NewTransportError("write frame", c.Name(),
			fmt.Errorf("%w: %w", maibridge.ErrTransportWrite, err), maibridge.ErrorTypeTransient)
	}
	if err := c.transport.Flush(); err != nil {
		return maibridge.NewTransportError("flush", c.Name(),
			fmt.Errorf("%w: %w", maibridge.ErrTransportWrite, err), maibridge.ErrorTypeTransient)
	}
	c.framesWritten.Add(1)
	return nil
}

// ReadPacket reads the next frame into p, skipping anything before a sync
// byte. A sync byte in the middle of a frame restarts parsing there.
//
// The returned error is a timeout, a ChecksumError, a protocol violation
// (size field smaller than the header) or a read failure. None of them leave
// the codec in a bad state; the next call resumes scanning.
func (c *Codec) ReadPacket(ctx context.Context, p *Packet) error {
	deadline := time.Now().Add(c.timeout)

	for {
		b, err := c.readRaw(ctx, deadline)
		if err != nil {
			return err
		}
		if b == Sync {
			break
		}
		c.discarded.Add(1)
	}

	for {
		err := c.readBody(ctx, deadline, p)
		if errors.Is(err, errResync) {
			c.resyncs.Add(1)
			continue
		}
		if err != nil {
			return err
		}
		c.framesRead.Add(1)
		return nil
	}
}

func (c *Codec) readBody(ctx context.Context, deadline time.Time, p *Packet) error {
	l := p.layout
	p.buf = p.buf[:0]

	for i := 0; i <= l.Size; i++ {
		b, err := c.readLogical(ctx, deadline)
		if err != nil {
			return err
		}
		p.buf = append(p.buf, b)
	}

	raw := int(p.buf[l.Size])
	if raw < l.minRawSize() {
		return maibridge.NewTransportError("read frame", c.Name(),
			fmt.Errorf("%w: size %d below %s header", maibridge.ErrProtocolViolation, raw, l.Name),
			maibridge.ErrorTypeCorrupted)
	}

	for total := l.Size + raw; len(p.buf) < total; {
		b, err := c.readLogical(ctx, deadline)
		if err != nil {
			return err
		}
		p.buf = append(p.buf, b)
	}

	got, err := c.readLogical(ctx, deadline)
	if err != nil {
		return err
	}
	if want := CalculateChecksum(p.buf); got != want {
		c.checksumErrors.Add(1)
		return maibridge.NewTransportError("read frame", c.Name(),
			&maibridge.ChecksumError{Expected: want, Actual: got}, maibridge.ErrorTypeCorrupted)
	}
	return nil
}

// readLogical reads one unescaped byte
func (c *Codec) readLogical(ctx context.Context, deadline time.Time) (byte, error) {
	b, err := c.readRaw(ctx, deadline)
	if err != nil {
		return 0, err
	}
	switch b {
	case Sync:
		return 0, errResync
	case Mark:
		b, err = c.readRaw(ctx, deadline)
		if err != nil {
			return 0, err
		}
		if b == Sync {
			return 0, errResync
		}
		return Unescape(b), nil
	default:
		return b, nil
	}
}

func (c *Codec) readRaw(ctx context.Context, deadline time.Time) (byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		b, err := c.reader.ReadByte()
		if err == nil {
			return b, nil
		}
		if !maibridge.IsTimeout(err) {
			return 0, maibridge.NewTransportError("read frame", c.Name(),
				fmt.Errorf("%w: %w", maibridge.ErrTransportRead, err), maibridge.ErrorTypeTransient)
		}
		if !time.Now().Before(deadline) {
			return 0, maibridge.NewTimeoutError("read frame", c.Name())
		}
	}
}
