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

package touch

import (
	"bytes"
	"context"

	"github.com/ZaparooProject/go-maibridge"
)

// Assembler collects delimited fixed-length frames from a byte stream. It
// skips bytes until the start delimiter, then emits the frame once it reaches
// an accepted length and ends with the end delimiter. A frame that reaches
// the longest length without a valid end is dropped and the bytes after its
// first start delimiter are scanned again.
type Assembler struct {
	buf     []byte
	replay  []byte
	sizes   []int
	pos     int
	dropped uint64
	start   byte
	end     byte
}

// NewAssembler creates an assembler for frames delimited by start and end.
// sizes lists the accepted frame lengths, delimiters included.
func NewAssembler(start, end byte, sizes ...int) *Assembler {
	maxSize := 0
	for _, s := range sizes {
		maxSize = max(maxSize, s)
	}
	return &Assembler{
		buf:    make([]byte, 0, maxSize),
		replay: make([]byte, 0, maxSize),
		sizes:  sizes,
		start:  start,
		end:    end,
	}
}

// Feed adds one byte. When it completes a frame the frame is returned; the
// slice is only valid until the next call. Bytes held back by a resync are
// scanned before b.
func (a *Assembler) Feed(b byte) ([]byte, bool) {
	a.replay = append(a.replay, b)
	return a.Next()
}

// Next returns a frame that is already complete in the bytes held back by a
// resync, without consuming new input.
func (a *Assembler) Next() ([]byte, bool) {
	for a.pos < len(a.replay) {
		b := a.replay[a.pos]
		a.pos++
		if f, ok := a.step(b); ok {
			return f, true
		}
	}
	a.replay = a.replay[:0]
	a.pos = 0
	return nil, false
}

func (a *Assembler) step(b byte) ([]byte, bool) {
	if len(a.buf) == 0 && b != a.start {
		return nil, false
	}
	a.buf = append(a.buf, b)

	if b == a.end {
		for _, s := range a.sizes {
			if len(a.buf) == s {
				out := a.buf
				a.buf = a.buf[:0]
				return out, true
			}
		}
	}
	if len(a.buf) == cap(a.buf) {
		a.dropped++
		a.resync()
	}
	return nil, false
}

// resync queues the buffer tail from the next start delimiter for scanning
// ahead of the bytes not yet scanned
func (a *Assembler) resync() {
	idx := bytes.IndexByte(a.buf[1:], a.start)
	if idx < 0 {
		a.buf = a.buf[:0]
		return
	}
	tail := a.buf[idx+1:]
	rest := a.replay[a.pos:]
	replay := make([]byte, 0, len(tail)+len(rest))
	replay = append(append(replay, tail...), rest...)
	a.replay = replay
	a.pos = 0
	a.buf = a.buf[:0]
}

// Dropped counts frames discarded for a bad end delimiter
func (a *Assembler) Dropped() uint64 {
	return a.dropped
}

// frameReader pulls frames off a transport through an assembler. Bytes left
// over after a frame are kept for the next call.
type frameReader struct {
	port    maibridge.Transport
	asm     *Assembler
	chunk   []byte
	pending []byte
}

func newFrameReader(port maibridge.Transport, asm *Assembler) *frameReader {
	return &frameReader{
		port:  port,
		asm:   asm,
		chunk: make([]byte, 64),
	}
}

// next returns the next complete frame. A read that times out with no frame
// in progress returns the timeout error, so callers get a chance to do other
// work between reads.
func (r *frameReader) next(ctx context.Context) ([]byte, error) {
	for {
		if f, ok := r.asm.Next(); ok {
			return f, nil
		}
		for len(r.pending) > 0 {
			b := r.pending[0]
			r.pending = r.pending[1:]
			if f, ok := r.asm.Feed(b); ok {
				return f, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.port.Read(r.chunk)
		r.pending = r.chunk[:n]
		if err != nil && n == 0 {
			return nil, err
		}
	}
}
