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

package frame_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/internal/frame"
	mocks "github.com/ZaparooProject/go-maibridge/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, wire ...[]byte) (*frame.Codec, *mocks.MockTransport) {
	t.Helper()
	m := mocks.NewMockTransport(t.Name())
	m.Enqueue(wire...)
	return frame.NewCodec(m, frame.WithReadTimeout(50*time.Millisecond)), m
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	payloads := [][]byte{
		nil,
		{0x00},
		{frame.Sync, frame.Mark, 0xFF, 0x00, 0xDF, 0xCF},
	}
	all := make([]byte, 200)
	for i := range all {
		all[i] = byte(i + 0xA0)
	}
	payloads = append(payloads, all)

	for _, dest := range []byte{0x00, 0x01, frame.Sync, frame.Mark} {
		for _, cmd := range []byte{0x42, frame.Sync, frame.Mark} {
			for seq := byte(0); seq < frame.SequenceModulus; seq += 7 {
				for _, payload := range payloads {
					out := frame.NewPacket(frame.CardRequest)
					out.SetDest(dest)
					out.SetSeq(seq)
					out.SetCmd(cmd)
					require.NoError(t, out.SetData(payload))

					writer, m := newCodec(t)
					require.NoError(t, writer.WritePacket(out))

					reader, _ := newCodec(t, m.Written())
					in := frame.NewPacket(frame.CardRequest)
					require.NoError(t, reader.ReadPacket(context.Background(), in))

					assert.Equal(t, dest, in.Dest())
					assert.Equal(t, seq, in.Seq())
					assert.Equal(t, cmd, in.Cmd())
					assert.Equal(t, len(payload), len(in.Data()))
					assert.Equal(t, out.Bytes(), in.Bytes())
				}
			}
		}
	}
}

func TestCodecReadJVSResponse(t *testing.T) {
	t.Parallel()

	codec, _ := newCodec(t, []byte{0xE0, 0xFF, 0x04, 0x01, 0x01, 0x02, 0x07})
	p := frame.NewPacket(frame.JVSResponse)
	require.NoError(t, codec.ReadPacket(context.Background(), p))

	assert.Equal(t, byte(frame.Broadcast), p.Dest())
	assert.Equal(t, byte(0x01), p.Status())
	assert.Equal(t, []byte{0x01, 0x02}, p.Data())
}

func TestCodecChecksumError(t *testing.T) {
	t.Parallel()

	wire := mocks.BuildCardRequest(3, 0x42, []byte{0x01, 0x02, 0x03})
	// header is sync, size, dest, seq, cmd; corrupt the second payload byte
	wire[6] ^= 0x10

	codec, _ := newCodec(t, wire)
	err := codec.ReadPacket(context.Background(), frame.NewPacket(frame.CardRequest))
	require.Error(t, err)
	assert.True(t, maibridge.IsChecksumError(err))
	assert.Equal(t, maibridge.ErrorTypeCorrupted, maibridge.GetErrorType(err))
	assert.Equal(t, uint64(1), codec.Stats().ChecksumErrors)
}

// corruptionFrames are built so that no byte, checksum included, needs
// escaping and no single-bit flip below turns a byte into Sync or Mark.
func corruptionFrames() []struct {
	layout frame.Layout
	build  func(p *frame.Packet)
} {
	return []struct {
		layout frame.Layout
		build  func(p *frame.Packet)
	}{
		{layout: frame.CardRequest, build: func(p *frame.Packet) {
			p.SetSeq(3)
			p.SetCmd(0x42)
			_ = p.SetData([]byte{0x01, 0x02, 0x03})
		}},
		{layout: frame.CardResponse, build: func(p *frame.Packet) {
			p.SetSeq(3)
			p.SetCmd(0x42)
			_ = p.SetData([]byte{0x10, 0x20})
		}},
		{layout: frame.JVSRequest, build: func(p *frame.Packet) {
			p.SetDest(0x01)
			_ = p.SetData([]byte{0x20, 0x02, 0x02})
		}},
		{layout: frame.JVSResponse, build: func(p *frame.Packet) {
			p.SetStatus(0x01)
			_ = p.SetData([]byte{0x01, 0x00, 0x80, 0x40, 0x00, 0x00, 0x00})
		}},
	}
}

func TestCodecSingleByteCorruption(t *testing.T) {
	t.Parallel()

	for _, tt := range corruptionFrames() {
		t.Run(tt.layout.Name, func(t *testing.T) {
			t.Parallel()

			p := frame.NewPacket(tt.layout)
			tt.build(p)
			wire := frame.AppendFrame(nil, p)
			require.Len(t, wire, len(p.Bytes())+2)
			sizePos := 1 + tt.layout.Size

			// every byte between the sync byte and the checksum
			for pos := 1; pos < len(wire)-1; pos++ {
				for _, flip := range []byte{0x01, 0x10} {
					corrupt := bytes.Clone(wire)
					corrupt[pos] ^= flip

					codec, _ := newCodec(t, corrupt)
					err := codec.ReadPacket(context.Background(), frame.NewPacket(tt.layout))
					require.Error(t, err, "pos %d flip 0x%02X", pos, flip)

					if pos == sizePos && corrupt[pos] > wire[pos] {
						// a larger size field waits for bytes that never arrive
						assert.True(t, maibridge.IsTimeout(err), "pos %d flip 0x%02X: %v", pos, flip, err)
						continue
					}
					assert.True(t, maibridge.IsChecksumError(err), "pos %d flip 0x%02X: %v", pos, flip, err)
				}
			}
		})
	}
}

func TestCodecRoundTripAllLayouts(t *testing.T) {
	t.Parallel()

	for _, tt := range corruptionFrames() {
		t.Run(tt.layout.Name, func(t *testing.T) {
			t.Parallel()

			out := frame.NewPacket(tt.layout)
			tt.build(out)
			writer, m := newCodec(t)
			require.NoError(t, writer.WritePacket(out))

			reader, _ := newCodec(t, m.Written())
			in := frame.NewPacket(tt.layout)
			require.NoError(t, reader.ReadPacket(context.Background(), in))
			assert.Equal(t, out.Bytes(), in.Bytes())
			assert.Equal(t, out.Status(), in.Status())
			assert.Equal(t, out.Data(), in.Data())
		})
	}
}

func TestCodecChecksumErrorThenNextFrame(t *testing.T) {
	t.Parallel()

	bad := mocks.BuildCardRequest(0, 0x42, []byte{0x00})
	bad[len(bad)-1]++
	good := mocks.BuildCardRequest(1, 0x42, []byte{0x00})

	codec, _ := newCodec(t, bad, good)
	p := frame.NewPacket(frame.CardRequest)
	require.True(t, maibridge.IsChecksumError(codec.ReadPacket(context.Background(), p)))
	require.NoError(t, codec.ReadPacket(context.Background(), p))
	assert.Equal(t, byte(1), p.Seq())
}

func TestCodecSkipsLeadingGarbage(t *testing.T) {
	t.Parallel()

	garbage := []byte{0x11, 0x22, frame.Mark, 0x33, 0xFF}
	codec, _ := newCodec(t, garbage, mocks.BuildCardRequest(5, 0x40, []byte{0x01, 0x03}))

	p := frame.NewPacket(frame.CardRequest)
	require.NoError(t, codec.ReadPacket(context.Background(), p))
	assert.Equal(t, byte(5), p.Seq())
	assert.Equal(t, byte(0x40), p.Cmd())
	assert.Equal(t, []byte{0x01, 0x03}, p.Data())
	assert.Equal(t, uint64(len(garbage)), codec.Stats().DiscardedBytes)
}

func TestCodecResyncOnSyncInsideFrame(t *testing.T) {
	t.Parallel()

	truncated := []byte{frame.Sync, 0x08, 0x00, 0x01}
	codec, _ := newCodec(t, truncated, mocks.BuildCardRequest(2, 0x42, []byte{0x00}))

	p := frame.NewPacket(frame.CardRequest)
	require.NoError(t, codec.ReadPacket(context.Background(), p))
	assert.Equal(t, byte(2), p.Seq())
	assert.Equal(t, uint64(1), codec.Stats().Resyncs)
}

func TestCodecFrameSplitAcrossReads(t *testing.T) {
	t.Parallel()

	codec, m := newCodec(t, mocks.BuildJVSResponse(0x01, []byte{0x01, frame.Sync, 0x40}))
	m.SetReadChunk(1)

	p := frame.NewPacket(frame.JVSResponse)
	require.NoError(t, codec.ReadPacket(context.Background(), p))
	assert.Equal(t, []byte{0x01, frame.Sync, 0x40}, p.Data())
}

func TestCodecProtocolViolation(t *testing.T) {
	t.Parallel()

	codec, _ := newCodec(t, []byte{frame.Sync, 0x02, 0x00, 0x00})
	err := codec.ReadPacket(context.Background(), frame.NewPacket(frame.CardRequest))
	require.ErrorIs(t, err, maibridge.ErrProtocolViolation)
	assert.True(t, maibridge.IsRetryable(err))
}

func TestCodecTimeout(t *testing.T) {
	t.Parallel()

	codec, _ := newCodec(t)
	start := time.Now()
	err := codec.ReadPacket(context.Background(), frame.NewPacket(frame.CardResponse))
	require.Error(t, err)
	assert.True(t, maibridge.IsTimeout(err))
	assert.False(t, maibridge.IsChecksumError(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCodecZeroTimeoutSingleAttempt(t *testing.T) {
	t.Parallel()

	m := mocks.NewMockTransport("zero")
	codec := frame.NewCodec(m, frame.WithReadTimeout(0))
	err := codec.ReadPacket(context.Background(), frame.NewPacket(frame.CardRequest))
	assert.True(t, maibridge.IsTimeout(err))
}

func TestCodecReadError(t *testing.T) {
	t.Parallel()

	codec, m := newCodec(t)
	m.SetReadError(maibridge.ErrTransportClosed)
	err := codec.ReadPacket(context.Background(), frame.NewPacket(frame.CardRequest))
	require.ErrorIs(t, err, maibridge.ErrTransportRead)
	require.ErrorIs(t, err, maibridge.ErrTransportClosed)
	assert.False(t, maibridge.IsTimeout(err))
}

func TestCodecContextCancelled(t *testing.T) {
	t.Parallel()

	codec, _ := newCodec(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := codec.ReadPacket(ctx, frame.NewPacket(frame.CardRequest))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCodecWritePacketSingleWrite(t *testing.T) {
	t.Parallel()

	codec, m := newCodec(t)
	p := frame.NewPacket(frame.JVSRequest)
	p.SetDest(frame.Broadcast)
	require.NoError(t, p.SetData([]byte{0xF0, 0xD9}))
	require.NoError(t, codec.WritePacket(p))

	require.Len(t, m.Writes(), 1)
	assert.Equal(t, []byte{0xE0, 0xFF, 0x03, 0xF0, 0xD9, 0xCB}, m.Writes()[0])
	assert.Equal(t, 1, m.Flushes())
	assert.Equal(t, uint64(1), codec.Stats().FramesWritten)
}

func TestCodecSequenceWraps(t *testing.T) {
	t.Parallel()

	codec, _ := newCodec(t)
	for i := 0; i < 3*frame.SequenceModulus; i++ {
		seq := codec.NextSequence()
		require.Less(t, seq, byte(frame.SequenceModulus))
		require.Equal(t, byte(i%frame.SequenceModulus), seq)
	}
}
