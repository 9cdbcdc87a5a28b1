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
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/internal/frame"
	mocks "github.com/ZaparooProject/go-maibridge/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runProxy(t *testing.T, proxy *Proxy) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- proxy.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func newProxyFixture(t *testing.T, opts ...Option) (*Proxy, *mocks.MockTransport, *mocks.VirtualReader) {
	t.Helper()
	game := mocks.NewMockTransport("COM2")
	port := mocks.NewMockTransport("COM1")
	device := mocks.NewVirtualReader()
	port.SetResponder(device.Respond)

	opts = append([]Option{WithGameTimeout(10 * time.Millisecond), WithReadTimeout(20 * time.Millisecond)}, opts...)
	return NewProxy(game, port, opts...), game, device
}

func TestProxyRewritesPollResponse(t *testing.T) {
	t.Parallel()
	proxy, game, device := newProxyFixture(t)
	device.Insert(testIDm, testPMm)
	game.Enqueue(mocks.BuildCardRequest(7, CmdPoll, []byte{0x00}))

	runProxy(t, proxy)
	require.Eventually(t, func() bool { return len(game.Written()) > 0 }, 2*time.Second, 5*time.Millisecond)

	responses, err := mocks.DecodeFrames(game.Written(), frame.CardResponse)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	res := responses[0]
	assert.Equal(t, byte(7), res.Seq())
	assert.Equal(t, byte(CmdPoll), res.Cmd())
	require.Len(t, res.Data(), PollResponseLength)
	assert.Equal(t, testIDm, res.Data()[4:12])
	assert.Equal(t, DefaultPMm[:], res.Data()[12:20])
	assert.Equal(t, []byte{CmdPoll}, device.Commands())
	assert.Eventually(t, func() bool { return proxy.State() == StateReady }, time.Second, time.Millisecond)
}

func TestProxyWithoutRewriters(t *testing.T) {
	t.Parallel()
	proxy, game, device := newProxyFixture(t, WithRewriters())
	device.Insert(testIDm, testPMm)
	game.Enqueue(mocks.BuildCardRequest(1, CmdPoll, []byte{0x00}))

	runProxy(t, proxy)
	require.Eventually(t, func() bool { return len(game.Written()) > 0 }, 2*time.Second, 5*time.Millisecond)

	responses, err := mocks.DecodeFrames(game.Written(), frame.CardResponse)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, testPMm, responses[0].Data()[12:20])
	assert.Zero(t, proxy.Metrics().Rewritten)
}

func TestProxyForwardsRequestVerbatim(t *testing.T) {
	t.Parallel()
	proxy, game, device := newProxyFixture(t)
	request := mocks.BuildCardRequest(19, CmdGetFirmware, []byte{0x00})
	game.Enqueue(request)

	runProxy(t, proxy)
	require.Eventually(t, func() bool { return proxy.Metrics().Responses == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte{CmdGetFirmware}, device.Commands())

	responses, err := mocks.DecodeFrames(game.Written(), frame.CardResponse)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, byte(19), responses[0].Seq())
}

func TestProxyDeviceTimeoutContinues(t *testing.T) {
	t.Parallel()
	proxy, game, device := newProxyFixture(t)
	device.SetSilent(true)
	game.Enqueue(mocks.BuildCardRequest(0, CmdPoll, []byte{0x00}))

	runProxy(t, proxy)
	require.Eventually(t, func() bool { return proxy.Metrics().DeviceTimeouts == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, game.Written())

	device.SetSilent(false)
	game.Enqueue(mocks.BuildCardRequest(1, CmdPoll, []byte{0x00}))
	require.Eventually(t, func() bool { return proxy.Metrics().Responses == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestProxyCorruptRequestIsDropped(t *testing.T) {
	t.Parallel()
	proxy, game, device := newProxyFixture(t)
	bad := mocks.BuildCardRequest(0, CmdPoll, []byte{0x00})
	bad[len(bad)-1]++
	game.Enqueue(bad, mocks.BuildCardRequest(1, CmdPoll, []byte{0x00}))

	runProxy(t, proxy)
	require.Eventually(t, func() bool { return proxy.Metrics().Responses == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), proxy.Metrics().Errors)
	assert.Equal(t, []byte{CmdPoll}, device.Commands())
}

func TestProxyBacksOffOnGameReadErrors(t *testing.T) {
	t.Parallel()
	proxy, game, _ := newProxyFixture(t)
	game.SetReadError(maibridge.ErrTransportRead)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, proxy.Run(ctx))

	errs := proxy.Metrics().Errors
	assert.GreaterOrEqual(t, errs, int64(3))
	assert.LessOrEqual(t, errs, int64(8))
	assert.LessOrEqual(t, game.Reads(), 8)
}

func TestFelicaPMmRewrite(t *testing.T) {
	t.Parallel()
	rw := NewFelicaPMmRewrite()

	poll := frame.NewPacket(frame.CardResponse)
	poll.SetCmd(CmdPoll)
	require.NoError(t, poll.SetData(mocks.FelicaPollData(testIDm, testPMm)))
	assert.True(t, rw.Rewrite(poll))
	assert.Equal(t, DefaultPMm[:], poll.Data()[12:20])
	assert.Equal(t, testIDm, poll.Data()[4:12])
	assert.Equal(t, byte(25), poll.RawSize())

	empty := frame.NewPacket(frame.CardResponse)
	empty.SetCmd(CmdPoll)
	require.NoError(t, empty.SetData(mocks.EmptyPollData()))
	assert.False(t, rw.Rewrite(empty))

	other := frame.NewPacket(frame.CardResponse)
	other.SetCmd(CmdGetFirmware)
	require.NoError(t, other.SetData(mocks.FelicaPollData(testIDm, testPMm)))
	assert.False(t, rw.Rewrite(other))
	assert.Equal(t, testPMm, other.Data()[12:20])
	assert.Equal(t, "felica pmm", rw.Name())
}

func TestProxyReport(t *testing.T) {
	t.Parallel()
	proxy, game, _ := newProxyFixture(t)
	game.Enqueue(mocks.BuildCardRequest(0, CmdPoll, []byte{0x00}))

	runProxy(t, proxy)
	require.Eventually(t, func() bool { return proxy.Metrics().Responses == 1 }, 2*time.Second, 5*time.Millisecond)

	fields := mocks.LogFields(proxy.Report())
	metrics, ok := fields["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), metrics["requests"])
	assert.Equal(t, int64(1), metrics["responses"])
	gameCodec, ok := fields["game_codec"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint64(1), gameCodec["frames_read"])
	readerCodec, ok := fields["reader_codec"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint64(1), readerCodec["frames_written"])
}
