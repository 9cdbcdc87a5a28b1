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
	"sync/atomic"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/internal/frame"
	"github.com/ZaparooProject/go-maibridge/internal/transport"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProxyMetrics counts relayed frames
type ProxyMetrics struct {
	Requests       int64
	Responses      int64
	Rewritten      int64
	DeviceTimeouts int64
	Errors         int64
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (m ProxyMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("requests", m.Requests)
	enc.AddInt64("responses", m.Responses)
	enc.AddInt64("rewritten", m.Rewritten)
	enc.AddInt64("device_timeouts", m.DeviceTimeouts)
	enc.AddInt64("errors", m.Errors)
	return nil
}

// Proxy relays the game's card reader requests to the cabinet reader and
// the responses back, passing responses through the rewriters on the way.
// The game drives reset and identification itself, so the link starts ready.
type Proxy struct {
	game      *frame.Codec
	device    *frame.Codec
	req       *frame.Packet
	res       *frame.Packet
	logger    *zap.Logger
	rewriters []ResponseRewriter

	state          atomic.Int32
	requests       atomic.Int64
	responses      atomic.Int64
	rewritten      atomic.Int64
	deviceTimeouts atomic.Int64
	failures       atomic.Int64
}

// NewProxy creates a proxy between the game-facing port and the reader port
func NewProxy(game, device maibridge.Transport, opts ...Option) *Proxy {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	logger := s.logger.With(zap.String("game_port", game.Name()), zap.String("reader_port", device.Name()))
	return &Proxy{
		game:      frame.NewCodec(game, frame.WithReadTimeout(s.gameTimeout)),
		device:    frame.NewCodec(device, frame.WithReadTimeout(s.readTimeout)),
		req:       frame.NewPacket(frame.CardRequest),
		res:       frame.NewPacket(frame.CardResponse),
		logger:    logger,
		rewriters: s.rewriters,
	}
}

// Name identifies the pipeline in logs
func (*Proxy) Name() string {
	return "cardreader-proxy"
}

// State returns the current link state
func (p *Proxy) State() State {
	return State(p.state.Load())
}

// Metrics returns a snapshot of the proxy counters
func (p *Proxy) Metrics() ProxyMetrics {
	return ProxyMetrics{
		Requests:       p.requests.Load(),
		Responses:      p.responses.Load(),
		Rewritten:      p.rewritten.Load(),
		DeviceTimeouts: p.deviceTimeouts.Load(),
		Errors:         p.failures.Load(),
	}
}

// Report returns the proxy counters for the stop log
func (p *Proxy) Report() []zap.Field {
	return []zap.Field{
		zap.Object("metrics", p.Metrics()),
		zap.Object("game_codec", p.game.Stats()),
		zap.Object("reader_codec", p.device.Stats()),
	}
}

// Run relays frames until ctx is cancelled. Timeouts and corrupt frames on
// either side drop the current exchange and the loop carries on.
func (p *Proxy) Run(ctx context.Context) error {
	p.state.Store(int32(StateReady))
	defer p.state.Store(int32(StateShuttingDown))
	p.logger.Info("card reader proxy started", zap.Int("rewriters", len(p.rewriters)))

	backoff := transport.NewBackoff(transport.DefaultBackoffMin, transport.DefaultBackoffMax)
	for ctx.Err() == nil {
		err := p.relayOnce(ctx)
		if err == nil {
			backoff.Reset()
			continue
		}
		if ctx.Err() != nil {
			break
		}
		p.failures.Add(1)
		d, log := backoff.Fail()
		if log {
			p.logger.Warn("card reader relay failed", zap.Error(err), zap.Int("consecutive", backoff.Failures()))
		}
		if transport.Sleep(ctx, d) != nil {
			break
		}
	}
	return nil
}

// relayOnce handles one request/response exchange. A game side timeout is
// the idle case and is not an error.
func (p *Proxy) relayOnce(ctx context.Context) error {
	if err := p.game.ReadPacket(ctx, p.req); err != nil {
		if maibridge.IsTimeout(err) {
			return nil
		}
		return err
	}
	p.requests.Add(1)
	p.logger.Debug("game request", zap.Stringer("frame", p.req))

	p.state.Store(int32(StatePollSent))
	defer p.state.Store(int32(StateReady))
	if err := p.device.WritePacket(p.req); err != nil {
		return err
	}

	p.state.Store(int32(StateAwaitingResponse))
	if err := p.device.ReadPacket(ctx, p.res); err != nil {
		if maibridge.IsTimeout(err) {
			p.deviceTimeouts.Add(1)
			p.logger.Debug("reader did not answer", zap.String("cmd", CommandName(p.req.Cmd())))
			return nil
		}
		return err
	}

	p.ApplyRewriters(p.res)
	if err := p.game.WritePacket(p.res); err != nil {
		return err
	}
	p.responses.Add(1)
	return nil
}

// ApplyRewriters runs every configured rewriter over res
func (p *Proxy) ApplyRewriters(res *frame.Packet) {
	for _, rw := range p.rewriters {
		if rw.Rewrite(res) {
			p.rewritten.Add(1)
			p.logger.Debug("response rewritten", zap.String("rewriter", rw.Name()))
		}
	}
}
