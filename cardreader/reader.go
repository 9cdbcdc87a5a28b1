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
	"errors"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/internal/frame"
	"github.com/ZaparooProject/go-maibridge/internal/transport"
	"github.com/ZaparooProject/go-maibridge/keyboard"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// KeyTapper presses and releases a key. keyboard.Sink implements it.
type KeyTapper interface {
	Tap(ctx context.Context, code keyboard.KeyCode, hold time.Duration) error
}

// Metrics counts reader activity
type Metrics struct {
	Polls         int64
	PollTimeouts  int64
	PollErrors    int64
	CardsDetected int64
	LastCardID    string
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (m Metrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("polls", m.Polls)
	enc.AddInt64("poll_timeouts", m.PollTimeouts)
	enc.AddInt64("poll_errors", m.PollErrors)
	enc.AddInt64("cards_detected", m.CardsDetected)
	enc.AddString("last_card_id", m.LastCardID)
	return nil
}

// Reader polls a card reader directly and reports FeliCa cards to the game
type Reader struct {
	codec    *frame.Codec
	req      *frame.Packet
	res      *frame.Packet
	cards    CardSink
	keys     KeyTapper
	logger   *zap.Logger
	lastCard atomic.Value
	settings settings

	state         atomic.Int32
	polls         atomic.Int64
	pollTimeouts  atomic.Int64
	pollErrors    atomic.Int64
	cardsDetected atomic.Int64
	radioOn       bool
}

// NewReader creates a local-mode reader on port
func NewReader(port maibridge.Transport, cards CardSink, keys KeyTapper, opts ...Option) *Reader {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	r := &Reader{
		codec:    frame.NewCodec(port, frame.WithReadTimeout(s.readTimeout)),
		req:      frame.NewPacket(frame.CardRequest),
		res:      frame.NewPacket(frame.CardResponse),
		cards:    cards,
		keys:     keys,
		logger:   s.logger.With(zap.String("port", port.Name())),
		settings: s,
	}
	r.lastCard.Store("")
	return r
}

// Name identifies the pipeline in logs
func (*Reader) Name() string {
	return "cardreader"
}

// State returns the current link state
func (r *Reader) State() State {
	return State(r.state.Load())
}

func (r *Reader) setState(s State) {
	r.state.Store(int32(s))
}

// Metrics returns a snapshot of the reader counters
func (r *Reader) Metrics() Metrics {
	return Metrics{
		Polls:         r.polls.Load(),
		PollTimeouts:  r.pollTimeouts.Load(),
		PollErrors:    r.pollErrors.Load(),
		CardsDetected: r.cardsDetected.Load(),
		LastCardID:    r.lastCard.Load().(string),
	}
}

// Report returns the reader counters for the stop log
func (r *Reader) Report() []zap.Field {
	return []zap.Field{zap.Object("metrics", r.Metrics()), zap.Object("codec", r.codec.Stats())}
}

// Init resets the reader, logs its versions and switches the radio on.
// Timed out commands are repeated; any other failure is returned.
func (r *Reader) Init(ctx context.Context) error {
	r.logger.Info("initializing card reader")

	r.setState(StateResetting)
	for i := 0; i < 2; i++ {
		if err := r.initCommand(ctx, CmdReset, argNone); err != nil {
			return err
		}
	}

	r.setState(StateIdentifying)
	if err := r.initCommand(ctx, CmdGetFirmware, argNone); err != nil {
		return err
	}
	r.logger.Info("firmware version", zap.String("version", versionText(r.res.Data())))
	if err := r.initCommand(ctx, CmdGetHardware, argNone); err != nil {
		return err
	}
	r.logger.Info("hardware version", zap.String("version", versionText(r.res.Data())))

	return r.enterReady(ctx)
}

// enterReady switches the radio on the first time the link becomes ready
func (r *Reader) enterReady(ctx context.Context) error {
	if !r.radioOn {
		if err := r.initCommand(ctx, CmdRadioOn, argRadioOn); err != nil {
			return err
		}
		r.radioOn = true
	}
	r.setState(StateReady)
	r.logger.Info("card reader ready")
	return nil
}

func (r *Reader) initCommand(ctx context.Context, cmd byte, data []byte) error {
	_, err := transport.WithRetry(ctx, transport.RetryConfig{
		Description: CommandName(cmd),
		Port:        r.codec.Name(),
		MaxRetries:  r.settings.initRetries,
		RetryDelay:  r.settings.retryDelay,
		OnRetry: func(attempt int) error {
			r.logger.Warn("retrying card reader command",
				zap.String("cmd", CommandName(cmd)), zap.Int("attempt", attempt))
			return nil
		},
	}, func() (struct{}, bool, error) {
		err := r.command(ctx, cmd, data)
		if err == nil {
			return struct{}{}, false, nil
		}
		if ctx.Err() == nil && maibridge.IsRetryable(err) {
			return struct{}{}, true, nil
		}
		return struct{}{}, false, err
	})
	return err
}

// command sends one request and reads its response into r.res
func (r *Reader) command(ctx context.Context, cmd byte, data []byte) error {
	if err := r.send(cmd, data); err != nil {
		return err
	}
	return r.codec.ReadPacket(ctx, r.res)
}

func (r *Reader) send(cmd byte, data []byte) error {
	r.req.SetDest(r.settings.dest)
	r.req.SetSeq(r.codec.NextSequence())
	r.req.SetCmd(cmd)
	if err := r.req.SetData(data); err != nil {
		return err
	}
	return r.codec.WritePacket(r.req)
}

// PollOnce sends one poll and returns the card id if a card answered
func (r *Reader) PollOnce(ctx context.Context) (string, bool, error) {
	r.polls.Add(1)
	r.setState(StatePollSent)
	if err := r.send(CmdPoll, argNone); err != nil {
		r.setState(StateReady)
		return "", false, err
	}

	r.setState(StateAwaitingResponse)
	err := r.codec.ReadPacket(ctx, r.res)
	r.setState(StateReady)
	if err != nil {
		return "", false, err
	}
	id, ok := ExtractCardID(r.res.Data())
	return id, ok, nil
}

// Run initializes the reader if needed and polls until ctx is cancelled.
// Poll failures are logged and never end the loop.
func (r *Reader) Run(ctx context.Context) error {
	if r.State() == StateUninitialized {
		if err := r.Init(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	defer r.shutdown()

	ticker := time.NewTicker(r.settings.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		id, ok, err := r.PollOnce(ctx)
		switch {
		case err != nil:
			r.pollFailed(ctx, err)
		case ok:
			r.cardDetected(ctx, id)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Reader) pollFailed(ctx context.Context, err error) {
	switch {
	case ctx.Err() != nil:
	case maibridge.IsTimeout(err):
		r.pollTimeouts.Add(1)
		r.logger.Debug("poll timed out")
	default:
		r.pollErrors.Add(1)
		r.logger.Warn("poll failed", zap.Error(err))
	}
}

func (r *Reader) cardDetected(ctx context.Context, id string) {
	r.cardsDetected.Add(1)
	r.lastCard.Store(id)
	r.logger.Info("card detected", zap.String("card_id", id))

	if err := r.cards.WriteCardID(id); err != nil {
		r.logger.Error("failed to write card id", zap.Error(err))
	}
	if err := r.keys.Tap(ctx, r.settings.cardKey, r.settings.hold); err != nil {
		r.logger.Error("failed to press card key", zap.Error(err))
	}
}

// shutdown switches the radio off, best effort
func (r *Reader) shutdown() {
	r.setState(StateShuttingDown)
	if !r.radioOn {
		return
	}
	if err := r.send(CmdRadioOff, argNone); err != nil && !errors.Is(err, maibridge.ErrTransportClosed) {
		r.logger.Debug("failed to switch radio off", zap.Error(err))
	}
	r.radioOn = false
}
