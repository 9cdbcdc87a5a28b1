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
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/internal/transport"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Players
const (
	Player1 = 0
	Player2 = 1
	Players = 2
)

// ControlQueueSize bounds the control frames waiting for the reader worker
const ControlQueueSize = 10

// FiNALE frame layout
const (
	reportStart  = '('
	reportEnd    = ')'
	reportLength = 14
)

// replyLength is the controller's answer to a forwarded sensitivity frame
const replyLength = 6

// sourceOffsets is where each player's area bytes start in a FiNALE report
var sourceOffsets = [Players]int{1, 7}

// Metrics counts bridge activity
type Metrics struct {
	Reports     uint64
	Forwarded   uint64
	Controls    uint64
	Dropped     uint64
	WriteErrors uint64
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (m Metrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("reports", m.Reports)
	enc.AddUint64("forwarded", m.Forwarded)
	enc.AddUint64("controls", m.Controls)
	enc.AddUint64("dropped", m.Dropped)
	enc.AddUint64("write_errors", m.WriteErrors)
	return nil
}

type player struct {
	port   maibridge.Transport // read by the emulator worker
	out    maibridge.Transport // written by the reader worker
	active atomic.Bool
}

// Bridge connects one FiNALE controller to two DX touch ports. It is run as
// three workers: ReaderWorker and one EmulatorWorker per player.
type Bridge struct {
	reader      maibridge.Transport
	logger      *zap.Logger
	controls    chan Control
	players     [Players]*player
	reports     atomic.Uint64
	forwarded   atomic.Uint64
	controlsIn  atomic.Uint64
	dropped     atomic.Uint64
	writeErrors atomic.Uint64
	forwardSens bool
}

// Option configures a Bridge
type Option func(*Bridge)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithForwardSensitivity also passes sensitivity frames from the game on to
// the FiNALE controller
func WithForwardSensitivity(enabled bool) Option {
	return func(b *Bridge) {
		b.forwardSens = enabled
	}
}

// NewBridge creates a bridge. The game-side ports are cloned when the
// transport supports it so the reader worker writes through its own handle.
// Both players start inactive until the game sends {STAT}.
func NewBridge(reader, p1, p2 maibridge.Transport, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		reader:   reader,
		logger:   zap.NewNop(),
		controls: make(chan Control, ControlQueueSize),
	}
	for _, opt := range opts {
		opt(b)
	}

	for i, port := range []maibridge.Transport{p1, p2} {
		out := port
		if c, ok := port.(maibridge.Cloner); ok {
			clone, err := c.Clone()
			if err != nil {
				b.closeClones()
				return nil, fmt.Errorf("failed to clone %s: %w", port.Name(), err)
			}
			out = clone
		}
		b.players[i] = &player{port: port, out: out}
	}
	return b, nil
}

func (b *Bridge) closeClones() {
	for _, p := range b.players {
		if p != nil && p.out != p.port {
			_ = p.out.Close()
		}
	}
}

// Close releases the cloned handles. The ports passed to NewBridge stay
// owned by the caller.
func (b *Bridge) Close() error {
	var errs []error
	for _, p := range b.players {
		if p.out != p.port {
			errs = append(errs, p.out.Close())
		}
	}
	return errors.Join(errs...)
}

// Active reports whether reports are forwarded to player
func (b *Bridge) Active(player int) bool {
	return b.players[player].active.Load()
}

// Metrics returns a snapshot of the bridge counters
func (b *Bridge) Metrics() Metrics {
	return Metrics{
		Reports:     b.reports.Load(),
		Forwarded:   b.forwarded.Load(),
		Controls:    b.controlsIn.Load(),
		Dropped:     b.dropped.Load(),
		WriteErrors: b.writeErrors.Load(),
	}
}

// ReaderWorker returns the worker that owns the FiNALE port
func (b *Bridge) ReaderWorker() *ReaderWorker {
	return &ReaderWorker{bridge: b}
}

// EmulatorWorker returns the worker that reads control frames from player's
// game-side port
func (b *Bridge) EmulatorWorker(player int) *EmulatorWorker {
	return &EmulatorWorker{bridge: b, player: player}
}

// ReaderWorker reads FiNALE reports and writes remapped reports to the
// active players. Queued control frames are applied before every read.
type ReaderWorker struct {
	bridge *Bridge
}

// Name identifies the worker in logs
func (*ReaderWorker) Name() string {
	return "touch-reader"
}

// Report returns the bridge counters for the stop log
func (w *ReaderWorker) Report() []zap.Field {
	return []zap.Field{
		zap.Object("metrics", w.bridge.Metrics()),
		zap.Bool("p1_active", w.bridge.Active(Player1)),
		zap.Bool("p2_active", w.bridge.Active(Player2)),
	}
}

// Run starts the controller and forwards reports until ctx is cancelled.
// {HALT} is written to the controller on every exit path.
func (w *ReaderWorker) Run(ctx context.Context) error {
	b := w.bridge
	logger := b.logger.With(zap.String("port", b.reader.Name()))

	if err := b.writeReader(Halt); err != nil {
		return fmt.Errorf("touch halt: %w", err)
	}
	if err := b.writeReader(Stat); err != nil {
		return fmt.Errorf("touch stat: %w", err)
	}
	defer func() {
		if err := b.writeReader(Halt); err != nil {
			logger.Error("failed to halt touch controller", zap.Error(err))
		}
	}()
	logger.Info("touch controller started")

	asm := NewAssembler(reportStart, reportEnd, replyLength, reportLength)
	frames := newFrameReader(b.reader, asm)
	backoff := transport.NewBackoff(transport.DefaultBackoffMin, transport.DefaultBackoffMax)
	var report Report

	for {
		b.drainControls(logger)

		f, err := frames.next(ctx)
		b.dropped.Store(asm.Dropped())
		switch {
		case err == nil:
			backoff.Reset()
		case ctx.Err() != nil:
			return nil
		case maibridge.IsTimeout(err):
			continue
		case !maibridge.IsRetryable(err):
			return fmt.Errorf("touch read: %w", err)
		default:
			if !readFailed(ctx, logger, backoff, "touch read failed", err) {
				return nil
			}
			continue
		}

		if len(f) == replyLength {
			logger.Debug("touch controller reply", zap.ByteString("frame", f))
			continue
		}
		b.reports.Add(1)

		for i, p := range b.players {
			if !p.active.Load() {
				continue
			}
			var src [SourceBytes]byte
			copy(src[:], f[sourceOffsets[i]:])
			Remap(src, &report)
			if err := b.writePlayer(p, report[:]); err != nil {
				// the game stops reading when it exits; it sends {STAT} again on restart
				p.active.Store(false)
				logger.Warn("touch write failed, player deactivated",
					zap.Int("player", i+1), zap.Error(err))
				continue
			}
			b.forwarded.Add(1)
		}
	}
}

// drainControls applies every queued control frame without blocking
func (b *Bridge) drainControls(logger *zap.Logger) {
	for {
		select {
		case c := <-b.controls:
			b.apply(c, logger)
		default:
			return
		}
	}
}

func (b *Bridge) apply(c Control, logger *zap.Logger) {
	p := b.players[c.Player]
	logger.Debug("touch control",
		zap.Int("player", c.Player+1), zap.Stringer("op", c.Op), zap.Binary("frame", c.Raw[:]))

	switch c.Op {
	case OpReset, OpHalt:
		p.active.Store(false)
	case OpStat:
		p.active.Store(true)
	case OpSensitivity, OpRatio:
		if err := b.writePlayer(p, c.Ack()); err != nil {
			logger.Warn("failed to acknowledge touch control",
				zap.Int("player", c.Player+1), zap.Stringer("op", c.Op), zap.Error(err))
		}
		if c.Op == OpSensitivity && b.forwardSens {
			if err := b.writeReader(c.Raw[:]); err != nil {
				logger.Warn("failed to forward sensitivity", zap.Error(err))
			}
		}
	}
}

func (b *Bridge) writePlayer(p *player, data []byte) error {
	if err := writeFlush(p.out, data); err != nil {
		b.writeErrors.Add(1)
		return err
	}
	return nil
}

func (b *Bridge) writeReader(data []byte) error {
	if err := writeFlush(b.reader, data); err != nil {
		b.writeErrors.Add(1)
		return err
	}
	return nil
}

// readFailed logs a read failure at a decaying rate and pauses before the
// next read. It returns false when ctx ends during the pause.
func readFailed(ctx context.Context, logger *zap.Logger, backoff *transport.Backoff, msg string, err error) bool {
	d, log := backoff.Fail()
	if log {
		logger.Warn(msg, zap.Error(err), zap.Int("consecutive", backoff.Failures()))
	}
	return transport.Sleep(ctx, d) == nil
}

func writeFlush(t maibridge.Transport, data []byte) error {
	if _, err := t.Write(data); err != nil {
		return maibridge.NewTransportError("write", t.Name(),
			fmt.Errorf("%w: %w", maibridge.ErrTransportWrite, err), maibridge.ErrorTypeTransient)
	}
	return t.Flush()
}

// EmulatorWorker reads control frames from one game-side port and queues them
// for the reader worker. A full queue blocks the worker rather than dropping
// frames.
type EmulatorWorker struct {
	bridge *Bridge
	player int
}

// Name identifies the worker in logs
func (w *EmulatorWorker) Name() string {
	return fmt.Sprintf("touch-p%d", w.player+1)
}

// Run reads control frames until ctx is cancelled
func (w *EmulatorWorker) Run(ctx context.Context) error {
	b := w.bridge
	port := b.players[w.player].port
	logger := b.logger.With(zap.String("port", port.Name()), zap.Int("player", w.player+1))
	frames := newFrameReader(port, NewAssembler(ControlStart, ControlEnd, ControlLength))
	backoff := transport.NewBackoff(transport.DefaultBackoffMin, transport.DefaultBackoffMax)

	for {
		f, err := frames.next(ctx)
		switch {
		case err == nil:
			backoff.Reset()
		case ctx.Err() != nil:
			return nil
		case maibridge.IsTimeout(err):
			continue
		case !maibridge.IsRetryable(err):
			return fmt.Errorf("touch control read: %w", err)
		default:
			if !readFailed(ctx, logger, backoff, "touch control read failed", err) {
				return nil
			}
			continue
		}

		c, err := DecodeControl(w.player, f)
		if err != nil {
			logger.Warn("bad touch control frame", zap.Error(err))
			continue
		}
		if !c.Known() {
			logger.Debug("ignoring touch control", zap.Stringer("op", c.Op))
			continue
		}
		b.controlsIn.Add(1)

		select {
		case b.controls <- c:
		case <-ctx.Done():
			return nil
		}
	}
}
