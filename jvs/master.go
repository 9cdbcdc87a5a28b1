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

package jvs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-maibridge"
	"github.com/ZaparooProject/go-maibridge/internal/frame"
	"github.com/ZaparooProject/go-maibridge/internal/transport"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Defaults
const (
	DefaultAddress      = 0x01
	DefaultSettleDelay  = time.Second
	DefaultReadTimeout  = 500 * time.Millisecond
	DefaultPollInterval = time.Millisecond
	MinSettleDelay      = 500 * time.Millisecond
)

// maxForeignFrames bounds how many replies to other nodes are skipped while
// waiting for our own
const maxForeignFrames = 8

// Metrics counts master activity
type Metrics struct {
	Polls      int64
	PollErrors int64
	KeyErrors  int64
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (m Metrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("polls", m.Polls)
	enc.AddInt64("poll_errors", m.PollErrors)
	enc.AddInt64("key_errors", m.KeyErrors)
	return nil
}

// Master owns the JVS port and one I/O board on it
type Master struct {
	keys         KeySetter
	codec        *frame.Codec
	req          *frame.Packet
	res          *frame.Packet
	logger       *zap.Logger
	identity     Identity
	keymap       KeyMap
	settle       time.Duration
	readTimeout  time.Duration
	pollInterval time.Duration
	identityMu   sync.Mutex
	state        atomic.Int32
	polls        atomic.Int64
	pollErrors   atomic.Int64
	keyErrors    atomic.Int64
	address      byte
}

// Option configures a Master
type Option func(*Master)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Master) {
		m.logger = logger
	}
}

// WithAddress sets the address assigned to the board, 1 to 31
func WithAddress(addr byte) Option {
	return func(m *Master) {
		m.address = addr
	}
}

// WithSettleDelay sets the wait after the bus reset
func WithSettleDelay(d time.Duration) Option {
	return func(m *Master) {
		m.settle = d
	}
}

// WithReadTimeout bounds the wait for one reply
func WithReadTimeout(d time.Duration) Option {
	return func(m *Master) {
		m.readTimeout = d
	}
}

// WithPollInterval sets the pause between switch reads
func WithPollInterval(d time.Duration) Option {
	return func(m *Master) {
		m.pollInterval = d
	}
}

// NewMaster creates a master on port that reports switches to keys
func NewMaster(port maibridge.Transport, keymap KeyMap, keys KeySetter, opts ...Option) *Master {
	m := &Master{
		keys:         keys,
		keymap:       keymap,
		logger:       zap.NewNop(),
		address:      DefaultAddress,
		settle:       DefaultSettleDelay,
		readTimeout:  DefaultReadTimeout,
		pollInterval: DefaultPollInterval,
		req:          frame.NewPacket(frame.JVSRequest),
		res:          frame.NewPacket(frame.JVSResponse),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.codec = frame.NewCodec(port, frame.WithReadTimeout(m.readTimeout))
	m.logger = m.logger.With(zap.String("port", port.Name()))
	return m
}

// Name identifies the pipeline in logs
func (*Master) Name() string {
	return "jvs"
}

// State returns the current master state
func (m *Master) State() State {
	return State(m.state.Load())
}

func (m *Master) setState(s State) {
	m.state.Store(int32(s))
	m.logger.Debug("jvs state", zap.Stringer("state", s))
}

// Identity returns what the board reported during Init
func (m *Master) Identity() Identity {
	m.identityMu.Lock()
	defer m.identityMu.Unlock()
	return m.identity
}

// Metrics returns a snapshot of the master counters
func (m *Master) Metrics() Metrics {
	return Metrics{
		Polls:      m.polls.Load(),
		PollErrors: m.pollErrors.Load(),
		KeyErrors:  m.keyErrors.Load(),
	}
}

// Report returns the board identity and the master counters for the stop log
func (m *Master) Report() []zap.Field {
	return []zap.Field{
		zap.String("board", m.Identity().ID),
		zap.Object("metrics", m.Metrics()),
		zap.Object("codec", m.codec.Stats()),
	}
}

// Init resets the bus, assigns the board address and identifies the board.
// Every step waits for its reply; the first failure is returned.
func (m *Master) Init(ctx context.Context) error {
	if m.address == 0 || m.address > 31 {
		return fmt.Errorf("%w: jvs address %d", maibridge.ErrInvalidParameter, m.address)
	}
	m.logger.Info("initializing jvs")

	m.setState(StateReset)
	if err := m.reset(ctx); err != nil {
		return fmt.Errorf("jvs reset: %w", err)
	}

	m.setState(StateAddressAssignment)
	if _, err := m.command(ctx, frame.Broadcast, []byte{CmdAssignAddr, m.address}); err != nil {
		return fmt.Errorf("jvs assign address: %w", err)
	}
	m.logger.Info("assigned jvs address", zap.Uint8("address", m.address))

	m.setState(StateIdentify)
	id, err := m.identify(ctx)
	if err != nil {
		return fmt.Errorf("jvs identify: %w", err)
	}
	m.identityMu.Lock()
	m.identity = id
	m.identityMu.Unlock()
	m.logger.Info("jvs board identified",
		zap.String("id", id.ID),
		zap.String("command_revision", bcdVersion(id.CommandRevision)),
		zap.String("jvs_version", bcdVersion(id.JVSVersion)),
		zap.String("comms_version", bcdVersion(id.CommsVersion)),
		zap.Binary("capabilities", id.Capabilities))

	m.setState(StateDigitalPollLoop)
	return nil
}

// reset broadcasts the reset command twice, then lets the bus settle
func (m *Master) reset(ctx context.Context) error {
	for i := 0; i < 2; i++ {
		if err := m.send(frame.Broadcast, []byte{CmdReset, CmdResetArg}); err != nil {
			return err
		}
	}
	if err := transport.Sleep(ctx, m.settle); err != nil {
		return err
	}
	return m.codec.Discard()
}

func (m *Master) identify(ctx context.Context) (Identity, error) {
	var id Identity

	data, err := m.command(ctx, m.address, []byte{CmdRequestID})
	if err != nil {
		return id, err
	}
	id.ID = idText(payload(data))

	for _, q := range []struct {
		dst *byte
		cmd byte
	}{
		{&id.CommandRevision, CmdCommandRevision},
		{&id.JVSVersion, CmdJVSVersion},
		{&id.CommsVersion, CmdCommsVersion},
	} {
		data, err := m.command(ctx, m.address, []byte{q.cmd})
		if err != nil {
			return id, err
		}
		if p := payload(data); len(p) > 0 {
			*q.dst = p[0]
		}
	}

	data, err = m.command(ctx, m.address, []byte{CmdCapabilities})
	if err != nil {
		return id, err
	}
	id.Capabilities = append([]byte(nil), payload(data)...)
	return id, nil
}

// payload strips the per-command report byte
func payload(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return data[1:]
}

func (m *Master) send(dest byte, data []byte) error {
	m.req.SetDest(dest)
	if err := m.req.SetData(data); err != nil {
		return err
	}
	return m.codec.WritePacket(m.req)
}

// command sends one request and returns the data of the reply addressed to
// the master. The slice is only valid until the next command.
func (m *Master) command(ctx context.Context, dest byte, data []byte) ([]byte, error) {
	if err := m.send(dest, data); err != nil {
		return nil, err
	}
	for i := 0; i < maxForeignFrames; i++ {
		if err := m.codec.ReadPacket(ctx, m.res); err != nil {
			return nil, err
		}
		if m.res.Dest() != frame.MasterAddress {
			continue
		}
		if status := m.res.Status(); status != StatusOK {
			return nil, fmt.Errorf("%w: 0x%02X", maibridge.ErrBadStatus, status)
		}
		return m.res.Data(), nil
	}
	return nil, fmt.Errorf("%w: no reply addressed to master", maibridge.ErrProtocolViolation)
}

// ReadSwitches issues one digital read and returns the switch report
func (m *Master) ReadSwitches(ctx context.Context) ([]byte, error) {
	m.polls.Add(1)
	return m.command(ctx, m.address, readDigitalArgs)
}

// Run initializes the board if needed, then polls switches until ctx is
// cancelled. Read errors are logged and polling continues. Mapped keys are
// released on return.
func (m *Master) Run(ctx context.Context) error {
	if m.State() == StateIdle {
		if err := m.Init(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	defer m.stop()

	backoff := transport.NewBackoff(transport.DefaultBackoffMin, transport.DefaultBackoffMax)
	for {
		if ctx.Err() != nil {
			return nil
		}

		pause := m.pollInterval
		report, err := m.ReadSwitches(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			m.pollErrors.Add(1)
			d, log := backoff.Fail()
			pause = max(pause, d)
			if log {
				m.logger.Warn("switch read failed", zap.Error(err), zap.Int("consecutive", backoff.Failures()))
			}
		default:
			if n := backoff.Reset(); n > 0 {
				m.logger.Info("switch reads recovered", zap.Int("failures", n))
			}
			if err := ApplySwitches(report, m.keymap, m.keys); err != nil {
				m.keyErrors.Add(1)
				m.logger.Error("failed to apply switches", zap.Error(err))
			}
		}

		if err := transport.Sleep(ctx, pause); err != nil {
			return nil
		}
	}
}

func (m *Master) stop() {
	m.setState(StateStopped)
	var errs []error
	for _, code := range m.keymap.Keys() {
		if err := m.keys.Set(code, false); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.logger.Error("failed to release jvs keys", zap.Error(err))
	}
}
