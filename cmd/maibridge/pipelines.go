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

package main

import (
	"io"

	"github.com/ZaparooProject/go-maibridge/cardreader"
	"github.com/ZaparooProject/go-maibridge/config"
	"github.com/ZaparooProject/go-maibridge/jvs"
	"github.com/ZaparooProject/go-maibridge/keyboard"
	"github.com/ZaparooProject/go-maibridge/supervisor"
	"github.com/ZaparooProject/go-maibridge/touch"
	"github.com/ZaparooProject/go-maibridge/transport/uart"
	"go.uber.org/zap"
)

// resources collects everything that has to be closed on exit, closed in
// reverse order
type resources struct {
	closers []io.Closer
}

func (r *resources) add(c io.Closer) {
	r.closers = append(r.closers, c)
}

func (r *resources) close(logger *zap.Logger) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
	r.closers = nil
}

func openPort(p config.PortConfig, opts ...uart.Option) (*uart.Transport, error) {
	opts = append([]uart.Option{uart.WithReadTimeout(p.ReadTimeout)}, opts...)
	return uart.New(p.Name, p.Baud, opts...)
}

// openPorts opens every port or none of them
func openPorts(ports []config.PortConfig, opts ...uart.Option) ([]*uart.Transport, error) {
	out := make([]*uart.Transport, 0, len(ports))
	for _, p := range ports {
		t, err := openPort(p, opts...)
		if err != nil {
			for _, o := range out {
				_ = o.Close()
			}
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func openTouch(cfg *config.Config, logger *zap.Logger, sup *supervisor.Supervisor, res *resources) {
	if cfg.Touch.Disabled {
		return
	}
	logger = logger.Named("touch")

	reader, err := openPort(cfg.Touch.Reader)
	if err != nil {
		logger.Error("touch disabled: cannot open controller port", zap.Error(err))
		return
	}
	game, err := openPorts([]config.PortConfig{cfg.Touch.P1, cfg.Touch.P2}, uart.WithClearOnOpen())
	if err != nil {
		_ = reader.Close()
		logger.Error("touch disabled: cannot open game ports", zap.Error(err))
		return
	}

	bridge, err := touch.NewBridge(reader, game[0], game[1],
		touch.WithLogger(logger),
		touch.WithForwardSensitivity(cfg.Touch.ForwardSensitivity))
	if err != nil {
		_ = reader.Close()
		_ = game[0].Close()
		_ = game[1].Close()
		logger.Error("touch disabled", zap.Error(err))
		return
	}
	res.add(reader)
	res.add(game[0])
	res.add(game[1])
	res.add(bridge)

	sup.Add(bridge.ReaderWorker())
	sup.Add(bridge.EmulatorWorker(touch.Player1))
	sup.Add(bridge.EmulatorWorker(touch.Player2))
}

func openJVS(cfg *config.Config, logger *zap.Logger, keys *keyboard.Sink, sup *supervisor.Supervisor,
	res *resources,
) {
	if cfg.JVS.Disabled {
		return
	}
	logger = logger.Named("jvs")

	km, err := cfg.KeyMap()
	if err != nil {
		logger.Error("jvs disabled: bad key map", zap.Error(err))
		return
	}
	port, err := openPort(cfg.JVS.Port, uart.WithClearOnOpen())
	if err != nil {
		logger.Error("jvs disabled: cannot open port", zap.Error(err))
		return
	}
	res.add(port)

	sup.Add(jvs.NewMaster(port, km, keys,
		jvs.WithLogger(logger),
		jvs.WithAddress(byte(cfg.JVS.Address)),
		jvs.WithSettleDelay(cfg.JVS.SettleDelay)))
}

func openCard(cfg *config.Config, logger *zap.Logger, keys *keyboard.Sink, sup *supervisor.Supervisor,
	res *resources,
) {
	if cfg.Card.Disabled {
		return
	}
	logger = logger.Named("card")

	opts := []cardreader.Option{cardreader.WithLogger(logger)}
	if !cfg.Card.RewritePMm {
		opts = append(opts, cardreader.WithRewriters())
	}

	device, err := openPort(cfg.Card.Reader, uart.WithClearOnOpen())
	if err != nil {
		logger.Error("card reader disabled: cannot open reader port", zap.Error(err))
		return
	}

	switch cfg.Card.Mode {
	case config.ModeProxy:
		game, err := openPort(cfg.Card.Game, uart.WithClearOnOpen())
		if err != nil {
			_ = device.Close()
			logger.Error("card reader disabled: cannot open game port", zap.Error(err))
			return
		}
		res.add(device)
		res.add(game)
		opts = append(opts, cardreader.WithGameTimeout(cfg.Card.RequestTimeout))
		sup.Add(cardreader.NewProxy(game, device, opts...))
	default:
		key, err := cfg.CardKey()
		if err != nil {
			_ = device.Close()
			logger.Error("card reader disabled: bad card key", zap.Error(err))
			return
		}
		res.add(device)
		opts = append(opts,
			cardreader.WithCardKey(key),
			cardreader.WithPollInterval(cfg.Card.PollInterval),
			cardreader.WithHoldDuration(cfg.Card.HoldDuration),
			cardreader.WithInitRetries(cfg.Card.InitRetries, cardreader.DefaultRetryDelay))
		sup.Add(cardreader.NewReader(device, cardreader.FileSink{Path: cfg.Card.CardIDFile}, keys, opts...))
	}
}
