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

package config

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-maibridge/jvs"
	"github.com/ZaparooProject/go-maibridge/keyboard"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the enabled sections and returns every problem found
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	port := func(section string, p PortConfig) {
		if p.Name == "" {
			add("%s: port name is empty", section)
		}
		if p.Baud <= 0 {
			add("%s: baud rate %d must be positive", section, p.Baud)
		}
		if p.ReadTimeout < 0 || p.ReadTimeout > MaxReadTimeout {
			add("%s: read timeout %s outside 0-%s", section, p.ReadTimeout, MaxReadTimeout)
		}
	}

	if !c.Touch.Disabled {
		port("touch.reader", c.Touch.Reader)
		port("touch.p1", c.Touch.P1)
		port("touch.p2", c.Touch.P2)
	}

	if !c.JVS.Disabled {
		port("jvs.port", c.JVS.Port)
		if c.JVS.Address < 1 || c.JVS.Address > 31 {
			add("jvs.address %d outside 1-31", c.JVS.Address)
		}
		if c.JVS.SettleDelay < jvs.MinSettleDelay {
			add("jvs.settle_delay %s below %s", c.JVS.SettleDelay, jvs.MinSettleDelay)
		}
	}

	if !c.Card.Disabled {
		port("card.reader", c.Card.Reader)
		switch c.Card.Mode {
		case ModeLocal:
			if c.Card.CardIDFile == "" {
				add("card.card_id_file is required in local mode")
			}
			if c.Card.PollInterval <= 0 {
				add("card.poll_interval must be positive")
			}
			if c.Card.InitRetries < 0 {
				add("card.init_retries %d must not be negative", c.Card.InitRetries)
			}
		case ModeProxy:
			port("card.game", c.Card.Game)
			if c.Card.RequestTimeout <= 0 || c.Card.RequestTimeout > MaxReadTimeout {
				add("card.request_timeout %s outside 0-%s", c.Card.RequestTimeout, MaxReadTimeout)
			}
		default:
			add("card.mode %q is not %q or %q", c.Card.Mode, ModeLocal, ModeProxy)
		}
	}

	if _, err := c.KeyMap(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	if _, err := keyboard.ParseKey(c.Keys.Card); err != nil {
		add("keys.card: %v", err)
	}
	return errors.Join(errs...)
}

// KeyMap resolves the key names into a JVS key map
func (c *Config) KeyMap() (jvs.KeyMap, error) {
	var km jvs.KeyMap
	var errs []error
	parse := func(field, name string) keyboard.KeyCode {
		code, err := keyboard.ParseKey(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("keys.%s: %w", field, err))
		}
		return code
	}

	km.Service = parse("service", c.Keys.Service)
	km.Test = parse("test", c.Keys.Test)
	for p, names := range [][]string{c.Keys.P1, c.Keys.P2} {
		if len(names) > jvs.ButtonsPerPlayer {
			errs = append(errs, fmt.Errorf("keys.p%d: %d keys, at most %d",
				p+1, len(names), jvs.ButtonsPerPlayer))
			continue
		}
		for i, name := range names {
			km.Players[p][i] = parse(fmt.Sprintf("p%d[%d]", p+1, i), name)
		}
	}
	return km, errors.Join(errs...)
}

// CardKey resolves the key pressed for a detected card
func (c *Config) CardKey() (keyboard.KeyCode, error) {
	return keyboard.ParseKey(c.Keys.Card)
}
