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

// Package config loads the bridge configuration from YAML
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file is looked up when no path is given
const DefaultPath = "./config.yaml"

// Card reader modes
const (
	ModeLocal = "local"
	ModeProxy = "proxy"
)

// MaxReadTimeout bounds every port read timeout. Pipelines only notice
// shutdown between reads.
const MaxReadTimeout = time.Second

// Config is the whole bridge configuration
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Keys  KeysConfig  `yaml:"keys"`
	Card  CardConfig  `yaml:"card"`
	Touch TouchConfig `yaml:"touch"`
	JVS   JVSConfig   `yaml:"jvs"`
}

// LogConfig selects the log level and encoding
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PortConfig is one serial port
type PortConfig struct {
	Name        string        `yaml:"name"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// TouchConfig configures the touch bridge
type TouchConfig struct {
	Reader             PortConfig `yaml:"reader"`
	P1                 PortConfig `yaml:"p1"`
	P2                 PortConfig `yaml:"p2"`
	Disabled           bool       `yaml:"disabled"`
	ForwardSensitivity bool       `yaml:"forward_sensitivity"`
}

// JVSConfig configures the JVS master
type JVSConfig struct {
	Port        PortConfig    `yaml:"port"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	Address     int           `yaml:"address"`
	Disabled    bool          `yaml:"disabled"`
}

// CardConfig configures the card reader pipeline
type CardConfig struct {
	Mode           string        `yaml:"mode"`
	CardIDFile     string        `yaml:"card_id_file"`
	Reader         PortConfig    `yaml:"reader"`
	Game           PortConfig    `yaml:"game"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	HoldDuration   time.Duration `yaml:"hold_duration"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	InitRetries    int           `yaml:"init_retries"`
	Disabled       bool          `yaml:"disabled"`
	RewritePMm     bool          `yaml:"rewrite_pmm"`
}

// KeysConfig names the emulated keys. Names are resolved by
// keyboard.ParseKey; an empty name leaves the input unmapped.
type KeysConfig struct {
	Service string   `yaml:"service"`
	Test    string   `yaml:"test"`
	Card    string   `yaml:"card"`
	P1      []string `yaml:"p1"`
	P2      []string `yaml:"p2"`
}

// Default returns the configuration of a stock cabinet
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Touch: TouchConfig{
			Reader: PortConfig{Name: "COM9", Baud: 9600, ReadTimeout: time.Millisecond},
			P1:     PortConfig{Name: "COM6", Baud: 115200, ReadTimeout: time.Millisecond},
			P2:     PortConfig{Name: "COM7", Baud: 115200, ReadTimeout: time.Millisecond},
		},
		JVS: JVSConfig{
			Port:        PortConfig{Name: "COM24", Baud: 115200, ReadTimeout: 10 * time.Millisecond},
			Address:     1,
			SettleDelay: time.Second,
		},
		Card: CardConfig{
			Mode:           ModeLocal,
			CardIDFile:     "./card_id.txt",
			Reader:         PortConfig{Name: "COM1", Baud: 38400, ReadTimeout: 10 * time.Millisecond},
			Game:           PortConfig{Name: "COM21", Baud: 115200, ReadTimeout: 10 * time.Millisecond},
			PollInterval:   100 * time.Millisecond,
			HoldDuration:   2 * time.Second,
			RequestTimeout: 100 * time.Millisecond,
			InitRetries:    2,
			RewritePMm:     true,
		},
		Keys: KeysConfig{
			Service: "2",
			Test:    "T",
			Card:    "ENTER",
			P1:      []string{"W", "E", "D", "C", "X", "Z", "A", "Q"},
			P2:      []string{"KP8", "KP9", "KP6", "KP3", "KP2", "KP1", "KP4", "KP7"},
		},
	}
}

// Load reads path over the defaults. A missing file is not an error: the
// defaults are returned and found reports false.
func Load(path string) (cfg Config, found bool, err error) {
	cfg = Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return cfg, false, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err = Parse(data)
	if err != nil {
		return cfg, true, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, true, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
