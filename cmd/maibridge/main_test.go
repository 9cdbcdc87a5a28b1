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
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/go-maibridge/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseFlagsDefaults(t *testing.T) {
	t.Parallel()
	f, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPath, f.configPath)
	assert.False(t, f.noConfig)
	assert.False(t, f.dryRun)
}

func TestParseFlagsErrors(t *testing.T) {
	t.Parallel()
	_, err := parseFlags([]string{"-help"}, &bytes.Buffer{})
	require.ErrorIs(t, err, flag.ErrHelp)

	_, err = parseFlags([]string{"-bogus"}, &bytes.Buffer{})
	require.Error(t, err)

	_, err = parseFlags([]string{"extra"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	t.Parallel()
	f, err := parseFlags([]string{
		"-no-config", "-disable-touch", "-jvs-port", "COM30", "-card-mode", "proxy",
		"-card-game", "COM40", "-log-level", "debug",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg, err := loadConfig(f)
	require.NoError(t, err)
	assert.True(t, cfg.Touch.Disabled)
	assert.False(t, cfg.JVS.Disabled)
	assert.Equal(t, "COM30", cfg.JVS.Port.Name)
	assert.Equal(t, config.ModeProxy, cfg.Card.Mode)
	assert.Equal(t, "COM40", cfg.Card.Game.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "COM1", cfg.Card.Reader.Name, "unset flags keep config values")
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jvs:\n  disabled: true\n"), 0o600))

	f, err := parseFlags([]string{"-config", path}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err := loadConfig(f)
	require.NoError(t, err)
	assert.True(t, cfg.JVS.Disabled)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()
	f, err := parseFlags([]string{"-no-config", "-card-mode", "relay"}, &bytes.Buffer{})
	require.NoError(t, err)
	_, err = loadConfig(f)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunExitCodes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, run([]string{"-help"}))
	assert.Equal(t, 1, run([]string{"-bogus"}))
	assert.Equal(t, 1, run([]string{"-no-config", "-card-mode", "relay"}))
	assert.Equal(t, 1, run([]string{"-no-config", "-log-level", "chatty"}))
	// nothing enabled means nothing to run
	assert.Equal(t, 0, run([]string{"-no-config", "-dry-run", "-disable-touch", "-disable-jvs", "-disable-card"}))
}

func TestConfiguredPorts(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	assert.Equal(t, []string{"COM9", "COM6", "COM7", "COM24", "COM1"}, configuredPorts(&cfg))

	cfg.Touch.Disabled = true
	cfg.Card.Mode = config.ModeProxy
	assert.Equal(t, []string{"COM24", "COM1", "COM21"}, configuredPorts(&cfg))
}

type recordingCloser struct {
	order *[]string
	name  string
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestResourcesCloseInReverse(t *testing.T) {
	t.Parallel()
	var order []string
	var res resources
	res.add(recordingCloser{order: &order, name: "reader"})
	res.add(recordingCloser{order: &order, name: "bridge"})
	res.close(zap.NewNop())
	assert.Equal(t, []string{"bridge", "reader"}, order)
}
