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

// Command maibridge runs the cabinet bridge: the touch, JVS and card reader
// pipelines, each on its own serial ports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/go-maibridge/config"
	"github.com/ZaparooProject/go-maibridge/detection"
	"github.com/ZaparooProject/go-maibridge/internal/logging"
	"github.com/ZaparooProject/go-maibridge/keyboard"
	"github.com/ZaparooProject/go-maibridge/supervisor"
	"go.uber.org/zap"
)

type flags struct {
	configPath   string
	logLevel     string
	logFormat    string
	touchReader  string
	touchP1      string
	touchP2      string
	jvsPort      string
	cardReader   string
	cardGame     string
	cardMode     string
	noConfig     bool
	disableTouch bool
	disableJVS   bool
	disableCard  bool
	dryRun       bool
	listPorts    bool
}

func parseFlags(args []string, output io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("maibridge", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&f.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	fs.BoolVar(&f.noConfig, "no-config", false, "Ignore the config file and use defaults")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: console or json")
	fs.BoolVar(&f.disableTouch, "disable-touch", false, "Do not start the touch bridge")
	fs.BoolVar(&f.disableJVS, "disable-jvs", false, "Do not start the JVS master")
	fs.BoolVar(&f.disableCard, "disable-card", false, "Do not start the card reader")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Log key presses instead of sending them")
	fs.BoolVar(&f.listPorts, "list-ports", false, "List serial ports and exit")
	fs.StringVar(&f.touchReader, "touch-reader", "", "FiNALE touch controller port (e.g. COM9)")
	fs.StringVar(&f.touchP1, "touch-p1", "", "Player 1 game touch port (e.g. COM6)")
	fs.StringVar(&f.touchP2, "touch-p2", "", "Player 2 game touch port (e.g. COM7)")
	fs.StringVar(&f.jvsPort, "jvs-port", "", "JVS I/O board port (e.g. COM24)")
	fs.StringVar(&f.cardReader, "card-reader", "", "Card reader port")
	fs.StringVar(&f.cardGame, "card-game", "", "Game-side card reader port, proxy mode only")
	fs.StringVar(&f.cardMode, "card-mode", "", "Card reader mode: local or proxy")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

// apply overrides cfg with every flag that was given
func (f *flags) apply(cfg *config.Config) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Log.Level, f.logLevel)
	override(&cfg.Log.Format, f.logFormat)
	override(&cfg.Touch.Reader.Name, f.touchReader)
	override(&cfg.Touch.P1.Name, f.touchP1)
	override(&cfg.Touch.P2.Name, f.touchP2)
	override(&cfg.JVS.Port.Name, f.jvsPort)
	override(&cfg.Card.Reader.Name, f.cardReader)
	override(&cfg.Card.Game.Name, f.cardGame)
	override(&cfg.Card.Mode, f.cardMode)

	cfg.Touch.Disabled = cfg.Touch.Disabled || f.disableTouch
	cfg.JVS.Disabled = cfg.JVS.Disabled || f.disableJVS
	cfg.Card.Disabled = cfg.Card.Disabled || f.disableCard
}

func loadConfig(f *flags) (config.Config, error) {
	cfg := config.Default()
	if !f.noConfig {
		loaded, _, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if f.listPorts {
		return listPorts(os.Stdout)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	warnMissingPorts(logger, &cfg)

	primitive := openPrimitive(logger, f.dryRun)
	if c, ok := primitive.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	keys := keyboard.NewSink(primitive, keyboard.WithLogger(logger.Named("keyboard")))
	defer func() {
		if err := keys.ReleaseAll(); err != nil {
			logger.Error("failed to release keys", zap.Error(err))
		}
	}()

	sup := supervisor.New(supervisor.WithLogger(logger))
	var res resources
	defer res.close(logger)

	openTouch(&cfg, logger, sup, &res)
	openJVS(&cfg, logger, keys, sup, &res)
	openCard(&cfg, logger, keys, sup, &res)

	if sup.Len() == 0 {
		logger.Warn("no pipeline is running")
		return 0
	}

	logger.Info("bridge running", zap.Int("workers", sup.Len()))
	if err := sup.Run(ctx); err != nil {
		logger.Warn("some pipelines stopped with errors", zap.Error(err))
	}
	logger.Info("bridge stopped")
	return 0
}

func openPrimitive(logger *zap.Logger, dryRun bool) keyboard.Primitive {
	fallback := keyboard.LogPrimitive{Logger: logger.Named("keyboard")}
	if dryRun {
		return fallback
	}
	p, err := keyboard.NewOSPrimitive()
	if err != nil {
		logger.Warn("key injection unavailable, logging key presses instead", zap.Error(err))
		return fallback
	}
	return p
}

func listPorts(out io.Writer) int {
	ports, err := detection.ListPorts(nil)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "no serial ports found")
		return 0
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(out, p)
	}
	return 0
}

func warnMissingPorts(logger *zap.Logger, cfg *config.Config) {
	ports, err := detection.ListPorts(nil)
	if err != nil {
		logger.Warn("cannot list serial ports", zap.Error(err))
		return
	}
	for _, name := range detection.MissingPorts(configuredPorts(cfg), ports) {
		logger.Warn("configured port not found", zap.String("port", name))
	}
}

// configuredPorts lists the ports of every enabled pipeline
func configuredPorts(cfg *config.Config) []string {
	var names []string
	if !cfg.Touch.Disabled {
		names = append(names, cfg.Touch.Reader.Name, cfg.Touch.P1.Name, cfg.Touch.P2.Name)
	}
	if !cfg.JVS.Disabled {
		names = append(names, cfg.JVS.Port.Name)
	}
	if !cfg.Card.Disabled {
		names = append(names, cfg.Card.Reader.Name)
		if cfg.Card.Mode == config.ModeProxy {
			names = append(names, cfg.Card.Game.Name)
		}
	}
	return names
}
