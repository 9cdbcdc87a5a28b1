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

// Package supervisor runs the bridge pipelines side by side. A worker that
// fails or panics is logged and recorded; the others keep running until the
// shared context is cancelled.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrPanic marks a worker that exited by panicking
var ErrPanic = errors.New("worker panicked")

// Worker is one pipeline loop. Run returns nil when ctx is cancelled.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// Reporter is implemented by workers whose counters are logged when they stop
type Reporter interface {
	Report() []zap.Field
}

// WorkerMetrics tracks one worker
type WorkerMetrics struct {
	Started  time.Time
	Stopped  time.Time
	Err      error
	Name     string
	Panicked bool
	Running  bool
}

type entry struct {
	worker   Worker
	started  time.Time
	stopped  time.Time
	err      error
	panicked bool
	running  bool
}

// Supervisor owns a set of workers
type Supervisor struct {
	logger  *zap.Logger
	entries []*entry
	mu      sync.Mutex
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// New creates a supervisor with no workers
func New(opts ...Option) *Supervisor {
	s := &Supervisor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers w. Workers added after Run has started are not run.
func (s *Supervisor) Add(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{worker: w})
}

// Len returns the number of registered workers
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run starts every worker and waits for all of them to return. The returned
// error joins the errors of workers that failed or panicked.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	entries := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	// a plain group: one failing worker must not cancel the rest
	var g errgroup.Group
	for _, e := range entries {
		g.Go(func() error {
			s.run(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, m := range s.Metrics() {
		if m.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name, m.Err))
		}
	}
	return errors.Join(errs...)
}

func (s *Supervisor) run(ctx context.Context, e *entry) {
	name := e.worker.Name()
	logger := s.logger.With(zap.String("worker", name))

	s.mu.Lock()
	e.started = time.Now()
	e.running = true
	s.mu.Unlock()
	logger.Info("worker started")

	var err error
	panicked := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				err = fmt.Errorf("%w: %v", ErrPanic, r)
				logger.Error("worker panicked",
					zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()
		err = e.worker.Run(ctx)
	}()

	s.mu.Lock()
	e.stopped = time.Now()
	e.running = false
	e.err = err
	e.panicked = panicked
	s.mu.Unlock()

	var fields []zap.Field
	if r, ok := e.worker.(Reporter); ok {
		fields = r.Report()
	}
	switch {
	case panicked:
		logger.Info("worker stats", fields...)
	case err != nil:
		logger.Error("worker failed", append(fields, zap.Error(err))...)
	default:
		logger.Info("worker stopped", fields...)
	}
}

// Metrics returns a snapshot per worker, in registration order
func (s *Supervisor) Metrics() []WorkerMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WorkerMetrics, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, WorkerMetrics{
			Name:     e.worker.Name(),
			Started:  e.started,
			Stopped:  e.stopped,
			Err:      e.err,
			Panicked: e.panicked,
			Running:  e.running,
		})
	}
	return out
}
