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
	"fmt"
	"io"
	"os"
	"sync"
)

// CardSink receives the id of every detected card
type CardSink interface {
	WriteCardID(id string) error
}

// FileSink writes card ids to an existing file or named pipe. The file is
// opened for every id and never created; nothing but the id is written.
type FileSink struct {
	Path string
}

// WriteCardID implements CardSink
func (f FileSink) WriteCardID(id string) error {
	fh, err := os.OpenFile(f.Path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open card id file: %w", err)
	}
	if _, err := io.WriteString(fh, id); err != nil {
		_ = fh.Close()
		return fmt.Errorf("failed to write card id: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("failed to close card id file: %w", err)
	}
	return nil
}

// WriterSink writes card ids to any writer
type WriterSink struct {
	W  io.Writer
	mu sync.Mutex
}

// WriteCardID implements CardSink
func (w *WriterSink) WriteCardID(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.W, id); err != nil {
		return fmt.Errorf("failed to write card id: %w", err)
	}
	return nil
}
