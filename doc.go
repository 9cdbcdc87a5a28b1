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

/*
Package maibridge bridges the serial peripherals of a maimai FiNALE cabinet to a
maimai DX game that expects a different peripheral protocol.

Three subsystems are bridged, each in its own package:
  - cardreader: the Aime card reader, either polled locally or proxied to the game
  - jvs: the JVS I/O board, whose digital inputs are turned into key presses
  - touch: the two touchscreens, whose sensor layout is remapped to the DX layout

The card reader and JVS links share one byte-stuffed frame format implemented
in internal/frame. All I/O goes through the Transport interface defined here;
transport/uart provides the serial implementation. The maibridge command loads
its settings through the config package and runs every pipeline under a
supervisor.Supervisor.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-maibridge/jvs"
	    "github.com/ZaparooProject/go-maibridge/keyboard"
	    "github.com/ZaparooProject/go-maibridge/transport/uart"
	)

	port, err := uart.New("COM24", 115200)
	if err != nil {
	    log.Fatal(err)
	}
	defer port.Close()

	keys := keyboard.NewSink(keyboard.LogPrimitive{})
	defer keys.ReleaseAll()

	master := jvs.NewMaster(port, jvs.DefaultKeyMap(), keys)
	if err := master.Init(ctx); err != nil {
	    log.Fatal(err)
	}
	_ = master.Run(ctx)

Errors returned by every package can be classified with IsTimeout,
IsChecksumError, IsRetryable and GetErrorType.
*/
package maibridge
