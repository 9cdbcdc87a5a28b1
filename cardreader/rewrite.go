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
	"github.com/ZaparooProject/go-maibridge/internal/frame"
)

// ResponseRewriter edits a reader response before the proxy hands it to the
// game. Rewrite reports whether it changed anything.
type ResponseRewriter interface {
	Name() string
	Rewrite(res *frame.Packet) bool
}

// DefaultPMm is the FeliCa PMm the game accepts from its own reader
var DefaultPMm = [felicaIDLength]byte{0x00, 0xF1, 0x00, 0x00, 0x00, 0x01, 0x43, 0x00}

// FelicaPMmRewrite overwrites the PMm of every card in a poll response with a
// fixed value. The game rejects the PMm reported by the cabinet's reader.
type FelicaPMmRewrite struct {
	PMm [felicaIDLength]byte
}

// NewFelicaPMmRewrite returns the rewrite with DefaultPMm
func NewFelicaPMmRewrite() FelicaPMmRewrite {
	return FelicaPMmRewrite{PMm: DefaultPMm}
}

// Name implements ResponseRewriter
func (FelicaPMmRewrite) Name() string {
	return "felica pmm"
}

// Rewrite implements ResponseRewriter
func (r FelicaPMmRewrite) Rewrite(res *frame.Packet) bool {
	data := res.Data()
	if res.Cmd() != CmdPoll || len(data) < pmmOffset+felicaIDLength {
		return false
	}
	copy(data[pmmOffset:pmmOffset+felicaIDLength], r.PMm[:])
	return true
}
