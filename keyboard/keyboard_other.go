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

//go:build !windows && !(linux && (amd64 || arm64))

package keyboard

import (
	"errors"
	"runtime"
)

// ErrUnsupportedPlatform is returned where no key injection exists
var ErrUnsupportedPlatform = errors.New("keyboard injection not supported on " + runtime.GOOS + "/" + runtime.GOARCH)

// NewOSPrimitive fails on this platform; use LogPrimitive instead
func NewOSPrimitive() (Primitive, error) {
	return nil, ErrUnsupportedPlatform
}
