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

// Package detection lists the serial ports present on the machine so that
// configured ports which are missing can be reported before they are opened.
package detection

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Port is one serial port found on the machine
type Port struct {
	Name         string
	Product      string
	SerialNumber string
	VID          string
	PID          string
	IsUSB        bool
}

// String renders the port for logs
func (p Port) String() string {
	if !p.IsUSB {
		return p.Name
	}
	desc := fmt.Sprintf("%s (USB %s:%s", p.Name, strings.ToUpper(p.VID), strings.ToUpper(p.PID))
	if p.Product != "" {
		desc += " " + p.Product
	}
	return desc + ")"
}

// Lister returns the raw port list. enumerator.GetDetailedPortsList is the
// implementation used outside tests.
type Lister func() ([]*enumerator.PortDetails, error)

// ListPorts enumerates the serial ports through list, sorted by name
func ListPorts(list Lister) ([]Port, error) {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	details, err := list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]Port, 0, len(details))
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		ports = append(ports, Port{
			Name:         d.Name,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			VID:          d.VID,
			PID:          d.PID,
			IsUSB:        d.IsUSB,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

// MissingPorts returns the configured port names that are not present in
// available, in the order given. Duplicates and empty names are skipped.
func MissingPorts(configured []string, available []Port) []string {
	present := make(map[string]bool, len(available))
	for _, p := range available {
		present[normalizedPath(p.Name)] = true
	}

	var missing []string
	seen := make(map[string]bool, len(configured))
	for _, name := range configured {
		key := normalizedPath(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		if !present[key] {
			missing = append(missing, name)
		}
	}
	return missing
}

// normalizedPath cleans a device path and lowercases it, since COM port
// names are case-insensitive
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
