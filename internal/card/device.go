// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package card

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

const unknown = "Unknown"

var identRe = regexp.MustCompile(`^#(\w+)\s+(.+)$`)

// Device is the identification a device writes to Identification.tgt, one
// "#KEY value" pair per line.
type Device struct {
	SerialNumber    string            `json:"serialNumber"`
	ProductName     string            `json:"productName"`
	ProductCode     string            `json:"productCode"`
	MachineID       string            `json:"machineId"`
	FirmwareVersion string            `json:"firmwareVersion"`
	Raw             map[string]string `json:"raw"`
}

// ReadDevice reads the identification file at path.
func ReadDevice(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDevice(f)
}

// ParseDevice parses identification data. Lines not of the form #KEY value
// are ignored; missing known keys read as "Unknown".
func ParseDevice(r io.Reader) (*Device, error) {
	raw := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if m := identRe.FindStringSubmatch(line); m != nil {
			raw[m[1]] = strings.TrimSpace(m[2])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	get := func(key string) string {
		if v, ok := raw[key]; ok && v != "" {
			return v
		}
		return unknown
	}

	d := &Device{
		SerialNumber:    get("SRN"),
		ProductName:     get("PNA"),
		ProductCode:     get("PCD"),
		MachineID:       get("MID"),
		FirmwareVersion: get("FGT"),
		Raw:             raw,
	}
	if d.ProductName != unknown {
		d.ProductName = strings.ReplaceAll(d.ProductName, "_", " ")
	}
	return d, nil
}
