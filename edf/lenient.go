// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var decimalRe = regexp.MustCompile(`^([+-]?\d+)\.\d*$`)

// Device files carry blank or corrupt padding in rarely used numeric fields,
// so numeric header text is parsed leniently: anything unusable becomes 0.
// The second result is false only when non-blank text could not be parsed.

func parseFloatOrZero(b []byte) (float64, bool) {
	s := strings.TrimSpace(string(b))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.0, s == ""
	}
	return f, true
}

func parseIntOrZero(b []byte) (int, bool) {
	s := strings.TrimSpace(string(b))
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	// Some writers put "60.0" into integer fields. Only plain decimal text is
	// accepted, "1e6" is malformed.
	if m := decimalRe.FindStringSubmatch(s); m != nil {
		if i, err := strconv.Atoi(m[1]); err == nil {
			return i, true
		}
	}
	return 0, s == ""
}

func parseString(b []byte) string {
	return strings.TrimSpace(string(b))
}
