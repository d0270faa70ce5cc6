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
	"regexp"
	"strconv"
	"time"
)

var (
	longDateRe  = regexp.MustCompile(`(\d{2})-([A-Z]{3})-(\d{4})`)
	shortDateRe = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{2})`)
	timeRe      = regexp.MustCompile(`^(\d{2})[.:](\d{2})[.:](\d{2})$`)
)

var months = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ParseDate interprets an EDF start date. Both DD-MMM-YYYY (e.g. 30-NOV-2024)
// and DD.MM.YY are accepted; two digit years below 80 are in the 2000s.
// Out of range days and months roll over into the following period. The
// result is midnight UTC of that calendar day; false means no date is
// available.
func ParseDate(s string) (time.Time, bool) {
	if m := longDateRe.FindStringSubmatch(s); m != nil {
		if month, ok := months[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := shortDateRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 80 {
			year += 2000
		} else {
			year += 1900
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// ParseTime interprets an EDF start time (HH.MM.SS) as an offset from
// midnight.
func ParseTime(s string) (time.Duration, bool) {
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if h > 23 || mins > 59 || sec > 59 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(sec)*time.Second, true
}
