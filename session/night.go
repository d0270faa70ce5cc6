// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package session

import (
	"fmt"
	"sort"
	"time"
)

// DefaultDayStartHour is the hour at which a new sleep night begins.
const DefaultDayStartHour = 12

// Boundary delimits sleep nights. Sessions starting before StartHour belong
// to the night that began on the previous calendar day. EndHour is kept with
// the boundary for display and does not take part in grouping.
type Boundary struct {
	StartHour int `json:"startHour"`
	EndHour   int `json:"endHour"`
}

// DefaultBoundary returns the noon to noon boundary.
func DefaultBoundary() Boundary {
	return Boundary{StartHour: DefaultDayStartHour, EndHour: DefaultDayStartHour}
}

// Validate checks that both hours are within 0-23.
func (b Boundary) Validate() error {
	if b.StartHour < 0 || b.StartHour > 23 {
		return fmt.Errorf("day start hour %d out of range 0-23", b.StartHour)
	}
	if b.EndHour < 0 || b.EndHour > 23 {
		return fmt.Errorf("day end hour %d out of range 0-23", b.EndHour)
	}
	return nil
}

// NightDate returns the date of the sleep night a session starting at ts
// belongs to.
func NightDate(ts time.Time, startHour int) time.Time {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	if ts.Hour() < startHour {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// Night is the therapy usage of one sleep night.
type Night struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	TotalMinutes float64 `json:"totalMinutes"`
	SessionCount int     `json:"sessionCount"`
}

// Nights sums session durations per sleep night. Sessions without a
// timestamp or without a positive duration are skipped.
func Nights(sessions []*Session, startHour int) map[string]*Night {
	nights := make(map[string]*Night)

	for _, s := range sessions {
		if !s.HasTimestamp || s.DurationMinutes <= 0 {
			continue
		}

		key := NightDate(s.Timestamp, startHour).Format(time.DateOnly)
		night, ok := nights[key]
		if !ok {
			night = &Night{Date: key}
			nights[key] = night
		}
		night.TotalMinutes += s.DurationMinutes
		night.SessionCount++
	}

	return nights
}

// SortedNights returns the nights in date order.
func SortedNights(nights map[string]*Night) []Night {
	sorted := make([]Night, 0, len(nights))
	for _, n := range nights {
		sorted = append(sorted, *n)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}
