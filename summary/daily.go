// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package summary interprets a daily summary file (STR.edf), where every data
// record holds the statistics of one calendar day.
package summary

import (
	"time"

	"github.com/OpenPSG/cpap/edf"
)

// DailyRecord is one day of a summary file. Values holds whatever signals the
// file declares, keyed by label.
type DailyRecord struct {
	Index   int                `json:"index"`
	Date    time.Time          `json:"date"`
	HasDate bool               `json:"hasDate"`
	Values  map[string]float64 `json:"values"`
}

// DateString returns the record date as YYYY-MM-DD, or "" if the file start
// date could not be interpreted.
func (d DailyRecord) DateString() string {
	if !d.HasDate {
		return ""
	}
	return d.Date.Format(time.DateOnly)
}

// Value returns the value stored under label.
func (d DailyRecord) Value(label string) (float64, bool) {
	v, ok := d.Values[label]
	return v, ok
}

// Summary is a decoded daily summary file.
type Summary struct {
	Header  edf.Header    `json:"header"`
	Signals []edf.Signal  `json:"signals"`
	Days    []DailyRecord `json:"days"`
}

// Decode decodes a summary file held in memory.
func Decode(buf []byte) (*Summary, error) {
	f, err := edf.Decode(buf)
	if err != nil {
		return nil, err
	}
	return FromFile(f), nil
}

// ReadFile reads and decodes the summary file at path.
func ReadFile(path string) (*Summary, error) {
	f, err := edf.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f), nil
}

// FromFile builds one DailyRecord per declared data record that holds sample
// data. Record i takes the i-th sample of every signal; signals without an
// i-th sample are left out of the record. Dates count whole days from the file
// start date.
func FromFile(f *edf.File) *Summary {
	s := &Summary{
		Header:  f.Header,
		Signals: f.Signals,
	}

	// A day needs at least one sample, so a declared record count beyond the
	// data is capped at the longest signal.
	days := 0
	for _, n := range f.SampleCounts {
		if n > days {
			days = n
		}
	}
	if declared := f.Header.DataRecords; declared >= 0 && declared < days {
		days = declared
	}

	start, hasStart := edf.ParseDate(f.Header.StartDate)

	s.Days = make([]DailyRecord, days)
	for i := range s.Days {
		day := DailyRecord{
			Index:  i,
			Values: make(map[string]float64, len(f.Signals)),
		}
		seen := make(map[string]bool, len(f.Signals))
		for j, sig := range f.Signals {
			if seen[sig.Label] {
				continue
			}
			seen[sig.Label] = true
			if f.Samples != nil && i < len(f.Samples[j]) {
				day.Values[sig.Label] = f.Samples[j][i]
			}
		}
		if hasStart {
			day.Date = start.AddDate(0, 0, i)
			day.HasDate = true
		}
		s.Days[i] = day
	}

	return s
}
