// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import "time"

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// Header represents the fixed 256 byte EDF file header.
type Header struct {
	Version            Version `json:"version"`            // Version of the EDF standard (usually "0")
	PatientID          string  `json:"patientId"`          // Identification of the patient
	RecordingID        string  `json:"recordingId"`        // Identification of the recording session
	StartDate          string  `json:"startDate"`          // Start date as stored, DD.MM.YY or DD-MMM-YYYY
	StartTime          string  `json:"startTime"`          // Start time as stored, HH.MM.SS
	HeaderBytes        int     `json:"headerBytes"`        // Byte offset where sample data begins
	Reserved           string  `json:"reserved"`           // Reserved block
	DataRecords        int     `json:"numDataRecords"`     // Number of data records, -1 if unknown
	DataRecordDuration float64 `json:"dataRecordDuration"` // Duration of a single data record in seconds
	SignalCount        int     `json:"numSignals"`         // Number of signals in each data record
}

// Start returns the recording start as a wall clock time in UTC. The second
// return value is false if the start date could not be interpreted. An
// unparseable start time leaves the time of day at midnight.
func (h Header) Start() (time.Time, bool) {
	date, ok := ParseDate(h.StartDate)
	if !ok {
		return time.Time{}, false
	}
	if clock, ok := ParseTime(h.StartTime); ok {
		date = date.Add(clock)
	}
	return date, true
}

// RecordDuration returns the duration of a single data record.
func (h Header) RecordDuration() time.Duration {
	return time.Duration(h.DataRecordDuration * float64(time.Second))
}

// Duration returns the declared duration of the whole recording, derived from
// the header alone.
func (h Header) Duration() time.Duration {
	if h.DataRecords <= 0 {
		return 0
	}
	return time.Duration(float64(h.DataRecords) * h.DataRecordDuration * float64(time.Second))
}

// Signal represents the characteristics of each signal in the EDF file.
type Signal struct {
	Label             string  `json:"label"`             // Label of the signal (e.g., Flow.40ms, AHI)
	TransducerType    string  `json:"transducerType"`    // Type of transducer used
	PhysicalDimension string  `json:"physicalDimension"` // Physical dimension (e.g., L/s, cmH2O)
	PhysicalMin       float64 `json:"physicalMinimum"`   // Minimum physical value
	PhysicalMax       float64 `json:"physicalMaximum"`   // Maximum physical value
	DigitalMin        int     `json:"digitalMinimum"`    // Minimum digital value
	DigitalMax        int     `json:"digitalMaximum"`    // Maximum digital value
	Prefiltering      string  `json:"prefiltering"`      // Pre-filtering information
	SamplesPerRecord  int     `json:"samplesPerRecord"`  // Number of samples in each data record for this signal
	Reserved          string  `json:"reserved"`          // Reserved for future use
}

// Physical converts a raw digital sample to its physical value. Signals with
// a degenerate digital range pass the raw value through unchanged.
func (s Signal) Physical(digital int16) float64 {
	return convertDigitalToPhysical(digital, s.DigitalMin, s.DigitalMax, s.PhysicalMin, s.PhysicalMax)
}

// File is a fully decoded EDF file.
type File struct {
	Header  Header   `json:"header"`
	Signals []Signal `json:"signals"`
	// Samples holds the physical values of each signal, index aligned with
	// Signals and concatenated across data records. Nil when only the headers
	// were decoded.
	Samples [][]float64 `json:"-"`
	// SampleCounts holds the number of samples available for each signal,
	// index aligned with Signals. Populated even when Samples is nil.
	SampleCounts []int     `json:"-"`
	Warnings     []Warning `json:"warnings,omitempty"`
}

// Labels returns the signal labels in declaration order.
func (f *File) Labels() []string {
	labels := make([]string, len(f.Signals))
	for i, sig := range f.Signals {
		labels[i] = sig.Label
	}
	return labels
}

// Data returns the decoded samples keyed by signal label. If several signals
// share a label, the first one declared wins.
func (f *File) Data() map[string][]float64 {
	data := make(map[string][]float64, len(f.Signals))
	if f.Samples == nil {
		return data
	}
	for i, sig := range f.Signals {
		if _, ok := data[sig.Label]; ok {
			continue
		}
		data[sig.Label] = f.Samples[i]
	}
	return data
}

// Counts returns the number of available samples keyed by signal label, using
// the same first-wins rule as Data.
func (f *File) Counts() map[string]int {
	counts := make(map[string]int, len(f.Signals))
	for i, sig := range f.Signals {
		if _, ok := counts[sig.Label]; ok {
			continue
		}
		counts[sig.Label] = f.SampleCounts[i]
	}
	return counts
}

// Signal returns the samples of the first signal with the given label.
func (f *File) Signal(label string) ([]float64, bool) {
	for i, sig := range f.Signals {
		if sig.Label == label && f.Samples != nil {
			return f.Samples[i], true
		}
	}
	return nil, false
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return float64(digital)
	}
	// Pin the range ends so that dmin and dmax map exactly onto pmin and pmax.
	switch int(digital) {
	case dmin:
		return pmin
	case dmax:
		return pmax
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}
