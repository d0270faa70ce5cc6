// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edftest builds EDF byte streams for tests.
package edftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Signal describes one signal of a test file.
type Signal struct {
	Label             string
	TransducerType    string
	PhysicalDimension string
	PhysicalMin       float64
	PhysicalMax       float64
	DigitalMin        int
	DigitalMax        int
	Prefiltering      string
	SamplesPerRecord  int
}

// File describes a test file. Records are indexed by data record, then
// signal, then sample, and hold raw digital values.
type File struct {
	Version     string
	PatientID   string
	RecordingID string
	StartDate   string // DD.MM.YY or DD-MMM-YYYY
	StartTime   string // HH.MM.SS
	// HeaderBytes overrides the computed header size when non-zero.
	HeaderBytes int
	// DataRecords overrides the declared number of data records when
	// non-zero. Otherwise len(Records) is declared.
	DataRecords    int
	RecordDuration float64
	Signals        []Signal
	Records        [][][]int16
}

// Bytes encodes the file.
func (f File) Bytes() []byte {
	var buf bytes.Buffer

	headerBytes := f.HeaderBytes
	if headerBytes == 0 {
		headerBytes = 256 + len(f.Signals)*256
	}
	dataRecords := f.DataRecords
	if dataRecords == 0 {
		dataRecords = len(f.Records)
	}
	version := f.Version
	if version == "" {
		version = "0"
	}

	// Write version, patient and recording IDs
	field(&buf, 8, version)
	field(&buf, 80, f.PatientID)
	field(&buf, 80, f.RecordingID)

	// Write start date and time
	field(&buf, 8, f.StartDate)
	field(&buf, 8, f.StartTime)

	field(&buf, 8, headerBytes)

	// Write 44 empty reserved bytes.
	field(&buf, 44, "")

	field(&buf, 8, dataRecords)
	field(&buf, 8, formatPhysicalValue(f.RecordDuration))
	field(&buf, 4, len(f.Signals))

	// Write signal details, one block per field.
	for _, signal := range f.Signals {
		field(&buf, 16, signal.Label)
	}
	for _, signal := range f.Signals {
		field(&buf, 80, signal.TransducerType)
	}
	for _, signal := range f.Signals {
		field(&buf, 8, signal.PhysicalDimension)
	}
	for _, signal := range f.Signals {
		field(&buf, 8, formatPhysicalValue(signal.PhysicalMin))
	}
	for _, signal := range f.Signals {
		field(&buf, 8, formatPhysicalValue(signal.PhysicalMax))
	}
	for _, signal := range f.Signals {
		field(&buf, 8, signal.DigitalMin)
	}
	for _, signal := range f.Signals {
		field(&buf, 8, signal.DigitalMax)
	}
	for _, signal := range f.Signals {
		field(&buf, 80, signal.Prefiltering)
	}
	for _, signal := range f.Signals {
		field(&buf, 8, signal.SamplesPerRecord)
	}

	// Reserved for future use
	for range f.Signals {
		field(&buf, 32, "")
	}

	// Pad or cut to the declared data offset.
	for buf.Len() < headerBytes {
		buf.WriteByte(' ')
	}
	buf.Truncate(headerBytes)

	for _, record := range f.Records {
		for _, samples := range record {
			for _, sample := range samples {
				_ = binary.Write(&buf, binary.LittleEndian, sample)
			}
		}
	}

	return buf.Bytes()
}

// field writes v as text padded with spaces to width. Longer text is clipped
// so later fields keep their offsets.
func field(buf *bytes.Buffer, width int, v interface{}) {
	fmt.Fprintf(buf, "%-*.*s", width, width, fmt.Sprint(v))
}

// WriteFile encodes the file to path, creating parent directories.
func (f File) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, f.Bytes(), 0o644)
}

// Patch overwrites a fixed width text field of an encoded file, padding text
// with spaces.
func Patch(buf []byte, offset, width int, text string) []byte {
	out := append([]byte(nil), buf...)
	copy(out[offset:offset+width], fmt.Sprintf("%-*s", width, text))
	return out
}

// Digital converts a physical value to a digital value using the calibration factors of sig.
func Digital(sig Signal, physical float64) int16 {
	if sig.PhysicalMax == sig.PhysicalMin || sig.DigitalMax == sig.DigitalMin {
		return int16(physical)
	}
	digital := ((physical - sig.PhysicalMin) * (float64(sig.DigitalMax - sig.DigitalMin)) / (sig.PhysicalMax - sig.PhysicalMin)) + float64(sig.DigitalMin)
	return int16(math.Round(digital))
}

// Summary builds a file with one single sample signal per label and one data
// record per day, the layout of a daily summary file. Values are stored with a
// degenerate digital range so they pass through unscaled.
func Summary(startDate string, labels []string, days [][]int16) File {
	f := File{
		StartDate:      startDate,
		StartTime:      "00.00.00",
		RecordDuration: 86400,
	}
	for _, label := range labels {
		f.Signals = append(f.Signals, Signal{
			Label:            label,
			SamplesPerRecord: 1,
		})
	}
	for _, day := range days {
		record := make([][]int16, len(labels))
		for i := range labels {
			record[i] = []int16{day[i]}
		}
		f.Records = append(f.Records, record)
	}
	return f
}

func formatPhysicalValue(val float64) string {
	// Try with 2 decimal places
	s := fmt.Sprintf("%.2f", val)
	if len(s) > 8 {
		// Fall back to no decimal
		s = fmt.Sprintf("%.0f", val)
	}
	return s
}
