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
	"encoding/binary"
	"fmt"
)

const sampleSize = 2

// Decode decodes a complete EDF file held in memory: the header, the signal
// headers and the calibrated samples of every signal. It fails only when buf
// is too short to hold the fixed header. Malformed numeric fields decode as 0
// and truncated sample data decodes partially; both are reported as warnings.
func Decode(buf []byte) (*File, error) {
	f, err := decodeHeaders(buf)
	if err != nil {
		return nil, err
	}
	f.Samples = decodeSamples(buf, f.Header, f.Signals)
	return f, nil
}

// DecodeHeaders decodes the header and the signal headers only. Sample counts
// are derived from the size of buf without materializing any samples.
func DecodeHeaders(buf []byte) (*File, error) {
	return decodeHeaders(buf)
}

func decodeHeaders(buf []byte) (*File, error) {
	hdr, warnings, err := decodeHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("error decoding header: %w", err)
	}

	signals, signalWarnings := decodeSignals(buf, hdr.SignalCount)
	warnings = append(warnings, signalWarnings...)

	f := &File{
		Header:   hdr,
		Signals:  signals,
		Warnings: warnings,
	}

	start := dataOffset(hdr)
	dataLen := len(buf) - start
	if dataLen < 0 {
		dataLen = 0
	}
	f.SampleCounts = SampleCounts(hdr, signals, dataLen)

	if start != hdr.HeaderBytes {
		f.Warnings = append(f.Warnings, Warning{
			Stage:   "samples",
			Message: fmt.Sprintf("declared header bytes %d unusable, sample data assumed at %d", hdr.HeaderBytes, start),
		})
	}
	if want := expectedDataBytes(hdr, signals); want >= 0 && dataLen < want {
		f.Warnings = append(f.Warnings, Warning{
			Stage:   "samples",
			Message: fmt.Sprintf("sample data truncated: %d of %d bytes present", dataLen, want),
			Offset:  int64(start + dataLen),
		})
	}

	return f, nil
}

// dataOffset returns where the sample data starts. The declared header size is
// trusted unless it is not positive.
func dataOffset(hdr Header) int {
	if hdr.HeaderBytes > 0 {
		return hdr.HeaderBytes
	}
	n := hdr.SignalCount
	if n < 0 {
		n = 0
	}
	return headerSize + n*signalHeaderSize
}

func samplesPerRecord(sig Signal) int {
	if sig.SamplesPerRecord < 0 {
		return 0
	}
	return sig.SamplesPerRecord
}

func recordSize(signals []Signal) int {
	size := 0
	for _, sig := range signals {
		size += samplesPerRecord(sig) * sampleSize
	}
	return size
}

// expectedDataBytes returns the size of the sample data declared by the
// header, or -1 if the number of data records is unknown.
func expectedDataBytes(hdr Header, signals []Signal) int {
	if hdr.DataRecords < 0 {
		return -1
	}
	return hdr.DataRecords * recordSize(signals)
}

// recordLimit returns how many data records to visit for dataLen bytes of
// sample data. An unknown (negative) record count means as many records,
// whole or partial, as the data holds.
func recordLimit(hdr Header, signals []Signal, dataLen int) int {
	if hdr.DataRecords >= 0 {
		return hdr.DataRecords
	}
	size := recordSize(signals)
	if size == 0 {
		return 0
	}
	return (dataLen + size - 1) / size
}

// SampleCounts returns the number of samples each signal yields when
// dataLen bytes of sample data are available. Samples are visited in file
// order and decoding stops at the first sample that does not fit, so a
// truncated final record contributes only the samples stored before the cut.
func SampleCounts(hdr Header, signals []Signal, dataLen int) []int {
	counts := make([]int, len(signals))
	records := recordLimit(hdr, signals, dataLen)
	size := recordSize(signals)
	if records == 0 || size == 0 {
		return counts
	}

	available := dataLen / sampleSize // whole samples present
	full := available / (size / sampleSize)
	if full >= records {
		for i, sig := range signals {
			counts[i] = records * samplesPerRecord(sig)
		}
		return counts
	}

	// full complete records, then a partial record holding rest samples.
	rest := available - full*(size/sampleSize)
	for i, sig := range signals {
		n := samplesPerRecord(sig)
		taken := n
		if rest < n {
			taken = rest
		}
		rest -= taken
		counts[i] = full*n + taken
	}
	return counts
}

// decodeSamples decodes the interleaved data records. Within a record every
// signal contributes SamplesPerRecord consecutive little endian int16 values,
// in declaration order.
func decodeSamples(buf []byte, hdr Header, signals []Signal) [][]float64 {
	start := dataOffset(hdr)
	dataLen := len(buf) - start
	if dataLen < 0 {
		dataLen = 0
	}

	counts := SampleCounts(hdr, signals, dataLen)
	samples := make([][]float64, len(signals))
	for i := range signals {
		samples[i] = make([]float64, 0, counts[i])
	}

	records := recordLimit(hdr, signals, dataLen)
	offset := start
	for rec := 0; rec < records && offset < len(buf); rec++ {
		for i, sig := range signals {
			n := samplesPerRecord(sig)
			for s := 0; s < n; s++ {
				if offset+sampleSize > len(buf) {
					return samples
				}
				digital := int16(binary.LittleEndian.Uint16(buf[offset : offset+sampleSize]))
				offset += sampleSize
				samples[i] = append(samples[i], sig.Physical(digital))
			}
		}
	}

	return samples
}
