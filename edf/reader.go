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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ReadFile reads and decodes the EDF file at path. A missing file is reported
// as a *NotFoundError.
func ReadFile(path string) (*File, error) {
	buf, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(buf)
}

// ReadFileHeaders reads the EDF file at path and decodes its headers only.
func ReadFileHeaders(path string) (*File, error) {
	buf, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeHeaders(buf)
}

func readFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return buf, nil
}

// Read reads all of r and decodes it.
func Read(r io.Reader) (*File, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading edf data: %w", err)
	}
	return Decode(buf)
}

// Reader reads individual signals from an EDF file without loading the
// sample data into memory.
type Reader struct {
	r       io.ReadSeeker
	hdr     Header
	signals []Signal
	start   int64 // Offset of the sample data
	dataLen int   // Bytes of sample data present
}

// Open decodes the headers of an EDF file for reading. The same leniency
// rules as Decode apply.
func Open(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to header: %w", err)
	}

	b := make([]byte, headerSize)
	n, err := io.ReadFull(r, b)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	hdr, _, err := decodeHeader(b[:n])
	if err != nil {
		return nil, fmt.Errorf("error decoding header: %w", err)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("error seeking to end: %w", err)
	}
	if _, err := r.Seek(headerSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to signal headers: %w", err)
	}

	count := hdr.SignalCount
	if count < 0 {
		count = 0
	}

	// Read signal headers, tolerating a short read. No more than the file
	// holds is read, whatever the declared signal count.
	sbLen := int64(count) * signalHeaderSize
	if limit := size - headerSize; sbLen > limit {
		sbLen = limit
	}
	sb := make([]byte, sbLen)
	n, err = io.ReadFull(r, sb)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading signal headers: %w", err)
	}
	signals, _ := decodeSignals(append(b, sb[:n]...), count)

	start := int64(dataOffset(hdr))
	dataLen := size - start
	if dataLen < 0 {
		dataLen = 0
	}

	return &Reader{
		r:       r,
		hdr:     hdr,
		signals: signals,
		start:   start,
		dataLen: int(dataLen),
	}, nil
}

// Header returns the decoded file header.
func (er *Reader) Header() Header {
	return er.hdr
}

// Signals returns the decoded signal headers.
func (er *Reader) Signals() []Signal {
	return er.signals
}

// SampleCounts returns the number of samples available for each signal.
func (er *Reader) SampleCounts() []int {
	return SampleCounts(er.hdr, er.signals, er.dataLen)
}

// SignalReader reads continuous signal data from an EDF file.
type SignalReader struct {
	r                io.ReadSeeker
	start            int64
	signal           Signal
	total            int // Number of samples available for the signal
	read             int // Number of samples consumed so far
	recordSize       int // Total size of one data record
	signalOffset     int // Byte offset of the signal in a record
	samplesPerRecord int // Number of samples per record for the signal
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.signals) {
		return nil, fmt.Errorf("signal index %d out of range", signalIndex)
	}

	signalOffset := 0
	for _, sig := range er.signals[:signalIndex] {
		signalOffset += samplesPerRecord(sig) * sampleSize
	}

	return &SignalReader{
		r:                er.r,
		start:            er.start,
		signal:           er.signals[signalIndex],
		total:            er.SampleCounts()[signalIndex],
		recordSize:       recordSize(er.signals),
		signalOffset:     signalOffset,
		samplesPerRecord: samplesPerRecord(er.signals[signalIndex]),
	}, nil
}

// Len returns the number of samples left to read.
func (sr *SignalReader) Len() int {
	return sr.total - sr.read
}

// Skip advances the reader by up to n samples and returns how many were
// skipped.
func (sr *SignalReader) Skip(n int) int {
	if n > sr.Len() {
		n = sr.Len()
	}
	if n < 0 {
		n = 0
	}
	sr.read += n
	return n
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	if sr.Len() == 0 && len(data) > 0 {
		return 0, io.EOF
	}

	buf := make([]byte, sampleSize)

	n := 0
	for n < len(data) && sr.read < sr.total {
		record := sr.read / sr.samplesPerRecord
		sample := sr.read % sr.samplesPerRecord

		// Calculate position to read the digital sample from
		pos := sr.start + int64(record)*int64(sr.recordSize) + int64(sr.signalOffset) + int64(sample*sampleSize)
		if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
			return n, fmt.Errorf("error seeking to position: %w", err)
		}

		// Read the digital sample
		if _, err := io.ReadFull(sr.r, buf); err != nil {
			return n, fmt.Errorf("error reading sample data: %w", err)
		}
		data[n] = sr.signal.Physical(int16(binary.LittleEndian.Uint16(buf)))

		n++
		sr.read++
	}

	return n, nil
}
