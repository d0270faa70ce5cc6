// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import "fmt"

const (
	headerSize       = 256
	signalHeaderSize = 256
)

// Widths of the signal header blocks, in the order they are stored.
const (
	labelWidth          = 16
	transducerWidth     = 80
	dimensionWidth      = 8
	physicalMinWidth    = 8
	physicalMaxWidth    = 8
	digitalMinWidth     = 8
	digitalMaxWidth     = 8
	prefilteringWidth   = 80
	samplesWidth        = 8
	signalReservedWidth = 32
)

// DecodeHeader decodes the fixed 256 byte header at the start of buf.
func DecodeHeader(buf []byte) (Header, error) {
	hdr, _, err := decodeHeader(buf)
	return hdr, err
}

func decodeHeader(buf []byte) (Header, []Warning, error) {
	if len(buf) < headerSize {
		return Header{}, nil, &ShortHeaderError{Size: len(buf)}
	}

	var warnings []Warning
	intField := func(name string, start, end int) int {
		v, ok := parseIntOrZero(buf[start:end])
		if !ok {
			warnings = append(warnings, Warning{
				Stage:   "header",
				Message: fmt.Sprintf("malformed %s %q, using 0", name, parseString(buf[start:end])),
				Offset:  int64(start),
			})
		}
		return v
	}

	// Parse fields based on EDF/EDF+ specifications
	hdr := Header{}
	hdr.Version = Version(parseString(buf[0:8]))
	hdr.PatientID = parseString(buf[8:88])
	hdr.RecordingID = parseString(buf[88:168])
	hdr.StartDate = parseString(buf[168:176])
	hdr.StartTime = parseString(buf[176:184])
	hdr.HeaderBytes = intField("header bytes", 184, 192)
	hdr.Reserved = parseString(buf[192:236])
	hdr.DataRecords = intField("number of data records", 236, 244)

	duration, ok := parseFloatOrZero(buf[244:252])
	if !ok {
		warnings = append(warnings, Warning{
			Stage:   "header",
			Message: fmt.Sprintf("malformed data record duration %q, using 0", parseString(buf[244:252])),
			Offset:  244,
		})
	}
	hdr.DataRecordDuration = duration

	hdr.SignalCount = intField("signal count", 252, 256)

	return hdr, warnings, nil
}

// fieldCursor walks the signal header blocks. Every block holds declared
// entries; only the first kept of them are decoded. Reads past the end of the
// buffer yield empty fields.
type fieldCursor struct {
	buf      []byte
	offset   int
	declared int
	kept     int
	warnings []Warning
}

func (c *fieldCursor) next(width int) []byte {
	start, end := c.offset, c.offset+width
	c.offset = end
	if start >= len(c.buf) {
		return nil
	}
	if end > len(c.buf) {
		end = len(c.buf)
	}
	return c.buf[start:end]
}

// skip moves past the entries of the current block that are not kept.
func (c *fieldCursor) skip(width int) {
	c.offset += (c.declared - c.kept) * width
}

func (c *fieldCursor) strings(width int) []string {
	values := make([]string, c.kept)
	for i := range values {
		values[i] = parseString(c.next(width))
	}
	c.skip(width)
	return values
}

func (c *fieldCursor) ints(name string, width int) []int {
	values := make([]int, c.kept)
	for i := range values {
		offset := c.offset
		b := c.next(width)
		v, ok := parseIntOrZero(b)
		if !ok {
			c.warn(name, i, b, offset)
		}
		values[i] = v
	}
	c.skip(width)
	return values
}

func (c *fieldCursor) floats(name string, width int) []float64 {
	values := make([]float64, c.kept)
	for i := range values {
		offset := c.offset
		b := c.next(width)
		v, ok := parseFloatOrZero(b)
		if !ok {
			c.warn(name, i, b, offset)
		}
		values[i] = v
	}
	c.skip(width)
	return values
}

func (c *fieldCursor) warn(name string, signal int, b []byte, offset int) {
	c.warnings = append(c.warnings, Warning{
		Stage:   "signals",
		Message: fmt.Sprintf("malformed %s %q for signal %d, using 0", name, parseString(b), signal),
		Offset:  int64(offset),
	})
}

// DecodeSignals decodes the signal headers that follow the fixed header. The
// fields are stored as ten consecutive blocks, each holding one fixed width
// entry per signal.
func DecodeSignals(buf []byte, signalCount int) []Signal {
	signals, _ := decodeSignals(buf, signalCount)
	return signals
}

// maxSignals returns how many signals have their label stored in buf. Signals
// past that have no header data at all and are dropped.
func maxSignals(bufLen int) int {
	if bufLen <= headerSize {
		return 0
	}
	return (bufLen - headerSize + labelWidth - 1) / labelWidth
}

func decodeSignals(buf []byte, signalCount int) ([]Signal, []Warning) {
	if signalCount < 0 {
		signalCount = 0
	}

	c := &fieldCursor{buf: buf, offset: headerSize, declared: signalCount, kept: signalCount}
	if limit := maxSignals(len(buf)); c.kept > limit {
		c.kept = limit
		c.warnings = append(c.warnings, Warning{
			Stage:   "signals",
			Message: fmt.Sprintf("%d signals declared, only %d present in buffer of %d bytes", signalCount, limit, len(buf)),
		})
	}

	// The block order is fixed by the format.
	labels := c.strings(labelWidth)
	transducers := c.strings(transducerWidth)
	dimensions := c.strings(dimensionWidth)
	physicalMins := c.floats("physical minimum", physicalMinWidth)
	physicalMaxs := c.floats("physical maximum", physicalMaxWidth)
	digitalMins := c.ints("digital minimum", digitalMinWidth)
	digitalMaxs := c.ints("digital maximum", digitalMaxWidth)
	prefiltering := c.strings(prefilteringWidth)
	samples := c.ints("samples per record", samplesWidth)
	reserved := c.strings(signalReservedWidth)

	signals := make([]Signal, c.kept)
	for i := range signals {
		signals[i] = Signal{
			Label:             labels[i],
			TransducerType:    transducers[i],
			PhysicalDimension: dimensions[i],
			PhysicalMin:       physicalMins[i],
			PhysicalMax:       physicalMaxs[i],
			DigitalMin:        digitalMins[i],
			DigitalMax:        digitalMaxs[i],
			Prefiltering:      prefiltering[i],
			SamplesPerRecord:  samples[i],
			Reserved:          reserved[i],
		}
	}

	if end := headerSize + signalCount*signalHeaderSize; end > len(buf) {
		c.warnings = append(c.warnings, Warning{
			Stage:   "signals",
			Message: fmt.Sprintf("signal headers end at byte %d beyond buffer of %d bytes", end, len(buf)),
		})
	}

	return signals, c.warnings
}
