// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"strings"
	"testing"

	"github.com/OpenPSG/cpap/edf"
	"github.com/OpenPSG/cpap/internal/edftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interleaved(records int) edftest.File {
	f := edftest.File{
		StartDate:      "05.01.24",
		StartTime:      "23.00.00",
		RecordDuration: 2,
		Signals: []edftest.Signal{
			{Label: "Flow", DigitalMin: -32768, DigitalMax: 32767, PhysicalMin: -32768, PhysicalMax: 32767, SamplesPerRecord: 2},
			{Label: "Press", DigitalMin: -32768, DigitalMax: 32767, PhysicalMin: -32768, PhysicalMax: 32767, SamplesPerRecord: 3},
		},
	}
	for r := 0; r < records; r++ {
		base := int16(r * 10)
		f.Records = append(f.Records, [][]int16{
			{base + 1, base + 2},
			{base + 3, base + 4, base + 5},
		})
	}
	return f
}

func TestDecode(t *testing.T) {
	f := edftest.File{
		PatientID:      "X",
		RecordingID:    "Startdate 05-JAN-2024 X X SRN=23192345678",
		StartDate:      "05.01.24",
		StartTime:      "23.14.05",
		RecordDuration: 60,
		Signals: []edftest.Signal{
			{
				Label:             "Flow.40ms",
				TransducerType:    "Pneumotach",
				PhysicalDimension: "L/s",
				PhysicalMin:       -2,
				PhysicalMax:       2,
				DigitalMin:        -1000,
				DigitalMax:        1000,
				Prefiltering:      "LP 10Hz",
				SamplesPerRecord:  4,
			},
		},
		Records: [][][]int16{
			{{-1000, 0, 500, 1000}},
		},
	}

	file, err := edf.Decode(f.Bytes())
	require.NoError(t, err)

	hdr := file.Header
	assert.Equal(t, edf.Version0, hdr.Version)
	assert.Equal(t, "X", hdr.PatientID)
	assert.Equal(t, "Startdate 05-JAN-2024 X X SRN=23192345678", hdr.RecordingID)
	assert.Equal(t, "05.01.24", hdr.StartDate)
	assert.Equal(t, "23.14.05", hdr.StartTime)
	assert.Equal(t, 512, hdr.HeaderBytes)
	assert.Equal(t, 1, hdr.DataRecords)
	assert.Equal(t, 60.0, hdr.DataRecordDuration)
	assert.Equal(t, 1, hdr.SignalCount)

	require.Len(t, file.Signals, 1)
	sig := file.Signals[0]
	assert.Equal(t, "Flow.40ms", sig.Label)
	assert.Equal(t, "Pneumotach", sig.TransducerType)
	assert.Equal(t, "L/s", sig.PhysicalDimension)
	assert.Equal(t, -2.0, sig.PhysicalMin)
	assert.Equal(t, 2.0, sig.PhysicalMax)
	assert.Equal(t, -1000, sig.DigitalMin)
	assert.Equal(t, 1000, sig.DigitalMax)
	assert.Equal(t, "LP 10Hz", sig.Prefiltering)
	assert.Equal(t, 4, sig.SamplesPerRecord)

	flow, ok := file.Signal("Flow.40ms")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{-2, 0, 1, 2}, flow, 1e-9)
	assert.Equal(t, []int{4}, file.SampleCounts)
	assert.Empty(t, file.Warnings)

	start, ok := hdr.Start()
	require.True(t, ok)
	assert.Equal(t, "2024-01-05T23:14:05Z", start.Format("2006-01-02T15:04:05Z07:00"))
}

func TestCalibration(t *testing.T) {
	sig := edf.Signal{DigitalMin: -32768, DigitalMax: 32767, PhysicalMin: -10, PhysicalMax: 10}

	assert.Equal(t, -10.0, sig.Physical(-32768))
	assert.Equal(t, 10.0, sig.Physical(32767))

	// Midpoint of an asymmetric digital range is just off zero.
	mid := -10 + 32768*20.0/65535
	assert.InDelta(t, mid, sig.Physical(0), 1e-12)
	assert.InDelta(t, 0.0, sig.Physical(0), 0.0002)
}

func TestDegenerateScale(t *testing.T) {
	sig := edf.Signal{DigitalMin: 5, DigitalMax: 5, PhysicalMin: -10, PhysicalMax: 10}

	for _, raw := range []int16{-32768, -1, 0, 5, 1234, 32767} {
		assert.Equal(t, float64(raw), sig.Physical(raw))
	}
}

func TestDecodeInterleaving(t *testing.T) {
	file, err := edf.Decode(interleaved(2).Bytes())
	require.NoError(t, err)

	data := file.Data()
	assert.Equal(t, []float64{1, 2, 11, 12}, data["Flow"])
	assert.Equal(t, []float64{3, 4, 5, 13, 14, 15}, data["Press"])
	assert.Equal(t, map[string]int{"Flow": 4, "Press": 6}, file.Counts())
}

func TestDecodeTruncated(t *testing.T) {
	f := interleaved(10)
	b := f.Bytes()

	recordBytes := (2 + 3) * 2
	b = b[:768+3*recordBytes]

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, 10, file.Header.DataRecords)
	assert.Len(t, file.Samples[0], 3*2)
	assert.Len(t, file.Samples[1], 3*3)
	assert.Equal(t, []int{6, 9}, file.SampleCounts)
	require.NotEmpty(t, file.Warnings)
	assert.Equal(t, "samples", file.Warnings[len(file.Warnings)-1].Stage)
}

func TestDecodePartialRecord(t *testing.T) {
	b := interleaved(2).Bytes()

	// One full record plus three samples and a stray byte of the second.
	b = b[:768+10+3*2+1]

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 11, 12}, file.Samples[0])
	assert.Equal(t, []float64{3, 4, 5, 13}, file.Samples[1])
	assert.Equal(t, []int{4, 4}, file.SampleCounts)
}

func TestDecodeUnknownRecordCount(t *testing.T) {
	b := edftest.Patch(interleaved(3).Bytes(), 236, 8, "-1")

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, -1, file.Header.DataRecords)
	assert.Len(t, file.Samples[0], 6)
	assert.Len(t, file.Samples[1], 9)
}

func TestDecodeHeaders(t *testing.T) {
	b := interleaved(4).Bytes()

	file, err := edf.DecodeHeaders(b[:len(b)-1])
	require.NoError(t, err)

	assert.Nil(t, file.Samples)
	assert.Empty(t, file.Data())
	assert.Equal(t, []int{8, 11}, file.SampleCounts)
	assert.Equal(t, []string{"Flow", "Press"}, file.Labels())
}

func TestDecodeLenientNumbers(t *testing.T) {
	b := interleaved(1).Bytes()
	b = edftest.Patch(b, 244, 8, "  n/a")
	b = edftest.Patch(b, 252, 4, "    ")
	b = edftest.Patch(b, 236, 8, "1x")

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, 0, file.Header.DataRecords)
	assert.Equal(t, 0.0, file.Header.DataRecordDuration)
	assert.Equal(t, 0, file.Header.SignalCount)
	assert.Empty(t, file.Signals)

	var stages []string
	for _, w := range file.Warnings {
		stages = append(stages, w.Stage)
	}
	assert.Contains(t, stages, "header")
}

func TestDecodeLenientSignalNumbers(t *testing.T) {
	b := interleaved(1).Bytes()

	// Physical minimum block of the first signal.
	offset := 256 + 2*16 + 2*80 + 2*8
	b = edftest.Patch(b, offset, 8, "abc")
	// Samples per record of the second signal written as a float.
	offset = 256 + 2*(16+80+8+8+8+8+8+80) + 8
	b = edftest.Patch(b, offset, 8, "3.0")

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, 0.0, file.Signals[0].PhysicalMin)
	assert.Equal(t, 3, file.Signals[1].SamplesPerRecord)
	require.Len(t, file.Warnings, 1)
	assert.Equal(t, "signals", file.Warnings[0].Stage)
}

func TestDecodeExponentNumbers(t *testing.T) {
	b := interleaved(1).Bytes()
	b = edftest.Patch(b, 252, 4, "1e6")
	b = edftest.Patch(b, 236, 8, "9e8")

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, 0, file.Header.SignalCount)
	assert.Equal(t, 0, file.Header.DataRecords)
	assert.Empty(t, file.Signals)
	require.Len(t, file.Warnings, 2)
	assert.Equal(t, "header", file.Warnings[0].Stage)
	assert.Equal(t, "header", file.Warnings[1].Stage)
}

func TestDecodeExponentSamplesPerRecord(t *testing.T) {
	b := interleaved(1).Bytes()
	offset := 256 + 2*(16+80+8+8+8+8+8+80)
	b = edftest.Patch(b, offset, 8, "1e3")

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, 0, file.Signals[0].SamplesPerRecord)
	assert.Equal(t, 3, file.Signals[1].SamplesPerRecord)
	require.Len(t, file.Warnings, 1)
	assert.Equal(t, "signals", file.Warnings[0].Stage)
}

func TestDecodeSignalCountBeyondBuffer(t *testing.T) {
	b := interleaved(1).Bytes()
	b = edftest.Patch(b, 252, 4, "9999")

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, 9999, file.Header.SignalCount)
	assert.Len(t, file.Signals, (len(b)-256+15)/16)
	assert.Equal(t, "Flow", file.Signals[0].Label)

	var messages []string
	for _, w := range file.Warnings {
		messages = append(messages, w.Message)
	}
	assert.Contains(t, strings.Join(messages, "\n"), "9999 signals declared")
}

func TestDecodeRecordCountBeyondBuffer(t *testing.T) {
	f := interleaved(2)
	f.DataRecords = 99999999

	file, err := edf.Decode(f.Bytes())
	require.NoError(t, err)

	assert.Equal(t, 99999999, file.Header.DataRecords)
	assert.Equal(t, []int{4, 6}, file.SampleCounts)
	assert.Equal(t, []float64{1, 2, 11, 12}, file.Samples[0])
	require.NotEmpty(t, file.Warnings)
	assert.Equal(t, "samples", file.Warnings[len(file.Warnings)-1].Stage)
}

func TestDecodeShortHeader(t *testing.T) {
	_, err := edf.Decode(make([]byte, 100))
	require.Error(t, err)

	var short *edf.ShortHeaderError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 100, short.Size)
}

func TestDecodeMissingSignalHeaders(t *testing.T) {
	b := interleaved(1).Bytes()[:300]

	file, err := edf.Decode(b)
	require.NoError(t, err)

	require.Len(t, file.Signals, 2)
	assert.Equal(t, "Flow", file.Signals[0].Label)
	assert.Equal(t, "Press", file.Signals[1].Label)
	assert.Empty(t, file.Signals[0].TransducerType)
	assert.Equal(t, 0, file.Signals[1].SamplesPerRecord)
	assert.Empty(t, file.Samples[0])
}

func TestDecodeDuplicateLabels(t *testing.T) {
	f := interleaved(1)
	f.Signals[1].Label = "Flow"

	file, err := edf.Decode(f.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2}, file.Data()["Flow"])
	assert.Equal(t, []float64{3, 4, 5}, file.Samples[1])
}

func TestDecodeFallbackDataOffset(t *testing.T) {
	b := edftest.Patch(interleaved(1).Bytes(), 184, 8, "")

	file, err := edf.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, 0, file.Header.HeaderBytes)
	assert.Equal(t, []float64{1, 2}, file.Samples[0])
}
