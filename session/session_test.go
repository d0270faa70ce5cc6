// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/cpap/edf"
	"github.com/OpenPSG/cpap/internal/edftest"
	"github.com/OpenPSG/cpap/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waveform(records int) edftest.File {
	f := edftest.File{
		StartDate:      "05.01.24",
		StartTime:      "23.00.00",
		RecordDuration: 60,
		Signals: []edftest.Signal{
			{Label: "Flow.40ms", PhysicalMin: -2, PhysicalMax: 2, DigitalMin: -1000, DigitalMax: 1000, SamplesPerRecord: 3},
			{Label: "Press.40ms", PhysicalMin: 0, PhysicalMax: 20, DigitalMin: 0, DigitalMax: 1000, SamplesPerRecord: 1},
		},
	}
	for r := 0; r < records; r++ {
		f.Records = append(f.Records, [][]int16{{-1000, 0, 1000}, {500}})
	}
	return f
}

func TestParseFileName(t *testing.T) {
	id, tag, ok := session.ParseFileName("20240105_230000_BRP.edf")
	require.True(t, ok)
	assert.Equal(t, "20240105_230000", id)
	assert.Equal(t, "BRP", tag)

	for _, name := range []string{
		"STR.edf",
		"20240105_230000_BRP.crc",
		"20240105_230000_B.edf",
		"20240105_230000_TOOLONG.edf",
		"2024010_230000_BRP.edf",
	} {
		_, _, ok := session.ParseFileName(name)
		assert.False(t, ok, name)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := session.ParseTimestamp("20240106_013015")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.January, 6, 1, 30, 15, 0, time.UTC), ts)

	_, ok = session.ParseTimestamp("20241306_013015")
	assert.False(t, ok)

	_, ok = session.ParseTimestamp("x")
	assert.False(t, ok)
}

func TestGroup(t *testing.T) {
	dir := filepath.Join("DATALOG", "20240105")
	sessions := session.Group(dir, []string{
		"20240105_230000_PLD.edf",
		"20240105_230000_BRP.edf",
		"20240105_230000_EVE.edf",
		"20240105_180000_BRP.edf",
		"20240105_230000_BRP.crc",
		"notes.txt",
	})

	require.Len(t, sessions, 2)
	assert.Equal(t, "20240105_180000", sessions[0].ID)
	assert.Equal(t, "20240105_230000", sessions[1].ID)

	s := sessions[1]
	assert.Equal(t, "20240105", s.Date)
	assert.True(t, s.HasTimestamp)
	assert.Equal(t, 23, s.Timestamp.Hour())
	assert.Equal(t, []string{"BRP", "EVE", "PLD"}, s.Tags())
	assert.Equal(t, filepath.Join(dir, "20240105_230000_PLD.edf"), s.Files[session.TypeDetail])

	assert.True(t, session.IsDateDir("20240105"))
	assert.False(t, session.IsDateDir("2024-01-05"))
}

func TestDurationMinutes(t *testing.T) {
	assert.Equal(t, 90.0, session.DurationMinutes(edf.Header{DataRecords: 90, DataRecordDuration: 60}))
	assert.Equal(t, 0.0, session.DurationMinutes(edf.Header{DataRecords: -1, DataRecordDuration: 60}))

	path := filepath.Join(t.TempDir(), "20240105_230000_BRP.edf")
	require.NoError(t, waveform(45).WriteFile(path))

	minutes, err := session.FileDurationMinutes(path)
	require.NoError(t, err)
	assert.Equal(t, 45.0, minutes)

	_, err = session.FileDurationMinutes(filepath.Join(t.TempDir(), "missing.edf"))
	assert.ErrorIs(t, err, edf.ErrNotFound)
}

func TestLoadDetail(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "20240105")
	require.NoError(t, waveform(2).WriteFile(filepath.Join(dir, "20240105_230000_BRP.edf")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20240105_230000_EVE.edf"), []byte("corrupt"), 0o644))

	sessions := session.Group(dir, []string{
		"20240105_230000_BRP.edf",
		"20240105_230000_EVE.edf",
		"20240105_230000_PLD.edf",
	})
	require.Len(t, sessions, 1)

	detail, err := session.LoadDetail(context.Background(), sessions[0], session.DetailOptions{})
	require.NoError(t, err)

	assert.Equal(t, "20240105_230000", detail.ID)
	assert.Equal(t, "20240105", detail.Date)
	require.Len(t, detail.Data, 3)

	brp := detail.Data[session.TypeWaveform]
	assert.Empty(t, brp.Err)
	require.NotNil(t, brp.Header)
	assert.Equal(t, 2, brp.Header.DataRecords)
	assert.Equal(t, []string{"Flow.40ms", "Press.40ms"}, brp.Signals)
	assert.Equal(t, map[string]int{"Flow.40ms": 6, "Press.40ms": 2}, brp.SampleCounts)
	assert.Nil(t, brp.Samples)

	eve := detail.Data[session.TypeEvents]
	assert.Nil(t, eve.Header)
	assert.Contains(t, eve.Err, "shorter than")

	pld := detail.Data[session.TypeDetail]
	assert.Contains(t, pld.Err, "not found")
}

func TestLoadDetailSamples(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "20240105")
	require.NoError(t, waveform(2).WriteFile(filepath.Join(dir, "20240105_230000_BRP.edf")))

	sessions := session.Group(dir, []string{"20240105_230000_BRP.edf"})
	detail, err := session.LoadDetail(context.Background(), sessions[0], session.DetailOptions{Samples: true, Workers: 1})
	require.NoError(t, err)

	brp := detail.Data[session.TypeWaveform]
	assert.Equal(t, []float64{-2, 0, 2, -2, 0, 2}, brp.Samples["Flow.40ms"])
	assert.Equal(t, []float64{10, 10}, brp.Samples["Press.40ms"])
}

func TestLoadDetailCancelled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "20240105")
	require.NoError(t, waveform(1).WriteFile(filepath.Join(dir, "20240105_230000_BRP.edf")))
	sessions := session.Group(dir, []string{"20240105_230000_BRP.edf"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := session.LoadDetail(ctx, sessions[0], session.DetailOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
