// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package summary_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenPSG/cpap/internal/edftest"
	"github.com/OpenPSG/cpap/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsSummary(t *testing.T) *summary.Summary {
	t.Helper()

	f := edftest.Summary("05.01.24",
		[]string{"Duration", "OnDuration", "AHI", "Leak.50", "S.C.Press", "S.AS.MinPress", "SpO2Avg", "Pulse.50"},
		[][]int16{
			{480, 470, 3, 10, 0, 7, 95, 61},
			{0, 0, 9, 30, 0, 0, 0, 0},
			{300, 290, 5, 20, 11, 0, 0, 0},
		})

	s, err := summary.Decode(f.Bytes())
	require.NoError(t, err)
	return s
}

func TestStats(t *testing.T) {
	s := statsSummary(t)

	stats := s.Stats(nil, nil)
	require.Len(t, stats, 2)

	first := stats[0]
	assert.Equal(t, "2024-01-05", first.Date)
	assert.Equal(t, 3.0, first.AHI)
	assert.Equal(t, 10.0, first.Leak50)
	// S.C.Press is zero, so the next alias is used.
	assert.Equal(t, 7.0, first.Pressure)
	assert.Equal(t, 0.0, first.MaxPressure)
	assert.Equal(t, 95.0, first.SpO2Avg)
	assert.Equal(t, 61.0, first.PulseAvg)
	assert.InDelta(t, 470.0/60, first.UsageHours, 1e-9)
	assert.Equal(t, 480.0, first.Raw["Duration"])

	second := stats[1]
	assert.Equal(t, "2024-01-07", second.Date)
	assert.Equal(t, 11.0, second.Pressure)
	assert.Equal(t, 11.0, second.MaxPressure)
}

func TestStatsUsage(t *testing.T) {
	s := statsSummary(t)

	usage := func(date string) (float64, bool) {
		if date == "2024-01-07" {
			return 330, true
		}
		return 0, false
	}

	stats := s.Stats(summary.DefaultAliases(), usage)
	require.Len(t, stats, 2)
	assert.InDelta(t, 470.0/60, stats[0].UsageHours, 1e-9)
	assert.InDelta(t, 5.5, stats[1].UsageHours, 1e-9)
}

func TestStatsWithoutDates(t *testing.T) {
	f := edftest.Summary("", []string{"Duration"}, [][]int16{{10}})
	s, err := summary.Decode(f.Bytes())
	require.NoError(t, err)

	stats := s.Stats(nil, func(string) (float64, bool) { return 999, true })
	require.Len(t, stats, 1)
	assert.Equal(t, "Day 1", stats[0].Date)
	assert.Zero(t, stats[0].UsageHours)
}

func TestLoadAliases(t *testing.T) {
	aliases, err := summary.LoadAliases(strings.NewReader(`
pressure: [S.A.StartPress]
custom: [X.Y]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"S.A.StartPress"}, aliases["pressure"])
	assert.Equal(t, []string{"X.Y"}, aliases["custom"])
	assert.Equal(t, []string{"AHI"}, aliases["ahi"])

	values := map[string]float64{"S.C.Press": 9, "S.A.StartPress": 5}
	assert.Equal(t, 5.0, aliases.Value(values, "pressure"))
	assert.Equal(t, 0.0, aliases.Value(values, "unknown"))
}

func TestLoadAliasesFile(t *testing.T) {
	aliases, err := summary.LoadAliasesFile("")
	require.NoError(t, err)
	assert.Equal(t, summary.DefaultAliases(), aliases)

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spo2Avg: [SpO2]\n"), 0o644))

	aliases, err = summary.LoadAliasesFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SpO2"}, aliases["spo2Avg"])

	_, err = summary.LoadAliases(strings.NewReader("pressure: {"))
	assert.Error(t, err)
}

func TestAverage(t *testing.T) {
	stats := []summary.DayStats{
		{AHI: 10, UsageHours: 2, Leak50: 30},
		{AHI: 2, UsageHours: 6, Leak50: 10},
		{AHI: 4, UsageHours: 8, Leak50: 20},
	}

	avg := summary.Average(stats, 2)
	assert.Equal(t, 2, avg.Days)
	assert.InDelta(t, 3.0, avg.AHI, 1e-9)
	assert.InDelta(t, 7.0, avg.Usage, 1e-9)
	assert.InDelta(t, 15.0, avg.Leak, 1e-9)

	assert.Equal(t, 3, summary.Average(stats, 0).Days)
	assert.Equal(t, summary.Averages{}, summary.Average(nil, 30))
}
