// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package summary

import "fmt"

// DayStats is a day of the summary projected onto named statistics. Fields
// whose signals are missing are 0.
type DayStats struct {
	Date                   string             `json:"date"`
	AHI                    float64            `json:"ahi"`
	AI                     float64            `json:"ai"`
	HI                     float64            `json:"hi"`
	OAI                    float64            `json:"oai"`
	CAI                    float64            `json:"cai"`
	UAI                    float64            `json:"uai"`
	Duration               float64            `json:"duration"`
	OnDuration             float64            `json:"onDuration"`
	UsageHours             float64            `json:"usageHours"`
	PatientHoursCumulative float64            `json:"patientHoursCumulative"`
	Leak50                 float64            `json:"leak50"`
	Leak95                 float64            `json:"leak95"`
	LeakMax                float64            `json:"leakMax"`
	MaskPress50            float64            `json:"maskPress50"`
	MaskPress95            float64            `json:"maskPress95"`
	RespRate50             float64            `json:"respRate50"`
	RespRate95             float64            `json:"respRate95"`
	TidVol50               float64            `json:"tidVol50"`
	TidVol95               float64            `json:"tidVol95"`
	MinVent50              float64            `json:"minVent50"`
	MinVent95              float64            `json:"minVent95"`
	CSR                    float64            `json:"csr"`
	RIN                    float64            `json:"rin"`
	Mode                   float64            `json:"mode"`
	Pressure               float64            `json:"pressure"`
	MaxPressure            float64            `json:"maxPressure"`
	EPRLevel               float64            `json:"eprLevel"`
	MaskOn                 float64            `json:"maskOn"`
	MaskOff                float64            `json:"maskOff"`
	SpO2Avg                float64            `json:"spo2Avg"`
	SpO2Min                float64            `json:"spo2Min"`
	SpO2Max                float64            `json:"spo2Max"`
	PulseAvg               float64            `json:"pulseAvg"`
	PulseMin               float64            `json:"pulseMin"`
	PulseMax               float64            `json:"pulseMax"`
	Raw                    map[string]float64 `json:"raw"`
}

func (d *DayStats) fields() map[string]*float64 {
	return map[string]*float64{
		"ahi":                    &d.AHI,
		"ai":                     &d.AI,
		"hi":                     &d.HI,
		"oai":                    &d.OAI,
		"cai":                    &d.CAI,
		"uai":                    &d.UAI,
		"duration":               &d.Duration,
		"onDuration":             &d.OnDuration,
		"patientHoursCumulative": &d.PatientHoursCumulative,
		"leak50":                 &d.Leak50,
		"leak95":                 &d.Leak95,
		"leakMax":                &d.LeakMax,
		"maskPress50":            &d.MaskPress50,
		"maskPress95":            &d.MaskPress95,
		"respRate50":             &d.RespRate50,
		"respRate95":             &d.RespRate95,
		"tidVol50":               &d.TidVol50,
		"tidVol95":               &d.TidVol95,
		"minVent50":              &d.MinVent50,
		"minVent95":              &d.MinVent95,
		"csr":                    &d.CSR,
		"rin":                    &d.RIN,
		"mode":                   &d.Mode,
		"pressure":               &d.Pressure,
		"maxPressure":            &d.MaxPressure,
		"eprLevel":               &d.EPRLevel,
		"maskOn":                 &d.MaskOn,
		"maskOff":                &d.MaskOff,
		"spo2Avg":                &d.SpO2Avg,
		"spo2Min":                &d.SpO2Min,
		"spo2Max":                &d.SpO2Max,
		"pulseAvg":               &d.PulseAvg,
		"pulseMin":               &d.PulseMin,
		"pulseMax":               &d.PulseMax,
	}
}

// UsageFunc returns the measured therapy minutes of the sleep night dated
// date (YYYY-MM-DD), if any sessions were recorded for it.
type UsageFunc func(date string) (minutes float64, ok bool)

// Stats projects every day through aliases. Usage comes from usage when it
// knows the night, and from the OnDuration counter of the summary file
// otherwise. Days with neither a Duration nor an OnDuration are dropped. A
// nil usage always falls back to OnDuration.
func (s *Summary) Stats(aliases Aliases, usage UsageFunc) []DayStats {
	if aliases == nil {
		aliases = DefaultAliases()
	}

	stats := make([]DayStats, 0, len(s.Days))
	for _, day := range s.Days {
		st := DayStats{
			Date: day.DateString(),
			Raw:  day.Values,
		}
		if st.Date == "" {
			st.Date = fmt.Sprintf("Day %d", day.Index+1)
		}

		for name, field := range st.fields() {
			*field = aliases.Value(day.Values, name)
		}

		minutes := st.OnDuration
		if usage != nil && day.HasDate {
			if m, ok := usage(st.Date); ok {
				minutes = m
			}
		}
		st.UsageHours = minutes / 60

		if st.Duration > 0 || st.OnDuration > 0 {
			stats = append(stats, st)
		}
	}

	return stats
}

// Averages holds mean values over a range of days.
type Averages struct {
	Days  int     `json:"days"`
	AHI   float64 `json:"ahi"`
	Usage float64 `json:"usage"` // hours
	Leak  float64 `json:"leak"`  // median leak
}

// Average computes means over the last n days of stats, which are in date
// order. A non-positive n averages all days.
func Average(stats []DayStats, n int) Averages {
	if n > 0 && len(stats) > n {
		stats = stats[len(stats)-n:]
	}

	avg := Averages{Days: len(stats)}
	if len(stats) == 0 {
		return avg
	}

	for _, st := range stats {
		avg.AHI += st.AHI
		avg.Usage += st.UsageHours
		avg.Leak += st.Leak50
	}
	count := float64(len(stats))
	avg.AHI /= count
	avg.Usage /= count
	avg.Leak /= count
	return avg
}
