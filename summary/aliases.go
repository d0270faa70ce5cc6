// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package summary

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Aliases maps a statistic name to the raw signal labels that may carry it,
// in order of preference. Label vocabularies differ between device models and
// firmware versions, e.g. SpO2.Avg versus SpO2Avg.
type Aliases map[string][]string

// DefaultAliases returns the built in alias table.
func DefaultAliases() Aliases {
	return Aliases{
		"ahi":                    {"AHI"},
		"ai":                     {"AI"},
		"hi":                     {"HI"},
		"oai":                    {"OAI"},
		"cai":                    {"CAI"},
		"uai":                    {"UAI"},
		"duration":               {"Duration"},
		"onDuration":             {"OnDuration"},
		"patientHoursCumulative": {"PatientHours"},
		"leak50":                 {"Leak.50"},
		"leak95":                 {"Leak.95"},
		"leakMax":                {"Leak.Max"},
		"maskPress50":            {"MaskPress.50"},
		"maskPress95":            {"MaskPress.95"},
		"respRate50":             {"RespRate.50"},
		"respRate95":             {"RespRate.95"},
		"tidVol50":               {"TidVol.50"},
		"tidVol95":               {"TidVol.95"},
		"minVent50":              {"MinVent.50"},
		"minVent95":              {"MinVent.95"},
		"csr":                    {"CSR"},
		"rin":                    {"RIN"},
		"mode":                   {"Mode"},
		"pressure":               {"S.C.Press", "S.AS.MinPress"},
		"maxPressure":            {"S.AS.MaxPress", "S.C.Press"},
		"eprLevel":               {"S.EPR.Level"},
		"maskOn":                 {"MaskOn"},
		"maskOff":                {"MaskOff"},
		"spo2Avg":                {"SpO2.Avg", "SpO2Avg", "SpO2.50"},
		"spo2Min":                {"SpO2.Min", "SpO2Min"},
		"spo2Max":                {"SpO2.Max", "SpO2Max"},
		"pulseAvg":               {"Pulse.Avg", "PulseAvg", "Pulse.50"},
		"pulseMin":               {"Pulse.Min", "PulseMin"},
		"pulseMax":               {"Pulse.Max", "PulseMax"},
	}
}

// LoadAliases reads a YAML alias table and merges it over the defaults. Every
// statistic listed in the file replaces the default alias list for it.
//
//	pressure: [S.C.Press, S.AS.MinPress, S.A.StartPress]
//	spo2Avg: [SpO2.Avg, SpO2Avg]
func LoadAliases(r io.Reader) (Aliases, error) {
	var overrides Aliases
	if err := yaml.NewDecoder(r).Decode(&overrides); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error decoding alias table: %w", err)
	}

	aliases := DefaultAliases()
	for name, labels := range overrides {
		aliases[name] = labels
	}
	return aliases, nil
}

// LoadAliasesFile reads a YAML alias table from path. An empty path yields
// the defaults.
func LoadAliasesFile(path string) (Aliases, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadAliases(f)
}

// Value returns the first non-zero value among the aliases of name, or 0.
func (a Aliases) Value(values map[string]float64, name string) float64 {
	for _, label := range a[name] {
		if v := values[label]; v != 0 {
			return v
		}
	}
	return 0
}
