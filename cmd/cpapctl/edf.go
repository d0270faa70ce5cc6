// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OpenPSG/cpap/edf"
)

func headerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "header <file.edf>",
		Short: "Print the header and signal descriptions of an EDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := edf.ReadFileHeaders(args[0])
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), f)
			}
			return printFile(cmd.OutOrStdout(), f, 0)
		},
	}
}

// decoded is the JSON form of a decoded file.
type decoded struct {
	*edf.File
	Data map[string][]float64 `json:"data,omitempty"`
}

func decodeCmd(a *app) *cobra.Command {
	var samples int

	cmd := &cobra.Command{
		Use:   "decode <file.edf>",
		Short: "Decode an EDF file into calibrated samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := edf.ReadFile(args[0])
			if err != nil {
				return err
			}
			if a.json {
				out := decoded{File: f}
				if samples != 0 {
					out.Data = f.Data()
					if samples > 0 {
						for label, data := range out.Data {
							if len(data) > samples {
								out.Data[label] = data[:samples]
							}
						}
					}
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printFile(cmd.OutOrStdout(), f, samples)
		},
	}

	cmd.Flags().IntVarP(&samples, "samples", "n", 10, "samples printed per signal (-1 for all)")
	return cmd
}

func printFile(w io.Writer, f *edf.File, samples int) error {
	h := f.Header
	fmt.Fprintf(w, "version:     %s\n", h.Version)
	fmt.Fprintf(w, "patient:     %s\n", h.PatientID)
	fmt.Fprintf(w, "recording:   %s\n", h.RecordingID)
	if start, ok := h.Start(); ok {
		fmt.Fprintf(w, "start:       %s\n", start.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintf(w, "start:       %s %s\n", h.StartDate, h.StartTime)
	}
	fmt.Fprintf(w, "records:     %d x %gs\n", h.DataRecords, h.DataRecordDuration)
	fmt.Fprintf(w, "duration:    %s\n", h.Duration())
	fmt.Fprintf(w, "signals:     %d\n\n", h.SignalCount)

	counts := make([]int, len(f.Signals))
	copy(counts, f.SampleCounts)

	rows := [][]interface{}{{"#", "LABEL", "UNIT", "PHYSICAL", "DIGITAL", "SPR", "SAMPLES"}}
	for i, s := range f.Signals {
		rows = append(rows, []interface{}{
			i, s.Label, s.PhysicalDimension,
			fmt.Sprintf("%g..%g", s.PhysicalMin, s.PhysicalMax),
			fmt.Sprintf("%d..%d", s.DigitalMin, s.DigitalMax),
			s.SamplesPerRecord, counts[i],
		})
	}
	if err := printTable(w, rows); err != nil {
		return err
	}

	if len(f.Warnings) > 0 {
		fmt.Fprintln(w, "\nwarnings:")
		for _, warn := range f.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}

	if samples == 0 || f.Samples == nil {
		return nil
	}
	fmt.Fprintln(w)
	for i, s := range f.Signals {
		data := f.Samples[i]
		if samples > 0 && len(data) > samples {
			data = data[:samples]
		}
		fmt.Fprintf(w, "%s: %v\n", s.Label, data)
	}
	return nil
}
