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
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenPSG/cpap/internal/card"
	"github.com/OpenPSG/cpap/session"
	"github.com/OpenPSG/cpap/summary"
)

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print device information and daily statistics of the data card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCard(cmd.Context())
			if err != nil {
				return err
			}
			overview := c.Overview()
			if a.json {
				return printJSON(cmd.OutOrStdout(), overview)
			}

			w := cmd.OutOrStdout()
			if d := overview.Device; d != nil {
				fmt.Fprintf(w, "device:    %s (%s)\n", d.ProductName, d.ProductCode)
				fmt.Fprintf(w, "serial:    %s\n", d.SerialNumber)
				fmt.Fprintf(w, "firmware:  %s\n", d.FirmwareVersion)
			} else {
				fmt.Fprintf(w, "device:    %s\n", overview.DeviceErr)
			}
			if overview.SummaryErr != "" {
				fmt.Fprintf(w, "summary:   %s\n", overview.SummaryErr)
				return nil
			}

			avg := overview.Averages
			fmt.Fprintf(w, "days:      %d\n", overview.TotalDays)
			fmt.Fprintf(w, "last %d:   AHI %.2f, usage %.2fh, leak %.2f\n\n",
				avg.Days, avg.AHI, avg.Usage, avg.Leak)

			return printDays(cmd, overview.DailyStats)
		},
	}
}

func printDays(cmd *cobra.Command, days []summary.DayStats) error {
	rows := [][]interface{}{{"DATE", "USAGE", "AHI", "LEAK50", "PRESSURE"}}
	for _, d := range days {
		rows = append(rows, []interface{}{
			d.Date,
			fmt.Sprintf("%.2fh", d.UsageHours),
			fmt.Sprintf("%.2f", d.AHI),
			fmt.Sprintf("%.2f", d.Leak50),
			fmt.Sprintf("%.1f", d.MaskPress50),
		})
	}
	return printTable(cmd.OutOrStdout(), rows)
}

func sessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions recorded on the data card, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCard(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), c.Sessions)
			}

			rows := [][]interface{}{{"ID", "DATE", "DURATION", "FILES"}}
			for _, s := range c.Sessions {
				rows = append(rows, []interface{}{
					s.ID, s.Date,
					fmt.Sprintf("%.1fmin", s.DurationMinutes),
					strings.Join(s.Tags(), ","),
				})
			}
			return printTable(cmd.OutOrStdout(), rows)
		},
	}
}

func sessionCmd(a *app) *cobra.Command {
	var samples bool

	cmd := &cobra.Command{
		Use:   "session <id>",
		Short: "Decode all files of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCard(cmd.Context())
			if err != nil {
				return err
			}
			detail, err := c.SessionDetail(cmd.Context(), args[0], samples)
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), detail)
			}
			return printDetail(cmd, c, detail)
		},
	}

	cmd.Flags().BoolVarP(&samples, "samples", "s", false, "include calibrated samples (JSON only)")
	return cmd
}

func printDetail(cmd *cobra.Command, c *card.Card, detail *session.Detail) error {
	s, ok := c.Session(detail.ID)
	if !ok {
		return &card.SessionNotFoundError{ID: detail.ID}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "session:   %s\n", detail.ID)
	fmt.Fprintf(w, "started:   %s\n", detail.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "duration:  %.1fmin\n\n", s.DurationMinutes)

	rows := [][]interface{}{{"FILE", "SIGNAL", "SAMPLES"}}
	for _, tag := range s.Tags() {
		sub := detail.Data[tag]
		if sub.Err != "" {
			rows = append(rows, []interface{}{tag, "error: " + sub.Err, ""})
			continue
		}
		for _, label := range sub.Signals {
			rows = append(rows, []interface{}{tag, label, sub.SampleCounts[label]})
		}
	}
	return printTable(w, rows)
}

func nightsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "nights",
		Short: "Print therapy usage per sleep night",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCard(cmd.Context())
			if err != nil {
				return err
			}
			nights := session.SortedNights(c.Nights)
			if a.json {
				return printJSON(cmd.OutOrStdout(), nights)
			}

			rows := [][]interface{}{{"NIGHT", "USAGE", "SESSIONS"}}
			for _, n := range nights {
				rows = append(rows, []interface{}{
					n.Date,
					fmt.Sprintf("%.2fh", n.TotalMinutes/60),
					n.SessionCount,
				})
			}
			return printTable(cmd.OutOrStdout(), rows)
		},
	}
}
