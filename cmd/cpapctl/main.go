// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Command cpapctl inspects the EDF files a CPAP device writes to its memory
// card, and serves a card's statistics over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OpenPSG/cpap/internal/card"
	"github.com/OpenPSG/cpap/internal/config"
	"github.com/OpenPSG/cpap/summary"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// app carries the state shared by all commands.
type app struct {
	v    *viper.Viper
	cfg  *config.Config
	json bool
}

func rootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "cpapctl",
		Short:         "Inspect CPAP data cards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadFile(a.v); err != nil {
				return err
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			if err := cfg.ConfigureLogging(); err != nil {
				return err
			}
			log.SetOutput(cmd.ErrOrStderr())
			a.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	if err := config.AddFlags(a.v, flags); err != nil {
		// Only fails on a nil flag set.
		panic(err)
	}
	flags.BoolVar(&a.json, "json", false, "print JSON instead of text")

	root.AddCommand(
		headerCmd(a),
		decodeCmd(a),
		summaryCmd(a),
		sessionsCmd(a),
		sessionCmd(a),
		nightsCmd(a),
		serveCmd(a),
		versionCmd(a),
	)
	return root
}

// loadCard loads the configured data card.
func (a *app) loadCard(ctx context.Context) (*card.Card, error) {
	aliases, err := summary.LoadAliasesFile(a.cfg.Aliases)
	if err != nil {
		return nil, err
	}
	return card.Load(ctx, a.cfg.Data, card.Options{
		Boundary:   a.cfg.Boundary(),
		Aliases:    aliases,
		Workers:    a.cfg.Workers,
		RecentDays: a.cfg.RecentDays,
	})
}

func printJSON(w io.Writer, obj interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(obj)
}

// printTable writes tab separated rows aligned into columns.
func printTable(w io.Writer, rows [][]interface{}) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
