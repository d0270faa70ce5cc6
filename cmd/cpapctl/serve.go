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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/OpenPSG/cpap/internal/api"
	"github.com/OpenPSG/cpap/internal/config"
	"github.com/OpenPSG/cpap/internal/watch"
)

func serveCmd(a *app) *cobra.Command {
	var watchCard bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the data card's statistics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := a.loadCard(ctx)
			if err != nil {
				return err
			}
			srv := api.New(c, version)

			var w *watch.Watcher
			if watchCard {
				if w, err = watch.New(a.cfg.Data); err != nil {
					return err
				}
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Serve(ctx, a.cfg.Address)
			})
			if w != nil {
				g.Go(func() error {
					return w.Run(ctx, a.cfg.WatchBackoff, func() error {
						log.WithField("path", a.cfg.Data).Info("data card changed, reloading")
						return srv.Reload(ctx)
					})
				})
			}

			return g.Wait()
		},
	}

	flags := cmd.Flags()
	flags.StringP(config.KeyAddress, "a", a.v.GetString(config.KeyAddress), "listen address")
	flags.Duration(config.KeyWatchBackoff, a.v.GetDuration(config.KeyWatchBackoff), "quiet time before reloading a changed card")
	flags.BoolVar(&watchCard, "watch", false, "reload the card when files below it change")
	if err := a.v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return cmd
}
