// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config holds the settings shared by the command line tool and the
// API server. Values come from flags, CPAP_ environment variables and an
// optional YAML config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OpenPSG/cpap/session"
)

// Setting keys.
const (
	KeyConfig       = "config"
	KeyData         = "data"
	KeyDayStartHour = "day-start-hour"
	KeyDayEndHour   = "day-end-hour"
	KeyAliases      = "aliases"
	KeyAddress      = "address"
	KeyWorkers      = "workers"
	KeyRecentDays   = "recent-days"
	KeyLogLevel     = "log-level"
	KeyLogFormat    = "log-format"
	KeyWatchBackoff = "watch-backoff"
)

// Config is the resolved configuration.
type Config struct {
	Data         string        // Root of the device data card
	DayStartHour int           // Hour a sleep night starts
	DayEndHour   int           // Hour a sleep night ends
	Aliases      string        // Optional YAML alias table
	Address      string        // API listen address
	Workers      int           // Files decoded concurrently, 0 for one per CPU
	RecentDays   int           // Days included in overview averages
	LogLevel     string        // logrus level
	LogFormat    string        // text or json
	WatchBackoff time.Duration // Quiet time before reloading after changes
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyData, ".")
	v.SetDefault(KeyDayStartHour, session.DefaultDayStartHour)
	v.SetDefault(KeyDayEndHour, session.DefaultDayStartHour)
	v.SetDefault(KeyAliases, "")
	v.SetDefault(KeyAddress, "127.0.0.1:8888")
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyRecentDays, 30)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyWatchBackoff, 5*time.Second)

	v.SetEnvPrefix("cpap")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// AddFlags registers the persistent settings on flags and binds them to v.
func AddFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String(KeyConfig, "", "config file (default $XDG_CONFIG_HOME/cpap/config.yaml)")
	flags.StringP(KeyData, "d", v.GetString(KeyData), "root directory of the device data card")
	flags.Int(KeyDayStartHour, v.GetInt(KeyDayStartHour), "hour (0-23) at which a sleep night starts")
	flags.Int(KeyDayEndHour, v.GetInt(KeyDayEndHour), "hour (0-23) at which a sleep night ends")
	flags.String(KeyAliases, v.GetString(KeyAliases), "YAML file overriding summary label aliases")
	flags.IntP(KeyWorkers, "w", v.GetInt(KeyWorkers), "files decoded concurrently (0 = one per CPU)")
	flags.Int(KeyRecentDays, v.GetInt(KeyRecentDays), "days included in averages")
	flags.String(KeyLogLevel, v.GetString(KeyLogLevel), "log level (trace, debug, info, warn, error)")
	flags.String(KeyLogFormat, v.GetString(KeyLogFormat), "log format (text, json)")
	return v.BindPFlags(flags)
}

// ReadFile loads the config file named by the config setting, or the default
// one if it exists. A missing default file is not an error.
func ReadFile(v *viper.Viper) error {
	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", file, err)
		}
		return nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	v.SetConfigFile(filepath.Join(dir, "cpap", "config.yaml"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// Load resolves the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Data:         v.GetString(KeyData),
		DayStartHour: v.GetInt(KeyDayStartHour),
		DayEndHour:   v.GetInt(KeyDayEndHour),
		Aliases:      v.GetString(KeyAliases),
		Address:      v.GetString(KeyAddress),
		Workers:      v.GetInt(KeyWorkers),
		RecentDays:   v.GetInt(KeyRecentDays),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFormat:    v.GetString(KeyLogFormat),
		WatchBackoff: v.GetDuration(KeyWatchBackoff),
	}

	if err := c.Boundary().Validate(); err != nil {
		return nil, err
	}
	if c.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.WatchBackoff < 0 {
		return nil, fmt.Errorf("watch backoff must not be negative, got %s", c.WatchBackoff)
	}
	return c, nil
}

// Boundary returns the configured sleep night boundary.
func (c *Config) Boundary() session.Boundary {
	return session.Boundary{StartHour: c.DayStartHour, EndHour: c.DayEndHour}
}

// ConfigureLogging applies log level and format to the standard logrus
// logger.
func (c *Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)

	switch c.LogFormat {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format '%s'", c.LogFormat)
	}
	return nil
}
