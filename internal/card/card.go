// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package card loads the data a CPAP device stores on its memory card: the
// device identification, the daily summary file and the per-session files
// below DATALOG.
package card

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/OpenPSG/cpap/edf"
	"github.com/OpenPSG/cpap/session"
	"github.com/OpenPSG/cpap/summary"
)

// File and directory names on the card.
const (
	IdentificationFile = "Identification.tgt"
	SummaryFile        = "STR.edf"
	DataLogDir         = "DATALOG"
)

// MaxListedSessions is the number of most recent sessions in an Overview.
const MaxListedSessions = 50

// Options control Load.
type Options struct {
	Boundary   session.Boundary
	Aliases    summary.Aliases
	Workers    int // Session headers read concurrently, 0 for one per CPU
	RecentDays int // Days included in averages
}

// DefaultOptions returns the noon to noon boundary, the built in alias table
// and 30 day averages.
func DefaultOptions() Options {
	return Options{
		Boundary:   session.DefaultBoundary(),
		Aliases:    summary.DefaultAliases(),
		RecentDays: 30,
	}
}

// Card is the loaded content of a data card. It is not modified after Load
// except through SetBoundary, which the caller must not run concurrently with
// readers.
type Card struct {
	Path string
	opts Options

	Device       *Device
	DeviceErr    string
	Summary      *summary.Summary
	SummaryErr   string
	Sessions     []*session.Session // Newest date directory first
	Nights       map[string]*session.Night
	LoadDuration time.Duration
}

// Load reads the card rooted at path. Missing or unreadable parts are
// recorded on the card and loading continues; only cancellation of ctx and
// failure to list an existing DATALOG directory are returned as errors.
func Load(ctx context.Context, path string, opts Options) (*Card, error) {
	start := time.Now()
	logger := log.WithField("path", path)

	if opts.Aliases == nil {
		opts.Aliases = summary.DefaultAliases()
	}

	c := &Card{Path: path, opts: opts}

	device, err := ReadDevice(filepath.Join(path, IdentificationFile))
	if err != nil {
		logger.Warnf("cannot read device identification: %v", err)
		c.DeviceErr = errorText(err, "Identification file not found")
	}
	c.Device = device

	s, err := summary.ReadFile(filepath.Join(path, SummaryFile))
	if err != nil {
		logger.Warnf("cannot read daily summary: %v", err)
		c.SummaryErr = errorText(err, "STR.edf not found")
	}
	c.Summary = s

	if c.Sessions, err = loadSessions(ctx, filepath.Join(path, DataLogDir), opts.Workers); err != nil {
		return nil, err
	}
	c.Nights = session.Nights(c.Sessions, opts.Boundary.StartHour)

	c.LoadDuration = time.Since(start)
	logger.WithFields(log.Fields{
		"sessions": len(c.Sessions),
		"nights":   len(c.Nights),
		"duration": c.LoadDuration,
	}).Info("card loaded")

	return c, nil
}

func errorText(err error, notFound string) string {
	if errors.Is(err, edf.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return notFound
	}
	return err.Error()
}

// loadSessions scans the date directories below dir, newest first, and reads
// the duration of every session from its waveform header.
func loadSessions(ctx context.Context, dir string, workers int) ([]*session.Session, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("dir", dir).Debug("no session directory")
			return nil, nil
		}
		return nil, fmt.Errorf("error listing %s: %w", dir, err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() && session.IsDateDir(e.Name()) {
			dates = append(dates, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var sessions []*session.Session
	for _, date := range dates {
		dateDir := filepath.Join(dir, date)
		files, err := os.ReadDir(dateDir)
		if err != nil {
			log.Errorf("error listing %s: %v", dateDir, err)
			continue
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() {
				names = append(names, f.Name())
			}
		}
		sessions = append(sessions, session.Group(dateDir, names)...)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, s := range sessions {
		s := s
		path, ok := s.Files[session.TypeWaveform]
		if !ok {
			continue
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			minutes, err := session.FileDurationMinutes(path)
			if err != nil {
				log.WithField("session", s.ID).Warnf("cannot read session duration: %v", err)
				return nil
			}
			s.DurationMinutes = minutes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Options returns the options the card was loaded with.
func (c *Card) Options() Options {
	return c.opts
}

// SetBoundary regroups the sessions into sleep nights using b.
func (c *Card) SetBoundary(b session.Boundary) error {
	if err := b.Validate(); err != nil {
		return err
	}
	c.opts.Boundary = b
	c.Nights = session.Nights(c.Sessions, b.StartHour)
	return nil
}

// Session returns the session with the given id.
func (c *Card) Session(id string) (*session.Session, bool) {
	for _, s := range c.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Usage reports measured sleep night minutes, for summary.Summary.Stats.
func (c *Card) Usage(date string) (float64, bool) {
	if n, ok := c.Nights[date]; ok {
		return n.TotalMinutes, true
	}
	return 0, false
}

// DailyStats projects the summary days onto named statistics, preferring
// measured session usage over the summary's own usage counter.
func (c *Card) DailyStats() []summary.DayStats {
	if c.Summary == nil {
		return nil
	}
	return c.Summary.Stats(c.opts.Aliases, c.Usage)
}

// SessionDetail decodes all files of the session with the given id.
func (c *Card) SessionDetail(ctx context.Context, id string, samples bool) (*session.Detail, error) {
	s, ok := c.Session(id)
	if !ok {
		return nil, &SessionNotFoundError{ID: id}
	}
	return session.LoadDetail(ctx, s, session.DetailOptions{Samples: samples, Workers: c.opts.Workers})
}

// SessionNotFoundError is returned for unknown session ids.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

// Overview summarizes the card.
type Overview struct {
	Device     *Device            `json:"deviceInfo,omitempty"`
	DeviceErr  string             `json:"deviceError,omitempty"`
	SummaryErr string             `json:"summaryError,omitempty"`
	TotalDays  int                `json:"totalDays"`
	RecentDays int                `json:"recentDays"`
	Averages   summary.Averages   `json:"averages"`
	DailyStats []summary.DayStats `json:"dailyStats"`
	Sessions   []*session.Session `json:"sessions"`
	Boundary   session.Boundary   `json:"boundary"`
}

// Overview returns the device, the daily statistics with recent averages and
// the most recent sessions.
func (c *Card) Overview() *Overview {
	stats := c.DailyStats()
	avg := summary.Average(stats, c.opts.RecentDays)

	sessions := c.Sessions
	if len(sessions) > MaxListedSessions {
		sessions = sessions[:MaxListedSessions]
	}

	return &Overview{
		Device:     c.Device,
		DeviceErr:  c.DeviceErr,
		SummaryErr: c.SummaryErr,
		TotalDays:  len(stats),
		RecentDays: avg.Days,
		Averages:   avg,
		DailyStats: stats,
		Sessions:   sessions,
		Boundary:   c.opts.Boundary,
	}
}
