// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package session groups the per-session EDF files a device writes into its
// DATALOG directory and decodes them.
//
// Session files are named <timestamp>_<TYPE>.edf, where the timestamp is
// YYYYMMDD_HHMMSS and TYPE tags the content, for example BRP (breathing
// waveforms), PLD (pressure and leak), SAD (oximetry), EVE (events) and CSL
// (session log). Files sharing a timestamp inside one date directory belong
// to the same session.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/OpenPSG/cpap/edf"
)

// Well known file type tags.
const (
	TypeWaveform = "BRP"
	TypeDetail   = "PLD"
	TypeOximetry = "SAD"
	TypeEvents   = "EVE"
	TypeLog      = "CSL"
)

var (
	fileNameRe  = regexp.MustCompile(`^(\d{8}_\d{6})_([A-Za-z0-9]{2,5})\.edf$`)
	timestampRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})$`)
	dateDirRe   = regexp.MustCompile(`^\d{8}$`)
)

// ParseFileName splits a session file name into session id and type tag.
func ParseFileName(name string) (id, tag string, ok bool) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ParseTimestamp interprets a session id (YYYYMMDD_HHMMSS) as a wall clock
// time, expressed in UTC.
func ParseTimestamp(id string) (time.Time, bool) {
	if !timestampRe.MatchString(id) {
		return time.Time{}, false
	}
	ts, err := time.Parse("20060102_150405", id)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// IsDateDir reports whether name looks like a DATALOG date directory
// (YYYYMMDD).
func IsDateDir(name string) bool {
	return dateDirRe.MatchString(name)
}

// Session is one therapy session.
type Session struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // Date directory the files were found in
	Timestamp time.Time `json:"timestamp"`
	// HasTimestamp is false if the id could not be interpreted.
	HasTimestamp bool `json:"-"`
	// Files maps type tags to file paths.
	Files           map[string]string `json:"files"`
	DurationMinutes float64           `json:"durationMinutes"`
}

// Tags returns the file type tags of the session, sorted.
func (s *Session) Tags() []string {
	tags := make([]string, 0, len(s.Files))
	for tag := range s.Files {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Group builds the sessions of one date directory from the names of the
// files in it. Names not following the session file pattern are ignored.
// Sessions are returned in id order. Durations are not filled in.
func Group(dir string, names []string) []*Session {
	date := filepath.Base(dir)
	byID := make(map[string]*Session)

	for _, name := range names {
		id, tag, ok := ParseFileName(name)
		if !ok {
			continue
		}

		s, ok := byID[id]
		if !ok {
			s = &Session{
				ID:    id,
				Date:  date,
				Files: make(map[string]string),
			}
			s.Timestamp, s.HasTimestamp = ParseTimestamp(id)
			byID[id] = s
		}
		s.Files[tag] = filepath.Join(dir, name)
	}

	sessions := make([]*Session, 0, len(byID))
	for _, s := range byID {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// DurationMinutes returns the recording length declared by an EDF header:
// number of data records times record duration.
func DurationMinutes(hdr edf.Header) float64 {
	if hdr.DataRecords <= 0 {
		return 0
	}
	return float64(hdr.DataRecords) * hdr.DataRecordDuration / 60
}

// FileDurationMinutes reads the header of the EDF file at path and returns
// its declared duration.
func FileDurationMinutes(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &edf.NotFoundError{Path: path}
		}
		return 0, err
	}
	defer f.Close()

	r, err := edf.Open(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return DurationMinutes(r.Header()), nil
}
