// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package session

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OpenPSG/cpap/edf"
)

// SubFile is the decoded content of one file of a session. When decoding
// failed only Err is set.
type SubFile struct {
	Header       *edf.Header          `json:"header,omitempty"`
	Signals      []string             `json:"signals,omitempty"`
	SampleCounts map[string]int       `json:"sampleCounts,omitempty"`
	Samples      map[string][]float64 `json:"rawData,omitempty"`
	Warnings     []edf.Warning        `json:"warnings,omitempty"`
	Err          string               `json:"error,omitempty"`
}

// Detail is the decoded content of all files of a session, keyed by type tag.
type Detail struct {
	ID        string             `json:"id"`
	Date      string             `json:"date"`
	Timestamp time.Time          `json:"timestamp"`
	Data      map[string]SubFile `json:"data"`
}

// DetailOptions control LoadDetail.
type DetailOptions struct {
	// Samples requests the calibrated samples of every signal. Otherwise only
	// headers and sample counts are reported.
	Samples bool
	// Workers bounds the number of files decoded at once. Zero means one per
	// CPU.
	Workers int
}

// LoadDetail decodes every file of s independently. A file that cannot be
// decoded is reported through its SubFile.Err and does not affect the others.
// The only error returned is the context error when ctx is cancelled before
// all files were decoded.
func LoadDetail(ctx context.Context, s *Session, opts DetailOptions) (*Detail, error) {
	detail := &Detail{
		ID:        s.ID,
		Date:      s.Date,
		Timestamp: s.Timestamp,
		Data:      make(map[string]SubFile, len(s.Files)),
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for tag, path := range s.Files {
		tag, path := tag, path
		g.Go(func() error {
			// Check for cancellation
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			sub := loadSubFile(path, opts.Samples)

			mu.Lock()
			detail.Data[tag] = sub
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

func loadSubFile(path string, samples bool) SubFile {
	var (
		f   *edf.File
		err error
	)
	if samples {
		f, err = edf.ReadFile(path)
	} else {
		f, err = edf.ReadFileHeaders(path)
	}
	if err != nil {
		return SubFile{Err: err.Error()}
	}

	hdr := f.Header
	sub := SubFile{
		Header:       &hdr,
		Signals:      f.Labels(),
		SampleCounts: f.Counts(),
		Warnings:     f.Warnings,
	}
	if samples {
		sub.Samples = f.Data()
	}
	return sub
}
