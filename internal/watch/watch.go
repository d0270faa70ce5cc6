// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package watch reports changes below a data card directory, so that a
// server can reload the card after the device or a card reader has written
// to it.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher watches a directory tree. Directories created below the root after
// New are added to the watch as they appear.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
}

// New creates a watcher for the tree rooted at dir. Nothing is reported
// until Run is called.
func New(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: dir, watcher: fw}
	if err := filepath.WalkDir(dir, w.walk); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) walk(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if !d.IsDir() {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		log.Errorf("error adding watch for directory '%s': %v", path, err)
		return err
	}
	log.WithField("path", path).Debug("starting directory watch")
	return nil
}

// Run calls changed once the tree has been quiet for backoff after one or
// more changes, so a card being copied file by file is reloaded only once.
// changed runs on the calling goroutine. Run returns when ctx is done, and
// closes the watcher.
func (w *Watcher) Run(ctx context.Context, backoff time.Duration, changed func() error) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			log.Errorf("could not close file watcher: %v", err)
		}
	}()

	// Stopped until the first event arms it.
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debug("directory watcher stopping")
			return nil

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("directory watcher closed")
			}
			w.handleEvent(evt)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(backoff)

		case err, ok := <-w.watcher.Errors:
			if ok {
				log.Errorf("directory watcher error: %v", err)
			}

		case <-timer.C:
			if err := changed(); err != nil {
				log.Errorf("error handling change in %s: %v", w.root, err)
			}
		}
	}
}

func (w *Watcher) handleEvent(evt fsnotify.Event) {
	log.WithFields(log.Fields{"path": evt.Name, "op": evt.Op}).Debug("handling event")
	if evt.Op&fsnotify.Create != fsnotify.Create {
		return
	}
	// New date directories may already hold files by the time the watch is
	// added; those are picked up by the reload this event triggers.
	if err := filepath.WalkDir(evt.Name, w.walk); err != nil {
		log.Debugf("not watching %s: %v", evt.Name, err)
	}
}
