// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors.Is for any NotFoundError.
var ErrNotFound = errors.New("edf file not found")

// NotFoundError is returned when the file to decode does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: edf file not found", e.Path)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ShortHeaderError is returned when a buffer cannot hold the fixed header.
type ShortHeaderError struct {
	Size int
}

func (e *ShortHeaderError) Error() string {
	return fmt.Sprintf("buffer of %d bytes is shorter than the %d byte edf header", e.Size, headerSize)
}

// Warning represents a non-fatal issue encountered while decoding. Decoding
// never fails on these, the affected value is defaulted instead.
type Warning struct {
	Stage   string `json:"stage"` // "header", "signals", "samples"
	Message string `json:"message"`
	Offset  int64  `json:"offset,omitempty"`
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("%s (at offset %d): %s", w.Stage, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}
