// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import "errors"

var (
	// ErrNotFound is returned if a module reference could not be resolved
	// to an existing file on disk.
	ErrNotFound = errors.New("file not found")
	// ErrNoDebugInfo is returned if no image with debug information could
	// be located for a module.
	ErrNoDebugInfo = errors.New("no debug information located")
	// ErrNoBuildID is returned if the image carries no GNU build ID note.
	ErrNoBuildID = errors.New("no build ID note")
	// ErrMalformedNote is returned if a note section cannot be decoded.
	ErrMalformedNote = errors.New("malformed note section")
	// ErrNoDebugLink is returned if the image has no debug link section.
	ErrNoDebugLink = errors.New("no debug link section")
)
