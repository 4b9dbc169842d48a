// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import (
	"bytes"
	"debug/elf"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// locateDebugImage returns an open ELF image holding debug information
// for the module referenced by ref. If the module's own image has no
// debug information embedded, the conventional locations for a separate
// debug image are probed: the build ID path first, then the three debug
// link paths. The caller owns the returned file and must close it.
// ErrNoDebugInfo is returned when no usable image exists anywhere on
// the search path; this is a routine outcome, not a failure.
func locateDebugImage(ref, searchPath string, log logrus.FieldLogger) (*elf.File, error) {
	fullPath, err := resolveFullPath(ref, searchPath)
	if err != nil {
		return nil, err
	}

	f, err := elf.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("error when parsing the ELF file %s: %w", fullPath, err)
	}

	if hasDebugInfo(f) {
		return f, nil
	}

	candidates := debugImageCandidates(f, fullPath)
	f.Close()

	for _, candidate := range candidates {
		g, err := elf.Open(candidate)
		if err != nil {
			log.Debugf("skipping debug image candidate %s: %v", candidate, err)
			continue
		}
		if hasDebugInfo(g) {
			log.Debugf("found separate debug image %s for %s", candidate, fullPath)
			return g, nil
		}
		g.Close()
	}

	return nil, ErrNoDebugInfo
}

// debugImageCandidates lists the locations where a separate debug image
// for the given module may live, in probe order.
func debugImageCandidates(f *elf.File, modulePath string) []string {
	var candidates []string

	if id, err := findBuildID(f); err == nil {
		if p := buildIDDebugPath(id); p != "" {
			candidates = append(candidates, p)
		}
	}

	if name, err := readDebugLink(f); err == nil {
		candidates = append(candidates, debugLinkCandidates(modulePath, name)...)
	}

	return candidates
}

// readDebugLink returns the file name embedded in the image's
// .gnu_debuglink section. The section holds a null-terminated name
// followed by a CRC of the linked file, which is not verified here.
func readDebugLink(f *elf.File) (string, error) {
	section := f.Section(".gnu_debuglink")
	if section == nil {
		return "", ErrNoDebugLink
	}
	data, err := section.Data()
	if err != nil {
		return "", fmt.Errorf("error when reading the debug link section: %w", err)
	}
	end := bytes.IndexByte(data, 0)
	if end <= 0 {
		return "", ErrNoDebugLink
	}
	return string(data[:end]), nil
}

// debugLinkCandidates returns the three conventional locations of a
// debug link target, in the order they are to be tried.
func debugLinkCandidates(modulePath, linkName string) []string {
	dir := filepath.Dir(modulePath)
	return []string{
		filepath.Join(dir, linkName),
		filepath.Join(dir, ".debug", linkName),
		filepath.Join("/usr/lib/debug", dir, linkName),
	}
}

func hasDebugInfo(f *elf.File) bool {
	return f.Section(".debug_info") != nil || f.Section(".zdebug_info") != nil
}
