// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import (
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"path/filepath"
)

const (
	// NT_GNU_BUILD_ID note type tag.
	noteTypeBuildID = 3

	// Directory holding debug images indexed by build ID.
	buildIDDebugDir = "/usr/lib/debug/.build-id"
)

// findBuildID scans the image's note sections for a GNU build ID note
// and returns its descriptor bytes.
func findBuildID(f *elf.File) ([]byte, error) {
	for _, section := range f.Sections {
		if section.Type != elf.SHT_NOTE {
			continue
		}
		data, err := section.Data()
		if err != nil {
			continue
		}
		id, err := parseBuildIDNote(data, f.ByteOrder)
		if err == nil {
			return id, nil
		}
	}
	return nil, ErrNoBuildID
}

// parseBuildIDNote walks the notes in data and returns the descriptor
// of the first build ID note. Each note is a 12 byte header holding the
// name size, descriptor size and type tag, followed by the name and the
// descriptor, both padded to 4 byte alignment.
func parseBuildIDNote(data []byte, order binary.ByteOrder) ([]byte, error) {
	offset := 0
	for offset+12 <= len(data) {
		nameSize := int(order.Uint32(data[offset:]))
		descSize := int(order.Uint32(data[offset+4:]))
		tag := order.Uint32(data[offset+8:])

		descStart := offset + 12 + align4(nameSize)
		descEnd := descStart + descSize
		if descStart < offset || descEnd > len(data) {
			return nil, ErrMalformedNote
		}

		if tag == noteTypeBuildID {
			return data[descStart:descEnd], nil
		}

		offset = descStart + align4(descSize)
	}
	return nil, ErrNoBuildID
}

// buildIDDebugPath returns the conventional location of the separate
// debug image for the given build ID: the first two hex characters name
// a directory, the remaining ones the file. An empty string is returned
// if the ID is too short to split.
func buildIDDebugPath(id []byte) string {
	if len(id) < 2 {
		return ""
	}
	hexID := hex.EncodeToString(id)
	return filepath.Join(buildIDDebugDir, hexID[:2], hexID[2:]+".debug")
}

func align4(n int) int {
	return (n + 3) &^ 3
}
