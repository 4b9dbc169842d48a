// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import (
	"fmt"
	"strings"

	"github.com/prometheus/procfs"
)

// loadedModules returns the path and load address of every executable
// file mapped into the calling process. With includeLibs false only the
// first executable mapping, the main executable, is returned.
func loadedModules(includeLibs bool) (map[string]uint64, error) {
	proc, err := procfs.Self()
	if err != nil {
		return nil, fmt.Errorf("error when opening the process's procfs entry: %w", err)
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return nil, fmt.Errorf("error when reading the process's mappings: %w", err)
	}
	return executableMappings(maps, includeLibs), nil
}

// executableMappings filters mapping records down to the ones that load
// a binary image: mapped executable, at file offset zero, and backed by
// an absolute path. Anonymous mappings and additional mappings of an
// already seen file do not qualify.
func executableMappings(maps []*procfs.ProcMap, includeLibs bool) map[string]uint64 {
	modules := make(map[string]uint64)
	for _, pm := range maps {
		if !includeLibs && len(modules) == 1 {
			break
		}
		if pm.Offset != 0 || pm.Perms == nil || !pm.Perms.Execute {
			continue
		}
		if !strings.HasPrefix(pm.Pathname, "/") {
			continue
		}
		modules[pm.Pathname] = uint64(pm.StartAddr)
	}
	return modules
}
