// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// searchPathEnv is the environment variable searched when a module is
// referenced by bare name.
const searchPathEnv = "PATH"

// resolveFullPath returns the absolute path to a module referenced by
// absolute path, relative path, or bare name. A bare name is resolved
// against the directories listed in searchPath, in order. The searchPath
// value uses the platform's list separator, as in the PATH environment
// variable.
func resolveFullPath(ref, searchPath string) (string, error) {
	if ref == "" {
		return "", ErrNotFound
	}

	if filepath.IsAbs(ref) {
		return ref, nil
	}

	if strings.ContainsRune(ref, filepath.Separator) {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return "", fmt.Errorf("error when resolving the path %s: %w", ref, err)
		}
		// Canonicalize, which also verifies the file exists.
		return filepath.EvalSymlinks(abs)
	}

	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, ref)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", ErrNotFound
}
