// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import (
	"path/filepath"
	"strings"
)

// inScope reports whether the source file path falls under one of the
// scope roots. Both sides are normalized before comparison, and a root
// only matches at a path component boundary, so /a/b does not claim
// /ab/c. An empty scope list puts nothing in scope.
func inScope(path string, scope []string) bool {
	p := filepath.Clean(path)
	for _, root := range scope {
		root = filepath.Clean(root)
		if root == string(filepath.Separator) {
			if strings.HasPrefix(p, root) {
				return true
			}
			continue
		}
		if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
