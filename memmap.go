// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

// Package coz maps machine instruction addresses of a running process
// back to the source lines they were compiled from, restricted to a
// set of in-scope source trees. It locates the debug information of
// every loaded module, following the build ID and debug link
// conventions when the information is stored separately, and builds a
// queryable map from address ranges to source lines. Address ranges of
// library code inlined into application code are attributed to the
// call site, so samples landing there are charged to the application
// line that invoked it.
package coz

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// MemoryMap maps process addresses to the source lines in scope. It is
// populated exactly once by Build; afterwards it is immutable, and Find
// and FindByName are safe to call concurrently without locking.
type MemoryMap struct {
	files  map[string]*File
	ranges rangeMap
	log    logrus.FieldLogger
}

// NewMemoryMap returns an empty map logging through log. A nil log
// falls back to the standard logger.
func NewMemoryMap(log logrus.FieldLogger) *MemoryMap {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MemoryMap{
		files:  make(map[string]*File),
		ranges: rangeMap{log: log},
		log:    log,
	}
}

// Build populates the map from every module loaded into the calling
// process. Only lines under one of the scope roots are recorded. With
// includeLibs false only the main executable is examined. A module
// whose debug information cannot be located or parsed is logged and
// skipped; it never aborts the build. Build is expected to run once,
// from a single thread, before any lookup.
func (m *MemoryMap) Build(scope []string, includeLibs bool) error {
	modules, err := loadedModules(includeLibs)
	if err != nil {
		return fmt.Errorf("error when enumerating the loaded modules: %w", err)
	}

	for name, loadAddr := range modules {
		if err := m.processModule(name, loadAddr, scope); err != nil {
			m.log.Warnf("unable to locate debug information for %s: %v", name, err)
			continue
		}
		m.log.Infof("including lines from %s", name)
	}
	return nil
}

func (m *MemoryMap) processModule(ref string, loadAddr uint64, scope []string) error {
	f, err := locateDebugImage(ref, os.Getenv(searchPathEnv), m.log)
	if err != nil {
		return err
	}
	defer f.Close()

	d, err := f.DWARF()
	if err != nil {
		return fmt.Errorf("error when reading the DWARF data: %w", err)
	}
	m.processDwarf(d, loadAddr, scope)
	return nil
}

// Find returns the source line whose address range contains addr, or
// nil if the address is not covered by any recorded range.
func (m *MemoryMap) Find(addr uint64) *Line {
	if l, ok := m.ranges.find(addr); ok {
		return l
	}
	return nil
}

// FindByName looks up a line by a "file:line" name, where file matches
// any known source file whose path ends with it. Nil is returned if
// the name does not parse or no matching line was recorded.
func (m *MemoryMap) FindByName(name string) *Line {
	fileName, lineStr, ok := strings.Cut(name, ":")
	if !ok {
		m.log.Warnf("could not identify file name in input %s", name)
		return nil
	}
	number, err := strconv.Atoi(lineStr)
	if err != nil {
		m.log.Warnf("could not parse line number in input %s", name)
		return nil
	}

	for path, f := range m.files {
		if !strings.HasSuffix(path, fileName) {
			continue
		}
		if l, ok := f.Line(number); ok {
			return l
		}
	}
	return nil
}

// Files returns every source file referenced by the recorded ranges.
func (m *MemoryMap) Files() []*File {
	files := make([]*File, 0, len(m.files))
	for _, f := range m.files {
		files = append(files, f)
	}
	return files
}

// addRange records that the addresses in ival belong to the given
// source line, creating the file and line records on first reference.
func (m *MemoryMap) addRange(fileName string, number int, ival interval) {
	f := m.file(fileName)
	m.ranges.add(ival, f.line(number))
}

func (m *MemoryMap) file(name string) *File {
	name = filepath.Clean(name)
	f, ok := m.files[name]
	if !ok {
		f = &File{name: name, lines: make(map[int]*Line)}
		m.files[name] = f
	}
	return f
}
