// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// interval is a half-open address range [low, high) in process address
// space.
type interval struct {
	low  uint64
	high uint64
}

func (i interval) contains(addr uint64) bool {
	return addr >= i.low && addr < i.high
}

// shift returns the interval offset by a module's load address.
func (i interval) shift(loadAddr uint64) interval {
	return interval{low: i.low + loadAddr, high: i.high + loadAddr}
}

func (i interval) String() string {
	return fmt.Sprintf("[0x%x, 0x%x)", i.low, i.high)
}

// File is one source file and the lines referenced from debug
// information. Files are created lazily and keyed by normalized path,
// so the same logical file is always represented by one instance.
type File struct {
	name  string
	lines map[int]*Line
}

// Name returns the normalized path of the file.
func (f *File) Name() string {
	return f.name
}

// Line returns the recorded line with the given number, if any.
func (f *File) Line(number int) (*Line, bool) {
	l, ok := f.lines[number]
	return l, ok
}

// line returns the Line record for the given number, creating it on
// first reference.
func (f *File) line(number int) *Line {
	l, ok := f.lines[number]
	if !ok {
		l = &Line{file: f, number: number}
		f.lines[number] = l
	}
	return l
}

// Line is a single source line. The same Line instance is shared by
// every address range that refers to it, whether from straight line
// code or from an inlined call site, and by both lookup paths.
type Line struct {
	file   *File
	number int
}

// File returns the file the line belongs to.
func (l *Line) File() *File {
	return l.file
}

// Number returns the line number.
func (l *Line) Number() int {
	return l.number
}

func (l *Line) String() string {
	return fmt.Sprintf("%s:%d", l.file.name, l.number)
}

// rangeMap maps disjoint address intervals to source lines. Entries are
// kept sorted by address so point queries are a binary search. Inserts
// tolerate overlap: the newest entry wins and displaced entries are
// dropped, with a warning when the displaced line differs.
type rangeMap struct {
	entries []rangeEntry
	log     logrus.FieldLogger
}

type rangeEntry struct {
	ival interval
	line *Line
}

func (m *rangeMap) add(ival interval, line *Line) {
	if ival.low >= ival.high {
		return
	}

	// First entry ending after the new range starts.
	i := sort.Search(len(m.entries), func(n int) bool {
		return m.entries[n].ival.high > ival.low
	})

	// Entries in [i, j) overlap the new range and get displaced.
	j := i
	for j < len(m.entries) && m.entries[j].ival.low < ival.high {
		if m.entries[j].line != line {
			m.log.Warnf("overlapping entries for lines %s and %s at %s",
				line, m.entries[j].line, ival)
		}
		j++
	}

	if i == len(m.entries) {
		m.entries = append(m.entries, rangeEntry{ival: ival, line: line})
		return
	}

	tail := append([]rangeEntry{{ival: ival, line: line}}, m.entries[j:]...)
	m.entries = append(m.entries[:i], tail...)
}

// find returns the line whose interval contains addr.
func (m *rangeMap) find(addr uint64) (*Line, bool) {
	i := sort.Search(len(m.entries), func(n int) bool {
		return m.entries[n].ival.high > addr
	})
	if i < len(m.entries) && m.entries[i].ival.contains(addr) {
		return m.entries[i].line, true
	}
	return nil, false
}

func (m *rangeMap) len() int {
	return len(m.entries)
}
