// Copyright 2025 The coz Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package coz

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestIntervalContains(t *testing.T) {
	assert := assert.New(t)
	i := interval{low: 0x1000, high: 0x1010}

	assert.True(i.contains(0x1000), "The lower bound is included.")
	assert.True(i.contains(0x100f))
	assert.False(i.contains(0x1010), "The upper bound is excluded.")
	assert.False(i.contains(0xfff))

	shifted := i.shift(0x400000)
	assert.Equal(interval{low: 0x401000, high: 0x401010}, shifted)
}

func TestRangeMapFind(t *testing.T) {
	assert := assert.New(t)
	m := NewMemoryMap(newTestLogger())

	m.addRange("/home/app/a.c", 10, interval{low: 0x1000, high: 0x1010})
	m.addRange("/home/app/a.c", 11, interval{low: 0x1010, high: 0x1018})
	m.addRange("/home/app/b.c", 7, interval{low: 0x3000, high: 0x3004})

	for addr := uint64(0x1000); addr < 0x1010; addr++ {
		line := m.Find(addr)
		if assert.NotNil(line) {
			assert.Equal("/home/app/a.c:10", line.String())
		}
	}
	assert.Equal("/home/app/a.c:11", m.Find(0x1010).String())
	assert.Equal("/home/app/b.c:7", m.Find(0x3000).String())

	assert.Nil(m.Find(0xfff))
	assert.Nil(m.Find(0x1018))
	assert.Nil(m.Find(0x2000))
	assert.Nil(m.Find(0x3004))
}

func TestRangeMapOutOfOrderInsert(t *testing.T) {
	assert := assert.New(t)
	m := NewMemoryMap(newTestLogger())

	m.addRange("/home/app/a.c", 2, interval{low: 0x30, high: 0x40})
	m.addRange("/home/app/a.c", 1, interval{low: 0x10, high: 0x20})

	assert.Equal("/home/app/a.c:1", m.Find(0x10).String())
	assert.Equal("/home/app/a.c:2", m.Find(0x3f).String())
	assert.Nil(m.Find(0x20))
}

func TestRangeMapOverlapLastWriterWins(t *testing.T) {
	assert := assert.New(t)
	logger, hook := test.NewNullLogger()
	m := NewMemoryMap(logger)

	m.addRange("/home/app/a.c", 1, interval{low: 0x10, high: 0x20})
	m.addRange("/home/app/a.c", 2, interval{low: 0x18, high: 0x28})

	if assert.NotNil(hook.LastEntry(), "Overlap with a different line is diagnosed.") {
		assert.Equal(logrus.WarnLevel, hook.LastEntry().Level)
	}

	// The newest entry wins; the displaced one is gone entirely.
	assert.Equal("/home/app/a.c:2", m.Find(0x18).String())
	assert.Equal("/home/app/a.c:2", m.Find(0x27).String())
	assert.Nil(m.Find(0x10))
}

func TestRangeMapOverlapSameLineIsSilent(t *testing.T) {
	assert := assert.New(t)
	logger, hook := test.NewNullLogger()
	m := NewMemoryMap(logger)

	m.addRange("/home/app/a.c", 1, interval{low: 0x10, high: 0x20})
	m.addRange("/home/app/a.c", 1, interval{low: 0x10, high: 0x20})

	assert.Nil(hook.LastEntry(), "Re-adding the same line is not an overlap worth noting.")
	assert.Equal("/home/app/a.c:1", m.Find(0x10).String())
}

func TestRangeMapIgnoresEmptyInterval(t *testing.T) {
	assert := assert.New(t)
	m := NewMemoryMap(newTestLogger())

	m.addRange("/home/app/a.c", 1, interval{low: 0x10, high: 0x10})
	assert.Nil(m.Find(0x10))
	assert.Equal(0, m.ranges.len())
}

func TestFileLineIdentity(t *testing.T) {
	assert := assert.New(t)
	m := NewMemoryMap(newTestLogger())

	// The same logical file maps to one instance however referenced.
	a := m.file("/home/app/a.c")
	b := m.file("/home/app/../app/a.c")
	assert.Same(a, b)

	l1 := a.line(10)
	l2 := b.line(10)
	assert.Same(l1, l2)
	assert.Equal(10, l1.Number())
	assert.Same(a, l1.File())
	assert.Equal("/home/app/a.c", a.Name())
}

func newTestLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}
