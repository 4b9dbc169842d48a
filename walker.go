package coz

import (
	"debug/dwarf"
	"fmt"
	"io"

	"github.com/ianlancetaylor/demangle"
)

// maxOriginDepth bounds abstract origin and specification reference
// chains; malformed input can make them cyclic.
const maxOriginDepth = 16

// processDwarf walks the debug information of one module and merges the
// address ranges of every in-scope source line into the map. Each
// compilation unit contributes its line table and the inlined call
// sites found in its declaration tree. A malformed unit or node only
// loses its own facts.
func (m *MemoryMap) processDwarf(d *dwarf.Data, loadAddr uint64, scope []string) {
	r := d.Reader()
	var files []*dwarf.LineFile
	for {
		e, err := r.Next()
		if err != nil {
			m.log.Warnf("aborting debug info walk: %v", err)
			return
		}
		if e == nil {
			return
		}

		switch e.Tag {
		case dwarf.TagCompileUnit:
			files = nil
			lr, err := d.LineReader(e)
			if err != nil {
				m.log.Debugf("skipping line table of unit at offset 0x%x: %v", e.Offset, err)
				continue
			}
			if lr == nil {
				// Unit without a line table.
				continue
			}
			files = lr.Files()
			rows, err := collectLineEntries(lr)
			if err != nil {
				m.log.Debugf("truncated line table of unit at offset 0x%x: %v", e.Offset, err)
			}
			m.addLineRanges(rows, scope, loadAddr)

		case dwarf.TagInlinedSubroutine:
			m.processInline(d, e, files, scope, loadAddr)
		}
	}
}

func collectLineEntries(lr *dwarf.LineReader) ([]dwarf.LineEntry, error) {
	var rows []dwarf.LineEntry
	for {
		var e dwarf.LineEntry
		err := lr.Next(&e)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, e)
	}
}

// addLineRanges folds consecutive line table rows into address ranges.
// Row i opens the range [addr_i, addr_i+1) attributed to its own file
// and line; an end of sequence row closes the running sequence without
// opening a range.
func (m *MemoryMap) addLineRanges(rows []dwarf.LineEntry, scope []string, loadAddr uint64) {
	var prev *dwarf.LineEntry
	for i := range rows {
		row := &rows[i]
		if prev != nil && prev.File != nil && inScope(prev.File.Name, scope) {
			m.addRange(prev.File.Name, prev.Line,
				interval{low: prev.Address, high: row.Address}.shift(loadAddr))
		}
		if row.EndSequence {
			prev = nil
		} else {
			prev = row
		}
	}
}

// processInline attributes the address ranges of an inlined subroutine
// to its call site. This only happens when the call site is in scope
// but the inlined function's declaration file is not: time spent in
// inlined library code is then charged to the application line that
// invoked it, since the library code has no presence of its own in
// scope.
func (m *MemoryMap) processInline(d *dwarf.Data, e *dwarf.Entry, files []*dwarf.LineFile, scope []string, loadAddr uint64) {
	declFile := lineFileName(files, resolveAttrValue(d, e, dwarf.AttrDeclFile))
	callFile := lineFileName(files, e.Val(dwarf.AttrCallFile))
	callLine, _ := e.Val(dwarf.AttrCallLine).(int64)
	if declFile == "" || callFile == "" {
		return
	}
	if inScope(declFile, scope) || !inScope(callFile, scope) {
		return
	}

	ranges, err := inlineRanges(d, e)
	if err != nil {
		m.log.Debugf("skipping inlined subroutine at offset 0x%x: %v", e.Offset, err)
		return
	}
	if len(ranges) == 0 {
		return
	}
	for _, r := range ranges {
		m.addRange(callFile, int(callLine), interval{low: r[0], high: r[1]}.shift(loadAddr))
	}
	m.log.Debugf("attributed inlined %s to %s:%d", inlineName(d, e), callFile, callLine)
}

// inlineRanges returns the address ranges covered by an inlined
// subroutine, either from its range list or from a low and high pc
// attribute pair. Depending on the format version the high pc is an
// address or an offset from the low pc.
func inlineRanges(d *dwarf.Data, e *dwarf.Entry) ([][2]uint64, error) {
	if carrier, _ := resolveAttr(d, e, dwarf.AttrRanges, 0); carrier != nil {
		// Ranges reads the attribute off the entry handed to it, so pass
		// the entry that actually carries it.
		return d.Ranges(carrier)
	}

	_, lowField := resolveAttr(d, e, dwarf.AttrLowpc, 0)
	_, highField := resolveAttr(d, e, dwarf.AttrHighpc, 0)
	if lowField == nil || highField == nil {
		return nil, nil
	}
	low, ok := lowField.Val.(uint64)
	if !ok {
		return nil, fmt.Errorf("unexpected low pc value %v", lowField.Val)
	}

	var high uint64
	switch highField.Class {
	case dwarf.ClassAddress:
		high, ok = highField.Val.(uint64)
		if !ok {
			return nil, fmt.Errorf("unexpected high pc value %v", highField.Val)
		}
	case dwarf.ClassConstant:
		offset, ok := highField.Val.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected high pc value %v", highField.Val)
		}
		high = low + uint64(offset)
	default:
		return nil, fmt.Errorf("unexpected high pc form %v", highField.Class)
	}
	return [][2]uint64{{low, high}}, nil
}

// resolveAttr returns the attribute field of the entry, following
// abstract origin and specification references when the entry itself
// does not carry the attribute. The entry that carries the field is
// returned alongside it.
func resolveAttr(d *dwarf.Data, e *dwarf.Entry, attr dwarf.Attr, depth int) (*dwarf.Entry, *dwarf.Field) {
	if e == nil || depth > maxOriginDepth {
		return nil, nil
	}
	if f := e.AttrField(attr); f != nil {
		return e, f
	}
	for _, ref := range [...]dwarf.Attr{dwarf.AttrAbstractOrigin, dwarf.AttrSpecification} {
		off, ok := e.Val(ref).(dwarf.Offset)
		if !ok {
			continue
		}
		if carrier, f := resolveAttr(d, entryAt(d, off), attr, depth+1); f != nil {
			return carrier, f
		}
	}
	return nil, nil
}

func resolveAttrValue(d *dwarf.Data, e *dwarf.Entry, attr dwarf.Attr) interface{} {
	if _, f := resolveAttr(d, e, attr, 0); f != nil {
		return f.Val
	}
	return nil
}

func entryAt(d *dwarf.Data, off dwarf.Offset) *dwarf.Entry {
	r := d.Reader()
	r.Seek(off)
	e, err := r.Next()
	if err != nil {
		return nil
	}
	return e
}

// lineFileName maps a file index attribute value into the unit's file
// table. An out of range or missing index yields "". Index 0 is reserved
// in DWARF 2 through 4, where the reader leaves files[0] nil; in DWARF 5
// it names the unit's primary file and is resolved like any other index.
func lineFileName(files []*dwarf.LineFile, v interface{}) string {
	idx, ok := v.(int64)
	if !ok {
		return ""
	}
	if idx < 0 || idx >= int64(len(files)) || files[idx] == nil {
		return ""
	}
	return files[idx].Name
}

func inlineName(d *dwarf.Data, e *dwarf.Entry) string {
	name, ok := resolveAttrValue(d, e, dwarf.AttrName).(string)
	if !ok {
		return "?"
	}
	return demangle.Filter(name)
}
