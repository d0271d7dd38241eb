package layout

import (
	"github.com/ByLCY/docbuilder/address"
)

type column struct {
	lines []Line
}

type page struct {
	headings []Line
	columns  []column
}

// position locates a line; line is the index within the column or the heading list.
type position struct {
	page, column, line int
	heading            bool
}

func (p position) address() address.Address {
	if p.heading {
		return address.Heading(p.page, p.line)
	}
	return address.Line(p.page, p.column, p.line)
}

// Document 是页面、分栏与行的索引化存储。Key→位置索引在每次拼接后
// 只对受影响的分栏（或标题列表）增量重建。
//
// 对外只返回值副本，调用方不能持有指向内部结构的引用。
type Document struct {
	orientation Orientation
	numColumns  int
	pages       []*page
	index       map[string]position
}

func newDocument(o Orientation, numColumns int) *Document {
	return &Document{
		orientation: o,
		numColumns:  numColumns,
		index:       map[string]position{},
	}
}

func (d *Document) Orientation() Orientation { return d.orientation }
func (d *Document) NumColumns() int          { return d.numColumns }
func (d *Document) NumPages() int            { return len(d.pages) }

// Lookup resolves a line key to its current address.
func (d *Document) Lookup(key string) (address.Address, bool) {
	pos, ok := d.index[key]
	if !ok {
		return address.Address{}, false
	}
	return pos.address(), true
}

// HasColumn reports whether the column address resolves.
func (d *Document) HasColumn(col address.Address) bool {
	if col.Kind == address.KindPage || col.Page < 0 || col.Page >= len(d.pages) {
		return false
	}
	return col.Column >= 0 && col.Column < d.numColumns
}

// Line returns a copy of the addressed line.
func (d *Document) Line(a address.Address) (Line, bool) {
	pos, ok := d.position(a)
	if !ok {
		return Line{}, false
	}
	return *d.ref(pos), true
}

// ColumnLines returns a copy of the lines of a column.
func (d *Document) ColumnLines(col address.Address) ([]Line, bool) {
	if !d.HasColumn(col) {
		return nil, false
	}
	src := d.pages[col.Page].columns[col.Column].lines
	return append([]Line(nil), src...), true
}

// Headings returns a copy of a page's heading lines.
func (d *Document) Headings(pageIndex int) ([]Line, bool) {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return nil, false
	}
	return append([]Line(nil), d.pages[pageIndex].headings...), true
}

// Snapshot copies the whole document.
func (d *Document) Snapshot(meta DocumentMeta) Snapshot {
	snap := Snapshot{
		Orientation: d.orientation,
		Columns:     d.numColumns,
		Meta:        meta,
		Pages:       make([]PageSnapshot, 0, len(d.pages)),
	}
	for _, p := range d.pages {
		ps := PageSnapshot{Headings: append([]Line(nil), p.headings...)}
		for _, c := range p.columns {
			ps.Columns = append(ps.Columns, append([]Line(nil), c.lines...))
		}
		snap.Pages = append(snap.Pages, ps)
	}
	return snap
}

// position converts an address to a validated position.
func (d *Document) position(a address.Address) (position, bool) {
	if a.Kind != address.KindLine || a.Page < 0 || a.Page >= len(d.pages) || a.Line < 0 {
		return position{}, false
	}
	p := d.pages[a.Page]
	if a.IsHeading() {
		if a.Line >= len(p.headings) {
			return position{}, false
		}
		return position{page: a.Page, line: a.Line, heading: true}, true
	}
	if a.Column < 0 || a.Column >= d.numColumns || a.Line >= len(p.columns[a.Column].lines) {
		return position{}, false
	}
	return position{page: a.Page, column: a.Column, line: a.Line}, true
}

// ref must only be used within a single mutation; the pointer is invalidated by any splice.
func (d *Document) ref(pos position) *Line {
	p := d.pages[pos.page]
	if pos.heading {
		return &p.headings[pos.line]
	}
	return &p.columns[pos.column].lines[pos.line]
}

func (d *Document) appendPage(fill func(col int) []Line) int {
	p := &page{columns: make([]column, d.numColumns)}
	d.pages = append(d.pages, p)
	idx := len(d.pages) - 1
	for c := range p.columns {
		if fill != nil {
			p.columns[c].lines = fill(c)
		}
		d.reindexColumn(idx, c)
	}
	return idx
}

func (d *Document) insertLines(col address.Address, at int, lines ...Line) bool {
	if !d.HasColumn(col) {
		return false
	}
	c := &d.pages[col.Page].columns[col.Column]
	if at < 0 || at > len(c.lines) {
		return false
	}
	out := make([]Line, 0, len(c.lines)+len(lines))
	out = append(out, c.lines[:at]...)
	out = append(out, lines...)
	out = append(out, c.lines[at:]...)
	c.lines = out
	d.reindexColumn(col.Page, col.Column)
	return true
}

func (d *Document) removeLines(col address.Address, at, n int) []Line {
	if !d.HasColumn(col) || n <= 0 {
		return nil
	}
	c := &d.pages[col.Page].columns[col.Column]
	if at < 0 || at+n > len(c.lines) {
		return nil
	}
	removed := append([]Line(nil), c.lines[at:at+n]...)
	c.lines = append(c.lines[:at], c.lines[at+n:]...)
	for _, l := range removed {
		delete(d.index, l.Key)
	}
	d.reindexColumn(col.Page, col.Column)
	return removed
}

func (d *Document) insertHeading(pageIndex, at int, line Line) bool {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return false
	}
	p := d.pages[pageIndex]
	if at < 0 || at > len(p.headings) {
		return false
	}
	line.Heading = true
	p.headings = append(p.headings[:at], append([]Line{line}, p.headings[at:]...)...)
	d.reindexHeadings(pageIndex)
	return true
}

func (d *Document) removeHeading(pageIndex, at int) (Line, bool) {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return Line{}, false
	}
	p := d.pages[pageIndex]
	if at < 0 || at >= len(p.headings) {
		return Line{}, false
	}
	removed := p.headings[at]
	p.headings = append(p.headings[:at], p.headings[at+1:]...)
	delete(d.index, removed.Key)
	d.reindexHeadings(pageIndex)
	return removed, true
}

func (d *Document) reindexColumn(p, c int) {
	for i, l := range d.pages[p].columns[c].lines {
		d.index[l.Key] = position{page: p, column: c, line: i}
	}
}

func (d *Document) reindexHeadings(p int) {
	for i, l := range d.pages[p].headings {
		d.index[l.Key] = position{page: p, line: i, heading: true}
	}
}
