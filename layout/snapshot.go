package layout

import (
	"fmt"

	"github.com/ByLCY/docbuilder/address"
	"github.com/ByLCY/docbuilder/style"
)

// Restore rebuilds an engine from a snapshot. Orientation, column count and
// metadata come from the snapshot; lines without a key, or repeating a key seen
// earlier in reading order, get a fresh one. Columns
// that no longer fit the configured geometry are settled.
func Restore(snap Snapshot, opts Options) (*Engine, error) {
	opts.Orientation = snap.Orientation
	opts.Columns = snap.Columns
	opts.Meta = snap.Meta
	e, err := New(opts)
	if err != nil {
		return nil, err
	}
	if len(snap.Pages) == 0 {
		return e, nil
	}

	doc := newDocument(snap.Orientation, snap.Columns)
	seen := map[string]bool{}
	for i, ps := range snap.Pages {
		if len(ps.Columns) != snap.Columns {
			return nil, fmt.Errorf("第 %d 页有 %d 栏，应为 %d", i, len(ps.Columns), snap.Columns)
		}
		for _, l := range ps.Headings {
			if err := style.ValidateSize(l.Style.FontSize); err != nil {
				return nil, fmt.Errorf("第 %d 页标题: %w", i, err)
			}
		}
		for c, lines := range ps.Columns {
			for _, l := range lines {
				if err := style.ValidateSize(l.Style.FontSize); err != nil {
					return nil, fmt.Errorf("第 %d 页第 %d 栏: %w", i, c, err)
				}
			}
		}
		headings := e.withKeys(ps.Headings, true, seen)
		idx := doc.appendPage(func(c int) []Line {
			return e.withKeys(ps.Columns[c], false, seen)
		})
		for j, h := range headings {
			doc.insertHeading(idx, j, h)
		}
	}
	e.doc = doc

	ed := e.begin()
	for p := range doc.pages {
		ed.touch(e.pageColumns(p)...)
	}
	e.settle(ed)
	return e, nil
}

func (e *Engine) withKeys(lines []Line, heading bool, seen map[string]bool) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		if seen[l.Key] {
			e.log.Warn("layout: duplicate line key in snapshot", "line", l.Key)
			l.Key = ""
		}
		for l.Key == "" || seen[l.Key] {
			l.Key = e.newKey()
		}
		seen[l.Key] = true
		l.Heading = heading
		out[i] = l
	}
	return out
}

// Columns lists every column address in reading order.
func (e *Engine) Columns() []address.Address {
	var out []address.Address
	for p := range e.doc.pages {
		out = append(out, e.pageColumns(p)...)
	}
	return out
}
