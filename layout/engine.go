package layout

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ByLCY/docbuilder/address"
	"github.com/ByLCY/docbuilder/style"
)

var (
	// ErrNotFound 表示标识无法解析到现存节点。
	ErrNotFound = errors.New("layout: node not found")
	// ErrCapacityExceeded 表示页面无法再容纳请求的内容。
	ErrCapacityExceeded = errors.New("layout: capacity exceeded")
)

// ColumnState 是分栏在一次操作内的重排状态。
type ColumnState int

const (
	Stable ColumnState = iota
	PendingInsert
	PendingRemove
)

func (s ColumnState) String() string {
	switch s {
	case PendingInsert:
		return "pending-insert"
	case PendingRemove:
		return "pending-remove"
	default:
		return "stable"
	}
}

// Engine 持有一个编辑会话的全部状态：文档、焦点行与各栏状态。
// 所有操作同步完成，返回前各栏都回到 Stable。Engine 不是并发安全的。
type Engine struct {
	doc      *Document
	geo      Geometry
	cap      Capacity
	tm       *TextMetrics
	notifier Notifier
	log      *slog.Logger
	newKey   KeyGenerator
	meta     DocumentMeta

	focused string
	states  map[address.Address]ColumnState
}

// New creates an engine with a freshly filled document.
func New(opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.Geometry.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Geometry.ValidateColumns(opts.Columns); err != nil {
		return nil, err
	}
	tm, err := NewTextMetrics(opts.Measurer, opts.Geometry.TabWidth)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		geo:      opts.Geometry,
		cap:      NewCapacity(opts.Geometry, opts.LineHeight, opts.Logger),
		tm:       tm,
		notifier: opts.Notifier,
		log:      opts.Logger,
		newKey:   opts.KeyGen,
		meta:     opts.Meta,
		states:   map[address.Address]ColumnState{},
	}
	e.reset(opts.Orientation, opts.Columns)
	return e, nil
}

// Reset discards all content and rebuilds the document with a new orientation
// and column count.
func (e *Engine) Reset(o Orientation, columns int) error {
	if err := e.geo.ValidateColumns(columns); err != nil {
		e.log.Error("layout: reset rejected", "columns", columns, "error", err)
		return err
	}
	e.reset(o, columns)
	return nil
}

func (e *Engine) reset(o Orientation, columns int) {
	e.doc = newDocument(o, columns)
	e.focused = ""
	e.states = map[address.Address]ColumnState{}
	for i := 0; i < e.geo.InitialPages; i++ {
		e.appendPage()
	}
}

// Document exposes the read-only view of the document.
func (e *Engine) Document() *Document { return e.doc }

// Capacity returns the capacity model the engine enforces.
func (e *Engine) Capacity() Capacity { return e.cap }

// Metrics returns the text metrics the engine measures with.
func (e *Engine) Metrics() *TextMetrics { return e.tm }

// Geometry returns the engine's geometry.
func (e *Engine) Geometry() Geometry { return e.geo }

// Meta returns the document metadata.
func (e *Engine) Meta() DocumentMeta { return e.meta }

// SetMeta replaces the document metadata.
func (e *Engine) SetMeta(m DocumentMeta) { e.meta = m }

// Snapshot copies the document for export or persistence.
func (e *Engine) Snapshot() Snapshot { return e.doc.Snapshot(e.meta) }

// Resolve accepts either an encoded address or a line key.
func (e *Engine) Resolve(id string) (address.Address, bool) {
	pos, ok := e.resolve(id)
	if !ok {
		return address.Address{}, false
	}
	return pos.address(), true
}

// Line returns a copy of the line identified by an address or key.
func (e *Engine) Line(id string) (Line, bool) {
	pos, ok := e.resolve(id)
	if !ok {
		return Line{}, false
	}
	return *e.doc.ref(pos), true
}

// Has reports whether a line key is still live.
func (e *Engine) Has(key string) bool {
	_, ok := e.doc.index[key]
	return ok
}

func (e *Engine) resolve(id string) (position, bool) {
	if id == "" {
		e.log.Error("layout: blank line id")
		return position{}, false
	}
	if a, err := address.Parse(id); err == nil {
		if pos, ok := e.doc.position(a); ok {
			return pos, true
		}
	} else if pos, ok := e.doc.index[id]; ok {
		return pos, true
	}
	e.log.Warn("layout: line not found", "id", id)
	return position{}, false
}

// Focus marks a line as holding the cursor. Focused lines are never removed
// when reclaiming capacity.
func (e *Engine) Focus(id string) error {
	pos, ok := e.resolve(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.focused = e.doc.ref(pos).Key
	return nil
}

// Blur clears the focus.
func (e *Engine) Blur() { e.focused = "" }

// Focused returns the key of the focused line, or "".
func (e *Engine) Focused() string {
	if e.focused != "" && !e.Has(e.focused) {
		e.focused = ""
	}
	return e.focused
}

// State returns the reflow state of a column.
func (e *Engine) State(col address.Address) ColumnState {
	return e.states[address.Column(col.Page, col.Column)]
}

func (e *Engine) setState(col address.Address, s ColumnState) {
	col = address.Column(col.Page, col.Column)
	if e.states[col] == s {
		return
	}
	e.log.Debug("layout: column state", "column", col.String(), "from", e.states[col].String(), "to", s.String())
	if s == Stable {
		delete(e.states, col)
		return
	}
	e.states[col] = s
}

// IsColumnEmpty reports whether every line of the column is blank.
func (e *Engine) IsColumnEmpty(col address.Address) bool {
	lines, ok := e.doc.ColumnLines(col)
	if !ok {
		e.log.Warn("layout: column not found", "column", col.String())
		return false
	}
	for _, l := range lines {
		if !l.Blank() {
			return false
		}
	}
	return true
}

func (e *Engine) blankLine(st style.Style) Line {
	return Line{Key: e.newKey(), Style: st}
}

func (e *Engine) appendPage() int {
	n := e.cap.MaxLines(e.doc.orientation)
	return e.doc.appendPage(func(int) []Line {
		lines := make([]Line, n)
		for i := range lines {
			lines[i] = e.blankLine(style.Default())
		}
		return lines
	})
}

// pageColumns lists every column address of a page.
func (e *Engine) pageColumns(pageIndex int) []address.Address {
	cols := make([]address.Address, e.doc.numColumns)
	for c := range cols {
		cols[c] = address.Column(pageIndex, c)
	}
	return cols
}

// nextColumn returns the column following col in reading order, appending a
// page when col is the last column of the last page.
func (e *Engine) nextColumn(col address.Address) address.Address {
	if col.Column+1 < e.doc.numColumns {
		return address.Column(col.Page, col.Column+1)
	}
	if col.Page+1 >= e.doc.NumPages() {
		e.appendPage()
	}
	return address.Column(col.Page+1, 0)
}

// prevLine returns the position of the line before pos in reading order.
func (e *Engine) prevLine(pos position) (position, bool) {
	if pos.heading {
		if pos.line == 0 {
			return position{}, false
		}
		return position{page: pos.page, line: pos.line - 1, heading: true}, true
	}
	if pos.line > 0 {
		return position{page: pos.page, column: pos.column, line: pos.line - 1}, true
	}
	p, c := pos.page, pos.column
	for {
		c--
		if c < 0 {
			p--
			c = e.doc.numColumns - 1
		}
		if p < 0 {
			return position{}, false
		}
		if n := len(e.doc.pages[p].columns[c].lines); n > 0 {
			return position{page: p, column: c, line: n - 1}, true
		}
	}
}
