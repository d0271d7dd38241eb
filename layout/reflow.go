package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/docbuilder/address"
	"github.com/ByLCY/docbuilder/style"
)

// 用户可见的提示文案。
var (
	noticeFontSize = Notice{
		Summary: "Kann Schriftgröße nicht ändern",
		Detail:  "Lösche ein paar der unteren Zeilen auf dieser Seite, um die Schriftgröße zu ändern.",
	}
	noticeRemove = Notice{
		Summary: "Kann Zeilen nicht entfernen",
		Detail:  "Die unteren Zeilen sind nicht leer oder werden gerade bearbeitet.",
	}
	noticeHeading = Notice{
		Summary: "Kein Platz für die Überschrift",
		Detail:  "Die Überschriften dieser Seite füllen die Spalten bereits aus.",
	}
)

// Outcome 汇报一次编辑操作的结果。Applied 为 false 表示操作被放弃且内容未改变。
type Outcome struct {
	Applied  bool    `json:"applied"`
	Focus    string  `json:"focus,omitempty"`
	Cursor   int     `json:"cursor"`
	Inserted int     `json:"inserted"`
	Removed  int     `json:"removed"`
	Notice   *Notice `json:"notice,omitempty"`
}

// edit collects the columns touched by one operation.
type edit struct {
	touched  []address.Address
	seen     map[address.Address]bool
	inserted int
	removed  int
}

func (e *Engine) begin() *edit {
	return &edit{seen: map[address.Address]bool{}}
}

func (ed *edit) touch(cols ...address.Address) {
	for _, c := range cols {
		c = address.Column(c.Page, c.Column)
		if !ed.seen[c] {
			ed.seen[c] = true
			ed.touched = append(ed.touched, c)
		}
	}
}

// caret follows the cursor across continuation lines.
type caret struct {
	key    string
	offset int
}

func notFound(id string) error { return fmt.Errorf("%w: %s", ErrNotFound, id) }

func (e *Engine) outcome(ed *edit) Outcome {
	return Outcome{Applied: true, Focus: e.Focused(), Inserted: ed.inserted, Removed: ed.removed}
}

func (e *Engine) reject(key string, n Notice) Outcome {
	if f := e.Focused(); f != "" {
		key = f
	}
	n.Line = key
	e.notifier.Flash(key)
	e.notifier.Notice(n)
	e.log.Debug("layout: operation rejected", "line", key, "reason", n.Summary)
	return Outcome{Applied: false, Focus: e.Focused(), Notice: &n}
}

// settle brings every touched column back within budget, cascading excess
// lines into following columns and pages, then tops up columns that have
// slack with blank lines. All touched columns end Stable.
func (e *Engine) settle(ed *edit) {
	for i := 0; i < len(ed.touched); i++ {
		e.settleColumn(ed.touched[i], ed)
	}
	for _, col := range ed.touched {
		e.refill(col, ed)
		e.setState(col, Stable)
	}
	ed.touched = ed.touched[:0]
	ed.seen = map[address.Address]bool{}
}

func (e *Engine) settleColumn(col address.Address, ed *edit) {
	for {
		over, ok := e.cap.LinesOverhead(e.doc, col, 0)
		if !ok || over >= 0 {
			return
		}
		e.setState(col, PendingRemove)
		if n := e.shed(col, -over); n > 0 {
			ed.removed += n
			continue
		}
		lines := e.doc.pages[col.Page].columns[col.Column].lines
		if len(lines) == 0 {
			e.log.Warn("layout: headings exceed column budget", "column", col.String())
			return
		}
		moved := e.doc.removeLines(col, len(lines)-1, 1)
		next := e.nextColumn(col)
		e.doc.insertLines(next, 0, moved...)
		e.setState(next, PendingInsert)
		ed.touch(next)
	}
}

// shed removes up to n trailing blank, unfocused lines, most-trailing first.
func (e *Engine) shed(col address.Address, n int) int {
	lines := e.doc.pages[col.Page].columns[col.Column].lines
	count := 0
	for i := len(lines) - 1; i >= 0 && count < n; i-- {
		if !lines[i].Blank() || lines[i].Key == e.focused {
			break
		}
		count++
	}
	if count > 0 {
		e.doc.removeLines(col, len(lines)-count, count)
	}
	return count
}

func (e *Engine) refill(col address.Address, ed *edit) {
	budget := e.cap.MaxBudget(e.doc.orientation)
	h := e.cap.LineHeight(e.geo.DefaultFontSize)
	for {
		sum := e.cap.ColumnSum(e.doc, col)
		if sum < 0 || sum+h > budget {
			return
		}
		e.setState(col, PendingInsert)
		n := len(e.doc.pages[col.Page].columns[col.Column].lines)
		e.doc.insertLines(col, n, e.blankLine(style.Default()))
		ed.inserted++
	}
}

// reflowLine splits the line while it overflows its box, carrying the excess
// into continuation lines. It returns the key of the last line of the chain.
func (e *Engine) reflowLine(key string, ed *edit, c *caret) string {
	for guard := 0; guard < 10000; guard++ {
		pos, ok := e.doc.index[key]
		if !ok {
			return ""
		}
		l := e.doc.ref(pos)
		f := FontOf(l.Style)
		interior := e.box(pos).Interior()
		if e.tm.MeasureWidth(l.Text, f) <= interior {
			return key
		}
		if pos.heading && !e.cap.CanHold(e.doc, pos.page, l.Style.FontSize) {
			// callers check headingRoom before writing, so this only guards the loop
			e.log.Error("layout: heading overflow without room", "line", key)
			return key
		}

		head, tail, skip := e.tm.Split(l.Text, f, interior)
		l.Text = head
		cont := Line{Key: e.newKey(), Text: tail, Style: l.Style, Heading: l.Heading}
		if pos.heading {
			e.doc.insertHeading(pos.page, pos.line+1, cont)
			for _, col := range e.pageColumns(pos.page) {
				e.setState(col, PendingInsert)
				ed.touch(col)
			}
		} else {
			col := address.Column(pos.page, pos.column)
			e.doc.insertLines(col, pos.line+1, cont)
			e.setState(col, PendingInsert)
			ed.touch(col)
		}
		ed.inserted++

		if c != nil && c.key == key {
			if hl := utf8.RuneCountInString(head); c.offset > hl {
				c.key = cont.Key
				c.offset -= hl + skip
				if c.offset < 0 {
					c.offset = 0
				}
				if e.focused == key {
					e.focused = cont.Key
				}
			}
		}
		e.settle(ed)
		key = cont.Key
	}
	e.log.Error("layout: reflow did not converge", "line", key)
	return key
}

// continuations counts the lines text spills into when split to interior width.
func (e *Engine) continuations(text string, f Font, interior float64) int {
	n := 0
	for guard := 0; guard < 10000 && e.tm.MeasureWidth(text, f) > interior; guard++ {
		_, text, _ = e.tm.Split(text, f, interior)
		n++
	}
	return n
}

// headingRoom reports whether the line at pos can hold text in style st. For a
// heading, every continuation line its overflow creates is another heading of
// the page; extra adds headings the edit inserts (positive) or frees (negative).
func (e *Engine) headingRoom(pos position, text string, st style.Style, extra int) bool {
	if !pos.heading {
		return true
	}
	n := e.continuations(text, FontOf(st), e.box(pos).Interior()) + extra
	if n <= 0 {
		return true
	}
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = st.FontSize
	}
	return e.cap.CanHold(e.doc, pos.page, sizes...)
}

// SetText replaces the value of a line and reflows any overflow. A heading
// whose overflow finds no room on its page keeps its text.
func (e *Engine) SetText(id, text string) (Outcome, error) {
	pos, ok := e.resolve(id)
	if !ok {
		return Outcome{}, notFound(id)
	}
	l := e.doc.ref(pos)
	if !e.headingRoom(pos, text, l.Style, 0) {
		return e.reject(l.Key, noticeHeading), nil
	}
	l.Text = text
	ed := e.begin()
	e.reflowLine(l.Key, ed, nil)
	e.settle(ed)
	return e.outcome(ed), nil
}

// Type inserts probe at the rune offset cursor of a line, as a keystroke does.
// The line becomes focused and the caret follows the text into continuation lines.
func (e *Engine) Type(id, probe string, cursor int) (Outcome, error) {
	pos, ok := e.resolve(id)
	if !ok {
		return Outcome{}, notFound(id)
	}
	l := e.doc.ref(pos)
	if n := utf8.RuneCountInString(l.Text); cursor > n {
		cursor = n
	} else if cursor < 0 {
		cursor = 0
	}
	e.focused = l.Key
	text := InsertProbe(l.Text, probe, cursor)
	if !e.headingRoom(pos, text, l.Style, 0) {
		return e.reject(l.Key, noticeHeading), nil
	}
	l.Text = text
	c := &caret{key: l.Key, offset: cursor + utf8.RuneCountInString(probe)}

	ed := e.begin()
	e.reflowLine(l.Key, ed, c)
	e.settle(ed)
	e.focused = c.key
	out := e.outcome(ed)
	out.Focus, out.Cursor = c.key, c.offset
	return out, nil
}

// Enter splits a line at the rune offset cursor. The new line takes the text
// after the cursor, inherits the line's style and receives the focus.
func (e *Engine) Enter(id string, cursor int) (Outcome, error) {
	pos, ok := e.resolve(id)
	if !ok {
		return Outcome{}, notFound(id)
	}
	l := e.doc.ref(pos)
	if pos.heading && !e.cap.CanHold(e.doc, pos.page, l.Style.FontSize) {
		return e.reject(l.Key, noticeHeading), nil
	}
	st, err := style.Derive(l.Style, nil)
	if err != nil {
		return Outcome{}, err
	}
	runes := []rune(l.Text)
	if cursor < 0 || cursor > len(runes) {
		cursor = len(runes)
	}
	l.Text = string(runes[:cursor])
	nl := Line{Key: e.newKey(), Text: string(runes[cursor:]), Style: st, Heading: pos.heading}

	ed := e.begin()
	if pos.heading {
		e.doc.insertHeading(pos.page, pos.line+1, nl)
		for _, col := range e.pageColumns(pos.page) {
			e.setState(col, PendingInsert)
			ed.touch(col)
		}
	} else {
		col := address.Column(pos.page, pos.column)
		e.doc.insertLines(col, pos.line+1, nl)
		e.setState(col, PendingInsert)
		ed.touch(col)
	}
	ed.inserted++
	e.focused = nl.Key
	e.settle(ed)

	out := e.outcome(ed)
	out.Focus, out.Cursor = nl.Key, 0
	return out, nil
}

// JoinPrevious appends the line's text to the previous line in reading order
// and removes it, like Backspace at the start of a line.
func (e *Engine) JoinPrevious(id string) (Outcome, error) {
	pos, ok := e.resolve(id)
	if !ok {
		return Outcome{}, notFound(id)
	}
	prevPos, ok := e.prevLine(pos)
	if !ok {
		return Outcome{Applied: false, Focus: e.Focused()}, nil
	}
	cur := *e.doc.ref(pos)
	prev := e.doc.ref(prevPos)
	prevKey := prev.Key
	extra := 0
	if pos.heading && pos.page == prevPos.page {
		extra = -1
	}
	if !e.headingRoom(prevPos, prev.Text+cur.Text, prev.Style, extra) {
		return e.reject(cur.Key, noticeHeading), nil
	}
	c := &caret{key: prevKey, offset: utf8.RuneCountInString(prev.Text)}
	prev.Text += cur.Text

	ed := e.begin()
	e.removeAt(pos, ed)
	e.focused = prevKey
	e.settle(ed)
	e.reflowLine(prevKey, ed, c)
	e.settle(ed)
	e.focused = c.key

	out := e.outcome(ed)
	out.Focus, out.Cursor = c.key, c.offset
	return out, nil
}

// RemoveLine deletes a line regardless of its content. A focused line hands the
// focus to the previous line.
func (e *Engine) RemoveLine(id string) (Outcome, error) {
	pos, ok := e.resolve(id)
	if !ok {
		return Outcome{}, notFound(id)
	}
	key := e.doc.ref(pos).Key
	if e.focused == key {
		e.focused = ""
		if prev, ok := e.prevLine(pos); ok {
			e.focused = e.doc.ref(prev).Key
		}
	}
	ed := e.begin()
	e.removeAt(pos, ed)
	e.settle(ed)
	return e.outcome(ed), nil
}

func (e *Engine) removeAt(pos position, ed *edit) {
	if pos.heading {
		e.doc.removeHeading(pos.page, pos.line)
		for _, col := range e.pageColumns(pos.page) {
			ed.touch(col)
		}
	} else {
		col := address.Column(pos.page, pos.column)
		e.setState(col, PendingRemove)
		e.doc.removeLines(col, pos.line, 1)
		ed.touch(col)
	}
	ed.removed++
}

// RemoveTrailing removes the last n lines of a column. The request is
// abandoned, with a flash and a notice, when any of them is non-blank or focused.
func (e *Engine) RemoveTrailing(col address.Address, n int) (Outcome, error) {
	if !e.doc.HasColumn(col) {
		e.log.Warn("layout: column not found", "column", col.String())
		return Outcome{}, notFound(col.String())
	}
	lines := e.doc.pages[col.Page].columns[col.Column].lines
	if n <= 0 {
		return Outcome{Applied: true, Focus: e.Focused()}, nil
	}
	if n > len(lines) {
		n = len(lines)
	}
	e.setState(col, PendingRemove)
	for _, l := range lines[len(lines)-n:] {
		if !l.Blank() || l.Key == e.focused {
			e.setState(col, Stable)
			return e.reject(l.Key, noticeRemove), nil
		}
	}
	e.doc.removeLines(col, len(lines)-n, n)
	e.setState(col, Stable)
	return Outcome{Applied: true, Focus: e.Focused(), Removed: n}, nil
}

// SetFontSize changes the size of a line. See ApplyStyle.
func (e *Engine) SetFontSize(id string, size int) (Outcome, error) {
	return e.ApplyStyle(id, map[style.Field]string{style.FieldSize: fmt.Sprint(size)})
}

// ApplyStyle writes all overrides to a line at once. When the new size needs
// more room, trailing blank lines are removed from every affected column (all
// columns of the page for a heading); if any column cannot give up enough
// lines the change is abandoned. A smaller size refills the freed room.
func (e *Engine) ApplyStyle(id string, overrides map[style.Field]string) (Outcome, error) {
	pos, ok := e.resolve(id)
	if !ok {
		return Outcome{}, notFound(id)
	}
	l := e.doc.ref(pos)
	key := l.Key
	next, err := style.Derive(l.Style, overrides)
	if err != nil {
		e.log.Error("layout: style rejected", "line", key, "error", err)
		return Outcome{}, err
	}
	delta := e.cap.LineHeight(next.FontSize) - e.cap.LineHeight(l.Style.FontSize)

	targets := []address.Address{address.Column(pos.page, pos.column)}
	if pos.heading {
		targets = e.pageColumns(pos.page)
	}

	old := l.Style
	l.Style = next
	room := e.headingRoom(pos, l.Text, next, 0)
	l.Style = old
	if !room {
		return e.reject(key, noticeHeading), nil
	}

	plans := map[address.Address]int{}
	if delta > 0 {
		for _, col := range targets {
			tooLarge, _ := e.cap.IsFontSizeChangeTooLarge(e.doc, col, delta)
			if !tooLarge {
				continue
			}
			e.setState(col, PendingRemove)
			n, ok := e.planRemoval(col, delta, key)
			if !ok {
				for _, c := range targets {
					e.setState(c, Stable)
				}
				return e.reject(key, noticeFontSize), nil
			}
			plans[col] = n
		}
	}

	ed := e.begin()
	for col, n := range plans {
		lines := e.doc.pages[col.Page].columns[col.Column].lines
		e.doc.removeLines(col, len(lines)-n, n)
		ed.removed += n
	}
	e.doc.ref(e.doc.index[key]).Style = next
	ed.touch(targets...)
	e.settle(ed)
	e.reflowLine(key, ed, nil)
	e.settle(ed)
	return e.outcome(ed), nil
}

// planRemoval counts the trailing lines that must go for delta to fit. It fails
// when one of them is non-blank, focused, or the line being restyled.
func (e *Engine) planRemoval(col address.Address, delta int, edited string) (int, bool) {
	lines := e.doc.pages[col.Page].columns[col.Column].lines
	need := e.cap.ColumnSum(e.doc, col) + delta - e.cap.MaxBudget(e.doc.orientation)
	freed, n := 0, 0
	for i := len(lines) - 1; freed < need; i-- {
		if i < 0 {
			return 0, false
		}
		l := lines[i]
		if l.Key == edited || l.Key == e.focused || !l.Blank() {
			return 0, false
		}
		freed += e.cap.LineHeight(l.Style.FontSize)
		n++
	}
	return n, true
}

// AddHeading inserts a page-wide heading line at index at (negative appends).
// Every column of the page gives up room for it.
func (e *Engine) AddHeading(pageIndex, at int, text string, st style.Style) (Outcome, error) {
	if err := style.ValidateSize(st.FontSize); err != nil {
		e.log.Error("layout: heading size rejected", "size", st.FontSize)
		return Outcome{}, err
	}
	headings, ok := e.doc.Headings(pageIndex)
	if !ok {
		return Outcome{}, notFound(address.Page(pageIndex).String())
	}
	if at < 0 || at > len(headings) {
		at = len(headings)
	}
	if !e.headingRoom(position{page: pageIndex, line: at, heading: true}, text, st, 1) {
		return e.reject("", noticeHeading), nil
	}
	nl := Line{Key: e.newKey(), Text: text, Style: st, Heading: true}
	e.doc.insertHeading(pageIndex, at, nl)

	ed := e.begin()
	ed.inserted++
	for _, col := range e.pageColumns(pageIndex) {
		e.setState(col, PendingInsert)
		ed.touch(col)
	}
	e.settle(ed)
	e.reflowLine(nl.Key, ed, nil)
	e.settle(ed)
	out := e.outcome(ed)
	out.Focus = nl.Key
	return out, nil
}

type cursor struct {
	page, column, line int
}

// Fill flows blocks into the document from the top of the first page.
// Headings open a new page unless the cursor already sits at a page start.
func (e *Engine) Fill(blocks []Block) error {
	cur := cursor{}
	ed := e.begin()
	for i, b := range blocks {
		switch b.Kind {
		case BlockColumnBreak:
			next := e.nextColumn(address.Column(cur.page, cur.column))
			cur = cursor{page: next.Page, column: next.Column}
		case BlockPageBreak:
			cur = e.nextPage(cur)
		case BlockHeading:
			if err := style.ValidateSize(b.Style.FontSize); err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			if cur.column != 0 || cur.line != 0 {
				cur = e.nextPage(cur)
			}
			headings, _ := e.doc.Headings(cur.page)
			if !e.headingRoom(position{page: cur.page, line: len(headings), heading: true}, b.Text, b.Style, 1) {
				return fmt.Errorf("block %d: %w", i, ErrCapacityExceeded)
			}
			nl := Line{Key: e.newKey(), Text: b.Text, Style: b.Style, Heading: true}
			e.doc.insertHeading(cur.page, len(headings), nl)
			ed.inserted++
			ed.touch(e.pageColumns(cur.page)...)
			e.settle(ed)
			e.reflowLine(nl.Key, ed, nil)
			e.settle(ed)
		default:
			if err := style.ValidateSize(b.Style.FontSize); err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			for _, text := range strings.Split(b.Text, "\n") {
				e.placeLine(&cur, Line{Key: e.newKey(), Text: text, Style: b.Style}, ed)
			}
		}
	}
	e.settle(ed)
	return nil
}

func (e *Engine) nextPage(cur cursor) cursor {
	if cur.page+1 >= e.doc.NumPages() {
		e.appendPage()
	}
	return cursor{page: cur.page + 1}
}

func (e *Engine) placeLine(cur *cursor, l Line, ed *edit) {
	col := address.Column(cur.page, cur.column)
	at := cur.line
	if n := len(e.doc.pages[cur.page].columns[cur.column].lines); at > n {
		at = n
	}
	e.doc.insertLines(col, at, l)
	e.setState(col, PendingInsert)
	ed.inserted++
	ed.touch(col)
	e.settle(ed)

	last := e.reflowLine(l.Key, ed, nil)
	e.settle(ed)
	if pos, ok := e.doc.index[last]; ok {
		*cur = cursor{page: pos.page, column: pos.column, line: pos.line + 1}
		return
	}
	// the blank line was shed at the bottom: the column is full
	next := e.nextColumn(col)
	*cur = cursor{page: next.Page, column: next.Column}
}
