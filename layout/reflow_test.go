package layout

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ByLCY/docbuilder/address"
	"github.com/ByLCY/docbuilder/style"
	"github.com/tdewolff/test"
)

func lineAt(t *testing.T, e *Engine, page, col, line int) Line {
	t.Helper()
	l, ok := e.Line(address.Line(page, col, line).String())
	if !ok {
		t.Fatalf("line %d/%d/%d missing", page, col, line)
	}
	return l
}

func setText(t *testing.T, e *Engine, page, col, line int, text string) {
	t.Helper()
	if _, err := e.SetText(address.Line(page, col, line).String(), text); err != nil {
		t.Fatalf("SetText: %v", err)
	}
}

func TestEnterInFreshColumn(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	out, err := e.Enter("Line_0_0_0", 0)
	test.Error(t, err)
	test.That(t, out.Applied, "enter applies")
	test.T(t, out.Inserted, 1)
	test.T(t, out.Removed, 1)

	a, ok := e.Resolve(out.Focus)
	test.That(t, ok, "focus resolves")
	test.String(t, a.String(), "Line_0_0_1")
	test.T(t, e.Focused(), out.Focus)
	test.T(t, columnLen(e, 0, 0), 40)
	test.T(t, e.Capacity().ColumnSum(e.Document(), address.Column(0, 0)), 560)
	test.T(t, e.State(address.Column(0, 0)), Stable)
	checkIndex(t, e)
}

func TestEnterSplitsText(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	setText(t, e, 0, 0, 0, "HelloWorld")
	out, err := e.Enter("Line_0_0_0", 5)
	test.Error(t, err)
	test.String(t, lineAt(t, e, 0, 0, 0).Text, "Hello")
	test.String(t, lineAt(t, e, 0, 0, 1).Text, "World")
	test.T(t, out.Cursor, 0)
	nl, _ := e.Line(out.Focus)
	test.String(t, nl.Text, "World")
}

func TestEnterInFullColumnCascades(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	for i := 0; i < 40; i++ {
		setText(t, e, 0, 0, i, "x")
	}
	last := lineAt(t, e, 0, 0, 39).Key

	out, err := e.Enter("Line_0_0_10", 1)
	test.Error(t, err)
	test.That(t, out.Applied, "enter applies")
	test.T(t, e.Document().NumPages(), 2)
	test.T(t, columnLen(e, 0, 0), 40)
	test.T(t, columnLen(e, 1, 0), 40)

	moved := lineAt(t, e, 1, 0, 0)
	test.String(t, moved.Key, last)
	test.String(t, moved.Text, "x")
	a, _ := e.Resolve(out.Focus)
	test.String(t, a.String(), "Line_0_0_11")
	checkIndex(t, e)
}

func TestSetTextOverflowCreatesContinuation(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	out, err := e.SetText("Line_0_0_0", strings.Repeat("word ", 12))
	test.Error(t, err)
	test.T(t, out.Inserted, 1)

	head := lineAt(t, e, 0, 0, 0)
	test.T(t, len(head.Text), 49)
	test.String(t, head.Text, strings.TrimSpace(strings.Repeat("word ", 10)))
	test.String(t, lineAt(t, e, 0, 0, 1).Text, "word word ")
	test.T(t, columnLen(e, 0, 0), 40)

	ov, ok := e.IsOverflowing("Line_0_0_0", head.Text, nil)
	test.That(t, ok && !ov.Overflowing, "head fits after split")
	checkIndex(t, e)
}

func TestTypeCaretFollowsContinuation(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	setText(t, e, 0, 0, 0, strings.Repeat("a", 48)+" b")
	test.T(t, columnLen(e, 0, 0), 40)

	out, err := e.Type("Line_0_0_0", "cd", 50)
	test.Error(t, err)
	test.String(t, lineAt(t, e, 0, 0, 0).Text, strings.Repeat("a", 48))
	cont := lineAt(t, e, 0, 0, 1)
	test.String(t, cont.Text, "bcd")
	test.String(t, out.Focus, cont.Key)
	test.T(t, out.Cursor, 3)
	test.String(t, e.Focused(), cont.Key)
}

func TestTypeWithoutOverflowKeepsCaret(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	setText(t, e, 0, 0, 0, "helo")
	out, err := e.Type("Line_0_0_0", "l", 3)
	test.Error(t, err)
	test.String(t, lineAt(t, e, 0, 0, 0).Text, "hello")
	test.T(t, out.Cursor, 4)
	test.String(t, out.Focus, lineAt(t, e, 0, 0, 0).Key)
	test.T(t, out.Inserted, 0)
}

func TestSetFontSizeRemovesBlankTrailingLine(t *testing.T) {
	e, rec := newTestEngine(t, 1)
	out, err := e.SetFontSize("Line_0_0_0", 20)
	test.Error(t, err)
	test.That(t, out.Applied, "size change applies")
	test.T(t, out.Removed, 1)
	test.T(t, columnLen(e, 0, 0), 39)
	test.T(t, e.Capacity().ColumnSum(e.Document(), address.Column(0, 0)), 557)
	test.T(t, lineAt(t, e, 0, 0, 0).Style.FontSize, 20)
	test.T(t, len(rec.notices), 0)

	// shrinking back refills the freed room
	out, err = e.SetFontSize("Line_0_0_0", 14)
	test.Error(t, err)
	test.T(t, out.Inserted, 1)
	test.T(t, columnLen(e, 0, 0), 40)
	test.T(t, e.Capacity().ColumnSum(e.Document(), address.Column(0, 0)), 560)
	checkIndex(t, e)
}

func TestSetFontSizeRejectedByContent(t *testing.T) {
	e, rec := newTestEngine(t, 1)
	setText(t, e, 0, 0, 39, "tail")
	first := lineAt(t, e, 0, 0, 0).Key

	out, err := e.SetFontSize("Line_0_0_0", 20)
	test.Error(t, err)
	test.That(t, !out.Applied, "change abandoned")
	test.That(t, out.Notice != nil, "notice returned")
	test.String(t, out.Notice.Summary, "Kann Schriftgröße nicht ändern")
	test.T(t, lineAt(t, e, 0, 0, 0).Style.FontSize, 14)
	test.T(t, columnLen(e, 0, 0), 40)

	test.T(t, len(rec.notices), 1)
	test.T(t, rec.flashes, []string{first})
	test.T(t, e.State(address.Column(0, 0)), Stable)
}

func TestSetFontSizeRejectedByFocus(t *testing.T) {
	e, rec := newTestEngine(t, 1)
	test.Error(t, e.Focus("Line_0_0_39"))
	focused := e.Focused()

	out, err := e.SetFontSize("Line_0_0_0", 20)
	test.Error(t, err)
	test.That(t, !out.Applied, "focused trailing line is kept")
	test.T(t, rec.flashes, []string{focused})
	test.String(t, out.Notice.Line, focused)
	test.T(t, columnLen(e, 0, 0), 40)
}

func TestSetFontSizeUsageErrors(t *testing.T) {
	e, rec := newTestEngine(t, 1)
	_, err := e.SetFontSize("Line_0_0_0", 15)
	test.That(t, errors.Is(err, style.ErrSizeNotInScale), "15pt is not in the scale")
	_, err = e.SetFontSize("Line_0_0_99", 20)
	test.That(t, errors.Is(err, ErrNotFound), "missing line")
	_, err = e.ApplyStyle("Line_0_0_0", map[style.Field]string{"weight": "bold"})
	test.That(t, errors.Is(err, style.ErrUnknownField), "unknown field")
	test.T(t, len(rec.notices), 0)
}

func TestApplyStyleAllOrNothing(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	_, err := e.ApplyStyle("Line_0_0_0", map[style.Field]string{
		style.FieldBold:  "true",
		style.FieldColor: "not-a-color",
	})
	test.That(t, err != nil, "bad color rejects the whole change")
	test.That(t, !lineAt(t, e, 0, 0, 0).Style.Bold, "bold not applied")

	_, err = e.ApplyStyle("Line_0_0_0", map[style.Field]string{
		style.FieldBold:  "true",
		style.FieldColor: "#ff0000",
	})
	test.Error(t, err)
	st := lineAt(t, e, 0, 0, 0).Style
	test.That(t, st.Bold, "bold applied")
	test.String(t, st.Color.Hex(), "FF0000")
	test.That(t, !lineAt(t, e, 0, 0, 1).Style.Bold, "other lines keep their style")
}

func TestHeadingFanOut(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	out, err := e.AddHeading(0, -1, "Title", style.Default())
	test.Error(t, err)
	test.That(t, out.Applied, "heading added")
	test.T(t, columnLen(e, 0, 0), 39)
	test.T(t, columnLen(e, 0, 1), 39)

	h := address.Heading(0, 0).String()
	l, ok := e.Line(h)
	test.That(t, ok && l.Heading, "heading resolves by address")
	test.String(t, l.Text, "Title")

	out, err = e.SetFontSize(h, 20)
	test.Error(t, err)
	test.That(t, out.Applied, "heading resize applies")
	test.T(t, columnLen(e, 0, 0), 38)
	test.T(t, columnLen(e, 0, 1), 38)
	for c := 0; c < 2; c++ {
		test.T(t, e.Capacity().ColumnSum(e.Document(), address.Column(0, c)), 557)
	}
	checkIndex(t, e)
}

func TestHeadingFanOutRejectsWhenAnyColumnIsFull(t *testing.T) {
	e, rec := newTestEngine(t, 2)
	_, err := e.AddHeading(0, -1, "Title", style.Default())
	test.Error(t, err)
	setText(t, e, 0, 1, 38, "busy")

	out, err := e.SetFontSize(address.Heading(0, 0).String(), 20)
	test.Error(t, err)
	test.That(t, !out.Applied, "column 1 cannot give up its last line")
	test.T(t, columnLen(e, 0, 0), 39)
	test.T(t, columnLen(e, 0, 1), 39)
	h, _ := e.Line(address.Heading(0, 0).String())
	test.T(t, h.Style.FontSize, 14)
	test.T(t, len(rec.notices), 1)
}

func TestHeadingOverflowWrapsAcrossPage(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	// a heading spans both columns: 50 runes fit
	_, err := e.AddHeading(0, -1, strings.Repeat("h", 60), style.Default())
	test.Error(t, err)
	hs, _ := e.Document().Headings(0)
	test.T(t, len(hs), 2)
	test.T(t, len(hs[0].Text), 50)
	test.T(t, columnLen(e, 0, 0), 38)
	checkIndex(t, e)
}

// fillHeadings adds default-size headings to page 0 until the page refuses one.
func fillHeadings(t *testing.T, e *Engine) int {
	t.Helper()
	for i := 0; ; i++ {
		out, err := e.AddHeading(0, -1, "h", style.Default())
		test.Error(t, err)
		if !out.Applied {
			return i
		}
	}
}

func TestHeadingOverflowWithoutRoomKeepsText(t *testing.T) {
	e, rec := newTestEngine(t, 2)
	test.T(t, fillHeadings(t, e), 39)
	last := address.Heading(0, 38).String()
	notices := len(rec.notices)

	out, err := e.Type(last, strings.Repeat("x", 80), 1)
	test.Error(t, err)
	test.That(t, !out.Applied, "typing into the last heading is refused")
	test.That(t, out.Notice != nil, "notice returned")
	test.T(t, len(rec.notices), notices+1)
	l, _ := e.Line(last)
	test.String(t, l.Text, "h")
	ov, ok := e.IsOverflowing(last, l.Text, nil)
	test.That(t, ok && !ov.Overflowing, "heading fits its box")

	out, err = e.SetText(last, strings.Repeat("y", 80))
	test.Error(t, err)
	test.That(t, !out.Applied, "replacing the text is refused")
	l, _ = e.Line(last)
	test.String(t, l.Text, "h")

	out, err = e.SetText(last, strings.Repeat("z", 50))
	test.Error(t, err)
	test.That(t, out.Applied, "text that fits is accepted")

	hs, _ := e.Document().Headings(0)
	test.T(t, len(hs), 39)
	test.T(t, columnLen(e, 0, 0), 1)
	test.T(t, columnLen(e, 0, 1), 1)
	checkIndex(t, e)
}

func TestAddHeadingCountsItsContinuations(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	for i := 0; i < 38; i++ {
		_, err := e.AddHeading(0, -1, "h", style.Default())
		test.Error(t, err)
	}
	out, err := e.AddHeading(0, -1, strings.Repeat("w", 60), style.Default())
	test.Error(t, err)
	test.That(t, !out.Applied, "two heading lines do not fit")
	hs, _ := e.Document().Headings(0)
	test.T(t, len(hs), 38)

	out, err = e.AddHeading(0, -1, "kurz", style.Default())
	test.Error(t, err)
	test.That(t, out.Applied, "one heading line fits")
	checkIndex(t, e)
}

func TestTypeNegativeCursorInsertsAtStart(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	setText(t, e, 0, 0, 0, "abc")
	out, err := e.Type("Line_0_0_0", "X", -1)
	test.Error(t, err)
	test.String(t, lineAt(t, e, 0, 0, 0).Text, InsertProbe("abc", "X", -1))
	test.String(t, lineAt(t, e, 0, 0, 0).Text, "Xabc")
	test.T(t, out.Cursor, 1)

	out, err = e.Type("Line_0_0_0", "!", 99)
	test.Error(t, err)
	test.String(t, lineAt(t, e, 0, 0, 0).Text, "Xabc!")
	test.T(t, out.Cursor, 5)
}

func TestRemoveTrailing(t *testing.T) {
	e, rec := newTestEngine(t, 1)
	col := address.Column(0, 0)

	out, err := e.RemoveTrailing(col, 2)
	test.Error(t, err)
	test.T(t, out.Removed, 2)
	test.T(t, columnLen(e, 0, 0), 38)

	test.Error(t, e.Focus("Line_0_0_37"))
	out, err = e.RemoveTrailing(col, 1)
	test.Error(t, err)
	test.That(t, !out.Applied, "focused line is kept")
	test.String(t, out.Notice.Summary, noticeRemove.Summary)
	test.T(t, columnLen(e, 0, 0), 38)
	test.T(t, len(rec.flashes), 1)

	_, err = e.RemoveTrailing(address.Column(3, 0), 1)
	test.That(t, errors.Is(err, ErrNotFound), "missing column")
}

func TestJoinPrevious(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	setText(t, e, 0, 0, 0, "Hello")
	setText(t, e, 0, 0, 1, "World")
	first := lineAt(t, e, 0, 0, 0).Key

	out, err := e.JoinPrevious("Line_0_0_1")
	test.Error(t, err)
	test.That(t, out.Applied, "join applies")
	test.String(t, lineAt(t, e, 0, 0, 0).Text, "HelloWorld")
	test.String(t, out.Focus, first)
	test.T(t, out.Cursor, 5)
	test.That(t, lineAt(t, e, 0, 0, 1).Blank(), "following line moved up")
	test.T(t, columnLen(e, 0, 0), 40)

	out, err = e.JoinPrevious("Line_0_0_0")
	test.Error(t, err)
	test.That(t, !out.Applied, "first line has no predecessor")
	checkIndex(t, e)
}

func TestJoinPreviousAcrossColumns(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	setText(t, e, 0, 0, 39, "end")
	setText(t, e, 0, 1, 0, "start")
	out, err := e.JoinPrevious("Line_0_1_0")
	test.Error(t, err)
	test.String(t, lineAt(t, e, 0, 0, 39).Text, "endstart")
	test.T(t, out.Cursor, 3)
}

func TestRemoveLineMovesFocusBack(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	prev := lineAt(t, e, 0, 0, 4).Key
	gone := lineAt(t, e, 0, 0, 5).Key
	test.Error(t, e.Focus("Line_0_0_5"))

	out, err := e.RemoveLine("Line_0_0_5")
	test.Error(t, err)
	test.String(t, out.Focus, prev)
	test.That(t, !e.Has(gone), "removed key is gone")
	test.T(t, columnLen(e, 0, 0), 40)
	checkIndex(t, e)
}

func TestFill(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	st := style.Default()
	err := e.Fill([]Block{
		{Kind: BlockHeading, Text: "Title", Style: st},
		{Kind: BlockParagraph, Text: "one\ntwo", Style: st},
		{Kind: BlockColumnBreak},
		{Kind: BlockParagraph, Text: "three", Style: st},
	})
	test.Error(t, err)

	hs, _ := e.Document().Headings(0)
	test.T(t, len(hs), 1)
	test.String(t, hs[0].Text, "Title")
	test.String(t, lineAt(t, e, 0, 0, 0).Text, "one")
	test.String(t, lineAt(t, e, 0, 0, 1).Text, "two")
	test.That(t, lineAt(t, e, 0, 0, 2).Blank(), "rest of column blank")
	test.String(t, lineAt(t, e, 0, 1, 0).Text, "three")
	test.T(t, columnLen(e, 0, 0), 39)
	test.T(t, columnLen(e, 0, 1), 39)
	test.T(t, e.Document().NumPages(), 1)
	checkIndex(t, e)
}

func TestFillPagesOverflow(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	lines := make([]string, 45)
	for i := range lines {
		lines[i] = "line"
	}
	err := e.Fill([]Block{{Kind: BlockParagraph, Text: strings.Join(lines, "\n"), Style: style.Default()}})
	test.Error(t, err)
	test.T(t, e.Document().NumPages(), 2)
	test.String(t, lineAt(t, e, 1, 0, 4).Text, "line")
	test.That(t, lineAt(t, e, 1, 0, 5).Blank(), "page 1 holds the last five lines")
	checkIndex(t, e)
}

func TestFillRejectsBadSize(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	st := style.Default()
	st.FontSize = 13
	err := e.Fill([]Block{{Kind: BlockParagraph, Text: "x", Style: st}})
	test.That(t, errors.Is(err, style.ErrSizeNotInScale), "13pt rejected")
}

func TestRestoreRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	_, err := e.AddHeading(0, -1, "Title", style.Default())
	test.Error(t, err)
	setText(t, e, 0, 0, 0, "alpha")
	setText(t, e, 0, 1, 3, "beta")
	_, err = e.SetFontSize("Line_0_1_3", 20)
	test.Error(t, err)
	e.SetMeta(DocumentMeta{Title: "Doc", Author: "someone"})
	snap := e.Snapshot()

	r, err := Restore(snap, Options{Measurer: stubMeasurer{}, Geometry: testGeometry(), KeyGen: sequentialKeys()})
	test.Error(t, err)
	if !reflect.DeepEqual(r.Snapshot(), snap) {
		t.Fatalf("restored snapshot differs:\n%+v\n%+v", r.Snapshot(), snap)
	}
	checkIndex(t, r)
}

func TestRestoreRekeysDuplicateLines(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	setText(t, e, 0, 0, 0, "eins")
	setText(t, e, 0, 0, 1, "zwei")
	snap := e.Snapshot()
	dup := snap.Pages[0].Columns[0][0].Key
	snap.Pages[0].Columns[0][1].Key = dup

	r, err := Restore(snap, Options{Measurer: stubMeasurer{}, Geometry: testGeometry(), KeyGen: prefixedKeys("r")})
	test.Error(t, err)
	checkIndex(t, r)
	first, second := lineAt(t, r, 0, 0, 0), lineAt(t, r, 0, 0, 1)
	test.String(t, first.Key, dup)
	test.String(t, second.Key, "r1")
	test.String(t, second.Text, "zwei")

	_, err = r.RemoveLine(dup)
	test.Error(t, err)
	l, ok := r.Line(second.Key)
	test.That(t, ok, "other line still resolves after removal")
	test.String(t, l.Text, "zwei")
	checkIndex(t, r)
}

func TestRestoreRejectsBadSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	snap := e.Snapshot()
	snap.Columns = 2
	_, err := Restore(snap, Options{Measurer: stubMeasurer{}, Geometry: testGeometry()})
	test.That(t, err != nil, "column count mismatch")

	snap = e.Snapshot()
	snap.Pages[0].Columns[0][0].Style.FontSize = 15
	_, err = Restore(snap, Options{Measurer: stubMeasurer{}, Geometry: testGeometry()})
	test.That(t, errors.Is(err, style.ErrSizeNotInScale), "bad size")
}

func TestResetAndColumns(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	test.Error(t, e.Reset(Landscape, 3))
	test.T(t, e.Document().Orientation(), Landscape)
	test.T(t, len(e.Columns()), 3)
	test.T(t, columnLen(e, 0, 2), 28)
	test.That(t, e.Reset(Portrait, 4) != nil, "4 columns rejected")
	test.That(t, e.IsColumnEmpty(address.Column(0, 1)), "fresh column is empty")
}

func TestFocusUnknownLine(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	test.That(t, errors.Is(e.Focus("nope"), ErrNotFound), "unknown key")
	e.Blur()
	test.String(t, e.Focused(), "")
}
