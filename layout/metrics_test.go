package layout

import (
	"strings"
	"testing"

	"github.com/tdewolff/test"
)

func newTestMetrics(t *testing.T) *TextMetrics {
	t.Helper()
	tm, err := NewTextMetrics(stubMeasurer{}, 8)
	if err != nil {
		t.Fatalf("NewTextMetrics: %v", err)
	}
	return tm
}

func TestNewTextMetricsRejectsBadInput(t *testing.T) {
	_, err := NewTextMetrics(nil, 8)
	test.That(t, err != nil, "nil measurer")
	_, err = NewTextMetrics(stubMeasurer{}, -1)
	test.That(t, err != nil, "negative tab width")
}

// 制表符与空格的测量组合。
func TestMeasureWidthTabSplit(t *testing.T) {
	tm := newTestMetrics(t)
	font := Font{Family: "Calibri", Size: Pt(14)}
	want := tm.MeasureWidth("a", font) + tm.MeasureWidth(strings.Repeat(" ", 8), font) + tm.MeasureWidth("b", font)
	test.Float(t, tm.MeasureWidth("a\tb", font), want)
}

func TestMeasureWidthTabEquivalence(t *testing.T) {
	tm := newTestMetrics(t)
	font := Font{Family: "Calibri", Size: Pt(12)}
	for _, s := range []string{"\t", "a\t\tb", "\tx y\t", "no tabs"} {
		expanded := strings.ReplaceAll(s, "\t", strings.Repeat(" ", 8))
		test.Float(t, tm.MeasureWidth(s, font), tm.MeasureWidth(expanded, font))
	}
}

func TestMeasureTabRunWidth(t *testing.T) {
	tm := newTestMetrics(t)
	font := Font{Size: Pt(14)}
	test.Float(t, tm.MeasureTabRunWidth("no tabs", font), 0)
	test.Float(t, tm.MeasureTabRunWidth("a\tb\t", font), 2*8*2)

	zero, err := NewTextMetrics(stubMeasurer{}, 0)
	test.Error(t, err)
	test.Float(t, zero.MeasureTabRunWidth("a\tb", font), 0)
}

func TestFitSubstring(t *testing.T) {
	tm := newTestMetrics(t)
	font := Font{Size: Pt(14)} // 2mm per rune
	text := "abcdefghij"

	test.String(t, tm.FitSubstring(text, font, tm.MeasureWidth(text, font), false), text)
	test.String(t, tm.FitSubstring(text, font, 1000, true), text)
	test.String(t, tm.FitSubstring(text, font, 0, false), "")
	test.String(t, tm.FitSubstring(text, font, 7, false), "abc")
	test.String(t, tm.FitSubstring(text, font, 7, true), "hij")
	// a single rune wider than the target yields nothing
	test.String(t, tm.FitSubstring(text, font, 1.5, false), "")
	test.String(t, tm.FitSubstring("", font, 10, false), "")
	// tabs count with their expansion
	test.String(t, tm.FitSubstring("a\tb", font, 17, false), "a")
	test.String(t, tm.FitSubstring("a\tb", font, 18, false), "a\t")
}

func TestSplitPrefersWordBoundary(t *testing.T) {
	tm := newTestMetrics(t)
	font := Font{Size: Pt(14)}

	head, tail, skip := tm.Split("hello world again", font, 24) // 12 runes
	test.String(t, head, "hello world")
	test.String(t, tail, "again")
	test.T(t, skip, 1)

	head, tail, skip = tm.Split("abcdefghijkl", font, 10)
	test.String(t, head, "abcde")
	test.String(t, tail, "fghijkl")
	test.T(t, skip, 0)

	head, tail, _ = tm.Split("short", font, 100)
	test.String(t, head, "short")
	test.String(t, tail, "")

	// cannot fit a single rune: force one
	head, tail, _ = tm.Split("äbc", font, 1)
	test.String(t, head, "ä")
	test.String(t, tail, "bc")
}

func TestInsertProbe(t *testing.T) {
	test.String(t, InsertProbe("helo", "l", 3), "hello")
	test.String(t, InsertProbe("abc", "x", -4), "xabc")
	test.String(t, InsertProbe("abc", "x", 99), "abcx")
	test.String(t, InsertProbe("äö", "ü", 1), "äüö")
}
