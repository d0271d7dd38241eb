package style

import (
	"errors"
	"testing"

	"github.com/tdewolff/test"
)

func TestDefault(t *testing.T) {
	d := Default()
	test.T(t, d.FontSize, DefaultFontSize)
	test.String(t, d.FontFamily, "Calibri")
	test.T(t, d.Align, AlignLeft)
	test.T(t, d.Color, Black)
}

func TestDeriveCopiesPredecessor(t *testing.T) {
	pred := Default()
	pred.Bold = true
	pred.FontSize = 20

	got, err := Derive(pred, map[Field]string{FieldItalic: "true", FieldColor: "#336699"})
	test.Error(t, err)
	test.That(t, got.Bold, "bold inherited")
	test.That(t, got.Italic, "italic overridden")
	test.T(t, got.FontSize, 20)
	test.T(t, got.Color, Color{R: 0x33, G: 0x66, B: 0x99})

	// the predecessor is a value; it must not change
	test.That(t, !pred.Italic)
}

func TestDeriveRejectsOutOfScaleSize(t *testing.T) {
	_, err := Derive(Default(), map[Field]string{FieldSize: "13"})
	if !errors.Is(err, ErrSizeNotInScale) {
		t.Fatalf("expected ErrSizeNotInScale, got %v", err)
	}
	got, err := Derive(Default(), map[Field]string{FieldSize: "72pt"})
	test.Error(t, err)
	test.T(t, got.FontSize, 72)
}

func TestDeriveAllOrNothing(t *testing.T) {
	got, err := Derive(Default(), map[Field]string{FieldBold: "true", FieldAlign: "diagonal"})
	if err == nil {
		t.Fatalf("expected error for bad align")
	}
	test.T(t, got, Style{})
}

func TestDeriveUnknownField(t *testing.T) {
	_, err := Derive(Default(), map[Field]string{"shadow": "1"})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestOverridesRoundTrip(t *testing.T) {
	s := Default()
	s.FontFamily = "Georgia"
	s.FontSize = 24
	s.Underline = true
	s.Align = AlignJustify
	s.Indent = IndentBoth
	s.Color = Color{R: 200}

	got, err := Derive(Default(), s.Overrides(Default()))
	test.Error(t, err)
	test.T(t, got, s)
}

func TestScale(t *testing.T) {
	for _, s := range Sizes {
		test.That(t, InScale(s))
	}
	test.That(t, !InScale(13))
	test.That(t, !InScale(100))
	test.T(t, Step(14, 1), 16)
	test.T(t, Step(14, -1), 12)
	test.T(t, Step(8, -3), 8)
	test.T(t, Step(72, 2), 72)
}

func TestWordSizeMapping(t *testing.T) {
	test.T(t, WordSizeDiff(14), 5)
	test.T(t, WordSizeDiff(20), 5)
	test.T(t, WordSizeDiff(18), 6)
	test.T(t, BrowserSize(12), 16)
	for _, w := range Sizes {
		if got := WordSize(BrowserSize(w)); got != w {
			t.Fatalf("WordSize(BrowserSize(%d)) = %d", w, got)
		}
	}
	test.T(t, WordSize(1), -1)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#0f0")
	test.Error(t, err)
	test.T(t, c, Color{G: 255})
	test.String(t, c.Hex(), "00FF00")

	_, err = ParseColor("#12345")
	test.That(t, err != nil)
	_, err = ParseColor("zzzzzz")
	test.That(t, err != nil)
}
