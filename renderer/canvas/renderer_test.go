package canvasrenderer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tdewolff/test"

	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/style"
)

func bodyFont(size float64) layout.Font {
	return layout.Font{Family: style.DefaultFamily, Size: layout.Pt(size), Weight: "normal"}
}

func TestTextWidthGrowsWithTextAndSize(t *testing.T) {
	r := NewRenderer()
	short := r.TextWidth("hello", bodyFont(12))
	long := r.TextWidth("hello world", bodyFont(12))
	big := r.TextWidth("hello", bodyFont(24))

	test.That(t, short > 0, "non-empty text has width")
	test.That(t, long > short, "longer text is wider")
	test.That(t, big > 1.95*short && big < 2.05*short, "width scales with size")
	test.Float(t, r.TextWidth("", bodyFont(12)), 0)
}

func TestTextWidthBoldIsWider(t *testing.T) {
	r := NewRenderer()
	regular := r.TextWidth("Wide Words", bodyFont(14))
	bold := bodyFont(14)
	bold.Weight = "bold"
	test.That(t, r.TextWidth("Wide Words", bold) > regular, "bold face is wider")
}

func TestTextWidthMonoIsUniform(t *testing.T) {
	r := NewRenderer()
	mono := layout.Font{Family: "Courier", Size: layout.Pt(12)}
	test.Float(t, r.TextWidth("iiii", mono), r.TextWidth("MMMM", mono))
}

// 与排版引擎配合：同一字体下，FitSubstring 的结果不超过目标宽度。
func TestRendererAsMeasurer(t *testing.T) {
	r := NewRenderer()
	tm, err := layout.NewTextMetrics(r, 8)
	test.Error(t, err)
	font := bodyFont(14)
	text := strings.Repeat("measure ", 20)
	fit := tm.FitSubstring(text, font, 50, false)
	test.That(t, len(fit) > 0 && len(fit) < len(text), "partial fit")
	test.That(t, tm.MeasureWidth(fit, font) <= 50, "fit stays within target")
	test.Float(t, tm.MeasureWidth("a\tb", font), tm.MeasureWidth("a        b", font))
}

func TestRenderPDF(t *testing.T) {
	r := NewRenderer()
	e, err := layout.New(layout.Options{Measurer: r, Columns: 2})
	test.Error(t, err)
	_, err = e.AddHeading(0, -1, "Überschrift", style.Default())
	test.Error(t, err)
	_, err = e.SetText("Line_0_0_0", "links\tmit Tab")
	test.Error(t, err)
	_, err = e.ApplyStyle("Line_0_1_0", map[style.Field]string{style.FieldAlign: "center", style.FieldUnderline: "true"})
	test.Error(t, err)
	_, err = e.SetText("Line_0_1_0", "rechts")
	test.Error(t, err)
	e.SetMeta(layout.DocumentMeta{Title: "Vorschau", Creator: "docbuilder"})

	snap := e.Snapshot()
	out, err := r.Render(&snap)
	test.Error(t, err)
	test.That(t, bytes.HasPrefix(out, []byte("%PDF")), "PDF header")
}

func TestRenderRejectsEmpty(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(nil)
	test.That(t, err != nil, "nil snapshot")
	_, err = r.Render(&layout.Snapshot{Columns: 1})
	test.That(t, err != nil, "no pages")
}

func TestPageSize(t *testing.T) {
	r := NewRenderer()
	w, h := r.pageSize(layout.Portrait)
	test.That(t, h > w, "portrait is taller")
	w, h = r.pageSize(layout.Landscape)
	test.That(t, w > h, "landscape is wider")
}
