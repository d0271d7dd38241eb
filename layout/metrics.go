package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/docbuilder/style"
)

// Font 描述测量文本时使用的字体。Size 保留原始单位。
type Font struct {
	Family string `json:"family"`
	Size   Length `json:"size"`
	Weight string `json:"weight"`
	Italic bool   `json:"italic,omitempty"`
}

// FontOf returns the measurement font of a line style.
func FontOf(s style.Style) Font {
	return Font{
		Family: s.FontFamily,
		Size:   Pt(float64(s.FontSize)),
		Weight: s.Weight(),
		Italic: s.Italic,
	}
}

// Bold reports whether the weight names a bold face.
func (f Font) Bold() bool {
	w := strings.ToLower(f.Weight)
	return w == "bold" || w == "bolder" || w == "700" || w == "800" || w == "900"
}

// Measurer 是外部提供的二维文本测量原语，返回毫米宽度。
// 它不需要理解制表符：TextMetrics 会先展开。
type Measurer interface {
	TextWidth(text string, font Font) float64
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(text string, font Font) float64

func (f MeasurerFunc) TextWidth(text string, font Font) float64 { return f(text, font) }

// TextMetrics measures text with tab expansion on top of a Measurer.
type TextMetrics struct {
	m        Measurer
	tabWidth int
	tab      string
}

// NewTextMetrics returns TextMetrics expanding each tab into tabWidth spaces.
func NewTextMetrics(m Measurer, tabWidth int) (*TextMetrics, error) {
	if m == nil {
		return nil, fmt.Errorf("layout: 缺少文本测量后端 Measurer")
	}
	if tabWidth < 0 {
		return nil, fmt.Errorf("layout: 制表符宽度不能为负数: %d", tabWidth)
	}
	return &TextMetrics{m: m, tabWidth: tabWidth, tab: strings.Repeat(" ", tabWidth)}, nil
}

// TabWidth returns the number of spaces a tab expands to.
func (tm *TextMetrics) TabWidth() int { return tm.tabWidth }

// ExpandTabs replaces every tab with the configured run of spaces. Renderers
// use it so output matches measurement.
func (tm *TextMetrics) ExpandTabs(text string) string {
	return strings.ReplaceAll(text, "\t", tm.tab)
}

// MeasureWidth measures text after tab expansion.
func (tm *TextMetrics) MeasureWidth(text string, font Font) float64 {
	if text == "" {
		return 0
	}
	return tm.m.TextWidth(tm.ExpandTabs(text), font)
}

// MeasureTabRunWidth returns only the width contributed by tab expansions.
func (tm *TextMetrics) MeasureTabRunWidth(text string, font Font) float64 {
	n := strings.Count(text, "\t")
	if n == 0 || tm.tabWidth == 0 {
		return 0
	}
	return float64(n) * tm.m.TextWidth(tm.tab, font)
}

// FitSubstring returns the longest prefix (or suffix when fromEnd) of text
// whose measured width stays within target. It grows the run one rune at a
// time and stops at the first rune that no longer fits.
func (tm *TextMetrics) FitSubstring(text string, font Font, target float64, fromEnd bool) string {
	if text == "" || target <= 0 {
		return ""
	}
	if tm.MeasureWidth(text, font) <= target {
		return text
	}
	runes := []rune(text)
	best := 0
	for n := 1; n <= len(runes); n++ {
		var run string
		if fromEnd {
			run = string(runes[len(runes)-n:])
		} else {
			run = string(runes[:n])
		}
		if tm.MeasureWidth(run, font) > target {
			break
		}
		best = n
	}
	if fromEnd {
		return string(runes[len(runes)-best:])
	}
	return string(runes[:best])
}
