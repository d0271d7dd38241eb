package layout

import (
	"strings"
	"unicode/utf8"
)

// Overflow 描述候选文本相对于行内宽度的测量结果（单位 mm）。
type Overflow struct {
	Overflowing bool `json:"overflowing"`
	// Width is the excess over the interior width; zero when the text fits.
	Width        float64 `json:"width"`
	ContentWidth float64 `json:"contentWidth"`
	TabWidth     float64 `json:"tabWidth"`
	Interior     float64 `json:"interior"`
}

// InsertProbe composes the value a line would hold after typing probe at the
// rune offset cursor. Out-of-range cursors are clamped.
func InsertProbe(text, probe string, cursor int) string {
	runes := []rune(text)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(runes) {
		cursor = len(runes)
	}
	return string(runes[:cursor]) + probe + string(runes[cursor:])
}

// LineBox returns the box of the line at an address or key.
func (e *Engine) LineBox(id string) (Box, bool) {
	pos, ok := e.resolve(id)
	if !ok {
		return Box{}, false
	}
	return e.box(pos), true
}

func (e *Engine) box(pos position) Box {
	return e.geo.LineBox(e.doc.orientation, e.doc.numColumns, pos.heading)
}

// IsOverflowing measures candidate against the interior width of the line.
// A nil font selects the line's own style. ok is false when the line does not resolve.
func (e *Engine) IsOverflowing(id, candidate string, font *Font) (Overflow, bool) {
	pos, ok := e.resolve(id)
	if !ok {
		return Overflow{}, false
	}
	f := FontOf(e.doc.ref(pos).Style)
	if font != nil {
		f = *font
	}
	return e.overflow(pos, candidate, f), true
}

func (e *Engine) overflow(pos position, candidate string, f Font) Overflow {
	interior := e.box(pos).Interior()
	total := e.tm.MeasureWidth(candidate, f)
	tabs := e.tm.MeasureTabRunWidth(candidate, f)
	o := Overflow{
		ContentWidth: total - tabs,
		TabWidth:     tabs,
		Interior:     interior,
	}
	if total > interior {
		o.Overflowing = true
		o.Width = total - interior
	}
	return o
}

// ExtractFitting returns the longest prefix (or suffix) of the line's value
// whose width stays within target.
func (e *Engine) ExtractFitting(id string, target float64, fromEnd bool) (string, bool) {
	pos, ok := e.resolve(id)
	if !ok {
		return "", false
	}
	l := e.doc.ref(pos)
	return e.tm.FitSubstring(l.Text, FontOf(l.Style), target, fromEnd), true
}

// Split breaks text so that head fits width, preferring the last space inside
// the fitting prefix. skip is the number of separator runes dropped between
// head and tail. At least one rune always goes to head so callers make progress
// even when a single character is wider than the line.
func (tm *TextMetrics) Split(text string, font Font, width float64) (head, tail string, skip int) {
	fit := tm.FitSubstring(text, font, width, false)
	if fit == text {
		return text, "", 0
	}
	if fit == "" {
		_, size := utf8.DecodeRuneInString(text)
		return text[:size], text[size:], 0
	}
	if i := strings.LastIndexAny(fit, " \t"); i > 0 {
		return fit[:i], text[i+1:], 1
	}
	return fit, text[len(fit):], 0
}
