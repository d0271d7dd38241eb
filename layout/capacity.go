package layout

import (
	"log/slog"

	"github.com/ByLCY/docbuilder/address"
	"github.com/ByLCY/docbuilder/style"
)

// LineHeightFunc converts a line's font size into the units summed against
// the column budget.
type LineHeightFunc func(size int) int

// WordLineHeight approximates the line height the word processor produces:
// sizes from 19pt up carry an extra ceil(size/4), smaller sizes count as-is.
// The correction is known to be inexact and is kept pluggable for calibration.
func WordLineHeight(size int) int {
	if size >= 19 {
		return size + style.WordSizeDiff(size)
	}
	return size
}

// Capacity 计算每栏可容纳的行数与字号预算。
type Capacity struct {
	geo    Geometry
	height LineHeightFunc
	log    *slog.Logger
}

// NewCapacity returns a Capacity; a nil height func selects WordLineHeight.
func NewCapacity(geo Geometry, height LineHeightFunc, log *slog.Logger) Capacity {
	if height == nil {
		height = WordLineHeight
	}
	if log == nil {
		log = slog.Default()
	}
	return Capacity{geo: geo, height: height, log: log}
}

// MaxLines is the number of default-size lines per column, filler lines excluded.
func (c Capacity) MaxLines(o Orientation) int {
	n := c.geo.MaxLinesPortrait
	if o == Landscape {
		n = c.geo.MaxLinesLandscape
	}
	return n - c.geo.FillerLines
}

// MaxBudget is MaxLines expressed in line-height units.
func (c Capacity) MaxBudget(o Orientation) int {
	return c.MaxLines(o) * c.geo.DefaultFontSize
}

// LineHeight returns the corrected height of a single line of the given size.
func (c Capacity) LineHeight(size int) int { return c.height(size) }

// Sum adds up the corrected heights of lines.
func (c Capacity) Sum(lines ...[]Line) int {
	sum := 0
	for _, group := range lines {
		for _, l := range group {
			sum += c.height(l.Style.FontSize)
		}
	}
	return sum
}

// ColumnSum sums the column's lines plus the page's heading lines, or returns
// -1 when the column does not resolve.
func (c Capacity) ColumnSum(doc *Document, col address.Address) int {
	if !doc.HasColumn(col) {
		c.log.Warn("capacity: column not found", "column", col.String())
		return -1
	}
	p := doc.pages[col.Page]
	return c.Sum(p.headings, p.columns[col.Column].lines)
}

// LinesOverhead is the signed number of default-size lines of slack (positive)
// or excess (negative) after adding delta to the column sum. ok is false when
// the column does not resolve.
func (c Capacity) LinesOverhead(doc *Document, col address.Address, delta int) (overhead int, ok bool) {
	sum := c.ColumnSum(doc, col)
	if sum < 0 {
		return 0, false
	}
	return c.overhead(doc.orientation, sum+delta), true
}

func (c Capacity) overhead(o Orientation, sum int) int {
	return floorDiv(c.MaxBudget(o)-sum, c.geo.DefaultFontSize)
}

// IsFontSizeChangeTooLarge reports whether adding delta pushes the column past
// its budget, together with the number of default-size lines that would have
// to go to compensate. An unresolvable column reports (false, 0).
func (c Capacity) IsFontSizeChangeTooLarge(doc *Document, col address.Address, delta int) (bool, int) {
	sum := c.ColumnSum(doc, col)
	if sum < 0 {
		return false, 0
	}
	over := c.overhead(doc.orientation, sum+delta)
	tooLarge := sum+delta > c.MaxBudget(doc.orientation)
	if over < 0 {
		over = -over
	}
	return tooLarge, over
}

// CanHold reports whether a page can take the given heading sizes on top of its
// existing headings while every column keeps room for one default line.
func (c Capacity) CanHold(doc *Document, pageIndex int, sizes ...int) bool {
	headings, ok := doc.Headings(pageIndex)
	if !ok {
		return false
	}
	sum := c.Sum(headings) + c.height(c.geo.DefaultFontSize)
	for _, s := range sizes {
		sum += c.height(s)
	}
	return sum <= c.MaxBudget(doc.orientation)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
