package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/docbuilder/style"
)

// Orientation 为文档页面方向，创建后固定不变。
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// ParseOrientation accepts "portrait" and "landscape" (case-insensitive).
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	default:
		return Portrait, fmt.Errorf("未知的页面方向 %q", s)
	}
}

// Geometry 汇总页面几何与容量相关的配置。
type Geometry struct {
	MaxLinesPortrait  int `json:"maxLinesPortrait"`
	MaxLinesLandscape int `json:"maxLinesLandscape"`
	// FillerLines are prepended by the export backend to every column.
	FillerLines     int `json:"fillerLines"`
	MaxColumns      int `json:"maxColumns"`
	InitialPages    int `json:"initialPages"`
	DefaultFontSize int `json:"defaultFontSize"`
	TabWidth        int `json:"tabWidth"`

	PageWidthPortrait  Length `json:"pageWidthPortrait"`
	PageWidthLandscape Length `json:"pageWidthLandscape"`
	PagePadding        Length `json:"pagePadding"`
	ColumnGap          Length `json:"columnGap"`
	LinePadding        Length `json:"linePadding"`
	LineBorder         Length `json:"lineBorder"`
}

// DefaultGeometry returns the geometry of the A4 word-processor page the editor mimics.
func DefaultGeometry() Geometry {
	return Geometry{
		MaxLinesPortrait:   41,
		MaxLinesLandscape:  29,
		FillerLines:        1,
		MaxColumns:         3,
		InitialPages:       2,
		DefaultFontSize:    style.DefaultFontSize,
		TabWidth:           8,
		PageWidthPortrait:  Px(806),
		PageWidthLandscape: Px(1170),
		PagePadding:        Px(48),
		ColumnGap:          Px(16),
		LinePadding:        Px(2),
		LineBorder:         Px(1),
	}
}

// Validate rejects geometries the engine cannot work with.
func (g Geometry) Validate() error {
	if g.MaxColumns < 1 || g.MaxColumns > 3 {
		return fmt.Errorf("geometry: 最大分栏数 %d 超出 1..3", g.MaxColumns)
	}
	if g.DefaultFontSize <= 0 {
		return fmt.Errorf("geometry: 默认字号必须为正数")
	}
	if g.FillerLines < 0 || g.FillerLines >= g.MaxLinesPortrait || g.FillerLines >= g.MaxLinesLandscape {
		return fmt.Errorf("geometry: 填充行数 %d 不合法", g.FillerLines)
	}
	if g.TabWidth < 0 {
		return fmt.Errorf("geometry: 制表符宽度不能为负数")
	}
	if g.InitialPages < 1 {
		return fmt.Errorf("geometry: 初始页数至少为 1")
	}
	if g.PageWidthPortrait.ToMM() <= 0 || g.PageWidthLandscape.ToMM() <= 0 {
		return fmt.Errorf("geometry: 页面宽度必须为正数")
	}
	return nil
}

// ValidateColumns checks a per-document column count.
func (g Geometry) ValidateColumns(n int) error {
	if n < 1 || n > g.MaxColumns {
		return fmt.Errorf("分栏数 %d 超出 1..%d", n, g.MaxColumns)
	}
	return nil
}

// PageWidth returns the page width for the orientation.
func (g Geometry) PageWidth(o Orientation) Length {
	if o == Landscape {
		return g.PageWidthLandscape
	}
	return g.PageWidthPortrait
}

// Box describes a line container; all values are millimeters.
type Box struct {
	Width        float64 `json:"width"`
	PaddingLeft  float64 `json:"paddingLeft"`
	PaddingRight float64 `json:"paddingRight"`
	BorderLeft   float64 `json:"borderLeft"`
	BorderRight  float64 `json:"borderRight"`
}

// Interior is the width available to text.
func (b Box) Interior() float64 {
	w := b.Width - b.PaddingLeft - b.PaddingRight - b.BorderLeft - b.BorderRight
	if w < 0 {
		return 0
	}
	return w
}

// LineBox derives the box of a line. Heading lines span the page content width,
// column lines one column.
func (g Geometry) LineBox(o Orientation, columns int, heading bool) Box {
	content := g.PageWidth(o).ToMM() - 2*g.PagePadding.ToMM()
	width := content
	if !heading && columns > 1 {
		width = (content - float64(columns-1)*g.ColumnGap.ToMM()) / float64(columns)
	}
	pad := g.LinePadding.ToMM()
	border := g.LineBorder.ToMM()
	return Box{
		Width:        width,
		PaddingLeft:  pad,
		PaddingRight: pad,
		BorderLeft:   border,
		BorderRight:  border,
	}
}
