// Package style 定义行的排版样式（字体、字号、粗斜体、对齐、颜色、缩进）。
//
// Style 是不可变的值类型：每一行持有自己的副本，修改一行永远不会影响另一行。
package style

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Align 表示行内文本的水平对齐方式。
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
	AlignJustify
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	default:
		return "left"
	}
}

// ParseAlign accepts the names produced by Align.String plus "start"/"end".
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left", "start":
		return AlignLeft, nil
	case "center":
		return AlignCenter, nil
	case "right", "end":
		return AlignRight, nil
	case "justify", "both":
		return AlignJustify, nil
	default:
		return AlignLeft, fmt.Errorf("style: 未知的对齐方式 %q", s)
	}
}

// Indent 表示段落缩进模式。
type Indent int

const (
	IndentNone Indent = iota
	IndentFirstLine
	IndentParagraph
	IndentBoth
)

func (i Indent) String() string {
	switch i {
	case IndentFirstLine:
		return "first-line"
	case IndentParagraph:
		return "paragraph"
	case IndentBoth:
		return "both"
	default:
		return "none"
	}
}

// ParseIndent parses an indent mode name.
func ParseIndent(s string) (Indent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return IndentNone, nil
	case "first-line", "firstline":
		return IndentFirstLine, nil
	case "paragraph":
		return IndentParagraph, nil
	case "both":
		return IndentBoth, nil
	default:
		return IndentNone, fmt.Errorf("style: 未知的缩进方式 %q", s)
	}
}

// Style 是一行的完整排版样式。
type Style struct {
	FontFamily string `json:"fontFamily"`
	FontSize   int    `json:"fontSize"` // pt, always one of Sizes
	Bold       bool   `json:"bold,omitempty"`
	Italic     bool   `json:"italic,omitempty"`
	Underline  bool   `json:"underline,omitempty"`
	Align      Align  `json:"align"`
	Color      Color  `json:"color"`
	Indent     Indent `json:"indent"`
}

// DefaultFamily is the baseline font family.
const DefaultFamily = "Calibri"

// Families lists the font families offered to the user.
var Families = []string{
	"Helvetica",
	"Arial",
	"Arial Black",
	"Verdana",
	"Tahoma",
	"Trebuchet MS",
	"Impact",
	"Gill Sans",
	"Times New Roman",
	"Georgia",
	"Palatino",
	"Baskerville",
	"Andalé Mono",
	"Courier",
	"Lucida",
	"Monaco",
	"Bradley Hand",
	"Brush Script MT",
	"Luminari",
	"Comic Sans MS",
	"Calibri",
}

// Default returns the document's baseline style.
func Default() Style {
	return Style{
		FontFamily: DefaultFamily,
		FontSize:   DefaultFontSize,
		Align:      AlignLeft,
		Color:      Black,
		Indent:     IndentNone,
	}
}

// Field names a single Style attribute for Derive.
type Field string

const (
	FieldFont      Field = "font"
	FieldSize      Field = "size"
	FieldBold      Field = "bold"
	FieldItalic    Field = "italic"
	FieldUnderline Field = "underline"
	FieldAlign     Field = "align"
	FieldColor     Field = "color"
	FieldIndent    Field = "indent"
)

// ErrUnknownField 表示样式覆盖中出现了未知字段。
var ErrUnknownField = errors.New("style: unknown field")

// Derive returns a copy of pred with the given fields replaced. Either every
// override applies or none does: on error the zero Style is returned.
func Derive(pred Style, overrides map[Field]string) (Style, error) {
	out := pred
	for field, raw := range overrides {
		val := strings.TrimSpace(raw)
		switch Field(strings.ToLower(string(field))) {
		case FieldFont:
			if val == "" {
				return Style{}, fmt.Errorf("style: 字体名称为空")
			}
			out.FontFamily = val
		case FieldSize:
			size, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(val), "pt"))
			if err != nil {
				return Style{}, fmt.Errorf("style: 字号 %q 无法解析: %w", raw, err)
			}
			if err := ValidateSize(size); err != nil {
				return Style{}, err
			}
			out.FontSize = size
		case FieldBold:
			b, err := parseBool(val)
			if err != nil {
				return Style{}, err
			}
			out.Bold = b
		case FieldItalic:
			b, err := parseBool(val)
			if err != nil {
				return Style{}, err
			}
			out.Italic = b
		case FieldUnderline:
			b, err := parseBool(val)
			if err != nil {
				return Style{}, err
			}
			out.Underline = b
		case FieldAlign:
			a, err := ParseAlign(val)
			if err != nil {
				return Style{}, err
			}
			out.Align = a
		case FieldColor:
			c, err := ParseColor(val)
			if err != nil {
				return Style{}, err
			}
			out.Color = c
		case FieldIndent:
			i, err := ParseIndent(val)
			if err != nil {
				return Style{}, err
			}
			out.Indent = i
		default:
			return Style{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return out, nil
}

// WithSize is Derive for the size field alone.
func (s Style) WithSize(size int) (Style, error) {
	if err := ValidateSize(size); err != nil {
		return Style{}, err
	}
	s.FontSize = size
	return s, nil
}

// Overrides returns the fields in which s differs from base, in the form Derive accepts.
func (s Style) Overrides(base Style) map[Field]string {
	out := map[Field]string{}
	if s.FontFamily != base.FontFamily {
		out[FieldFont] = s.FontFamily
	}
	if s.FontSize != base.FontSize {
		out[FieldSize] = strconv.Itoa(s.FontSize)
	}
	if s.Bold != base.Bold {
		out[FieldBold] = strconv.FormatBool(s.Bold)
	}
	if s.Italic != base.Italic {
		out[FieldItalic] = strconv.FormatBool(s.Italic)
	}
	if s.Underline != base.Underline {
		out[FieldUnderline] = strconv.FormatBool(s.Underline)
	}
	if s.Align != base.Align {
		out[FieldAlign] = s.Align.String()
	}
	if s.Color != base.Color {
		out[FieldColor] = s.Color.Hex()
	}
	if s.Indent != base.Indent {
		out[FieldIndent] = s.Indent.String()
	}
	return out
}

// Weight returns the CSS-style weight name used by text measurement.
func (s Style) Weight() string {
	if s.Bold {
		return "bold"
	}
	return "normal"
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("style: 布尔值 %q 无法解析", v)
	}
}
