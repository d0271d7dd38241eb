// Package address 负责页面、分栏与行节点的结构化标识。
//
// 标识格式为 <Prefix>_<page>[_<column>][_<line>][_<discriminator>]，缺省部分直接省略。
package address

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Kind 表示地址所指向的结构层级。
type Kind int

const (
	KindPage Kind = iota
	KindColumn
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindColumn:
		return "column"
	case KindLine:
		return "line"
	default:
		return "unknown"
	}
}

// Prefix returns the id prefix used for nodes of this kind.
func (k Kind) Prefix() string {
	switch k {
	case KindColumn:
		return PrefixColumn
	case KindLine:
		return PrefixLine
	default:
		return PrefixPage
	}
}

const (
	PrefixPage   = "Page"
	PrefixColumn = "Column"
	PrefixLine   = "Line"

	// HeadingDiscriminator marks lines that span the whole page width.
	HeadingDiscriminator = "heading"

	// None marks an absent optional index in Encode.
	None = -1

	sep = "_"
)

// ErrMalformed 表示标识无法解析。
var ErrMalformed = errors.New("address: malformed id")

// ParseError carries the offending id and the segment that failed.
type ParseError struct {
	ID      string
	Segment int
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("address: 无法解析 %q (segment %d): %s", e.ID, e.Segment, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// Address identifies a page, a column or a line. Column and Line are only
// meaningful for the kinds that carry them.
type Address struct {
	Kind          Kind   `json:"kind"`
	Page          int    `json:"page"`
	Column        int    `json:"column,omitempty"`
	Line          int    `json:"line,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
}

// Page returns a page address.
func Page(page int) Address { return Address{Kind: KindPage, Page: page} }

// Column returns a column address.
func Column(page, column int) Address {
	return Address{Kind: KindColumn, Page: page, Column: column}
}

// Line returns a line address inside a column.
func Line(page, column, line int) Address {
	return Address{Kind: KindLine, Page: page, Column: column, Line: line}
}

// Heading returns the address of the index-th heading line of a page.
// Heading lines sit in the page-level slot 0 and carry the heading discriminator.
func Heading(page, index int) Address {
	return Address{Kind: KindLine, Page: page, Column: 0, Line: index, Discriminator: HeadingDiscriminator}
}

// IsHeading reports whether a line address targets a page-wide heading line.
func (a Address) IsHeading() bool {
	return a.Kind == KindLine && a.Discriminator == HeadingDiscriminator
}

// ColumnAddress projects a line or column address to its column.
func (a Address) ColumnAddress() (Address, bool) {
	if a.Kind == KindPage {
		return Address{}, false
	}
	return Column(a.Page, a.Column), true
}

// PageAddress projects any address to its page.
func (a Address) PageAddress() Address { return Page(a.Page) }

// String encodes the address.
func (a Address) String() string {
	switch a.Kind {
	case KindPage:
		return Encode(PrefixPage, a.Page, None, None, a.Discriminator)
	case KindColumn:
		return Encode(PrefixColumn, a.Page, a.Column, None, a.Discriminator)
	default:
		return Encode(PrefixLine, a.Page, a.Column, a.Line, a.Discriminator)
	}
}

// Encode joins the parts with "_". Negative column or line means absent.
// A blank prefix or negative page is logged as a usage error; the best-effort
// string is still returned.
func Encode(prefix string, page, column, line int, discriminator string) string {
	if strings.TrimSpace(prefix) == "" {
		slog.Error("address: encode with blank prefix", "page", page, "column", column, "line", line)
	}
	if page < 0 {
		slog.Error("address: encode with invalid page index", "prefix", prefix, "page", page)
	}
	if strings.Contains(discriminator, sep) {
		slog.Warn("address: discriminator contains separator", "discriminator", discriminator)
	}

	parts := make([]string, 0, 5)
	parts = append(parts, prefix, strconv.Itoa(page))
	if column >= 0 {
		parts = append(parts, strconv.Itoa(column))
	}
	if line >= 0 {
		parts = append(parts, strconv.Itoa(line))
	}
	if discriminator != "" {
		parts = append(parts, discriminator)
	}
	return strings.Join(parts, sep)
}

// WithDiscriminator appends a discriminator to an existing id.
func WithDiscriminator(id, discriminator string) string {
	if discriminator == "" {
		return id
	}
	if id == "" {
		slog.Error("address: cannot append discriminator to blank id", "discriminator", discriminator)
		return id
	}
	return id + sep + discriminator
}

// DecodePart returns the k-th segment of id or "" when k is out of range.
func DecodePart(id string, k int) string {
	if id == "" {
		slog.Error("address: decode blank id", "part", k)
		return ""
	}
	parts := strings.Split(id, sep)
	if k < 0 || k >= len(parts) {
		slog.Error("address: part index out of range", "id", id, "part", k, "parts", len(parts))
		return ""
	}
	return parts[k]
}

// Parse decodes an id produced by Encode.
func Parse(id string) (Address, error) {
	if id == "" {
		return Address{}, &ParseError{ID: id, Segment: 0, Reason: "空标识"}
	}
	parts := strings.Split(id, sep)

	var a Address
	switch parts[0] {
	case PrefixPage:
		a.Kind = KindPage
	case PrefixColumn:
		a.Kind = KindColumn
	case PrefixLine:
		a.Kind = KindLine
	default:
		return Address{}, &ParseError{ID: id, Segment: 0, Reason: "未知前缀 " + parts[0]}
	}

	want := 2 + int(a.Kind) // prefix + page [+ column] [+ line]
	if len(parts) < want {
		return Address{}, &ParseError{ID: id, Segment: len(parts), Reason: "缺少必要部分"}
	}
	idx := make([]int, 0, 3)
	for i := 1; i < want; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return Address{}, &ParseError{ID: id, Segment: i, Reason: "索引不是非负整数"}
		}
		idx = append(idx, n)
	}
	a.Page = idx[0]
	if a.Kind >= KindColumn {
		a.Column = idx[1]
	}
	if a.Kind == KindLine {
		a.Line = idx[2]
	}
	switch rest := parts[want:]; len(rest) {
	case 0:
	case 1:
		a.Discriminator = rest[0]
	default:
		return Address{}, &ParseError{ID: id, Segment: want + 1, Reason: "多余的部分"}
	}
	return a, nil
}

// ColumnOf projects a line or column id to its column address. Page ids carry
// no column and are rejected.
func ColumnOf(id string) (Address, bool) {
	a, err := Parse(id)
	if err != nil {
		slog.Warn("address: cannot resolve column", "id", id, "error", err)
		return Address{}, false
	}
	if a.Kind == KindPage {
		slog.Warn("address: page id has no column", "id", id)
		return Address{}, false
	}
	return Column(a.Page, a.Column), true
}

// PageOf projects any id to its page address.
func PageOf(id string) (Address, bool) {
	parts := strings.Split(id, sep)
	if len(parts) < 2 {
		slog.Warn("address: id too shallow for page", "id", id)
		return Address{}, false
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil || page < 0 {
		slog.Warn("address: cannot resolve page", "id", id)
		return Address{}, false
	}
	return Page(page), true
}
