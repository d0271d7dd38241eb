package layout

import (
	"strings"

	"github.com/ByLCY/docbuilder/style"
)

// 该文件定义文档模型的公开值类型，供引擎、导出器、草稿存储与调试 JSON 共用。

// Line 是一行可编辑文本。Key 是稳定的不透明标识；行号只是派生的位置。
type Line struct {
	Key     string      `json:"key"`
	Text    string      `json:"text"`
	Style   style.Style `json:"style"`
	Heading bool        `json:"heading,omitempty"`
}

// Blank reports whether the line holds only whitespace.
func (l Line) Blank() bool { return strings.TrimSpace(l.Text) == "" }

// DocumentMeta 记录文档元信息，导出时写入文件属性。
type DocumentMeta struct {
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Creator  string   `json:"creator,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	FileName string   `json:"fileName,omitempty"`
}

// PageSnapshot 是一页的只读副本：页级标题行加上各栏的行。
type PageSnapshot struct {
	Headings []Line   `json:"headings,omitempty"`
	Columns  [][]Line `json:"columns"`
}

// Snapshot 是整个文档的可序列化模型，交给导出器与草稿存储。
type Snapshot struct {
	Orientation Orientation    `json:"orientation"`
	Columns     int            `json:"columns"`
	Meta        DocumentMeta   `json:"meta"`
	Pages       []PageSnapshot `json:"pages"`
}

// BlockKind 区分可流入文档的内容块。
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockColumnBreak
	BlockPageBreak
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockColumnBreak:
		return "column-break"
	case BlockPageBreak:
		return "page-break"
	default:
		return "paragraph"
	}
}

// Block 是模板、Markdown 或 docx 导入后得到的一段内容。
type Block struct {
	Kind  BlockKind   `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Style style.Style `json:"style"`
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(b []byte) error {
	v, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
