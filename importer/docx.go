package importer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/style"
)

// Docx reads a .docx stream. go-docx needs a ReaderAt and a size, so the
// stream is spooled to a temp file first.
func Docx(r io.Reader) ([]layout.Block, error) {
	tmp, err := os.CreateTemp("", "docbuilder-import-*.docx")
	if err != nil {
		return nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, fmt.Errorf("写入临时文件失败: %w", err)
	}
	return DocxAt(tmp, size)
}

// DocxAt parses a .docx held by a ReaderAt. Paragraphs styled "Heading1"
// become page headings, other heading levels bold paragraphs. Run formatting of
// the first run (size, bold, italic, underline, color) and the paragraph
// justification carry over.
func DocxAt(ra io.ReaderAt, size int64) ([]layout.Block, error) {
	doc, err := docx.Parse(ra, size)
	if err != nil {
		return nil, fmt.Errorf("解析 docx 失败: %w", err)
	}

	var blocks []layout.Block
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if isPageBreak(para) {
			blocks = append(blocks, layout.Block{Kind: layout.BlockPageBreak})
			continue
		}
		t := paragraphText(para)
		if level := headingLevel(para); level > 0 && t != "" {
			blocks = append(blocks, headingBlock(level, t))
			continue
		}
		blocks = append(blocks, paragraph(t, paragraphStyle(para)))
	}
	return blocks, nil
}

func headingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	name := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(name, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(name, "heading"))
	if err != nil || level < 1 || level > 6 {
		return 0
	}
	return level
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			}
		}
	}
	return strings.TrimRight(buf.String(), " ")
}

func isPageBreak(para *docx.Paragraph) bool {
	found := false
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.BarterRabbet:
				if t.Type == "page" {
					found = true
				}
			case *docx.Text:
				if strings.TrimSpace(t.Text) != "" {
					return false
				}
			}
		}
	}
	return found
}

func paragraphStyle(para *docx.Paragraph) style.Style {
	st := style.Default()
	if para.Properties != nil && para.Properties.Justification != nil {
		if a, err := style.ParseAlign(para.Properties.Justification.Val); err == nil {
			st.Align = a
		}
	}
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok || run.RunProperties == nil {
			continue
		}
		rp := run.RunProperties
		if rp.Size != nil {
			if half, err := strconv.Atoi(rp.Size.Val); err == nil {
				st.FontSize = nearestSize(half / 2)
			}
		}
		if rp.Fonts != nil && rp.Fonts.ASCII != "" {
			st.FontFamily = rp.Fonts.ASCII
		}
		st.Bold = rp.Bold != nil
		st.Italic = rp.Italic != nil
		st.Underline = rp.Underline != nil && rp.Underline.Val != "" && rp.Underline.Val != "none"
		if rp.Color != nil {
			if c, err := style.ParseColor(rp.Color.Val); err == nil {
				st.Color = c
			}
		}
		break
	}
	return st
}

// nearestSize snaps a point size onto the scale.
func nearestSize(size int) int {
	i := sort.SearchInts(style.Sizes, size)
	switch {
	case i == 0:
		return style.Sizes[0]
	case i == len(style.Sizes):
		return style.Sizes[len(style.Sizes)-1]
	case style.Sizes[i]-size < size-style.Sizes[i-1]:
		return style.Sizes[i]
	default:
		return style.Sizes[i-1]
	}
}
