// Package importer 把 Markdown 与 docx 文件转换为可流入排版引擎的内容块。
package importer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/style"
)

// headingSizes maps heading levels 1..6 to point sizes on the scale.
var headingSizes = [...]int{28, 20, 18, 16, 14, 14}

// Markdown parses r with goldmark. Level-1 headings become page headings,
// deeper headings bold paragraphs; list items, quotes and code keep one block each.
func Markdown(r io.Reader) ([]layout.Block, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取 Markdown 失败: %w", err)
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []layout.Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = appendNode(blocks, n, src, style.Default())
	}
	return blocks, nil
}

func appendNode(blocks []layout.Block, n ast.Node, src []byte, base style.Style) []layout.Block {
	switch node := n.(type) {
	case *ast.Heading:
		return append(blocks, headingBlock(node.Level, extractText(node, src)))
	case *ast.List:
		i := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "• "
			if node.IsOrdered() {
				marker = strconv.Itoa(i) + ". "
				i++
			}
			blocks = append(blocks, paragraph(marker+extractText(item, src), base))
		}
		return blocks
	case *ast.Blockquote:
		quote := base
		quote.Italic = true
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			blocks = appendNode(blocks, c, src, quote)
		}
		return blocks
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		code := base
		code.FontFamily = "Courier"
		return append(blocks, paragraph(strings.TrimRight(rawLines(n, src), "\n"), code))
	case *ast.ThematicBreak:
		return append(blocks, layout.Block{Kind: layout.BlockColumnBreak})
	default:
		t := extractText(n, src)
		if t == "" {
			return blocks
		}
		return append(blocks, paragraph(t, base))
	}
}

func headingBlock(level int, t string) layout.Block {
	if level < 1 {
		level = 1
	}
	if level > len(headingSizes) {
		level = len(headingSizes)
	}
	st := style.Default()
	st.FontSize = headingSizes[level-1]
	st.Bold = true
	if level == 1 {
		return layout.Block{Kind: layout.BlockHeading, Text: t, Style: st}
	}
	return layout.Block{Kind: layout.BlockParagraph, Text: t, Style: st}
}

func paragraph(t string, st style.Style) layout.Block {
	return layout.Block{Kind: layout.BlockParagraph, Text: t, Style: st}
}

func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// extractText gets the text content of a goldmark AST node. Soft and hard
// line breaks become spaces and newlines respectively.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		buf.WriteString(rawLines(n, src))
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() {
				buf.WriteByte('\n')
			} else if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			if buf.Len() > 0 && c.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
