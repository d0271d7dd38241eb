// Package docxrenderer 把文档快照导出为 Word (.docx) 文件。
package docxrenderer

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/renderer"
	"github.com/ByLCY/docbuilder/style"
)

// A4 in twentieths of a point.
const (
	a4Short = 11906
	a4Long  = 16838
)

// Renderer writes snapshots with github.com/fumiama/go-docx. Every column is
// preceded by the filler lines the word processor inserts on its own, so the
// line budget of the editor and of the exported file agree.
type Renderer struct {
	fillerLines int
	log         *slog.Logger
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer creates a docx renderer. A nil logger selects slog.Default().
func NewRenderer(geo layout.Geometry, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{fillerLines: geo.FillerLines, log: log}
}

// Render 生成 docx 字节流。
func (r *Renderer) Render(snap *layout.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(snap.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	doc := docx.New().WithDefaultTheme()
	for i, page := range snap.Pages {
		if i > 0 {
			doc.AddParagraph().AddPageBreaks()
		}
		for _, l := range page.Headings {
			r.addLine(doc, l)
		}
		for _, lines := range page.Columns {
			for n := 0; n < r.fillerLines; n++ {
				doc.AddParagraph()
			}
			for _, l := range lines {
				r.addLine(doc, l)
			}
		}
	}
	doc.Document.Body.Items = append(doc.Document.Body.Items, pageSection(snap.Orientation))

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("写入 docx 失败: %w", err)
	}
	r.log.Debug("docx: rendered", "pages", len(snap.Pages), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (r *Renderer) addLine(doc *docx.Docx, l layout.Line) {
	para := doc.AddParagraph().Justification(justification(l.Style.Align))
	if ind := indentation(l.Style.Indent); ind != nil {
		para.Properties.Ind = ind
	}
	if l.Text == "" {
		return
	}
	run := para.AddText(l.Text)
	applyRunStyle(run, l.Style)
}

func applyRunStyle(run *docx.Run, st style.Style) {
	run.Size(halfPoints(st.FontSize)).SizeCs(halfPoints(st.FontSize))
	if st.FontFamily != "" {
		run.Font(st.FontFamily, st.FontFamily, st.FontFamily, "")
	}
	if st.Bold {
		run.Bold()
	}
	if st.Italic {
		run.Italic()
	}
	if st.Underline {
		run.Underline("single")
	}
	if st.Color != style.Black {
		run.Color(st.Color.Hex())
	}
}

// halfPoints converts a point size to the w:sz unit.
func halfPoints(size int) string { return strconv.Itoa(size * 2) }

func justification(a style.Align) string {
	switch a {
	case style.AlignCenter:
		return "center"
	case style.AlignRight:
		return "right"
	case style.AlignJustify:
		return "both"
	default:
		return "left"
	}
}

// 缩进单位为 twip，约等于半英寸。
func indentation(i style.Indent) *docx.Ind {
	const step = 720
	switch i {
	case style.IndentFirstLine:
		return &docx.Ind{FirstLine: step}
	case style.IndentParagraph:
		return &docx.Ind{Left: step}
	case style.IndentBoth:
		return &docx.Ind{Left: step, FirstLine: step}
	default:
		return nil
	}
}

func pageSection(o layout.Orientation) *docx.SectPr {
	size := &docx.PgSz{W: a4Short, H: a4Long}
	if o == layout.Landscape {
		size = &docx.PgSz{W: a4Long, H: a4Short}
	}
	return &docx.SectPr{PgSz: size}
}
