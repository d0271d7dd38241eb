package importer

import (
	"bytes"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/tdewolff/test"

	"github.com/ByLCY/docbuilder/layout"
	docxrenderer "github.com/ByLCY/docbuilder/renderer/docx"
	"github.com/ByLCY/docbuilder/style"
)

func writeDocx(t *testing.T, build func(d *docx.Docx)) []byte {
	t.Helper()
	d := docx.New().WithDefaultTheme()
	build(d)
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatalf("写入 docx 失败: %v", err)
	}
	return buf.Bytes()
}

func TestDocx(t *testing.T) {
	data := writeDocx(t, func(d *docx.Docx) {
		d.AddParagraph().Style("Heading1").AddText("Bericht")
		d.AddParagraph().Style("heading 2").AddText("Abschnitt")
		d.AddParagraph().Justification("center").AddText("mittig").Size("40").Bold().Color("336699")
		d.AddParagraph().AddPageBreaks()
		d.AddParagraph().AddText("a\tb").Size("23")
	})

	blocks, err := Docx(bytes.NewReader(data))
	test.Error(t, err)
	test.T(t, len(blocks), 5)

	test.T(t, blocks[0].Kind, layout.BlockHeading)
	test.String(t, blocks[0].Text, "Bericht")
	test.T(t, blocks[1].Kind, layout.BlockParagraph)
	test.That(t, blocks[1].Style.Bold, "level 2 heading is bold")

	mid := blocks[2]
	test.String(t, mid.Text, "mittig")
	test.T(t, mid.Style.Align, style.AlignCenter)
	test.T(t, mid.Style.FontSize, 20)
	test.That(t, mid.Style.Bold, "bold run")
	test.String(t, mid.Style.Color.Hex(), "336699")

	test.T(t, blocks[3].Kind, layout.BlockPageBreak)
	test.String(t, blocks[4].Text, "a\tb")
	test.T(t, blocks[4].Style.FontSize, 11)
}

// 导出的 docx 可以原样导入回来。
func TestDocxRoundTrip(t *testing.T) {
	st := style.Default()
	st.Italic = true
	snap := &layout.Snapshot{
		Columns: 1,
		Pages: []layout.PageSnapshot{
			{Columns: [][]layout.Line{{{Key: "a", Text: "hin und zurück", Style: st}}}},
		},
	}
	out, err := docxrenderer.NewRenderer(layout.DefaultGeometry(), nil).Render(snap)
	test.Error(t, err)

	blocks, err := DocxAt(bytes.NewReader(out), int64(len(out)))
	test.Error(t, err)
	var texts []string
	for _, b := range blocks {
		if b.Text != "" {
			texts = append(texts, b.Text)
			test.That(t, b.Style.Italic, "italic survives")
		}
	}
	test.T(t, texts, []string{"hin und zurück"})
}

func TestDocxRejectsGarbage(t *testing.T) {
	_, err := DocxAt(bytes.NewReader([]byte("kein zip")), 8)
	test.That(t, err != nil, "not a zip archive")
}

func TestNearestSize(t *testing.T) {
	test.T(t, nearestSize(2), 8)
	test.T(t, nearestSize(14), 14)
	test.T(t, nearestSize(13), 12)
	test.T(t, nearestSize(15), 14)
	test.T(t, nearestSize(17), 16)
	test.T(t, nearestSize(30), 28)
	test.T(t, nearestSize(100), 72)
}
