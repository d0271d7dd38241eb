package layout

import (
	"fmt"
	"testing"
	"unicode/utf8"
)

// stubMeasurer 是确定性的测量实现：每个字符宽度为 字号/7 mm（14pt 即 2mm），
// 使测试结果不依赖字体环境。
type stubMeasurer struct{}

func (stubMeasurer) TextWidth(text string, font Font) float64 {
	return float64(utf8.RuneCountInString(text)) * font.Size.ToPT() / 7
}

// recordingNotifier 记录引擎发出的提示。
type recordingNotifier struct {
	flashes []string
	notices []Notice
}

func (r *recordingNotifier) Flash(key string)  { r.flashes = append(r.flashes, key) }
func (r *recordingNotifier) Notice(n Notice) { r.notices = append(r.notices, n) }

// testGeometry 使用 100mm 宽、无内边距的页面：单栏每行恰好容纳 50 个 14pt 字符。
func testGeometry() Geometry {
	g := DefaultGeometry()
	g.PageWidthPortrait = Mm(100)
	g.PageWidthLandscape = Mm(140)
	g.PagePadding = Length{}
	g.ColumnGap = Length{}
	g.LinePadding = Length{}
	g.LineBorder = Length{}
	g.InitialPages = 1
	return g
}

func sequentialKeys() KeyGenerator { return prefixedKeys("k") }

func prefixedKeys(prefix string) KeyGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newTestEngine(t *testing.T, columns int) (*Engine, *recordingNotifier) {
	t.Helper()
	rec := &recordingNotifier{}
	e, err := New(Options{
		Measurer: stubMeasurer{},
		Geometry: testGeometry(),
		Columns:  columns,
		Notifier: rec,
		KeyGen:   sequentialKeys(),
	})
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	return e, rec
}

// checkIndex 断言 key→位置索引与实际结构一致。
func checkIndex(t *testing.T, e *Engine) {
	t.Helper()
	count := 0
	for p, pg := range e.doc.pages {
		for i, h := range pg.headings {
			count++
			if pos := e.doc.index[h.Key]; pos != (position{page: p, line: i, heading: true}) {
				t.Fatalf("heading %s indexed at %+v, actual page %d line %d", h.Key, pos, p, i)
			}
		}
		for c, col := range pg.columns {
			for i, l := range col.lines {
				count++
				if pos := e.doc.index[l.Key]; pos != (position{page: p, column: c, line: i}) {
					t.Fatalf("line %s indexed at %+v, actual %d/%d/%d", l.Key, pos, p, c, i)
				}
			}
		}
	}
	if count != len(e.doc.index) {
		t.Fatalf("index holds %d keys, document has %d lines", len(e.doc.index), count)
	}
}

func columnLen(e *Engine, page, col int) int {
	return len(e.doc.pages[page].columns[col].lines)
}
