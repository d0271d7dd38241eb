package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/docbuilder/fonts"
	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/renderer"
	"github.com/ByLCY/docbuilder/style"
)

// pageAspect is height/width of an A4 sheet.
const pageAspect = 297.0 / 210.0

// Renderer measures text with github.com/tdewolff/canvas and draws PDF previews
// of document snapshots with the same faces, so preview and measurement agree.
type Renderer struct {
	geo    layout.Geometry
	height layout.LineHeightFunc
	log    *slog.Logger

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	Geometry   layout.Geometry // zero value selects layout.DefaultGeometry
	LineHeight layout.LineHeightFunc
	Logger     *slog.Logger
}

// NewRenderer creates a renderer with the default geometry.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer.
func NewRendererWithOptions(opts Options) *Renderer {
	if opts.Geometry == (layout.Geometry{}) {
		opts.Geometry = layout.DefaultGeometry()
	}
	if opts.LineHeight == nil {
		opts.LineHeight = layout.WordLineHeight
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Renderer{
		geo:          opts.Geometry,
		height:       opts.LineHeight,
		log:          opts.Logger,
		fontFamilies: map[string]*fontFamilyEntry{},
	}
}

// TextWidth 实现 layout.Measurer：返回文本在给定字体下的宽度（mm）。
// 字体加载失败时退回内置字体，仍失败则按字号估算。
func (r *Renderer) TextWidth(text string, font layout.Font) float64 {
	if text == "" {
		return 0
	}
	face, err := r.fontFace(font, style.Black)
	if err != nil {
		r.log.Warn("canvas: font unavailable, estimating width", "family", font.Family, "error", err)
		return estimateTextWidth(text, font.Size.ToMM())
	}
	return face.TextWidth(text)
}

// Render draws the snapshot into a PDF byte slice. Each document page becomes
// one PDF page; headings span the content width, column lines are laid out
// side by side.
func (r *Renderer) Render(snap *layout.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(snap.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	if snap.Columns < 1 {
		return nil, fmt.Errorf("分栏数 %d 不合法", snap.Columns)
	}

	width, height := r.pageSize(snap.Orientation)
	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	r.applyMeta(writer, snap.Meta)
	for i, page := range snap.Pages {
		if i > 0 {
			writer.NewPage(width, height)
		}
		c := canvas.New(width, height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, snap, page); err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", i, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) pageSize(o layout.Orientation) (float64, float64) {
	w := r.geo.PageWidth(o).ToMM()
	if o == layout.Landscape {
		return w, w / pageAspect
	}
	return w, w * pageAspect
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawPage(ctx *canvas.Context, snap *layout.Snapshot, page layout.PageSnapshot) error {
	pad := r.geo.PagePadding.ToMM()
	y := pad
	heading := r.geo.LineBox(snap.Orientation, snap.Columns, true)
	for _, l := range page.Headings {
		adv, err := r.drawLine(ctx, l, pad, y, heading)
		if err != nil {
			return err
		}
		y += adv
	}

	box := r.geo.LineBox(snap.Orientation, snap.Columns, false)
	gap := r.geo.ColumnGap.ToMM()
	for c, lines := range page.Columns {
		x := pad + float64(c)*(box.Width+gap)
		cy := y
		for _, l := range lines {
			adv, err := r.drawLine(ctx, l, x, cy, box)
			if err != nil {
				return err
			}
			cy += adv
		}
	}
	return nil
}

// drawLine draws one line at the top-left corner (x, y) and returns its advance in mm.
func (r *Renderer) drawLine(ctx *canvas.Context, l layout.Line, x, y float64, box layout.Box) (float64, error) {
	advance := float64(r.height(l.Style.FontSize)) * layout.PtToMm
	if l.Blank() {
		return advance, nil
	}
	face, err := r.fontFace(layout.FontOf(l.Style), l.Style.Color, decorations(l.Style)...)
	if err != nil {
		return 0, err
	}

	left := x + box.BorderLeft + box.PaddingLeft
	interior := box.Interior()
	var align canvas.TextAlign
	anchor := left
	switch l.Style.Align {
	case style.AlignCenter:
		align, anchor = canvas.Center, left+interior/2
	case style.AlignRight:
		align, anchor = canvas.Right, left+interior
	default:
		align = canvas.Left
	}

	text := strings.ReplaceAll(l.Text, "\t", strings.Repeat(" ", r.geo.TabWidth))
	baseline := y + face.Metrics().Ascent
	ctx.DrawText(anchor, baseline, canvas.NewTextLine(face, text, align))
	return advance, nil
}

func decorations(st style.Style) []canvas.FontDecorator {
	if st.Underline {
		return []canvas.FontDecorator{canvas.FontUnderline}
	}
	return nil
}

func (r *Renderer) fontFace(font layout.Font, col style.Color, deco ...canvas.FontDecorator) (*canvas.FontFace, error) {
	family, fstyle, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	args := []interface{}{colorOf(col), fstyle, canvas.FontNormal}
	for _, d := range deco {
		args = append(args, d)
	}
	return family.Face(font.Size.ToPT(), args...), nil
}

func (r *Renderer) ensureFontFamily(font layout.Font) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fonts.Key(font.Family, font.Bold(), font.Italic)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	fstyle := fontStyle(font)
	family := canvas.NewFontFamily(key)
	data, err := fonts.Load(font.Family, font.Bold(), font.Italic)
	if err == nil {
		err = family.LoadFont(data, 0, fstyle)
	}
	if err != nil {
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.log.Warn("canvas: using fallback font", "family", font.Family, "error", err)
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: canvas.FontRegular}
		return fallback, canvas.FontRegular, nil
	}

	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: fstyle}
	return family, fstyle, nil
}

func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(style.DefaultFamily, false, false)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("docbuilder-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func fontStyle(font layout.Font) canvas.FontStyle {
	s := canvas.FontRegular
	if font.Bold() {
		s = canvas.FontBold
	}
	if font.Italic {
		s |= canvas.FontItalic
	}
	return s
}

func colorOf(c style.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// estimateTextWidth approximates an average glyph as half the em size.
func estimateTextWidth(content string, sizeMM float64) float64 {
	return float64(len([]rune(content))) * sizeMM * 0.5
}
