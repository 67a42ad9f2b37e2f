package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/furigana/fonts"
	"github.com/ByLCY/furigana/internal/log"
	"github.com/ByLCY/furigana/layout"
	"github.com/ByLCY/furigana/renderer"
)

const defaultRuleWidth = 0.3

// Format 选择输出格式。
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
)

// ParseFormat 接受 pdf/svg（不区分大小写），其余值返回错误。
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatSVG:
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("不支持的输出格式：%s", v)
	}
}

// Renderer draws layout results via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string
	format  Format

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Format  Format
	Fonts   map[string]Resource // fonts accessible via builtin:<name>, checked before the Go fonts
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		format:       opts.Format,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	if r.format == "" {
		r.format = FormatPDF
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, err := os.ReadFile(res.Path)
			if err != nil {
				log.ErrorErr(log.CatFont, "injected font unreadable", err, "name", name, "path", res.Path)
				continue
			}
			r.fontBlobs[name] = data
		}
	}
	return r
}

// Render renders the result as PDF (one page per layout page) or SVG (pages stacked vertically).
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	if r.format == FormatSVG {
		return r.renderSVG(result)
	}
	return r.renderPDF(result)
}

func (r *Renderer) renderPDF(result *layout.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	keywords := strings.Join(result.Meta.Keywords, ", ")
	writer.SetInfo(result.Meta.Title, result.Meta.Subject, keywords, result.Meta.Author, result.Meta.Creator)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
		if err := r.drawPage(ctx, page, 0, result.Resources); err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	log.Debug(log.CatRender, "pdf rendered", "pages", len(result.Pages), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (r *Renderer) renderSVG(result *layout.Result) ([]byte, error) {
	width, height := 0.0, 0.0
	for _, page := range result.Pages {
		width = max(width, page.Width)
		height += page.Height
	}
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	offsetY := 0.0
	for _, page := range result.Pages {
		if err := r.drawPage(ctx, page, offsetY, result.Resources); err != nil {
			return nil, err
		}
		offsetY += page.Height
	}

	var buf bytes.Buffer
	writer := svg.New(&buf, width, height, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	log.Debug(log.CatRender, "svg rendered", "pages", len(result.Pages), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, offsetY float64, resources layout.ResourceSet) error {
	for _, rule := range page.Rules {
		w := rule.Width
		if w <= 0 {
			w = defaultRuleWidth
		}
		ctx.SetStrokeColor(colorFromLayout(rule.Color))
		ctx.SetStrokeWidth(w)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(rule.X2-rule.X1, 0)
		ctx.DrawPath(rule.X1, rule.Y+offsetY, p)
	}
	for _, tb := range page.Blocks {
		font, ok := resources.Fonts[tb.Font]
		if !ok {
			font = layout.FontResource{Name: tb.Font, Src: "builtin:" + fonts.Default}
		}
		if err := r.drawTextBlock(ctx, tb, offsetY, font); err != nil {
			return err
		}
	}
	return nil
}

// drawTextBlock 逐段绘制注音文本：普通段整体绘制；注音段逐字绘制，
// 较窄一侧在每个字符前插入 Offset，注音基线位于正文基线上方一个正文字号处。
func (r *Renderer) drawTextBlock(ctx *canvas.Context, tb layout.TextBlock, offsetY float64, font layout.FontResource) error {
	family, err := r.ensureFontFamily(font)
	if err != nil {
		return err
	}
	col := colorFromLayout(tb.Color)
	body := newFaceSet(family, toPt(tb.Metrics.TextSize), col, true)
	gloss := newFaceSet(family, toPt(tb.Metrics.GlossSize), col, false)

	for i, line := range tb.Lines {
		x := tb.X + layout.AlignOffset(line.Width, tb.Width, tb.Align)
		baseY := tb.Y + offsetY + tb.Metrics.Baseline(i)
		glossY := tb.Y + offsetY + tb.Metrics.GlossBaseline(i)
		for _, seg := range line.Segments {
			if !seg.IsRuby() {
				face := body.face(seg.Style)
				ctx.DrawText(x, baseY, canvas.NewTextLine(face, seg.Text, canvas.Left))
				x += seg.Width
				continue
			}
			drawSpread(ctx, body.face(seg.Style), seg.Text, x, baseY, spreadFor(seg, layout.SideBase))
			drawSpread(ctx, gloss.face(seg.Style), seg.Gloss, x, glossY, spreadFor(seg, layout.SideGloss))
			x += seg.Width
		}
	}
	return nil
}

func spreadFor(seg layout.Segment, side layout.Side) float64 {
	if seg.OffsetSide == side {
		return seg.Offset
	}
	return 0
}

// drawSpread 逐字绘制 text，每个字符前先前进 offset。
func drawSpread(ctx *canvas.Context, face *canvas.FontFace, text string, x, y, offset float64) {
	if offset == 0 {
		ctx.DrawText(x, y, canvas.NewTextLine(face, text, canvas.Left))
		return
	}
	for _, r := range text {
		x += offset
		s := string(r)
		ctx.DrawText(x, y, canvas.NewTextLine(face, s, canvas.Left))
		x += face.TextWidth(s)
	}
}

// Fonts 实现 layout.Typesetter：正文与注音分别按各自字号创建度量器，宽度单位为 mm。
// 注音不继承下划线。
func (r *Renderer) Fonts(font layout.FontResource, metrics layout.Metrics) (layout.Fonts, error) {
	family, err := r.ensureFontFamily(font)
	if err != nil {
		return layout.Fonts{}, err
	}
	return layout.Fonts{
		Body:     &faceMeasurer{set: newFaceSet(family, toPt(metrics.TextSize), canvas.Black, true)},
		Gloss:    &faceMeasurer{set: newFaceSet(family, toPt(metrics.GlossSize), canvas.Black, false)},
		TextSize: metrics.TextSize,
		ID:       fmt.Sprintf("%s@%g/%g", fontCacheKey(font), metrics.TextSize, metrics.GlossSize),
	}, nil
}

// faceSet 按样式懒加载同一字号的字体面。
type faceSet struct {
	mu        sync.Mutex
	family    *canvas.FontFamily
	sizePt    float64
	col       color.Color
	underline bool
	faces     map[layout.Style]*canvas.FontFace
}

func newFaceSet(family *canvas.FontFamily, sizePt float64, col color.Color, underline bool) *faceSet {
	return &faceSet{
		family:    family,
		sizePt:    sizePt,
		col:       col,
		underline: underline,
		faces:     map[layout.Style]*canvas.FontFace{},
	}
}

func (s *faceSet) face(style layout.Style) *canvas.FontFace {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.faces[style]; ok {
		return f
	}
	args := []interface{}{s.col, fontStyle(style), canvas.FontNormal}
	if style.Underline && s.underline {
		args = append(args, canvas.FontUnderline)
	}
	f := s.family.Face(s.sizePt, args...)
	s.faces[style] = f
	return f
}

// faceMeasurer 适配 layout.Measurer。字形整形不保证并发安全，因此测量时持锁。
type faceMeasurer struct {
	mu  sync.Mutex
	set *faceSet
}

func (m *faceMeasurer) Measure(text string, style layout.Style) float64 {
	face := m.set.face(style)
	m.mu.Lock()
	defer m.mu.Unlock()
	return face.TextWidth(text)
}

func (m *faceMeasurer) MeasureChar(r rune, style layout.Style) float64 {
	return m.Measure(string(r), style)
}

func fontStyle(style layout.Style) canvas.FontStyle {
	s := canvas.FontRegular
	if style.Bold {
		s |= canvas.FontBold
	}
	if style.Italic {
		s |= canvas.FontItalic
	}
	return s
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}

	familyName := font.Family
	if familyName == "" {
		familyName = font.Name
	}
	if familyName == "" {
		familyName = "Body"
	}
	family := canvas.NewFontFamily(familyName)
	if err := r.loadFontInto(family, font.Src, canvas.FontRegular); err != nil {
		if font.Fallback != "" {
			err = r.loadFontInto(family, font.Fallback, canvas.FontRegular)
		}
		if err != nil {
			log.Warn(log.CatFont, "font unavailable, using fallback", "font", font.Name, "src", font.Src, "error", err)
			fallback, fbErr := r.fallback()
			if fbErr != nil {
				return nil, err
			}
			r.fontFamilies[key] = fallback
			return fallback, nil
		}
	}
	// 缺失的变体由 canvas 以仿粗体/仿斜体代替。
	variants := []struct {
		src   string
		style canvas.FontStyle
	}{
		{font.Bold, canvas.FontBold},
		{font.Italic, canvas.FontItalic},
		{font.BoldItalic, canvas.FontBold | canvas.FontItalic},
	}
	for _, v := range variants {
		if v.src == "" {
			continue
		}
		if err := r.loadFontInto(family, v.src, v.style); err != nil {
			log.Warn(log.CatFont, "font variant skipped", "font", font.Name, "src", v.src, "error", err)
		}
	}

	r.fontFamilies[key] = family
	return family, nil
}

func (r *Renderer) loadFontInto(family *canvas.FontFamily, src string, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(src)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("字体缺少 src")
	}
	if name, ok := strings.CutPrefix(src, "builtin:"); ok {
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return fonts.Load(name)
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 builtin:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

// fallback 需在持有 fontMu 时调用。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("furigana-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func fontCacheKey(font layout.FontResource) string {
	return strings.Join([]string{font.Name, font.Src, font.Bold, font.Italic, font.BoldItalic}, "|")
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return layout.Length{Value: mm, Unit: layout.UnitMM}.PT() }
