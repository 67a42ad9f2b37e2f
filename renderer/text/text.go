// Package text 在终端中输出注音文本：每行先输出注音行，再输出正文行。
//
// 宽度以等宽字符格计：ASCII 占 1 格，全角字符占 2 格。作为 layout.Typesetter 使用时，
// 1 格对应正文字号的一半（mm），因此同一份文档可以直接排成 PDF 或终端文本。
package text

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"github.com/rivo/uniseg"

	"github.com/ByLCY/furigana/internal/log"
	"github.com/ByLCY/furigana/layout"
	"github.com/ByLCY/furigana/renderer"
)

// CellMeasurer 以字符格计宽，Cell 为每格的宽度。
type CellMeasurer struct {
	Cell float64
}

func (m CellMeasurer) Measure(text string, _ layout.Style) float64 {
	return float64(runewidth.StringWidth(text)) * m.cell()
}

func (m CellMeasurer) MeasureChar(r rune, _ layout.Style) float64 {
	return float64(runewidth.RuneWidth(r)) * m.cell()
}

func (m CellMeasurer) cell() float64 {
	if m.Cell <= 0 {
		return 1
	}
	return m.Cell
}

// Fonts 返回每格宽 1 的度量器，用于直接以字符格为单位排版。终端无法缩小注音字号，
// 注音与正文共用同一格宽。
func Fonts() layout.Fonts {
	m := CellMeasurer{Cell: 1}
	return layout.Fonts{Body: m, Gloss: m, TextSize: 2, ID: "cells"}
}

// Options 控制终端输出。
type Options struct {
	ANSI bool // 用 ANSI 转义序列表现粗体、斜体与下划线
}

// Renderer 同时实现 layout.Typesetter 与 renderer.Renderer。
type Renderer struct {
	opts Options
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

func New(opts Options) *Renderer { return &Renderer{opts: opts} }

// Fonts 实现 layout.Typesetter：1 格 = 正文字号的一半。
func (r *Renderer) Fonts(font layout.FontResource, metrics layout.Metrics) (layout.Fonts, error) {
	cell := metrics.TextSize / 2
	if cell <= 0 {
		return layout.Fonts{}, fmt.Errorf("字号无效：%g", metrics.TextSize)
	}
	m := CellMeasurer{Cell: cell}
	return layout.Fonts{
		Body:     m,
		Gloss:    m,
		TextSize: metrics.TextSize,
		ID:       fmt.Sprintf("cells@%g", cell),
	}, nil
}

// Render 按页输出全部文本块与分隔线，页之间以换页符分隔。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	var buf bytes.Buffer
	for i, page := range result.Pages {
		if i > 0 {
			buf.WriteString("\f\n")
		}
		r.renderPage(&buf, page)
	}
	log.Debug(log.CatRender, "text rendered", "pages", len(result.Pages), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// renderPage 按纵坐标顺序交错输出文本块与分隔线。
func (r *Renderer) renderPage(w *bytes.Buffer, page layout.Page) {
	rules := page.Rules
	for _, tb := range page.Blocks {
		for len(rules) > 0 && rules[0].Y <= tb.Y {
			writeRule(w, rules[0], page.Margin.Left, tb.Metrics.TextSize/2)
			rules = rules[1:]
		}
		cell := tb.Metrics.TextSize / 2
		indent := cells(tb.X-page.Margin.Left, cell)
		width := cells(tb.Width, cell)
		for _, line := range tb.Lines {
			r.writeLine(w, line, indent, width, tb.Align, cell)
		}
		w.WriteByte('\n')
	}
	for _, rule := range rules {
		writeRule(w, rule, page.Margin.Left, 0)
	}
}

func writeRule(w io.Writer, rule layout.Rule, left, cell float64) {
	if cell <= 0 {
		cell = 2
	}
	indent := cells(rule.X1-left, cell)
	fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", indent), strings.Repeat("─", max(cells(rule.X2-rule.X1, cell), 1)))
}

// RenderModel 以字符格为单位输出 Model（通常由 Fonts() 排版得到）。
// maxWidth <= 0 时不做对齐；maxLines <= 0 时输出全部行。
func (r *Renderer) RenderModel(w io.Writer, m layout.Model, maxWidth int, align layout.Align, maxLines int) error {
	var buf bytes.Buffer
	for _, line := range m.Visible(maxLines) {
		r.writeLine(&buf, line, 0, maxWidth, align, 1)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// writeLine 输出一行：有注音时先输出注音行。
func (r *Renderer) writeLine(w *bytes.Buffer, line layout.Line, indent, width int, align layout.Align, cell float64) {
	maxWidth := layout.Unbounded
	if width > 0 {
		maxWidth = float64(width) * cell
	}
	x := float64(indent)*cell + layout.AlignOffset(line.Width, maxWidth, align)

	var gloss, base row
	hasGloss := false
	for _, seg := range line.Segments {
		if !seg.IsRuby() {
			base.put(cells(x, cell), r.style(seg.Text, seg.Style))
			x += seg.Width
			continue
		}
		r.spread(&base, seg.Text, seg.Style, x, spreadFor(seg, layout.SideBase), cell)
		r.spread(&gloss, seg.Gloss, layout.Style{Bold: seg.Style.Bold, Italic: seg.Style.Italic}, x, spreadFor(seg, layout.SideGloss), cell)
		hasGloss = hasGloss || seg.Gloss != ""
		x += seg.Width
	}
	if hasGloss {
		w.WriteString(gloss.String())
		w.WriteByte('\n')
	}
	w.WriteString(base.String())
	w.WriteByte('\n')
}

// spread 逐个字素簇放置 text，每个簇前先前进 offset。
func (r *Renderer) spread(dst *row, text string, style layout.Style, x, offset, cell float64) {
	if offset == 0 {
		dst.put(cells(x, cell), r.style(text, style))
		return
	}
	state := -1
	rest := text
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.StepString(rest, state)
		x += offset
		dst.put(cells(x, cell), r.style(cluster, style))
		x += float64(runewidth.StringWidth(cluster)) * cell
	}
}

func spreadFor(seg layout.Segment, side layout.Side) float64 {
	if seg.OffsetSide == side {
		return seg.Offset
	}
	return 0
}

func (r *Renderer) style(s string, st layout.Style) styled {
	out := styled{text: s, width: runewidth.StringWidth(s)}
	if !r.opts.ANSI || st == (layout.Style{}) {
		return out
	}
	ts := termenv.String(s)
	if st.Bold {
		ts = ts.Bold()
	}
	if st.Italic {
		ts = ts.Italic()
	}
	if st.Underline {
		ts = ts.Underline()
	}
	out.text = ts.String()
	return out
}

type styled struct {
	text  string
	width int
}

// row 是一行字符格，只支持从左到右追加；目标列被占用时紧接着放置。
type row struct {
	b   strings.Builder
	col int
}

func (r *row) put(col int, s styled) {
	if col > r.col {
		r.b.WriteString(strings.Repeat(" ", col-r.col))
		r.col = col
	}
	r.b.WriteString(s.text)
	r.col += s.width
}

func (r *row) String() string { return r.b.String() }

func cells(v, cell float64) int {
	if cell <= 0 || v <= 0 {
		return 0
	}
	return int(math.Round(v / cell))
}
