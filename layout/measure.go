package layout

import (
	"math"

	"github.com/ByLCY/furigana/markup"
)

// Style 与 markup.Style 相同：三个独立的布尔开关。
type Style = markup.Style

// Measurer 由宿主提供，返回文本在给定样式下的渲染宽度。
// 对固定的 (text, style, 字体配置) 必须是确定的，并且可以被并发调用。
type Measurer interface {
	Measure(text string, style Style) float64
	MeasureChar(r rune, style Style) float64
}

// Fonts 将正文与注音两套度量器打包。TextSize 为正文字号（与宽度同单位），
// 用于句号的折行折扣；ID 标识字体配置，作为缓存键的一部分。
type Fonts struct {
	Body     Measurer
	Gloss    Measurer
	TextSize float64
	ID       string
}

// periodDiscount 是测试末尾 "。" 是否溢出时扣除的正文字号比例，避免句号独占一行。
const periodDiscount = 0.7

func (f Fonts) body(text string, style Style) float64 {
	return clampWidth(f.Body.Measure(text, style))
}

func (f Fonts) char(r rune, style Style) float64 {
	return clampWidth(f.Body.MeasureChar(r, style))
}

func (f Fonts) gloss(text string, style Style) float64 {
	m := f.Gloss
	if m == nil {
		m = f.Body
	}
	return clampWidth(m.Measure(text, style))
}

// clampWidth 把 NaN、无穷与负值统一视为 0。
func clampWidth(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}
