package layout

import (
	"strconv"
	"strings"
)

// 本文件定义带单位的长度以及注音排版所需的字号/行距度量。布局内部统一使用 mm。

// Unit 表示 DSL 中书写的原始单位。
type Unit int

const (
	UnitNone Unit = iota // 无单位，例如倍数
	UnitMM
	UnitCM
	UnitIN
	UnitPT
)

// pt 与 mm 的换算常量。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length 保留数值与单位。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// MM 将长度换算为毫米；无单位的数值按毫米处理。
func (l Length) MM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// PT 将长度换算为点。
func (l Length) PT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.MM() * MmToPt
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}}

// ParseLength 解析 "12pt"、"3.5mm"、"2" 这样的长度，失败时 ok 为 false。
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			v = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// SpacingSpec 描述行距：注音字号的倍数（"0.5x"）或绝对长度（"2mm"）。
type SpacingSpec struct {
	Factor float64 `json:"factor,omitempty"`
	Len    *Length `json:"len,omitempty"`
}

// ParseSpacing 解析行距写法，失败时 ok 为 false。
func ParseSpacing(value string) (SpacingSpec, bool) {
	v := strings.TrimSpace(value)
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f < 0 {
			return SpacingSpec{}, false
		}
		return SpacingSpec{Factor: f}, true
	}
	l, ok := ParseLength(v)
	if !ok || l.Value < 0 {
		return SpacingSpec{}, false
	}
	return SpacingSpec{Len: &l}, true
}

// Resolve 以注音字号（mm）为基准计算行距（mm）。
func (s SpacingSpec) Resolve(glossSize float64) float64 {
	if s.Len != nil {
		return s.Len.MM()
	}
	return glossSize * s.Factor
}

// Metrics 是一段注音文本的纵向度量，单位 mm。
type Metrics struct {
	TextSize    float64 `json:"textSize"`
	GlossSize   float64 `json:"glossSize"`
	LineSpacing float64 `json:"lineSpacing"`
}

// DefaultMetrics 按正文字号推导：注音为正文一半，行距为注音一半。
func DefaultMetrics(textSize float64) Metrics {
	gloss := textSize / 2
	return Metrics{TextSize: textSize, GlossSize: gloss, LineSpacing: gloss / 2}
}

// LineHeight 为正文、注音与行距之和。
func (m Metrics) LineHeight() float64 {
	return m.TextSize + m.GlossSize + m.LineSpacing
}

// Baseline 返回第 i 行（从 0 开始）正文基线相对文本块顶部的位置。
func (m Metrics) Baseline(i int) float64 {
	return float64(i+1)*m.LineHeight() - m.LineSpacing
}

// GlossBaseline 返回第 i 行注音基线，位于正文基线上方一个正文字号处。
func (m Metrics) GlossBaseline(i int) float64 {
	return m.Baseline(i) - m.TextSize
}
