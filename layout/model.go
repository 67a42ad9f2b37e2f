package layout

import (
	"math"
	"strings"

	"github.com/ByLCY/furigana/markup"
)

// Unbounded 表示不限制行宽，用于测量固有宽度。
var Unbounded = math.Inf(1)

// Line 是一行内按顺序排列的段，Width 为各段宽度之和。
type Line struct {
	Segments []Segment `json:"segments"`
	Width    float64   `json:"width"`
}

// Empty reports whether the line holds no segments.
func (l Line) Empty() bool { return len(l.Segments) == 0 }

// With returns a new line with seg appended; l is left untouched.
func (l Line) With(seg Segment) Line {
	return Line{
		Segments: append(l.Segments[:len(l.Segments):len(l.Segments)], seg),
		Width:    l.Width + seg.Width,
	}
}

// Text 返回该行的可见正文（注音段取 base）。
func (l Line) Text() string {
	var b strings.Builder
	for _, seg := range l.Segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Model 是排版结果：有序的行。每次排版都会生成新的 Model，不会原地修改。
type Model struct {
	Lines []Line `json:"lines"`
}

// Width 返回最宽一行的宽度。
func (m Model) Width() float64 {
	w := 0.0
	for _, l := range m.Lines {
		w = math.Max(w, l.Width)
	}
	return w
}

// Visible 返回 maxLines 限制下需要绘制的行；maxLines <= 0 表示不限制。
func (m Model) Visible(maxLines int) []Line {
	if maxLines > 0 && len(m.Lines) > maxLines {
		return m.Lines[:maxLines]
	}
	return m.Lines
}

// Height 返回可见行所占的高度。
func (m Model) Height(metrics Metrics, maxLines int) float64 {
	return float64(len(m.Visible(maxLines))) * metrics.LineHeight()
}

// Align 是行内容在容器中的水平对齐方式。
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// ParseAlign 接受 start/left、center/middle、end/right，其余值视为 start。
func ParseAlign(v string) Align {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return AlignCenter
	case "end", "right":
		return AlignEnd
	default:
		return AlignStart
	}
}

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignEnd:
		return "end"
	default:
		return "start"
	}
}

func (a Align) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText 与 ParseAlign 相同，未知值视为 start。
func (a *Align) UnmarshalText(b []byte) error {
	*a = ParseAlign(string(b))
	return nil
}

// AlignOffset 计算一行的起始偏移。只有剩余空间为正且容器宽度有限时才偏移。
func AlignOffset(lineWidth, maxWidth float64, align Align) float64 {
	if math.IsInf(maxWidth, 0) {
		return 0
	}
	remainder := maxWidth - lineWidth
	if remainder <= 0 {
		return 0
	}
	switch align {
	case AlignCenter:
		return remainder / 2
	case AlignEnd:
		return remainder
	default:
		return 0
	}
}

// Constraints 描述容器约束。MaxWidth <= 0 或 +Inf 表示不限宽；
// MaxLines <= 0 表示不限行数，超出部分仍会排版，只是不绘制。
type Constraints struct {
	MaxWidth float64 `json:"maxWidth"`
	MaxLines int     `json:"maxLines,omitempty"`
	Align    Align   `json:"align"`
}

// Layout 是完整的纯函数管线：解析、分段、断行。
func Layout(text string, c Constraints, fonts Fonts) Model {
	if text == "" {
		return Model{}
	}
	items := BuildSegments(markup.Parse(text), fonts)
	return Break(items, c.MaxWidth, fonts)
}

// IntrinsicWidth 返回不折行时最宽一行（仅按硬换行分行）的宽度。
func IntrinsicWidth(text string, fonts Fonts) float64 {
	return Layout(text, Constraints{MaxWidth: Unbounded}, fonts).Width()
}

// FitWidth 返回向上取整的固有宽度；available > 0 时不超过 available。
func FitWidth(text string, fonts Fonts, available float64) float64 {
	w := math.Ceil(IntrinsicWidth(text, fonts))
	if available > 0 && w > available {
		return available
	}
	return w
}
