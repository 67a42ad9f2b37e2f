package layout

import (
	"fmt"
	"unicode/utf8"
)

// SegmentKind 区分普通文本段与注音段。
type SegmentKind int

const (
	KindPlain SegmentKind = iota
	KindRuby
)

func (k SegmentKind) String() string {
	if k == KindRuby {
		return "ruby"
	}
	return "plain"
}

// MarshalText 让调试 JSON 输出可读的类别名。
func (k SegmentKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SegmentKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ruby":
		*k = KindRuby
	case "plain":
		*k = KindPlain
	default:
		return fmt.Errorf("未知的段类别：%s", b)
	}
	return nil
}

// Side 指出注音段中哪一侧需要插入字间距。
type Side int

const (
	SideNone Side = iota
	SideBase
	SideGloss
)

func (s Side) String() string {
	switch s {
	case SideBase:
		return "base"
	case SideGloss:
		return "gloss"
	default:
		return ""
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "base":
		*s = SideBase
	case "gloss":
		*s = SideGloss
	case "", "none":
		*s = SideNone
	default:
		return fmt.Errorf("未知的注音侧：%s", b)
	}
	return nil
}

// Segment 是一行中最小的可放置单元。普通段只使用 Text/Style/Width；
// 注音段中 Text 为 base，另外带有 Gloss 及两侧宽度与字间距。
type Segment struct {
	Kind       SegmentKind `json:"kind"`
	Text       string      `json:"text"`
	Gloss      string      `json:"gloss,omitempty"`
	Style      Style       `json:"style"`
	Width      float64     `json:"width"`
	BaseWidth  float64     `json:"baseWidth,omitempty"`
	GlossWidth float64     `json:"glossWidth,omitempty"`
	Offset     float64     `json:"offset,omitempty"`
	OffsetSide Side        `json:"offsetSide,omitempty"`
}

// IsRuby reports whether the segment is an atomic ruby pair.
func (s Segment) IsRuby() bool { return s.Kind == KindRuby }

// NewPlainSegment measures text with the body measurer.
func NewPlainSegment(text string, style Style, fonts Fonts) Segment {
	return Segment{
		Kind:  KindPlain,
		Text:  text,
		Style: style,
		Width: fonts.body(text, style),
	}
}

// NewRubySegment 计算注音对的宽度与字间距：较短的一侧在每个字符前插入
// offset（n 个字符共 n+1 个间隙中的前 n 个），使两侧跨度相同。
func NewRubySegment(base, gloss string, style Style, fonts Fonts) Segment {
	bw := fonts.body(base, style)
	gw := fonts.gloss(gloss, style)
	seg := Segment{
		Kind:       KindRuby,
		Text:       base,
		Gloss:      gloss,
		Style:      style,
		BaseWidth:  bw,
		GlossWidth: gw,
	}
	if bw < gw {
		seg.Width = gw
		seg.Offset = (gw - bw) / float64(utf8.RuneCountInString(base)+1)
		seg.OffsetSide = SideBase
	} else {
		seg.Width = bw
		seg.Offset = (bw - gw) / float64(utf8.RuneCountInString(gloss)+1)
		seg.OffsetSide = SideGloss
	}
	return seg
}

// Item 是分段阶段的输出：一个 Segment，或者一个硬换行。
type Item struct {
	Segment   Segment
	HardBreak bool
}
