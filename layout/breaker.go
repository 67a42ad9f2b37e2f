package layout

import "strings"

// fullStop 是句末全角句号，测试溢出时享受 periodDiscount 折扣。
const fullStop = '。'

// Break 以贪心方式把段装入宽度不超过 maxWidth 的行，不回溯、不连字。
//
// 注音段是原子的：当前行非空且放不下时先换行，然后无条件放入。
// 普通段逐字符重新装箱：待定文本加上下一个字符后若超出宽度（严格大于），
// 就在该字符前断行，因此一段普通文本可能横跨多行。
// 硬换行无条件结束当前行，即使该行为空。
func Break(items []Item, maxWidth float64, fonts Fonts) Model {
	if maxWidth <= 0 {
		maxWidth = Unbounded
	}
	var (
		lines []Line
		line  Line
	)
	for _, item := range items {
		if item.HardBreak {
			lines = append(lines, line)
			line = Line{}
			continue
		}
		seg := item.Segment
		if seg.IsRuby() {
			if !line.Empty() && line.Width+seg.Width > maxWidth {
				lines = append(lines, line)
				line = Line{}
			}
			line = line.With(seg)
			continue
		}
		lines, line = packPlain(seg, lines, line, maxWidth, fonts)
	}
	if !line.Empty() {
		lines = append(lines, line)
	}
	return Model{Lines: lines}
}

// packPlain 逐字符测试一段普通文本，返回更新后的已完成行与当前行。
// 溢出测试累加 MeasureChar 的宽度；断出的片段仍用 Measure 整体测量。
func packPlain(seg Segment, lines []Line, line Line, maxWidth float64, fonts Fonts) ([]Line, Line) {
	// 整段放得下时直接复用已测量的宽度。
	if line.Width+seg.Width <= maxWidth {
		return lines, line.With(seg)
	}
	var (
		pending  strings.Builder
		pendingW float64
	)
	for _, r := range seg.Text {
		w := fonts.char(r, seg.Style)
		test := line.Width + pendingW + w
		if r == fullStop {
			test -= periodDiscount * fonts.TextSize
		}
		if test > maxWidth && (pending.Len() > 0 || !line.Empty()) {
			if pending.Len() > 0 {
				line = line.With(NewPlainSegment(pending.String(), seg.Style, fonts))
				pending.Reset()
				pendingW = 0
			}
			lines = append(lines, line)
			line = Line{}
		}
		pending.WriteRune(r)
		pendingW += w
	}
	if pending.Len() > 0 {
		line = line.With(NewPlainSegment(pending.String(), seg.Style, fonts))
	}
	return lines, line
}
