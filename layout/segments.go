package layout

import (
	"strings"

	"github.com/ByLCY/furigana/markup"
)

// runBuffer 累积样式相同的连续字符。
type runBuffer struct {
	text  strings.Builder
	style Style
}

// flush 把缓冲内容作为普通段追加到 items，空缓冲不产生段。
func (b *runBuffer) flush(items []Item, fonts Fonts) []Item {
	if b.text.Len() == 0 {
		return items
	}
	items = append(items, Item{Segment: NewPlainSegment(b.text.String(), b.style, fonts)})
	b.text.Reset()
	return items
}

// BuildSegments 把词法单元转换为已测量的段与硬换行。
// 样式切换、注音与硬换行都会先把待定的普通文本刷出为一个段。
func BuildSegments(tokens []markup.Token, fonts Fonts) []Item {
	items := make([]Item, 0, len(tokens)/4+1)
	var run runBuffer

	for _, tok := range tokens {
		switch tok.Kind {
		case markup.Char:
			if run.text.Len() > 0 && run.style != tok.Style {
				items = run.flush(items, fonts)
			}
			run.style = tok.Style
			run.text.WriteRune(tok.Char)
		case markup.Toggle:
			items = run.flush(items, fonts)
		case markup.Ruby:
			items = run.flush(items, fonts)
			items = append(items, Item{Segment: NewRubySegment(tok.Base, tok.Gloss, tok.Style, fonts)})
		case markup.Break:
			items = run.flush(items, fonts)
			items = append(items, Item{HardBreak: true})
		}
	}
	return run.flush(items, fonts)
}
