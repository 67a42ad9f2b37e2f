package layout

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ByLCY/furigana/markup"
)

func lineTexts(m Model) []string {
	out := make([]string, len(m.Lines))
	for i, l := range m.Lines {
		out[i] = l.Text()
	}
	return out
}

func TestBreakHardBreakUnbounded(t *testing.T) {
	m := Layout("abc<br>def", Constraints{MaxWidth: Unbounded}, testFonts())
	require.Equal(t, []string{"abc", "def"}, lineTexts(m))
}

func TestBreakRubyThenPlainOnOneLine(t *testing.T) {
	m := Layout("{日本;にほん}語", Constraints{MaxWidth: 1000}, testFonts())
	require.Len(t, m.Lines, 1)
	segs := m.Lines[0].Segments
	require.Len(t, segs, 2)
	require.True(t, segs[0].IsRuby())
	require.Equal(t, "日本", segs[0].Text)
	require.Equal(t, "にほん", segs[0].Gloss)
	require.False(t, segs[1].IsRuby())
	require.Equal(t, "語", segs[1].Text)
	require.Equal(t, 6.0, m.Lines[0].Width)
}

func TestBreakMissingCloseIsLiteral(t *testing.T) {
	m := Layout("{火;ひ", Constraints{MaxWidth: Unbounded}, testFonts())
	require.Equal(t, []string{"火;ひ"}, lineTexts(m))
	for _, seg := range m.Lines[0].Segments {
		require.False(t, seg.IsRuby())
	}
}

func TestBreakPlainTripleWidth(t *testing.T) {
	m := Layout(strings.Repeat("a", 12), Constraints{MaxWidth: 4}, testFonts())
	require.Equal(t, []string{"aaaa", "aaaa", "aaaa"}, lineTexts(m))
	for _, l := range m.Lines {
		require.Equal(t, 4.0, l.Width)
	}
}

func TestBreakStyledRunsShareLine(t *testing.T) {
	m := Layout("<b>bold</b>normal", Constraints{MaxWidth: 10}, testFonts())
	require.Len(t, m.Lines, 1)
	segs := m.Lines[0].Segments
	require.Len(t, segs, 2)
	require.True(t, segs[0].Style.Bold)
	require.False(t, segs[1].Style.Bold)
}

func TestBreakTrailingAndLeadingHardBreak(t *testing.T) {
	m := Layout("abc<br>", Constraints{MaxWidth: Unbounded}, testFonts())
	require.Equal(t, []string{"abc"}, lineTexts(m))

	m = Layout("<br>abc", Constraints{MaxWidth: Unbounded}, testFonts())
	require.Equal(t, []string{"", "abc"}, lineTexts(m))

	m = Layout("a\n\nb", Constraints{MaxWidth: Unbounded}, testFonts())
	require.Equal(t, []string{"a", "", "b"}, lineTexts(m))
}

func TestBreakWideRubyStaysAlone(t *testing.T) {
	m := Layout("a{日本語;にほんご}b", Constraints{MaxWidth: 3}, testFonts())
	require.Equal(t, []string{"a", "日本語", "b"}, lineTexts(m))
	require.Equal(t, 6.0, m.Lines[1].Width)
}

func TestBreakWideRuneNoBlankLine(t *testing.T) {
	m := Layout("日", Constraints{MaxWidth: 1}, testFonts())
	require.Equal(t, []string{"日"}, lineTexts(m))

	m = Layout("日本", Constraints{MaxWidth: 1}, testFonts())
	require.Equal(t, []string{"日", "本"}, lineTexts(m))
}

func TestBreakPlainAfterRuby(t *testing.T) {
	m := Layout("{日;に}abc", Constraints{MaxWidth: 4}, testFonts())
	require.Equal(t, []string{"日ab", "c"}, lineTexts(m))
	require.Len(t, m.Lines[0].Segments, 2)
	require.Equal(t, 4.0, m.Lines[0].Width)
}

func TestBreakFullStopDiscount(t *testing.T) {
	m := Layout("ab。", Constraints{MaxWidth: 3}, testFonts())
	require.Equal(t, []string{"ab。"}, lineTexts(m))
	// 折扣只影响溢出判断，记录的宽度不变。
	require.Equal(t, 4.0, m.Lines[0].Width)

	m = Layout("abc", Constraints{MaxWidth: 2}, testFonts())
	require.Equal(t, []string{"ab", "c"}, lineTexts(m))
}

func TestBreakNonPositiveWidthIsUnbounded(t *testing.T) {
	raw := strings.Repeat("日本", 50)
	require.Len(t, Layout(raw, Constraints{MaxWidth: 0}, testFonts()).Lines, 1)
	require.Len(t, Layout(raw, Constraints{MaxWidth: -5}, testFonts()).Lines, 1)
}

func TestBreakDoesNotMutateInput(t *testing.T) {
	items := build("abcdef{日;に}")
	before := make([]Item, len(items))
	copy(before, items)
	first := Break(items, 2, testFonts())
	second := Break(items, 2, testFonts())
	require.Equal(t, before, items)
	require.Equal(t, first, second)
}

var markupPieces = []string{
	"a", "bc", "日", "本語", "。", " ",
	"{日本;にほん}", "{a;bcd}", "{漢字;かんじ}",
	"<b>", "</b>", "<i>", "</i>", "<u>", "</u>",
	"<br>", "\n", "{", "}", ";",
}

func genMarkup(t *rapid.T, pieces []string) string {
	parts := rapid.SliceOfN(rapid.SampledFrom(pieces), 0, 30).Draw(t, "pieces")
	return strings.Join(parts, "")
}

func rubyTokens(raw string) []markup.Token {
	var out []markup.Token
	for _, tok := range markup.Parse(raw) {
		if tok.Kind == markup.Ruby {
			out = append(out, tok)
		}
	}
	return out
}

func TestPropertyRubyNeverSplit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genMarkup(t, markupPieces)
		maxWidth := rapid.Float64Range(1, 20).Draw(t, "maxWidth")
		m := Layout(raw, Constraints{MaxWidth: maxWidth}, testFonts())

		var got []markup.Token
		for _, l := range m.Lines {
			for _, seg := range l.Segments {
				if seg.IsRuby() {
					got = append(got, markup.Token{Kind: markup.Ruby, Base: seg.Text, Gloss: seg.Gloss, Style: seg.Style})
				}
			}
		}
		require.Equal(t, rubyTokens(raw), got)
	})
}

func TestPropertyWidthBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genMarkup(t, markupPieces)
		maxWidth := rapid.Float64Range(1, 20).Draw(t, "maxWidth")
		m := Layout(raw, Constraints{MaxWidth: maxWidth}, testFonts())
		for i, l := range m.Lines {
			// 句号折扣允许行略微超宽。
			if len(l.Segments) <= 1 || strings.ContainsRune(l.Text(), fullStop) {
				continue
			}
			if l.Width > maxWidth+1e-9 {
				t.Fatalf("line %d %q width %g exceeds %g", i, l.Text(), l.Width, maxWidth)
			}
		}
	})
}

func TestPropertyHardBreakFidelity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genMarkup(t, markupPieces) + "x"
		breaks := 0
		for _, tok := range markup.Parse(raw) {
			if tok.Kind == markup.Break {
				breaks++
			}
		}
		m := Layout(raw, Constraints{MaxWidth: Unbounded}, testFonts())
		require.Len(t, m.Lines, breaks+1)
	})
}

func TestPropertyRubyOffsetSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.StringMatching(`[a-z日本語]{1,6}`).Draw(t, "base")
		gloss := rapid.StringMatching(`[a-zかな]{1,8}`).Draw(t, "gloss")
		seg := NewRubySegment(base, gloss, Style{}, testFonts())

		n := utf8.RuneCountInString(base)
		if seg.OffsetSide == SideGloss {
			n = utf8.RuneCountInString(gloss)
		}
		require.InDelta(t, math.Abs(seg.BaseWidth-seg.GlossWidth), seg.Offset*float64(n+1), 1e-9)
		require.Equal(t, math.Max(seg.BaseWidth, seg.GlossWidth), seg.Width)
	})
}

func TestPropertyUnboundedSingleLine(t *testing.T) {
	var noBreaks []string
	for _, p := range markupPieces {
		if p != "<br>" && p != "\n" {
			noBreaks = append(noBreaks, p)
		}
	}
	rapid.Check(t, func(t *rapid.T) {
		raw := genMarkup(t, noBreaks) + "x"
		m := Layout(raw, Constraints{MaxWidth: Unbounded}, testFonts())
		require.Len(t, m.Lines, 1)
	})
}

func TestPropertyLayoutNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.String().Draw(t, "raw")
		maxWidth := rapid.Float64Range(-5, 50).Draw(t, "maxWidth")
		require.NotPanics(t, func() { Layout(raw, Constraints{MaxWidth: maxWidth}, testFonts()) })
	})
}

// tallyMeasurer 统计整串测量的调用次数与测量的字符数，以及逐字测量次数。
type tallyMeasurer struct {
	cellMeasurer
	measureCalls  int
	runesMeasured int
	charCalls     int
}

func (m *tallyMeasurer) Measure(text string, style Style) float64 {
	m.measureCalls++
	m.runesMeasured += utf8.RuneCountInString(text)
	return m.cellMeasurer.Measure(text, style)
}

func (m *tallyMeasurer) MeasureChar(r rune, style Style) float64 {
	m.charCalls++
	return m.cellMeasurer.MeasureChar(r, style)
}

func TestBreakLongRunMeasuresLinearly(t *testing.T) {
	const n = 4000
	tally := &tallyMeasurer{cellMeasurer: cellMeasurer{unit: 1}}
	fonts := Fonts{Body: tally, TextSize: 2}

	m := Layout(strings.Repeat("a", n), Constraints{MaxWidth: n - 1}, fonts)
	require.Equal(t, []string{strings.Repeat("a", n-1), "a"}, lineTexts(m))
	require.Equal(t, float64(n-1), m.Lines[0].Width)

	require.Equal(t, n, tally.charCalls)
	// 整段测量一次，断出的两段各测量一次。
	require.Equal(t, 3, tally.measureCalls)
	require.Equal(t, 2*n, tally.runesMeasured)
}

func TestBreakFullStopDiscountWithCharWidths(t *testing.T) {
	// "ab。" 宽 4，折扣 0.7×2 后测试宽度 2.6，不超过 3。
	m := Layout("ab。", Constraints{MaxWidth: 3}, testFonts())
	require.Equal(t, []string{"ab。"}, lineTexts(m))

	m = Layout("abc。", Constraints{MaxWidth: 3}, testFonts())
	require.Equal(t, []string{"abc", "。"}, lineTexts(m))
}

func TestRubyOffsetDividesBySpreadSide(t *testing.T) {
	// 注音更宽：在正文 "ab" 的 2 个字符周围均分，除数为 2+1，而不是 min(2,1)+1。
	wideGloss := Fonts{Body: cellMeasurer{unit: 1}, Gloss: cellMeasurer{unit: 3}, TextSize: 2}
	seg := NewRubySegment("ab", "か", Style{}, wideGloss)
	require.Equal(t, SideBase, seg.OffsetSide)
	require.InDelta(t, 4.0/3, seg.Offset, 1e-9)
	require.Equal(t, 6.0, seg.Width)

	// 正文更宽：在注音 "abcd" 的 4 个字符周围均分，除数为 4+1。
	narrowGloss := Fonts{Body: cellMeasurer{unit: 1}, Gloss: cellMeasurer{unit: 0.25}, TextSize: 2}
	seg = NewRubySegment("日", "abcd", Style{}, narrowGloss)
	require.Equal(t, SideGloss, seg.OffsetSide)
	require.InDelta(t, 0.2, seg.Offset, 1e-9)
	require.Equal(t, 2.0, seg.Width)
}
