// Package markup 将带注音与样式标记的原始文本拆分为有序的词法单元。
//
// 语法为固定字面量，不可配置：
//   - 注音：{base;gloss}
//   - 样式：<b></b>、<i></i>、<u></u>，彼此独立的布尔开关，后写覆盖先写
//   - 硬换行：<br> 或单个 \n
//
// 不支持转义。未闭合的 "{" 会被丢弃，解析从下一个字符继续。
package markup

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

var (
	markupLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Tag", Pattern: `</?[biu]>`},
		{Name: "Break", Pattern: `<br>|\n`},
		{Name: "RubyOpen", Pattern: `\{`},
		{Name: "RubySep", Pattern: `;`},
		{Name: "RubyClose", Pattern: `\}`},
		{Name: "Char", Pattern: `[\s\S]`},
	})

	tagTokenType       = mustTokenType("Tag")
	breakTokenType     = mustTokenType("Break")
	rubyOpenTokenType  = mustTokenType("RubyOpen")
	rubySepTokenType   = mustTokenType("RubySep")
	rubyCloseTokenType = mustTokenType("RubyClose")

	// 注音内容先去掉换行，再去掉样式标签；顺序与逐段替换的结果一致。
	breakPattern = regexp.MustCompile(`<br>|\n`)
	tagPattern   = regexp.MustCompile(`</?[biu]>`)
)

// Parse 将原始文本转换为词法单元序列，保持源顺序。任何输入都不会出错。
func Parse(raw string) []Token {
	if raw == "" {
		return nil
	}
	toks, err := lex(raw)
	if err != nil {
		return plain(raw)
	}

	nextSep, nextClose := scanDelimiters(toks)
	out := make([]Token, 0, len(toks))
	var style Style

	for i := 0; i < len(toks); {
		tok := toks[i]
		switch tok.Type {
		case tagTokenType:
			flag, on := tagFlag(tok.Value)
			style = style.apply(flag, on)
			out = append(out, Token{Kind: Toggle, Flag: flag, On: on})
			i++

		case breakTokenType:
			out = append(out, Token{Kind: Break})
			i++

		case rubyOpenTokenType:
			sep, end := nextSep[i], nextClose[i]
			if sep < 0 || end < 0 || end < sep {
				i++
				continue
			}
			base := raw[tok.Pos.Offset+len(tok.Value) : toks[sep].Pos.Offset]
			gloss := raw[toks[sep].Pos.Offset+len(toks[sep].Value) : toks[end].Pos.Offset]
			out = append(out, Token{
				Kind:  Ruby,
				Base:  sanitize(base),
				Gloss: sanitize(gloss),
				Style: style,
			})
			i = end + 1

		default:
			r, _ := utf8.DecodeRuneInString(tok.Value)
			out = append(out, Token{Kind: Char, Char: r, Style: style})
			i++
		}
	}
	return out
}

func lex(raw string) ([]lexer.Token, error) {
	l, err := markupLexer.LexString("", raw)
	if err != nil {
		return nil, err
	}
	all, err := lexer.ConsumeAll(l)
	if err != nil {
		return nil, err
	}
	toks := all[:0]
	for _, t := range all {
		if t.EOF() {
			continue
		}
		toks = append(toks, t)
	}
	return toks, nil
}

// scanDelimiters records, for every position, the index of the first ";" and
// "}" at or after it (-1 when absent).
func scanDelimiters(toks []lexer.Token) (nextSep, nextClose []int) {
	nextSep = make([]int, len(toks))
	nextClose = make([]int, len(toks))
	sep, end := -1, -1
	for i := len(toks) - 1; i >= 0; i-- {
		switch toks[i].Type {
		case rubySepTokenType:
			sep = i
		case rubyCloseTokenType:
			end = i
		}
		nextSep[i] = sep
		nextClose[i] = end
	}
	return nextSep, nextClose
}

func tagFlag(tag string) (Flag, bool) {
	on := tag[1] != '/'
	switch tag[len(tag)-2] {
	case 'b':
		return FlagBold, on
	case 'i':
		return FlagItalic, on
	default:
		return FlagUnderline, on
	}
}

func sanitize(s string) string {
	s = breakPattern.ReplaceAllString(s, "")
	return tagPattern.ReplaceAllString(s, "")
}

// plain 把整段输入当作普通字符处理。
func plain(raw string) []Token {
	out := make([]Token, 0, utf8.RuneCountInString(raw))
	for _, r := range raw {
		out = append(out, Token{Kind: Char, Char: r})
	}
	return out
}

// Strip 返回去掉全部标记后的可见文本，注音对只保留 base。
func Strip(raw string) string {
	var buf []rune
	for _, tok := range Parse(raw) {
		switch tok.Kind {
		case Char:
			buf = append(buf, tok.Char)
		case Ruby:
			buf = append(buf, []rune(tok.Base)...)
		case Break:
			buf = append(buf, '\n')
		}
	}
	return string(buf)
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := markupLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
