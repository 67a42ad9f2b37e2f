// Package binding 把 JSON 数据插入注音标记文本。
//
// ${path.to.value} 替换为对应值；${kanji.path;kana.path} 由两个路径生成一对注音 {kanji;kana}。
// 路径不存在时保留原占位符。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 替换 text 中的全部占位符。data 为空时原样返回。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-1])
		if expr == "" {
			return match
		}
		if base, gloss, ok := strings.Cut(expr, ";"); ok {
			b, okB := Lookup(data, strings.TrimSpace(base))
			g, okG := Lookup(data, strings.TrimSpace(gloss))
			if !okB || !okG {
				return match
			}
			return "{" + fmt.Sprint(b) + ";" + fmt.Sprint(g) + "}"
		}
		if val, ok := Lookup(data, expr); ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

// Lookup 按 "a.b[0].c" 形式的路径在解码后的 JSON 数据中取值。
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	current := data
	for _, part := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(part, "[")
		if name != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = m[name]; !ok {
				return nil, false
			}
		}
		if rest == "" {
			continue
		}
		for _, idx := range strings.Split(strings.TrimSuffix(rest, "]"), "][") {
			i, err := strconv.Atoi(idx)
			if err != nil {
				return nil, false
			}
			arr, ok := current.([]any)
			if !ok || i < 0 || i >= len(arr) {
				return nil, false
			}
			current = arr[i]
		}
	}
	return current, true
}
