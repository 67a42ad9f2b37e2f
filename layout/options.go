package layout

import "errors"

var (
	ErrNoPage       = errors.New("layout: 文档中缺少 page 段落")
	ErrNoTypesetter = errors.New("layout: 缺少排版后端 Typesetter")
)

// BuildOptions 配置文档排版阶段的依赖。
type BuildOptions struct {
	Typesetter Typesetter
	Cache      *Cache  // 可选；为空时每个文本块都重新排版
	Metrics    Metrics // 样式未给出 size 时的缺省度量（mm），TextSize <= 0 时按 12pt 推导
}

// Typesetter 根据字体资源与字号提供正文和注音的度量器，通常由渲染器实现。
type Typesetter interface {
	Fonts(font FontResource, metrics Metrics) (Fonts, error)
}
