// Package fonts 提供随程序分发的内置字体（Go 字体家族），供 builtin:<name> 引用。
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是缺省正文字体的内置名称。
const Default = "go"

var builtins = map[string][]byte{
	"go":             goregular.TTF,
	"go-regular":     goregular.TTF,
	"go-bold":        gobold.TTF,
	"go-italic":      goitalic.TTF,
	"go-bold-italic": gobolditalic.TTF,
	"go-mono":        gomono.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "builtin:go-bold" 或直接 "go-bold"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "builtin:")))
	data, ok := builtins[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未定义（可用：%s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 列出全部内置字体名称。
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
