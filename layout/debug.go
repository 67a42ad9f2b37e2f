package layout

import (
	"encoding/json"
	"io"
	"os"
)

// WriteDebugJSON 将排版结果写到 path，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeJSON(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeJSON 以缩进格式输出任意排版结构（Result、Model、Line）。
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
