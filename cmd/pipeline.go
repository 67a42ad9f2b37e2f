package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/furigana/dsl"
	"github.com/ByLCY/furigana/internal/log"
	"github.com/ByLCY/furigana/layout"
	"github.com/ByLCY/furigana/renderer"
	canvasrenderer "github.com/ByLCY/furigana/renderer/canvas"
	textrenderer "github.com/ByLCY/furigana/renderer/text"
)

// job 描述一次 DSL → 布局 → 输出的完整流程。
type job struct {
	input     string
	output    string // "-" 表示标准输出
	debugPath string
	data      string // 内联 JSON 或 JSON/YAML 文件路径
	format    string
	cache     *layout.Cache
	stdout    io.Writer
}

// run 串联解析、布局与渲染。
func (j job) run() error {
	doc, err := parseDocument(j.input)
	if err != nil {
		return err
	}
	data, err := loadData(j.data)
	if err != nil {
		return err
	}
	r, err := newRenderer(j.format, j.baseDir())
	if err != nil {
		return err
	}
	ts, ok := r.(layout.Typesetter)
	if !ok {
		return fmt.Errorf("renderer 未实现排版接口")
	}

	result, err := layout.Build(doc, data, layout.BuildOptions{
		Typesetter: ts,
		Cache:      j.cache,
		Metrics:    cfg.Layout.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if j.debugPath != "" {
		if err := writeDebug(result, j.debugPath); err != nil {
			return err
		}
	}

	out, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := writeOutput(j.stdout, j.output, out); err != nil {
		return err
	}
	log.Info(log.CatCLI, "rendered", "input", j.input, "output", j.output, "format", j.format, "pages", len(result.Pages))
	return nil
}

func (j job) baseDir() string {
	if cfg.Render.BaseDir != "" {
		return cfg.Render.BaseDir
	}
	return filepath.Dir(j.input)
}

func parseDocument(path string) (*dsl.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开 DSL 文件 %s: %w", path, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	return doc, nil
}

// loadData 接受内联 JSON，或 .json/.yaml/.yml 文件路径。
func loadData(arg string) (any, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, nil
	}
	var data any
	if strings.HasPrefix(arg, "{") || strings.HasPrefix(arg, "[") {
		if err := json.Unmarshal([]byte(arg), &data); err != nil {
			return nil, fmt.Errorf("解析 data JSON 失败: %w", err)
		}
		return data, nil
	}

	raw, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件 %s 失败: %w", arg, err)
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("解析数据文件 %s 失败: %w", arg, err)
		}
	default:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("解析数据文件 %s 失败: %w", arg, err)
		}
	}
	return data, nil
}

// newRenderer 按输出格式选择渲染器；pdf 与 svg 共用 canvas 渲染器。
func newRenderer(format, baseDir string) (renderer.Renderer, error) {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return textrenderer.New(textrenderer.Options{ANSI: cfg.Print.ANSI}), nil
	}
	f, err := canvasrenderer.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: baseDir, Format: f}), nil
}

// defaultOutput 将输入文件的扩展名替换为输出格式；文本输出到标准输出。
func defaultOutput(input, format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "text" {
		return "-"
	}
	if format == "" {
		format = "pdf"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
