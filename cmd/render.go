package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/furigana/internal/log"
	"github.com/ByLCY/furigana/internal/watcher"
)

var (
	renderOut       string
	renderData      string
	renderDebugJSON string
	renderWatch     bool
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a document to PDF, SVG or terminal text",
	Long: `Render a furigana document. The output format comes from --format or
render.format in the config file.

Examples:
  furigana render lesson.furigana                  # writes lesson.pdf
  furigana render lesson.furigana -f svg -o out.svg
  furigana render lesson.furigana -f text          # prints to the terminal
  furigana render lesson.furigana --data words.yaml
  furigana render lesson.furigana --data '{"word":{"kanji":"漢字","kana":"かんじ"}}'
  furigana render lesson.furigana --watch          # re-render on every save`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", `output path, "-" for stdout (default: input name with the format's extension)`)
	renderCmd.Flags().StringP("format", "f", "", "output format: pdf, svg or text (overrides render.format)")
	renderCmd.Flags().StringVar(&renderData, "data", "", "data for ${...} bindings: inline JSON or a .json/.yaml file")
	renderCmd.Flags().StringVar(&renderDebugJSON, "debug-json", "", "write the layout result as JSON to this path")
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "re-render whenever the document or data file changes")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(cfg.Render.Format)
	j := job{
		input:     args[0],
		output:    renderOut,
		debugPath: renderDebugJSON,
		data:      renderData,
		format:    format,
		cache:     cfg.Cache.NewCache(),
		stdout:    cmd.OutOrStdout(),
	}
	if j.output == "" {
		j.output = defaultOutput(j.input, format)
	}

	if err := j.run(); err != nil {
		return err
	}
	if j.output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "已生成 %s：%s\n", strings.ToUpper(format), j.output)
	}
	if !renderWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return watchAndRender(ctx, cmd, j)
}

// watchAndRender 在输入文件变化时重新渲染，直到 ctx 结束。渲染失败只报告，不退出。
func watchAndRender(ctx context.Context, cmd *cobra.Command, j job) error {
	files := []string{j.input}
	if isDataFile(j.data) {
		files = append(files, j.data)
	}
	wcfg := watcher.DefaultConfig(files...)
	if cfg.Render.Watch.Debounce > 0 {
		wcfg.DebounceDur = cfg.Render.Watch.Debounce
	}
	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "正在监视 %s（Ctrl+C 退出）\n", strings.Join(files, ", "))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-onChange:
			log.Debug(log.CatWatch, "change detected", "input", j.input)
			// 字体文件可能同名替换，重新排版前清空缓存。
			j.cache.Flush()
			if err := j.run(); err != nil {
				log.ErrorErr(log.CatWatch, "re-render failed", err, "input", j.input)
				fmt.Fprintf(cmd.ErrOrStderr(), "渲染失败: %v\n", err)
				continue
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "已更新：%s\n", j.output)
		}
	}
}

func isDataFile(arg string) bool {
	arg = strings.TrimSpace(arg)
	return arg != "" && !strings.HasPrefix(arg, "{") && !strings.HasPrefix(arg, "[")
}
