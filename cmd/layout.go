package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ByLCY/furigana/layout"
	textrenderer "github.com/ByLCY/furigana/renderer/text"
)

var (
	layoutText  string
	layoutWidth float64
	layoutData  string
)

var layoutCmd = &cobra.Command{
	Use:   "layout [file]",
	Short: "Print the layout result as JSON",
	Long: `Print the computed layout as JSON instead of rendering it.

With a document argument the full result (pages, text blocks, lines, segments)
is printed, measured with the fonts of render.format. With --text a single
markup string is laid out in terminal cells and its line model is printed.

Examples:
  furigana layout lesson.furigana | jq '.pages[0].blocks[0].lines'
  furigana layout --text '{日本;にほん}語を<b>勉強</b>する' --width 8`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutText, "text", "t", "", "lay out a markup string instead of a document")
	layoutCmd.Flags().Float64Var(&layoutWidth, "width", 0, "maximum line width in cells for --text (0: unbounded)")
	layoutCmd.Flags().StringVar(&layoutData, "data", "", "data for ${...} bindings: inline JSON or a .json/.yaml file")
	rootCmd.AddCommand(layoutCmd)
}

func runLayout(cmd *cobra.Command, args []string) error {
	if layoutText != "" {
		if len(args) > 0 {
			return fmt.Errorf("--text 与文档参数不能同时使用")
		}
		model := layout.Layout(layoutText, layout.Constraints{MaxWidth: layoutWidth}, textrenderer.Fonts())
		return layout.EncodeJSON(cmd.OutOrStdout(), model)
	}
	if len(args) == 0 {
		return fmt.Errorf("需要文档路径或 --text")
	}

	doc, err := parseDocument(args[0])
	if err != nil {
		return err
	}
	data, err := loadData(layoutData)
	if err != nil {
		return err
	}
	j := job{input: args[0]}
	r, err := newRenderer(cfg.Render.Format, j.baseDir())
	if err != nil {
		return err
	}
	ts, ok := r.(layout.Typesetter)
	if !ok {
		return fmt.Errorf("renderer 未实现排版接口")
	}
	result, err := layout.Build(doc, data, layout.BuildOptions{
		Typesetter: ts,
		Metrics:    cfg.Layout.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	return layout.EncodeJSON(cmd.OutOrStdout(), result)
}
