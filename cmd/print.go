package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/furigana/layout"
	textrenderer "github.com/ByLCY/furigana/renderer/text"
)

var printCmd = &cobra.Command{
	Use:   "print [markup...]",
	Short: "Print markup with ruby rows in the terminal",
	Long: `Lay out a markup string in terminal cells and print each line as a gloss
row above a base row. Reads standard input when no markup is given.

Examples:
  furigana print '{日本;にほん}語を<b>勉強</b>する'
  furigana print --width 10 --align center '{東京;とうきょう}へ行きます。'
  echo '{漢字;かんじ}' | furigana print --ansi`,
	RunE: runPrint,
}

func init() {
	printCmd.Flags().Int("width", 0, "maximum line width in cells, 0 for no wrapping (overrides print.width)")
	printCmd.Flags().String("align", "", "start, center or end (overrides print.align)")
	printCmd.Flags().Int("max-lines", 0, "show at most this many lines (overrides print.max_lines)")
	printCmd.Flags().Bool("ansi", false, "style bold, italic and underline with ANSI escapes (overrides print.ansi)")

	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("读取标准输入失败: %w", err)
		}
		text = strings.TrimRight(string(raw), "\r\n")
	}

	cons := cfg.Print.Constraints()
	model := layout.Layout(text, cons, textrenderer.Fonts())
	r := textrenderer.New(textrenderer.Options{ANSI: cfg.Print.ANSI})
	return r.RenderModel(cmd.OutOrStdout(), model, cfg.Print.Width, cons.Align, cons.MaxLines)
}
