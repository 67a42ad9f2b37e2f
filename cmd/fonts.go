package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ByLCY/furigana/fonts"
)

var fontsCmd = &cobra.Command{
	Use:   "fonts",
	Short: "List the built-in fonts usable as src \"builtin:<name>\"",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range fonts.Names() {
			marker := ""
			if name == fonts.Default {
				marker = " (default)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "builtin:%s%s\n", name, marker)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fontsCmd)
}
