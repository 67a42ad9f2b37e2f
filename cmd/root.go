package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ByLCY/furigana/internal/config"
	"github.com/ByLCY/furigana/internal/log"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       = config.Defaults()
	cfgErr    error

	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "furigana",
	Short: "Lay out and render text with ruby (furigana) annotations",
	Long: `furigana lays out text containing inline ruby pairs such as {日本;にほん}
and renders it as PDF, SVG or terminal text.

Markup:
  {base;gloss}       ruby pair, never split across lines
  <b> <i> <u>        bold, italic and underline toggles
  <br> or newline    hard line break`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .furigana/config.yaml or ~/.config/furigana/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (also enabled by FURIGANA_DEBUG)")
	rootCmd.PersistentFlags().String("log-file", "", "debug log path (overrides log.file)")
}

// flagKeys maps config keys to the flags that override them.
func flagKeys() map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		"log.file":        rootCmd.PersistentFlags().Lookup("log-file"),
		"render.format":   renderCmd.Flags().Lookup("format"),
		"print.width":     printCmd.Flags().Lookup("width"),
		"print.align":     printCmd.Flags().Lookup("align"),
		"print.max_lines": printCmd.Flags().Lookup("max-lines"),
		"print.ansi":      printCmd.Flags().Lookup("ansi"),
	}
}

func initConfig() {
	v := viper.GetViper()
	for key, flag := range flagKeys() {
		_ = v.BindPFlag(key, flag)
	}
	cfgErr = nil
	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		cfgErr = err
		return
	}
	cfg = loaded
}

// setup reports configuration errors and turns on logging for --debug.
func setup(cmd *cobra.Command, _ []string) error {
	// config subcommands must still work on a broken file
	if cfgErr != nil && cmd.Parent() != configCmd {
		return fmt.Errorf("loading config: %w", cfgErr)
	}

	debug := debugFlag || os.Getenv("FURIGANA_DEBUG") != "" || cfg.Log.Debug
	if !debug {
		return nil
	}
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.Init(logPath)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logCleanup = cleanup
	if debugFlag || os.Getenv("FURIGANA_DEBUG") != "" {
		log.SetMinLevel(log.LevelDebug)
	} else {
		log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	}
	log.Info(log.CatCLI, "furigana starting", "version", version, "config", viper.ConfigFileUsed())
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
