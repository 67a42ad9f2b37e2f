// Package config provides configuration types, defaults, and persistence for furigana.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ByLCY/furigana/internal/log"
	"github.com/ByLCY/furigana/layout"
)

// EnvPrefix 是环境变量前缀，例如 FURIGANA_LAYOUT_TEXT_SIZE=14pt。
const EnvPrefix = "FURIGANA"

// Config holds all furigana configuration.
type Config struct {
	Layout LayoutConfig `mapstructure:"layout"`
	Render RenderConfig `mapstructure:"render"`
	Print  PrintConfig  `mapstructure:"print"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Log    LogConfig    `mapstructure:"log"`
}

// LayoutConfig 是文本块未指定样式时的缺省排版参数。
type LayoutConfig struct {
	TextSize    string `mapstructure:"text_size"`    // 长度，如 "12pt"、"4mm"
	GlossSize   string `mapstructure:"gloss_size"`   // 空表示正文的一半
	LineSpacing string `mapstructure:"line_spacing"` // 注音字号的倍数（"0.5x"）或长度（"1mm"）
}

// RenderConfig controls `furigana render`.
type RenderConfig struct {
	Format  string      `mapstructure:"format"`   // pdf, svg, text
	BaseDir string      `mapstructure:"base_dir"` // 相对字体路径的根目录，空表示 DSL 文件所在目录
	Watch   WatchConfig `mapstructure:"watch"`
}

// WatchConfig controls `render --watch`.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// PrintConfig controls `furigana print`.
type PrintConfig struct {
	Width    int    `mapstructure:"width"` // 字符格；0 表示不折行
	Align    string `mapstructure:"align"` // start, center, end
	MaxLines int    `mapstructure:"max_lines"`
	ANSI     bool   `mapstructure:"ansi"`
}

// CacheConfig 配置 layout.Cache。
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Expiration      time.Duration `mapstructure:"expiration"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig controls internal/log.
type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Layout: LayoutConfig{
			TextSize:    "12pt",
			LineSpacing: "0.5x",
		},
		Render: RenderConfig{
			Format: "pdf",
			Watch:  WatchConfig{Debounce: 300 * time.Millisecond},
		},
		Print: PrintConfig{
			Width: 40,
			Align: "start",
		},
		Cache: CacheConfig{
			Enabled:         true,
			Expiration:      layout.DefaultCacheExpiration,
			CleanupInterval: layout.DefaultCacheCleanupInterval,
		},
		Log: LogConfig{
			File:  "debug.log",
			Level: "info",
		},
	}
}

// SetDefaults registers every default with v so that env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("layout.text_size", d.Layout.TextSize)
	v.SetDefault("layout.gloss_size", d.Layout.GlossSize)
	v.SetDefault("layout.line_spacing", d.Layout.LineSpacing)
	v.SetDefault("render.format", d.Render.Format)
	v.SetDefault("render.base_dir", d.Render.BaseDir)
	v.SetDefault("render.watch.debounce", d.Render.Watch.Debounce)
	v.SetDefault("print.width", d.Print.Width)
	v.SetDefault("print.align", d.Print.Align)
	v.SetDefault("print.max_lines", d.Print.MaxLines)
	v.SetDefault("print.ansi", d.Print.ANSI)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.expiration", d.Cache.Expiration)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads configuration into a Config.
//
// Lookup order when path is empty:
//  1. .furigana/config.yaml (current directory)
//  2. ~/.config/furigana/config.yaml
//
// A missing file is not an error; defaults and FURIGANA_* variables still apply.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else if _, err := os.Stat(filepath.Join(".furigana", "config.yaml")); err == nil {
		v.SetConfigFile(filepath.Join(".furigana", "config.yaml"))
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "furigana"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "no config file, using defaults")
	} else {
		log.Debug(log.CatConfig, "config loaded", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be corrected silently.
func Validate(cfg Config) error {
	if _, ok := layout.ParseLength(cfg.Layout.TextSize); !ok {
		return fmt.Errorf("layout.text_size: invalid length %q", cfg.Layout.TextSize)
	}
	if cfg.Layout.GlossSize != "" {
		if _, ok := layout.ParseLength(cfg.Layout.GlossSize); !ok {
			return fmt.Errorf("layout.gloss_size: invalid length %q", cfg.Layout.GlossSize)
		}
	}
	if cfg.Layout.LineSpacing != "" {
		if _, ok := layout.ParseSpacing(cfg.Layout.LineSpacing); !ok {
			return fmt.Errorf("layout.line_spacing: invalid spacing %q", cfg.Layout.LineSpacing)
		}
	}
	switch cfg.Render.Format {
	case "pdf", "svg", "text":
	default:
		return fmt.Errorf("render.format: must be pdf, svg or text, got %q", cfg.Render.Format)
	}
	if cfg.Print.Width < 0 {
		return fmt.Errorf("print.width: must not be negative")
	}
	if cfg.Print.MaxLines < 0 {
		return fmt.Errorf("print.max_lines: must not be negative")
	}
	return nil
}

// Metrics converts the layout section into layout.Metrics (mm).
func (c LayoutConfig) Metrics() layout.Metrics {
	size := 12 * layout.PtToMm
	if l, ok := layout.ParseLength(c.TextSize); ok && l.MM() > 0 {
		size = l.MM()
	}
	m := layout.DefaultMetrics(size)
	if l, ok := layout.ParseLength(c.GlossSize); ok && l.MM() > 0 {
		m.GlossSize = l.MM()
		m.LineSpacing = m.GlossSize / 2
	}
	if s, ok := layout.ParseSpacing(c.LineSpacing); ok {
		m.LineSpacing = s.Resolve(m.GlossSize)
	}
	return m
}

// Constraints converts the print section into layout.Constraints in cells.
func (c PrintConfig) Constraints() layout.Constraints {
	return layout.Constraints{
		MaxWidth: float64(c.Width),
		MaxLines: c.MaxLines,
		Align:    layout.ParseAlign(c.Align),
	}
}

// NewCache returns the configured layout cache, or nil when disabled.
func (c CacheConfig) NewCache() *layout.Cache {
	if !c.Enabled {
		return nil
	}
	return layout.NewCache(c.Expiration, c.CleanupInterval)
}

// DefaultConfigTemplate returns the default config file content with comments.
func DefaultConfigTemplate() string {
	return `# Furigana Configuration

# Default metrics for text blocks without an explicit size
layout:
  text_size: 12pt      # body text size (pt, mm, cm, in)
  # gloss_size: 6pt    # ruby text size (default: half of text_size)
  line_spacing: 0.5x   # multiple of gloss_size, or a length such as 1mm

# furigana render
render:
  format: pdf          # pdf, svg or text
  # base_dir: ./fonts  # root for relative font paths (default: the DSL file's directory)
  watch:
    debounce: 300ms    # delay before re-rendering after a change

# furigana print
print:
  width: 40            # terminal cells; 0 disables wrapping
  align: start         # start, center or end
  max_lines: 0         # 0 shows every line
  ansi: false          # bold/italic/underline as ANSI escapes

# Layout memoization
cache:
  enabled: true
  expiration: 10m
  cleanup_interval: 30m

log:
  debug: false         # same as --debug or FURIGANA_DEBUG=1
  file: debug.log
  level: info          # debug, info, warn or error
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
