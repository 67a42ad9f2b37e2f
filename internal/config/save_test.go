package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetValue_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.NoError(t, SetValue(configPath, "print.width", "24"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "print:\n  width: 24\n", string(data))
}

func TestSetValue_PreservesComments(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(configPath))

	require.NoError(t, SetValue(configPath, "print.align", "center"))
	require.NoError(t, SetValue(configPath, "render.watch.debounce", "1s"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# Furigana Configuration")
	assert.Contains(t, content, "# terminal cells; 0 disables wrapping")
	assert.Contains(t, content, "align: center")

	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(viper.New(), configPath)
	require.NoError(t, err)
	assert.Equal(t, "center", cfg.Print.Align)
	assert.Equal(t, "1s", cfg.Render.Watch.Debounce.String())
	assert.Equal(t, 40, cfg.Print.Width)
}

func TestSetValue_AddsNestedSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  debug: true\n"), 0o644))

	require.NoError(t, SetValue(configPath, "render.watch.debounce", "2s"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "log:\n  debug: true\nrender:\n  watch:\n    debounce: 2s\n", string(data))
}

func TestSetValue_Errors(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("print:\n  width: 10\n"), 0o644))

	assert.Error(t, SetValue(configPath, "print", "x"), "section cannot become a value")
	assert.Error(t, SetValue(configPath, "print.width.deep", "x"), "value cannot become a section")
	assert.Error(t, SetValue(configPath, "print..width", "x"))

	require.NoError(t, os.WriteFile(configPath, []byte("- a\n- b\n"), 0o644))
	assert.Error(t, SetValue(configPath, "print.width", "1"))
}
