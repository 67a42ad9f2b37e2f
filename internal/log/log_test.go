package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFormatsFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetMinLevel(LevelDebug)
	t.Cleanup(func() { SetOutput(nil); SetMinLevel(LevelInfo) })

	Debug(CatLayout, "laid out", "lines", 3, "orphan")
	out := buf.String()
	require.Contains(t, out, "[DEBUG] [layout] laid out lines=3 orphan=")
	require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestMinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetMinLevel(LevelWarn)
	t.Cleanup(func() { SetOutput(nil); SetMinLevel(LevelInfo) })

	Info(CatRender, "skipped")
	ErrorErr(CatFont, "load failed", os.ErrNotExist)
	require.NotContains(t, buf.String(), "skipped")
	require.Contains(t, buf.String(), "error=file does not exist")
}

func TestDisabledByDefault(t *testing.T) {
	SetOutput(nil)
	require.NotPanics(t, func() { Error(CatCache, "nobody listens") })
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "furigana.log")
	cleanup, err := Init(path)
	require.NoError(t, err)
	Warn(CatConfig, "using defaults", "file", "none")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[WARN] [config] using defaults file=none")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelInfo, ParseLevel("verbose"))
}
