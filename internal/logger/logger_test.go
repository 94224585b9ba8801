package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), tc.in)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "json")
	SetLevel("WARN")
	defer SetLevel("INFO")

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, `"level":"warn"`)
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "text")
	SetLevel("DEBUG")
	defer SetLevel("INFO")

	Debug("moving %s", "org/a")

	assert.True(t, strings.Contains(buf.String(), "moving org/a"), buf.String())
}

func TestOpenOutput_DefaultsToStderr(t *testing.T) {
	w, err := openOutput("")
	require.NoError(t, err)
	assert.Same(t, os.Stderr, w)

	w, err = openOutput("stdout")
	require.NoError(t, err)
	assert.Same(t, os.Stdout, w)
}

func TestConfigure_ClosesPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dittostore.log")
	defer func() { _ = Close() }()

	require.NoError(t, Configure("INFO", "json", path))
	Info("written to %s", "file")

	mu.RLock()
	f, ok := file.(*os.File)
	mu.RUnlock()
	require.True(t, ok)

	require.NoError(t, Configure("INFO", "text", "stderr"))

	_, err := f.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")

	assert.NoError(t, Close())
	assert.NoError(t, Close())
}
