//go:build unit

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"":       zapcore.InfoLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("debgu")
	assert.ErrorIs(t, err, errParsingLevel)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig("matlab-ci")
	cfg.Level = "verbose"

	_, err := New(cfg)
	assert.ErrorIs(t, err, errParsingLevel)
}

func TestNop(t *testing.T) {
	l := Nop()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matlab-ci.log")

	cfg := DefaultConfig("matlab-ci")
	cfg.Encoding = "json"
	cfg.OutputPath = path

	l, err := New(cfg)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Warn("cleanup failed")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"message":"cleanup failed"`)
	assert.Contains(t, string(b), `"logger":"matlab-ci"`)
	assert.NotContains(t, string(b), "hidden")
}

func TestNewInvalidPath(t *testing.T) {
	cfg := DefaultConfig("x")
	cfg.OutputPath = filepath.Join(t.TempDir(), "missing", "dir", "x.log")

	_, err := New(cfg)
	assert.ErrorIs(t, err, errOpeningOutput)
}

func TestNewColorOnlyForConsole(t *testing.T) {
	dir := t.TempDir()

	for _, tc := range []struct {
		encoding  string
		wantColor bool
	}{
		{"console", true},
		{"json", false},
	} {
		path := filepath.Join(dir, tc.encoding+".log")

		l, err := New(Config{Level: "info", Encoding: tc.encoding, OutputPath: path, Color: true})
		require.NoError(t, err)
		l.Info("colored")
		_ = l.Sync()

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, tc.wantColor, strings.Contains(string(b), "\x1b["), tc.encoding)
	}
}
