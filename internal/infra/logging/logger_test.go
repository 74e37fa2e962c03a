package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetLoggerForTest(zerolog.New(buf).With().Timestamp().Logger().Level(parseLevel(level)))
	return buf
}

func TestInfo_WritesKeyValuePairs(t *testing.T) {
	buf := captureLogs(t, "info")

	Info("pdf rendered", "bytes", 42, "ready", true)

	out := buf.String()
	assert.Contains(t, out, "pdf rendered")
	assert.Contains(t, out, `"bytes":42`)
	assert.Contains(t, out, `"ready":true`)
}

func TestError_FormatsErrorValues(t *testing.T) {
	buf := captureLogs(t, "error")

	Error("render failed", "error", errors.New("target closed"), "kind", "CaptureFailure")

	out := buf.String()
	assert.Contains(t, out, `"error":"target closed"`)
	assert.Contains(t, out, `"kind":"CaptureFailure"`)
}

func TestDanglingKeyIsKept(t *testing.T) {
	buf := captureLogs(t, "info")

	Warn("odd", "k", "v", "dangling")

	assert.Contains(t, buf.String(), `"extra":"dangling"`)
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, "warn")

	Info("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	SetLogLevel("info")
	Info("should be visible")
	assert.Contains(t, buf.String(), "should be visible")

	SetLogLevel("not-a-level")
	Debug("still hidden")
	assert.NotContains(t, buf.String(), "still hidden")
}

func TestInitLogger_WritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "arabicpdf.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	Info("hello file", "k", "v")

	data, err := os.ReadFile(logFile)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello file"))
}
