package log

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewLogger(level)
	l.logger = log.New(buf, "", 0)
	return l, buf
}

func TestLoggerLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	assert.Empty(t, buf.String())

	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "error message")
}

func TestLoggerSetLevel(t *testing.T) {
	l, buf := newBufferLogger(LevelError)

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.SetLevel(LevelDebug)
	l.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
