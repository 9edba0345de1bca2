package util

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewTee_WritesBothSinks(t *testing.T) {
	var console, file bytes.Buffer
	logger := newTee(zapcore.AddSync(&console), zapcore.AddSync(&file), zapcore.InfoLevel)
	logger.Sugar().Infow("trade", "price", 55)
	logger.Sugar().Debugw("hidden")

	for _, buf := range []*bytes.Buffer{&console, &file} {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "trade", entry["msg"])
		assert.Equal(t, "INFO", entry["level"])
		assert.EqualValues(t, 55, entry["price"])
		assert.Contains(t, entry, "ts")
	}
}

func TestNewLoggerWithFile_CreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lobsim.log")
	logger, err := NewLoggerWithFile(path, true)
	require.NoError(t, err)
	logger.Debug("session_start")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session_start")
}

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := c.Now()
	<-c.After(time.Millisecond)
	assert.False(t, c.Now().Before(before))
}
