package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewConsole(t *testing.T) {
	log, err := New(Config{Level: "warn", Console: true})
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Desugar().Core().Enabled(zapcore.WarnLevel))
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{Dir: dir})
	require.NoError(t, err)

	log.Infow("prediction succeeded", "prediction", "Pass", "confidence", 0.7045)
	_ = log.Sync()

	payload, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"prediction":"Pass"`)
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Console: true})
	assert.Error(t, err)
}
