package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false, VerbosityInfo)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.False(t, JSONOutput)
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true, VerbosityUser)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.True(t, JSONOutput)
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityInfo))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7))
}

func TestMinimalEncoderEntry(t *testing.T) {
	enc := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Date(2026, 3, 1, 13, 4, 35, 0, time.UTC),
		Message: "Pass complete",
	}
	fields := []zapcore.Field{
		zap.Int(FieldRoutes, 12),
		zap.String(FieldPassID, "p-1"),
	}

	buf, err := enc.EncodeEntry(entry, fields)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "13:04:35")
	assert.Contains(t, out, "Pass complete")
	assert.Contains(t, out, "routes")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "p-1")
	// INFO entries carry no level marker
	assert.NotContains(t, out, "INFO")
}

func TestMinimalEncoderWarnLevel(t *testing.T) {
	enc := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:   zapcore.WarnLevel,
		Time:    time.Now(),
		Message: "route skipped",
	}

	buf, err := enc.EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "WARN")
}

func TestMinimalEncoderClone(t *testing.T) {
	enc := newMinimalEncoder()
	clone := enc.Clone()
	require.NotNil(t, clone)
	assert.NotSame(t, enc, clone)
}
