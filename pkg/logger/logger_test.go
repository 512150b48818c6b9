package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestOptions_Level(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, Options{}.Level())
	assert.Equal(t, zapcore.WarnLevel, Options{Quiet: true}.Level())
	assert.Equal(t, zapcore.DebugLevel, Options{Verbose: true}.Level())
	assert.Equal(t, zapcore.DebugLevel, Options{Verbose: true, Quiet: true}.Level())
}

func TestNew(t *testing.T) {
	l, err := New(Options{JSON: true, Quiet: true})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
