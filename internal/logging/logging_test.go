package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFor(t *testing.T) {
	dev := ConfigFor("development", "")
	assert.True(t, dev.IsDevelopment)
	assert.Equal(t, "console", dev.Encoding)
	assert.Equal(t, "debug", dev.Level)

	prod := ConfigFor("production", "warn")
	assert.False(t, prod.IsDevelopment)
	assert.Equal(t, "json", prod.Encoding)
	assert.Equal(t, "warn", prod.Level)
}

func TestNew(t *testing.T) {
	logger, err := New(ConfigFor("production", "error"))
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))

	_, err = New(ConfigFor("production", "loud"))
	assert.Error(t, err)
}
