package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(zap.String("merchant_id", "m-1"))

	log.Info("sync started", zap.Int("page_size", 100))

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "m-1", ctx["merchant_id"])
	assert.Equal(t, int64(100), ctx["page_size"])
}

func TestNewZapLoggerFallsBackOnBadLevel(t *testing.T) {
	log := NewZapLogger(&ZapLoggerConfig{Level: "loud", Encoding: "json"})
	zl, ok := log.(*zapLogger)
	require.True(t, ok)

	assert.False(t, zl.log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, zl.log.Core().Enabled(zapcore.InfoLevel))
}
