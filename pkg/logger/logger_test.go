package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObservedLogger(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, recorded := observer.New(zapcore.InfoLevel)
	original := log
	log = zap.New(core)
	t.Cleanup(func() { log = original })
	return recorded
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "req-42")
	assert.Equal(t, "req-42", CorrelationIDFromContext(ctx))
}

func TestCorrelationIDFromBareContext(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.Empty(t, CorrelationIDFromContext(nil))
}

func TestWithContextAddsCorrelationIDField(t *testing.T) {
	recorded := withObservedLogger(t)

	ctx := ContextWithCorrelationID(context.Background(), "req-7")
	WithContext(ctx).Info("cache invalidated")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0].ContextMap()["correlation_id"])
}

func TestWithContextWithoutCorrelationIDAddsNoField(t *testing.T) {
	recorded := withObservedLogger(t)

	WithContext(context.Background()).Info("no request scope")

	entries := recorded.All()
	require.Len(t, entries, 1)
	_, present := entries[0].ContextMap()["correlation_id"]
	assert.False(t, present)
}

func TestErrorContextCarriesCorrelationID(t *testing.T) {
	recorded := withObservedLogger(t)

	ctx := ContextWithCorrelationID(context.Background(), "req-9")
	ErrorContext(ctx, "analytics query failed", zap.String("operation", "summary"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "req-9", entries[0].ContextMap()["correlation_id"])
	assert.Equal(t, "summary", entries[0].ContextMap()["operation"])
}

func TestGetFallsBackWithoutInit(t *testing.T) {
	original := log
	log = nil
	t.Cleanup(func() { log = original })

	assert.NotNil(t, Get())
}
