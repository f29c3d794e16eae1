package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func newBufferAdapter(buf *bytes.Buffer) Logger {
	return &zerologAdapter{logger: zerolog.New(buf)}
}

func lastEvent(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte{'\n'})
	require.NotEmpty(t, lines)
	var event map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &event))
	return event
}

func TestAdapterEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferAdapter(&buf)

	logger.Info(context.Background(), "session created", map[string]any{"user_id": "u-1"})

	event := lastEvent(t, &buf)
	assert.Equal(t, "info", event["level"])
	assert.Equal(t, "session created", event["message"])
	assert.Equal(t, "u-1", event["user_id"])
}

func TestAdapterWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferAdapter(&buf).With(map[string]any{"component": "flow"})

	logger.Warn(context.Background(), "state mismatch")

	event := lastEvent(t, &buf)
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "flow", event["component"])
}

func TestAdapterErrorIncludesErr(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferAdapter(&buf)

	logger.Error(context.Background(), "exchange failed", errors.New("boom"))

	event := lastEvent(t, &buf)
	assert.Equal(t, "error", event["level"])
	assert.Equal(t, "boom", event["error"])
}

func TestAdapterAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferAdapter(&buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.Debug(ctx, "traced event")

	event := lastEvent(t, &buf)
	assert.Equal(t, sc.TraceID().String(), event["trace_id"])
	assert.Equal(t, sc.SpanID().String(), event["span_id"])

	// No span on the context means no trace fields.
	buf.Reset()
	logger.Debug(context.Background(), "plain")
	event = lastEvent(t, &buf)
	assert.NotContains(t, event, "trace_id")
}

func TestNewLoggerLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "nonsense", false)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = newLogger(&buf, "debug", false)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}
