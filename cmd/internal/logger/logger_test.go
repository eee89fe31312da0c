package logger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"brand-insight/cmd/internal/trace"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) record(level string, args ...any) {
	r.lines = append(r.lines, level+":"+fmt.Sprint(args...))
}

func (r *recordingLogger) Debug(args ...any)                 { r.record("debug", args...) }
func (r *recordingLogger) Info(args ...any)                  { r.record("info", args...) }
func (r *recordingLogger) Warn(args ...any)                  { r.record("warn", args...) }
func (r *recordingLogger) Error(args ...any)                 { r.record("error", args...) }
func (r *recordingLogger) Debugf(format string, args ...any) { r.record("debug", fmt.Sprintf(format, args...)) }
func (r *recordingLogger) Infof(format string, args ...any)  { r.record("info", fmt.Sprintf(format, args...)) }
func (r *recordingLogger) Warnf(format string, args ...any)  { r.record("warn", fmt.Sprintf(format, args...)) }
func (r *recordingLogger) Errorf(format string, args ...any) { r.record("error", fmt.Sprintf(format, args...)) }

func TestFieldsWithCopies(t *testing.T) {
	base := Fields{"a": 1}
	merged := base.With(Fields{"b": 2, "a": 3})

	assert.Equal(t, Fields{"a": 1}, base)
	assert.Equal(t, Fields{"a": 3, "b": 2}, merged)
}

func TestTraceFields(t *testing.T) {
	ctx := trace.WithRequestAndSpan(context.Background(), "req-9", 2)
	assert.Equal(t, Fields{"request_id": "req-9", "span_id": "2"}, TraceFields(ctx))
}

func TestWithFieldsFallsBackToPlainLogger(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })
	rec := &recordingLogger{}
	Log = rec

	fields := Fields{"brand_id": 7}
	InfoWithFields("hello", fields)
	ErrorWithFields("boom", nil)

	assert.Equal(t, []string{"info:hello", "error:boom"}, rec.lines)
	assert.Equal(t, Fields{"brand_id": 7}, fields)
}

func TestStructuredLoggerDoesNotMutateFields(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })
	Init("error")
	t.Setenv("SERVICE_NAME", "insight")

	fields := Fields{"brand_id": 7}
	DebugWithFields("filtered", fields)
	assert.Equal(t, Fields{"brand_id": 7}, fields)
}
