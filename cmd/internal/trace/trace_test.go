package trace

import (
	"context"
	"testing"
)

func TestNextSpanIDIncrementsWithinRequest(t *testing.T) {
	ctx := WithRequestAndSpan(context.Background(), "req-1", 0)

	if got := CurrentSpanID(ctx); got != "0" {
		t.Fatalf("expected initial span 0, got %q", got)
	}
	for _, want := range []string{"1", "2", "3"} {
		reqID, span := NextSpanID(ctx)
		if reqID != "req-1" {
			t.Fatalf("expected request id req-1, got %q", reqID)
		}
		if span != want {
			t.Fatalf("expected span %s, got %s", want, span)
		}
	}
	if got := CurrentSpanID(ctx); got != "3" {
		t.Fatalf("expected current span 3, got %q", got)
	}
}

func TestEnsureKeepsExistingTrace(t *testing.T) {
	ctx := WithRequestAndSpan(context.Background(), "req-1", 0)

	if got := RequestIDFromContext(Ensure(ctx, "")); got != "req-1" {
		t.Fatalf("expected existing request id, got %q", got)
	}
	if got := RequestIDFromContext(Ensure(ctx, "req-1")); got != "req-1" {
		t.Fatalf("expected existing request id, got %q", got)
	}
	if got := RequestIDFromContext(Ensure(ctx, "req-2")); got != "req-2" {
		t.Fatalf("expected explicit trace id to win, got %q", got)
	}
}

func TestEnsureGeneratesIDWhenMissing(t *testing.T) {
	ctx := Ensure(context.Background(), "")
	if RequestIDFromContext(ctx) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestGenerateIDIsCompactAndUnique(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d (%q)", len(a), a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}

func TestNextSpanIDWithoutTrace(t *testing.T) {
	reqID, span := NextSpanID(context.Background())
	if reqID == "" || span != "1" {
		t.Fatalf("expected fresh request id and span 1, got %q %q", reqID, span)
	}
	if got := CurrentSpanID(context.Background()); got != "0" {
		t.Fatalf("expected span 0 without trace, got %q", got)
	}
}
