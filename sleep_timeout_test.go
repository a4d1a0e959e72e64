package themis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimedOut_WrapsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := TimedOut(ctx, "transaction", start, 5*time.Second)
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected errors.Is(err, context.Canceled) to be true; err=%v", err)
	}
}

func TestTimedOut_OperationDurationExceeded(t *testing.T) {
	start := time.Now().Add(-200 * time.Millisecond)
	max := 100 * time.Millisecond

	ctx := context.Background()
	err := TimedOut(ctx, "prewrite", start, max)
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		t.Fatalf("did not expect context cause, got err=%v", err)
	}
}

func TestTimedOut_WithinBudget(t *testing.T) {
	ctx := context.Background()
	err := TimedOut(ctx, "prewrite", time.Now(), time.Second)
	if err != nil {
		t.Fatalf("expected no timeout, got %v", err)
	}
}
