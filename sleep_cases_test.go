package themis

import (
	"context"
	"errors"
	"testing"
)

func TestShouldRetry_NonRetryableSentinels(t *testing.T) {
	if ShouldRetry(nil) {
		t.Fatalf("nil should not retry")
	}
	if ShouldRetry(context.Canceled) {
		t.Fatalf("context.Canceled should not retry")
	}
	if ShouldRetry(context.DeadlineExceeded) {
		t.Fatalf("context.DeadlineExceeded should not retry")
	}
}

func TestShouldRetry_NonRetryableCoordinatorErrors(t *testing.T) {
	cases := []Error{
		NewError(InvalidRequest, errors.New("missing column")),
		NewError(InvalidState, errors.New("no primary")),
		NewError(Fatal, errors.New("lock after ignore-lock read")),
	}
	for _, e := range cases {
		if ShouldRetry(e) {
			t.Fatalf("expected non-retryable: %v", e)
		}
	}
}

func TestShouldRetry_RetryableCoordinatorErrors(t *testing.T) {
	cases := []Error{
		NewError(LockConflict, errors.New("stuck lock")),
		NewError(IO, errors.New("dial timeout")),
	}
	for _, e := range cases {
		if !ShouldRetry(e) {
			t.Fatalf("expected retryable: %v", e)
		}
	}
}
