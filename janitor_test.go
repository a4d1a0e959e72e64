package themis_test

import (
	"context"
	"testing"
	"time"

	"github.com/paulcoming/themis"
	"github.com/paulcoming/themis/mocks"
)

func TestJanitor_SweepDelegatesToCleanerForDeadOwner(t *testing.T) {
	cleaner := mocks.NewCleaner()
	now := time.Unix(1000, 0)
	lock := themis.ConflictLock{
		Column:   themis.ColumnCoordinate{Table: "T1", Row: "r1", Family: "f", Qualifier: "q"},
		ClientID: []byte("worker-dead"),
		WallTime: now.Add(-2 * time.Minute),
	}
	source := mocks.NewStaleLockSource(lock)
	registry := mocks.NewRegistry("worker-1")
	clock := mocks.NewClock(now)

	cleaned := make(chan themis.ColumnCoordinate, 1)
	cleaner.TryToCleanLockFn = func(ctx context.Context, l themis.ConflictLock) error {
		cleaned <- l.Column
		return nil
	}

	j := themis.NewJanitor(cleaner, source, clock, registry, themis.NewInMemoryStats(), time.Minute)
	if err := j.Start("@every 1s"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer j.Stop()

	select {
	case col := <-cleaned:
		if col != lock.Column {
			t.Fatalf("unexpected column swept: %+v", col)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for janitor sweep")
	}
}

func TestJanitor_SkipsLockHeldByLiveOwner(t *testing.T) {
	cleaner := mocks.NewCleaner()
	now := time.Unix(1000, 0)
	lock := themis.ConflictLock{
		Column:   themis.ColumnCoordinate{Table: "T1", Row: "r1", Family: "f", Qualifier: "q"},
		ClientID: []byte("worker-live"),
		WallTime: now.Add(-2 * time.Minute),
	}
	source := mocks.NewStaleLockSource(lock)
	registry := mocks.NewRegistry("worker-1")
	registry.IsAliveFn = func(ctx context.Context, clientAddress []byte) (bool, error) {
		return true, nil
	}
	clock := mocks.NewClock(now)

	cleaned := make(chan themis.ColumnCoordinate, 1)
	cleaner.TryToCleanLockFn = func(ctx context.Context, l themis.ConflictLock) error {
		cleaned <- l.Column
		return nil
	}

	j := themis.NewJanitor(cleaner, source, clock, registry, themis.NewInMemoryStats(), time.Minute)
	if err := j.Start("@every 1s"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer j.Stop()

	select {
	case col := <-cleaned:
		t.Fatalf("expected live owner's lock to be skipped, but cleaner ran on %+v", col)
	case <-time.After(2 * time.Second):
		// Expected: no sweep fired within the window.
	}
}
