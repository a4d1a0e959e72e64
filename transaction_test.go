package themis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulcoming/themis"
	"github.com/paulcoming/themis/mocks"
)

func newCoordinator() (*themis.Coordinator, *mocks.RPCClient) {
	rpc := mocks.NewRPCClient()
	coord := themis.NewCoordinator(rpc, mocks.NewOracle(), mocks.NewCleaner(), mocks.NewRegistry("worker-1"))
	coord.Clock = mocks.NewClock(time.Unix(0, 0))
	return coord, rpc
}

// S1: single-column transaction.
func TestCommit_SingleColumn(t *testing.T) {
	coord, rpc := newCoordinator()
	ctx := context.Background()

	tx, err := coord.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Put("T1", themis.Put{Row: "r1", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v")}}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if !rpc.Committed("T1", "r1", "f", "q") {
		t.Fatalf("expected r1/f:q committed")
	}
	prewrites, commits := countCalls(rpc.Calls)
	if prewrites != 1 || commits != 1 {
		t.Fatalf("expected 1 prewrite + 1 commit RPC, got prewrites=%d commits=%d (calls=%v)", prewrites, commits, rpc.Calls)
	}
}

// S2: cross-row commit, primary-first ordering for both prewrite and commit.
func TestCommit_CrossRow_PrimaryFirst(t *testing.T) {
	coord, rpc := newCoordinator()
	ctx := context.Background()

	tx, err := coord.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Put("T1", themis.Put{Row: "r1", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v1")}}}); err != nil {
		t.Fatalf("put r1: %v", err)
	}
	if err := tx.Put("T1", themis.Put{Row: "r2", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v2")}}}); err != nil {
		t.Fatalf("put r2: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	prewriteIdx := map[string]int{}
	commitIdx := map[string]int{}
	for i, c := range rpc.Calls {
		switch c {
		case "PrewriteRow(r1)":
			prewriteIdx["primary"] = i
		case "PrewriteSecondaryRow(r2)":
			prewriteIdx["secondary"] = i
		case "CommitRow(r1)":
			commitIdx["primary"] = i
		case "CommitSecondaryRow(r2)":
			commitIdx["secondary"] = i
		}
	}
	if prewriteIdx["primary"] >= prewriteIdx["secondary"] {
		t.Fatalf("expected primary prewrite before secondary, calls=%v", rpc.Calls)
	}
	if commitIdx["primary"] >= commitIdx["secondary"] {
		t.Fatalf("expected primary commit before secondary, calls=%v", rpc.Calls)
	}
	if !rpc.Committed("T1", "r1", "f", "q") || !rpc.Committed("T1", "r2", "f", "q") {
		t.Fatalf("expected both rows committed")
	}
}

// S3: prewrite conflict resolved by the cleaner, then retry succeeds.
func TestCommit_PrewriteConflictResolved(t *testing.T) {
	coord, rpc := newCoordinator()
	cleaner := coord.Cleaner.(*mocks.Cleaner)
	cleaner.TryToCleanLockFn = func(ctx context.Context, lock themis.ConflictLock) error {
		rpc.ResolveConflict(lock.Column.Table, lock.Column.Row, lock.Column.Family, lock.Column.Qualifier)
		return nil
	}
	rpc.SeedConflict("T1", "r2", "f", "q", themis.ConflictLock{
		Column: themis.ColumnCoordinate{Table: "T1", Row: "r2", Family: "f", Qualifier: "q"},
		Family: themis.DataFamily,
	})

	ctx := context.Background()
	tx, _ := coord.Begin(ctx)
	tx.Put("T1", themis.Put{Row: "r1", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v1")}}})
	tx.Put("T1", themis.Put{Row: "r2", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v2")}}})

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("expected commit to succeed after cleaner resolves conflict, got %v", err)
	}
	if len(cleaner.Calls) != 1 {
		t.Fatalf("expected exactly one cleaner call, got %v", cleaner.Calls)
	}
}

// S4: prewrite conflict the cleaner cannot resolve -> LOCK_CONFLICT, rollback issued.
func TestCommit_PrewriteConflictUnresolvable(t *testing.T) {
	coord, rpc := newCoordinator()
	cleaner := coord.Cleaner.(*mocks.Cleaner)
	// Cleaner "succeeds" (no error) but the peer re-locks immediately, so the
	// second prewrite attempt still observes the conflict.
	cleaner.TryToCleanLockFn = func(ctx context.Context, lock themis.ConflictLock) error {
		return nil
	}
	rpc.SeedConflict("T1", "r2", "f", "q", themis.ConflictLock{
		Column: themis.ColumnCoordinate{Table: "T1", Row: "r2", Family: "f", Qualifier: "q"},
		Family: themis.DataFamily,
	})

	ctx := context.Background()
	tx, _ := coord.Begin(ctx)
	tx.Put("T1", themis.Put{Row: "r1", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v1")}}})
	tx.Put("T1", themis.Put{Row: "r2", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v2")}}})

	err := tx.Commit(ctx)
	var e themis.Error
	if !errors.As(err, &e) || e.Code != themis.LockConflict {
		t.Fatalf("expected LOCK_CONFLICT, got %v", err)
	}

	prewrites := 0
	for _, c := range rpc.Calls {
		if c == "PrewriteSecondaryRow(r2)" {
			prewrites++
		}
	}
	if prewrites != 2 {
		t.Fatalf("expected exactly two prewrite attempts on r2 (invariant 8), got %d", prewrites)
	}

	rolledBack := false
	for _, c := range rpc.Calls {
		if c == "CommitRow(r1)" || c == "CommitSecondaryRow(r2)" {
			t.Fatalf("did not expect any commit RPCs on failed prewrite, calls=%v", rpc.Calls)
		}
	}
	for _, call := range cleaner.Calls {
		if call == "EraseLockAndData" {
			rolledBack = true
		}
	}
	if !rolledBack {
		t.Fatalf("expected rollback (EraseLockAndData) to have been called, cleaner calls=%v", cleaner.Calls)
	}
}

// S5: primary commit fails with LOCK_CLEANED -> full rollback, error propagated.
func TestCommit_PrimaryLockCleaned(t *testing.T) {
	coord, rpc := newCoordinator()
	cleaner := coord.Cleaner.(*mocks.Cleaner)
	ctx := context.Background()

	tx, _ := coord.Begin(ctx)
	tx.Put("T1", themis.Put{Row: "r1", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v1")}}})
	tx.Put("T1", themis.Put{Row: "r2", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v2")}}})
	rpc.MarkLockCleanedOnCommit("T1", "r1")

	err := tx.Commit(ctx)
	var e themis.Error
	if !errors.As(err, &e) || e.Code != themis.LockCleaned {
		t.Fatalf("expected LOCK_CLEANED, got %v", err)
	}

	eraseCount := 0
	for _, call := range cleaner.Calls {
		if call == "EraseLockAndData" {
			eraseCount++
		}
	}
	if eraseCount != 2 {
		t.Fatalf("expected rollback of primary + secondary row, got %d erase calls", eraseCount)
	}
}

// S6: secondary commit I/O failure is swallowed; commit() still returns success.
func TestCommit_SecondaryCommitFailureSwallowed(t *testing.T) {
	coord, _ := newCoordinator()
	// MarkLockCleanedOnCommit only affects CommitRow, not CommitSecondaryRow, so the
	// secondary commit failure is simulated by wrapping the RPCClient in a client
	// whose CommitSecondaryRow always fails.
	rpc := &failingSecondaryCommitClient{RPCClient: mocks.NewRPCClient()}
	coord.Client = rpc
	ctx := context.Background()

	tx, _ := coord.Begin(ctx)
	tx.Put("T1", themis.Put{Row: "r1", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v1")}}})
	tx.Put("T1", themis.Put{Row: "r2", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v2")}}})

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("expected commit to succeed despite secondary commit failure, got %v", err)
	}
	if !rpc.Committed("T1", "r1", "f", "q") {
		t.Fatalf("expected primary committed")
	}
}

// S7: get returns a lock conflict the cleaner cannot resolve after the ignore-lock
// retry still sees a lock -> FATAL.
func TestGet_FatalAfterIgnoreLockRetry(t *testing.T) {
	coord, rpc := newCoordinator()
	cleaner := coord.Cleaner.(*mocks.Cleaner)
	cleaner.TryToCleanLocksFn = func(ctx context.Context, table string, locks []themis.ConflictLock) error {
		return nil // "succeeds" but conflict is never actually cleared below
	}
	lock := themis.ConflictLock{Column: themis.ColumnCoordinate{Table: "T1", Row: "r1", Family: "f", Qualifier: "q"}, Family: themis.DataFamily}
	rpc.SeedConflict("T1", "r1", "f", "q", lock)

	// ignoreLock=true in this fake still surfaces the seeded conflict because we
	// never resolved it, exercising the FATAL path.
	rpcFatal := &alwaysLockClient{RPCClient: rpc}
	coord.Client = rpcFatal

	ctx := context.Background()
	tx, _ := coord.Begin(ctx)
	_, err := tx.Get(ctx, "T1", themis.Get{Row: "r1", Columns: []themis.ColumnCoordinate{{Table: "T1", Row: "r1", Family: "f", Qualifier: "q"}}})

	var e themis.Error
	if !errors.As(err, &e) || e.Code != themis.Fatal {
		t.Fatalf("expected FATAL, got %v", err)
	}
}

func TestGet_RequiresAtLeastOneColumn(t *testing.T) {
	coord, _ := newCoordinator()
	ctx := context.Background()
	tx, _ := coord.Begin(ctx)
	_, err := tx.Get(ctx, "T1", themis.Get{Row: "r1"})
	var e themis.Error
	if !errors.As(err, &e) || e.Code != themis.InvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestCommit_EmptyBufferIsNoop(t *testing.T) {
	coord, rpc := newCoordinator()
	ctx := context.Background()
	tx, _ := coord.Begin(ctx)
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("expected no-op commit to succeed, got %v", err)
	}
	if len(rpc.Calls) != 0 {
		t.Fatalf("expected no RPCs for an empty transaction, got %v", rpc.Calls)
	}
}

func TestSetPreferredPrimary_Honored(t *testing.T) {
	coord, rpc := newCoordinator()
	ctx := context.Background()
	tx, _ := coord.Begin(ctx)
	tx.Put("T1", themis.Put{Row: "r1", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v1")}}})
	tx.Put("T1", themis.Put{Row: "r2", Columns: []themis.ColumnMutation{{Family: "f", Qualifier: "q", Value: []byte("v2")}}})
	tx.SetPreferredPrimary(themis.ColumnCoordinate{Table: "T1", Row: "r2", Family: "f", Qualifier: "q"})

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	for i, c := range rpc.Calls {
		if c == "PrewriteRow(r2)" {
			for j := 0; j < i; j++ {
				if rpc.Calls[j] == "PrewriteSecondaryRow(r1)" {
					t.Fatalf("expected preferred primary r2 to prewrite first, calls=%v", rpc.Calls)
				}
			}
		}
	}
}

func countCalls(calls []string) (prewrites, commits int) {
	for _, c := range calls {
		switch {
		case len(c) >= 11 && c[:11] == "PrewriteRow", len(c) >= 20 && c[:20] == "PrewriteSecondaryRow":
			prewrites++
		case len(c) >= 9 && c[:9] == "CommitRow", len(c) >= 18 && c[:18] == "CommitSecondaryRow":
			commits++
		}
	}
	return
}

// failingSecondaryCommitClient wraps an RPCClient to force CommitSecondaryRow to
// fail, exercising §4.9's swallow-and-continue contract.
type failingSecondaryCommitClient struct {
	*mocks.RPCClient
}

func (f *failingSecondaryCommitClient) CommitSecondaryRow(ctx context.Context, table, row string, columns []themis.ColumnMutation, startTs, commitTs uint64) error {
	return errors.New("simulated network failure")
}

// alwaysLockClient forces ThemisGet to always return the seeded lock regardless of
// ignoreLock, exercising the FATAL-after-retry path.
type alwaysLockClient struct {
	*mocks.RPCClient
}

func (a *alwaysLockClient) ThemisGet(ctx context.Context, table string, g themis.Get, startTs uint64, ignoreLock bool) (themis.Result, error) {
	return a.RPCClient.ThemisGet(ctx, table, g, startTs, false)
}
