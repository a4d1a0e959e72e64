package themis

import (
	"context"
	"time"
)

// Family identifies one of the three shadow column families the backing store uses
// to encode MVCC and intent state. The coordinator treats family identity as the
// only opaque fact it needs about the wire format (§6).
type Family int

const (
	// DataFamily holds staged values at DATA@startTs.
	DataFamily Family = iota
	// LockFamily holds in-flight prewrite intents.
	LockFamily
	// WriteFamily holds committed pointers WRITE@commitTs -> DATA@startTs.
	WriteFamily
)

// Get describes a single-row read request: the row and the set of columns the
// caller wants a value for. The table is passed separately to ThemisGet.
type Get struct {
	Row     string
	Columns []ColumnCoordinate
}

// Put describes a single-row write request.
type Put struct {
	Row     string
	Columns []ColumnMutation
}

// Delete describes a single-row delete request, reusing ColumnMutation's Kind to
// distinguish Delete from DeleteColumn.
type Delete struct {
	Row     string
	Columns []ColumnMutation
}

// Scan describes a range scan request over a table.
type Scan struct {
	StartRow string
	EndRow   string
	Columns  []ColumnCoordinate
	BatchHint int
}

// Result is the outcome of a themisGet call: the cells read, plus any LOCK-family
// entries returned as conflict sentinels (§4.2 step 3).
type Result struct {
	Cells []Cell
	Locks []ConflictLock
}

// Cell is a single returned (family,qualifier)->value pair for a themisGet.
type Cell struct {
	Family    string
	Qualifier string
	Value     []byte
	Timestamp uint64
}

// isLockResult reports whether a Result carries any LOCK-family conflict sentinels,
// per §4.2 step 3 / §6's isLockResult contract.
func isLockResult(r Result) bool {
	return len(r.Locks) > 0
}

// ConflictLock is a lock descriptor surfaced by a themisGet or prewrite RPC when a
// conflicting LOCK entry blocks the caller. Its Column's family determines whether
// it is a legitimate conflict surface (§4.2 step 3, §4.6 step 3).
type ConflictLock struct {
	Column    ColumnCoordinate
	Family    Family
	StartTs   uint64
	ClientID  []byte
	WallTime  time.Time
}

// RPCClient is the backing-store coprocessor client consumed by the coordinator
// (§6). Implementations perform server-side row-atomic prewrite, commit, themis-
// aware get, and scan RPCs. Safe for concurrent use across transactions.
type RPCClient interface {
	// ThemisGet performs a snapshot-aware read at startTs. When ignoreLock is false,
	// conflicting LOCK entries surface via Result.Locks (isLockResult).
	ThemisGet(ctx context.Context, table string, get Get, startTs uint64, ignoreLock bool) (Result, error)

	// ThemisScan pages through a scan at startTs, same lock-surfacing contract as
	// ThemisGet, applied per returned batch.
	ThemisScan(ctx context.Context, table string, scan Scan, startTs uint64, ignoreLock bool, startRow string, limit int) (Result, string, bool, error)

	// PrewriteRow performs the primary row's row-atomic prewrite CAS. Returns a
	// non-nil *ConflictLock on conflict, nil on success.
	PrewriteRow(ctx context.Context, table, row string, columns []ColumnMutation, startTs uint64, primaryLockBytes, secondaryLockBytesWithoutType []byte, primaryIndexInRow int) (*ConflictLock, error)

	// PrewriteSecondaryRow performs a secondary row's row-atomic prewrite CAS.
	PrewriteSecondaryRow(ctx context.Context, table, row string, columns []ColumnMutation, startTs uint64, secondaryLockBytesWithoutType []byte) (*ConflictLock, error)

	// CommitRow performs the primary row's row-atomic commit (WRITE@commitTs + LOCK
	// erase). Returns a themis.Error{Code: LockCleaned} if the primary lock is
	// missing (§4.8).
	CommitRow(ctx context.Context, table, row string, columns []ColumnMutation, startTs, commitTs uint64, primaryIndexInRow int) error

	// CommitSecondaryRow performs a secondary row's row-atomic commit.
	CommitSecondaryRow(ctx context.Context, table, row string, columns []ColumnMutation, startTs, commitTs uint64) error
}

// TimestampOracle allocates globally monotonic timestamps (§6). GetCommitTs must
// always return a value greater than any previously issued GetStartTs or GetCommitTs.
type TimestampOracle interface {
	GetStartTs(ctx context.Context) (uint64, error)
	GetCommitTs(ctx context.Context) (uint64, error)
}

// WallClock supplies the current time embedded in locks to let remote cleaners judge
// owner liveness (§5 Liveness, §6).
type WallClock interface {
	Now() time.Time
}

// systemClock is the default WallClock backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default WallClock implementation, backed by time.Now.
var SystemClock WallClock = systemClock{}

// WorkerRegistry issues a stable client address identifying this coordinator's
// locks to remote cleaners (§6), and lets those cleaners judge whether a lock's
// owner is still alive before sweeping it (§5 Liveness).
type WorkerRegistry interface {
	RegisterWorker(ctx context.Context) error
	GetClientAddress() []byte

	// IsAlive reports whether the worker holding clientAddress is still registered
	// and presumed live. The janitor treats a registry error as "unknown" and falls
	// back to the wall-clock age check alone (§4.13).
	IsAlive(ctx context.Context, clientAddress []byte) (bool, error)
}

// LockCleaner resolves conflicting locks observed during read or prewrite, using the
// primary lock's state as ground truth (§6). Its internal policy is out of scope;
// only this contract is consumed.
type LockCleaner interface {
	// TryToCleanLocks attempts to resolve every lock in lockKvs, raising on failure.
	TryToCleanLocks(ctx context.Context, table string, locks []ConflictLock) error

	// TryToCleanLock attempts to resolve a single conflicting lock.
	TryToCleanLock(ctx context.Context, lock ConflictLock) error

	// EraseLockAndData idempotently erases LOCK entries and staged DATA entries at
	// startTs for the given columns (the rollback primitive, §4.11).
	EraseLockAndData(ctx context.Context, table, row string, columns []ColumnCoordinate, startTs uint64) error
}
