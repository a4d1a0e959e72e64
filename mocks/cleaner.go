package mocks

import (
	"context"
	"sync"

	"github.com/paulcoming/themis"
)

// Cleaner is a configurable LockCleaner. Tests set the *Fn fields to control
// whether cleaning succeeds or fails for a given scenario; nil fields default to
// success. Calls are recorded in call order for invariant assertions (e.g. "at most
// one clean per prewrite retry").
type Cleaner struct {
	mu    sync.Mutex
	Calls []string

	TryToCleanLocksFn  func(ctx context.Context, table string, locks []themis.ConflictLock) error
	TryToCleanLockFn   func(ctx context.Context, lock themis.ConflictLock) error
	EraseLockAndDataFn func(ctx context.Context, table, row string, columns []themis.ColumnCoordinate, startTs uint64) error
}

// NewCleaner returns a LockCleaner that succeeds on every call until its *Fn fields
// are overridden.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

func (c *Cleaner) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, call)
}

func (c *Cleaner) TryToCleanLocks(ctx context.Context, table string, locks []themis.ConflictLock) error {
	c.record("TryToCleanLocks")
	if c.TryToCleanLocksFn != nil {
		return c.TryToCleanLocksFn(ctx, table, locks)
	}
	return nil
}

func (c *Cleaner) TryToCleanLock(ctx context.Context, lock themis.ConflictLock) error {
	c.record("TryToCleanLock")
	if c.TryToCleanLockFn != nil {
		return c.TryToCleanLockFn(ctx, lock)
	}
	return nil
}

func (c *Cleaner) EraseLockAndData(ctx context.Context, table, row string, columns []themis.ColumnCoordinate, startTs uint64) error {
	c.record("EraseLockAndData")
	if c.EraseLockAndDataFn != nil {
		return c.EraseLockAndDataFn(ctx, table, row, columns, startTs)
	}
	return nil
}
