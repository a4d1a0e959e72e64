package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/paulcoming/themis"
)

type cellKey struct {
	table     string
	row       string
	family    string
	qualifier string
}

// RPCClient is an in-memory themis.RPCClient. It tracks enough state (DATA/LOCK/WRITE
// presence per cell, plus an ordered call log) to drive the scenarios in the
// coordinator's test suite without implementing a real MVCC store: timestamps are
// recorded but not used to version multiple values per cell.
type RPCClient struct {
	mu sync.Mutex

	Calls []string

	data   map[cellKey][]byte
	locks  map[cellKey]themis.ConflictLock
	writes map[cellKey]uint64

	conflicts   map[cellKey]themis.ConflictLock
	lockCleaned map[string]bool // table\x00row
}

// NewRPCClient returns an empty in-memory RPCClient.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		data:        make(map[cellKey][]byte),
		locks:       make(map[cellKey]themis.ConflictLock),
		writes:      make(map[cellKey]uint64),
		conflicts:   make(map[cellKey]themis.ConflictLock),
		lockCleaned: make(map[string]bool),
	}
}

func rowKey(table, row string) string { return table + "\x00" + row }

// SeedConflict makes every prewrite touching (table,row,family,qualifier) return
// the given conflict lock, and every lock-aware read surface it, until
// ResolveConflict clears it, simulating a stale lock left by another transaction.
// Tests typically clear it from a LockCleaner stub via ResolveConflict, mirroring a
// real cleaner's side effect.
func (c *RPCClient) SeedConflict(table, row, family, qualifier string, lock themis.ConflictLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts[cellKey{table, row, family, qualifier}] = lock
}

// ResolveConflict clears a previously seeded conflict, as a real cleaner would after
// rolling the stale transaction forward or back.
func (c *RPCClient) ResolveConflict(table, row, family, qualifier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conflicts, cellKey{table, row, family, qualifier})
}

// MarkLockCleanedOnCommit arranges for the next CommitRow on (table,row) to fail
// with themis.LockCleaned, simulating a peer cleaner having erased the primary lock.
func (c *RPCClient) MarkLockCleanedOnCommit(table, row string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockCleaned[rowKey(table, row)] = true
}

func (c *RPCClient) record(call string) {
	c.Calls = append(c.Calls, call)
}

func (c *RPCClient) ThemisGet(ctx context.Context, table string, g themis.Get, startTs uint64, ignoreLock bool) (themis.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ThemisGet")

	var res themis.Result
	for _, cc := range g.Columns {
		key := cellKey{table, g.Row, cc.Family, cc.Qualifier}
		if !ignoreLock {
			if lock, ok := c.conflicts[key]; ok {
				res.Locks = append(res.Locks, lock)
				continue
			}
		}
		if v, ok := c.data[key]; ok {
			res.Cells = append(res.Cells, themis.Cell{Family: cc.Family, Qualifier: cc.Qualifier, Value: v, Timestamp: startTs})
		}
	}
	return res, nil
}

func (c *RPCClient) ThemisScan(ctx context.Context, table string, scan themis.Scan, startTs uint64, ignoreLock bool, startRow string, limit int) (themis.Result, string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ThemisScan")

	rows := make(map[string]bool)
	for k := range c.data {
		if k.table == table && k.row >= startRow {
			rows[k.row] = true
		}
	}
	var ordered []string
	for r := range rows {
		ordered = append(ordered, r)
	}
	sort.Strings(ordered)

	var res themis.Result
	for _, row := range ordered {
		for _, cc := range scan.Columns {
			key := cellKey{table, row, cc.Family, cc.Qualifier}
			if !ignoreLock {
				if lock, ok := c.conflicts[key]; ok {
					res.Locks = append(res.Locks, lock)
					continue
				}
			}
			if v, ok := c.data[key]; ok {
				res.Cells = append(res.Cells, themis.Cell{Family: cc.Family, Qualifier: cc.Qualifier, Value: v, Timestamp: startTs})
			}
		}
	}
	return res, "", false, nil
}

func (c *RPCClient) prewriteColumns(table, row string, columns []themis.ColumnMutation, startTs uint64) *themis.ConflictLock {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, col := range columns {
		key := cellKey{table, row, col.Family, col.Qualifier}
		if lock, ok := c.conflicts[key]; ok {
			l := lock
			return &l
		}
	}
	for _, col := range columns {
		key := cellKey{table, row, col.Family, col.Qualifier}
		c.data[key] = col.Value
		c.locks[key] = themis.ConflictLock{Column: themis.ColumnCoordinate{Table: table, Row: row, Family: col.Family, Qualifier: col.Qualifier}, Family: themis.DataFamily, StartTs: startTs}
	}
	return nil
}

func (c *RPCClient) PrewriteRow(ctx context.Context, table, row string, columns []themis.ColumnMutation, startTs uint64, primaryLockBytes, secondaryLockBytesWithoutType []byte, primaryIndexInRow int) (*themis.ConflictLock, error) {
	c.record(fmt.Sprintf("PrewriteRow(%s)", row))
	return c.prewriteColumns(table, row, columns, startTs), nil
}

func (c *RPCClient) PrewriteSecondaryRow(ctx context.Context, table, row string, columns []themis.ColumnMutation, startTs uint64, secondaryLockBytesWithoutType []byte) (*themis.ConflictLock, error) {
	c.record(fmt.Sprintf("PrewriteSecondaryRow(%s)", row))
	return c.prewriteColumns(table, row, columns, startTs), nil
}

func (c *RPCClient) CommitRow(ctx context.Context, table, row string, columns []themis.ColumnMutation, startTs, commitTs uint64, primaryIndexInRow int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(fmt.Sprintf("CommitRow(%s)", row))

	if c.lockCleaned[rowKey(table, row)] {
		delete(c.lockCleaned, rowKey(table, row))
		return themis.NewError(themis.LockCleaned, errors.New("primary lock erased by peer cleaner"))
	}
	for _, col := range columns {
		key := cellKey{table, row, col.Family, col.Qualifier}
		c.writes[key] = commitTs
		delete(c.locks, key)
	}
	return nil
}

func (c *RPCClient) CommitSecondaryRow(ctx context.Context, table, row string, columns []themis.ColumnMutation, startTs, commitTs uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(fmt.Sprintf("CommitSecondaryRow(%s)", row))

	for _, col := range columns {
		key := cellKey{table, row, col.Family, col.Qualifier}
		c.writes[key] = commitTs
		delete(c.locks, key)
	}
	return nil
}

// Committed reports whether (table,row,family,qualifier) has a WRITE entry.
func (c *RPCClient) Committed(table, row, family, qualifier string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.writes[cellKey{table, row, family, qualifier}]
	return ok
}

// Locked reports whether (table,row,family,qualifier) still carries a LOCK entry.
func (c *RPCClient) Locked(table, row, family, qualifier string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.locks[cellKey{table, row, family, qualifier}]
	return ok
}
