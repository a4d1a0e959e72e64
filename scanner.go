package themis

import (
	"context"
	"errors"
)

// scanBatch is one page fetched from the backing store's scan RPC, or a terminal
// error recovered from the fetch loop.
type scanBatch struct {
	result       Result
	nextStartRow string
	hasMore      bool
	err          error
}

// Scanner pages through a range scan at the transaction's startTs, applying the same
// lock-conflict-then-retry contract as Get but generalized to a per-batch basis
// (§4.12, invariant 7 generalized). Batches are fetched one page ahead of the
// caller's consumption using a TaskRunner; prefetch is best-effort and never
// reorders results past what the caller has already consumed.
type Scanner struct {
	tx    *Transaction
	table string
	scan  Scan

	runner  *TaskRunner
	batches chan scanBatch

	pending Result
	idx     int
	closed  bool
}

// GetScanner validates the scan identically to Get (§4.2 step 1) and returns a
// Scanner that begins prefetching immediately.
func (t *Transaction) GetScanner(ctx context.Context, table string, s Scan) (*Scanner, error) {
	if err := t.checkUsable(); err != nil {
		return nil, err
	}
	if len(s.Columns) == 0 {
		return nil, NewError(InvalidRequest, errors.New("scan requires at least one column"))
	}

	limit := t.coord.ScanPrefetch
	if limit <= 0 {
		limit = 1
	}
	sc := &Scanner{
		tx:      t,
		table:   table,
		scan:    s,
		runner:  NewTaskRunner(ctx, limit),
		batches: make(chan scanBatch, 1),
	}
	sc.runner.Go(func() error {
		sc.fetchLoop(sc.runner.GetContext(), s.StartRow)
		return nil
	})
	return sc, nil
}

func (sc *Scanner) fetchLoop(ctx context.Context, startRow string) {
	defer close(sc.batches)

	row := startRow
	for {
		res, next, hasMore, err := sc.tx.coord.Client.ThemisScan(ctx, sc.table, sc.scan, sc.tx.startTs, false, row, sc.scan.BatchHint)
		if err == nil && isLockResult(res) {
			if cerr := sc.tx.coord.Cleaner.TryToCleanLocks(ctx, sc.table, res.Locks); cerr != nil {
				sc.emit(ctx, scanBatch{err: NewErrorWithData(LockConflict, cerr, res.Locks)})
				return
			}
			sc.tx.coord.Stats.IncReadClean()
			res, next, hasMore, err = sc.tx.coord.Client.ThemisScan(ctx, sc.table, sc.scan, sc.tx.startTs, true, row, sc.scan.BatchHint)
			if err == nil && isLockResult(res) {
				sc.emit(ctx, scanBatch{err: NewError(Fatal, errors.New("lock still present after ignore-lock retry"))})
				return
			}
		}
		if err != nil {
			sc.emit(ctx, scanBatch{err: NewError(IO, err)})
			return
		}
		if !sc.emit(ctx, scanBatch{result: res, nextStartRow: next, hasMore: hasMore}) {
			return
		}
		if !hasMore {
			return
		}
		row = next
	}
}

func (sc *Scanner) emit(ctx context.Context, b scanBatch) bool {
	select {
	case sc.batches <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// Next returns the next cell in scan order, or ok=false when the scan is exhausted.
func (sc *Scanner) Next(ctx context.Context) (Cell, bool, error) {
	for sc.idx >= len(sc.pending.Cells) {
		select {
		case b, ok := <-sc.batches:
			if !ok {
				return Cell{}, false, nil
			}
			if b.err != nil {
				return Cell{}, false, b.err
			}
			sc.pending = b.result
			sc.idx = 0
			if len(sc.pending.Cells) == 0 && !b.hasMore {
				return Cell{}, false, nil
			}
		case <-ctx.Done():
			return Cell{}, false, NewError(IO, ctx.Err())
		}
	}
	c := sc.pending.Cells[sc.idx]
	sc.idx++
	return c, true, nil
}

// Close waits for the background prefetch goroutine to finish, surfacing any error
// it hit that the caller never drained via Next. Batches not yet consumed are
// drained and discarded.
func (sc *Scanner) Close() error {
	if sc.closed {
		return nil
	}
	sc.closed = true
	var firstErr error
	for b := range sc.batches {
		if b.err != nil && firstErr == nil {
			firstErr = b.err
		}
	}
	if err := sc.runner.Wait(); err != nil {
		return err
	}
	return firstErr
}
