package themis

import (
	"context"
	"errors"
)

// Get performs a snapshot read at startTs, recovering from at most one conflicting
// lock via the cleaner (§4.2, §8 invariant 7).
func (t *Transaction) Get(ctx context.Context, table string, g Get) (Result, error) {
	if err := t.checkUsable(); err != nil {
		return Result{}, err
	}
	if len(g.Columns) == 0 {
		return Result{}, NewError(InvalidRequest, errors.New("get requires at least one column"))
	}

	res, err := t.coord.Client.ThemisGet(ctx, table, g, t.startTs, false)
	if err != nil {
		return Result{}, NewError(IO, err)
	}
	if !isLockResult(res) {
		return res, nil
	}

	if err := t.coord.Cleaner.TryToCleanLocks(ctx, table, res.Locks); err != nil {
		return Result{}, NewErrorWithData(LockConflict, err, res.Locks)
	}
	t.coord.Stats.IncReadClean()
	RandomSleep(ctx)

	res2, err := t.coord.Client.ThemisGet(ctx, table, g, t.startTs, true)
	if err != nil {
		return Result{}, NewError(IO, err)
	}
	if isLockResult(res2) {
		return Result{}, NewError(Fatal, errors.New("lock still present after ignore-lock retry"))
	}
	return res2, nil
}
