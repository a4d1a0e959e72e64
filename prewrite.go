package themis

import (
	"context"
	"errors"
	"fmt"
)

// prewriteRowWithLockClean drives a single row's prewrite, recovering from exactly
// one conflicting lock via the cleaner before giving up (§4.6, §8 invariant 8).
func (t *Transaction) prewriteRowWithLockClean(ctx context.Context, isPrimary bool, table string, row *RowMutation, primaryLockBytes []byte) error {
	attempt := func() (*ConflictLock, error) {
		if isPrimary {
			return t.coord.Client.PrewriteRow(ctx, table, row.Row, row.Columns(), t.startTs, primaryLockBytes, t.plan.secondaryLockBytesWithoutType, t.plan.primaryIndexInRow)
		}
		return t.coord.Client.PrewriteSecondaryRow(ctx, table, row.Row, row.Columns(), t.startTs, t.plan.secondaryLockBytesWithoutType)
	}

	conflict, err := attempt()
	if err != nil {
		return NewError(IO, err)
	}
	if conflict == nil {
		return nil
	}
	if conflict.Family != DataFamily {
		return NewError(Fatal, fmt.Errorf("prewrite conflict on non-data column %+v (family %v)", conflict.Column, conflict.Family))
	}

	if err := t.coord.Cleaner.TryToCleanLock(ctx, *conflict); err != nil {
		return err
	}
	t.coord.Stats.IncPrewriteRetry()
	RandomSleep(ctx)

	conflict2, err := attempt()
	if err != nil {
		return NewError(IO, err)
	}
	if conflict2 == nil {
		return nil
	}
	return NewErrorWithData(LockConflict, errors.New("prewrite conflict unresolved after lock clean"), *conflict2)
}
