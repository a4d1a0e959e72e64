package themis

import (
	"context"
	"errors"
	log "log/slog"
)

// commitPrimary issues the primary row's atomic commit, the transaction's
// linearization point (§4.8). A LockCleaned failure means a peer cleaner has
// already decided to roll this transaction back, so the coordinator finishes that
// rollback before propagating. Any other failure is ambiguous and left untouched.
func (t *Transaction) commitPrimary(ctx context.Context) error {
	err := t.coord.Client.CommitRow(ctx, t.plan.primaryTable, t.plan.primaryRow.Row, t.plan.primaryRow.WithoutValues(), t.startTs, t.commitTs, t.plan.primaryIndexInRow)
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) && e.Code == LockCleaned {
		t.rollbackAll(ctx)
		return e
	}
	return err
}

// commitSecondaries best-effort commits every secondary row in plan order. Failures
// are logged and swallowed: once the primary is committed, any reader encountering
// a leftover secondary lock rolls it forward via the cleaner (§4.9).
func (t *Transaction) commitSecondaries(ctx context.Context) {
	for _, sr := range t.plan.secondaryRows {
		if err := t.coord.Client.CommitSecondaryRow(ctx, sr.Table, sr.Row.Row, sr.Row.WithoutValues(), t.startTs, t.commitTs); err != nil {
			log.Warn("secondary commit failed, leaving for lock cleaner", "table", sr.Table, "row", sr.Row.Row, "err", err)
		}
	}
}
