package themis

import (
	"context"
	log "log/slog"
)

// rollbackRow erases any LOCK entries and staged DATA entries at startTs for row's
// columns (§4.11). Idempotent: safe to call more than once for the same row.
func (t *Transaction) rollbackRow(ctx context.Context, table string, row *RowMutation) error {
	cols := make([]ColumnCoordinate, 0, row.Len())
	for _, c := range row.Columns() {
		cols = append(cols, ColumnCoordinate{Table: table, Row: row.Row, Family: c.Family, Qualifier: c.Qualifier})
	}
	err := t.coord.Cleaner.EraseLockAndData(ctx, table, row.Row, cols, t.startTs)
	t.coord.Stats.IncRollback()
	if err != nil {
		log.Warn("rollback row failed", "table", table, "row", row.Row, "err", err)
	}
	return err
}

// rollbackSecondaryRows erases secondaryRows[k..0] in that order (LIFO relative to
// prewrite order). Attempting index k itself is deliberate and safe: it is the row
// that just failed to prewrite, and erase is idempotent regardless (§9 open question).
func (t *Transaction) rollbackSecondaryRows(ctx context.Context, k int) {
	for i := k; i >= 0; i-- {
		sr := t.plan.secondaryRows[i]
		t.rollbackRow(ctx, sr.Table, sr.Row)
	}
}

// rollbackAll erases the primary row and every secondary row, LIFO, used when the
// primary commit discovers its lock was already cleaned out from under it (§4.8).
func (t *Transaction) rollbackAll(ctx context.Context) {
	t.rollbackRow(ctx, t.plan.primaryTable, t.plan.primaryRow)
	t.rollbackSecondaryRows(ctx, len(t.plan.secondaryRows)-1)
}
