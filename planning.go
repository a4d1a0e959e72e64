package themis

import (
	"errors"
	"time"
)

// secondaryRowEntry pairs a secondary row with the table it belongs to; the primary
// row is never included (§4.5).
type secondaryRowEntry struct {
	Table string
	Row   *RowMutation
}

// plan is the materialized output of primary selection (§4.5): the chosen primary,
// every secondary column and row, and the precomputed secondary-lock payload shared
// by every secondary prewrite (§8 invariant 10).
type plan struct {
	primary           ColumnCoordinate
	primaryKind       ColumnKind
	primaryTable      string
	primaryRow        *RowMutation
	primaryIndexInRow int

	secondaries   []ColumnCoordinate
	secondaryRows []secondaryRowEntry

	secondaryLockBytesWithoutType []byte

	wallTime time.Time
}

// selectPrimary walks the buffer in enumeration order, adopting the first column
// that matches preferred (or the first column seen at all, if preferred is nil),
// and partitioning everything else into secondaries (§4.5). A preferred column that
// is not in the buffer leaves no primary, and selection fails with InvalidState.
func selectPrimary(buf *MutationBuffer, preferred *ColumnCoordinate) (plan, error) {
	var p plan
	found := false

	buf.Enumerate(func(table string, row *RowMutation) {
		rowHasPrimary := false
		cols := row.Columns()
		for i, c := range cols {
			cc := ColumnCoordinate{Table: table, Row: row.Row, Family: c.Family, Qualifier: c.Qualifier}
			if !found && (preferred == nil || cc == *preferred) {
				p.primary = cc
				p.primaryKind = c.Kind
				p.primaryTable = table
				p.primaryRow = row
				p.primaryIndexInRow = i
				found = true
				rowHasPrimary = true
				continue
			}
			p.secondaries = append(p.secondaries, cc)
		}
		if !rowHasPrimary {
			p.secondaryRows = append(p.secondaryRows, secondaryRowEntry{Table: table, Row: row})
		}
	})

	if !found {
		return plan{}, NewError(InvalidState, errors.New("can not find primary column"))
	}
	return p, nil
}

// finish precomputes secondaryLockBytesWithoutType once planning has located the
// primary (§4.5). For a single-column transaction (primary row has at most one
// column and no secondary rows), no secondary lock is needed and the field stays nil.
func (p *plan) finish(startTs uint64, wallTime time.Time, clientAddress []byte) error {
	p.wallTime = wallTime
	singleColumn := p.primaryRow.Len() <= 1 && len(p.secondaryRows) == 0
	lock, ok := constructSecondaryLock(p.primary, startTs, wallTime, clientAddress, singleColumn)
	if !ok {
		p.secondaryLockBytesWithoutType = nil
		return nil
	}
	bytes, err := lock.SerializeWithoutKind()
	if err != nil {
		return NewError(Fatal, err)
	}
	p.secondaryLockBytesWithoutType = bytes
	return nil
}
