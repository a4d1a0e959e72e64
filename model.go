package themis

// ColumnCoordinate identifies a single cell's address, independent of timestamp.
// Compared by value; safe to use as a map key.
type ColumnCoordinate struct {
	Table     string
	Row       string
	Family    string
	Qualifier string
}

// ColumnKind enumerates the mutation kinds a transaction may buffer for a column.
type ColumnKind int

const (
	// Put stages a value write.
	Put ColumnKind = iota
	// Delete stages a tombstone for the (family,qualifier) at the transaction's startTs.
	Delete
	// DeleteColumn stages removal of every version of the (family,qualifier).
	DeleteColumn
)

func (k ColumnKind) String() string {
	switch k {
	case Put:
		return "PUT"
	case Delete:
		return "DELETE"
	case DeleteColumn:
		return "DELETE_COLUMN"
	default:
		return "UNKNOWN"
	}
}

// ColumnMutation is a single staged write or delete within a RowMutation. Delete
// variants carry no value.
type ColumnMutation struct {
	Family    string
	Qualifier string
	Kind      ColumnKind
	Value     []byte
}

// RowMutation is the ordered set of ColumnMutation entries staged for one (table,row).
// Column order reflects insertion order of first-seen columns; a later mutation to an
// already-present column overwrites its payload in place, without moving its position.
type RowMutation struct {
	Table   string
	Row     string
	columns []ColumnMutation
	index   map[string]int // family\x00qualifier -> index into columns
}

// NewRowMutation returns an empty RowMutation for the given table and row.
func NewRowMutation(table, row string) *RowMutation {
	return &RowMutation{
		Table: table,
		Row:   row,
		index: make(map[string]int),
	}
}

func columnKey(family, qualifier string) string {
	return family + "\x00" + qualifier
}

// Add inserts or overwrites the mutation for (family,qualifier), preserving original
// insertion order for a column already present.
func (r *RowMutation) Add(m ColumnMutation) {
	key := columnKey(m.Family, m.Qualifier)
	if i, ok := r.index[key]; ok {
		r.columns[i] = m
		return
	}
	r.index[key] = len(r.columns)
	r.columns = append(r.columns, m)
}

// Len returns the number of distinct columns staged in this row.
func (r *RowMutation) Len() int {
	return len(r.columns)
}

// At returns the ColumnMutation at position i, in insertion order.
func (r *RowMutation) At(i int) ColumnMutation {
	return r.columns[i]
}

// Columns returns the row's mutations in insertion order. Callers must not mutate
// the returned slice's elements' identity; it is the RowMutation's own backing array.
func (r *RowMutation) Columns() []ColumnMutation {
	return r.columns
}

// KindOf returns the kind staged for (family,qualifier) and whether it is present.
func (r *RowMutation) KindOf(family, qualifier string) (ColumnKind, bool) {
	i, ok := r.index[columnKey(family, qualifier)]
	if !ok {
		return 0, false
	}
	return r.columns[i].Kind, true
}

// WithoutValues returns a copy of the row's mutations with every Value cleared, used
// to build the commit RPC payload where only family/qualifier/kind matter (§4.8/§4.9).
func (r *RowMutation) WithoutValues() []ColumnMutation {
	out := make([]ColumnMutation, len(r.columns))
	for i, c := range r.columns {
		c.Value = nil
		out[i] = c
	}
	return out
}

// MutationBuffer is the per-transaction, deduplicating, last-writer-wins buffer of
// staged writes and deletes, grouped by (table, row, column). Not safe for concurrent
// use; a transaction is single-threaded (§5).
type MutationBuffer struct {
	tables map[string]map[string]*RowMutation
	rowSeq []tableRow // preserves first-seen (table,row) order for enumeration
}

type tableRow struct {
	table string
	row   string
}

// NewMutationBuffer returns an empty buffer.
func NewMutationBuffer() *MutationBuffer {
	return &MutationBuffer{tables: make(map[string]map[string]*RowMutation)}
}

// Add inserts or replaces the mutation for (table, row, family, qualifier).
func (b *MutationBuffer) Add(table, row string, m ColumnMutation) {
	rows, ok := b.tables[table]
	if !ok {
		rows = make(map[string]*RowMutation)
		b.tables[table] = rows
	}
	rm, ok := rows[row]
	if !ok {
		rm = NewRowMutation(table, row)
		rows[row] = rm
		b.rowSeq = append(b.rowSeq, tableRow{table, row})
	}
	rm.Add(m)
}

// Size returns the number of distinct (table,row,column) entries across the buffer.
func (b *MutationBuffer) Size() int {
	n := 0
	for _, rows := range b.tables {
		for _, rm := range rows {
			n += rm.Len()
		}
	}
	return n
}

// Enumerate iterates (table, row, *RowMutation) in first-seen insertion order.
func (b *MutationBuffer) Enumerate(fn func(table string, row *RowMutation)) {
	for _, tr := range b.rowSeq {
		fn(tr.table, b.tables[tr.table][tr.row])
	}
}

// KindOf looks up the mutation kind buffered for a column coordinate.
func (b *MutationBuffer) KindOf(cc ColumnCoordinate) (ColumnKind, bool) {
	rows, ok := b.tables[cc.Table]
	if !ok {
		return 0, false
	}
	rm, ok := rows[cc.Row]
	if !ok {
		return 0, false
	}
	return rm.KindOf(cc.Family, cc.Qualifier)
}
