package themis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PrimarySelector picks the primary column and partitions the remaining mutations
// into secondaries, generalizing §4.5 as an injectable seam so tests can pin
// non-default selection behavior (§9 "subclassable coordinator → composition").
type PrimarySelector interface {
	SelectPrimary(buf *MutationBuffer, preferred *ColumnCoordinate, tx *Transaction) (plan, error)
}

// PrewriteStrategy drives a single row's prewrite-with-lock-clean retry (§4.6),
// injectable so tests can force conflicts deterministically.
type PrewriteStrategy interface {
	PrewriteRow(ctx context.Context, tx *Transaction, isPrimary bool, table string, row *RowMutation, primaryLockBytes []byte) error
}

// Coordinator owns the shared, concurrency-safe collaborators (§5 "Shared
// resources") and constructs Transactions. A single Coordinator is meant to be
// reused across many transactions over the process lifetime.
type Coordinator struct {
	Client   RPCClient
	Oracle   TimestampOracle
	Cleaner  LockCleaner
	Registry WorkerRegistry
	Clock    WallClock
	Stats    StatsSink

	Selector PrimarySelector
	Prewrite PrewriteStrategy

	// ScanPrefetch is the concurrency limit of the scanner's TaskRunner (§4.12); 0 or
	// negative is treated as 1. The scanner always runs one background fetch loop
	// that reads ahead of the caller through a one-batch buffer; this setting does
	// not turn that prefetch off.
	ScanPrefetch int

	// RPCBudget bounds each collaborator RPC's total retry time (oracle/registry
	// calls), enforced via TimedOut alongside Retry's attempt cap. Defaults to 10s.
	RPCBudget time.Duration
}

// retryRPC wraps a collaborator RPC (oracle/registry call) with Retry's Fibonacci
// backoff and a TimedOut budget, so a transient dial error doesn't need its own
// bespoke retry loop at every call site.
func (c *Coordinator) retryRPC(ctx context.Context, name string, call func(ctx context.Context) error) error {
	start := time.Now()
	budget := c.RPCBudget
	if budget <= 0 {
		budget = 10 * time.Second
	}
	return Retry(ctx, func(ctx context.Context) error {
		if err := TimedOut(ctx, name, start, budget); err != nil {
			return err
		}
		return call(ctx)
	}, nil)
}

// NewCoordinator builds a Coordinator from its required collaborators, filling in
// default PrimarySelector/PrewriteStrategy/Clock/Stats when left unset.
func NewCoordinator(client RPCClient, oracle TimestampOracle, cleaner LockCleaner, registry WorkerRegistry) *Coordinator {
	return &Coordinator{
		Client:   client,
		Oracle:   oracle,
		Cleaner:  cleaner,
		Registry: registry,
		Clock:    SystemClock,
		Stats:    NewInMemoryStats(),
		Selector: defaultPrimarySelector{},
		Prewrite: defaultPrewriteStrategy{},
		ScanPrefetch: 2,
	}
}

// Transaction is the single-use, single-threaded state machine described by §3. A
// Transaction is obtained from Coordinator.Begin, mutated via Put/Delete/Get, and
// finalized by exactly one Commit call.
type Transaction struct {
	coord *Coordinator

	id            UUID
	startTs       uint64
	commitTs      uint64
	clientAddress []byte

	buf              *MutationBuffer
	preferredPrimary *ColumnCoordinate

	plan    plan
	planned bool

	began bool
	done  bool
}

// Begin allocates a fresh startTs from the oracle and registers this worker,
// returning a new single-use Transaction.
func (c *Coordinator) Begin(ctx context.Context) (*Transaction, error) {
	if err := c.retryRPC(ctx, "registerWorker", c.Registry.RegisterWorker); err != nil {
		return nil, NewError(IO, fmt.Errorf("register worker: %w", err))
	}
	var startTs uint64
	err := c.retryRPC(ctx, "getStartTs", func(ctx context.Context) error {
		ts, err := c.Oracle.GetStartTs(ctx)
		if err != nil {
			return err
		}
		startTs = ts
		return nil
	})
	if err != nil {
		return nil, NewError(IO, fmt.Errorf("get startTs: %w", err))
	}
	return &Transaction{
		coord:         c,
		id:            NewUUID(),
		startTs:       startTs,
		clientAddress: c.Registry.GetClientAddress(),
		buf:           NewMutationBuffer(),
		began:         true,
	}, nil
}

// StartTs returns the transaction's snapshot read timestamp.
func (t *Transaction) StartTs() uint64 { return t.startTs }

// ID returns the transaction's internal identifier, used only for logging/tracing.
func (t *Transaction) ID() UUID { return t.id }

// SetPreferredPrimary pins the column primary selection (§4.5, §9) should prefer,
// provided it is present in the buffer when Commit runs. Must be called before
// Commit.
func (t *Transaction) SetPreferredPrimary(cc ColumnCoordinate) {
	t.preferredPrimary = &cc
}

func (t *Transaction) checkUsable() error {
	if !t.began {
		return NewError(InvalidState, errors.New("transaction not begun"))
	}
	if t.done {
		return NewError(InvalidState, errors.New("transaction already finalized"))
	}
	return nil
}

// Put stages a write (§4.3). At least one column must be present.
func (t *Transaction) Put(table string, p Put) error {
	if err := t.checkUsable(); err != nil {
		return err
	}
	if len(p.Columns) == 0 {
		return NewError(InvalidRequest, errors.New("put requires at least one column"))
	}
	for _, c := range p.Columns {
		c.Kind = Put
		t.buf.Add(table, p.Row, c)
	}
	return nil
}

// Delete stages a delete or delete-column tombstone (§4.3). At least one column
// must be present; each entry's Kind selects Delete vs DeleteColumn.
func (t *Transaction) Delete(table string, d Delete) error {
	if err := t.checkUsable(); err != nil {
		return err
	}
	if len(d.Columns) == 0 {
		return NewError(InvalidRequest, errors.New("delete requires at least one column"))
	}
	for _, c := range d.Columns {
		if c.Kind != Delete && c.Kind != DeleteColumn {
			c.Kind = Delete
		}
		t.buf.Add(table, d.Row, c)
	}
	return nil
}

// Commit materializes the plan, prewrites, acquires commitTs, and commits (§4.4).
// A transaction with an empty buffer is a read-only no-op and returns success
// without contacting the oracle or cleaner.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.checkUsable(); err != nil {
		return err
	}
	defer func() { t.done = true }()

	if t.buf.Size() == 0 {
		return nil
	}

	wallTime := t.coord.Clock.Now()

	p, err := t.coord.Selector.SelectPrimary(t.buf, t.preferredPrimary, t)
	if err != nil {
		return err
	}
	p.wallTime = wallTime
	if err := p.finish(t.startTs, wallTime, t.clientAddress); err != nil {
		return err
	}
	t.plan = p
	t.planned = true

	primaryLock := constructPrimaryLock(p.primary, p.primaryKind, t.startTs, wallTime, t.clientAddress, p.secondaries, t.buf)
	primaryLockBytes, err := primaryLock.Serialize()
	if err != nil {
		return NewError(Fatal, fmt.Errorf("serialize primary lock: %w", err))
	}

	if err := t.coord.Prewrite.PrewriteRow(ctx, t, true, p.primaryTable, p.primaryRow, primaryLockBytes); err != nil {
		t.rollbackRow(ctx, p.primaryTable, p.primaryRow)
		return err
	}

	for k, sr := range p.secondaryRows {
		if err := t.coord.Prewrite.PrewriteRow(ctx, t, false, sr.Table, sr.Row, nil); err != nil {
			t.rollbackRow(ctx, p.primaryTable, p.primaryRow)
			t.rollbackSecondaryRows(ctx, k)
			return err
		}
	}

	var commitTs uint64
	err = t.coord.retryRPC(ctx, "getCommitTs", func(ctx context.Context) error {
		ts, err := t.coord.Oracle.GetCommitTs(ctx)
		if err != nil {
			return err
		}
		commitTs = ts
		return nil
	})
	if err != nil {
		return NewError(IO, fmt.Errorf("get commitTs: %w", err))
	}
	t.commitTs = commitTs

	if err := t.commitPrimary(ctx); err != nil {
		return err
	}
	t.coord.Stats.IncCommit()
	t.commitSecondaries(ctx)
	return nil
}

// defaultPrimarySelector implements §4.5's walk-the-buffer selection.
type defaultPrimarySelector struct{}

func (defaultPrimarySelector) SelectPrimary(buf *MutationBuffer, preferred *ColumnCoordinate, _ *Transaction) (plan, error) {
	return selectPrimary(buf, preferred)
}

// defaultPrewriteStrategy implements §4.6's prewrite-with-lock-clean retry.
type defaultPrewriteStrategy struct{}

func (defaultPrewriteStrategy) PrewriteRow(ctx context.Context, tx *Transaction, isPrimary bool, table string, row *RowMutation, primaryLockBytes []byte) error {
	return tx.prewriteRowWithLockClean(ctx, isPrimary, table, row, primaryLockBytes)
}
