package themis

import "sync/atomic"

// StatsSink is the pluggable counter API consumed by the coordinator (§2, §9). A
// single rollbackCount counter is mandated by the source; commitCount,
// prewriteRetryCount, and readCleanCount are added to match the teacher's practice
// of instrumenting every retry/recovery branch, not just the mandated one.
type StatsSink interface {
	IncRollback()
	IncCommit()
	IncPrewriteRetry()
	IncReadClean()
}

// InMemoryStats is the default StatsSink, safe for concurrent use since the cleaner
// and janitor may update it from outside a transaction's own goroutine.
type InMemoryStats struct {
	rollbackCount      atomic.Int64
	commitCount        atomic.Int64
	prewriteRetryCount atomic.Int64
	readCleanCount     atomic.Int64
}

// NewInMemoryStats returns a zeroed InMemoryStats.
func NewInMemoryStats() *InMemoryStats {
	return &InMemoryStats{}
}

func (s *InMemoryStats) IncRollback()      { s.rollbackCount.Add(1) }
func (s *InMemoryStats) IncCommit()        { s.commitCount.Add(1) }
func (s *InMemoryStats) IncPrewriteRetry() { s.prewriteRetryCount.Add(1) }
func (s *InMemoryStats) IncReadClean()     { s.readCleanCount.Add(1) }

func (s *InMemoryStats) RollbackCount() int64      { return s.rollbackCount.Load() }
func (s *InMemoryStats) CommitCount() int64        { return s.commitCount.Load() }
func (s *InMemoryStats) PrewriteRetryCount() int64 { return s.prewriteRetryCount.Load() }
func (s *InMemoryStats) ReadCleanCount() int64     { return s.readCleanCount.Load() }
