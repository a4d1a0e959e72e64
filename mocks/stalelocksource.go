package mocks

import (
	"context"
	"time"

	"github.com/paulcoming/themis"
)

// StaleLockSource is a configurable themis.StaleLockSource for janitor tests.
type StaleLockSource struct {
	Locks []themis.ConflictLock
}

// NewStaleLockSource returns a StaleLockSource that always reports locks.
func NewStaleLockSource(locks ...themis.ConflictLock) *StaleLockSource {
	return &StaleLockSource{Locks: locks}
}

func (s *StaleLockSource) ListStaleLocks(ctx context.Context, olderThan time.Duration) ([]themis.ConflictLock, error) {
	return s.Locks, nil
}
