package themis

import (
	"context"
	log "log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// StaleLockSource discovers primary locks older than a threshold age, feeding the
// janitor's periodic sweep (§4.13). It is deliberately separate from LockCleaner:
// discovering candidates is a scan-shaped concern, resolving a candidate is the
// cleaner's policy, and the spec keeps cleaner policy out of scope.
type StaleLockSource interface {
	ListStaleLocks(ctx context.Context, olderThan time.Duration) ([]ConflictLock, error)
}

// Janitor periodically sweeps primary locks left behind by a crashed client,
// generalizing the per-commit onIdle hook into a standing background scheduler so
// abandoned locks are reclaimed even when no new transaction starts (§4.13). It
// never decides how to resolve a lock, only when to ask the cleaner to try.
type Janitor struct {
	Cleaner     LockCleaner
	Source      StaleLockSource
	Clock       WallClock
	Registry    WorkerRegistry
	Stats       StatsSink
	MaxAge      time.Duration
	Concurrency int

	cron *cron.Cron
}

// NewJanitor builds a Janitor that treats any primary lock older than maxAge as a
// sweep candidate.
func NewJanitor(cleaner LockCleaner, source StaleLockSource, clock WallClock, registry WorkerRegistry, stats StatsSink, maxAge time.Duration) *Janitor {
	if clock == nil {
		clock = SystemClock
	}
	return &Janitor{
		Cleaner:     cleaner,
		Source:      source,
		Clock:       clock,
		Registry:    registry,
		Stats:       stats,
		MaxAge:      maxAge,
		Concurrency: 8,
	}
}

// Start schedules periodic sweeps using a standard cron expression (e.g. "@every
// 30s"). The janitor runs until Stop is called.
func (j *Janitor) Start(schedule string) error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(schedule, j.sweepOnce); err != nil {
		return NewError(InvalidRequest, err)
	}
	j.cron.Start()
	return nil
}

// Stop halts future sweeps and waits for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweepOnce() {
	ctx := context.Background()
	locks, err := j.Source.ListStaleLocks(ctx, j.MaxAge)
	if err != nil {
		log.Warn("janitor: list stale locks failed", "err", err)
		return
	}
	if len(locks) == 0 {
		return
	}

	runner := NewTaskRunner(ctx, j.Concurrency)
	for _, l := range locks {
		lock := l
		runner.Go(func() error {
			if !j.shouldSweep(runner.GetContext(), lock) {
				return nil
			}
			if err := j.Cleaner.TryToCleanLock(runner.GetContext(), lock); err != nil {
				log.Warn("janitor: clean lock failed", "column", lock.Column, "err", err)
			}
			return nil
		})
	}
	_ = runner.Wait()
}

// shouldSweep judges whether lock is plausibly abandoned: its wall-clock age must
// exceed MaxAge, and its owner must not be alive per the worker registry (§5
// Liveness). A registry error is treated as "unknown" and does not block the sweep,
// since ListStaleLocks already applied the same age threshold server-side and a
// wedged registry must not let locks pile up forever.
func (j *Janitor) shouldSweep(ctx context.Context, lock ConflictLock) bool {
	if j.Clock.Now().Sub(lock.WallTime) < j.MaxAge {
		return false
	}
	if j.Registry == nil {
		return true
	}
	alive, err := j.Registry.IsAlive(ctx, lock.ClientID)
	if err != nil {
		log.Warn("janitor: liveness check failed, sweeping anyway", "column", lock.Column, "err", err)
		return true
	}
	if alive {
		log.Debug("janitor: skipping lock held by live owner", "column", lock.Column)
		return false
	}
	return true
}
