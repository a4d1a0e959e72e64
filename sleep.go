package themis

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
)

// jitterRNG is the random source used for sleep jitter. Seeded once at init time.
var jitterRNG = rand.New(rand.NewSource(time.Now().UnixNano()))

// SetJitterRNG overrides the RNG used for sleep jitter. Useful for deterministic tests.
func SetJitterRNG(r *rand.Rand) {
	if r != nil {
		jitterRNG = r
	}
}

// TimedOut returns an error if the context is done or if the elapsed time since
// startTime exceeds maxTime. Used by Coordinator.retryRPC to bound oracle/registry
// calls by RPCBudget.
func TimedOut(ctx context.Context, name string, startTime time.Time, maxTime time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if time.Since(startTime) > maxTime {
		return fmt.Errorf("%s timed out(maxTime=%v)", name, maxTime)
	}
	return nil
}

// RandomSleepWithUnit sleeps for a random multiple (1..4) of the provided unit
// duration. Used to jitter conflicting transactions before a prewrite/read retry.
func RandomSleepWithUnit(ctx context.Context, unit time.Duration) {
	sleepTime := time.Duration(jitterRNG.Intn(5))
	if sleepTime == 0 {
		sleepTime = 1
	}
	st := sleepTime * unit
	log.Debug("sleep jitter", "multiplier", sleepTime, "unit", unit, "duration", st)
	Sleep(ctx, st)
}

// RandomSleep sleeps for a random duration between 20ms and 80ms to stagger retries.
func RandomSleep(ctx context.Context) {
	RandomSleepWithUnit(ctx, 20*time.Millisecond)
}

// Sleep blocks for the specified duration or until the context is done, whichever happens first.
func Sleep(ctx context.Context, sleepTime time.Duration) {
	if sleepTime <= 0 {
		return
	}
	t, cancel := context.WithTimeout(ctx, sleepTime)
	defer cancel()
	<-t.Done()
}

// Retry executes task with Fibonacci backoff, retrying up to 5 times after the
// first attempt (6 attempts in all), consulting
// ShouldRetry after each failure so a non-transient error (context cancellation,
// InvalidRequest/InvalidState/Fatal) aborts immediately instead of burning through
// the backoff schedule. This is reserved for collaborator RPC transience
// (oracle/registry dial errors); it must never be used for the protocol-level
// at-most-one-retry invariants of §4.2/§4.6, which are hand-coded to stay exactly
// bounded.
func Retry(ctx context.Context, task func(ctx context.Context) error, gaveUpTask func(ctx context.Context)) error {
	b := retry.NewFibonacci(1 * time.Second)
	wrapped := func(ctx context.Context) error {
		err := task(ctx)
		if err == nil {
			return nil
		}
		if ShouldRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	}
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), wrapped); err != nil {
		log.Warn(err.Error() + ", gave up")
		if gaveUpTask != nil {
			gaveUpTask(ctx)
		}
		return err
	}
	return nil
}

// ShouldRetry reports whether err is transient and worth retrying.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e Error
	if errors.As(err, &e) && (e.Code == InvalidRequest || e.Code == InvalidState || e.Code == Fatal) {
		return false
	}
	return true
}
