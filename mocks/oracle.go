package mocks

import (
	"context"
	"sync/atomic"
)

// Oracle is an in-memory TimestampOracle allocating a strictly increasing counter.
type Oracle struct {
	counter atomic.Uint64
}

// NewOracle returns a TimestampOracle starting just above 0, so the first allocated
// timestamp is 1.
func NewOracle() *Oracle {
	return &Oracle{}
}

func (o *Oracle) GetStartTs(ctx context.Context) (uint64, error) {
	return o.counter.Add(1), nil
}

func (o *Oracle) GetCommitTs(ctx context.Context) (uint64, error) {
	return o.counter.Add(1), nil
}
