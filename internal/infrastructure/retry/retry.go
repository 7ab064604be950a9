package retry

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy retries an operation with exponential backoff up to MaxAttempts.
type Policy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Do runs op until it succeeds, returns a permanent error, or the attempt
// budget is exhausted. Wrap an error with backoff.Permanent to stop early.
func (p Policy) Do(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, p.MaxAttempts-1), ctx))
}

// Permanent marks err as non-retryable for Policy.Do.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Budget counts consecutive failures of one kind and reports when a limit
// is crossed. The monitoring loop uses it for auth expiry: a few 401s in a
// row are tolerated silently, then credentials are cleared.
type Budget struct {
	mu    sync.Mutex
	limit int
	count int
}

func NewBudget(limit int) *Budget {
	if limit < 1 {
		limit = 1
	}
	return &Budget{limit: limit}
}

// Observe records one failure and reports true when the consecutive-failure
// limit has been reached.
func (b *Budget) Observe() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	return b.count >= b.limit
}

// Reset clears the consecutive counter after a success.
func (b *Budget) Reset() {
	b.mu.Lock()
	b.count = 0
	b.mu.Unlock()
}

// Count returns the current consecutive-failure count.
func (b *Budget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
