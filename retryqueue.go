package memento

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// retryQueue reconciles memories whose vector upsert failed at write time
// (Memory.PendingVectorSync). The source of truth is always the
// pending_vector_sync column, drained by the forget worker's sweep on its
// ticker. When Redis is configured, Notify also pushes the memory ID onto
// a Redis list; nothing in this package reads that list.
type retryQueue struct {
	redis *redis.Client

	mu       sync.Mutex
	attempts map[string]int

	backoffInitial time.Duration
	backoffCap     time.Duration
}

const retryQueueKey = "memento:vector_retry"

func newRetryQueue(redisAddr string, backoffInitial, backoffCap time.Duration) *retryQueue {
	q := &retryQueue{
		attempts:       make(map[string]int),
		backoffInitial: backoffInitial,
		backoffCap:     backoffCap,
	}
	if redisAddr != "" {
		q.redis = redis.NewClient(&redis.Options{Addr: redisAddr})
	}
	return q
}

// Notify pushes a low-latency hint that memoryID needs a vector retry.
// Safe to call even when Redis is disabled.
func (q *retryQueue) Notify(ctx context.Context, memoryID string) {
	if q.redis == nil {
		return
	}
	if err := q.redis.LPush(ctx, retryQueueKey, memoryID).Err(); err != nil {
		logf("retryqueue", "redis notify failed, falling back to poll-only: %v", err)
	}
}

// ShouldAttempt applies exponential backoff with jitter so a persistently
// failing provider doesn't get hammered every sweep tick.
func (q *retryQueue) ShouldAttempt(memoryID string) bool {
	q.mu.Lock()
	n := q.attempts[memoryID]
	q.mu.Unlock()

	if n == 0 {
		return true
	}
	backoff := q.backoffInitial * time.Duration(1<<uint(minInt(n, 10)))
	if backoff > q.backoffCap {
		backoff = q.backoffCap
	}
	// jitter spreads retries for memories that failed in the same sweep
	jittered := backoff + time.Duration(rand.Int63n(int64(backoff/4+1)))
	return jittered <= q.backoffCap
}

func (q *retryQueue) RecordFailure(memoryID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.attempts[memoryID]++
}

func (q *retryQueue) RecordSuccess(memoryID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.attempts, memoryID)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
