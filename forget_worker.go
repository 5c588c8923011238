package memento

import (
	"context"
	"time"
)

// startForgetWorker runs a background goroutine that hard-deletes memories
// past their forgottenAt+hardDeleteAfterDays cutoff and drains the vector
// upsert retry queue. Same ticker/cancel shape as the teacher's
// startDecayWorker (decay_worker.go), generalized from a single decay pass
// into two independent sweep steps.
func (m *Memento) startForgetWorker(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelForget = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.runHardDeleteSweep()
				m.runVectorRetrySweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RunHardDeleteSweep triggers an out-of-band forget sweep, for operators
// who don't want to wait for the next tick (e.g. the CLI's gc subcommand).
func (m *Memento) RunHardDeleteSweep() {
	m.runHardDeleteSweep()
}

func (m *Memento) runHardDeleteSweep() {
	cutoff := time.Now().AddDate(0, 0, -m.config.HardDeleteAfterDays)
	pending, err := m.store.PendingDeleteMemories(cutoff)
	if err != nil {
		logf("forget_worker", "pending-delete scan failed: %v", err)
		return
	}
	var deleted int
	for _, mem := range pending {
		if err := m.store.HardDeleteMemory(mem.ID); err != nil {
			logf("forget_worker", "hard delete %s failed: %v", mem.ID, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		logf("forget_worker", "hard-deleted %d memories past retention", deleted)
	}
}

func (m *Memento) runVectorRetrySweep(ctx context.Context) {
	if m.embedder == nil || m.vectors == nil {
		return
	}
	pending, err := m.store.PendingVectorSyncMemories("", 100)
	if err != nil {
		logf("forget_worker", "pending-vector scan failed: %v", err)
		return
	}
	var synced int
	for _, mem := range pending {
		if !m.retry.ShouldAttempt(mem.ID) {
			continue
		}
		bctx, cancel := context.WithTimeout(ctx, msDuration(m.config.EmbedderTimeoutMs))
		vec, err := m.embedder.Embed(bctx, mem.Text, "RETRIEVAL_DOCUMENT")
		if err != nil {
			cancel()
			m.retry.RecordFailure(mem.ID)
			continue
		}
		err = m.vectors.Upsert(bctx, mem.ID, vec, VectorFilters{User: mem.User, Tier: mem.SecurityTier, ForgottenState: mem.ForgottenState})
		cancel()
		if err != nil {
			m.retry.RecordFailure(mem.ID)
			continue
		}
		m.retry.RecordSuccess(mem.ID)
		mem.PendingVectorSync = false
		if err := m.store.UpdateMemoryState(mem); err != nil {
			logf("forget_worker", "clear pending flag failed for %s: %v", mem.ID, err)
			continue
		}
		synced++
	}
	if synced > 0 {
		logf("forget_worker", "vector retry sweep synced %d memories", synced)
	}
}
