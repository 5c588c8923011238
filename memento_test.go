package memento

import (
	"context"
	"path/filepath"
	"testing"
)

func TestInitAndClose(t *testing.T) {
	dir := t.TempDir()
	m, err := Init(Config{DBPath: filepath.Join(dir, "memento.db")})
	if err != nil {
		t.Fatal(err)
	}
	if m.extractor == nil {
		t.Errorf("expected heuristic extractor fallback when none configured")
	}
	if err := m.Close(); err != nil {
		t.Errorf("expected clean close, got %v", err)
	}
}

func TestStoreThenRecallEndToEnd(t *testing.T) {
	dir := t.TempDir()
	m, err := Init(Config{DBPath: filepath.Join(dir, "memento.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()
	result, err := m.Store(ctx, "alice", "Lunch with Bob tomorrow, he promised to send over the proposal", StoreContext{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Memory.ID == "" {
		t.Fatal("expected a stored memory with an ID")
	}
	if len(result.LoopsCreated) != 1 {
		t.Errorf("expected 1 loop created from the commitment, got %d", len(result.LoopsCreated))
	}

	recalled, err := m.Recall(ctx, "alice", RecallQuery{People: []string{"bob"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(recalled) != 1 || recalled[0].Memory.ID != result.Memory.ID {
		t.Errorf("expected to recall the stored memory by person filter, got %+v", recalled)
	}
}

func TestStoreCommitmentCapturesOtherPartyAndDueDate(t *testing.T) {
	dir := t.TempDir()
	m, err := Init(Config{DBPath: filepath.Join(dir, "memento.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()
	result, err := m.Store(ctx, "alice", "I owe Dan the Q2 draft by Friday", StoreContext{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.LoopsCreated) != 1 {
		t.Fatalf("expected 1 loop created from the commitment, got %d", len(result.LoopsCreated))
	}
	loop := result.LoopsCreated[0]
	if loop.OtherParty != "Dan" {
		t.Errorf("expected otherParty=Dan, got %q", loop.OtherParty)
	}
	if loop.DueDate == nil {
		t.Fatalf("expected a resolved due date on the loop")
	}
	if loop.DueDate.Weekday().String() != "Friday" {
		t.Errorf("expected due date on a Friday, got %s", loop.DueDate.Weekday())
	}
}

func TestStoreVaultTierSkipsVectorPending(t *testing.T) {
	dir := t.TempDir()
	m, err := Init(Config{DBPath: filepath.Join(dir, "memento.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()
	result, err := m.Store(ctx, "alice", "My bank PIN is 4829, don't share it", StoreContext{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Memory.SecurityTier != TierVault {
		t.Errorf("expected vault tier for PIN-bearing text, got %s", result.Memory.SecurityTier)
	}
	if result.Memory.PendingVectorSync {
		t.Errorf("expected vault-tier memories to never queue for vector sync")
	}
}

func TestForgetThenRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := Init(Config{DBPath: filepath.Join(dir, "memento.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()
	result, err := m.Store(ctx, "alice", "Quiet evening at home", StoreContext{}, false)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Forget(ctx, result.Memory.ID, ForgetSuppress, "user request"); err != nil {
		t.Fatal(err)
	}
	recalled, err := m.Recall(ctx, "alice", RecallQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recalled) != 0 {
		t.Errorf("expected suppressed memory excluded from default recall, got %d", len(recalled))
	}

	if _, err := m.Restore(ctx, result.Memory.ID); err != nil {
		t.Fatal(err)
	}
	recalled, err = m.Recall(ctx, "alice", RecallQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recalled) != 1 {
		t.Errorf("expected restored memory back in default recall, got %d", len(recalled))
	}
}
