package memento

import (
	"testing"
	"time"
)

func TestRunHardDeleteSweepRemovesPastRetention(t *testing.T) {
	m := testMementoWithDefaults(t)
	past := time.Now().AddDate(0, 0, -m.config.HardDeleteAfterDays-1)
	mem := Memory{
		ID: "m1", User: "alice", CreatedAt: past, SecurityTier: TierGeneral,
		ForgottenState: StatePendingDelete, ForgottenAt: &past,
	}
	if err := m.store.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}

	m.RunHardDeleteSweep()

	_, err := m.store.GetMemory("m1")
	if !IsKind(err, KindNotFound) {
		t.Errorf("expected memory hard-deleted after sweep, got %v", err)
	}
}

func TestRunHardDeleteSweepSkipsRecentPendingDeletes(t *testing.T) {
	m := testMementoWithDefaults(t)
	recent := time.Now().Add(-1 * time.Hour)
	mem := Memory{
		ID: "m1", User: "alice", CreatedAt: recent, SecurityTier: TierGeneral,
		ForgottenState: StatePendingDelete, ForgottenAt: &recent,
	}
	if err := m.store.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}

	m.RunHardDeleteSweep()

	_, err := m.store.GetMemory("m1")
	if err != nil {
		t.Errorf("expected recent pending-delete memory to survive the sweep, got %v", err)
	}
}
