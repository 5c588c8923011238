package memento

import (
	"testing"
	"time"
)

func TestGetBriefingSeparatesOverdueLoops(t *testing.T) {
	m := testMementoWithDefaults(t)
	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)
	if _, err := m.store.CreateLoop(OpenLoop{ID: "overdue", User: "alice", Description: "call bob", Owner: OwnerSelf, OtherParty: "bob", DueDate: &past, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.store.CreateLoop(OpenLoop{ID: "upcoming", User: "alice", Description: "send doc", Owner: OwnerSelf, OtherParty: "bob", DueDate: &future, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	b, err := m.GetBriefing("alice", "bob", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.OverdueLoops) != 1 || b.OverdueLoops[0].ID != "overdue" {
		t.Errorf("expected 1 overdue loop, got %+v", b.OverdueLoops)
	}
	if len(b.OpenLoops) != 1 || b.OpenLoops[0].ID != "upcoming" {
		t.Errorf("expected 1 open loop, got %+v", b.OpenLoops)
	}
}

func TestGetBriefingQuickSkipsMemoriesAndEvents(t *testing.T) {
	m := testMementoWithDefaults(t)
	mem := Memory{
		ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive,
		Features: ExtractedFeatures{People: []string{"bob"}},
	}
	if err := m.store.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}
	b, err := m.GetBriefing("alice", "bob", true)
	if err != nil {
		t.Fatal(err)
	}
	if b.RecentMemories != nil {
		t.Errorf("expected quick briefing to skip recent memories, got %+v", b.RecentMemories)
	}
}

func TestGetBriefingReportsNoRelationship(t *testing.T) {
	m := testMementoWithDefaults(t)
	b, err := m.GetBriefing("alice", "nobody", false)
	if err != nil {
		t.Fatal(err)
	}
	if b.HasRelationship {
		t.Errorf("expected HasRelationship false for an unknown contact")
	}
}

func TestListLoopsFiltersByOwnerAndOverdue(t *testing.T) {
	m := testMementoWithDefaults(t)
	past := time.Now().Add(-48 * time.Hour)
	if _, err := m.store.CreateLoop(OpenLoop{ID: "l1", User: "alice", Owner: OwnerSelf, DueDate: &past, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.store.CreateLoop(OpenLoop{ID: "l2", User: "alice", Owner: OwnerThem, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	loops, err := m.ListLoops("alice", OwnerSelf, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(loops) != 1 || loops[0].ID != "l1" {
		t.Errorf("expected only self-owned loop, got %+v", loops)
	}

	overdue, err := m.ListLoops("alice", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 || overdue[0].ID != "l1" {
		t.Errorf("expected only overdue loop, got %+v", overdue)
	}
}

func TestCloseLoopIsIdempotent(t *testing.T) {
	m := testMementoWithDefaults(t)
	if _, err := m.store.CreateLoop(OpenLoop{ID: "l1", User: "alice", Owner: OwnerSelf, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	loop, err := m.CloseLoop("l1", "done")
	if err != nil {
		t.Fatal(err)
	}
	if loop.ClosedAt == nil {
		t.Fatalf("expected closed loop to have ClosedAt set")
	}
	again, err := m.CloseLoop("l1", "done again")
	if err != nil {
		t.Fatal(err)
	}
	if again.ClosedNote != loop.ClosedNote {
		t.Errorf("expected idempotent close to leave note unchanged, got %q", again.ClosedNote)
	}
}

func TestGetStatusCountsEachState(t *testing.T) {
	m := testMementoWithDefaults(t)
	if err := m.store.InsertMemory(Memory{ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive}); err != nil {
		t.Fatal(err)
	}
	if err := m.store.InsertMemory(Memory{ID: "m2", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateSuppressed}); err != nil {
		t.Fatal(err)
	}
	if err := m.store.InsertMemory(Memory{ID: "m3", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateArchived}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.store.CreateLoop(OpenLoop{ID: "l1", User: "alice", Owner: OwnerSelf, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	st, err := m.GetStatus("alice")
	if err != nil {
		t.Fatal(err)
	}
	if st.ActiveMemories != 1 || st.SuppressedMemories != 1 || st.ArchivedMemories != 1 {
		t.Errorf("unexpected memory counts: %+v", st)
	}
	if st.OpenLoops != 1 {
		t.Errorf("expected 1 open loop, got %d", st.OpenLoops)
	}
	if st.FingerprintReady {
		t.Errorf("expected fingerprint not ready with no enrolled samples")
	}
}
