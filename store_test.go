package memento

import (
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetMemory(t *testing.T) {
	s := testStore(t)

	mem := Memory{
		ID:             "m1",
		User:           "alice",
		CreatedAt:      time.Now(),
		Text:           "lunch with bob at noon",
		Salience:       70,
		SecurityTier:   TierGeneral,
		ForgottenState: StateActive,
		Features:       ExtractedFeatures{People: []string{"bob"}},
	}
	if err := s.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMemory("m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != mem.Text || got.User != mem.User {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.Features.People) != 1 || got.Features.People[0] != "bob" {
		t.Errorf("features not round-tripped: %+v", got.Features)
	}
}

func TestInsertMemoryDuplicateIDConflict(t *testing.T) {
	s := testStore(t)
	mem := Memory{ID: "dup", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive}
	if err := s.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}
	err := s.InsertMemory(mem)
	if !IsKind(err, KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestGetMemoryNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetMemory("missing")
	if !IsKind(err, KindNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestFindMemoriesDefaultsToActive(t *testing.T) {
	s := testStore(t)
	active := Memory{ID: "active", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive}
	suppressed := Memory{ID: "suppressed", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateSuppressed}
	if err := s.InsertMemory(active); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertMemory(suppressed); err != nil {
		t.Fatal(err)
	}

	mems, err := s.FindMemories(MemoryFilter{User: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 || mems[0].ID != "active" {
		t.Errorf("expected only the active memory, got %+v", mems)
	}
}

func TestUpdateMemoryState(t *testing.T) {
	s := testStore(t)
	mem := Memory{ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive}
	if err := s.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}
	mem.ForgottenState = StateSuppressed
	mem.ForgottenReason = "user request"
	if err := s.UpdateMemoryState(mem); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetMemory("m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ForgottenState != StateSuppressed || got.ForgottenReason != "user request" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestPendingDeleteMemories(t *testing.T) {
	s := testStore(t)
	past := time.Now().Add(-48 * time.Hour)
	mem := Memory{
		ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral,
		ForgottenState: StatePendingDelete, ForgottenAt: &past,
	}
	if err := s.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}
	pending, err := s.PendingDeleteMemories(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("expected 1 pending-delete memory, got %d", len(pending))
	}
}

func TestFindMemoriesFiltersByPersonViaJoinTable(t *testing.T) {
	s := testStore(t)
	withBob := Memory{
		ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral,
		ForgottenState: StateActive, Features: ExtractedFeatures{People: []string{"Bob"}},
	}
	withCarol := Memory{
		ID: "m2", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral,
		ForgottenState: StateActive, Features: ExtractedFeatures{People: []string{"Carol"}},
	}
	if err := s.InsertMemory(withBob); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertMemory(withCarol); err != nil {
		t.Fatal(err)
	}

	mems, err := s.FindMemories(MemoryFilter{User: "alice", Person: "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 || mems[0].ID != "m1" {
		t.Errorf("expected only the Bob memory, got %+v", mems)
	}

	// matches case-insensitively, same as the LIKE scan it replaced
	mems, err = s.FindMemories(MemoryFilter{User: "alice", Person: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 || mems[0].ID != "m1" {
		t.Errorf("expected case-insensitive person match, got %+v", mems)
	}
}

func TestHardDeleteMemoryCascadesMemoryPeople(t *testing.T) {
	s := testStore(t)
	mem := Memory{
		ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral,
		ForgottenState: StateActive, Features: ExtractedFeatures{People: []string{"Bob"}},
	}
	if err := s.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}
	if err := s.HardDeleteMemory("m1"); err != nil {
		t.Fatal(err)
	}
	mems, err := s.FindMemories(MemoryFilter{User: "alice", Person: "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 0 {
		t.Errorf("expected memory_people row to cascade-delete, got %+v", mems)
	}
}

func TestHardDeleteMemory(t *testing.T) {
	s := testStore(t)
	mem := Memory{ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive}
	if err := s.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}
	if err := s.HardDeleteMemory("m1"); err != nil {
		t.Fatal(err)
	}
	_, err := s.GetMemory("m1")
	if !IsKind(err, KindNotFound) {
		t.Errorf("expected not-found after hard delete, got %v", err)
	}
}
