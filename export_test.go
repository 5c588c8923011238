package memento

import (
	"context"
	"testing"
	"time"
)

func TestExportMemoriesIncludesAllForgottenStates(t *testing.T) {
	m := testMementoWithDefaults(t)
	active := Memory{ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive}
	archived := Memory{ID: "m2", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateArchived}
	if err := m.store.InsertMemory(active); err != nil {
		t.Fatal(err)
	}
	if err := m.store.InsertMemory(archived); err != nil {
		t.Fatal(err)
	}

	bundle, err := m.ExportMemories("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(bundle.Memories) != 2 {
		t.Errorf("expected 2 memories exported regardless of state, got %d", len(bundle.Memories))
	}
}

func TestExportMemoriesIncludesDerivedLoopsAndEvents(t *testing.T) {
	m := testMementoWithDefaults(t)
	mem := Memory{ID: "m1", User: "alice", CreatedAt: time.Now(), SecurityTier: TierGeneral, ForgottenState: StateActive}
	if err := m.store.InsertMemory(mem); err != nil {
		t.Fatal(err)
	}
	if _, err := m.store.CreateLoop(OpenLoop{ID: "l1", User: "alice", Description: "send contract", Owner: OwnerSelf, SourceMemoryID: "m1", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := m.store.InsertEvent(TimelineEvent{ID: "e1", User: "alice", Description: "dentist", EventDate: time.Now(), SourceMemoryID: "m1"}); err != nil {
		t.Fatal(err)
	}

	bundle, err := m.ExportMemories("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(bundle.Loops) != 1 {
		t.Errorf("expected 1 derived loop, got %d", len(bundle.Loops))
	}
	if len(bundle.Events) != 1 {
		t.Errorf("expected 1 derived event, got %d", len(bundle.Events))
	}
}

func TestImportMemoriesSkipRederivationPreservesVerbatim(t *testing.T) {
	m := testMementoWithDefaults(t)
	bundle := ExportBundle{
		User: "alice",
		Memories: []Memory{
			{ID: "m1", User: "alice", CreatedAt: time.Now(), Text: "original text", Salience: 42, SecurityTier: TierVault, ForgottenState: StateActive},
		},
	}

	n, err := m.ImportMemories(context.Background(), bundle, true)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 memory imported, got %d", n)
	}
	got, err := m.store.GetMemory("m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Salience != 42 || got.SecurityTier != TierVault {
		t.Errorf("expected verbatim import to preserve salience and tier, got %+v", got)
	}
}

func TestImportMemoriesRederivesWhenRequested(t *testing.T) {
	m := testMementoWithDefaults(t)
	bundle := ExportBundle{
		User: "alice",
		Memories: []Memory{
			{ID: "m1", User: "alice", CreatedAt: time.Now(), Text: "lunch with bob at noon"},
		},
	}
	n, err := m.ImportMemories(context.Background(), bundle, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 memory rederived, got %d", n)
	}
	mems, err := m.store.FindMemories(MemoryFilter{User: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 {
		t.Fatalf("expected 1 stored memory, got %d", len(mems))
	}
	if mems[0].ID == "m1" {
		t.Errorf("expected rederivation to assign a fresh ID, not reuse m1")
	}
}
