package memento

import "context"

// ExportBundle is the portable snapshot of one user's memories plus their
// derived events and still-open derived loops (spec.md §4.4, §8
// export/import round trip).
type ExportBundle struct {
	User    string
	Memories []Memory
	Loops    []OpenLoop
	Events   []TimelineEvent
}

// ExportMemories snapshots every memory (regardless of forgotten state) for
// a user, along with its derived events and those of its derived loops
// that are still open; closed loops are not included.
func (m *Memento) ExportMemories(user string) (ExportBundle, error) {
	mems, err := m.store.FindMemories(MemoryFilter{
		User:            user,
		ForgottenStates: []ForgottenState{StateActive, StateSuppressed, StateArchived, StatePendingDelete},
	})
	if err != nil {
		return ExportBundle{}, err
	}

	bundle := ExportBundle{User: user, Memories: mems}
	for _, mem := range mems {
		loops, err := m.store.OpenLoopsForUser(user, "")
		if err == nil {
			for _, l := range loops {
				if l.SourceMemoryID == mem.ID {
					bundle.Loops = append(bundle.Loops, l)
				}
			}
		}
		events, err := m.store.EventsForUser(user, mem.CreatedAt.AddDate(-5, 0, 0), mem.CreatedAt.AddDate(5, 0, 0), "")
		if err == nil {
			for _, e := range events {
				if e.SourceMemoryID == mem.ID {
					bundle.Events = append(bundle.Events, e)
				}
			}
		}
	}
	return bundle, nil
}

// ImportMemories restores a previously exported bundle. When
// skipRederivation is true, memories/loops/events are inserted verbatim
// with no new extraction, salience scoring, or vector enqueue — the round
// trip spec.md §8 requires. When false, each memory's text is re-run
// through Store so features/salience/derived loops and events are fresh.
func (m *Memento) ImportMemories(ctx context.Context, bundle ExportBundle, skipRederivation bool) (int, error) {
	if !skipRederivation {
		var n int
		for _, mem := range bundle.Memories {
			if _, err := m.Store(ctx, bundle.User, mem.Text, StoreContext{}, false); err != nil {
				logf("export", "rederive import of memory failed: %v", err)
				continue
			}
			n++
		}
		return n, nil
	}

	var n int
	for _, mem := range bundle.Memories {
		if err := m.store.InsertMemory(mem); err != nil {
			logf("export", "import memory %s failed: %v", mem.ID, err)
			continue
		}
		n++
	}
	for _, l := range bundle.Loops {
		if _, err := m.store.CreateLoop(l); err != nil {
			logf("export", "import loop %s failed: %v", l.ID, err)
		}
	}
	for _, e := range bundle.Events {
		if err := m.store.InsertEvent(e); err != nil {
			logf("export", "import event %s failed: %v", e.ID, err)
		}
	}
	return n, nil
}
