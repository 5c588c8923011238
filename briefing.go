package memento

import "time"

// Briefing is a per-person summary surfaced by getBriefing (spec.md §6).
type Briefing struct {
	Person           string
	OpenLoops        []OpenLoop
	OverdueLoops     []OpenLoop
	UpcomingEvents   []TimelineEvent
	RecentMemories   []Memory
	Relationship     Relationship
	HasRelationship  bool
}

// GetBriefing assembles a person-scoped briefing. quick=true trims it to
// open loops and the relationship trend only, skipping the memory recall.
func (m *Memento) GetBriefing(user, person string, quick bool) (Briefing, error) {
	b := Briefing{Person: person}

	loops, err := m.store.OpenLoopsForUser(user, person)
	if err != nil {
		return Briefing{}, err
	}
	now := time.Now()
	for _, l := range loops {
		if l.IsOverdue(now) {
			b.OverdueLoops = append(b.OverdueLoops, l)
		} else {
			b.OpenLoops = append(b.OpenLoops, l)
		}
	}

	rel, err := m.store.GetRelationship(user, person)
	if err == nil {
		b.Relationship = rel
		b.HasRelationship = true
	} else if !IsKind(err, KindNotFound) {
		return Briefing{}, err
	}

	if quick {
		return b, nil
	}

	horizon := now.AddDate(0, 0, 14)
	events, err := m.store.EventsForUser(user, now, horizon, person)
	if err != nil {
		return Briefing{}, err
	}
	b.UpcomingEvents = events

	mems, err := m.store.FindMemories(MemoryFilter{User: user, Person: person, Limit: 5})
	if err != nil {
		return Briefing{}, err
	}
	b.RecentMemories = mems

	return b, nil
}

// ListLoops filters open loops by owner and/or person, annotating overdue
// status at read time (spec.md §6, §4.8 OpenLoop state machine).
func (m *Memento) ListLoops(user string, owner LoopOwner, person string, includeOverdueOnly bool) ([]OpenLoop, error) {
	loops, err := m.store.OpenLoopsForUser(user, person)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []OpenLoop
	for _, l := range loops {
		if owner != "" && l.Owner != owner {
			continue
		}
		if includeOverdueOnly && !l.IsOverdue(now) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// CloseLoop marks a loop resolved (idempotent, see store.CloseLoop).
func (m *Memento) CloseLoop(id, note string) (OpenLoop, error) {
	var loop OpenLoop
	var opErr error
	m.locks.withKey(memoryKey(id), func() {
		loop, opErr = m.store.CloseLoop(id, time.Now(), note)
	})
	return loop, opErr
}

// Status is the aggregate counters returned by getStatus (spec.md §6).
type Status struct {
	ActiveMemories    int
	SuppressedMemories int
	ArchivedMemories  int
	OpenLoops         int
	OverdueLoops      int
	FormedPatterns    int
	FingerprintReady  bool
	FingerprintSamples int
}

// GetStatus reports aggregate counters for a user.
func (m *Memento) GetStatus(user string) (Status, error) {
	var st Status

	active, err := m.store.FindMemories(MemoryFilter{User: user, ForgottenStates: []ForgottenState{StateActive}})
	if err != nil {
		return st, err
	}
	st.ActiveMemories = len(active)

	suppressed, err := m.store.FindMemories(MemoryFilter{User: user, ForgottenStates: []ForgottenState{StateSuppressed}})
	if err != nil {
		return st, err
	}
	st.SuppressedMemories = len(suppressed)

	archived, err := m.store.FindMemories(MemoryFilter{User: user, ForgottenStates: []ForgottenState{StateArchived}})
	if err != nil {
		return st, err
	}
	st.ArchivedMemories = len(archived)

	loops, err := m.store.OpenLoopsForUser(user, "")
	if err != nil {
		return st, err
	}
	st.OpenLoops = len(loops)
	now := time.Now()
	for _, l := range loops {
		if l.IsOverdue(now) {
			st.OverdueLoops++
		}
	}

	formed, err := m.store.PatternsForUser(user, PatternFormed)
	if err != nil {
		return st, err
	}
	st.FormedPatterns = len(formed)

	fp, err := m.store.GetFingerprint(user)
	if err == nil {
		st.FingerprintSamples = fp.SampleCount
		st.FingerprintReady = fp.IdentificationReady(m.config.FingerprintReadySamples)
	} else if !IsKind(err, KindNotFound) {
		return st, err
	}

	return st, nil
}
