package memento

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ForgetMode selects how forget() removes a memory from view.
type ForgetMode string

const (
	ForgetSuppress ForgetMode = "suppress"
	ForgetArchive  ForgetMode = "archive"
	ForgetDelete   ForgetMode = "delete"
)

// StoreResult is the outcome of storing one observation.
type StoreResult struct {
	Memory        Memory
	LoopsCreated  []OpenLoop
	EventsCreated []TimelineEvent
}

var vaultKeywords = []string{
	"pin is", "pin:", "password", "ssn", "social security", "routing number",
	"account number", "brokerage", "private key", "seed phrase", "cvv",
}

func classifyTier(text string) Tier {
	lower := strings.ToLower(text)
	for _, kw := range vaultKeywords {
		if strings.Contains(lower, kw) {
			return TierVault
		}
	}
	return TierGeneral
}

// StoreContext carries the caller's current situation into extraction and
// salience scoring — the "context?" argument of storeMemory (spec.md §4.4).
type StoreContext struct {
	Topics []string
	People []string
}

// Store ingests one observation: extraction, salience, tier classification,
// persistence, loop/event derivation, relationship update, and a
// best-effort vector upsert. Mirrors the shape of the teacher's Engram.Add
// (engram.go) generalized from a single-sector insert into the full
// spec-driven pipeline.
func (m *Memento) Store(ctx context.Context, user, text string, sc StoreContext, useLLM bool) (StoreResult, error) {
	if strings.TrimSpace(text) == "" {
		return StoreResult{}, errInvalidInput("memento.Store", "text is empty")
	}

	var result StoreResult
	id := uuid.NewString()

	m.locks.withKey(memoryKey(id), func() {
		features, status := m.extractFeatures(ctx, text, useLLM)
		features = canonicalizeFeatures(m.store, user, features)

		recentTopics := m.recentTopics(user)
		frame := m.bestEffortUnifiedContext(user)

		salience, factors := ScoreSalience(SalienceInput{
			Text:          text,
			Features:      features,
			RecentTopics:  recentTopics,
			ContextTopics: append(append([]string{}, sc.Topics...), frame.Activity),
			ContextPeople: append(append([]string{}, sc.People...), frame.People...),
		}, *m.config.SalienceWeights)

		tier := classifyTier(text)

		now := time.Now()
		mem := Memory{
			ID:                id,
			User:              user,
			CreatedAt:         now,
			Text:              text,
			NormalizedText:    strings.ToLower(strings.TrimSpace(text)),
			Features:          features,
			Salience:          salience,
			SalienceFactors:   factors,
			SecurityTier:      tier,
			HasEnvelope:       tier == TierVault,
			ForgottenState:    StateActive,
			ExtractionStatus:  status,
			PendingVectorSync: tier != TierVault && m.embedder != nil && m.vectors != nil,
		}

		if err := m.store.InsertMemory(mem); err != nil {
			logf("enrich", "insert memory failed: %v", err)
			return
		}
		result.Memory = mem

		for _, c := range features.Commitments {
			loop := OpenLoop{
				ID:             uuid.NewString(),
				User:           user,
				Description:    c.Text,
				Owner:          c.Owner,
				OtherParty:     c.OtherParty,
				DueDate:        c.DueDate,
				LoopType:       orDefault(c.LoopType, "commitment"),
				SourceMemoryID: id,
				CreatedAt:      now,
			}
			created, err := m.store.CreateLoop(loop)
			if err != nil {
				logf("enrich", "create loop failed: %v", err)
				continue
			}
			result.LoopsCreated = append(result.LoopsCreated, created)
		}

		for _, e := range features.Events {
			person := ""
			if len(features.People) > 0 {
				person = features.People[0]
			}
			event := TimelineEvent{
				ID:             uuid.NewString(),
				User:           user,
				Description:    e.Description,
				Person:         person,
				EventDate:      e.EventDate,
				Category:       e.Category,
				SourceMemoryID: id,
			}
			if err := m.store.InsertEvent(event); err != nil {
				logf("enrich", "insert event failed: %v", err)
				continue
			}
			result.EventsCreated = append(result.EventsCreated, event)
		}

		if tier != TierVault {
			m.enqueueVectorUpsert(ctx, mem)
		}

		for _, person := range features.People {
			m.touchRelationship(user, person, now)
		}
	})

	return result, nil
}

func (m *Memento) extractFeatures(ctx context.Context, text string, useLLM bool) (ExtractedFeatures, string) {
	if useLLM && m.llm != nil {
		ex := newLLMExtractor(m.llm, msDuration(m.config.LLMTimeoutMs))
		f := ex.Extract(text)
		if len(f.People)+len(f.Topics)+len(f.Commitments)+len(f.Events)+len(f.Sensitivities) == 0 {
			return f, "empty"
		}
		return f, "ok"
	}
	f := m.extractor.Extract(text)
	if len(f.People)+len(f.Topics)+len(f.Commitments)+len(f.Events)+len(f.Sensitivities) == 0 {
		return f, "empty"
	}
	if useLLM && m.llm == nil {
		return f, "fallback"
	}
	return f, "ok"
}

// canonicalizeFeatures trims/title-cases people names and folds them onto
// an existing Relationship's canonical spelling where one is registered
// (spec.md §4.2); unrecognized names keep their title-cased form.
func canonicalizeFeatures(store *Store, user string, f ExtractedFeatures) ExtractedFeatures {
	rels, _ := store.RelationshipsForUser(user)
	canon := make([]string, 0, len(f.People))
	for _, p := range f.People {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		words := strings.Fields(name)
		for i, w := range words {
			words[i] = strings.ToUpper(string([]rune(w)[:1])) + string([]rune(w)[1:])
		}
		name = strings.Join(words, " ")
		for _, rel := range rels {
			if strings.EqualFold(rel.ContactName, name) {
				name = rel.ContactName
				break
			}
		}
		canon = append(canon, name)
	}
	f.People = canon
	return f
}

// recentTopics gathers topics mentioned across the user's last 30 days of
// memories, the novelty factor's comparison set (spec.md §4.3).
func (m *Memento) recentTopics(user string) []string {
	since := time.Now().AddDate(0, 0, -30)
	mems, err := m.store.FindMemories(MemoryFilter{User: user, Since: &since, Limit: 200})
	if err != nil {
		return nil
	}
	var topics []string
	for _, mem := range mems {
		topics = append(topics, mem.Features.Topics...)
	}
	return topics
}

func (m *Memento) bestEffortUnifiedContext(user string) UnifiedUserContext {
	uc, err := m.GetUnifiedUserContext(user)
	if err != nil {
		return UnifiedUserContext{}
	}
	return uc
}

// touchRelationship increments interaction counters and recomputes trend
// (spec.md §4.4 step 9): rising if the last-7-day rate exceeds the 30-day
// mean rate, falling if the inverse, cold past coldThreshold, else stable.
func (m *Memento) touchRelationship(user, contact string, now time.Time) {
	rel, err := m.store.GetRelationship(user, contact)
	if err != nil {
		rel = Relationship{
			User:              user,
			ContactName:       contact,
			ColdThresholdDays: m.config.ColdThresholdDays,
		}
	}
	rel.TotalInteractions++
	rel.LastInteractionAt = now
	rel.EngagementTrend = m.recomputeTrend(rel, now)
	if err := m.store.UpsertRelationship(rel); err != nil {
		logf("enrich", "upsert relationship failed: %v", err)
	}
}

// recomputeTrend compares the last 7 days' mention count against the
// average weekly rate over the trailing 30 days, both drawn from the
// memory_people-indexed person filter (store.go's FindMemories).
func (m *Memento) recomputeTrend(rel Relationship, now time.Time) EngagementTrend {
	days := rel.DaysSinceLastInteraction(now)
	if days > float64(rel.ColdThresholdDays) {
		return TrendCold
	}

	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)
	recent, err := m.store.FindMemories(MemoryFilter{User: rel.User, Person: rel.ContactName, Since: &weekAgo})
	if err != nil {
		return TrendStable
	}
	monthly, err := m.store.FindMemories(MemoryFilter{User: rel.User, Person: rel.ContactName, Since: &monthAgo})
	if err != nil {
		return TrendStable
	}

	weeklyRate := float64(len(recent))
	monthlyMean := float64(len(monthly)) / (30.0 / 7.0)
	switch {
	case weeklyRate > monthlyMean:
		return TrendRising
	case weeklyRate < monthlyMean:
		return TrendFalling
	default:
		return TrendStable
	}
}

func (m *Memento) enqueueVectorUpsert(ctx context.Context, mem Memory) {
	if m.embedder == nil || m.vectors == nil {
		return
	}
	go func() {
		bctx, cancel := context.WithTimeout(context.Background(), msDuration(m.config.EmbedderTimeoutMs))
		defer cancel()

		vec, err := m.embedder.Embed(bctx, mem.Text, "RETRIEVAL_DOCUMENT")
		if err != nil {
			logf("enrich", "embed failed for %s, marking pending: %v", mem.ID, err)
			m.retry.RecordFailure(mem.ID)
			m.retry.Notify(ctx, mem.ID)
			return
		}
		if err := m.vectors.Upsert(bctx, mem.ID, vec, VectorFilters{User: mem.User, Tier: mem.SecurityTier, ForgottenState: mem.ForgottenState}); err != nil {
			logf("enrich", "vector upsert failed for %s, marking pending: %v", mem.ID, err)
			m.retry.RecordFailure(mem.ID)
			m.retry.Notify(ctx, mem.ID)
			return
		}
		m.retry.RecordSuccess(mem.ID)
		mem.PendingVectorSync = false
		if err := m.store.UpdateMemoryState(mem); err != nil {
			logf("enrich", "clear pending flag failed for %s: %v", mem.ID, err)
		}
	}()
}

// Forget transitions a memory per mode (spec.md §4.4).
func (m *Memento) Forget(ctx context.Context, memoryID string, mode ForgetMode, reason string) (Memory, error) {
	var mem Memory
	var opErr error

	m.locks.withKey(memoryKey(memoryID), func() {
		mem, opErr = m.store.GetMemory(memoryID)
		if opErr != nil {
			return
		}

		now := time.Now()
		switch mode {
		case ForgetSuppress:
			mem.ForgottenState = StateSuppressed
		case ForgetArchive:
			mem.ForgottenState = StateArchived
			if m.vectors != nil {
				m.vectors.Delete(ctx, memoryID)
			}
		case ForgetDelete:
			mem.ForgottenState = StatePendingDelete
			if m.vectors != nil {
				m.vectors.Delete(ctx, memoryID)
			}
			if err := m.store.CloseLoopsForSource(memoryID, now, "source memory forgotten"); err != nil {
				logf("enrich", "cascade close loops failed: %v", err)
			}
			if err := m.store.DeleteEventsForSource(memoryID); err != nil {
				logf("enrich", "cascade delete events failed: %v", err)
			}
		default:
			opErr = errInvalidInput("memento.Forget", "unknown forget mode")
			return
		}
		mem.ForgottenAt = &now
		mem.ForgottenReason = reason
		opErr = m.store.UpdateMemoryState(mem)
	})

	return mem, opErr
}

// Restore reinstates a Suppressed or Archived memory to Active, re-enqueuing
// its vector if the tier allows one.
func (m *Memento) Restore(ctx context.Context, memoryID string) (Memory, error) {
	var mem Memory
	var opErr error

	m.locks.withKey(memoryKey(memoryID), func() {
		mem, opErr = m.store.GetMemory(memoryID)
		if opErr != nil {
			return
		}
		if mem.ForgottenState != StateSuppressed && mem.ForgottenState != StateArchived {
			opErr = errPrecondition("memento.Restore", "memory is not suppressed or archived")
			return
		}
		mem.ForgottenState = StateActive
		mem.ForgottenAt = nil
		mem.ForgottenReason = ""
		if mem.SecurityTier != TierVault {
			mem.PendingVectorSync = true
		}
		opErr = m.store.UpdateMemoryState(mem)
		if opErr == nil && mem.SecurityTier != TierVault {
			m.enqueueVectorUpsert(ctx, mem)
		}
	})

	return mem, opErr
}

// ForgetPerson applies forget with opts to every memory mentioning name,
// then closes that person's open loops that have no source memory.
// Timeline events not linked to a memory are left as they are.
func (m *Memento) ForgetPerson(ctx context.Context, user, name string, mode ForgetMode, reason string) (int, error) {
	mems, err := m.store.FindMemories(MemoryFilter{User: user, Person: name, Limit: 0})
	if err != nil {
		return 0, err
	}
	var n int
	for _, mem := range mems {
		if _, err := m.Forget(ctx, mem.ID, mode, reason); err != nil {
			logf("enrich", "forgetPerson: forget %s failed: %v", mem.ID, err)
			continue
		}
		n++
	}

	loops, err := m.store.OpenLoopsForUser(user, name)
	if err == nil {
		now := time.Now()
		for _, l := range loops {
			if l.SourceMemoryID == "" {
				m.store.CloseLoop(l.ID, now, "person forgotten: "+reason)
			}
		}
	}

	return n, nil
}

// ReassociateDiff is the set of explicit edits applied by Reassociate.
// Per the Open Questions decision in the design notes, this is diff-only:
// features are never re-extracted via LLM.
type ReassociateDiff struct {
	AddPeople    []string
	RemovePeople []string
	AddTopics    []string
	RemoveTopics []string
	AddTags      []string
	RemoveTags   []string
	SetProject   string
}

// Reassociate applies explicit edits to a memory's derived sets and
// re-scores salience against the updated features (spec.md §4.4).
func (m *Memento) Reassociate(ctx context.Context, memoryID string, diff ReassociateDiff) (Memory, error) {
	var mem Memory
	var opErr error

	m.locks.withKey(memoryKey(memoryID), func() {
		mem, opErr = m.store.GetMemory(memoryID)
		if opErr != nil {
			return
		}

		mem.Features.People = applySetDiff(mem.Features.People, diff.AddPeople, diff.RemovePeople)
		mem.Features.Topics = applySetDiff(mem.Features.Topics, diff.AddTopics, diff.RemoveTopics)
		mem.AddedTags = applySetDiff(mem.AddedTags, diff.AddTags, diff.RemoveTags)
		mem.AddedTopics = applySetDiff(mem.AddedTopics, diff.AddTopics, diff.RemoveTopics)
		if diff.SetProject != "" {
			mem.ProjectTag = diff.SetProject
		}

		recentTopics := m.recentTopics(mem.User)
		frame := m.bestEffortUnifiedContext(mem.User)
		mem.Salience, mem.SalienceFactors = ScoreSalience(SalienceInput{
			Text:          mem.Text,
			Features:      mem.Features,
			RecentTopics:  recentTopics,
			ContextTopics: append([]string{}, frame.Activity),
			ContextPeople: frame.People,
		}, *m.config.SalienceWeights)

		opErr = m.store.UpdateMemoryState(mem)
		if opErr == nil && mem.SecurityTier != TierVault {
			mem.PendingVectorSync = true
			m.enqueueVectorUpsert(ctx, mem)
		}
	})

	return mem, opErr
}

func applySetDiff(base, add, remove []string) []string {
	set := make(map[string]bool, len(base))
	for _, v := range base {
		set[v] = true
	}
	for _, v := range remove {
		delete(set, v)
	}
	for _, v := range add {
		set[v] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
