package memento

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// confidenceSurfaceThreshold is the minimum confidence for an
// AnticipatedContext to be returned from anticipate() when
// Config.MinConfidenceSurface is unset (spec.md §4.7).
const confidenceSurfaceThreshold = 0.5

// Anticipation is the result of anticipate(): either a readiness notice or
// a set of forecasts.
type Anticipation struct {
	ReadyForPrediction bool
	DaysUntilReady     int
	Contexts           []AnticipatedContext
}

// Anticipate forecasts upcoming context switches from formed patterns and,
// optionally, a calendar (spec.md §4.7).
func (m *Memento) Anticipate(user string, calendar []CalendarEvent, lookAheadMinutes int) (Anticipation, error) {
	if lookAheadMinutes <= 0 {
		lookAheadMinutes = 60
	}

	observedDays, err := m.observationWindowDays(user)
	if err != nil {
		return Anticipation{}, err
	}

	formed, err := m.store.PatternsForUser(user, PatternFormed)
	if err != nil {
		return Anticipation{}, err
	}

	if observedDays < float64(m.config.PatternFormationDays) || len(formed) == 0 {
		daysUntil := m.config.PatternFormationDays - int(observedDays)
		if daysUntil < 0 {
			daysUntil = 0
		}
		return Anticipation{ReadyForPrediction: false, DaysUntilReady: daysUntil}, nil
	}

	now := time.Now()
	horizon := now.Add(time.Duration(lookAheadMinutes) * time.Minute)
	threshold := m.config.MinConfidenceSurface
	if threshold == 0 {
		threshold = confidenceSurfaceThreshold
	}

	var contexts []AnticipatedContext
	for _, p := range formed {
		trigger, ok := nextTrigger(p.Key, now, horizon)
		if !ok {
			continue
		}
		if p.Confidence < threshold {
			continue
		}
		ac := AnticipatedContext{
			TriggerTime:        trigger,
			Confidence:         p.Confidence,
			Features:           p.Prototype,
			SuggestedBriefings: p.Prototype.People,
			SuggestedTopics:    nil,
		}
		if mems, err := m.suggestedMemoriesForPrototype(user, p.Prototype); err == nil {
			ac.SuggestedMemories = mems
			for _, mem := range mems {
				for _, t := range mem.Features.Topics {
					ac.SuggestedTopics = append(ac.SuggestedTopics, t)
				}
			}
		}
		contexts = append(contexts, ac)
	}

	for _, ev := range calendar {
		if ev.StartsAt.Before(now) || ev.StartsAt.After(horizon) {
			continue
		}
		for _, p := range formed {
			if p.Key.RecurringEventTitle != "" && p.Key.RecurringEventTitle != ev.Title {
				continue
			}
			if p.Confidence < threshold {
				continue
			}
			contexts = append(contexts, AnticipatedContext{
				TriggerTime:        ev.StartsAt,
				Confidence:         p.Confidence,
				Features:           p.Prototype,
				SuggestedBriefings: ev.People,
			})
		}
	}

	sort.Slice(contexts, func(i, j int) bool { return contexts[i].TriggerTime.Before(contexts[j].TriggerTime) })

	return Anticipation{ReadyForPrediction: true, Contexts: contexts}, nil
}

func (m *Memento) observationWindowDays(user string) (float64, error) {
	obs, err := m.store.ObservationsSince(user, time.Time{})
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}
	return time.Since(obs[0].ObservedAt).Hours() / 24.0, nil
}

// nextTrigger finds the next absolute time within [now, horizon] whose
// time-of-day bucket and weekday match key.
func nextTrigger(key FeatureKey, now, horizon time.Time) (time.Time, bool) {
	for d := 0; d <= 1; d++ {
		candidate := now.AddDate(0, 0, d)
		if candidate.Weekday() != key.DayOfWeek {
			continue
		}
		t := bucketStart(candidate, key.TimeOfDay)
		if d == 0 && timeBucketFor(now) == key.TimeOfDay {
			t = now // already inside the matching bucket
		}
		if (t.After(now) || t.Equal(now)) && t.Before(horizon) {
			return t, true
		}
	}
	return time.Time{}, false
}

func bucketStart(day time.Time, bucket TimeBucket) time.Time {
	hour := 5
	switch bucket {
	case BucketMorning:
		hour = 5
	case BucketAfternoon:
		hour = 12
	case BucketEvening:
		hour = 17
	case BucketNight:
		hour = 21
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// suggestedMemoriesForPrototype returns up to 3 memories relevant to a
// pattern's prototype context, grounded on the same recall path as C5.
func (m *Memento) suggestedMemoriesForPrototype(user string, proto ContextObservation) ([]Memory, error) {
	results, err := m.Recall(context.Background(), user, RecallQuery{
		People: proto.People,
		Limit:  3,
	})
	if err != nil {
		return nil, err
	}
	var out []Memory
	for _, r := range results {
		out = append(out, r.Memory)
	}
	return out, nil
}

// DayOutlook produces a morning-oriented summary (spec.md §4.7).
func (m *Memento) DayOutlook(user string) (DayOutlook, error) {
	formed, err := m.store.PatternsForUser(user, PatternFormed)
	if err != nil {
		return DayOutlook{}, err
	}

	out := DayOutlook{
		Greeting: "Good morning.",
	}
	if len(formed) == 0 {
		out.Outlook = "Still learning your routines."
		return out, nil
	}
	out.Outlook = fmt.Sprintf("%d recurring patterns recognized so far.", len(formed))
	for _, p := range formed {
		out.Insights = append(out.Insights, patternSummary(p))
	}
	if refined, ok := m.refineOutlook(context.Background(), out.Insights); ok {
		out.Outlook = refined
	}

	anticipation, err := m.Anticipate(user, nil, 24*60)
	if err == nil && anticipation.ReadyForPrediction {
		n := len(anticipation.Contexts)
		if n > 5 {
			n = 5
		}
		out.UpcomingContextSwitches = anticipation.Contexts[:n]
	}
	return out, nil
}

// refineOutlook asks the configured LLMProvider for a friendlier one or two
// sentence rendering of the day's recognized patterns. Degrades silently
// (ok=false) when no provider is configured or the call fails — the
// heuristic outlook text in DayOutlook is never blocked on this, the same
// nil-collaborator-means-degrade idiom used for embeddings and the vector
// store elsewhere in this package.
func (m *Memento) refineOutlook(ctx context.Context, insights []string) (string, bool) {
	if m.llm == nil || len(insights) == 0 {
		return "", false
	}
	prompt := "Summarize these recognized daily routines into one warm, concise sentence:\n"
	for _, s := range insights {
		prompt += "- " + s + "\n"
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outlook": map[string]any{"type": "string"},
		},
		"required": []string{"outlook"},
	}
	result, err := m.llm.CompleteStructured(ctx, prompt, schema)
	if err != nil {
		logf("anticipate", "outlook refinement failed, falling back to heuristic text: %v", err)
		return "", false
	}
	text, ok := result["outlook"].(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

func patternSummary(p Pattern) string {
	return fmt.Sprintf("%s on %s near %q (seen %d times, confidence %.2f)",
		p.Key.TimeOfDay, p.Key.DayOfWeek, p.Key.LocationBucket, p.Count, p.Confidence)
}

// PatternStat is one row of patternStats() output.
type PatternStat struct {
	ID             string
	Key            FeatureKey
	Status         PatternStatus
	Count          int
	Confidence     float64
	LastObservedAt time.Time
}

// PatternStats returns every pattern for a user regardless of status.
func (m *Memento) PatternStats(user string) ([]PatternStat, error) {
	patterns, err := m.store.PatternsForUser(user, "")
	if err != nil {
		return nil, err
	}
	out := make([]PatternStat, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, PatternStat{
			ID:             p.ID,
			Key:            p.Key,
			Status:         p.Status,
			Count:          p.Count,
			Confidence:     p.Confidence,
			LastObservedAt: p.LastObservedAt,
		})
	}
	return out, nil
}

// MemoryFeedback records how a surfaced AnticipatedContext was received
// (used/ignored/dismissed) against its source pattern, adjusting
// confidence per the reinforcement rule in spec.md §4.7.
func (m *Memento) MemoryFeedback(patternID string, action FeedbackAction) error {
	var opErr error
	m.locks.withKey(patternKey(patternID), func() {
		p, err := m.store.GetPatternByID(patternID)
		if err != nil {
			opErr = err
			return
		}
		now := time.Now()
		if opErr = m.store.AppendPatternFeedback(patternID, action, now); opErr != nil {
			return
		}
		switch action {
		case FeedbackUsed:
			p.Confidence = clampFloat(p.Confidence+0.1, 0, 1)
		case FeedbackDismissed:
			p.Confidence = clampFloat(p.Confidence-0.2, 0, 1)
		case FeedbackIgnored:
			p.Confidence = clampFloat(p.Confidence-0.02, 0, 1)
		}
		opErr = m.store.UpsertPattern(p)
	})
	return opErr
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
