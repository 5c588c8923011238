package memento

import (
	"testing"
	"time"
)

func TestAnticipateNotReadyBeforeFormationWindow(t *testing.T) {
	m := testMementoWithDefaults(t)
	anticipation, err := m.Anticipate("alice", nil, 60)
	if err != nil {
		t.Fatal(err)
	}
	if anticipation.ReadyForPrediction {
		t.Errorf("expected not ready with no observations")
	}
	if anticipation.DaysUntilReady != m.config.PatternFormationDays {
		t.Errorf("expected daysUntilReady=%d, got %d", m.config.PatternFormationDays, anticipation.DaysUntilReady)
	}
}

func TestAnticipateSurfacesFormedPatternWithinLookahead(t *testing.T) {
	m := testMementoWithDefaults(t)
	old := ContextObservation{ID: "o1", User: "alice", ObservedAt: time.Now().Add(-30 * 24 * time.Hour)}
	if err := m.store.InsertObservation(old); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	key := FeatureKey{TimeOfDay: timeBucketFor(now), DayOfWeek: now.Weekday(), LocationBucket: "office"}
	pattern := Pattern{
		ID:             "p1",
		User:           "alice",
		Key:            key,
		Prototype:      ContextObservation{People: []string{"Bob"}},
		Count:          10,
		Confidence:     0.8,
		LastObservedAt: now,
		Status:         PatternFormed,
	}
	if err := m.store.UpsertPattern(pattern); err != nil {
		t.Fatal(err)
	}

	anticipation, err := m.Anticipate("alice", nil, 120)
	if err != nil {
		t.Fatal(err)
	}
	if !anticipation.ReadyForPrediction {
		t.Fatalf("expected ready for prediction, got %+v", anticipation)
	}
	if len(anticipation.Contexts) != 1 {
		t.Fatalf("expected one surfaced context, got %d", len(anticipation.Contexts))
	}
	if anticipation.Contexts[0].SuggestedBriefings[0] != "Bob" {
		t.Errorf("expected suggested briefing Bob, got %+v", anticipation.Contexts[0].SuggestedBriefings)
	}
}

func TestAnticipateSkipsLowConfidencePatterns(t *testing.T) {
	m := testMementoWithDefaults(t)
	old := ContextObservation{ID: "o1", User: "alice", ObservedAt: time.Now().Add(-30 * 24 * time.Hour)}
	if err := m.store.InsertObservation(old); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	key := FeatureKey{TimeOfDay: timeBucketFor(now), DayOfWeek: now.Weekday()}
	pattern := Pattern{ID: "p1", User: "alice", Key: key, Count: 10, Confidence: 0.1, Status: PatternFormed}
	if err := m.store.UpsertPattern(pattern); err != nil {
		t.Fatal(err)
	}

	anticipation, err := m.Anticipate("alice", nil, 120)
	if err != nil {
		t.Fatal(err)
	}
	if len(anticipation.Contexts) != 0 {
		t.Errorf("expected low-confidence pattern filtered out, got %d contexts", len(anticipation.Contexts))
	}
}

func TestBucketStartMapsBucketToHour(t *testing.T) {
	day := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	cases := map[TimeBucket]int{
		BucketMorning: 5, BucketAfternoon: 12, BucketEvening: 17, BucketNight: 21,
	}
	for bucket, hour := range cases {
		got := bucketStart(day, bucket)
		if got.Hour() != hour {
			t.Errorf("bucket %s: expected hour %d, got %d", bucket, hour, got.Hour())
		}
	}
}

func TestNextTriggerMatchesWeekdayAndBucket(t *testing.T) {
	now := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)
	key := FeatureKey{TimeOfDay: BucketMorning, DayOfWeek: now.Weekday()}
	trigger, ok := nextTrigger(key, now, now.Add(24*time.Hour))
	if !ok {
		t.Fatal("expected a trigger within the horizon")
	}
	if trigger.Weekday() != now.Weekday() {
		t.Errorf("expected trigger on same weekday, got %s", trigger.Weekday())
	}
}

func TestDayOutlookNoPatternsStillLearning(t *testing.T) {
	m := testMementoWithDefaults(t)
	out, err := m.DayOutlook("alice")
	if err != nil {
		t.Fatal(err)
	}
	if out.Outlook != "Still learning your routines." {
		t.Errorf("expected still-learning outlook, got %q", out.Outlook)
	}
}

func TestDayOutlookSummarizesFormedPatterns(t *testing.T) {
	m := testMementoWithDefaults(t)
	pattern := Pattern{
		ID: "p1", User: "alice",
		Key:        FeatureKey{TimeOfDay: BucketMorning, DayOfWeek: time.Monday, LocationBucket: "office"},
		Count:      12,
		Confidence: 0.9,
		Status:     PatternFormed,
	}
	if err := m.store.UpsertPattern(pattern); err != nil {
		t.Fatal(err)
	}
	out, err := m.DayOutlook("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Insights) != 1 {
		t.Fatalf("expected one insight, got %d", len(out.Insights))
	}
}

func TestPatternStatsReturnsAllStatuses(t *testing.T) {
	m := testMementoWithDefaults(t)
	if err := m.store.UpsertPattern(Pattern{ID: "p1", User: "alice", Status: PatternNew}); err != nil {
		t.Fatal(err)
	}
	if err := m.store.UpsertPattern(Pattern{ID: "p2", User: "alice", Status: PatternFormed}); err != nil {
		t.Fatal(err)
	}
	stats, err := m.PatternStats("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Errorf("expected 2 patterns regardless of status, got %d", len(stats))
	}
}

func TestMemoryFeedbackAdjustsConfidence(t *testing.T) {
	m := testMementoWithDefaults(t)
	pattern := Pattern{ID: "p1", User: "alice", Confidence: 0.5, Status: PatternFormed}
	if err := m.store.UpsertPattern(pattern); err != nil {
		t.Fatal(err)
	}

	if err := m.MemoryFeedback("p1", FeedbackUsed); err != nil {
		t.Fatal(err)
	}
	got, err := m.store.GetPatternByID("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Confidence < 0.59 || got.Confidence > 0.61 {
		t.Errorf("expected confidence ~0.6 after used feedback, got %.3f", got.Confidence)
	}

	if err := m.MemoryFeedback("p1", FeedbackDismissed); err != nil {
		t.Fatal(err)
	}
	got, err = m.store.GetPatternByID("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Confidence < 0.39 || got.Confidence > 0.41 {
		t.Errorf("expected confidence ~0.4 after dismissed feedback, got %.3f", got.Confidence)
	}
}

func TestClampFloat(t *testing.T) {
	if clampFloat(-0.5, 0, 1) != 0 {
		t.Errorf("expected clamp to 0")
	}
	if clampFloat(1.5, 0, 1) != 1 {
		t.Errorf("expected clamp to 1")
	}
}
