package memento

import (
	"testing"
	"time"
)

func insertObservationsForBucket(t *testing.T, m *Memento, user string, key FeatureKey, n int, spreadDays int) {
	t.Helper()
	for i := 0; i < n; i++ {
		obs := ContextObservation{
			ID:                  testObservationID(user, key, i),
			User:                user,
			ObservedAt:          time.Now().AddDate(0, 0, -spreadDays+i),
			TimeOfDay:           key.TimeOfDay,
			DayOfWeek:           key.DayOfWeek,
			LocationBucket:      key.LocationBucket,
			RecurringEventTitle: key.RecurringEventTitle,
		}
		if err := m.store.InsertObservation(obs); err != nil {
			t.Fatal(err)
		}
	}
}

func testObservationID(user string, key FeatureKey, i int) string {
	return user + ":" + string(key.TimeOfDay) + ":" + key.LocationBucket + ":" + string(rune('a'+i))
}

func TestRunPatternFormationSweepFormsPatternPastWindow(t *testing.T) {
	m := testMementoWithDefaults(t)
	key := FeatureKey{TimeOfDay: BucketMorning, DayOfWeek: time.Monday, LocationBucket: "office"}
	insertObservationsForBucket(t, m, "alice", key, 6, m.config.PatternFormationDays+5)

	m.RunPatternFormationSweep()

	patterns, err := m.store.PatternsForUser("alice", PatternFormed)
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected 1 formed pattern, got %d", len(patterns))
	}
	if patterns[0].Count != 6 {
		t.Errorf("expected count 6, got %d", patterns[0].Count)
	}
}

func TestRunPatternFormationSweepStaysBelowSupportThreshold(t *testing.T) {
	m := testMementoWithDefaults(t)
	key := FeatureKey{TimeOfDay: BucketEvening, DayOfWeek: time.Tuesday, LocationBucket: "home"}
	insertObservationsForBucket(t, m, "alice", key, 2, m.config.PatternFormationDays+5)

	m.RunPatternFormationSweep()

	patterns, err := m.store.PatternsForUser("alice", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 0 {
		t.Errorf("expected no pattern below min support, got %d", len(patterns))
	}
}

func TestComputeConfidenceBlendsSupportAndFeedback(t *testing.T) {
	noFeedback := computeConfidence(30, nil)
	if noFeedback < 0.49 || noFeedback > 0.51 {
		t.Errorf("expected ~0.5 with full support and no feedback, got %.3f", noFeedback)
	}

	positive := computeConfidence(30, []PatternFeedback{{Action: FeedbackUsed}, {Action: FeedbackUsed}})
	if positive <= noFeedback {
		t.Errorf("expected positive feedback to raise confidence above %.3f, got %.3f", noFeedback, positive)
	}

	negative := computeConfidence(30, []PatternFeedback{{Action: FeedbackDismissed}, {Action: FeedbackDismissed}})
	if negative >= noFeedback {
		t.Errorf("expected dismissals to lower confidence below %.3f, got %.3f", noFeedback, negative)
	}
}

func TestModePrototypePicksUnionOfPeopleAndMostCommonActivity(t *testing.T) {
	obs := []ContextObservation{
		{People: []string{"bob"}, Activity: "commute", ObservedAt: time.Now()},
		{People: []string{"carol"}, Activity: "commute", ObservedAt: time.Now()},
		{People: []string{"bob"}, Activity: "working", ObservedAt: time.Now()},
	}
	proto := modePrototype(obs)
	if len(proto.People) != 2 {
		t.Errorf("expected union of 2 people, got %+v", proto.People)
	}
	if proto.Activity != "commute" {
		t.Errorf("expected most common activity 'commute', got %q", proto.Activity)
	}
}
