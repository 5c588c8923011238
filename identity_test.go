package memento

import (
	"context"
	"testing"
)

func TestExtractSignalsNonEmptyText(t *testing.T) {
	signals := ExtractSignals("Hello there, I'm really happy about this! Thanks so much.")
	if len(signals.FunctionWords.Freq) == 0 {
		t.Errorf("expected nonempty function word frequencies")
	}
	if signals.Vocabulary.AvgWordLength <= 0 {
		t.Errorf("expected positive avg word length")
	}
}

func TestBlockScoresIdenticalSignalsScoreHigh(t *testing.T) {
	signals := ExtractSignals("I've been meaning to reach out about the quarterly report, thanks for your patience.")
	scores := blockScores(signals, signals)
	for block, score := range scores {
		if score < 0.95 {
			t.Errorf("expected near-1.0 score for identical signals on block %s, got %.3f", block, score)
		}
	}
}

func TestBuildFingerprintFromMessageGrowsSampleCount(t *testing.T) {
	m := testMementoWithDefaults(t)
	if err := m.BuildFingerprintFromMessage("alice", "I'll have the report done by Friday, thanks!"); err != nil {
		t.Fatal(err)
	}
	fp, err := m.store.GetFingerprint("alice")
	if err != nil {
		t.Fatal(err)
	}
	if fp.SampleCount != 1 {
		t.Errorf("expected sample count 1, got %d", fp.SampleCount)
	}

	if err := m.BuildFingerprintFromMessage("alice", "I'll have the report done by Friday, thanks!"); err != nil {
		t.Fatal(err)
	}
	fp, err = m.store.GetFingerprint("alice")
	if err != nil {
		t.Fatal(err)
	}
	if fp.SampleCount != 2 {
		t.Errorf("expected sample count 2, got %d", fp.SampleCount)
	}
}

func TestIdentifyUserMatchesEnrolledAuthor(t *testing.T) {
	m := testMementoWithDefaults(t)
	sample := "I was thinking we could grab coffee sometime next week, no pressure at all, just let me know."
	for i := 0; i < 5; i++ {
		if err := m.BuildFingerprintFromMessage("alice", sample); err != nil {
			t.Fatal(err)
		}
	}

	pred, err := m.IdentifyUser(context.Background(), sample, []string{"alice"})
	if err != nil {
		t.Fatal(err)
	}
	if pred.PredictedUser != "alice" {
		t.Errorf("expected prediction to match alice with identical phrasing, got %q (confidence %.3f)", pred.PredictedUser, pred.Confidence)
	}
}

func TestIdentifyUserPersistsPrediction(t *testing.T) {
	m := testMementoWithDefaults(t)
	pred, err := m.IdentifyUser(context.Background(), "whatever text", nil)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := m.store.GetPrediction(pred.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.MessageHash != pred.MessageHash {
		t.Errorf("expected persisted prediction to match returned prediction")
	}
}

func TestBehavioralFeedbackRequiresTargetUser(t *testing.T) {
	m := testMementoWithDefaults(t)
	pred, err := m.IdentifyUser(context.Background(), "some unmatched text", nil)
	if err != nil {
		t.Fatal(err)
	}
	err = m.BehavioralFeedback(pred.ID, false, "")
	if !IsKind(err, KindInvalidInput) {
		t.Errorf("expected invalid-input error for missing actual user, got %v", err)
	}
}

func TestBehavioralFeedbackCorrectionGrowsTargetSampleCount(t *testing.T) {
	m := testMementoWithDefaults(t)
	pred, err := m.IdentifyUser(context.Background(), "some text that matches nobody", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.BehavioralFeedback(pred.ID, false, "bob"); err != nil {
		t.Fatal(err)
	}
	fp, err := m.store.GetFingerprint("bob")
	if err != nil {
		t.Fatal(err)
	}
	if fp.SampleCount != 1 {
		t.Errorf("expected bob's sample count incremented to 1, got %d", fp.SampleCount)
	}
}

func TestBehavioralMetricsNotEnrolledReturnsZeroValue(t *testing.T) {
	m := testMementoWithDefaults(t)
	metrics, err := m.BehavioralMetrics("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if metrics.SampleCount != 0 || metrics.IdentificationReady {
		t.Errorf("expected zero-value metrics for unenrolled user, got %+v", metrics)
	}
}

func TestBehavioralMetricsReportsRecentPredictions(t *testing.T) {
	m := testMementoWithDefaults(t)
	if err := m.BuildFingerprintFromMessage("alice", "good morning, hope you slept well"); err != nil {
		t.Fatal(err)
	}
	pred, err := m.IdentifyUser(context.Background(), "good morning, hope you slept well", []string{"alice"})
	if err != nil {
		t.Fatal(err)
	}

	metrics, err := m.BehavioralMetrics("alice")
	if err != nil {
		t.Fatal(err)
	}
	if metrics.SampleCount != 1 {
		t.Errorf("expected sample count 1, got %d", metrics.SampleCount)
	}
	found := false
	for _, p := range metrics.RecentPredictions {
		if p.PredictionID == pred.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected prediction %s among recent predictions, got %+v", pred.ID, metrics.RecentPredictions)
	}
}
