package memento

import (
	"math"
	"testing"
)

func TestScoreSalienceZeroInput(t *testing.T) {
	score, factors := ScoreSalience(SalienceInput{}, DefaultSalienceWeights())
	if score != 10 {
		t.Errorf("expected 10 for empty input (neutral novelty 0.5 x weight 0.20), got %d", score)
	}
	if factors.Novelty != 0.5 {
		t.Errorf("expected neutral novelty with no topics, got %.3f", factors.Novelty)
	}
}

func TestScoreSalienceEmotionalText(t *testing.T) {
	in := SalienceInput{Text: "I am furious and devastated about this"}
	score, factors := ScoreSalience(in, DefaultSalienceWeights())
	if factors.Emotion <= 0 {
		t.Errorf("expected nonzero emotion score, got %.3f", factors.Emotion)
	}
	if score <= 0 {
		t.Errorf("expected positive composite score, got %d", score)
	}
}

func TestScoreSalienceNoveltyDropsOnRepeatedTopics(t *testing.T) {
	w := DefaultSalienceWeights()
	fresh := SalienceInput{Features: ExtractedFeatures{Topics: []string{"vacation"}}}
	stale := SalienceInput{
		Features:     ExtractedFeatures{Topics: []string{"vacation"}},
		RecentTopics: []string{"vacation", "vacation", "vacation"},
	}
	_, freshFactors := ScoreSalience(fresh, w)
	_, staleFactors := ScoreSalience(stale, w)
	if staleFactors.Novelty >= freshFactors.Novelty {
		t.Errorf("repeated topic should score less novel: fresh=%.3f stale=%.3f", freshFactors.Novelty, staleFactors.Novelty)
	}
}

func TestScoreSalienceRelevanceMatchesContext(t *testing.T) {
	w := DefaultSalienceWeights()
	in := SalienceInput{
		Features:      ExtractedFeatures{People: []string{"Bob"}},
		ContextPeople: []string{"bob"},
	}
	_, factors := ScoreSalience(in, w)
	if factors.Relevance != 1 {
		t.Errorf("expected full relevance on case-insensitive person match, got %.3f", factors.Relevance)
	}
}

func TestScoreSalienceConsequentialCapsAtOne(t *testing.T) {
	w := DefaultSalienceWeights()
	in := SalienceInput{
		Features: ExtractedFeatures{
			Commitments:   make([]Commitment, 10),
			Events:        make([]TimelineFact, 10),
			Sensitivities: make([]string, 10),
		},
	}
	_, factors := ScoreSalience(in, w)
	if factors.Consequential != 1 {
		t.Errorf("expected consequential to cap at 1, got %.3f", factors.Consequential)
	}
}

func TestScoreSalienceScoreBounded(t *testing.T) {
	w := SalienceWeights{Emotion: 1, Novelty: 1, Relevance: 1, Social: 1, Consequential: 1}
	in := SalienceInput{
		Text:     "furious devastated heartbroken",
		Features: ExtractedFeatures{People: []string{"a", "b", "c", "d"}, Commitments: make([]Commitment, 5)},
	}
	score, _ := ScoreSalience(in, w)
	if score < 0 || score > 100 {
		t.Errorf("score out of bounds: %d", score)
	}
}

func TestOverlapRatioEmpty(t *testing.T) {
	if r := overlapRatio(nil, []string{"a"}); r != 0 {
		t.Errorf("expected 0 for empty a, got %.3f", r)
	}
}

func TestOverlapRatioFullMatch(t *testing.T) {
	r := overlapRatio([]string{"a", "b"}, []string{"a", "b", "c"})
	if math.Abs(r-1.0) > 0.001 {
		t.Errorf("expected 1.0, got %.3f", r)
	}
}

func TestEmotionScoreNoHits(t *testing.T) {
	if s := emotionScore("the quick brown fox"); s != 0 {
		t.Errorf("expected 0, got %.3f", s)
	}
}
