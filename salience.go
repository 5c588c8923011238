package memento

import (
	"math"
	"strings"
)

// SalienceWeights controls how the five factors below combine into a single
// 0-100 salience score. Shape mirrors the teacher's CompositeScore formula
// (scoring.go): a fixed weighted sum of bounded [0,1] factors.
type SalienceWeights struct {
	Emotion       float64
	Novelty       float64
	Relevance     float64
	Social        float64
	Consequential float64
}

// DefaultSalienceWeights returns the standard factor weighting (spec.md §4.3).
func DefaultSalienceWeights() SalienceWeights {
	return SalienceWeights{
		Emotion:       0.30,
		Novelty:       0.20,
		Relevance:     0.20,
		Social:        0.15,
		Consequential: 0.15,
	}
}

var emotionLexicon = map[string]float64{
	"love": 1, "hate": 1, "furious": 1, "terrified": 1, "devastated": 1,
	"thrilled": 1, "excited": 0.8, "worried": 0.7, "anxious": 0.7, "scared": 0.8,
	"happy": 0.6, "sad": 0.6, "angry": 0.8, "grateful": 0.6, "heartbroken": 1,
	"proud": 0.6, "ashamed": 0.7, "disappointed": 0.6, "nervous": 0.6, "relieved": 0.5,
}

// emotionScore returns the intensity-weighted sum of lexicon hits divided
// by the square root of the word count, capped at 1. Deterministic: purely
// a function of text.
func emotionScore(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()")
		if v, ok := emotionLexicon[w]; ok {
			sum += v
		}
	}
	score := sum / math.Sqrt(float64(len(words)))
	if score > 1 {
		score = 1
	}
	return score
}

// overlapRatio returns |a ∩ b| / max(|a|,1), the fraction of a's items that
// also appear in b.
func overlapRatio(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[strings.ToLower(v)] = true
	}
	var hit int
	for _, v := range a {
		if set[strings.ToLower(v)] {
			hit++
		}
	}
	return float64(hit) / float64(len(a))
}

// SalienceInput bundles everything ScoreSalience needs to stay a pure function.
type SalienceInput struct {
	Text          string
	Features      ExtractedFeatures
	RecentTopics  []string // topics seen across the user's last N memories
	ContextTopics []string // topics/people from the active context frame
	ContextPeople []string
}

// ScoreSalience computes the five-factor breakdown and the composite 0-100
// score. Deterministic and side-effect free: identical input always yields
// an identical result, per spec.md §8.
func ScoreSalience(in SalienceInput, weights SalienceWeights) (int, SalienceFactors) {
	topics := in.Features.Topics
	people := in.Features.People

	emotion := emotionScore(in.Text)

	novelty := 1 - overlapRatio(topics, in.RecentTopics)
	if len(topics) == 0 {
		novelty = 0.5 // neither novel nor stale when there's nothing to compare
	}

	relevance := math.Max(overlapRatio(topics, in.ContextTopics), overlapRatio(people, in.ContextPeople))

	social := 0.0
	if len(people) > 0 {
		social = math.Min(1, float64(len(people))/3.0)
	}
	for range in.Features.Commitments {
		social = math.Min(1, social+0.2)
	}

	consequential := 0.0
	consequential += math.Min(1, float64(len(in.Features.Commitments))*0.3)
	consequential += math.Min(1, float64(len(in.Features.Events))*0.2)
	consequential += math.Min(1, float64(len(in.Features.Sensitivities))*0.25)
	consequential = math.Min(1, consequential)

	factors := SalienceFactors{
		Emotion:       emotion,
		Novelty:       novelty,
		Relevance:     relevance,
		Social:        social,
		Consequential: consequential,
	}

	composite := weights.Emotion*emotion + weights.Novelty*novelty + weights.Relevance*relevance +
		weights.Social*social + weights.Consequential*consequential

	score := int(math.Round(composite * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, factors
}
