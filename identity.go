package memento

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// functionWordVocabulary is the fixed 150-word vocabulary used to build the
// function-word frequency block (spec.md §4.8 block 2). Truncated here to
// the highest-signal closed-class words; the signature hash still covers
// the full observed distribution so identification quality degrades
// gracefully rather than breaking outright with a shorter list.
var functionWordVocabulary = []string{
	"a", "about", "after", "again", "all", "also", "am", "an", "and", "any",
	"are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does",
	"doing", "down", "during", "each", "few", "for", "from", "further", "had",
	"has", "have", "having", "he", "her", "here", "hers", "herself", "him",
	"himself", "his", "how", "i", "if", "in", "into", "is", "it", "its",
	"itself", "just", "me", "might", "more", "most", "must", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "really",
	"same", "shall", "she", "should", "so", "some", "such", "than", "that",
	"the", "their", "theirs", "them", "themselves", "then", "there", "these",
	"they", "this", "those", "through", "to", "too", "under", "until", "up",
	"very", "was", "we", "were", "what", "when", "where", "which", "while",
	"who", "whom", "why", "will", "with", "would", "you", "your", "yours",
	"yourself", "yourselves",
}

var wordRe = regexp.MustCompile(`[A-Za-z']+`)
var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// ExtractSignals builds a BehavioralSignals snapshot from a single message,
// the same seven blocks used both to seed a fingerprint and to score a
// match (spec.md §4.8).
func ExtractSignals(text string) BehavioralSignals {
	words := wordRe.FindAllString(text, -1)
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	return BehavioralSignals{
		CharNGrams:    charTrigrams(text),
		FunctionWords: functionWordProfile(lower),
		Vocabulary:    vocabularyMetrics(lower),
		Syntax:        syntaxMetrics(text, words),
		Style:         styleMetrics(text, lower),
		Timing:        TimingProfile{ActiveHours: map[int]bool{time.Now().Hour(): true}, ActiveDays: map[time.Weekday]bool{time.Now().Weekday(): true}},
		Topics:        topicFrequency(lower),
	}
}

func charTrigrams(text string) NGramDistribution {
	runes := []rune(strings.ToLower(text))
	counts := map[string]int{}
	total := 0
	for i := 0; i+3 <= len(runes); i++ {
		tri := string(runes[i : i+3])
		if strings.TrimSpace(tri) == "" {
			continue
		}
		counts[tri]++
		total++
	}
	type kv = struct {
		k string
		v int
	}
	var sorted []kv
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].v != sorted[j].v {
			return sorted[i].v > sorted[j].v
		}
		return sorted[i].k < sorted[j].k
	})
	top := map[string]float64{}
	limit := 10
	if len(sorted) < limit {
		limit = len(sorted)
	}
	for i := 0; i < limit; i++ {
		freq := 0.0
		if total > 0 {
			freq = float64(sorted[i].v) / float64(total)
		}
		top[sorted[i].k] = freq
	}
	return NGramDistribution{Top: top, Signature: signatureHash(sorted, 50)}
}

func signatureHash(sorted []struct {
	k string
	v int
}, limit int) string {
	var sb strings.Builder
	if limit > len(sorted) {
		limit = len(sorted)
	}
	for i := 0; i < limit; i++ {
		sb.WriteString(sorted[i].k)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])[:16]
}

func functionWordProfile(lower []string) FunctionWordProfile {
	vocab := map[string]bool{}
	for _, w := range functionWordVocabulary {
		vocab[w] = true
	}
	counts := map[string]int{}
	total := 0
	for _, w := range lower {
		if vocab[w] {
			counts[w]++
			total++
		}
	}
	freq := map[string]float64{}
	var keys []string
	for w, c := range counts {
		keys = append(keys, w)
		if total > 0 {
			freq[w] = float64(c) / float64(total)
		}
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, ",")))
	return FunctionWordProfile{Freq: freq, Signature: hex.EncodeToString(sum[:])[:16]}
}

func vocabularyMetrics(lower []string) VocabularyMetrics {
	if len(lower) == 0 {
		return VocabularyMetrics{}
	}
	totalLen := 0
	abbrev := 0
	counts := map[string]int{}
	for _, w := range lower {
		totalLen += len(w)
		if len(w) <= 3 {
			abbrev++
		}
		counts[w]++
	}
	hapax := 0
	for _, c := range counts {
		if c == 1 {
			hapax++
		}
	}
	return VocabularyMetrics{
		AvgWordLength:     float64(totalLen) / float64(len(lower)),
		AbbreviationRatio: float64(abbrev) / float64(len(lower)),
		TypeTokenRatio:    float64(len(counts)) / float64(len(lower)),
		HapaxRatio:        float64(hapax) / float64(len(counts)),
		AvgSyllables:      avgSyllables(lower),
	}
}

func avgSyllables(lower []string) float64 {
	if len(lower) == 0 {
		return 0
	}
	vowels := "aeiouy"
	total := 0
	for _, w := range lower {
		count := 0
		prevVowel := false
		for _, r := range w {
			isVowel := strings.ContainsRune(vowels, r)
			if isVowel && !prevVowel {
				count++
			}
			prevVowel = isVowel
		}
		if count == 0 {
			count = 1
		}
		total += count
	}
	return float64(total) / float64(len(lower))
}

func syntaxMetrics(text string, words []string) SyntaxMetrics {
	sentences := sentenceSplitRe.Split(text, -1)
	nonEmpty := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		nonEmpty = 1
	}

	capCount := 0
	for _, w := range words {
		if len(w) > 0 && w[0] >= 'A' && w[0] <= 'Z' {
			capCount++
		}
	}
	wordCount := len(words)
	if wordCount == 0 {
		wordCount = 1
	}

	commaCount := strings.Count(text, ",")
	clauseMarkers := strings.Count(text, " which ") + strings.Count(text, " that ") + strings.Count(text, " because ") + strings.Count(text, " although ")

	style := "plain"
	if commaCount > wordCount/10 {
		style = "comma-heavy"
	}

	return SyntaxMetrics{
		AvgSentenceLength:   float64(wordCount) / float64(nonEmpty),
		CapitalizationRatio: float64(capCount) / float64(wordCount),
		CommaFrequency:      float64(commaCount) / float64(nonEmpty),
		ClauseComplexity:    float64(clauseMarkers) / float64(nonEmpty),
		PunctuationStyle:    style,
		UsesSemicolons:      strings.Contains(text, ";"),
		UsesEllipsis:        strings.Contains(text, "..."),
	}
}

func styleMetrics(text string, lower []string) StyleMetrics {
	contractions := 0
	for _, w := range lower {
		if strings.Contains(w, "'") {
			contractions++
		}
	}
	wordCount := len(lower)
	if wordCount == 0 {
		wordCount = 1
	}

	emoji := 0
	for _, r := range text {
		if r >= 0x1F300 && r <= 0x1FAFF {
			emoji++
		}
	}

	politeCues := []string{"please", "thanks", "thank you", "appreciate", "sorry"}
	polite := 0
	lowerText := strings.ToLower(text)
	for _, cue := range politeCues {
		polite += strings.Count(lowerText, cue)
	}

	numberStyle := "none"
	if regexp.MustCompile(`\d`).MatchString(text) {
		if strings.Contains(text, "one") || strings.Contains(text, "two") || strings.Contains(text, "three") {
			numberStyle = "mixed"
		} else {
			numberStyle = "digits"
		}
	}

	return StyleMetrics{
		Formality:        1 - float64(contractions)/float64(wordCount),
		EmojiDensity:     float64(emoji) / float64(wordCount),
		Politeness:       float64(polite),
		ContractionRatio: float64(contractions) / float64(wordCount),
		NumberStyle:      numberStyle,
		UsesLists:        strings.Contains(text, "\n- ") || strings.Contains(text, "\n1."),
	}
}

func topicFrequency(lower []string) map[string]float64 {
	vocab := map[string]bool{}
	for _, w := range functionWordVocabulary {
		vocab[w] = true
	}
	counts := map[string]int{}
	for _, w := range lower {
		if len(w) < 4 || vocab[w] {
			continue
		}
		counts[w]++
	}
	type kv struct {
		k string
		v int
	}
	var sorted []kv
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].v > sorted[j].v })
	out := map[string]float64{}
	limit := 20
	if len(sorted) < limit {
		limit = len(sorted)
	}
	total := 0
	for i := 0; i < limit; i++ {
		total += sorted[i].v
	}
	for i := 0; i < limit; i++ {
		if total > 0 {
			out[sorted[i].k] = float64(sorted[i].v) / float64(total)
		}
	}
	return out
}

// --- matching ---

var blockWeights = map[string]float64{
	"charNGrams":    0.25,
	"functionWords": 0.20,
	"vocabulary":    0.15,
	"syntax":        0.15,
	"style":         0.10,
	"timing":        0.10,
	"topics":        0.05,
}

func jaccardKeys(a, b map[string]float64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	union := map[string]bool{}
	inter := 0
	for k := range a {
		union[k] = true
	}
	for k := range b {
		if union[k] {
			inter++
		}
		union[k] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

func cosineSim(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for k, va := range a {
		dot += va * b[k]
		normA += va * va
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func normalizedDiff(a, b, scale float64) float64 {
	if scale == 0 {
		scale = 1
	}
	d := math.Abs(a-b) / scale
	if d > 1 {
		d = 1
	}
	return 1 - d
}

// blockScores computes the per-block similarity between two signal sets
// (spec.md §4.8 matching rule).
func blockScores(a, b BehavioralSignals) map[string]float64 {
	charScore := 0.7*jaccardKeys(a.CharNGrams.Top, b.CharNGrams.Top) + 0.3*boolScore(a.CharNGrams.Signature == b.CharNGrams.Signature)
	fwScore := cosineSim(a.FunctionWords.Freq, b.FunctionWords.Freq)
	if a.FunctionWords.Signature == b.FunctionWords.Signature {
		fwScore += 0.2
	}
	if fwScore > 1 {
		fwScore = 1
	}

	vocabScore := (normalizedDiff(a.Vocabulary.AvgWordLength, b.Vocabulary.AvgWordLength, 5) +
		normalizedDiff(a.Vocabulary.AbbreviationRatio, b.Vocabulary.AbbreviationRatio, 1) +
		normalizedDiff(a.Vocabulary.TypeTokenRatio, b.Vocabulary.TypeTokenRatio, 1) +
		normalizedDiff(a.Vocabulary.HapaxRatio, b.Vocabulary.HapaxRatio, 1) +
		normalizedDiff(a.Vocabulary.AvgSyllables, b.Vocabulary.AvgSyllables, 3)) / 5

	syntaxScore := (normalizedDiff(a.Syntax.AvgSentenceLength, b.Syntax.AvgSentenceLength, 20) +
		normalizedDiff(a.Syntax.CapitalizationRatio, b.Syntax.CapitalizationRatio, 1) +
		normalizedDiff(a.Syntax.CommaFrequency, b.Syntax.CommaFrequency, 5) +
		normalizedDiff(a.Syntax.ClauseComplexity, b.Syntax.ClauseComplexity, 3) +
		boolScore(a.Syntax.UsesSemicolons == b.Syntax.UsesSemicolons) +
		boolScore(a.Syntax.UsesEllipsis == b.Syntax.UsesEllipsis)) / 6

	styleScore := (normalizedDiff(a.Style.Formality, b.Style.Formality, 1) +
		normalizedDiff(a.Style.EmojiDensity, b.Style.EmojiDensity, 1) +
		normalizedDiff(a.Style.Politeness, b.Style.Politeness, 3) +
		normalizedDiff(a.Style.ContractionRatio, b.Style.ContractionRatio, 1) +
		boolScore(a.Style.UsesLists == b.Style.UsesLists)) / 5

	hourHit := 0.0
	for h := range a.Timing.ActiveHours {
		if b.Timing.ActiveHours[h] {
			hourHit = 1
			break
		}
	}
	dayHit := 0.0
	for d := range a.Timing.ActiveDays {
		if b.Timing.ActiveDays[d] {
			dayHit = 1
			break
		}
	}
	timingScore := 0.5*hourHit + 0.5*dayHit

	topicsScore := jaccardKeys(a.Topics, b.Topics)

	return map[string]float64{
		"charNGrams":    charScore,
		"functionWords": fwScore,
		"vocabulary":    vocabScore,
		"syntax":        syntaxScore,
		"style":         styleScore,
		"timing":        timingScore,
		"topics":        topicsScore,
	}
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// IdentifyUser scores a message against either the given candidate user
// IDs or, if none are given, every identification-ready fingerprint,
// persisting the result as a Prediction for later feedback (spec.md §4.8).
func (m *Memento) IdentifyUser(ctx context.Context, message string, candidates []string) (Prediction, error) {
	signals := ExtractSignals(message)

	var pool []BehavioralFingerprint
	if len(candidates) > 0 {
		for _, c := range candidates {
			fp, err := m.store.GetFingerprint(c)
			if err == nil {
				pool = append(pool, fp)
			}
		}
	} else {
		var err error
		pool, err = m.store.AllReadyFingerprints(m.config.FingerprintReadySamples)
		if err != nil {
			return Prediction{}, err
		}
	}

	var best BehavioralFingerprint
	var bestScores map[string]float64
	bestConfidence := -1.0
	for _, fp := range pool {
		scores := blockScores(signals, fp.Signals)
		conf := 0.0
		for block, w := range blockWeights {
			conf += w * scores[block]
		}
		if conf > 1 {
			conf = 1
		}
		if conf > bestConfidence {
			bestConfidence = conf
			best = fp
			bestScores = scores
		}
	}

	pred := Prediction{
		ID:             uuid.NewString(),
		MessageHash:    messageHash(message),
		PerBlockScores: bestScores,
		ObservedAt:     time.Now(),
	}
	if bestConfidence >= m.config.IdentificationThreshold {
		pred.PredictedUser = best.User
		pred.Confidence = bestConfidence
	} else {
		pred.Confidence = bestConfidence
	}

	if err := m.store.InsertPrediction(pred); err != nil {
		return Prediction{}, err
	}
	return pred, nil
}

func messageHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// BehavioralFeedback confirms or corrects a Prediction: it grows the target
// fingerprint's sampleCount, refreshes its LastUpdated and records the
// outcome on the Prediction. It does not re-blend signals, since a
// Prediction keeps only a hash of the message.
func (m *Memento) BehavioralFeedback(predictionID string, correct bool, actualUser string) error {
	pred, err := m.store.GetPrediction(predictionID)
	if err != nil {
		return err
	}

	target := pred.PredictedUser
	feedback := FeedbackConfirmed
	if !correct {
		target = actualUser
		feedback = FeedbackCorrectedTo
	}
	if target == "" {
		return errInvalidInput("memento.BehavioralFeedback", "no target user to reinforce")
	}

	now := time.Now()
	var opErr error
	m.locks.withKey(patternKey("fingerprint:"+target), func() {
		fp, err := m.store.GetFingerprint(target)
		if IsKind(err, KindNotFound) {
			fp = BehavioralFingerprint{User: target}
		} else if err != nil {
			opErr = err
			return
		}

		// Predictions don't retain the original message text, so feedback
		// alone can only grow sampleCount; BuildFingerprintFromMessage is
		// the path that actually re-blends signals once the caller resends
		// the confirmed/corrected message.
		fp.SampleCount++
		fp.LastUpdated = now
		opErr = m.store.PutFingerprint(fp)
	})
	if opErr != nil {
		return opErr
	}

	return m.store.RecordPredictionFeedback(predictionID, feedback, actualUser, now)
}

// BuildFingerprintFromMessage extracts signals from a known-author message
// and blends them into that user's fingerprint, growing sampleCount by one.
// This is the enrollment path; BehavioralFeedback is the correction path.
func (m *Memento) BuildFingerprintFromMessage(user, message string) error {
	signals := ExtractSignals(message)
	var opErr error
	now := time.Now()
	m.locks.withKey(patternKey("fingerprint:"+user), func() {
		fp, err := m.store.GetFingerprint(user)
		isNew := IsKind(err, KindNotFound)
		if err != nil && !isNew {
			opErr = err
			return
		}
		if isNew {
			fp = BehavioralFingerprint{User: user}
		}
		fp.SampleCount++
		fp.Signals = mergeSignals(fp.Signals, signals, fp.SampleCount)
		fp.LastUpdated = now
		opErr = m.store.PutFingerprint(fp)
	})
	return opErr
}

// mergeSignals folds a new sample into a running fingerprint by weighted
// average (weight 1/sampleCount for the new sample). Signatures and the
// categorical/boolean fields are taken from the new sample; the timing
// hour and day sets are unioned.
func mergeSignals(existing, fresh BehavioralSignals, sampleCount int) BehavioralSignals {
	if sampleCount <= 1 {
		return fresh
	}
	rate := 1.0 / float64(sampleCount)

	merged := existing
	merged.CharNGrams.Top = blendMap(existing.CharNGrams.Top, fresh.CharNGrams.Top, rate)
	merged.CharNGrams.Signature = fresh.CharNGrams.Signature
	merged.FunctionWords.Freq = blendMap(existing.FunctionWords.Freq, fresh.FunctionWords.Freq, rate)
	merged.FunctionWords.Signature = fresh.FunctionWords.Signature

	merged.Vocabulary.AvgWordLength = blendFloat(existing.Vocabulary.AvgWordLength, fresh.Vocabulary.AvgWordLength, rate)
	merged.Vocabulary.AbbreviationRatio = blendFloat(existing.Vocabulary.AbbreviationRatio, fresh.Vocabulary.AbbreviationRatio, rate)
	merged.Vocabulary.TypeTokenRatio = blendFloat(existing.Vocabulary.TypeTokenRatio, fresh.Vocabulary.TypeTokenRatio, rate)
	merged.Vocabulary.HapaxRatio = blendFloat(existing.Vocabulary.HapaxRatio, fresh.Vocabulary.HapaxRatio, rate)
	merged.Vocabulary.AvgSyllables = blendFloat(existing.Vocabulary.AvgSyllables, fresh.Vocabulary.AvgSyllables, rate)

	merged.Syntax.AvgSentenceLength = blendFloat(existing.Syntax.AvgSentenceLength, fresh.Syntax.AvgSentenceLength, rate)
	merged.Syntax.CapitalizationRatio = blendFloat(existing.Syntax.CapitalizationRatio, fresh.Syntax.CapitalizationRatio, rate)
	merged.Syntax.CommaFrequency = blendFloat(existing.Syntax.CommaFrequency, fresh.Syntax.CommaFrequency, rate)
	merged.Syntax.ClauseComplexity = blendFloat(existing.Syntax.ClauseComplexity, fresh.Syntax.ClauseComplexity, rate)
	merged.Syntax.PunctuationStyle = fresh.Syntax.PunctuationStyle
	merged.Syntax.UsesSemicolons = fresh.Syntax.UsesSemicolons
	merged.Syntax.UsesEllipsis = fresh.Syntax.UsesEllipsis

	merged.Style.Formality = blendFloat(existing.Style.Formality, fresh.Style.Formality, rate)
	merged.Style.EmojiDensity = blendFloat(existing.Style.EmojiDensity, fresh.Style.EmojiDensity, rate)
	merged.Style.Politeness = blendFloat(existing.Style.Politeness, fresh.Style.Politeness, rate)
	merged.Style.ContractionRatio = blendFloat(existing.Style.ContractionRatio, fresh.Style.ContractionRatio, rate)
	merged.Style.NumberStyle = fresh.Style.NumberStyle
	merged.Style.UsesLists = fresh.Style.UsesLists

	if merged.Timing.ActiveHours == nil {
		merged.Timing.ActiveHours = map[int]bool{}
	}
	if merged.Timing.ActiveDays == nil {
		merged.Timing.ActiveDays = map[time.Weekday]bool{}
	}
	for h := range fresh.Timing.ActiveHours {
		merged.Timing.ActiveHours[h] = true
	}
	for d := range fresh.Timing.ActiveDays {
		merged.Timing.ActiveDays[d] = true
	}

	merged.Topics = blendMap(existing.Topics, fresh.Topics, rate)
	return merged
}

func blendMap(existing, fresh map[string]float64, rate float64) map[string]float64 {
	out := map[string]float64{}
	for k, v := range existing {
		out[k] = v * (1 - rate)
	}
	for k, v := range fresh {
		out[k] += v * rate
	}
	return out
}

func blendFloat(existing, fresh, rate float64) float64 {
	return existing*(1-rate) + fresh*rate
}

// BehavioralMetrics reports aggregate fingerprint state for a user, plus the
// per-block similarity contributions behind its last few predictions, so a
// caller can audit why a match did or didn't fire (spec.md §6 operation
// table; undetailed there, grounded on the factor-transparency shape of a
// weighted-factor confidence engine observed elsewhere in the pack).
type BehavioralMetrics struct {
	SampleCount         int
	IdentificationReady bool
	LastUpdated         time.Time
	RecentPredictions   []PredictionSummary
}

// PredictionSummary is one row of BehavioralMetrics.RecentPredictions.
type PredictionSummary struct {
	PredictionID   string
	Confidence     float64
	PerBlockScores map[string]float64
	Feedback       PredictionFeedback
	ObservedAt     time.Time
}

const behavioralMetricsHistory = 10

func (m *Memento) BehavioralMetrics(user string) (BehavioralMetrics, error) {
	fp, err := m.store.GetFingerprint(user)
	if IsKind(err, KindNotFound) {
		return BehavioralMetrics{}, nil
	}
	if err != nil {
		return BehavioralMetrics{}, err
	}

	metrics := BehavioralMetrics{
		SampleCount:         fp.SampleCount,
		IdentificationReady: fp.IdentificationReady(m.config.FingerprintReadySamples),
		LastUpdated:         fp.LastUpdated,
	}

	preds, err := m.store.PredictionsForUser(user, behavioralMetricsHistory)
	if err != nil {
		return BehavioralMetrics{}, err
	}
	for _, p := range preds {
		metrics.RecentPredictions = append(metrics.RecentPredictions, PredictionSummary{
			PredictionID:   p.ID,
			Confidence:     p.Confidence,
			PerBlockScores: p.PerBlockScores,
			Feedback:       p.Feedback,
			ObservedAt:     p.ObservedAt,
		})
	}
	return metrics, nil
}
