package memento

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// startPatternWorker runs a background goroutine that buckets recent
// observations into feature-keyed patterns, same ticker/cancel shape as
// startForgetWorker (and, before it, the teacher's startDecayWorker).
func (m *Memento) startPatternWorker(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelPattern = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.runPatternFormationSweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

const patternMinSupport = 5

// RunPatternFormationSweep triggers an out-of-band pattern formation pass,
// for operators who don't want to wait for the next tick (e.g. the CLI's
// decay subcommand).
func (m *Memento) RunPatternFormationSweep() {
	m.runPatternFormationSweep()
}

// runPatternFormationSweep buckets every user's recent observations by
// featureKey, reinforcing an existing pattern or creating a new one per
// bucket with count >= patternMinSupport (spec.md §4.7).
func (m *Memento) runPatternFormationSweep() {
	users, err := m.store.DistinctObservationUsers()
	if err != nil {
		logf("pattern_worker", "list observation users failed: %v", err)
		return
	}

	for _, user := range users {
		if err := m.formPatternsForUser(user); err != nil {
			logf("pattern_worker", "pattern formation failed for %s: %v", user, err)
		}
	}
}

func (m *Memento) formPatternsForUser(user string) error {
	since := time.Now().AddDate(0, 0, -m.config.PatternFormationDays*2)
	observations, err := m.store.ObservationsSince(user, since)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		return nil
	}

	buckets := map[FeatureKey][]ContextObservation{}
	for _, o := range observations {
		key := FeatureKey{
			TimeOfDay:           o.TimeOfDay,
			DayOfWeek:           o.DayOfWeek,
			LocationBucket:      o.LocationBucket,
			RecurringEventTitle: o.RecurringEventTitle,
		}
		buckets[key] = append(buckets[key], o)
	}

	for key, obs := range buckets {
		if len(obs) < patternMinSupport {
			continue
		}
		if err := m.reinforcePattern(user, key, obs); err != nil {
			logf("pattern_worker", "reinforce pattern %+v failed: %v", key, err)
		}
	}
	return nil
}

func (m *Memento) reinforcePattern(user string, key FeatureKey, obs []ContextObservation) error {
	var opErr error
	m.locks.withKey(patternKey(user+":"+string(key.TimeOfDay)+":"+key.LocationBucket), func() {
		existing, err := m.store.FindPattern(user, key)
		isNew := IsKind(err, KindNotFound)
		if err != nil && !isNew {
			opErr = err
			return
		}

		now := time.Now()
		p := existing
		if isNew {
			p = Pattern{
				ID:              uuid.NewString(),
				User:            user,
				Key:             key,
				FirstObservedAt: obs[0].ObservedAt,
				Status:          PatternNew,
			}
		}

		p.Count = len(obs)
		p.Prototype = modePrototype(obs)
		p.LastObservedAt = obs[len(obs)-1].ObservedAt

		windowDays := now.Sub(p.FirstObservedAt).Hours() / 24.0
		ledger, err := m.store.PatternFeedbackLedger(p.ID)
		if err != nil {
			ledger = nil
		}
		p.FeedbackLedger = ledger
		p.Confidence = computeConfidence(p.Count, ledger)

		if p.Count >= patternMinSupport && windowDays >= float64(m.config.PatternFormationDays) {
			if p.Status == PatternNew || p.Status == PatternCandidate {
				p.Status = PatternFormed
				if p.FormedAt == nil {
					formedAt := now
					p.FormedAt = &formedAt
				}
			}
		} else if p.Status == PatternNew {
			p.Status = PatternCandidate
		}

		opErr = m.store.UpsertPattern(p)
	})
	return opErr
}

// modePrototype picks the most common value for each feature across a
// bucket's observations; people becomes the union since per-sample sets
// rarely repeat identically.
func modePrototype(obs []ContextObservation) ContextObservation {
	proto := obs[len(obs)-1]
	peopleSet := map[string]bool{}
	activityCounts := map[string]int{}
	for _, o := range obs {
		for _, p := range o.People {
			peopleSet[p] = true
		}
		if o.Activity != "" {
			activityCounts[o.Activity]++
		}
	}
	var people []string
	for p := range peopleSet {
		people = append(people, p)
	}
	proto.People = people

	best, bestCount := "", 0
	for act, c := range activityCounts {
		if c > bestCount {
			best, bestCount = act, c
		}
	}
	if best != "" {
		proto.Activity = best
	}
	return proto
}

// computeConfidence implements the count/feedback blend (spec.md §4.7).
func computeConfidence(count int, ledger []PatternFeedback) float64 {
	normalizedSupport := float64(count) / 30.0
	if normalizedSupport > 1 {
		normalizedSupport = 1
	}

	var used, ignored, dismissed int
	for _, f := range ledger {
		switch f.Action {
		case FeedbackUsed:
			used++
		case FeedbackIgnored:
			ignored++
		case FeedbackDismissed:
			dismissed++
		}
	}
	const epsilon = 0.001
	other := float64(ignored + dismissed)
	feedbackRatio := (float64(used) + 0.5*other) / (float64(used+ignored+dismissed) + epsilon)

	conf := 0.5*normalizedSupport + 0.5*feedbackRatio
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}
