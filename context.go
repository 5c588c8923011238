package memento

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SetContextInput is the caller-supplied subset of a frame's dimensions;
// zero values mean "leave unchanged".
type SetContextInput struct {
	Location *string
	People   []string
	Activity *string
	Mood     *string
	Calendar []CalendarEvent
}

// SetContext updates only the provided dimensions of a (user, device) frame,
// registering the device if new, evicting the oldest frame past the
// per-user device cap, and returns the snapshot computed immediately after
// the update (spec.md §4.6).
func (m *Memento) SetContext(ctx context.Context, user string, in SetContextInput, deviceID string, deviceType DeviceType) (RelevanceSnapshot, error) {
	if deviceID == "" {
		return RelevanceSnapshot{}, errInvalidInput("memento.SetContext", "deviceId is required")
	}

	var snap RelevanceSnapshot
	var opErr error

	m.locks.withKey(frameKey(user, deviceID), func() {
		frame, err := m.store.GetContextFrame(user, deviceID)
		isNew := false
		if err != nil {
			isNew = true
			frame = ContextFrame{User: user, DeviceID: deviceID, DeviceType: deviceType}
		}

		now := time.Now()
		if in.Location != nil {
			frame.Location = ContextDimension{Value: *in.Location, UserSet: true, SetAt: now}
		}
		if in.People != nil {
			frame.People = in.People
		}
		if in.Activity != nil {
			frame.Activity = ContextDimension{Value: *in.Activity, UserSet: true, SetAt: now}
		}
		if in.Mood != nil {
			frame.Mood = ContextDimension{Value: *in.Mood, UserSet: true, SetAt: now}
		}
		if in.Calendar != nil {
			frame.Calendar = in.Calendar
		}
		frame.DeviceType = deviceType
		frame.LastUpdated = now

		if isNew {
			count, _ := m.store.CountFrames(user)
			if count >= m.config.MaxDevicesPerUser {
				if err := m.store.DeleteOldestFrame(user); err != nil {
					logf("context", "evict oldest frame failed: %v", err)
				}
			}
		}

		if opErr = m.store.PutContextFrame(frame); opErr != nil {
			return
		}

		m.emitObservation(user, frame, now)
		snap, opErr = m.relevanceSnapshot(user, frame.People)
	})

	return snap, opErr
}

// relevanceSnapshot gathers open loops, upcoming events, and high-salience
// memories for the people currently in frame (spec.md §4.6).
func (m *Memento) relevanceSnapshot(user string, people []string) (RelevanceSnapshot, error) {
	var snap RelevanceSnapshot
	snap.AboutPeople = people

	now := time.Now()
	horizon := now.AddDate(0, 0, 14)

	topicSeen := map[string]bool{}
	sensSeen := map[string]bool{}

	for _, person := range people {
		events, err := m.store.EventsForUser(user, now, horizon, person)
		if err == nil && len(events) > 0 {
			for _, e := range events {
				if !topicSeen[e.Category] && e.Category != "" {
					topicSeen[e.Category] = true
					snap.SuggestedTopics = append(snap.SuggestedTopics, e.Category)
				}
			}
		}

		rel, err := m.store.GetRelationship(user, person)
		if err == nil {
			for _, s := range rel.Sensitivities {
				if !sensSeen[s] {
					sensSeen[s] = true
					snap.Sensitivities = append(snap.Sensitivities, s)
				}
			}
		}

		mems, err := m.store.FindMemories(MemoryFilter{User: user, Person: person, Limit: 5})
		if err == nil {
			for _, mm := range mems {
				for _, t := range mm.Features.Topics {
					if !topicSeen[t] {
						topicSeen[t] = true
						snap.SuggestedTopics = append(snap.SuggestedTopics, t)
					}
				}
			}
		}
	}

	return snap, nil
}

// WhatMattersNow returns a device frame plus its relevance snapshot. A
// caller omitting deviceID gets nothing back — clients must set context
// first (spec.md §4.6).
func (m *Memento) WhatMattersNow(user, deviceID string) (ContextFrame, RelevanceSnapshot, error) {
	if deviceID == "" {
		return ContextFrame{}, RelevanceSnapshot{}, errInvalidInput("memento.WhatMattersNow", "deviceId is required")
	}
	frame, err := m.store.GetContextFrame(user, deviceID)
	if err != nil {
		return ContextFrame{}, RelevanceSnapshot{}, err
	}
	snap, err := m.relevanceSnapshot(user, frame.People)
	return frame, snap, err
}

// GetUnifiedUserContext fuses every active device frame (lastUpdated within
// unifiedFusionWindowMin) into one view (spec.md §4.6, brain-inspired fusion
// rule): mobile wins location/mood ties, activity is most-recently-set,
// people is the union, primaryDevice is most-recently-active with device
// priority order as the tiebreak.
func (m *Memento) GetUnifiedUserContext(user string) (UnifiedUserContext, error) {
	frames, err := m.store.FramesForUser(user)
	if err != nil {
		return UnifiedUserContext{}, err
	}

	cutoff := time.Now().Add(-time.Duration(m.config.UnifiedFusionWindowMin) * time.Minute)
	var active []ContextFrame
	for _, f := range frames {
		if f.LastUpdated.After(cutoff) {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return UnifiedUserContext{}, nil
	}

	var uc UnifiedUserContext
	peopleSet := map[string]bool{}

	var bestLocation, bestMood ContextFrame
	var bestLocationSet, bestMoodSet bool
	var bestActivity ContextFrame
	var bestActivitySet bool
	var primary ContextFrame
	var primarySet bool

	for _, f := range active {
		for _, p := range f.People {
			peopleSet[p] = true
		}

		if f.Location.Value != "" {
			if !bestLocationSet || devicePriority(f.DeviceType) < devicePriority(bestLocation.DeviceType) ||
				(devicePriority(f.DeviceType) == devicePriority(bestLocation.DeviceType) && f.Location.SetAt.After(bestLocation.Location.SetAt)) {
				bestLocation = f
				bestLocationSet = true
			}
		}

		if f.Mood.Value != "" {
			if !bestMoodSet || devicePriority(f.DeviceType) < devicePriority(bestMood.DeviceType) ||
				(devicePriority(f.DeviceType) == devicePriority(bestMood.DeviceType) && f.Mood.SetAt.After(bestMood.Mood.SetAt)) {
				bestMood = f
				bestMoodSet = true
			}
		}

		if f.Activity.Value != "" {
			if !bestActivitySet || f.Activity.SetAt.After(bestActivity.Activity.SetAt) {
				bestActivity = f
				bestActivitySet = true
			}
		}

		if !primarySet || f.LastUpdated.After(primary.LastUpdated) ||
			(f.LastUpdated.Equal(primary.LastUpdated) && devicePriority(f.DeviceType) < devicePriority(primary.DeviceType)) {
			primary = f
			primarySet = true
		}
	}

	if bestLocationSet {
		uc.Location = bestLocation.Location.Value
	}
	if bestMoodSet {
		uc.Mood = bestMood.Mood.Value
	}
	if bestActivitySet {
		uc.Activity = bestActivity.Activity.Value
	}
	for p := range peopleSet {
		uc.People = append(uc.People, p)
	}
	if primarySet {
		uc.PrimaryDevice = primary.DeviceID
	}
	for _, f := range active {
		uc.ActiveDevices = append(uc.ActiveDevices, f.DeviceID)
	}

	return uc, nil
}

// ClearContext clears dimensions on a device frame, or (with no deviceID) a
// synthetic user-level aggregate that never touches device frames
// (spec.md §4.6).
func (m *Memento) ClearContext(user string, dimensions []string, deviceID string) error {
	if deviceID == "" {
		// The user-level aggregate is derived (GetUnifiedUserContext), not
		// stored, so there is nothing durable to clear.
		return nil
	}

	var opErr error
	m.locks.withKey(frameKey(user, deviceID), func() {
		frame, err := m.store.GetContextFrame(user, deviceID)
		if err != nil {
			opErr = err
			return
		}
		clearAll := len(dimensions) == 0
		for _, d := range dimensions {
			switch strings.ToLower(d) {
			case "location":
				frame.Location = ContextDimension{}
			case "people":
				frame.People = nil
			case "activity":
				frame.Activity = ContextDimension{}
			case "mood":
				frame.Mood = ContextDimension{}
			case "calendar":
				frame.Calendar = nil
			}
		}
		if clearAll {
			frame.Location = ContextDimension{}
			frame.People = nil
			frame.Activity = ContextDimension{}
			frame.Mood = ContextDimension{}
			frame.Calendar = nil
		}
		frame.LastUpdated = time.Now()
		opErr = m.store.PutContextFrame(frame)
	})
	return opErr
}

// ListDevices returns every registered device frame for a user.
func (m *Memento) ListDevices(user string) ([]ContextFrame, error) {
	return m.store.FramesForUser(user)
}

// emitObservation records a ContextObservation whenever a frame changes,
// feeding the anticipation engine (spec.md §4.7).
func (m *Memento) emitObservation(user string, frame ContextFrame, now time.Time) {
	recurringTitle := ""
	if len(frame.Calendar) > 0 {
		recurringTitle = frame.Calendar[0].Title
	}
	obs := ContextObservation{
		ID:                  uuid.NewString(),
		User:                user,
		ObservedAt:          now,
		TimeOfDay:           timeBucketFor(now),
		DayOfWeek:           now.Weekday(),
		LocationBucket:      locationBucket(frame.Location.Value),
		People:              frame.People,
		Activity:            frame.Activity.Value,
		RecurringEventTitle: recurringTitle,
	}
	if err := m.store.InsertObservation(obs); err != nil {
		logf("context", "insert observation failed: %v", err)
	}
	m.obsSink.publish(context.Background(), obs)
}

func timeBucketFor(t time.Time) TimeBucket {
	h := t.Hour()
	switch {
	case h >= 5 && h < 12:
		return BucketMorning
	case h >= 12 && h < 17:
		return BucketAfternoon
	case h >= 17 && h < 21:
		return BucketEvening
	default:
		return BucketNight
	}
}

// locationBucket hashes a free-text location into a low-cardinality bucket.
// A plain lowercase/trim is enough at this scale: it groups "Office",
// "office ", "OFFICE" without needing a real geocoder.
func locationBucket(loc string) string {
	return strings.ToLower(strings.TrimSpace(loc))
}
