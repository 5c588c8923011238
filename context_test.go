package memento

import (
	"context"
	"testing"
	"time"
)

func testMementoWithDefaults(t *testing.T) *Memento {
	t.Helper()
	s := testStore(t)
	cfg := Config{}
	cfg.ApplyDefaults()
	return &Memento{store: s, locks: newKeyLock(), config: cfg, extractor: newHeuristicExtractor()}
}

func strPtr(s string) *string { return &s }

func TestSetContextRequiresDeviceID(t *testing.T) {
	m := testMementoWithDefaults(t)
	_, err := m.SetContext(context.Background(), "alice", SetContextInput{}, "", DeviceMobile)
	if !IsKind(err, KindInvalidInput) {
		t.Errorf("expected invalid-input error, got %v", err)
	}
}

func TestSetContextCreatesFrameAndSnapshot(t *testing.T) {
	m := testMementoWithDefaults(t)
	in := SetContextInput{Location: strPtr("office"), People: []string{"Bob"}}
	snap, err := m.SetContext(context.Background(), "alice", in, "phone1", DeviceMobile)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.AboutPeople) != 1 || snap.AboutPeople[0] != "Bob" {
		t.Errorf("expected snapshot to reflect set people, got %+v", snap)
	}

	frame, err := m.store.GetContextFrame("alice", "phone1")
	if err != nil {
		t.Fatal(err)
	}
	if frame.Location.Value != "office" {
		t.Errorf("expected location persisted, got %q", frame.Location.Value)
	}
}

func TestWhatMattersNowRequiresDeviceID(t *testing.T) {
	m := testMementoWithDefaults(t)
	_, _, err := m.WhatMattersNow("alice", "")
	if !IsKind(err, KindInvalidInput) {
		t.Errorf("expected invalid-input error, got %v", err)
	}
}

func TestClearContextWithNoDeviceIsNoop(t *testing.T) {
	m := testMementoWithDefaults(t)
	if err := m.ClearContext("alice", nil, ""); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestClearContextClearsSpecificDimension(t *testing.T) {
	m := testMementoWithDefaults(t)
	in := SetContextInput{Location: strPtr("office"), Mood: strPtr("happy")}
	if _, err := m.SetContext(context.Background(), "alice", in, "phone1", DeviceMobile); err != nil {
		t.Fatal(err)
	}
	if err := m.ClearContext("alice", []string{"location"}, "phone1"); err != nil {
		t.Fatal(err)
	}
	frame, err := m.store.GetContextFrame("alice", "phone1")
	if err != nil {
		t.Fatal(err)
	}
	if frame.Location.Value != "" {
		t.Errorf("expected location cleared, got %q", frame.Location.Value)
	}
	if frame.Mood.Value != "happy" {
		t.Errorf("expected mood untouched, got %q", frame.Mood.Value)
	}
}

func TestGetUnifiedUserContextFusesDevices(t *testing.T) {
	m := testMementoWithDefaults(t)
	if _, err := m.SetContext(context.Background(), "alice", SetContextInput{Location: strPtr("office"), People: []string{"Bob"}}, "desktop1", DeviceDesktop); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SetContext(context.Background(), "alice", SetContextInput{Location: strPtr("home"), People: []string{"Carol"}}, "phone1", DeviceMobile); err != nil {
		t.Fatal(err)
	}

	uc, err := m.GetUnifiedUserContext("alice")
	if err != nil {
		t.Fatal(err)
	}
	if uc.Location != "home" {
		t.Errorf("expected mobile to win location tiebreak, got %q", uc.Location)
	}
	if len(uc.People) != 2 {
		t.Errorf("expected people union of 2, got %+v", uc.People)
	}
}

func TestListDevicesReturnsAllFrames(t *testing.T) {
	m := testMementoWithDefaults(t)
	if _, err := m.SetContext(context.Background(), "alice", SetContextInput{Location: strPtr("office")}, "d1", DeviceDesktop); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SetContext(context.Background(), "alice", SetContextInput{Location: strPtr("home")}, "d2", DeviceMobile); err != nil {
		t.Fatal(err)
	}
	devices, err := m.ListDevices("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Errorf("expected 2 devices, got %d", len(devices))
	}
}

func TestTimeBucketForBoundaries(t *testing.T) {
	cases := map[int]TimeBucket{
		6: BucketMorning, 13: BucketAfternoon, 18: BucketEvening, 23: BucketNight,
	}
	for hour, want := range cases {
		tm := time.Date(2026, 7, 30, hour, 0, 0, 0, time.UTC)
		if got := timeBucketFor(tm); got != want {
			t.Errorf("hour %d: expected %s, got %s", hour, want, got)
		}
	}
}

func TestLocationBucketNormalizes(t *testing.T) {
	if locationBucket(" Office ") != "office" {
		t.Errorf("expected normalized bucket")
	}
}
