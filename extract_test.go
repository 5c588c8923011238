package memento

import (
	"testing"
	"time"
)

func TestExtractPeopleSkipsCommonWords(t *testing.T) {
	features := newHeuristicExtractor().Extract("Bob and Monday went to the store")
	var found bool
	for _, p := range features.People {
		if p == "Monday" {
			t.Errorf("expected Monday to be filtered as a common capitalized word")
		}
		if p == "Bob" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Bob in extracted people, got %v", features.People)
	}
}

func TestExtractTopicsFollowsCue(t *testing.T) {
	features := newHeuristicExtractor().Extract("I've been working on taxes all week")
	if len(features.Topics) == 0 || features.Topics[0] != "taxes" {
		t.Errorf("expected topic 'taxes', got %v", features.Topics)
	}
}

func TestExtractCommitmentsDetectsOwner(t *testing.T) {
	features := newHeuristicExtractor().Extract("She promised to send the contract by next Friday")
	if len(features.Commitments) != 1 {
		t.Fatalf("expected one commitment, got %d", len(features.Commitments))
	}
	if features.Commitments[0].Owner != OwnerThem {
		t.Errorf("expected owner=them, got %s", features.Commitments[0].Owner)
	}
}

func TestExtractCommitmentsDefaultsToSelf(t *testing.T) {
	features := newHeuristicExtractor().Extract("I need to call the dentist tomorrow")
	if len(features.Commitments) != 1 {
		t.Fatalf("expected one commitment, got %d", len(features.Commitments))
	}
	if features.Commitments[0].Owner != OwnerSelf {
		t.Errorf("expected owner=self, got %s", features.Commitments[0].Owner)
	}
}

func TestExtractCommitmentsCapturesOtherPartyAndDueDate(t *testing.T) {
	features := newHeuristicExtractor().Extract("I owe Dan the Q2 draft by Friday")
	if len(features.Commitments) != 1 {
		t.Fatalf("expected one commitment, got %d", len(features.Commitments))
	}
	c := features.Commitments[0]
	if c.OtherParty != "Dan" {
		t.Errorf("expected other party Dan, got %q", c.OtherParty)
	}
	if c.DueDate == nil {
		t.Fatalf("expected a resolved due date")
	}
	if c.DueDate.Weekday() != time.Friday {
		t.Errorf("expected due date to fall on a Friday, got %s", c.DueDate.Weekday())
	}
	if !c.DueDate.After(time.Now()) {
		t.Errorf("expected due date to be in the future, got %s", c.DueDate)
	}
}

func TestExtractCommitmentsOweCueFires(t *testing.T) {
	features := newHeuristicExtractor().Extract("I owe Priya a review of the budget")
	if len(features.Commitments) != 1 {
		t.Fatalf("expected the 'owe' cue to register a commitment, got %d", len(features.Commitments))
	}
}

func TestExtractEventsRequiresDateCue(t *testing.T) {
	withDate := newHeuristicExtractor().Extract("Let's meet next week to plan")
	withoutDate := newHeuristicExtractor().Extract("Let's meet sometime to plan")
	if len(withDate.Events) != 1 {
		t.Errorf("expected one event with a date cue, got %d", len(withDate.Events))
	}
	if len(withoutDate.Events) != 0 {
		t.Errorf("expected no events without a date cue, got %d", len(withoutDate.Events))
	}
}

func TestExtractSensitivitiesMatchesLexicon(t *testing.T) {
	features := newHeuristicExtractor().Extract("They were diagnosed last month and started therapy")
	if len(features.Sensitivities) < 2 {
		t.Errorf("expected at least 2 sensitivities, got %v", features.Sensitivities)
	}
}

func TestExtractSensitivitiesEmptyForNeutralText(t *testing.T) {
	features := newHeuristicExtractor().Extract("We had a nice walk in the park")
	if len(features.Sensitivities) != 0 {
		t.Errorf("expected no sensitivities, got %v", features.Sensitivities)
	}
}
