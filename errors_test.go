package memento

import (
	"errors"
	"testing"
)

func TestIsKindMatchesOnKindOnly(t *testing.T) {
	err := errNotFound("store.getMemory", "memory not found")
	if !IsKind(err, KindNotFound) {
		t.Errorf("expected KindNotFound match")
	}
	if IsKind(err, KindConflict) {
		t.Errorf("expected no match for a different kind")
	}
}

func TestIsKindFalseForPlainError(t *testing.T) {
	if IsKind(errors.New("boom"), KindInternal) {
		t.Errorf("expected non-*Error values to never match")
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := errDeadline("store.insertMemory", cause)
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause to be unwrappable")
	}
}

func TestErrorIsMatchesByKindAcrossInstances(t *testing.T) {
	a := errConflict("store.insertMemory", "duplicate id")
	b := &Error{Kind: KindConflict}
	if !errors.Is(a, b) {
		t.Errorf("expected errors.Is to match same-kind *Error instances")
	}
}
