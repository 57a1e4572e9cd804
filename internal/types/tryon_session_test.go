package types

import "testing"

func TestTryOnStatusTerminal(t *testing.T) {
	for _, s := range []TryOnStatus{TryOnStatusCompleted, TryOnStatusFailed, TryOnStatusCancelled} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []TryOnStatus{TryOnStatusPending, TryOnStatusInProgress} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestTryOnStatusTransitions(t *testing.T) {
	if !TryOnStatusPending.CanTransition(TryOnStatusInProgress) {
		t.Fatalf("pending -> in_progress should be allowed")
	}
	if !TryOnStatusInProgress.CanTransition(TryOnStatusCompleted) {
		t.Fatalf("in_progress -> completed should be allowed")
	}
	if !TryOnStatusInProgress.CanTransition(TryOnStatusFailed) {
		t.Fatalf("in_progress -> failed should be allowed")
	}
	if !TryOnStatusPending.CanTransition(TryOnStatusCancelled) {
		t.Fatalf("pending -> cancelled should be allowed")
	}
	if !TryOnStatusInProgress.CanTransition(TryOnStatusCancelled) {
		t.Fatalf("in_progress -> cancelled should be allowed")
	}
	if TryOnStatusCompleted.CanTransition(TryOnStatusFailed) {
		t.Fatalf("no transition may leave a terminal state")
	}
	if TryOnStatusCancelled.CanTransition(TryOnStatusInProgress) {
		t.Fatalf("no transition may leave a terminal state")
	}
	if TryOnStatusInProgress.CanTransition(TryOnStatusPending) {
		t.Fatalf("in_progress -> pending should not be allowed")
	}
}
