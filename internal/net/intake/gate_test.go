package intake

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGateThrottlesPerKey(t *testing.T) {
	gate, err := NewGate(Config{SubmitsPerSecond: 1, SubmitBurst: 2, ExpectedSessions: 1000})
	if err != nil {
		t.Fatalf("NewGate returned error: %v", err)
	}

	if err := gate.Admit("client-a", "sess-1"); err != nil {
		t.Fatalf("first submission rejected: %v", err)
	}
	if err := gate.Admit("client-a", "sess-2"); err != nil {
		t.Fatalf("second submission rejected: %v", err)
	}
	if err := gate.Admit("client-a", "sess-3"); !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled after burst, got %v", err)
	}
	if err := gate.Admit("client-b", "sess-4"); err != nil {
		t.Fatalf("expected separate budget per key, got %v", err)
	}
}

func TestGateRejectsDuplicateSession(t *testing.T) {
	gate, err := NewGate(Config{ExpectedSessions: 1000, FalsePositiveRate: 0.001})
	if err != nil {
		t.Fatalf("NewGate returned error: %v", err)
	}

	if err := gate.Admit("", "sess-1"); err != nil {
		t.Fatalf("first admission rejected: %v", err)
	}
	if err := gate.Admit("", "sess-1"); !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
	if err := gate.Admit("", "sess-2"); err != nil {
		t.Fatalf("fresh session rejected: %v", err)
	}
}

func TestGateAllowsEverythingWhenDisabled(t *testing.T) {
	gate, err := NewGate(Config{})
	if err != nil {
		t.Fatalf("NewGate returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := gate.Admit("client-a", "sess-repeat"); err != nil {
			t.Fatalf("disabled gate rejected submission %d: %v", i, err)
		}
	}
}

func TestGateRotatesSeenFilter(t *testing.T) {
	gate, err := NewGate(Config{ExpectedSessions: 4})
	if err != nil {
		t.Fatalf("NewGate returned error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := gate.Admit("", fmt.Sprintf("sess-%d", i)); err != nil {
			t.Fatalf("admission %d rejected: %v", i, err)
		}
	}
	// The fifth admission crossed capacity and swapped in a fresh filter, so
	// the first session id is admissible again.
	if err := gate.Admit("", "sess-0"); err != nil {
		t.Fatalf("expected rotated filter to forget sess-0, got %v", err)
	}
}

func TestGateNilReceiverAdmits(t *testing.T) {
	var gate *Gate
	if err := gate.Admit("client-a", "sess-1"); err != nil {
		t.Fatalf("nil gate rejected submission: %v", err)
	}
}

func TestNewVerdictID(t *testing.T) {
	first := NewVerdictID()
	second := NewVerdictID()
	if !strings.HasPrefix(first, "verdict-") {
		t.Fatalf("expected verdict- prefix, got %q", first)
	}
	if first == second {
		t.Fatalf("expected unique ids, got %q twice", first)
	}
}
