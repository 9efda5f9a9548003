package snapshot

import (
	"errors"
	"testing"
)

func TestProbeHealth_Transitions(t *testing.T) {
	h := newProbeHealth(3)

	if got := h.status(); got != StatusHealthy {
		t.Fatalf("initial status = %s, want healthy", got)
	}

	h.recordFailure(errors.New("boom"))
	if got := h.status(); got != StatusDegraded {
		t.Errorf("after 1 failure status = %s, want degraded", got)
	}

	h.recordFailure(errors.New("boom"))
	h.recordFailure(errors.New("boom again"))
	if got := h.status(); got != StatusFailed {
		t.Errorf("after 3 failures status = %s, want failed", got)
	}
	if got := h.lastError(); got != "boom again" {
		t.Errorf("lastError = %q, want %q", got, "boom again")
	}

	h.recordSuccess()
	if got := h.status(); got != StatusHealthy {
		t.Errorf("after success status = %s, want healthy", got)
	}
	if got := h.lastError(); got != "" {
		t.Errorf("lastError after success = %q, want empty", got)
	}
}

func TestProbeHealth_NonPositiveThreshold(t *testing.T) {
	h := newProbeHealth(0)
	h.recordFailure(errors.New("x"))
	if got := h.status(); got != StatusFailed {
		t.Errorf("threshold 0 should fail on first error, got %s", got)
	}
}
