package snapshot

import "sync"

// probeHealth tracks consecutive host probe failures. Fields are protected by
// mu because every snapshot request records into it.
type probeHealth struct {
	mu        sync.Mutex
	threshold int
	failures  int
	lastErr   string
}

func newProbeHealth(threshold int) *probeHealth {
	if threshold <= 0 {
		threshold = 1
	}
	return &probeHealth{threshold: threshold}
}

func (h *probeHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
	h.lastErr = ""
}

func (h *probeHealth) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	h.lastErr = err.Error()
}

// status maps the failure streak onto a health status: any failure degrades,
// reaching the threshold fails.
func (h *probeHealth) status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.failures >= h.threshold:
		return StatusFailed
	case h.failures > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// lastError returns the most recent probe error, empty after a success.
func (h *probeHealth) lastError() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}
