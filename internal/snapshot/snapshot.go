package snapshot

import (
	"context"
	"time"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// worse returns whichever of a and b is the more severe status.
func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusFailed: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

type HostStats struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
}

// NetworkSnapshot is a point-in-time summary of the catalog and the node.
// Values are built once per request and never modified afterwards.
type NetworkSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	TotalPeers      int       `json:"totalPeers"`
	OnlinePeers     int       `json:"onlinePeers"`
	TotalFiles      int       `json:"totalFiles"`
	AvailableFiles  int       `json:"availableFiles"`
	NetworkHealth   int       `json:"networkHealth"`
	AvgResponseTime int       `json:"avgResponseTime"`
	Host            HostStats `json:"host"`
	Status          Status    `json:"status"`
}

// Source produces snapshots on demand. Implementations must be read-only and
// honour ctx so callers can bound how long they wait.
type Source interface {
	Snapshot(ctx context.Context) (NetworkSnapshot, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (NetworkSnapshot, error)

func (f SourceFunc) Snapshot(ctx context.Context) (NetworkSnapshot, error) {
	return f(ctx)
}
