package snapshot

import (
	"context"
	"log/slog"

	"github.com/filenest/backend/internal/catalog"
	"github.com/filenest/backend/internal/metrics"
	"github.com/jonboulle/clockwork"
)

// CatalogSource builds snapshots from the catalog and, when a probe is
// configured, the host's resource usage.
type CatalogSource struct {
	store  *catalog.Store
	probe  HostProbe
	health *probeHealth
	clock  clockwork.Clock
}

// NewCatalogSource returns a Source over store. probe may be nil to disable
// host sampling; failureThreshold consecutive probe errors mark the snapshot failed.
func NewCatalogSource(store *catalog.Store, probe HostProbe, failureThreshold int, clock clockwork.Clock) *CatalogSource {
	return &CatalogSource{
		store:  store,
		probe:  probe,
		health: newProbeHealth(failureThreshold),
		clock:  clock,
	}
}

func (s *CatalogSource) Snapshot(ctx context.Context) (NetworkSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return NetworkSnapshot{}, err
	}

	c := s.store.Counts()
	snap := NetworkSnapshot{
		Timestamp:       s.clock.Now().UTC(),
		TotalPeers:      c.TotalPeers,
		OnlinePeers:     c.OnlinePeers,
		TotalFiles:      c.TotalFiles,
		AvailableFiles:  c.AvailableFiles,
		AvgResponseTime: c.AvgLatencyMS,
		Status:          StatusHealthy,
	}
	if c.TotalPeers > 0 {
		snap.NetworkHealth = c.OnlinePeers * 100 / c.TotalPeers
	}
	if c.TotalPeers > 0 && c.OnlinePeers == 0 {
		snap.Status = StatusDegraded
	}

	if s.probe != nil {
		host, err := s.probe.Sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return NetworkSnapshot{}, ctx.Err()
			}
			s.health.recordFailure(err)
			metrics.HostProbeFailures.Inc()
			slog.Warn("host probe failed", "error", err)
		} else {
			s.health.recordSuccess()
			snap.Host = host
		}
		snap.Status = worse(snap.Status, s.health.status())
	}

	return snap, nil
}

// LastProbeError returns the most recent host probe error, if the last sample failed.
func (s *CatalogSource) LastProbeError() string {
	return s.health.lastError()
}
