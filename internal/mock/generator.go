package mock

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/filenest/backend/internal/catalog"
	"github.com/jonboulle/clockwork"
)

// Generator simulates peers joining and leaving so the periodic snapshots
// have something to report.
type Generator struct {
	store    *catalog.Store
	clock    clockwork.Clock
	interval time.Duration
	rng      *rand.Rand
}

func NewGenerator(store *catalog.Store, clock clockwork.Clock, interval time.Duration) *Generator {
	return &Generator{
		store:    store,
		clock:    clock,
		interval: interval,
		rng:      rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// Run flips one random peer's status per interval until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	ticker := g.clock.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			g.churn()
		}
	}
}

func (g *Generator) churn() {
	peers := g.store.Peers()
	if len(peers) == 0 {
		return
	}

	p := peers[g.rng.Intn(len(peers))]
	next := catalog.Online
	if p.Status == catalog.Online {
		next = catalog.Offline
	}
	if err := g.store.SetPeerStatus(p.ID, next); err != nil {
		slog.Warn("mock churn failed", "peer", p.ID, "error", err)
		return
	}
	slog.Debug("mock peer churn", "peer", p.ID, "status", next.String())
}
