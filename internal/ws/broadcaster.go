package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/filenest/backend/internal/metrics"
	"github.com/filenest/backend/internal/snapshot"
	"github.com/jonboulle/clockwork"
)

// Broadcaster pushes a fresh stats_update to every registered session once
// per interval until its context is cancelled.
type Broadcaster struct {
	source          snapshot.Source
	registry        *Registry
	clock           clockwork.Clock
	interval        time.Duration
	snapshotTimeout time.Duration
}

func NewBroadcaster(source snapshot.Source, registry *Registry, clock clockwork.Clock, interval, snapshotTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		source:          source,
		registry:        registry,
		clock:           clock,
		interval:        interval,
		snapshotTimeout: snapshotTimeout,
	}
}

// Run ticks until ctx is done. The first broadcast happens one interval
// after Run starts. It always returns nil.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	slog.Info("broadcaster started", "interval", b.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("broadcaster stopped")
			return nil
		case <-ticker.Chan():
			b.tick(ctx)
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context) {
	snap, err := b.snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.BroadcastTicksTotal.WithLabelValues("snapshot_error").Inc()
		slog.Warn("skipping broadcast tick", "error", err)
		return
	}

	msg, err := EncodeStatsUpdate(snap)
	if err != nil {
		metrics.BroadcastTicksTotal.WithLabelValues("encode_error").Inc()
		slog.Error("skipping broadcast tick", "error", err)
		return
	}

	delivered := b.registry.Broadcast(msg)
	metrics.BroadcastTicksTotal.WithLabelValues("sent").Inc()
	slog.Debug("broadcast stats_update", "delivered", delivered, "sessions", b.registry.Len())
}

// Current takes a snapshot bounded by the configured timeout and encodes it
// as a stats_update message. It does not count as a broadcast tick.
func (b *Broadcaster) Current(ctx context.Context) ([]byte, error) {
	snap, err := b.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := EncodeStatsUpdate(snap)
	if err != nil {
		return nil, fmt.Errorf("encode stats_update: %w", err)
	}
	return msg, nil
}

func (b *Broadcaster) snapshot(ctx context.Context) (snapshot.NetworkSnapshot, error) {
	if b.snapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.snapshotTimeout)
		defer cancel()
	}

	snap, err := b.source.Snapshot(ctx)
	if err != nil {
		return snapshot.NetworkSnapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}
