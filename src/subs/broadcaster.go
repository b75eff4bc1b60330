package subs

import (
	"context"
	"time"

	"rates-streamer/src/interfaces"
	"rates-streamer/src/logger"
	"rates-streamer/src/models"
)

// -----------------------------------------------------------------------------
// Broadcaster
// -----------------------------------------------------------------------------

// Broadcaster is the single process-wide push loop. Once per interval it
// fetches the latest metric for every asset with subscribers and fans it out,
// reaping dead connections along the way. It never terminates on error.
type Broadcaster struct {
	Registry       *Registry
	Store          interfaces.IMetricStore
	Logger         *logger.Logger
	Interval       time.Duration
	HistoryMinutes int
}

// -----------------------------------------------------------------------------

func NewBroadcaster(reg *Registry, store interfaces.IMetricStore, log *logger.Logger, cfg models.MBroadcastConfig) *Broadcaster {
	return &Broadcaster{
		Registry:       reg,
		Store:          store,
		Logger:         log,
		Interval:       time.Duration(cfg.IntervalSeconds) * time.Second,
		HistoryMinutes: cfg.HistoryMinutes,
	}
}

// -----------------------------------------------------------------------------

// Run executes ticks until the context is cancelled (process shutdown).
// The sleep compensates for tick execution time, clamped at zero so a slow
// tick never produces a negative wait.
func (b *Broadcaster) Run(ctx context.Context) {
	b.Logger.Info("Broadcast loop started (interval: %v)", b.Interval)

	for {
		start := time.Now()
		b.Tick()

		sleep := b.Interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-ctx.Done():
			b.Logger.Info("Broadcast loop stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// -----------------------------------------------------------------------------

// Tick runs one fan-out cycle. Per-asset failures are isolated: one broken
// asset or connection never aborts delivery for the others.
func (b *Broadcaster) Tick() {
	assetIDs := b.Registry.AssetsWithSubscribers()
	if len(assetIDs) == 0 {
		// Idle fast-path: nobody is listening.
		return
	}

	var dead []*Subscription
	for _, assetID := range assetIDs {
		dead = append(dead, b.pushAsset(assetID)...)
	}

	if len(dead) > 0 {
		b.Registry.RemoveAll(dead)
		b.Logger.Info("Removed %d disconnected subscriber(s)", len(dead))
	}
}

// -----------------------------------------------------------------------------

// pushAsset delivers the asset's latest metric to every subscriber in the
// snapshot and returns the subscriptions found dead along the way. The
// registry is not mutated mid-iteration.
func (b *Broadcaster) pushAsset(assetID int64) []*Subscription {
	metric, err := b.Store.LatestMetric(assetID)
	if err != nil {
		b.Logger.Error("Latest metric fetch failed for asset %d: %v", assetID, err)
		return nil
	}

	var dead []*Subscription
	for _, sub := range b.Registry.SubscribersOf(assetID) {
		if !sub.Conn.IsOpen() {
			dead = append(dead, sub)
			continue
		}

		if !sub.initialized {
			points, err := b.Store.HistoryWindow(assetID, b.HistoryMinutes)
			if err != nil {
				// Store hiccup: skip this tick, the history push retries on
				// the next one since initialized stays false.
				b.Logger.Error("History fetch failed for asset %d: %v", assetID, err)
				continue
			}

			msg := models.MMessage{
				Action:  models.ActionAssetHistory,
				Message: models.MHistoryPayload{Points: points},
			}
			if err := sub.Conn.Send(msg); err != nil {
				dead = append(dead, sub)
				continue
			}
			sub.initialized = true
		}

		// No metric recorded yet is a valid outcome; delivery is simply
		// suppressed for this tick.
		if metric != nil {
			if err := sub.Conn.Send(metric); err != nil {
				dead = append(dead, sub)
			}
		}
	}
	return dead
}
