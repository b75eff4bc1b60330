package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"rates-streamer/src/interfaces"
	"rates-streamer/src/logger"
	"rates-streamer/src/models"
	"rates-streamer/src/utils"
)

// -----------------------------------------------------------------------------

// The rates feed wraps its JSON body in a callback shell; the payload starts
// after the first 14 bytes and stops before the last 4.
const (
	wrapperHead = 14
	wrapperTail = 4
)

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

// Loader polls the external rates feed on a fixed cadence and writes metric
// batches to the store. On any fetch or parse failure it inserts synthetic
// random-value metrics for every known asset instead of skipping the tick:
// downstream latest-value queries stay fresh under upstream outage, at the
// documented cost of injecting non-real data.
type Loader struct {
	Config  *models.MConfig
	Store   interfaces.IMetricStore
	Network interfaces.INetworkManager
	Session *utils.VenueSession
	Logger  *logger.Logger

	// Symbol -> asset id, snapshotted once at startup.
	assetIDs map[string]int64
	rng      *rand.Rand
}

// -----------------------------------------------------------------------------

func NewLoader(cfg *models.MConfig, store interfaces.IMetricStore, netMgr interfaces.INetworkManager, session *utils.VenueSession, log *logger.Logger) *Loader {
	return &Loader{
		Config:  cfg,
		Store:   store,
		Network: netMgr,
		Session: session,
		Logger:  log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// -----------------------------------------------------------------------------

// Setup snapshots the asset list. Assets created later are picked up on the
// next process start, matching the feed's reference-data lifecycle.
func (l *Loader) Setup() error {
	assets, err := l.Store.ListAssets()
	if err != nil {
		return fmt.Errorf("failed to load asset list: %w", err)
	}

	l.assetIDs = make(map[string]int64, len(assets))
	for _, a := range assets {
		l.assetIDs[a.Name] = a.ID
	}

	l.Logger.Info("Loader tracking %d assets", len(l.assetIDs))
	return nil
}

// -----------------------------------------------------------------------------

// Start launches the polling loop. Cancelling the context stops it; the
// WaitGroup signals when it has fully stopped.
func (l *Loader) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if l.assetIDs == nil {
		return fmt.Errorf("loader not set up")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.run(ctx)
	}()
	return nil
}

// -----------------------------------------------------------------------------

func (l *Loader) run(ctx context.Context) {
	interval := time.Duration(l.Config.Poller.IntervalSeconds) * time.Second
	l.Logger.Info("Quote loader started (interval: %v, session open: %v)", interval, l.Session.IsOpen(time.Now()))

	for {
		start := time.Now()
		l.loadOnce()

		// Compensate for tick execution time, clamped at zero.
		sleep := interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-ctx.Done():
			l.Logger.Info("Quote loader stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// -----------------------------------------------------------------------------

// loadOnce runs one polling cycle. Failures downgrade to synthetic metrics;
// the loop itself never stops on error.
func (l *Loader) loadOnce() {
	now := time.Now().Unix()

	batch, err := l.fetchMetrics(now)
	if err != nil {
		l.Logger.Error("Quote fetch failed, inserting synthetic metrics: %v", err)
		batch = l.syntheticMetrics(now)
	}

	if err := l.Store.InsertMetrics(batch); err != nil {
		l.Logger.Error("Metric insert failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (l *Loader) fetchMetrics(now int64) ([]models.MMetricInsert, error) {
	body, err := l.Network.Get(l.Config.Poller.QuotesURL, nil)
	if err != nil {
		return nil, err
	}

	quotes, err := parseQuotePayload(body)
	if err != nil {
		return nil, err
	}

	return l.prepareMetrics(quotes, now), nil
}

// -----------------------------------------------------------------------------

// parseQuotePayload strips the feed's callback wrapper and decodes the
// quote list.
func parseQuotePayload(body []byte) ([]models.MQuote, error) {
	if len(body) <= wrapperHead+wrapperTail {
		return nil, fmt.Errorf("quote payload too short (%d bytes)", len(body))
	}

	var quotes []models.MQuote
	if err := json.Unmarshal(body[wrapperHead:len(body)-wrapperTail], &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quote payload: %w", err)
	}
	return quotes, nil
}

// -----------------------------------------------------------------------------

// prepareMetrics maps feed symbols to asset ids, dropping unknown symbols.
func (l *Loader) prepareMetrics(quotes []models.MQuote, now int64) []models.MMetricInsert {
	batch := make([]models.MMetricInsert, 0, len(quotes))
	for _, q := range quotes {
		assetID, ok := l.assetIDs[q.Symbol]
		if !ok {
			continue
		}
		batch = append(batch, models.MMetricInsert{
			AssetID: assetID,
			Value:   q.Mid(),
			Time:    now,
		})
	}
	return batch
}

// -----------------------------------------------------------------------------

// syntheticMetrics produces one random-value metric per known asset.
func (l *Loader) syntheticMetrics(now int64) []models.MMetricInsert {
	batch := make([]models.MMetricInsert, 0, len(l.assetIDs))
	for _, assetID := range l.assetIDs {
		batch = append(batch, models.MMetricInsert{
			AssetID: assetID,
			Value:   l.rng.Float64(),
			Time:    now,
		})
	}
	return batch
}
