package interfaces

import "rates-streamer/src/models"

// -----------------------------------------------------------------------------
// IMetricStore defines the contract for the durable asset/metric store.
// -----------------------------------------------------------------------------

type IMetricStore interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and sets up the schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// AssetExists reports whether the asset id is known.
	AssetExists(id int64) (bool, error)

	// -----------------------------------------------------------------------------

	// ListAssets returns all assets ordered by id.
	ListAssets() ([]models.MAsset, error)

	// -----------------------------------------------------------------------------

	// GetAssetByName looks an asset up by symbol name. Returns nil when absent.
	GetAssetByName(name string) (*models.MAsset, error)

	// -----------------------------------------------------------------------------

	// LatestMetric returns the most recent metric for the asset, or nil when
	// no metric was ever recorded.
	LatestMetric(assetID int64) (*models.MMetric, error)

	// -----------------------------------------------------------------------------

	// HistoryWindow returns the metrics of the last `minutes` minutes for the
	// asset, ascending by time. Never nil.
	HistoryWindow(assetID int64, minutes int) ([]models.MMetric, error)

	// -----------------------------------------------------------------------------

	// InsertMetrics appends a batch of metric rows in one transaction.
	InsertMetrics(batch []models.MMetricInsert) error

	// -----------------------------------------------------------------------------

	// SeedAssets registers asset names, skipping ones already present.
	SeedAssets(names []string) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
