package models

// -----------------------------------------------------------------------------
// Metric Structures
// -----------------------------------------------------------------------------

// MMetric is one timestamped price observation, as pushed to clients.
// Field names match the wire format exactly.
type MMetric struct {
	AssetID   int64   `json:"assetId"`
	AssetName string  `json:"assetName"`
	Time      int64   `json:"time"`
	Value     float64 `json:"value"`
}

// -----------------------------------------------------------------------------

// MMetricInsert is the storage-side shape of a metric row, before the
// asset name join. Produced by the quote poller in batches.
type MMetricInsert struct {
	AssetID int64
	Value   float64
	Time    int64
}

// -----------------------------------------------------------------------------

// MQuote is a single raw quote from the external rates feed.
type MQuote struct {
	Symbol string  `json:"Symbol"`
	Bid    float64 `json:"Bid"`
	Ask    float64 `json:"Ask"`
}

// Mid returns the bid/ask midpoint used as the stored metric value.
func (q MQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}
