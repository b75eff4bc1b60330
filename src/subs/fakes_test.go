package subs

import (
	"rates-streamer/src/models"
)

// -----------------------------------------------------------------------------
// Test doubles shared by the registry and broadcaster tests.
// -----------------------------------------------------------------------------

type fakeStore struct {
	assets     map[int64]string
	latest     map[int64]*models.MMetric
	history    map[int64][]models.MMetric
	existsErr  error
	latestErr  map[int64]error
	historyErr map[int64]error
	inserted   [][]models.MMetricInsert
}

func newFakeStore(assets map[int64]string) *fakeStore {
	return &fakeStore{
		assets:     assets,
		latest:     make(map[int64]*models.MMetric),
		history:    make(map[int64][]models.MMetric),
		latestErr:  make(map[int64]error),
		historyErr: make(map[int64]error),
	}
}

func (s *fakeStore) Initialize() error { return nil }

func (s *fakeStore) AssetExists(id int64) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.assets[id]
	return ok, nil
}

func (s *fakeStore) ListAssets() ([]models.MAsset, error) {
	var assets []models.MAsset
	for id, name := range s.assets {
		assets = append(assets, models.MAsset{ID: id, Name: name})
	}
	return assets, nil
}

func (s *fakeStore) GetAssetByName(name string) (*models.MAsset, error) {
	for id, n := range s.assets {
		if n == name {
			return &models.MAsset{ID: id, Name: n}, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) LatestMetric(assetID int64) (*models.MMetric, error) {
	if err := s.latestErr[assetID]; err != nil {
		return nil, err
	}
	return s.latest[assetID], nil
}

func (s *fakeStore) HistoryWindow(assetID int64, minutes int) ([]models.MMetric, error) {
	if err := s.historyErr[assetID]; err != nil {
		return nil, err
	}
	points := make([]models.MMetric, 0)
	return append(points, s.history[assetID]...), nil
}

func (s *fakeStore) InsertMetrics(batch []models.MMetricInsert) error {
	s.inserted = append(s.inserted, batch)
	return nil
}

func (s *fakeStore) SeedAssets(names []string) error { return nil }

func (s *fakeStore) Close() error { return nil }

// -----------------------------------------------------------------------------

type fakeConn struct {
	open    bool
	sendErr error
	sent    []interface{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (c *fakeConn) Send(v interface{}) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) IsOpen() bool { return c.open }

func (c *fakeConn) Close() { c.open = false }
