package storage

import (
	"path/filepath"
	"testing"
	"time"

	"rates-streamer/src/logger"
	"rates-streamer/src/models"
)

// -----------------------------------------------------------------------------

func testDB(t *testing.T) *SQLiteDB {
	t.Helper()

	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(t.TempDir(), "test.db"),
		},
	}

	db, err := NewSQLiteDB(cfg, logger.NewLogger("ERROR", "test"))
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// -----------------------------------------------------------------------------

func TestSeedAssetsIsIdempotent(t *testing.T) {
	db := testDB(t)

	if err := db.SeedAssets([]string{"EURUSD", "USDJPY"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := db.SeedAssets([]string{"EURUSD", "GBPUSD"}); err != nil {
		t.Fatalf("repeat seed failed: %v", err)
	}

	assets, err := db.ListAssets()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(assets))
	}
}

// -----------------------------------------------------------------------------

func TestAssetLookups(t *testing.T) {
	db := testDB(t)
	db.SeedAssets([]string{"EURUSD"})

	exists, err := db.AssetExists(1)
	if err != nil || !exists {
		t.Fatalf("expected asset 1 to exist: exists=%v err=%v", exists, err)
	}
	exists, err = db.AssetExists(99)
	if err != nil || exists {
		t.Fatalf("expected asset 99 to be absent: exists=%v err=%v", exists, err)
	}

	asset, err := db.GetAssetByName("EURUSD")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if asset == nil || asset.ID != 1 {
		t.Fatalf("unexpected asset: %#v", asset)
	}

	asset, err = db.GetAssetByName("XAUXAG")
	if err != nil || asset != nil {
		t.Fatalf("expected nil for unknown name, got %#v (err=%v)", asset, err)
	}
}

// -----------------------------------------------------------------------------

func TestInsertAndLatestMetricRoundTrip(t *testing.T) {
	db := testDB(t)
	db.SeedAssets([]string{"EURUSD", "USDJPY", "GBPUSD"})

	now := time.Now().Unix()
	batch := []models.MMetricInsert{
		{AssetID: 3, Value: 1.2345, Time: now - 10},
		{AssetID: 3, Value: 1.2346, Time: now},
		{AssetID: 1, Value: 1.10, Time: now},
	}
	if err := db.InsertMetrics(batch); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	latest, err := db.LatestMetric(3)
	if err != nil {
		t.Fatalf("latest query failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest metric")
	}
	if latest.AssetID != 3 || latest.AssetName != "GBPUSD" || latest.Time != now || latest.Value != 1.2346 {
		t.Fatalf("unexpected latest metric: %#v", latest)
	}
}

// -----------------------------------------------------------------------------

func TestLatestMetricAbsentIsNil(t *testing.T) {
	db := testDB(t)
	db.SeedAssets([]string{"EURUSD"})

	latest, err := db.LatestMetric(1)
	if err != nil {
		t.Fatalf("latest query failed: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil for asset with no metrics, got %#v", latest)
	}
}

// -----------------------------------------------------------------------------

func TestHistoryWindowBoundaries(t *testing.T) {
	db := testDB(t)
	db.SeedAssets([]string{"EURUSD"})

	now := time.Now().Unix()
	batch := []models.MMetricInsert{
		{AssetID: 1, Value: 1.05, Time: now - 1900}, // outside the 30-minute window
		{AssetID: 1, Value: 1.08, Time: now - 600},
		{AssetID: 1, Value: 1.10, Time: now},
	}
	if err := db.InsertMetrics(batch); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	points, err := db.HistoryWindow(1, 30)
	if err != nil {
		t.Fatalf("history query failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points inside the window, got %d", len(points))
	}
	// Ascending time order.
	if points[0].Value != 1.08 || points[1].Value != 1.10 {
		t.Fatalf("unexpected ordering: %#v", points)
	}
	if points[0].AssetName != "EURUSD" {
		t.Fatalf("expected asset name joined into history, got %q", points[0].AssetName)
	}
}

// -----------------------------------------------------------------------------

func TestHistoryWindowEmptyIsNonNil(t *testing.T) {
	db := testDB(t)
	db.SeedAssets([]string{"EURUSD"})

	points, err := db.HistoryWindow(1, 30)
	if err != nil {
		t.Fatalf("history query failed: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", points)
	}
}
