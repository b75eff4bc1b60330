package storage

import (
	"database/sql"
	"fmt"
	"time"

	"rates-streamer/src/helpers"
	"rates-streamer/src/logger"
	"rates-streamer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open sqlite db", err)
	}

	if err := helpers.RetryWithBackoff("sqlite ping", 3, time.Second, db.Ping); err != nil {
		return helpers.NewDatabaseError("sqlite unreachable", err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables sets up the schema. Assets are durable reference data, so
// tables are created if missing and never dropped.
func (d *SQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create assets: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS metrics (
			asset_id INTEGER NOT NULL,
			value REAL NOT NULL,
			time INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	query = `CREATE INDEX IF NOT EXISTS idx_metrics_asset_time ON metrics(asset_id, time);`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create metrics index: %w", err)
	}

	d.Logger.Info("SQLiteDB initialized (path: %s)", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) AssetExists(id int64) (bool, error) {
	var exists bool
	err := d.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM assets WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, helpers.NewDatabaseError("asset existence check failed", err)
	}
	return exists, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) ListAssets() ([]models.MAsset, error) {
	rows, err := d.DB.Query("SELECT id, name FROM assets ORDER BY id")
	if err != nil {
		return nil, helpers.NewDatabaseError("asset list query failed", err)
	}
	defer rows.Close()

	var assets []models.MAsset
	for rows.Next() {
		var a models.MAsset
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, helpers.NewDatabaseError("asset row scan failed", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) GetAssetByName(name string) (*models.MAsset, error) {
	var a models.MAsset
	err := d.DB.QueryRow("SELECT id, name FROM assets WHERE name = ?", name).Scan(&a.ID, &a.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("asset lookup failed", err)
	}
	return &a, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) LatestMetric(assetID int64) (*models.MMetric, error) {
	query := `
		SELECT m.asset_id, a.name, m.time, m.value
		FROM metrics m
		JOIN assets a ON a.id = m.asset_id
		WHERE m.asset_id = ?
		ORDER BY m.time DESC LIMIT 1;
	`
	var m models.MMetric
	err := d.DB.QueryRow(query, assetID).Scan(&m.AssetID, &m.AssetName, &m.Time, &m.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("latest metric query failed", err)
	}
	return &m, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) HistoryWindow(assetID int64, minutes int) ([]models.MMetric, error) {
	query := `
		SELECT m.asset_id, a.name, m.time, m.value
		FROM metrics m
		JOIN assets a ON a.id = m.asset_id
		WHERE m.asset_id = ? AND m.time > ?
		ORDER BY m.time;
	`
	cutoff := time.Now().Unix() - int64(minutes)*60

	rows, err := d.DB.Query(query, assetID, cutoff)
	if err != nil {
		return nil, helpers.NewDatabaseError("history query failed", err)
	}
	defer rows.Close()

	points := make([]models.MMetric, 0)
	for rows.Next() {
		var m models.MMetric
		if err := rows.Scan(&m.AssetID, &m.AssetName, &m.Time, &m.Value); err != nil {
			return nil, helpers.NewDatabaseError("history row scan failed", err)
		}
		points = append(points, m)
	}
	return points, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) InsertMetrics(batch []models.MMetricInsert) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewDatabaseError("begin metric insert failed", err)
	}

	stmt, err := tx.Prepare("INSERT INTO metrics (asset_id, value, time) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return helpers.NewDatabaseError("prepare metric insert failed", err)
	}
	defer stmt.Close()

	for _, m := range batch {
		if _, err := stmt.Exec(m.AssetID, m.Value, m.Time); err != nil {
			tx.Rollback()
			return helpers.NewDatabaseError("metric insert failed", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SeedAssets(names []string) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewDatabaseError("begin asset seed failed", err)
	}

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO assets (name) VALUES (?)")
	if err != nil {
		tx.Rollback()
		return helpers.NewDatabaseError("prepare asset seed failed", err)
	}
	defer stmt.Close()

	for _, name := range names {
		if _, err := stmt.Exec(name); err != nil {
			tx.Rollback()
			return helpers.NewDatabaseError("asset seed failed", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
