package storage

import (
	"database/sql"
	"time"

	"rates-streamer/src/helpers"
	"rates-streamer/src/logger"
	"rates-streamer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open postgres db", err)
	}

	if err := helpers.RetryWithBackoff("postgres ping", 3, time.Second, db.Ping); err != nil {
		return helpers.NewDatabaseError("postgres unreachable", err)
	}

	d.DB = db
	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables sets up the schema. Assets are durable reference data, so
// tables are created if missing and never dropped.
func (d *PostgresDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS assets (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create assets", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS metrics (
			asset_id BIGINT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			time BIGINT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create metrics", err)
	}

	query = `CREATE INDEX IF NOT EXISTS idx_metrics_asset_time ON metrics(asset_id, time);`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create metrics index", err)
	}

	d.Logger.Info("PostgresDB initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) AssetExists(id int64) (bool, error) {
	var exists bool
	err := d.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM assets WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, helpers.NewDatabaseError("asset existence check failed", err)
	}
	return exists, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ListAssets() ([]models.MAsset, error) {
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

func (d *PostgresDB) GetAssetByName(name string) (*models.MAsset, error) {
	var a models.MAsset
	err := d.DB.QueryRow("SELECT id, name FROM assets WHERE name = $1", name).Scan(&a.ID, &a.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("asset lookup failed", err)
	}
	return &a, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LatestMetric(assetID int64) (*models.MMetric, error) {
	query := `
		SELECT m.asset_id, a.name, m.time, m.value
		FROM metrics m
		JOIN assets a ON a.id = m.asset_id
		WHERE m.asset_id = $1
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

func (d *PostgresDB) HistoryWindow(assetID int64, minutes int) ([]models.MMetric, error) {
	query := `
		SELECT m.asset_id, a.name, m.time, m.value
		FROM metrics m
		JOIN assets a ON a.id = m.asset_id
		WHERE m.asset_id = $1 AND m.time > $2
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

func (d *PostgresDB) InsertMetrics(batch []models.MMetricInsert) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewDatabaseError("begin metric insert failed", err)
	}

	stmt, err := tx.Prepare("INSERT INTO metrics (asset_id, value, time) VALUES ($1, $2, $3)")
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

func (d *PostgresDB) SeedAssets(names []string) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewDatabaseError("begin asset seed failed", err)
	}

	stmt, err := tx.Prepare("INSERT INTO assets (name) VALUES ($1) ON CONFLICT (name) DO NOTHING")
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

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
