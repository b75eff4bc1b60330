package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	Storage   MStorageConfig   `yaml:"storage"`
	Broadcast MBroadcastConfig `yaml:"broadcast"`
	Poller    MPollerConfig    `yaml:"poller"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MBroadcastConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	HistoryMinutes  int `yaml:"history_minutes"`
}

type MPollerConfig struct {
	Enabled         bool     `yaml:"enabled"`
	QuotesURL       string   `yaml:"quotes_url"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	RequestTimeout  int      `yaml:"timeout"`
	MaxRetries      int      `yaml:"retries"`
	Proxy           string   `yaml:"proxy"` // Optional
	UserAgent       string   `yaml:"user_agent"`
	VenueMIC        string   `yaml:"venue_mic"`
	SeedAssets      []string `yaml:"seed_assets"`
}
