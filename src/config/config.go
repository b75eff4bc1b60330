package config

import (
	"fmt"
	"os"

	"rates-streamer/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills the intervals the original hardcoded (1 s tick,
// 30-minute history window).
func (c *Config) applyDefaults() {
	if c.Broadcast.IntervalSeconds == 0 {
		c.Broadcast.IntervalSeconds = 1
	}
	if c.Broadcast.HistoryMinutes == 0 {
		c.Broadcast.HistoryMinutes = 30
	}
	if c.Poller.IntervalSeconds == 0 {
		c.Poller.IntervalSeconds = 1
	}
	if c.Poller.RequestTimeout == 0 {
		c.Poller.RequestTimeout = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Broadcast configuration
	if c.Broadcast.IntervalSeconds <= 0 {
		return fmt.Errorf("broadcast interval must be greater than 0")
	}
	if c.Broadcast.HistoryMinutes <= 0 {
		return fmt.Errorf("history window must be greater than 0")
	}

	// Validate Poller configuration
	if c.Poller.Enabled {
		if c.Poller.QuotesURL == "" {
			return fmt.Errorf("quotes url cannot be empty when the poller is enabled")
		}
		if c.Poller.IntervalSeconds <= 0 {
			return fmt.Errorf("poller interval must be greater than 0")
		}
		if c.Poller.MaxRetries < 0 {
			return fmt.Errorf("max retries cannot be negative")
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
