package config

import (
	"fmt"
	"os"

	"github.com/kreeztoph/damaged-trays/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Defaults applied for fields the YAML file leaves empty.
const (
	DefaultRefreshIntervalSeconds = 300
	DefaultTopTrays               = 5
	DefaultRetentionDays          = 31
)

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

func (c *Config) applyDefaults() {
	if c.Refresh.IntervalSeconds == 0 {
		c.Refresh.IntervalSeconds = DefaultRefreshIntervalSeconds
	}
	if c.Display.TopTrays == 0 {
		c.Display.TopTrays = DefaultTopTrays
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = DefaultRetentionDays
	}
	if c.Sheets.Worksheets.PLC == "" {
		c.Sheets.Worksheets.PLC = "plc_data"
	}
	if c.Sheets.Worksheets.Memory == "" {
		c.Sheets.Worksheets.Memory = "memory_data"
	}
	if c.Sheets.Worksheets.Daily == "" {
		c.Sheets.Worksheets.Daily = "daily_data"
	}
	if c.Sheets.Worksheets.Counter == "" {
		c.Sheets.Worksheets.Counter = "counter_data"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Sheets configuration
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet id cannot be empty")
	}
	if c.Sheets.CredentialsFile == "" {
		return fmt.Errorf("sheets credentials file cannot be empty")
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
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}

	// Validate Refresh configuration
	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("refresh interval must be greater than 0")
	}
	if c.Refresh.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Refresh.Schedule.Enabled {
		if c.Refresh.Schedule.OpenHour < 0 || c.Refresh.Schedule.OpenHour > 23 {
			return fmt.Errorf("schedule open hour out of range: %d", c.Refresh.Schedule.OpenHour)
		}
		if c.Refresh.Schedule.CloseHour < 0 || c.Refresh.Schedule.CloseHour > 23 {
			return fmt.Errorf("schedule close hour out of range: %d", c.Refresh.Schedule.CloseHour)
		}
	}

	// Validate Display configuration
	if c.Display.TopTrays <= 0 {
		return fmt.Errorf("top trays must be greater than 0")
	}
	if c.Display.UTCOffsetHours < -12 || c.Display.UTCOffsetHours > 14 {
		return fmt.Errorf("utc offset out of range: %d", c.Display.UTCOffsetHours)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
