package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Sheets   MSheetsConfig  `yaml:"sheets"`
	Storage  MStorageConfig `yaml:"storage"`
	Refresh  MRefreshConfig `yaml:"refresh"`
	Display  MDisplayConfig `yaml:"display"`
}

type MSheetsConfig struct {
	SpreadsheetID   string          `yaml:"spreadsheet_id"`
	CredentialsFile string          `yaml:"credentials_file"`
	Worksheets      MWorksheetNames `yaml:"worksheets"`
}

// MWorksheetNames maps the four logical tables to worksheet titles.
type MWorksheetNames struct {
	PLC     string `yaml:"plc"`
	Memory  string `yaml:"memory"`
	Daily   string `yaml:"daily"`
	Counter string `yaml:"counter"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MRefreshConfig struct {
	IntervalSeconds int             `yaml:"interval_seconds"`
	MaxRetries      int             `yaml:"max_retries"`
	Schedule        MScheduleConfig `yaml:"schedule"`
}

// MScheduleConfig gates the fetch loop to facility operating hours.
// Hours are in UTC; OpenHour == CloseHour means always open.
type MScheduleConfig struct {
	Enabled   bool `yaml:"enabled"`
	OpenHour  int  `yaml:"open_hour"`
	CloseHour int  `yaml:"close_hour"`
}

type MDisplayConfig struct {
	UTCOffsetHours int `yaml:"utc_offset_hours"` // Applied to displayed timestamps only
	TopTrays       int `yaml:"top_trays"`        // Size of the top-N ranking panel
}
