package config

import "time"

// Config holds runtime settings for the collector CLI.
//
// Units: intervals and timeouts are time.Duration values; an
// AutoSyncInterval of 0 disables the periodic sync timer.
type Config struct {
	// ServerAddr is the base URL of the collection backend.
	ServerAddr string

	// CollectorID scopes the local replica and every upload.
	CollectorID string

	// DatabasePath is the SQLite file holding the local replica.
	DatabasePath string

	AutoSyncInterval time.Duration
	HTTPTimeout      time.Duration

	// LogBackend selects the logging implementation: "slog" (text on
	// stderr) or "zap" (production JSON).
	LogBackend string

	// Receipt header fields.
	Merchant      string
	CollectorName string

	// BLE transmission tuning for the receipt printer.
	PrinterChunkSize  int
	PrinterChunkDelay time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "cobraruta.db"
	c.AutoSyncInterval = 5 * time.Minute
	c.HTTPTimeout = 10 * time.Second
	c.LogBackend = "slog"
	c.Merchant = "COBRARUTA"
	c.PrinterChunkSize = 128
	c.PrinterChunkDelay = 20 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays
// values from JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
