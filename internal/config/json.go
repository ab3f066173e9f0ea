package config

import (
	"encoding/json"
	"os"

	"github.com/mvillareal/cobraruta/internal/flagx"
	"github.com/mvillareal/cobraruta/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It
// relies on timex.Duration so JSON can specify intervals either as
// strings like "5m" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config.
type JsonConfig struct {
	ServerAddr        string         `json:"server_addr"`
	CollectorID       string         `json:"collector_id"`
	DatabasePath      string         `json:"database_path"`
	AutoSyncInterval  timex.Duration `json:"auto_sync_interval"`
	HTTPTimeout       timex.Duration `json:"http_timeout"`
	LogBackend        string         `json:"log_backend"`
	Merchant          string         `json:"merchant"`
	CollectorName     string         `json:"collector_name"`
	PrinterChunkSize  int            `json:"printer_chunk_size"`
	PrinterChunkDelay timex.Duration `json:"printer_chunk_delay"`
}

// parseJson overlays Config with values loaded from a JSON file. The
// file path comes from the -c/-config flags via flagx.JsonConfigFlags;
// when absent, nothing is loaded. Only fields present in the file
// override the running config. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerAddr != "" {
		cfg.ServerAddr = jc.ServerAddr
	}
	if jc.CollectorID != "" {
		cfg.CollectorID = jc.CollectorID
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.AutoSyncInterval.Duration != 0 {
		cfg.AutoSyncInterval = jc.AutoSyncInterval.Duration
	}
	if jc.HTTPTimeout.Duration != 0 {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}
	if jc.LogBackend != "" {
		cfg.LogBackend = jc.LogBackend
	}
	if jc.Merchant != "" {
		cfg.Merchant = jc.Merchant
	}
	if jc.CollectorName != "" {
		cfg.CollectorName = jc.CollectorName
	}
	if jc.PrinterChunkSize > 0 {
		cfg.PrinterChunkSize = jc.PrinterChunkSize
	}
	if jc.PrinterChunkDelay.Duration != 0 {
		cfg.PrinterChunkDelay = jc.PrinterChunkDelay.Duration
	}
}
