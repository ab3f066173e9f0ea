// Package config loads runtime configuration for the collector CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the collection backend
//	-k string   collector identifier
//	-d string   path to the local SQLite database
//	-i int      auto-sync interval (seconds, 0 disables)
//	-t int      HTTP request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be
// either strings like "5m" or integer nanoseconds:
//
//	{
//	  "server_addr": "https://api.example.com",
//	  "collector_id": "col-17",
//	  "database_path": "cobraruta.db",
//	  "auto_sync_interval": "5m",
//	  "http_timeout": "10s",
//	  "log_backend": "slog",
//	  "merchant": "COBRARUTA",
//	  "collector_name": "J. Ramirez",
//	  "printer_chunk_size": 128,
//	  "printer_chunk_delay": "20ms"
//	}
//
// Note: This package does not read environment variables directly; use
// the JSON file or flags to configure values.
package config
