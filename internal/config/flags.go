package config

import (
	"flag"
	"os"
	"time"

	"github.com/mvillareal/cobraruta/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-d", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "base URL of the collection backend")
	fs.StringVar(&cfg.CollectorID, "k", cfg.CollectorID, "collector identifier")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local SQLite database")
	syncInterval := fs.Int("i", int(cfg.AutoSyncInterval.Seconds()), "auto-sync interval in seconds (0 disables)")
	httpTimeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP request timeout in seconds")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AutoSyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
}
