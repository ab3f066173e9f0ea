package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/mvillareal/cobraruta/internal/cli"
	"github.com/mvillareal/cobraruta/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
