package main

import (
	"context"
	"flag"
	"log"

	"ListingScraper/internal/app"
	"ListingScraper/internal/server"
	"ListingScraper/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yml", "Path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	run := func(ctx context.Context, landingURL string, pages int) (string, error) {
		return app.Run(ctx, app.RunConfigFrom(cfg, landingURL, pages))
	}

	if err := server.Start(cfg, run); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
