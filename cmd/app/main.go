package main

import (
	"flag"
	"log"
	"os"
	_ "time/tzdata"

	"IdxLens/internal/di"
	"IdxLens/pkg/config"
)

func main() {
	// An empty path runs on defaults plus IDXLENS_* overrides.
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
