package main

import (
	"flag"
	"log"
	"os"

	"ConflictVol/internal/di"
	"ConflictVol/pkg/config"
	"ConflictVol/pkg/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", server.ModeEvaluate, "run mode: pipeline, evaluate or serve")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(*mode); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
