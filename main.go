package main

import (
	"flag"
	"log"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/app"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/config"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	migrate := flag.Bool("migrate", false, "force database migrations on startup")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Database migration completed, exiting")
		return
	}

	application.Run()
}
