package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"rates-streamer/src/config"
	"rates-streamer/src/interfaces"
	"rates-streamer/src/logger"
	"rates-streamer/src/storage"
)

// -----------------------------------------------------------------------------

// Default seed set: the major FX pairs the rates feed always carries.
var defaultAssets = []string{"EURUSD", "USDJPY", "GBPUSD", "AUDUSD", "USDCAD"}

// -----------------------------------------------------------------------------

// seed is a one-shot utility that registers assets in the store. Safe to run
// repeatedly: existing names are skipped.
func main() {
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	assetList := flag.String("assets", "", "comma-separated asset names (overrides config seed_assets)")
	flag.Parse()

	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(conf.LogLevel, "Seed")

	names := defaultAssets
	if len(conf.Poller.SeedAssets) > 0 {
		names = conf.Poller.SeedAssets
	}
	if *assetList != "" {
		names = strings.Split(*assetList, ",")
	}

	var db interfaces.IMetricStore
	switch conf.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(conf.MConfig, appLogger)
	default:
		db, err = storage.NewSQLiteDB(conf.MConfig, appLogger)
	}
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	if err := db.SeedAssets(names); err != nil {
		appLogger.Critical("Failed to seed assets: %v", err)
	}

	assets, err := db.ListAssets()
	if err != nil {
		appLogger.Critical("Failed to list assets: %v", err)
	}

	for _, a := range assets {
		fmt.Printf("%d\t%s\n", a.ID, a.Name)
	}
	appLogger.Info("Seeded %d asset name(s), store now holds %d", len(names), len(assets))
}
