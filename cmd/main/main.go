package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"rates-streamer/src/config"
	"rates-streamer/src/interfaces"
	"rates-streamer/src/logger"
	"rates-streamer/src/network"
	"rates-streamer/src/poller"
	"rates-streamer/src/server"
	"rates-streamer/src/storage"
	"rates-streamer/src/subs"
	"rates-streamer/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)

	// Setup storage
	var db interfaces.IMetricStore

	switch conf.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(conf.MConfig, logger.NewLogger(conf.LogLevel, "PostgresDB"))
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(conf.MConfig, logger.NewLogger(conf.LogLevel, "SQLiteDB"))
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// Core components: registry + broadcaster
	registry := subs.NewRegistry(db, logger.NewLogger(conf.LogLevel, "Registry"))
	broadcaster := subs.NewBroadcaster(registry, db, logger.NewLogger(conf.LogLevel, "Broadcaster"), conf.Broadcast)

	// Venue session check for the health endpoint
	session := utils.NewVenueSession(conf.Poller.VenueMIC)

	// HTTP/WS server
	srv := server.NewStreamServer(conf.MConfig, logger.NewLogger(conf.LogLevel, "Server"), db, registry, session)

	// Lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := &sync.WaitGroup{}

	// Quote poller (optional; can run against an externally fed store)
	if conf.Poller.Enabled {
		netMgr := network.NewManager(conf.MConfig, logger.NewLogger(conf.LogLevel, "NetworkManager"))
		loader := poller.NewLoader(conf.MConfig, db, netMgr, session, logger.NewLogger(conf.LogLevel, "Loader"))

		if err := loader.Setup(); err != nil {
			appLogger.Critical("Failed to set up quote loader: %v", err)
		}
		if err := loader.Start(ctx, wg); err != nil {
			appLogger.Critical("Failed to start quote loader: %v", err)
		}
	}

	// Broadcast loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		broadcaster.Run(ctx)
	}()

	// HTTP server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	appLogger.Info("rates-streamer running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	srv.Stop()
	wg.Wait()
}
