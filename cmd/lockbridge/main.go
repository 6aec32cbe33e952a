// Lock Bridge - voice platform to smart lock bridge
//
// This is the main entry point for the Lock Bridge application. It connects
// a voice-assistant smart home platform to physical lock hardware: intents
// come in over HTTP, lock state lives in a local SQLite store, and every
// committed state change is reported back to the platform.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/lockbridge/migrations"

	"github.com/nerrad567/lockbridge/internal/actuator"
	"github.com/nerrad567/lockbridge/internal/api"
	"github.com/nerrad567/lockbridge/internal/device"
	"github.com/nerrad567/lockbridge/internal/fulfillment"
	"github.com/nerrad567/lockbridge/internal/homegraph"
	"github.com/nerrad567/lockbridge/internal/infrastructure/config"
	"github.com/nerrad567/lockbridge/internal/infrastructure/database"
	"github.com/nerrad567/lockbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/lockbridge/internal/infrastructure/logging"
	"github.com/nerrad567/lockbridge/internal/reporter"
	"github.com/nerrad567/lockbridge/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
//nolint:gocognit // linear startup sequence
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lock Bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise the device store and seed catalog devices
	catalog := device.CatalogFromConfig(cfg.Devices)
	store := device.NewStore(device.NewSQLiteRepository(db.DB))
	store.SetLogger(log)

	if refreshErr := store.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device store: %w", refreshErr)
	}
	if seedErr := store.Seed(ctx, catalog.IDs()); seedErr != nil {
		return fmt.Errorf("seeding device store: %w", seedErr)
	}
	log.Info("device store initialised", "devices", len(catalog))

	historyRepo := device.NewSQLiteStateHistoryRepository(db.DB)

	// Vendor actuator; disabled config makes Dispatch a no-op
	act := actuator.New(cfg.Actuator, log)
	defer act.Close()
	go func() {
		for res := range act.Results() {
			if res.Err != nil {
				continue // already logged by the client
			}
			log.Info("vendor actuation confirmed", "device_id", res.DeviceID, "lock", res.Lock)
		}
	}()

	// Platform report/sync client
	hgClient := homegraph.New(cfg.HomeGraph, log)
	if hgClient.Enabled() {
		log.Info("homegraph reporting enabled", "base_url", cfg.HomeGraph.BaseURL)
	} else {
		log.Info("homegraph reporting disabled")
	}

	// Optional telemetry
	var influxClient *influxdb.Client
	var telemetry reporter.Telemetry
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// State reporter: one report attempt per committed mutation
	rep := reporter.New(reporter.Deps{
		Store:       store,
		Reporter:    hgClient,
		History:     historyRepo,
		Telemetry:   telemetry,
		AgentUserID: cfg.Agent.UserID,
		Logger:      log,
	})
	rep.Start(ctx)
	defer rep.Close()

	// Optional MQTT sensor feed for physical lock state
	if cfg.Sensor.Enabled {
		feed := sensor.New(cfg.Sensor, store, log)
		if startErr := feed.Start(ctx); startErr != nil {
			return fmt.Errorf("starting sensor feed: %w", startErr)
		}
		defer func() {
			log.Info("stopping sensor feed")
			if closeErr := feed.Close(); closeErr != nil {
				log.Error("error closing sensor feed", "error", closeErr)
			}
		}()
	} else {
		log.Info("sensor feed disabled")
	}

	// Fulfillment service and HTTP server
	svc := fulfillment.New(fulfillment.Deps{
		Store:       store,
		Catalog:     catalog,
		Actuator:    act,
		AgentUserID: cfg.Agent.UserID,
		Logger:      log,
	})

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Store:       store,
		Fulfillment: svc,
		HomeGraph:   hgClient,
		History:     historyRepo,
		AgentUserID: cfg.Agent.UserID,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, server, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LOCKBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LOCKBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheckTimeout bounds the startup health verification.
const healthCheckTimeout = 5 * time.Second

// healthCheck verifies infrastructure connections after startup.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
