// Breezer Core - MQTT state synchronization for Ballu ONEAIR breezers
//
// This is the main entry point for the breezerd daemon. It connects to
// the vendor MQTT broker, mirrors the state of each configured
// ventilation unit, records state changes to SQLite, and forwards
// temperature telemetry to InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/openbreeze/breezer-core/migrations"

	"github.com/openbreeze/breezer-core/internal/breezer"
	"github.com/openbreeze/breezer-core/internal/history"
	"github.com/openbreeze/breezer-core/internal/infrastructure/config"
	"github.com/openbreeze/breezer-core/internal/infrastructure/database"
	"github.com/openbreeze/breezer-core/internal/infrastructure/influxdb"
	"github.com/openbreeze/breezer-core/internal/infrastructure/logging"
	"github.com/openbreeze/breezer-core/internal/infrastructure/mqtt"
	"github.com/openbreeze/breezer-core/internal/manager"
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

// run is the actual application logic, separated from main for
// testability. Returning an error lets main handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Breezer Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "devices", len(cfg.Devices))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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

	historyRepo := history.NewRepository(db.DB)

	// Connect to the vendor MQTT broker. A failed initial connection is
	// fatal; reconnects after startup are handled by the client.
	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Topics.Namespace)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start one device per configured unit, all sharing the connection
	deviceManager := manager.New()
	deviceManager.SetLogger(log)
	defer deviceManager.Close()

	for _, devCfg := range cfg.Devices {
		device, devErr := newDevice(devCfg, cfg.Topics, mqttClient, historyRepo, influxClient, log)
		if devErr != nil {
			return fmt.Errorf("creating device %s: %w", devCfg.MAC, devErr)
		}
		if addErr := deviceManager.Add(device); addErr != nil {
			return fmt.Errorf("starting device %s: %w", devCfg.MAC, addErr)
		}
	}
	log.Info("devices started", "count", deviceManager.Count())

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Device manager
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Breezer Core stopped")
	return nil
}

// newDevice builds one breezer device from its config entry.
//
// influxClient is passed as the concrete type so a nil client can be
// omitted from the options rather than becoming a non-nil interface
// holding a nil pointer.
func newDevice(
	devCfg config.DeviceConfig,
	topics config.TopicsConfig,
	mqttClient *mqtt.Client,
	historyRepo *history.Repository,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*breezer.Device, error) {
	opts := breezer.DeviceOptions{
		MAC:     devCfg.MAC,
		Name:    devCfg.Name,
		Topics:  breezer.NewTopicSet(topics.Namespace, topics.DeviceType, devCfg.ClientID),
		MQTT:    mqttClient,
		History: historyRepo,
		Logger:  log,
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
	}
	return breezer.NewDevice(opts)
}

// getConfigPath returns the configuration file path.
// Uses the BREEZER_CONFIG environment variable if set.
func getConfigPath() string {
	if path := os.Getenv("BREEZER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when the integration is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
