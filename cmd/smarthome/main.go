// SmartHome Core
//
// This is the main entry point for the SmartHome service. One process
// serves three surfaces over a shared SQLite store:
//   - the raw TCP command interface (LOGIN, LIST, TOGGLE, EXIT)
//   - the HTTP REST API with its WebSocket push channel
//   - the MQTT temperature listener
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/smarthome-core/internal/api"
	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smarthome-core/internal/location"
	"github.com/nerrad567/smarthome-core/internal/maintenance"
	"github.com/nerrad567/smarthome-core/internal/notify"
	"github.com/nerrad567/smarthome-core/internal/remote"
	"github.com/nerrad567/smarthome-core/internal/telemetry"
	"github.com/nerrad567/smarthome-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "SMARTHOME_CONFIG"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command-line flags.
type options struct {
	configPath  string
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("smarthome", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (default $"+configEnvVar+" or "+defaultConfigPath+")")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

// getConfigPath picks the flag value, then SMARTHOME_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the actual application logic, separated from main for testability.
//
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("smarthome %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logging.Default()
	log.Info("starting SmartHome Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	broadcaster := notify.New()
	broadcaster.SetLogger(log.With("component", "notify"))

	rooms := location.NewService(location.NewSQLiteRepository(db.DB))

	devices := device.NewService(device.NewSQLiteRepository(db.DB), broadcaster)
	devices.SetLogger(log.With("component", "device"))
	devices.SetRooms(rooms)

	users := auth.NewService(auth.NewUserRepository(db.DB), devices)
	users.SetLogger(log.With("component", "auth"))

	logs := maintenance.NewService(maintenance.NewSQLiteRepository(db.DB))

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", mqtt.BrokerURL(cfg.MQTT),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		broadcaster.AddSink(notify.NewMQTTSink(mqttClient, mqtt.Topics{}.DeviceEvents()))
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		devices.SetMetrics(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	broadcaster.AddSink(notify.NewHubSink(hub))

	var remoteServer *remote.Server
	if cfg.Remote.Enabled {
		remoteServer = remote.NewServer(cfg.Remote, remote.Deps{
			Auth:    users,
			Devices: devices,
		}, log)
	}

	apiDeps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Users:    users,
		Rooms:    rooms,
		Devices:  devices,
		Logs:     logs,
		DB:       db,
		Hub:      hub,
		Version:  version,
	}
	if mqttClient != nil {
		apiDeps.MQTT = mqttClient
	}
	if remoteServer != nil {
		apiDeps.Sessions = remoteServer
	}
	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	// abort unwinds goroutines already started when a later step fails.
	abort := func(err error) error {
		stop()
		_ = g.Wait() //nolint:errcheck // err is the cause being reported
		return err
	}

	g.Go(func() error {
		broadcaster.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if err := apiServer.Start(gctx); err != nil {
		return abort(fmt.Errorf("starting API server: %w", err))
	}
	g.Go(func() error {
		<-gctx.Done()
		return apiServer.Close()
	})

	if cfg.Telemetry.Enabled && mqttClient != nil {
		listener := telemetry.NewListener(telemetry.Config{
			Topic: cfg.Telemetry.TemperatureTopic,
			QoS:   byte(cfg.MQTT.QoS), //nolint:gosec // validated 0-2
		}, mqttClient, devices, broadcaster, metricsWriter(influxClient))
		listener.SetLogger(log.With("component", "telemetry"))
		if err := listener.Start(gctx); err != nil {
			return abort(fmt.Errorf("starting telemetry listener: %w", err))
		}
		log.Info("telemetry listener started", "topic", cfg.Telemetry.TemperatureTopic)
		g.Go(func() error {
			<-gctx.Done()
			if stopErr := listener.Stop(); stopErr != nil {
				log.Warn("error stopping telemetry listener", "error", stopErr)
			}
			return nil
		})
	} else {
		log.Info("telemetry listener disabled")
	}

	if remoteServer != nil {
		g.Go(func() error {
			return remoteServer.ListenAndServe(gctx)
		})
	} else {
		log.Info("remote interface disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	err = g.Wait()
	if err != nil {
		log.Error("service stopped with error", "error", err)
	}
	log.Info("SmartHome Core stopped")
	return err
}

// metricsWriter returns influxClient as a TemperatureWriter, or nil
// without wrapping a nil pointer in the interface.
func metricsWriter(influxClient *influxdb.Client) telemetry.TemperatureWriter {
	if influxClient == nil {
		return nil
	}
	return influxClient
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
