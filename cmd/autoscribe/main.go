// AutoScribe Core - Natural Language Automation Compiler
//
// This is the main entry point for the AutoScribe Core add-on. AutoScribe
// turns plain-English descriptions into Home Assistant automations:
//   - Deterministic rule-based extraction, always available
//   - Optional local model assistance with graceful fallback
//   - Entity resolution against a live catalog snapshot
//   - Review-first output: documents are returned, never auto-installed
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/autoscribe/autoscribe-core/migrations"

	"github.com/autoscribe/autoscribe-core/internal/api"
	"github.com/autoscribe/autoscribe-core/internal/astro"
	"github.com/autoscribe/autoscribe-core/internal/automation"
	"github.com/autoscribe/autoscribe-core/internal/catalog"
	"github.com/autoscribe/autoscribe-core/internal/compiler"
	"github.com/autoscribe/autoscribe-core/internal/extract"
	"github.com/autoscribe/autoscribe-core/internal/history"
	"github.com/autoscribe/autoscribe-core/internal/homeassistant"
	"github.com/autoscribe/autoscribe-core/internal/inference"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/config"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/database"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/influxdb"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/logging"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/mqtt"
	"github.com/autoscribe/autoscribe-core/internal/resolve"
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

// aliasSessionTTL is how long a reserved alias blocks collisions.
const aliasSessionTTL = time.Hour

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	healthcheck := flag.Bool("healthcheck", false, "probe the local health endpoint and exit")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("autoscribe-core %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *healthcheck {
		if err := runHealthcheck(ctx, getConfigPath(*configPath)); err != nil {
			fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, getConfigPath(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error { //nolint:gocognit // linear wiring sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting AutoScribe Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	historyRepo := history.NewSQLiteRepository(db.DB)

	// Home Assistant client
	haClient := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.GetHATimeout())
	haClient.SetLogger(log)

	// Catalog store and refresher
	store := catalog.NewStore()
	store.SetLogger(log)

	fetcher := homeassistant.NewCatalogFetcher(haClient)
	refresher := catalog.NewRefresher(store, fetcher, cfg.GetRefreshInterval())
	refresher.SetLogger(log)

	if refreshErr := refresher.RefreshNow(ctx); refreshErr != nil {
		// Startup continues with an empty catalog; the loop keeps retrying.
		log.Warn("initial catalog refresh failed", "error", refreshErr)
	}
	go refresher.Run(ctx)
	log.Info("catalog refresher started",
		"interval", cfg.GetRefreshInterval(),
		"entities", store.Current().Len(),
	)

	// Extraction engine: rules always, model path when configured
	engine := extract.NewEngine(extract.NewRuleExtractor())
	engine.SetLogger(log)

	controller := inference.Disabled()
	if cfg.Inference.Enabled {
		controller = inference.NewController(cfg.GetRetryCooldown())
		controller.SetLogger(log)

		model, modelErr := inference.NewModelExtractor(cfg.Inference.ModelPath, cfg.Inference.ModelName, cfg.GetInferenceTimeout())
		if modelErr != nil {
			log.Warn("model extractor unavailable, using rules only", "error", modelErr)
			controller = inference.Disabled()
		} else {
			defer func() {
				log.Info("closing model session")
				if closeErr := model.Close(); closeErr != nil {
					log.Error("error closing model session", "error", closeErr)
				}
			}()
			model.SetLogger(log)
			engine.SetModelPath(model, controller)
			log.Info("model extraction path enabled",
				"model", cfg.Inference.ModelName,
				"timeout", cfg.GetInferenceTimeout(),
			)
		}
	} else {
		log.Info("model extraction path disabled")
	}

	// Resolution and synthesis
	resolver := resolve.NewResolver(cfg.Resolver.AcceptanceThreshold)
	resolver.SetLogger(log)

	synth := automation.NewSynthesizer(automation.NewAliasGenerator(aliasSessionTTL))
	synth.SetLogger(log)

	// Compiler
	comp := compiler.New(engine, resolver, synth, store)
	comp.SetLogger(log)

	// Event fan-out: MQTT, WebSocket, InfluxDB, history
	events := compiler.NewEvents()
	events.SetLogger(log)
	events.SetHistory(historyRepo)
	comp.SetEvents(events)
	store.SetOnReplace(events.CatalogRefreshed)
	controller.SetOnTransition(events.AvailabilityChanged)

	// Connect to MQTT broker (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(discErr error) {
			log.Warn("MQTT disconnected", "error", discErr)
		})

		events.SetPublisher(mqttClient)
	} else {
		log.Info("MQTT disabled")
	}

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

		influxClient.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})

		events.SetMetrics(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub, shared between the API server and the event fan-out
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	events.SetBroadcaster(hub)

	// Sun previews
	calculator := astro.NewCalculator(cfg.Site.Location.Latitude, cfg.Site.Location.Longitude)

	// API server
	deps := api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		Compiler:     comp,
		Store:        store,
		Refresher:    refresher,
		HA:           haClient,
		History:      historyRepo,
		Availability: controller,
		Astro:        calculator,
		DB:           db,
		ExternalHub:  hub,
		Version:      version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.Influx = influxClient
	}

	server, err := api.New(deps)
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

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Model session (if loaded)
	// 5. Database

	log.Info("AutoScribe Core stopped")
	return nil
}

// getConfigPath returns the configuration file path: the --config flag if
// given, then the AUTOSCRIBE_CONFIG environment variable, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("AUTOSCRIBE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
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

// healthcheckTimeout bounds the container healthcheck probe.
const healthcheckTimeout = 5 * time.Second

// runHealthcheck probes the local health endpoint, for use as a container
// HEALTHCHECK command. It loads the config only to learn the API port.
func runHealthcheck(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", cfg.API.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probing %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // nothing useful to do with a close error here

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}
