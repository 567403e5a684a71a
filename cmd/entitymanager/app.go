package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/gray-logic-entity-manager/internal/api"
	"github.com/nerrad567/gray-logic-entity-manager/internal/events"
	"github.com/nerrad567/gray-logic-entity-manager/internal/history"
	"github.com/nerrad567/gray-logic-entity-manager/internal/homeassistant"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-entity-manager/internal/manager"
	"github.com/nerrad567/gray-logic-entity-manager/internal/metrics"
	"github.com/nerrad567/gray-logic-entity-manager/internal/naming"
	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
	"github.com/nerrad567/gray-logic-entity-manager/migrations"
)

// appOptions selects the optional parts of the application.
type appOptions struct {
	// publish connects MQTT and InfluxDB when they are enabled.
	publish bool
	// serve creates the Prometheus registry and the WebSocket hub.
	serve bool
	// local stops after the database and overrides are open, without
	// reaching the registry.
	local bool
	// logOutput receives logs instead of the configured output. Commands
	// that print results set it so stdout stays clean.
	logOutput io.Writer
}

// app holds the wired application. Fields for disabled components are nil.
type app struct {
	cfg *config.Config
	log *logging.Logger

	db        *database.DB
	store     *overrides.Store
	history   *history.SQLiteRepository
	offline   *registry.Memory
	ha        *homeassistant.Client
	mqtt      *mqtt.Client
	influx    *influxdb.Client
	promReg   *prometheus.Registry
	collector *metrics.Collector
	hub       *api.Hub
	svc       *manager.Service

	closers []func()
}

// openApp loads configuration and wires every component. On error,
// anything already opened is closed again.
func openApp(ctx context.Context, g *globalOptions, opts appOptions) (_ *app, err error) {
	configPath := g.resolveConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	log := logging.New(cfg.Logging, version)
	if opts.logOutput != nil {
		log = logging.NewWithWriter(cfg.Logging, version, opts.logOutput)
	}
	log.Debug("configuration loaded", "path", configPath)

	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openDatabase(ctx); err != nil {
		return nil, err
	}
	if err := a.openOverrides(ctx); err != nil {
		return nil, err
	}
	if opts.local {
		return a, nil
	}
	if err := a.openRegistry(ctx); err != nil {
		return nil, err
	}

	var observers review.Observers
	observers = append(observers, history.NewRecorder(a.history, log))

	if opts.serve {
		a.promReg = prometheus.NewRegistry()
		a.promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.collector = metrics.NewCollector(a.promReg)
		a.hub = api.NewHub(cfg.API.WebSocket, log)
		observers = append(observers, a.collector, a.hub)
	}

	if opts.publish {
		if err := a.openMQTT(); err != nil {
			return nil, err
		}
		if a.mqtt != nil {
			observers = append(observers, events.NewPublisher(a.mqtt, log))
		}
		if err := a.openInflux(ctx); err != nil {
			return nil, err
		}
		if a.influx != nil {
			observers = append(observers, metrics.NewInfluxRecorder(a.influx))
		}
	}

	resolver, err := newResolver(cfg.Naming, log)
	if err != nil {
		return nil, err
	}

	var mutator registry.Mutator
	var source registry.Source
	if a.offline != nil {
		source, mutator = a.offline, a.offline
	} else {
		source, mutator = a.ha, a.ha
	}

	a.svc = manager.New(manager.Deps{
		Source:       source,
		Mutator:      mutator,
		Overrides:    a.store,
		Resolver:     resolver,
		Observer:     observers,
		DefaultLimit: cfg.Batch.DefaultLimit,
		Logger:       log,
	})
	return a, nil
}

func newResolver(cfg config.NamingConfig, log *logging.Logger) (*naming.Resolver, error) {
	table, err := naming.TypeTableFor(cfg.Locale)
	if err != nil {
		return nil, err
	}
	var strategy naming.AreaStrategy
	if cfg.LegacyRoomGuess {
		guess := naming.NewLegacyRoomGuess(cfg.LegacyRooms)
		log.Warn("legacy room guessing enabled, areas may be taken from identifiers",
			"rooms", guess.Rooms,
		)
		strategy = guess
	}
	return naming.NewResolver(table, strategy), nil
}

func (a *app) openDatabase(ctx context.Context) error {
	db, err := database.Open(ctx, database.Config{
		Path:        a.cfg.Database.Path,
		WALMode:     a.cfg.Database.WALMode,
		BusyTimeout: a.cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.onClose(func() {
		if err := db.Close(); err != nil {
			a.log.Error("error closing database", "error", err)
		}
	})
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	a.db = db
	a.history = history.NewSQLiteRepository(db.DB)
	return nil
}

func (a *app) openOverrides(ctx context.Context) error {
	var backend overrides.Backend
	switch a.cfg.Overrides.Backend {
	case config.OverridesBackendSQLite:
		backend = overrides.NewSQLiteBackend(a.db.DB)
	default:
		backend = overrides.NewFileBackend(a.cfg.Overrides.Path)
	}
	a.store = overrides.NewStore(backend)
	a.store.SetLogger(a.log)
	status := a.store.Load(ctx)
	a.log.Debug("naming overrides ready", "backend", a.cfg.Overrides.Backend, "status", status.String())
	return nil
}

func (a *app) openRegistry(ctx context.Context) error {
	if a.cfg.HomeAssistant.Offline() {
		mem, err := registry.LoadFile(a.cfg.HomeAssistant.SnapshotFile)
		if err != nil {
			return fmt.Errorf("loading registry snapshot: %w", err)
		}
		mem.SetLogger(a.log)
		a.offline = mem
		a.log.Info("using offline registry snapshot", "path", a.cfg.HomeAssistant.SnapshotFile)
		return nil
	}

	a.ha = homeassistant.NewClient(homeassistant.Config{
		URL:            a.cfg.HomeAssistant.URL,
		Token:          a.cfg.HomeAssistant.Token,
		RequestTimeout: a.cfg.GetRequestTimeout(),
	})
	a.ha.SetLogger(a.log)
	a.onClose(func() {
		if err := a.ha.Close(); err != nil {
			a.log.Warn("error closing home assistant connection", "error", err)
		}
	})
	if err := a.ha.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to home assistant: %w", err)
	}
	return nil
}

func (a *app) openMQTT() error {
	if !a.cfg.MQTT.Enabled {
		return nil
	}
	client, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(a.log)
	a.onClose(func() {
		if err := client.Close(); err != nil {
			a.log.Error("error closing MQTT", "error", err)
		}
	})
	a.mqtt = client
	a.log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port),
		"prefix", client.Topics().Prefix(),
	)
	return nil
}

func (a *app) openInflux(ctx context.Context) error {
	client, err := influxdb.Connect(ctx, a.cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		a.log.Error("InfluxDB write error", "error", err)
	})
	a.onClose(func() {
		if err := client.Close(); err != nil {
			a.log.Error("error closing InfluxDB", "error", err)
		}
	})
	a.influx = client
	return nil
}

// components lists the health-checked parts for the API.
func (a *app) components() map[string]api.HealthChecker {
	m := map[string]api.HealthChecker{"database": a.db}
	if a.ha != nil {
		m["homeassistant"] = a.ha
	}
	if a.mqtt != nil {
		m["mqtt"] = a.mqtt
	} else {
		m["mqtt"] = nil
	}
	if a.influx != nil {
		m["influxdb"] = a.influx
	} else {
		m["influxdb"] = nil
	}
	return m
}

// saveOffline writes the offline registry back to its snapshot file so a
// later run sees the renames. It does nothing against a live host.
func (a *app) saveOffline() error {
	if a.offline == nil {
		return nil
	}
	if err := a.offline.WriteFile(a.cfg.HomeAssistant.SnapshotFile); err != nil {
		return fmt.Errorf("saving registry snapshot: %w", err)
	}
	return nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases components in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
