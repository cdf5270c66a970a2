package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/infra/buildinfo"
	"github.com/evant/instance-state/internal/infra/confloader"
	"github.com/evant/instance-state/internal/infra/shutdown"
	"github.com/evant/instance-state/internal/server/config"
	"github.com/evant/instance-state/internal/server/httpserver"
	"github.com/evant/instance-state/internal/server/localserver"
	"github.com/evant/instance-state/internal/server/msgserver"
	"github.com/evant/instance-state/internal/storage/badgerstore"
	"github.com/evant/instance-state/internal/storage/bundle"
	"github.com/evant/instance-state/internal/telemetry/logger"
	"github.com/evant/instance-state/internal/telemetry/metric"
)

func main() {
	app := &cli.App{
		Name:    "instancestate-server",
		Usage:   "Carry key/value state across process instances",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to configuration file", EnvVars: []string{"INSTANCESTATE_CONFIG"}},
			&cli.StringFlag{Name: "addr", Usage: "Message transport address"},
			&cli.StringFlag{Name: "network", Usage: "Message transport network: tcp or unix"},
			&cli.StringFlag{Name: "http-addr", Usage: "Admin HTTP address"},
			&cli.StringFlag{Name: "socket", Usage: "Local management socket path"},
			&cli.StringFlag{Name: "backend", Usage: "Storage backend: none, bundle or badger"},
			&cli.StringFlag{Name: "data-dir", Usage: "Storage data directory"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
			&cli.BoolFlag{Name: "ack", Usage: "Acknowledge set and remove with a null frame"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagOverrides maps set command-line flags onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	keys := map[string]string{
		"addr":      "server.message.addr",
		"network":   "server.message.network",
		"http-addr": "server.http.addr",
		"socket":    "server.local.path",
		"backend":   "storage.backend",
		"data-dir":  "storage.data_dir",
		"log-level": "log.level",
	}
	out := make(map[string]any)
	for flag, key := range keys {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	if c.IsSet("ack") {
		out["server.message.ack_mutations"] = c.Bool("ack")
	}
	return out
}

func run(c *cli.Context) error {
	configFile := c.String("config")
	loader := confloader.NewLoader(
		confloader.WithConfigFile(configFile),
		confloader.WithOverrides(flagOverrides(c)),
	)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    os.Stdout,
		AddSource: cfg.Log.AddSource,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	defer logger.Sync()

	info := buildinfo.Get()
	log.Info("starting instancestate-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)

	// Metrics
	reg := metric.NewRegistry()
	store := service.NewStateStore(
		service.WithStoreLogger(log),
		service.WithRecorder(reg),
	)
	if err := reg.Register(metric.NewCollector(store.MetricStats)); err != nil {
		return fmt.Errorf("register store collector: %w", err)
	}

	// Persistence
	persister, closeStorage, err := initPersister(cfg, reg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	lifecycle := service.NewLifecycle(store, persister)
	lifecycle.Recorder = reg
	lifecycle.Logger = log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := lifecycle.Restore(ctx); err != nil {
		closeStorage()
		return fmt.Errorf("restore state: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Hooks run in reverse order: storage is closed last, after the final
	// persist, which runs after every listener has stopped.
	shutdownHandler.OnShutdown(func(context.Context) error {
		return closeStorage()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		n, err := lifecycle.Persist(ctx)
		if err != nil {
			return fmt.Errorf("final persist: %w", err)
		}
		log.Info("state persisted for next instance", "keys", n, "backend", lifecycle.Backend())
		return nil
	})

	// Message transport
	dispatcher := service.NewDispatcher(store,
		service.WithAckMutations(cfg.Server.Message.AckMutations),
		service.WithDispatchLogger(log),
		service.WithDecodeErrorRecorder(reg),
	)
	msgServer := msgserver.New(&msgserver.Config{
		Network:        cfg.Server.Message.Network,
		Address:        cfg.Server.Message.Addr,
		ReadTimeout:    cfg.Server.Message.ReadTimeout,
		WriteTimeout:   cfg.Server.Message.WriteTimeout,
		IdleTimeout:    cfg.Server.Message.IdleTimeout,
		RateLimit:      cfg.Server.Message.RateLimit,
		MaxPayload:     cfg.Server.Message.MaxPayload,
		MaxConnections: cfg.Server.Message.MaxConnections,
	}, dispatcher, msgserver.WithLogger(log), msgserver.WithRecorder(reg))
	if err := msgServer.Start(ctx); err != nil {
		closeStorage()
		return err
	}
	shutdownHandler.OnShutdown(msgServer.Shutdown)

	// Admin HTTP
	if cfg.Server.HTTP.Enabled {
		httpServer := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Store:       store,
			Lifecycle:   lifecycle,
			Metrics:     reg.Handler(),
			Logger:      log,
			RateLimit:   cfg.Server.HTTP.RateLimit,
			EnableAudit: cfg.Server.HTTP.EnableAudit,
		}))
		if err := httpServer.Listen(); err != nil {
			return err
		}
		go func() {
			log.Info("HTTP server listening", "addr", httpServer.Addr().String())
			if err := httpServer.Serve(); err != nil {
				log.Error("HTTP server error", "error", err)
			}
		}()
		shutdownHandler.OnShutdown(httpServer.Shutdown)
	}

	// Local management socket
	if cfg.Server.Local.Enabled {
		localServer := localserver.New(cfg.Server.Local.Path, localserver.NewHandler(localserver.Deps{
			Store:       store,
			Lifecycle:   lifecycle,
			Shutdown:    shutdownHandler.Trigger,
			Connections: msgServer.ConnectionCount,
			StartedAt:   time.Now(),
		}), log)
		if err := localServer.Listen(); err != nil {
			return err
		}
		go func() {
			if err := localServer.Serve(ctx); err != nil {
				log.Error("local server error", "error", err)
			}
		}()
		shutdownHandler.OnShutdown(localServer.Shutdown)
	}

	if cfg.Storage.PersistInterval > 0 && persister != nil {
		go persistLoop(ctx, lifecycle, cfg.Storage.PersistInterval, log)
	}

	if configFile != "" {
		stopWatch, err := watchConfig(loader, configFile, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return stopWatch()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully", "reason", shutdownHandler.Reason())
	return nil
}

// initPersister opens the configured backend. The returned close function
// is always non-nil.
func initPersister(cfg *config.ServerConfig, reg *metric.Registry, log logger.Logger) (service.Persister, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendNone:
		log.Warn("storage backend disabled, state will not survive restarts")
		return nil, noop, nil

	case config.BackendBadger:
		bcfg := badgerstore.DefaultConfig(cfg.Storage.DataDir)
		store, err := badgerstore.Open(bcfg, log)
		if err != nil {
			return nil, noop, err
		}
		if err := store.RegisterMetrics(reg.Registerer()); err != nil {
			store.Close()
			return nil, noop, err
		}
		return store, store.Close, nil

	default:
		mgr, err := bundle.NewManager(bundle.Config{
			Dir:            cfg.Storage.DataDir,
			RetentionCount: cfg.Storage.BundleKeep,
			Logger:         log,
		})
		if err != nil {
			return nil, noop, err
		}
		return mgr, noop, nil
	}
}

func persistLoop(ctx context.Context, lc *service.Lifecycle, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := lc.Persist(ctx); err != nil {
				log.Error("periodic persist failed", "error", err)
			} else {
				log.Debug("periodic persist", "keys", n)
			}
		}
	}
}

// watchConfig reloads the config file on change. Only the log level is
// applied at runtime; other changes need a restart.
func watchConfig(loader *confloader.Loader, path string, log logger.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if !logger.ValidLevel(next.Log.Level) {
			log.Warn("config reload: invalid log level", "level", next.Log.Level)
			return
		}
		if next.Log.Level != logger.GetLevel() {
			logger.SetLevel(next.Log.Level)
			log.Info("log level changed", "level", next.Log.Level)
		}
	})
	w.StartAsync()
	return w.Stop, nil
}
