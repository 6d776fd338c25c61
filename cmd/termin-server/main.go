package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/alert"
	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/berlinzms"
	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/redismirror"
	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
	"github.com/Guilhem-Bonnet/termin-watch/internal/buildinfo"
	"github.com/Guilhem-Bonnet/termin-watch/internal/config"
	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/logging"
	"github.com/Guilhem-Bonnet/termin-watch/internal/telemetry"
)

func main() {
	cfg := config.Default()
	configPath := flag.String("config", config.Path(), "Fichier YAML (ex: termin.yaml)")
	addr := flag.String("addr", cfg.Addr, "Adresse d'écoute (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", cfg.DBPath, "Chemin SQLite (ex: termin.db)")
	interval := flag.Duration("interval", cfg.PollInterval, "Intervalle entre deux cycles (minimum 3m)")
	quiet := flag.Bool("quiet", cfg.Quiet, "Pas d'alerte sonore")
	flag.Parse()

	if *configPath != "" {
		if err := config.LoadFile(*configPath, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "Erreur:", err)
			os.Exit(1)
		}
	}
	// Les flags explicites passent devant le fichier.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *dbPath
		case "interval":
			cfg.PollInterval = *interval
		case "quiet":
			cfg.Quiet = *quiet
		}
	})

	logger := logging.Setup("termin-server", cfg.Development(), cfg.LogFormat)

	requested := cfg.PollInterval
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.PollInterval != requested {
		logger.Warn().Dur("requested", requested).Dur("interval", cfg.PollInterval).Msg("poll interval raised to the minimum")
	}

	logger.Info().Interface("build", buildinfo.Current()).Str("db", cfg.DBPath).Msg("starting")

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(shutdownCtx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	fetcher := berlinzms.New(berlinzms.Options{
		BaseURL:  cfg.BaseURL,
		Email:    cfg.Email,
		ScriptID: cfg.ScriptID,
	})

	repo := sqlite.NewResourcesRepository(db.SQL)
	resources := app.NewResourceService(repo, fetcher.AppointmentsURL)
	if len(cfg.Resources) > 0 {
		entries := make([]app.SeedEntry, 0, len(cfg.Resources))
		for _, r := range cfg.Resources {
			entries = append(entries, app.SeedEntry{ServiceURL: r.ServiceURL, Name: r.Name})
		}
		n, err := resources.Seed(shutdownCtx, entries)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed resources from config")
		}
		logger.Info().Int("resources", n).Msg("resources seeded from config")
	}

	metrics := telemetry.NewMetrics()
	store := app.NewStateStore()
	bus := app.NewBroadcaster(component(logger, "broadcaster"), memorybus.New(), store, metrics)
	notifier := alert.New(component(logger, "alert"), os.Stdout, alert.Options{
		Quiet:       cfg.Quiet,
		MinInterval: cfg.AlertInterval,
	})

	if cfg.RedisAddr != "" {
		client, err := redismirror.Dial(shutdownCtx, cfg.RedisAddr, os.Getenv("TERMIN_REDIS_PASSWORD"), 0)
		if err != nil {
			// Le miroir est optionnel: on continue sans.
			logger.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, mirror disabled")
		} else {
			defer func() { _ = client.Close() }()
			mirror := redismirror.New(component(logger, "redis-mirror"), client, cfg.RedisChannel)
			bus.Connect(mirror)
			go mirror.Run(shutdownCtx)
		}
	}

	limiter := app.NewFetchLimiter(cfg.MaxConcurrentFetches)
	limited := app.LimitFetcher(fetcher, limiter)
	go watchReload(shutdownCtx, component(logger, "reload"), *configPath, limiter)
	opts := app.WatcherOptions{PollInterval: cfg.PollInterval, FetchTimeout: cfg.FetchTimeout}

	supervisor := app.NewSupervisor(component(logger, "supervisor"), repo, func(res domain.Resource) app.Runner {
		wl := logger.With().Str("component", "watcher").Str("resource_id", res.ID).Logger()
		return app.NewWatcher(wl, res, limited, store, bus, notifier, metrics, opts)
	}, metrics)
	supervisor.RestartDelay = cfg.PollInterval

	n, err := supervisor.Start(shutdownCtx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start watchers")
	}
	logger.Info().Int("watchers", n).Dur("interval", cfg.PollInterval).Msg("watchers started")

	srv := httpapi.NewServer(component(logger, "http"), bus, supervisor, metrics.Handler())
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		// Les flux SSE/WebSocket se terminent avec le signal d'arrêt.
		BaseContext: func(net.Listener) context.Context { return shutdownCtx },
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn().Err(err).Msg("sd_notify failed")
	} else if ok {
		logger.Debug().Msg("systemd notified")
	}

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	supervisor.Wait()
	logger.Info().Msg("bye")
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// watchReload relit la config sur SIGHUP. Seul le plafond de fetchs est
// appliqué à chaud; le reste demande un redémarrage.
func watchReload(ctx context.Context, logger zerolog.Logger, path string, limiter *app.FetchLimiter) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			n, err := reloadFetchLimit(path, limiter)
			if err != nil {
				logger.Error().Err(err).Msg("config reload failed")
				continue
			}
			logger.Info().Int("max_concurrent_fetches", n).Msg("config reloaded")
		}
	}
}

func reloadFetchLimit(path string, limiter *app.FetchLimiter) (int, error) {
	cfg := config.Default()
	if path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return limiter.Limit(), err
		}
	}
	if err := cfg.Validate(); err != nil {
		return limiter.Limit(), err
	}
	limiter.SetLimit(cfg.MaxConcurrentFetches)
	return limiter.Limit(), nil
}
