package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/memesim/config"
	"github.com/alejandrodnm/memesim/internal/adapters/metrics"
	"github.com/alejandrodnm/memesim/internal/adapters/notify"
	"github.com/alejandrodnm/memesim/internal/adapters/rng"
	"github.com/alejandrodnm/memesim/internal/adapters/storage"
	"github.com/alejandrodnm/memesim/internal/adapters/symbols"
	"github.com/alejandrodnm/memesim/internal/application/engine"
	"github.com/alejandrodnm/memesim/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	ticks := flag.Int("ticks", 0, "run N ticks as fast as possible, print the state and exit")
	reset := flag.Bool("reset", false, "discard the persisted simulation and start fresh")
	table := flag.Bool("table", false, "print the full market table instead of the compact line")
	printEvery := flag.Int("print-every", 15, "print the market every N ticks (0 = never)")
	interactive := flag.Bool("interactive", true, "read trade commands from stdin")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("memesim starting",
		"config", *configPath,
		"tickers", cfg.Simulation.TickerCount,
		"interval", cfg.Simulation.TickInterval,
		"backend", cfg.Storage.Backend,
		"seed", cfg.Simulation.Seed,
	)

	store, err := openStore(cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	defer store.Close()

	recorder := metrics.New()
	persister := engine.NewPersister(store, engine.PersisterConfig{
		Key:     cfg.Storage.Key,
		Timeout: cfg.Storage.SaveTimeout,
		Async:   cfg.Storage.Async,
	}, recorder)
	defer persister.Close()

	rnd := rng.New(cfg.Simulation.Seed)
	eng := engine.New(engine.Config{
		TickerCount:     cfg.Simulation.TickerCount,
		HistoryLen:      cfg.Simulation.HistoryLength,
		InitialCash:     cfg.InitialCash(),
		ValuationBucket: cfg.Simulation.ValuationBucket,
		Params:          engine.DefaultConfig().Params,
	}, engine.Deps{
		Random:    rnd,
		Clock:     rng.SystemClock{},
		Symbols:   symbols.New(rnd),
		Persister: persister,
		Metrics:   recorder,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *reset {
		if err := persister.Clear(ctx); err != nil {
			slog.Warn("could not clear persisted state", "err", err)
		}
	}
	restored, err := eng.Open(ctx)
	if err != nil {
		slog.Error("failed to start simulation", "err", err)
		os.Exit(1)
	}
	slog.Info("simulation ready", "restored", restored)

	console := notify.NewConsole(*table)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics, recorder)
	}

	count := 0
	clock := engine.NewClock(eng, cfg.Simulation.TickInterval, func(r engine.TickReport) {
		console.PrintReplacements(r.Replaced)
		count++
		if *printEvery > 0 && count%*printEvery == 0 {
			_ = console.NotifyMarket(ctx, eng.Tickers())
		}
	})

	if *ticks > 0 {
		done := clock.TickN(ctx, *ticks)
		slog.Info("headless run complete", "ticks", done)
		printState(ctx, console, eng)
		return
	}

	if *interactive {
		r := newREPL(eng, console, os.Stdout)
		go func() {
			r.Run(ctx, os.Stdin)
			cancel()
		}()
	}

	if err := clock.Run(ctx); err != nil {
		slog.Error("simulation exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("memesim stopped cleanly")
}

func openStore(cfg config.StorageConfig) (ports.SnapshotStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return storage.NewSQLiteStore(cfg.DSN)
	case "redis":
		return storage.NewRedisStore(
			storage.WithRedisAddr(cfg.RedisAddr),
			storage.WithRedisPassword(cfg.RedisPass),
			storage.WithRedisDB(cfg.RedisDB),
			storage.WithRedisTimeout(cfg.SaveTimeout),
		)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, recorder *metrics.Recorder) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, recorder.Handler())
	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", "addr", cfg.Addr, "path", cfg.Path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "err", err)
	}
}

func printState(ctx context.Context, console *notify.Console, eng *engine.Engine) {
	_ = console.NotifyMarket(ctx, eng.Tickers())
	_ = console.NotifyPortfolio(ctx, eng.Portfolio())
	_ = console.NotifyArchive(ctx, eng.Archive())
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
