package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	slogmulti "github.com/samber/slog-multi"
	"github.com/voyagen/channelvault/internal/cache"
	"github.com/voyagen/channelvault/internal/catalog"
	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/fetcher"
	"github.com/voyagen/channelvault/internal/metrics"
	"github.com/voyagen/channelvault/internal/server"
	"github.com/voyagen/channelvault/internal/service"
	"github.com/voyagen/channelvault/internal/store"
)

type options struct {
	Config      string `short:"c" long:"config" env:"CHANNELVAULT_CONFIG" description:"Optional config file path (YAML); else use environment variables"`
	LogLevel    string `long:"log-level" description:"Override the configured log level (debug, info, warn, error)"`
	Once        bool   `long:"once" description:"Refresh once, print a summary and exit"`
	WatchEvents bool   `long:"watch-events" description:"Print refresh events from Redis until interrupted"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	level := new(slog.LevelVar)
	logger := newLogger(level)
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if opts.Config != "" {
		cfg, err = config.LoadFromFile(opts.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	level.Set(parseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) error {
	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		var err error
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("redis connected")
	} else {
		logger.Info("redis disabled (REDIS_URL not set)")
	}

	if opts.WatchEvents {
		if rds == nil {
			return errors.New("--watch-events requires REDIS_URL")
		}
		watchEvents(ctx, rds, logger)
		return nil
	}

	snapshots, closeStore, err := openStore(ctx, cfg, rds)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	f := fetcher.New(cfg.Sources.M3UPath, cfg.Sources.Timeout)
	agg := service.NewAggregator(cfg, f, snapshots, m, logger.With("component", "aggregator"))
	refresher := service.NewRefresher(agg, catalog.NewPublished(), cfg.Refresh, logger.With("component", "refresher"))
	if rds != nil {
		refresher.WithLock(rds).WithNotifier(cache.NewQueueNotifier(rds))
	}

	if opts.Once {
		c := refresher.Load(ctx)
		s := c.Diff.Summary()
		fmt.Printf("%d channels, %d categories, %d sources (added %d, removed %d, updated %d, unchanged %d)\n",
			len(c.Channels), len(c.Categories), len(c.SourceStats), s.Added, s.Removed, s.Updated, s.Unchanged)
		for id, st := range c.SourceStats {
			if st.Failed() {
				fmt.Printf("  %s (%s): %s\n", id, st.Name, st.Error)
			}
		}
		return nil
	}

	refresher.Load(ctx)
	go refresher.Run(ctx)

	srv := server.New(cfg, refresher, m, logger.With("component", "http"))
	serveErr := srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	refresher.Shutdown(shutdownCtx)
	if serveErr != nil {
		return fmt.Errorf("server: %w", serveErr)
	}
	return nil
}

// openStore returns the configured snapshot store, or nil when caching is off.
func openStore(ctx context.Context, cfg *config.Config, rds *cache.Redis) (cache.Store, func(), error) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop, nil
	}
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		if rds == nil {
			return nil, noop, config.ErrMissingRedisURL
		}
		return cache.NewRedisStore(rds), noop, nil
	case config.BackendPostgres:
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, noop, fmt.Errorf("migrate: %w", err)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("db: %w", err)
		}
		return pg, pg.Close, nil
	default:
		fs, err := cache.NewFileStore(cfg.Cache.Path)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	}
}

// watchEvents prints refresh events until ctx is cancelled.
func watchEvents(ctx context.Context, rds *cache.Redis, logger *slog.Logger) {
	logger.Info("watching refresh events", "queue", cache.EventQueue)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, err := cache.Dequeue(ctx, rds, cache.EventQueue, 5*time.Second)
		if err != nil {
			logger.Error("dequeue", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if ev == nil {
			continue // timeout, loop back to check ctx
		}
		logger.Info("refresh event",
			"trigger", ev.Trigger, "outcome", ev.Outcome, "channels", ev.ChannelCount,
			"added", ev.Diff.Added, "removed", ev.Diff.Removed, "failed_sources", ev.FailedSources)
	}
}

func newLogger(level slog.Leveler) *slog.Logger {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(slogmulti.Fanout(textHandler, jsonHandler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
