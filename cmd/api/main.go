// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"geointel/internal/adapter/feeds"
	"geointel/internal/adapter/sink"
	"geointel/internal/adapter/storage"
	"geointel/internal/clock"
	"geointel/internal/config"
	"geointel/internal/domain/intel"
	"geointel/internal/logger"
	"geointel/internal/server"
	"geointel/internal/server/handlers"
	"geointel/internal/service/engine"
)

func main() {
	// A missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	// Setup context cancelled on SIGINT / SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies
	natsConn, err := initNATS(cfg.NATS, log)
	if err != nil {
		return err
	}
	defer natsConn.Close()

	checks := map[string]server.HealthCheck{
		"nats": func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		},
	}

	sinks := sink.Multi{sink.NewNATSSink(natsConn, cfg.NATS.EventsTopic)}
	if cfg.Redis.Enabled {
		rdb, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		sinks = append(sinks, sink.NewRedisSink(rdb, cfg.Redis.KeyPrefix))
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Live feeds are served by workers over NATS; curated zones may come from Postgres
	clk := clock.Real{}
	natsFeeds := feeds.NewNATSFetcher(natsConn, cfg.NATS.FeedTopic, cfg.NATS.FetchTimeout, clk.Now)
	router := feeds.NewRouter().Handle(natsFeeds, intel.Kinds...)

	if cfg.Database.Enabled {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		router.Handle(storage.NewZoneStore(db), intel.KindVessel, intel.KindConflict)
		checks["postgres"] = func(ctx context.Context) error { return db.Ping(ctx) }
	}

	// Initialize the fusion engine
	fusion := engine.New(
		engine.Config{
			EnabledSources:      cfg.Engine.EnabledSources,
			SchedulerResolution: cfg.Engine.SchedulerResolution,
			PublishTimeout:      cfg.Engine.PublishTimeout,
		},
		router,
		sinks,
		clk,
		log.With("component", "engine"),
	)

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		fusion,
		handlers.NATSEvents{Conn: natsConn},
		cfg.NATS.EventsTopic,
		log.With("component", "http"),
		checks,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := fusion.Start(gctx); err != nil {
			return fmt.Errorf("failed to start engine: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("http_listening", "addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown_started")

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		if err := fusion.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("engine shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown_complete")
	return nil
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, log *slog.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("nats_closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// Initialize Redis client for the render-state mirror
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
