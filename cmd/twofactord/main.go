// Command twofactord serves the two-factor authentication API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/twofactor/internal/api"
	"github.com/dmitrymomot/twofactor/pkg/config"
	"github.com/dmitrymomot/twofactor/pkg/httpserver"
	"github.com/dmitrymomot/twofactor/pkg/locker"
	"github.com/dmitrymomot/twofactor/pkg/logger"
	"github.com/dmitrymomot/twofactor/pkg/mongo"
	"github.com/dmitrymomot/twofactor/pkg/pg"
	"github.com/dmitrymomot/twofactor/pkg/redis"
	"github.com/dmitrymomot/twofactor/pkg/twofactor"
	"github.com/dmitrymomot/twofactor/pkg/twofactor/memstore"
	"github.com/dmitrymomot/twofactor/pkg/twofactor/mongostore"
	"github.com/dmitrymomot/twofactor/pkg/twofactor/pgstore"
)

const serviceName = "twofactord"

type appConfig struct {
	Env           string `env:"APP_ENV" envDefault:"development"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"` // memory, postgres or mongo
	LockerDriver  string `env:"LOCKER_DRIVER" envDefault:"local"`   // local or redis
	LogLevel      string `env:"LOG_LEVEL"`                          // overrides the APP_ENV preset; reloaded on SIGHUP

	HTTP      httpserver.Config
	API       api.Config
	TwoFactor twofactor.Config
	Postgres  pg.Config
	Mongo     mongo.Config
	Redis     redis.Config
}

type readinessCheck = func(context.Context) error

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := config.NewSnapshot[appConfig]()
	if err == nil {
		err = run(ctx, snap)
	}
	if err != nil {
		slog.Error("twofactord stopped", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the service from the current snapshot. Connections and the
// workflow are built once; SIGHUP reloads the snapshot and applies LOG_LEVEL.
func run(ctx context.Context, snap *config.Snapshot[appConfig]) error {
	cfg := snap.Get()

	level := new(slog.LevelVar)
	level.Set(logLevel(cfg))
	log := logger.New(
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithLevelVar(level),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	)
	logger.SetAsDefault(log)
	go reloadOnHangup(ctx, snap, level, log)

	storage, checks, cleanup, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []twofactor.Option{twofactor.WithLogger(log)}
	if cfg.LockerDriver == "redis" {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		l, err := locker.NewRedis(client,
			locker.WithPrefix(cfg.Redis.LockPrefix),
			locker.WithReleaseErrorHandler(func(key string, err error) {
				log.Warn("failed to release lock", logger.Component("locker"), slog.String("key", key), logger.Error(err))
			}),
		)
		if err != nil {
			return err
		}
		opts = append(opts, twofactor.WithLocker(l))
		checks = append(checks, redis.Healthcheck(client))
	}

	svc, err := twofactor.NewFromConfig(storage, cfg.TwoFactor, opts...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := api.NewMetrics(reg)
	if err != nil {
		return err
	}

	router := api.NewHandler(svc, cfg.API, api.WithLogger(log), api.WithMetrics(metrics)).Router()
	router.Get("/health/live", httpserver.Liveness())
	router.Get("/health/ready", httpserver.Readiness(log, checks...))
	router.Method("GET", "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.Info("starting two-factor service",
		slog.String("addr", cfg.HTTP.Addr),
		slog.String("storage", cfg.StorageDriver),
		slog.String("locker", cfg.LockerDriver),
	)
	return httpserver.New(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, router)
}

func openStorage(ctx context.Context, cfg appConfig, log *slog.Logger) (twofactor.Storage, []readinessCheck, func(), error) {
	switch cfg.StorageDriver {
	case "memory", "":
		log.Warn("using in-memory storage, enrollments are lost on restart")
		return memstore.New(), nil, func() {}, nil

	case "postgres":
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := pgstore.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return pgstore.New(pool), []readinessCheck{pg.Healthcheck(pool)}, pool.Close, nil

	case "mongo":
		db, err := mongo.Database(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		client := db.Client()
		cleanup := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn("failed to disconnect mongo client", logger.Error(err))
			}
		}
		return mongostore.New(db), []readinessCheck{mongo.Healthcheck(client)}, cleanup, nil

	default:
		return nil, nil, nil, errors.Join(twofactor.ErrConfiguration, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver))
	}
}

func reloadOnHangup(ctx context.Context, snap *config.Snapshot[appConfig], level *slog.LevelVar, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := snap.Reload(); err != nil {
				log.Error("configuration reload failed, keeping previous values", logger.Error(err))
				continue
			}
			level.Set(logLevel(snap.Get()))
			log.Info("configuration reloaded", slog.String("log_level", level.Level().String()))
		}
	}
}

// logLevel returns LOG_LEVEL when it parses, otherwise the APP_ENV default.
func logLevel(cfg appConfig) slog.Level {
	var l slog.Level
	if cfg.LogLevel != "" && l.UnmarshalText([]byte(cfg.LogLevel)) == nil {
		return l
	}
	switch cfg.Env {
	case logger.EnvProduction, "prod", logger.EnvStaging, "stage":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
