// The worker keeps reference and stock caches warm: it periodically rebuilds
// the stock snapshot for every known location and refreshes the cached
// product/customer/location lists, so a form opening with a pre-selected
// location validates against fresh data instead of triggering a cold fetch.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sunpower-services/invoicing-api/internal/catalog"
	"github.com/sunpower-services/invoicing-api/internal/config"
	"github.com/sunpower-services/invoicing-api/internal/erp"
	"github.com/sunpower-services/invoicing-api/internal/lock"
	"github.com/sunpower-services/invoicing-api/internal/obs"
	"github.com/sunpower-services/invoicing-api/internal/resilience"
	"github.com/sunpower-services/invoicing-api/internal/stock"
)

const (
	taskStockRefresh = "stock:refresh"
	taskCatalogWarm  = "catalog:warm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "invoicing"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	erpLogger := logger.With().Str("target", "erp").Logger()
	erpClient := &erp.Client{
		BaseURL: cfg.ERPBaseURL,
		APIKey:  cfg.ERPAPIKey,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).WithTarget("erp").WithLogger(erpLogger),
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RetryMaxAttempts,
			Jitter:      cfg.RetryJitterPercent,
			Timeout:     cfg.OutboundTimeout,
			Target:      "erp",
			Logger:      &erpLogger,
		},
	}

	catalogSvc := &catalog.Service{
		Backend: erpClient,
		Cache:   catalog.NewCache(redisClient, cfg.ReferenceCacheTTL),
		Logger:  logger.With().Str("component", "catalog").Logger(),
	}
	stockSvc := &stock.Service{
		Stock:   erpClient,
		Catalog: catalogSvc,
		Store:   stock.Store{R: redisClient, TTL: cfg.SnapshotTTL},
		Locker:  lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		LockTTL: cfg.LockTTL,
		Logger:  logger.With().Str("component", "stock").Logger(),
	}

	redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for asynq")
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(taskStockRefresh, func(ctx context.Context, _ *asynq.Task) error {
		locations, err := catalogSvc.Locations(ctx)
		if err != nil {
			return fmt.Errorf("list locations: %w", err)
		}
		for _, loc := range locations {
			if _, err := stockSvc.Rebuild(ctx, loc.ID); err != nil {
				logger.Error().Err(err).Str("location", loc.ID).Msg("snapshot refresh failed")
				continue
			}
			logger.Debug().Str("location", loc.ID).Msg("snapshot refreshed")
		}
		return nil
	})
	mux.HandleFunc(taskCatalogWarm, func(ctx context.Context, _ *asynq.Task) error {
		catalogSvc.Refresh(ctx)
		return nil
	})

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 2,
		Logger:      asynqLogger{logger},
	})
	scheduler := asynq.NewScheduler(redisConn, &asynq.SchedulerOpts{
		Logger: asynqLogger{logger},
	})

	refreshSpec := "@every " + cfg.StockRefreshInterval.String()
	if _, err := scheduler.Register(refreshSpec, asynq.NewTask(taskStockRefresh, nil)); err != nil {
		logger.Fatal().Err(err).Msg("register stock refresh schedule")
	}
	warmSpec := "@every " + cfg.ReferenceCacheTTL.String()
	if _, err := scheduler.Register(warmSpec, asynq.NewTask(taskCatalogWarm, nil)); err != nil {
		logger.Fatal().Err(err).Msg("register catalog warm schedule")
	}

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	if err := server.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker server")
	}

	logger.Info().Msg("worker started")
	<-ctx.Done()

	scheduler.Shutdown()
	server.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger adapts zerolog to asynq's logging interface.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
