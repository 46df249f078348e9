package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"moneypall/internal/amqp"
	"moneypall/internal/auth"
	"moneypall/internal/backend"
	"moneypall/internal/cache"
	"moneypall/internal/cli"
	"moneypall/internal/core"
	apphttp "moneypall/internal/http"
	"moneypall/internal/limiter"
	"moneypall/internal/log"
	"moneypall/internal/notify"
	"moneypall/internal/otp"
	"moneypall/internal/report"
	"moneypall/internal/services"
	"moneypall/internal/session"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting moneypall", "port", cfg.Port, "backend", cfg.DataBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	store := res.Store

	// Redis is optional: without it OTP throttling is per process.
	rdb, err := cli.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Error("Invalid Redis URL", log.FieldError, err)
		os.Exit(1)
	}
	if rdb != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis unreachable, throttling will fail open until it recovers", log.FieldError, err)
		} else {
			logger.Info("Connected to Redis")
		}
		cancel()
	}

	notifier, amqpClient := newNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMailQueue, logger)

	sessionCache := cache.NewLRUCache[core.User](cfg.SessionCacheSize, cfg.SessionCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(sessionCache)
	cacheManager.StartCleanup(cfg.SessionCacheTTL)

	sessions := session.NewIssuer(store,
		session.WithCache(sessionCache),
		session.WithLogger(logger))
	ledger := otp.NewLedger(store, otp.WithLogger(logger))

	requestLimit := cli.NewOTPLimiter(rdb, "otp:request", cfg.OTPRequestLimit, cfg.OTPLimitWindow)
	verifyLimit := cli.NewOTPLimiter(rdb, "otp:verify", cfg.OTPVerifyLimit, cfg.OTPLimitWindow)
	orchestrator := auth.NewOrchestrator(store, ledger, sessions, notifier,
		auth.WithLimiters(requestLimit, verifyLimit),
		auth.WithNotifyTimeout(cfg.NotifyTimeout),
		auth.WithLogger(logger))

	loc := cfg.Location()
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:     orchestrator,
		Sessions: sessions,
		Ledger:   services.NewLedgerService(store, loc, logger),
		Reports:  report.NewService(store, loc, logger),
		Ready:    store,
		Logger:   logger,
	}, apphttp.Config{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		limiter.Stop(requestLimit, verifyLimit)
		closeAll(logger, amqpClient, rdb, res.Cleanup)
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newNotifier queues mail for the worker when AMQP is configured and falls
// back to logging the code otherwise.
func newNotifier(url, exchange, queue string, logger *log.Logger) (notify.Notifier, *amqp.Client) {
	if url == "" {
		logger.Warn("AMQP_URL not set, login codes will only be logged")
		return notify.NewLogNotifier(logger), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client, err := amqp.ConnectWithRetry(ctx, url, exchange, queue, logger, 5)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Initialized AMQP client", "exchange", exchange, "queue", queue)
	return notify.NewQueueNotifier(client), client
}

func closeAll(logger *log.Logger, amqpClient *amqp.Client, rdb *redis.Client, cleanup backend.CleanupFunc) {
	if amqpClient != nil {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("Redis close error", log.FieldError, err)
		}
	}
	if cleanup != nil {
		if err := cleanup(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	}
}
