package main

import (
	"context"
	"os"
	"time"

	"moneypall/internal/backend"
	"moneypall/internal/cli"
	"moneypall/internal/log"
	"moneypall/internal/otp"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentSweeper)

	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Error("OTP sweeper needs the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	ledger := otp.NewLedger(res.Store, otp.WithLogger(logger))
	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Starting otp-sweeper",
		"interval", cfg.OTPSweepInterval.String(),
		"retention", cfg.OTPRetention.String())

	sweep := func() {
		n, err := ledger.Sweep(ctx, cfg.OTPRetention)
		if err != nil {
			logger.Error("OTP sweep failed", log.FieldError, err)
			return
		}
		logger.Info("OTP sweep complete", "deleted", n)
	}
	sweep()

	ticker := time.NewTicker(cfg.OTPSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("OTP sweeper stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
