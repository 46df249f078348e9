package main

import (
	"os"
	"time"

	"moneypall/internal/amqp"
	"moneypall/internal/cli"
	"moneypall/internal/config"
	"moneypall/internal/log"
	"moneypall/internal/notify"
	"moneypall/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting mailer-worker")

	if err := cfg.ValidateMailer(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	client, err := amqp.ConnectWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMailQueue, logger, 10)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	sender, err := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	if err != nil {
		logger.Error("Failed to configure SMTP", log.FieldError, err)
		os.Exit(1)
	}
	mailWorker := worker.NewMailWorker(sender, cfg.NotifyTimeout, logger)

	logger.Info("Consuming mail messages", "queue", cfg.AMQPMailQueue, "smtp_host", cfg.SMTPHost)
	if err := mailWorker.Run(ctx, client); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Mailer worker stopped")
}
