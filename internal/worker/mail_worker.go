package worker

import (
	"context"
	"fmt"
	"time"

	"moneypall/internal/amqp"
	"moneypall/internal/log"
	"moneypall/internal/notify"
)

// MailWorker delivers queued mail messages through a notifier, normally SMTP.
type MailWorker struct {
	sender  notify.Notifier
	timeout time.Duration
	logger  *log.Logger
}

func NewMailWorker(sender notify.Notifier, timeout time.Duration, logger *log.Logger) *MailWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MailWorker{
		sender:  sender,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMailMessage processes a single mail message from AMQP.
func (w *MailWorker) HandleMailMessage(ctx context.Context, msg *amqp.MailMessage) error {
	if msg.To == "" {
		w.logger.WarnContext(ctx, "Dropping mail message without recipient", "message_id", msg.ID)
		return nil
	}

	err := notify.Dispatch(ctx, w.sender, notify.Message{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
	}, w.timeout)
	if err != nil {
		return fmt.Errorf("deliver mail %s: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Mail delivered", log.NewFields().
		WithUser(0, msg.To).
		WithOperation(log.OpDispatch).
		ToSlice()...)
	return nil
}

// Consumer is the receiving side of the AMQP client.
type Consumer interface {
	ConsumeMail(ctx context.Context, handler func(context.Context, *amqp.MailMessage) error) error
}

// Run consumes until ctx is cancelled.
func (w *MailWorker) Run(ctx context.Context, c Consumer) error {
	err := c.ConsumeMail(ctx, w.HandleMailMessage)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
