// Package notify delivers login codes to users by email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moneypall/internal/amqp"
	"moneypall/internal/log"
)

// DefaultTimeout bounds a single dispatch.
const DefaultTimeout = 5 * time.Second

var ErrNotificationTimeout = errors.New("notification timed out")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// OTPMessage renders the login code email.
func OTPMessage(email, code string) Message {
	return Message{
		To:      email,
		Subject: "Your MoneyPall login code",
		Body:    fmt.Sprintf("Hi, your OTP is: %s. It will expire in 5 minutes.", code),
	}
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError reports that a message could not be handed off.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver notification to %s: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Dispatch sends msg and waits at most timeout. The send keeps running in
// the background after a timeout only if the notifier ignores its context.
func Dispatch(ctx context.Context, n Notifier, msg Message, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.Send(ctx, msg) }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrNotificationTimeout
		}
		return &DeliveryError{To: msg.To, Err: err}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &DeliveryError{To: msg.To, Err: ErrNotificationTimeout}
		}
		return &DeliveryError{To: msg.To, Err: ctx.Err()}
	}
}

// Publisher is the queue side of the AMQP client.
type Publisher interface {
	PublishMail(ctx context.Context, msg *amqp.MailMessage) error
}

// QueueNotifier hands messages to the mailer worker through RabbitMQ.
type QueueNotifier struct {
	pub Publisher
}

func NewQueueNotifier(pub Publisher) *QueueNotifier {
	return &QueueNotifier{pub: pub}
}

func (q *QueueNotifier) Send(ctx context.Context, msg Message) error {
	if err := q.pub.PublishMail(ctx, amqp.NewMailMessage(msg.To, msg.Subject, msg.Body)); err != nil {
		return fmt.Errorf("queue mail: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them. Local development only.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (l *LogNotifier) Send(ctx context.Context, msg Message) error {
	l.logger.InfoContext(ctx, "Notification not delivered, no mail transport configured",
		log.FieldEmail, msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}
