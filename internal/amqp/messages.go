package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MailMessage is one outgoing email handed to the mailer worker.
type MailMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMailMessage(to, subject, body string) *MailMessage {
	return &MailMessage{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
		Timestamp: time.Now(),
	}
}

func (m *MailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MailMessageFromJSON(data []byte) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
