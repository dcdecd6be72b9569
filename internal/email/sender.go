package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Message is a single transactional email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a transactional email.
// Implement this to add new delivery backends.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender is a Sender that only logs. Used in development and tests when
// no delivery API key is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email delivery disabled, dropping message")
	return nil
}

// Service is the notification gateway. It composes account lifecycle
// messages and hands them to the configured sender.
type Service struct {
	sender Sender
}

// NewService creates a notification Service around a Sender.
func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

// SendWelcome sends the signup welcome email.
func (s *Service) SendWelcome(ctx context.Context, to, name string) error {
	return s.sender.Send(ctx, Message{
		To:      to,
		Subject: "Welcome to the Task App!",
		Body:    fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name),
	})
}

// SendCancellation sends the account-deletion email.
func (s *Service) SendCancellation(ctx context.Context, to, name string) error {
	return s.sender.Send(ctx, Message{
		To:      to,
		Subject: "Sad to see you go!",
		Body:    fmt.Sprintf("It's a shame to see you go, %s. Is there anything we could've done to keep you onboard?", name),
	})
}
