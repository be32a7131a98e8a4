package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type (
	// Outbox records the delivered messages.
	Outbox struct {
		mu       sync.RWMutex
		messages []Message
	}

	// SMTPSender is a simulated SMTP transport. It only records deliveries in the
	// outbox.
	SMTPSender struct {
		cfg    *SMTPConfig
		outbox *Outbox
		logger zerolog.Logger

		mu       sync.Mutex
		attempts map[Message]int
	}
)

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) add(msg Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
}

// Messages returns a copy of the delivered messages, oldest first.
func (o *Outbox) Messages() []Message {
	o.mu.RLock()
	defer o.mu.RUnlock()

	messages := make([]Message, len(o.messages))
	copy(messages, o.messages)
	return messages
}

func NewSMTPSender(cfg *SMTPConfig, outbox *Outbox, logger zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:      cfg,
		outbox:   outbox,
		logger:   logger,
		attempts: make(map[Message]int),
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.attempts[msg]++
	attempt := s.attempts[msg]
	s.mu.Unlock()

	if attempt <= s.cfg.FailFirst {
		return fmt.Errorf("%w: %s:%d refused attempt %d", ErrRelayUnavailable, s.cfg.Host, s.cfg.Port, attempt)
	}

	s.outbox.add(msg)
	return nil
}

// Close releases the relay connection.
func (s *SMTPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug().
		Str("host", s.cfg.Host).
		Int("messages", len(s.attempts)).
		Msg("smtp connection closed")
	clear(s.attempts)
	return nil
}
