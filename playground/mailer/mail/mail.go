// Package mail is a small mail delivery stack: a simulated SMTP transport, wrapped
// by a retry decorator and a logging decorator.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type (
	Message struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}

	// Sender delivers messages.
	Sender interface {
		Send(ctx context.Context, msg Message) error
	}
)

var (
	// ErrInvalidMessage is returned for messages that can never be delivered. It is
	// not retried.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrRelayUnavailable is returned by the SMTP transport on a temporary failure.
	ErrRelayUnavailable = errors.New("smtp relay unavailable")
)

func (m Message) Validate() error {
	if !strings.Contains(m.To, "@") {
		return fmt.Errorf("%w: recipient %q is not an email address", ErrInvalidMessage, m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject cannot be empty", ErrInvalidMessage)
	}
	return nil
}
