package mail

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LoggingSender logs every delivery, once all the retries are done.
type LoggingSender struct {
	inner  Sender
	logger zerolog.Logger
}

func NewLoggingSender(inner Sender, logger zerolog.Logger) *LoggingSender {
	return &LoggingSender{inner: inner, logger: logger}
}

func (l *LoggingSender) Send(ctx context.Context, msg Message) error {
	start := time.Now()
	err := l.inner.Send(ctx, msg)

	event := l.logger.Info()
	if err != nil {
		event = l.logger.Error().Err(err)
	}
	event.
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Dur("elapsed", time.Since(start)).
		Msg("mail sent")

	return err
}
