package mail

import (
	"fmt"

	"github.com/a-peyrard/godeco"
	"github.com/rs/zerolog"
)

// Register wires the mail stack in c. Senders are scoped: one relay connection per
// scope, wrapped as LoggingSender(RetrySender(SMTPSender)).
func Register(c *godeco.Collection, cfg *Config, logger zerolog.Logger) error {
	if err := godeco.RegisterInstance(c, logger); err != nil {
		return fmt.Errorf("failed to register mail logger:\n\t%w", err)
	}

	return godeco.Decorate[Sender](c, NewLoggingSender, func(logged *godeco.Collection) error {
		return godeco.Decorate[Sender](logged, NewRetrySender, func(retried *godeco.Collection) error {
			if err := godeco.RegisterInstance(retried, cfg.Retry); err != nil {
				return err
			}
			if err := godeco.RegisterSelf(retried, NewRetryPolicy); err != nil {
				return err
			}
			if err := godeco.RegisterInstance(retried, cfg.SMTP); err != nil {
				return err
			}
			if err := godeco.RegisterSelf(retried, NewOutbox); err != nil {
				return err
			}
			return godeco.Register[Sender](
				retried,
				NewSMTPSender,
				godeco.WithLifetime(godeco.Scoped),
				godeco.Description(fmt.Sprintf("simulated relay %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)),
			)
		})
	})
}
