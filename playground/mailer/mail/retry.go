package mail

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

type (
	RetryPolicy struct {
		Attempts        uint64
		InitialInterval time.Duration
		MaxInterval     time.Duration
	}

	// RetrySender retries the deliveries failing with a temporary error, with an
	// exponential backoff.
	RetrySender struct {
		inner  Sender
		policy *RetryPolicy
		logger zerolog.Logger
	}
)

func NewRetryPolicy(cfg *RetryConfig) *RetryPolicy {
	return &RetryPolicy{
		Attempts:        cfg.Attempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
	}
}

func (p *RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0

	retries := uint64(0)
	if p.Attempts > 1 {
		retries = p.Attempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, retries), ctx)
}

func NewRetrySender(inner Sender, policy *RetryPolicy, logger zerolog.Logger) *RetrySender {
	return &RetrySender{inner: inner, policy: policy, logger: logger}
}

func (r *RetrySender) Send(ctx context.Context, msg Message) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := r.inner.Send(ctx, msg)
		if errors.Is(err, ErrInvalidMessage) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Str("to", msg.To).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("delivery failed, retrying")
	}

	return backoff.RetryNotify(operation, r.policy.backOff(ctx), notify)
}
