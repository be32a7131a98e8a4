package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/a-peyrard/godeco"
	"github.com/a-peyrard/godeco/config"
	"github.com/a-peyrard/godeco/playground/mailer/mail"
	"github.com/a-peyrard/godeco/playground/mailer/server"
	"github.com/a-peyrard/godeco/runner"
	"github.com/rs/zerolog"
)

// AppConfig is loaded from MAILER_* variables, ex: MAILER_ADDR,
// MAILER_MAIL_SMTP_FAIL_FIRST, MAILER_MAIL_RETRY_ATTEMPTS.
type AppConfig struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`
	Mail     *mail.Config
}

func (c *AppConfig) ApplyDefault() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = zerolog.InfoLevel.String()
	}
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().
		Timestamp().
		Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("mailer stopped")
	}
	logger.Info().Msg("bye.")
}

func run(logger zerolog.Logger) error {
	cfg, err := config.Load[AppConfig](config.WithEnvPrefix("MAILER"), config.WithDotEnv(".env"))
	if err != nil {
		return fmt.Errorf("unable to load configuration:\n\t%w", err)
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q:\n\t%w", cfg.LogLevel, err)
	}
	logger = logger.Level(level)

	c := godeco.NewCollection(godeco.WithLogger(logger))
	if err = mail.Register(c, cfg.Mail, logger); err != nil {
		return err
	}
	container, err := c.Build()
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close container")
		}
	}()
	logger.Debug().Msgf("here is what we have in store before running:\n%s", container.Describe())

	ctx, cancel := runner.WithSyscallKillableContext(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(container, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err = runner.RunAll(ctx, server.Serve(srv, logger)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Debug().Msgf("here is what we have in store at the end:\n%s", container.Describe())
	return nil
}
