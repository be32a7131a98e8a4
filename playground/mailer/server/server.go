// Package server exposes the mail stack over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/a-peyrard/godeco"
	"github.com/a-peyrard/godeco/playground/mailer/mail"
	"github.com/a-peyrard/godeco/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

type scopeKey struct{}

// NewRouter creates the HTTP API. Every request gets its own scope, closed once
// the response is written.
func NewRouter(container *godeco.Container, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestScope(container, logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/messages", func(r chi.Router) {
		r.Post("/", sendMessage)
		r.Get("/", listMessages)
	})

	return r
}

func requestScope(container *godeco.Container, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := container.NewScope()
			defer func() {
				if err := scope.Close(); err != nil {
					logger.Error().
						Err(err).
						Str("request_id", middleware.GetReqID(r.Context())).
						Msg("failed to close request scope")
				}
			}()

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), scopeKey{}, scope)))
		})
	}
}

// ScopeFrom returns the scope of the request.
func ScopeFrom(ctx context.Context) (*godeco.Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*godeco.Scope)
	return scope, ok
}

func sendMessage(w http.ResponseWriter, r *http.Request) {
	var msg mail.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unable to decode message: %w", err))
		return
	}

	sender, err := resolve[mail.Sender](r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err = sender.Send(r.Context(), msg); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, mail.ErrInvalidMessage) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func listMessages(w http.ResponseWriter, r *http.Request) {
	outbox, err := resolve[*mail.Outbox](r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, outbox.Messages())
}

func resolve[T any](r *http.Request) (T, error) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		var zero T
		return zero, errors.New("no scope attached to the request")
	}
	return godeco.Resolve[T](scope)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(srv *http.Server, logger zerolog.Logger) runner.Runnable {
	return runner.RunnableFunc(func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("http server listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("http server failed:\n\t%w", err)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			logger.Info().Msg("shutting down http server")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down http server:\n\t%w", err)
			}
			return ctx.Err()
		}
	})
}
