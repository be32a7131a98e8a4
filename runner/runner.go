// Package runner runs long-lived components until they stop or the context ends.
package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

type (
	// Runnable represents a component that can be run with a context.
	Runnable interface {
		Run(ctx context.Context) error
	}

	// RunnableFunc adapts a function to Runnable.
	RunnableFunc func(ctx context.Context) error
)

func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// RunAll runs all the provided runnables concurrently and waits for all of them to finish.
//
// This method is blocking and will return the first error returned by a runnable, the
// context given to the other runnables is cancelled as soon as one fails.
func RunAll(parentCtx context.Context, runnables ...Runnable) error {
	group, ctx := errgroup.WithContext(parentCtx)

	for _, runnable := range runnables {
		runnable := runnable
		group.Go(func() error {
			return runnable.Run(ctx)
		})
	}

	return group.Wait()
}

// WithSyscallKillableContext returns a context cancelled on SIGINT or SIGTERM.
func WithSyscallKillableContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
