package cliapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
)

// Lifecycle represents a long-running service.
type Lifecycle interface {
	// Start starts the service. The ctx only scopes the start-up, not the lifetime of the service.
	Start(ctx context.Context) error
	// Stop stops the service. The ctx may be cancelled to force-close remaining work.
	Stop(ctx context.Context) error
	// Stopped reports if the service was stopped.
	Stopped() bool
}

// LifecycleAction instantiates a Lifecycle from the CLI context.
// The close function may be called by the service to shut itself down.
type LifecycleAction func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error)

var interruptErr = errors.New("interrupt signal")

// StopTimeout bounds the graceful shutdown of a Lifecycle.
var StopTimeout = 10 * time.Second

// WithSignalInterrupt returns a context that is cancelled on SIGINT or SIGTERM.
func WithSignalInterrupt(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancelCause(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel(interruptErr)
		case <-ctx.Done():
		}
	}()
	return ctx
}

// LifecycleCmd turns a LifecycleAction into a CLI action:
// the service is started, runs until the CLI context is done or the service closes itself,
// and is then stopped.
func LifecycleCmd(fn LifecycleAction) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		hostCtx := ctx.Context
		appCtx, appCancel := context.WithCancelCause(hostCtx)
		ctx.Context = appCtx
		defer appCancel(nil)

		appLifecycle, err := fn(ctx, appCancel)
		if err != nil {
			return errors.Join(
				fmt.Errorf("failed to setup: %w", err),
				context.Cause(appCtx),
			)
		}

		if err := appLifecycle.Start(appCtx); err != nil {
			return errors.Join(
				fmt.Errorf("failed to start: %w", err),
				context.Cause(appCtx),
			)
		}

		<-appCtx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), StopTimeout)
		defer stopCancel()
		stopErr := appLifecycle.Stop(stopCtx)
		if stopErr != nil {
			stopErr = fmt.Errorf("failed to stop: %w", stopErr)
		}
		cause := context.Cause(appCtx)
		if errors.Is(cause, interruptErr) || errors.Is(cause, context.Canceled) {
			cause = nil
		}
		return errors.Join(stopErr, cause)
	}
}
