package cliapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type fakeLifecycle struct {
	startErr error
	stopErr  error
	started  chan struct{}
	stopped  bool
}

func (f *fakeLifecycle) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	close(f.started)
	return nil
}

func (f *fakeLifecycle) Stop(ctx context.Context) error {
	f.stopped = true
	return f.stopErr
}

func (f *fakeLifecycle) Stopped() bool {
	return f.stopped
}

func runApp(ctx context.Context, fn LifecycleAction) error {
	app := cli.NewApp()
	app.Action = LifecycleCmd(fn)
	return app.RunContext(ctx, []string{"test"})
}

func TestLifecycleCmd(t *testing.T) {
	t.Run("stop on host cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		f := &fakeLifecycle{started: make(chan struct{})}
		go func() {
			<-f.started
			cancel()
		}()
		err := runApp(ctx, func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error) {
			return f, nil
		})
		require.NoError(t, err)
		require.True(t, f.Stopped())
	})

	t.Run("self close with cause", func(t *testing.T) {
		f := &fakeLifecycle{started: make(chan struct{})}
		cause := errors.New("backend died")
		err := runApp(context.Background(), func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error) {
			go func() {
				<-f.started
				close(cause)
			}()
			return f, nil
		})
		require.ErrorIs(t, err, cause)
		require.True(t, f.Stopped())
	})

	t.Run("setup error", func(t *testing.T) {
		setupErr := errors.New("bad config")
		err := runApp(context.Background(), func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error) {
			return nil, setupErr
		})
		require.ErrorIs(t, err, setupErr)
	})

	t.Run("start error", func(t *testing.T) {
		f := &fakeLifecycle{startErr: errors.New("port in use")}
		err := runApp(context.Background(), func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error) {
			return f, nil
		})
		require.ErrorContains(t, err, "port in use")
		require.False(t, f.Stopped())
	})

	t.Run("stop error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		f := &fakeLifecycle{started: make(chan struct{}), stopErr: errors.New("stuck")}
		err := runApp(ctx, func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error) {
			return f, nil
		})
		require.ErrorContains(t, err, "failed to stop")
	})
}
