package refresh_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/taskflow-client/token/refresh"
	"github.com/stretchr/testify/require"
)

type gatedExchange struct {
	calls   atomic.Int32
	release chan error
	ctxErr  chan error
}

func newGatedExchange() *gatedExchange {
	return &gatedExchange{release: make(chan error), ctxErr: make(chan error, 8)}
}

func (g *gatedExchange) exchange(ctx context.Context) error {
	g.calls.Add(1)
	err := <-g.release
	g.ctxErr <- ctx.Err()
	return err
}

func TestConcurrentCallersShareOneExchange(t *testing.T) {
	tests := []struct {
		name    string
		outcome error
	}{
		{name: "success", outcome: nil},
		{name: "failure", outcome: errors.New("refresh rejected")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGatedExchange()
			var shared atomic.Int32
			c, err := refresh.NewCoordinator(g.exchange, refresh.WithObserver(func(s bool, _ error) {
				if s {
					shared.Add(1)
				}
			}))
			require.NoError(t, err)

			const callers = 5
			results := make([]error, callers)
			var wg sync.WaitGroup
			for i := range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i] = c.Refresh(context.Background())
				}()
			}

			require.Eventually(t, func() bool { return c.Waiting() == callers }, time.Second, time.Millisecond)
			g.release <- tt.outcome
			wg.Wait()

			require.Equal(t, int32(1), g.calls.Load())
			for _, r := range results {
				require.Equal(t, tt.outcome, r)
			}
			require.Equal(t, int32(callers), shared.Load())
			require.Equal(t, 0, c.Waiting())
		})
	}
}

func TestSlotReleasedAfterSettling(t *testing.T) {
	var calls atomic.Int32
	c, err := refresh.NewCoordinator(func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, int32(2), calls.Load())
}

func TestCancelledCallerDoesNotAbortExchange(t *testing.T) {
	g := newGatedExchange()
	c, err := refresh.NewCoordinator(g.exchange)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	starterDone := make(chan error, 1)
	go func() { starterDone <- c.Refresh(ctx) }()

	joinerDone := make(chan error, 1)
	require.Eventually(t, func() bool { return c.Waiting() == 1 }, time.Second, time.Millisecond)
	go func() { joinerDone <- c.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return c.Waiting() == 2 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-starterDone, context.Canceled)

	g.release <- nil
	require.NoError(t, <-joinerDone)
	require.NoError(t, <-g.ctxErr)
	require.Equal(t, int32(1), g.calls.Load())
}

func TestExchangeTimeout(t *testing.T) {
	c, err := refresh.NewCoordinator(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, refresh.WithTimeout(10*time.Millisecond))
	require.NoError(t, err)

	require.ErrorIs(t, c.Refresh(context.Background()), context.DeadlineExceeded)
}

func TestPanickingExchangeBecomesError(t *testing.T) {
	c, err := refresh.NewCoordinator(func(context.Context) error {
		panic("boom")
	})
	require.NoError(t, err)
	require.ErrorContains(t, c.Refresh(context.Background()), "boom")
}

func TestNewCoordinatorRequiresExchange(t *testing.T) {
	_, err := refresh.NewCoordinator(nil)
	require.Error(t, err)
}
