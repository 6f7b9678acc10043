package refresh

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single exchange once it has been started.
const DefaultTimeout = 30 * time.Second

// There is one refresh slot per session context, so every caller shares a key.
const flightKey = "refresh"

// ExchangeFunc performs one refresh exchange and stores its result.
type ExchangeFunc func(ctx context.Context) error

// Observer is told the outcome each caller saw; shared is true when the
// caller joined an exchange started by someone else.
type Observer func(shared bool, err error)

// Coordinator collapses concurrent refresh attempts into one in-flight
// exchange whose outcome every caller receives.
type Coordinator struct {
	group    singleflight.Group
	exchange ExchangeFunc
	timeout  time.Duration
	observer Observer
	logger   zerolog.Logger
	waiting  atomic.Int64
}

type Option func(*Coordinator)

func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

func NewCoordinator(exchange ExchangeFunc, options ...Option) (*Coordinator, error) {
	if exchange == nil {
		return nil, fmt.Errorf("[NewCoordinator] exchange function is required")
	}
	c := &Coordinator{
		exchange: exchange,
		timeout:  DefaultTimeout,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Refresh joins the outstanding exchange or starts one. The exchange is
// detached from the starting caller's cancellation; a caller whose ctx ends
// stops waiting and gets ctx.Err() while the others still see the outcome.
// Credentials are never cleared here.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		return nil, c.run(ctx)
	})
	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	select {
	case res := <-ch:
		if c.observer != nil {
			c.observer(res.Shared, res.Err)
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Waiting is the number of callers currently blocked on an exchange.
func (c *Coordinator) Waiting() int {
	return int(c.waiting.Load())
}

func (c *Coordinator) run(parent context.Context) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh exchange panicked: %v", r)
			c.logger.Error().Err(err).Msg("Refresh exchange panicked")
		}
	}()

	start := time.Now()
	err = c.exchange(ctx)
	c.logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("Refresh exchange settled")
	return err
}
