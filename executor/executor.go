package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minsukim/autotrader/broker"
	"github.com/minsukim/autotrader/logger"
	"github.com/minsukim/autotrader/metrics"
	"github.com/minsukim/autotrader/types"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffStep = time.Second
)

// ExecutionFailure marks a call that kept failing transiently until the
// retry budget ran out.
type ExecutionFailure struct {
	Attempts int
	Err      error
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("execution failed after %d attempts: %v", e.Attempts, e.Err)
}
func (e *ExecutionFailure) Unwrap() error { return e.Err }

// Coordinator wraps every broker call with a minimum inter-call delay and a
// bounded retry loop with linearly increasing backoff. Transient failures
// are retried; anything else is returned as-is.
type Coordinator struct {
	broker      broker.Broker
	log         logger.Logger
	minInterval time.Duration
	maxAttempts int
	backoffStep time.Duration

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)

	last time.Time
}

func New(b broker.Broker, log logger.Logger, minInterval time.Duration) *Coordinator {
	return &Coordinator{
		broker:      b,
		log:         log,
		minInterval: minInterval,
		maxAttempts: defaultMaxAttempts,
		backoffStep: defaultBackoffStep,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// throttle enforces the minimum delay since the previous broker call. The
// paper endpoint's simulated rate limit is stricter than live, which is why
// the interval comes from the endpoint profile.
func (c *Coordinator) throttle() {
	if !c.last.IsZero() {
		if elapsed := c.now().Sub(c.last); elapsed < c.minInterval {
			c.sleep(c.minInterval - elapsed)
		}
	}
	c.last = c.now()
}

func call[T any](c *Coordinator, what string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.throttle()
		out, err := fn()
		if err == nil {
			return out, nil
		}
		if !broker.IsTransient(err) {
			return zero, err
		}
		lastErr = err
		metrics.APIRetries.Inc()
		c.log.Warn("transient broker error",
			logger.String("call", what),
			logger.Int("attempt", attempt),
			logger.Err(err),
		)
		if attempt < c.maxAttempts {
			c.sleep(c.backoffStep * time.Duration(attempt))
		}
	}
	return zero, &ExecutionFailure{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Coordinator) GetPrice(ctx context.Context, symbol string) (types.Quote, error) {
	return call(c, "get_price", func() (types.Quote, error) {
		return c.broker.GetPrice(ctx, symbol)
	})
}

func (c *Coordinator) GetBalance(ctx context.Context) (types.Balance, error) {
	return call(c, "get_balance", func() (types.Balance, error) {
		return c.broker.GetBalance(ctx)
	})
}

func (c *Coordinator) GetBuyingPower(ctx context.Context, symbol string) (float64, error) {
	return call(c, "get_buying_power", func() (float64, error) {
		return c.broker.GetBuyingPower(ctx, symbol)
	})
}

// PlaceOrder assigns a client order ID when the caller did not, so a retried
// submission is idempotent on the provider side.
func (c *Coordinator) PlaceOrder(ctx context.Context, o types.Order) (types.OrderResult, error) {
	if o.ClientID == "" {
		o.ClientID = uuid.NewString()
	}
	res, err := call(c, "place_order", func() (types.OrderResult, error) {
		return c.broker.PlaceOrder(ctx, o)
	})
	if err != nil {
		return types.OrderResult{}, err
	}
	metrics.OrdersSubmitted.WithLabelValues(string(o.Market), string(o.Side)).Inc()
	c.log.Info("order placed",
		logger.String("market", string(o.Market)),
		logger.String("symbol", o.Symbol),
		logger.String("side", string(o.Side)),
		logger.Int64("qty", o.Qty),
		logger.Float64("price", res.AvgPrice),
		logger.String("order_id", res.OrderID),
	)
	return res, nil
}

func (c *Coordinator) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	return call(c, "get_daily_bars", func() ([]types.Bar, error) {
		return c.broker.GetDailyBars(ctx, symbol, start, end)
	})
}

// IsSessionOpen satisfies the calendar's holiday source, so holiday lookups
// share the coordinator's rate limiting and retries.
func (c *Coordinator) IsSessionOpen(ctx context.Context, market types.Market, date time.Time) (bool, error) {
	return call(c, "is_session_open", func() (bool, error) {
		return c.broker.IsSessionOpen(ctx, market, date)
	})
}
