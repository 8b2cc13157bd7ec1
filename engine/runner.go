package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/minsukim/autotrader/logger"
	"github.com/minsukim/autotrader/metrics"
	"github.com/minsukim/autotrader/notify"
)

const (
	// DefaultPollInterval is the cadence of the outer loop.
	DefaultPollInterval = 60 * time.Second
	// defaultCooldown follows a failed cycle before the next market is
	// serviced.
	defaultCooldown = 5 * time.Second
)

// Runner sequentially services each market engine at a fixed interval. A
// failed cycle is logged, notified, and cooled down; it never halts the
// loop.
type Runner struct {
	engines  []*Engine
	log      logger.Logger
	notifier notify.Notifier
	interval time.Duration
	cooldown time.Duration
	sleep    func(time.Duration)
}

func NewRunner(engines []*Engine, log logger.Logger, notifier notify.Notifier, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Runner{
		engines:  engines,
		log:      log,
		notifier: notifier,
		interval: interval,
		cooldown: defaultCooldown,
		sleep:    time.Sleep,
	}
}

// Run polls until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce services every engine for one cycle.
func (r *Runner) RunOnce(ctx context.Context) {
	now := time.Now()
	for _, e := range r.engines {
		if ctx.Err() != nil {
			return
		}
		if err := e.Tick(ctx, now); err != nil {
			market := string(e.Market())
			metrics.CycleErrors.WithLabelValues(market).Inc()
			r.log.Error("cycle failed",
				logger.String("market", market), logger.Err(err))
			r.notifier.Notify(fmt.Sprintf("[%s] cycle failed: %v", market, err), true)
			r.sleep(r.cooldown)
		}
	}
}
