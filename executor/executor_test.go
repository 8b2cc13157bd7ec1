package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minsukim/autotrader/broker"
	"github.com/minsukim/autotrader/testutils"
	"github.com/minsukim/autotrader/types"
)

func newTestCoordinator(b broker.Broker, minInterval time.Duration) (*Coordinator, *[]time.Duration) {
	c := New(b, testutils.NewMockLogger(), minInterval)
	sleeps := &[]time.Duration{}
	c.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return c, sleeps
}

func TestRetryTransientThenSucceed(t *testing.T) {
	mb := testutils.NewMockBroker()
	mb.PlaceErrs["005930"] = []error{
		&broker.TransientError{Err: errors.New("rate limit exceeded")},
		nil,
	}
	c, sleeps := newTestCoordinator(mb, 0)

	res, err := c.PlaceOrder(context.Background(), types.Order{
		Market: types.MarketKOR, Symbol: "005930", Side: types.Buy, Qty: 10,
	})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if res.Qty != 10 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(mb.Orders) != 1 {
		t.Fatalf("expected exactly one accepted order, got %d", len(mb.Orders))
	}
	if mb.Orders[0].ClientID == "" {
		t.Fatal("coordinator must assign a client order ID")
	}
	// One backoff sleep between attempt 1 and 2.
	if len(*sleeps) != 1 || (*sleeps)[0] != defaultBackoffStep {
		t.Fatalf("expected a single %v backoff, got %v", defaultBackoffStep, *sleeps)
	}
}

func TestRetryExhaustionEscalates(t *testing.T) {
	mb := testutils.NewMockBroker()
	transient := &broker.TransientError{Err: errors.New("rate limit exceeded")}
	mb.PlaceErrs["005930"] = []error{transient, transient, transient}
	c, sleeps := newTestCoordinator(mb, 0)

	_, err := c.PlaceOrder(context.Background(), types.Order{Symbol: "005930", Side: types.Buy, Qty: 1})
	var ef *ExecutionFailure
	if !errors.As(err, &ef) {
		t.Fatalf("expected ExecutionFailure, got %v", err)
	}
	if ef.Attempts != defaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultMaxAttempts, ef.Attempts)
	}
	// Linear backoff: 1x then 2x, none after the final attempt.
	want := []time.Duration{defaultBackoffStep, 2 * defaultBackoffStep}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Fatalf("expected backoffs %v, got %v", want, *sleeps)
	}
}

func TestRejectionIsNotRetried(t *testing.T) {
	mb := testutils.NewMockBroker()
	rejected := &broker.RejectedError{Code: "APBK0013", Msg: "insufficient balance"}
	mb.PlaceErrs["005930"] = []error{rejected, nil}
	c, _ := newTestCoordinator(mb, 0)

	_, err := c.PlaceOrder(context.Background(), types.Order{Symbol: "005930", Side: types.Buy, Qty: 1})
	var re *broker.RejectedError
	if !errors.As(err, &re) {
		t.Fatalf("expected the rejection to propagate, got %v", err)
	}
	if len(mb.Orders) != 0 {
		t.Fatal("a rejected order must not be re-submitted")
	}
}

func TestNoDataPassesThrough(t *testing.T) {
	mb := testutils.NewMockBroker()
	c, _ := newTestCoordinator(mb, 0)

	_, err := c.GetPrice(context.Background(), "UNKNOWN")
	if !errors.Is(err, broker.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestThrottleEnforcesMinInterval(t *testing.T) {
	mb := testutils.NewMockBroker()
	mb.Bal = types.Balance{TotalAssets: 1}
	c, sleeps := newTestCoordinator(mb, 500*time.Millisecond)
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	ctx := context.Background()
	if _, err := c.GetBalance(ctx); err != nil {
		t.Fatal(err)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("first call must not sleep, got %v", *sleeps)
	}
	if _, err := c.GetBalance(ctx); err != nil {
		t.Fatal(err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 500*time.Millisecond {
		t.Fatalf("second call must wait out the interval, got %v", *sleeps)
	}
}
