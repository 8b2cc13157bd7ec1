package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minsukim/autotrader/types"
)

// Broker is the trading-API surface the engine needs. Implementations are
// expected to be synchronous; rate limiting and retries live in the
// executor package, not here.
type Broker interface {
	GetPrice(ctx context.Context, symbol string) (types.Quote, error)
	GetBalance(ctx context.Context) (types.Balance, error)
	GetBuyingPower(ctx context.Context, symbol string) (float64, error)
	PlaceOrder(ctx context.Context, o types.Order) (types.OrderResult, error)
	// GetDailyBars returns daily candles ordered oldest first, inclusive of
	// both endpoint dates.
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error)
	// IsSessionOpen reports whether the market trades on the given date
	// (exchange holidays; weekends are handled by the calendar).
	IsSessionOpen(ctx context.Context, market types.Market, date time.Time) (bool, error)
}

// ErrNoData marks an empty/null API response. It is not a failure: callers
// skip the symbol for the current tick.
var ErrNoData = errors.New("broker: no data")

// TransientError wraps a failure worth retrying (rate limit, network hiccup).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// RejectedError is a definitive rejection from the provider. Retrying will
// not help.
type RejectedError struct {
	Code string
	Msg  string
}

func (e *RejectedError) Error() string { return fmt.Sprintf("rejected [%s]: %s", e.Code, e.Msg) }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
