package broker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/minsukim/autotrader/config"
	"github.com/minsukim/autotrader/types"
)

// RESTBroker talks to the brokerage's HTTP API using the endpoint profile
// resolved at startup. One instance serves both markets; the market is
// carried on each order.
type RESTBroker struct {
	client  *resty.Client
	account string
}

func NewRESTBroker(profile config.BrokerProfile) *RESTBroker {
	client := resty.New().
		SetBaseURL(profile.BaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("appkey", profile.AppKey).
		SetHeader("appsecret", profile.AppSecret)
	return &RESTBroker{client: client, account: profile.Account}
}

type quotePayload struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	PrevClose float64 `json:"prev_close"`
}

type balancePayload struct {
	Holdings []struct {
		Symbol   string  `json:"symbol"`
		Name     string  `json:"name"`
		Quantity int64   `json:"quantity"`
		AvgPrice float64 `json:"avg_price"`
	} `json:"holdings"`
	TotalAssets   float64 `json:"total_assets"`
	CashAvailable float64 `json:"cash_available"`
}

type buyingPowerPayload struct {
	Amount float64 `json:"amount"`
}

type orderPayload struct {
	OrderID  string  `json:"order_id"`
	AvgPrice float64 `json:"avg_price"`
	Time     string  `json:"time"`
}

type barsPayload struct {
	Bars []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume int64   `json:"volume"`
	} `json:"bars"`
	NextCursor string `json:"next_cursor"`
}

type apiError struct {
	Code string `json:"code"`
	Msg  string `json:"message"`
}

func (b *RESTBroker) GetPrice(ctx context.Context, symbol string) (types.Quote, error) {
	var out quotePayload
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/v1/quote")
	if err := classify(resp, err); err != nil {
		return types.Quote{}, err
	}
	if out.Last == 0 {
		return types.Quote{}, ErrNoData
	}
	return types.Quote{Symbol: symbol, Last: out.Last, PrevClose: out.PrevClose}, nil
}

func (b *RESTBroker) GetBalance(ctx context.Context) (types.Balance, error) {
	var out balancePayload
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("account", b.account).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/v1/balance")
	if err := classify(resp, err); err != nil {
		return types.Balance{}, err
	}
	if out.TotalAssets == 0 && len(out.Holdings) == 0 {
		return types.Balance{}, ErrNoData
	}
	bal := types.Balance{
		TotalAssets:   out.TotalAssets,
		CashAvailable: out.CashAvailable,
	}
	for _, h := range out.Holdings {
		bal.Holdings = append(bal.Holdings, types.HoldingLot{
			Symbol:   h.Symbol,
			Name:     h.Name,
			Quantity: h.Quantity,
			AvgPrice: h.AvgPrice,
		})
	}
	return bal, nil
}

func (b *RESTBroker) GetBuyingPower(ctx context.Context, symbol string) (float64, error) {
	var out buyingPowerPayload
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"account": b.account, "symbol": symbol}).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/v1/buying-power")
	if err := classify(resp, err); err != nil {
		return 0, err
	}
	return out.Amount, nil
}

func (b *RESTBroker) PlaceOrder(ctx context.Context, o types.Order) (types.OrderResult, error) {
	var out orderPayload
	body := map[string]interface{}{
		"account":   b.account,
		"market":    string(o.Market),
		"symbol":    o.Symbol,
		"side":      string(o.Side),
		"qty":       o.Qty,
		"price":     o.Price,
		"client_id": o.ClientID,
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/v1/orders")
	if err := classify(resp, err); err != nil {
		return types.OrderResult{}, err
	}
	if out.OrderID == "" {
		return types.OrderResult{}, ErrNoData
	}
	filled, perr := time.Parse(time.RFC3339, out.Time)
	if perr != nil {
		filled = time.Now()
	}
	return types.OrderResult{
		OrderID:  out.OrderID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Qty:      o.Qty,
		AvgPrice: out.AvgPrice,
		Time:     filled,
	}, nil
}

// GetDailyBars accumulates pages iteratively until the continuation token is
// absent.
func (b *RESTBroker) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	var bars []types.Bar
	cursor := ""
	for {
		var out barsPayload
		req := b.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"start":  start.Format("2006-01-02"),
				"end":    end.Format("2006-01-02"),
			}).
			SetResult(&out).
			SetError(&apiError{})
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}
		resp, err := req.Get("/v1/daily-bars")
		if err := classify(resp, err); err != nil {
			return nil, err
		}
		for _, raw := range out.Bars {
			date, perr := time.Parse("2006-01-02", raw.Date)
			if perr != nil {
				return nil, fmt.Errorf("bad bar date %q: %w", raw.Date, perr)
			}
			bars = append(bars, types.Bar{
				Date:   date,
				Open:   raw.Open,
				High:   raw.High,
				Low:    raw.Low,
				Close:  raw.Close,
				Volume: raw.Volume,
			})
		}
		if out.NextCursor == "" {
			break
		}
		cursor = out.NextCursor
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

type sessionPayload struct {
	Open bool `json:"open"`
}

func (b *RESTBroker) IsSessionOpen(ctx context.Context, market types.Market, date time.Time) (bool, error) {
	var out sessionPayload
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"market": string(market),
			"date":   date.Format("2006-01-02"),
		}).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/v1/market-hours")
	if err := classify(resp, err); err != nil {
		return false, err
	}
	return out.Open, nil
}

// rateLimitMarker is the phrase the provider puts in its rate-limit
// rejection body.
const rateLimitMarker = "rate limit exceeded"

// classify folds transport errors and HTTP status codes into the broker
// error taxonomy.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		return &TransientError{Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr, _ := resp.Error().(*apiError)
	msg := resp.Status()
	code := fmt.Sprintf("%d", resp.StatusCode())
	if apiErr != nil && apiErr.Msg != "" {
		msg = apiErr.Msg
		if apiErr.Code != "" {
			code = apiErr.Code
		}
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests,
		strings.Contains(strings.ToLower(msg), rateLimitMarker):
		return &TransientError{Err: fmt.Errorf("%s", msg)}
	case resp.StatusCode() >= 500:
		return &TransientError{Err: fmt.Errorf("%s", msg)}
	default:
		return &RejectedError{Code: code, Msg: msg}
	}
}
