package testutils

import (
	"context"
	"time"

	"github.com/minsukim/autotrader/broker"
	"github.com/minsukim/autotrader/types"
)

// MockBroker implements the broker interface in-memory. Responses are set
// up per symbol; unset symbols return no-data, matching a quiet provider.
type MockBroker struct {
	Quotes      map[string]types.Quote
	Bars        map[string][]types.Bar
	Bal         types.Balance
	BuyingPower map[string]float64
	FillPrice   map[string]float64 // avg fill price per symbol; 0 = echo qty price back as 0
	SessionOpen bool

	// Error injection, keyed by symbol. PlaceErrs is consumed one entry per
	// call so a transient-then-success sequence can be scripted.
	QuoteErrs       map[string]error
	BarErrs         map[string]error
	BuyingPowerErrs map[string]error
	PlaceErrs       map[string][]error
	BalanceErr      error

	Orders []types.Order
}

func NewMockBroker() *MockBroker {
	return &MockBroker{
		Quotes:          make(map[string]types.Quote),
		Bars:            make(map[string][]types.Bar),
		BuyingPower:     make(map[string]float64),
		FillPrice:       make(map[string]float64),
		QuoteErrs:       make(map[string]error),
		BarErrs:         make(map[string]error),
		BuyingPowerErrs: make(map[string]error),
		PlaceErrs:       make(map[string][]error),
		SessionOpen:     true,
	}
}

func (m *MockBroker) GetPrice(_ context.Context, symbol string) (types.Quote, error) {
	if err := m.QuoteErrs[symbol]; err != nil {
		return types.Quote{}, err
	}
	q, ok := m.Quotes[symbol]
	if !ok {
		return types.Quote{}, broker.ErrNoData
	}
	return q, nil
}

func (m *MockBroker) GetBalance(context.Context) (types.Balance, error) {
	if m.BalanceErr != nil {
		return types.Balance{}, m.BalanceErr
	}
	return m.Bal, nil
}

func (m *MockBroker) GetBuyingPower(_ context.Context, symbol string) (float64, error) {
	if err := m.BuyingPowerErrs[symbol]; err != nil {
		return 0, err
	}
	return m.BuyingPower[symbol], nil
}

func (m *MockBroker) PlaceOrder(_ context.Context, o types.Order) (types.OrderResult, error) {
	if errs := m.PlaceErrs[o.Symbol]; len(errs) > 0 {
		err := errs[0]
		m.PlaceErrs[o.Symbol] = errs[1:]
		if err != nil {
			return types.OrderResult{}, err
		}
	}
	m.Orders = append(m.Orders, o)
	return types.OrderResult{
		OrderID:  "mock-" + o.Symbol,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Qty:      o.Qty,
		AvgPrice: m.FillPrice[o.Symbol],
		Time:     time.Now(),
	}, nil
}

func (m *MockBroker) GetDailyBars(_ context.Context, symbol string, _, _ time.Time) ([]types.Bar, error) {
	if err := m.BarErrs[symbol]; err != nil {
		return nil, err
	}
	bars, ok := m.Bars[symbol]
	if !ok || len(bars) == 0 {
		return nil, broker.ErrNoData
	}
	return bars, nil
}

func (m *MockBroker) IsSessionOpen(context.Context, types.Market, time.Time) (bool, error) {
	return m.SessionOpen, nil
}

// OrdersFor filters recorded orders by symbol.
func (m *MockBroker) OrdersFor(symbol string) []types.Order {
	var out []types.Order
	for _, o := range m.Orders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out
}
