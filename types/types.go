package types

import "time"

// Market identifies a trading venue handled by the engine.
type Market string

const (
	MarketKOR Market = "KOR"
	MarketUSA Market = "USA"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// SymbolClass separates individually-picked symbols from pool symbols.
// A symbol belongs to exactly one class per market.
type SymbolClass string

const (
	ClassIndividual SymbolClass = "individual"
	ClassPool       SymbolClass = "pool"
)

// Quote is the live price snapshot for one symbol.
type Quote struct {
	Symbol    string
	Last      float64
	PrevClose float64
}

// Bar is one daily candle. The newest bar returned by the broker may belong
// to a session that has not confirmed its close yet.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// HoldingLot is one held symbol as reported by the balance endpoint.
type HoldingLot struct {
	Symbol   string
	Name     string
	Quantity int64
	AvgPrice float64 // purchase average
}

// Balance is the account snapshot used for sizing decisions.
type Balance struct {
	Holdings      []HoldingLot
	TotalAssets   float64
	CashAvailable float64
}

type Order struct {
	Market   Market
	Symbol   string
	Side     Side
	Qty      int64
	Price    float64 // 0 = market
	ClientID string
	Comment  string
}

type OrderResult struct {
	OrderID  string
	Symbol   string
	Side     Side
	Qty      int64
	AvgPrice float64
	Time     time.Time
}

// PendingCloseOrder is the unexecuted remainder of an open-window buy,
// deferred to the close window.
type PendingCloseOrder struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name,omitempty"`
	Qty             int64   `json:"qty"`
	AllocationRatio float64 `json:"allocation_ratio"`
}

// TradeEvent is the append-only journal record written after every fill.
type TradeEvent struct {
	Time        time.Time
	Market      Market
	Symbol      string
	Name        string
	Side        Side
	Qty         int64
	Price       float64
	RealizedPnL float64
	Reason      string
}
