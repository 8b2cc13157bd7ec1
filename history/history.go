package history

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/minsukim/autotrader/types"
)

// Store is the append-only trade journal. The engine writes to it after
// every fill and never reads it back during decision-making.
type Store interface {
	Record(ev types.TradeEvent) error
}

// csvRow is the on-disk shape of one trade event.
type csvRow struct {
	Time        string  `csv:"time"`
	Market      string  `csv:"market"`
	Symbol      string  `csv:"symbol"`
	Name        string  `csv:"name"`
	Side        string  `csv:"side"`
	Qty         int64   `csv:"qty"`
	Price       float64 `csv:"price"`
	RealizedPnL float64 `csv:"realized_pnl"`
	Reason      string  `csv:"reason"`
}

// CSVStore appends trade events to a CSV file, writing the header when the
// file is new.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Record(ev types.TradeEvent) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade journal: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat trade journal: %w", err)
	}

	rows := []csvRow{{
		Time:        ev.Time.Format(time.RFC3339),
		Market:      string(ev.Market),
		Symbol:      ev.Symbol,
		Name:        ev.Name,
		Side:        string(ev.Side),
		Qty:         ev.Qty,
		Price:       ev.Price,
		RealizedPnL: ev.RealizedPnL,
		Reason:      ev.Reason,
	}}
	if info.Size() == 0 {
		if err := gocsv.Marshal(&rows, f); err != nil {
			return fmt.Errorf("write trade journal: %w", err)
		}
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(&rows, f); err != nil {
		return fmt.Errorf("append trade journal: %w", err)
	}
	return nil
}
