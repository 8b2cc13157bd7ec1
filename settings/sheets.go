package settings

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/minsukim/autotrader/config"
	"github.com/minsukim/autotrader/types"
)

// SheetsProvider reads per-market tabs from a Google spreadsheet:
//
//	Symbols_<MARKET>  A2:G  symbol, name, class, ma_period,
//	                        allocation_ratio, window_start, window_end
//	Settings_<MARKET> A2:B  key/value risk parameters
//
// Unparsable cells fall back to defaults; a failed fetch is fatal for the
// current cycle and retried on the next one.
type SheetsProvider struct {
	srv           *sheets.Service
	spreadsheetID string
}

// SetupSheets authenticates with a base64-encoded service-account key from
// the environment and returns a ready sheets service.
func SetupSheets(ctx context.Context) (*sheets.Service, error) {
	credBytes, err := base64.StdEncoding.DecodeString(os.Getenv("SHEETS_KEY_JSON_BASE64"))
	if err != nil {
		return nil, fmt.Errorf("decode sheets key: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(credBytes, "https://www.googleapis.com/auth/spreadsheets.readonly")
	if err != nil {
		return nil, fmt.Errorf("build sheets JWT config: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return srv, nil
}

func NewSheetsProvider(srv *sheets.Service, spreadsheetID string) *SheetsProvider {
	return &SheetsProvider{srv: srv, spreadsheetID: spreadsheetID}
}

func (p *SheetsProvider) fetchRows(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	resp, err := p.srv.Spreadsheets.Values.Get(p.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rangeSpec, err)
	}
	return resp.Values, nil
}

func (p *SheetsProvider) GetSymbols(ctx context.Context, market types.Market) ([]config.SymbolConfig, error) {
	rows, err := p.fetchRows(ctx, fmt.Sprintf("Symbols_%s!A2:G1000", market))
	if err != nil {
		return nil, err
	}
	out := make([]config.SymbolConfig, 0, len(rows))
	for _, row := range rows {
		symbol := cell(row, 0)
		if symbol == "" {
			continue
		}
		out = append(out, config.SymbolConfig{
			Market:          market,
			Symbol:          symbol,
			Name:            cell(row, 1),
			Class:           parseClass(cell(row, 2)),
			MAPeriod:        config.IntOrDefault(cell(row, 3), 20),
			AllocationRatio: config.FloatOrDefault(cell(row, 4), 0),
			WindowStart:     cell(row, 5),
			WindowEnd:       cell(row, 6),
		})
	}
	return out, nil
}

func (p *SheetsProvider) GetRiskParameters(ctx context.Context, market types.Market) (config.RiskParams, error) {
	rows, err := p.fetchRows(ctx, fmt.Sprintf("Settings_%s!A2:B100", market))
	if err != nil {
		return config.RiskParams{}, err
	}
	out := config.DefaultRiskParams()
	for _, row := range rows {
		key := cell(row, 0)
		val := cell(row, 1)
		switch key {
		case "stop_loss_pct":
			out.StopLossPct = config.FloatOrDefault(val, out.StopLossPct)
		case "trailing_start_pct":
			out.TrailingStartPct = config.FloatOrDefault(val, out.TrailingStartPct)
		case "trailing_stop_pct":
			out.TrailingStopPct = config.FloatOrDefault(val, out.TrailingStopPct)
		case "max_individual":
			out.MaxIndividual = config.IntOrDefault(val, out.MaxIndividual)
		case "max_pool":
			out.MaxPool = config.IntOrDefault(val, out.MaxPool)
		case "min_cash_ratio":
			out.MinCashRatio = config.FloatOrDefault(val, out.MinCashRatio)
		case "open_ratio":
			out.OpenRatio = config.FloatOrDefault(val, out.OpenRatio)
		case "close_ratio":
			out.CloseRatio = config.FloatOrDefault(val, out.CloseRatio)
		case "rebalance_date":
			out.RebalanceDate = val
		}
	}
	return out, nil
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	s, ok := row[i].(string)
	if !ok {
		return fmt.Sprintf("%v", row[i])
	}
	return s
}
