package settings

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/minsukim/autotrader/config"
	"github.com/minsukim/autotrader/types"
)

// Provider supplies per-market symbol lists and risk parameters. The engine
// reloads both at every session open so changes take effect the next
// trading day at the latest.
type Provider interface {
	GetSymbols(ctx context.Context, market types.Market) ([]config.SymbolConfig, error)
	GetRiskParameters(ctx context.Context, market types.Market) (config.RiskParams, error)
}

type yamlSymbol struct {
	Symbol          string  `yaml:"symbol"`
	Name            string  `yaml:"name"`
	Class           string  `yaml:"class"`
	MAPeriod        int     `yaml:"ma_period"`
	AllocationRatio float64 `yaml:"allocation_ratio"`
	WindowStart     string  `yaml:"window_start"`
	WindowEnd       string  `yaml:"window_end"`
}

type yamlRisk struct {
	StopLossPct      *float64 `yaml:"stop_loss_pct"`
	TrailingStartPct *float64 `yaml:"trailing_start_pct"`
	TrailingStopPct  *float64 `yaml:"trailing_stop_pct"`
	MaxIndividual    *int     `yaml:"max_individual"`
	MaxPool          *int     `yaml:"max_pool"`
	MinCashRatio     *float64 `yaml:"min_cash_ratio"`
	OpenRatio        *float64 `yaml:"open_ratio"`
	CloseRatio       *float64 `yaml:"close_ratio"`
	RebalanceDate    string   `yaml:"rebalance_date"`
}

type yamlMarket struct {
	Risk    yamlRisk     `yaml:"risk"`
	Symbols []yamlSymbol `yaml:"symbols"`
}

type yamlFile struct {
	Markets map[string]yamlMarket `yaml:"markets"`
}

// YAMLProvider reads symbols and risk parameters from a local YAML file.
// It is the offline alternative to the spreadsheet provider.
type YAMLProvider struct {
	path string
}

func NewYAMLProvider(path string) *YAMLProvider {
	return &YAMLProvider{path: path}
}

func (p *YAMLProvider) load(market types.Market) (yamlMarket, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return yamlMarket{}, fmt.Errorf("read settings file: %w", err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return yamlMarket{}, fmt.Errorf("parse settings file: %w", err)
	}
	m, ok := f.Markets[string(market)]
	if !ok {
		return yamlMarket{}, fmt.Errorf("market %s missing from settings file", market)
	}
	return m, nil
}

func (p *YAMLProvider) GetSymbols(_ context.Context, market types.Market) ([]config.SymbolConfig, error) {
	m, err := p.load(market)
	if err != nil {
		return nil, err
	}
	out := make([]config.SymbolConfig, 0, len(m.Symbols))
	for _, s := range m.Symbols {
		out = append(out, config.SymbolConfig{
			Market:          market,
			Symbol:          s.Symbol,
			Name:            s.Name,
			Class:           parseClass(s.Class),
			MAPeriod:        s.MAPeriod,
			AllocationRatio: s.AllocationRatio,
			WindowStart:     s.WindowStart,
			WindowEnd:       s.WindowEnd,
		})
	}
	return out, nil
}

func (p *YAMLProvider) GetRiskParameters(_ context.Context, market types.Market) (config.RiskParams, error) {
	m, err := p.load(market)
	if err != nil {
		return config.RiskParams{}, err
	}
	out := config.DefaultRiskParams()
	r := m.Risk
	if r.StopLossPct != nil {
		out.StopLossPct = *r.StopLossPct
	}
	if r.TrailingStartPct != nil {
		out.TrailingStartPct = *r.TrailingStartPct
	}
	if r.TrailingStopPct != nil {
		out.TrailingStopPct = *r.TrailingStopPct
	}
	if r.MaxIndividual != nil {
		out.MaxIndividual = *r.MaxIndividual
	}
	if r.MaxPool != nil {
		out.MaxPool = *r.MaxPool
	}
	if r.MinCashRatio != nil {
		out.MinCashRatio = *r.MinCashRatio
	}
	if r.OpenRatio != nil {
		out.OpenRatio = *r.OpenRatio
	}
	if r.CloseRatio != nil {
		out.CloseRatio = *r.CloseRatio
	}
	out.RebalanceDate = r.RebalanceDate
	return out, nil
}

func parseClass(s string) types.SymbolClass {
	if s == string(types.ClassPool) {
		return types.ClassPool
	}
	return types.ClassIndividual
}
