package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minsukim/autotrader/broker"
	"github.com/minsukim/autotrader/calendar"
	"github.com/minsukim/autotrader/config"
	"github.com/minsukim/autotrader/executor"
	"github.com/minsukim/autotrader/history"
	"github.com/minsukim/autotrader/logger"
	"github.com/minsukim/autotrader/metrics"
	"github.com/minsukim/autotrader/notify"
	"github.com/minsukim/autotrader/risk"
	"github.com/minsukim/autotrader/settings"
	"github.com/minsukim/autotrader/signal"
	"github.com/minsukim/autotrader/sizing"
	"github.com/minsukim/autotrader/store"
	"github.com/minsukim/autotrader/types"
)

// barLookbackDays converts an MA period into the calendar span requested
// from the daily-bars endpoint. Doubling plus a couple of weeks covers
// weekends and holiday gaps.
func barLookbackDays(period int) int { return period*2 + 14 }

// Engine drives one market through its daily session phases. All mutable
// state is owned by the single poll loop; there are no concurrent writers.
type Engine struct {
	adapter  MarketAdapter
	cal      *calendar.Calendar
	exec     *executor.Coordinator
	provider settings.Provider
	notifier notify.Notifier
	journal  history.Store
	state    *store.Store
	tracker  *risk.Tracker
	log      logger.Logger

	params  config.RiskParams
	symbols []config.SymbolConfig
	day     DailyState
}

func New(
	adapter MarketAdapter,
	cal *calendar.Calendar,
	exec *executor.Coordinator,
	provider settings.Provider,
	notifier notify.Notifier,
	journal history.Store,
	stateStore *store.Store,
	log logger.Logger,
) (*Engine, error) {
	e := &Engine{
		adapter:  adapter,
		cal:      cal,
		exec:     exec,
		provider: provider,
		notifier: notifier,
		journal:  journal,
		state:    stateStore,
		tracker:  risk.NewTracker(config.DefaultRiskParams()),
		log:      log,
		params:   config.DefaultRiskParams(),
		day:      newDailyState(""),
	}
	var snap snapshot
	ok, err := stateStore.Load(&snap)
	if err != nil {
		return nil, fmt.Errorf("%s: load state: %w", adapter.Market(), err)
	}
	if ok {
		e.day = snap.State
		if e.day.SoldToday == nil {
			e.day.SoldToday = make(map[string]bool)
		}
		e.tracker.Restore(snap.Positions)
	}
	// The first tick after a restart forces the open-window pass so a
	// process started mid-session still evaluates entries once.
	e.day.FirstExecution = true
	return e, nil
}

// Market returns the market this engine trades.
func (e *Engine) Market() types.Market { return e.adapter.Market() }

// Tick runs one poll cycle: day rollover, phase classification, and the
// pass that phase calls for.
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	market := e.adapter.Market()

	date, err := e.cal.LocalDate(market, now)
	if err != nil {
		return err
	}
	if e.day.Date == "" {
		// First tick ever for this market: adopt today without a reset so
		// the first-execution override survives.
		e.day.Date = date
		e.persist()
	} else if date != e.day.Date {
		e.rollover(date)
	}

	phase, err := e.cal.PhaseAt(ctx, market, now)
	if err != nil {
		return fmt.Errorf("%s: classify phase: %w", market, err)
	}
	if phase == calendar.PhaseClosed {
		return nil
	}

	// The first tick of the process forces the open pass regardless of
	// phase, so a restart mid-session still evaluates entries once.
	ranPass := false
	if e.day.FirstExecution || (phase == calendar.PhaseOpenWindow && !e.day.OpenExecuted) {
		if err := e.runOpenPass(ctx, now); err != nil {
			return err
		}
		e.day.OpenExecuted = true
		e.day.FirstExecution = false
		e.persist()
		ranPass = true
	}
	if phase == calendar.PhaseCloseWindow && !e.day.CloseExecuted {
		if err := e.runClosePass(ctx); err != nil {
			return err
		}
		e.day.CloseExecuted = true
		e.day.Pending = nil
		metrics.PendingCloseOrders.WithLabelValues(string(market)).Set(0)
		e.persist()
		ranPass = true
	}
	if !ranPass {
		e.runRiskPass(ctx)
	}
	return nil
}

// rollover resets the daily execution state when the observed date changes.
// Positions survive; everything day-scoped is cleared.
func (e *Engine) rollover(date string) {
	e.log.Info("day rollover",
		logger.String("market", string(e.adapter.Market())),
		logger.String("from", e.day.Date),
		logger.String("to", date),
	)
	e.day = newDailyState(date)
	metrics.PendingCloseOrders.WithLabelValues(string(e.adapter.Market())).Set(0)
	e.persist()
}

// loadSettings pulls fresh symbols and risk parameters. A complete load
// failure aborts this market's cycle; the next poll retries.
func (e *Engine) loadSettings(ctx context.Context) error {
	market := e.adapter.Market()
	symbols, err := e.provider.GetSymbols(ctx, market)
	if err != nil {
		return fmt.Errorf("%s: load symbols: %w", market, err)
	}
	params, err := e.provider.GetRiskParameters(ctx, market)
	if err != nil {
		return fmt.Errorf("%s: load risk parameters: %w", market, err)
	}
	if err := params.Validate(); err != nil {
		e.log.Warn("invalid risk parameters, using defaults",
			logger.String("market", string(market)), logger.Err(err))
		params = config.DefaultRiskParams()
	}
	valid := symbols[:0]
	for _, s := range symbols {
		if err := s.Validate(); err != nil {
			e.log.Warn("skipping invalid symbol config",
				logger.String("market", string(market)), logger.Err(err))
			continue
		}
		valid = append(valid, s)
	}
	e.symbols = valid
	e.params = params
	e.tracker.SetParams(params)
	return nil
}

// runOpenPass is the full buy/sell evaluation across all configured symbols.
// Within each symbol the risk overlay is evaluated before any new entry.
func (e *Engine) runOpenPass(ctx context.Context, now time.Time) error {
	market := e.adapter.Market()
	if err := e.loadSettings(ctx); err != nil {
		return err
	}

	bal, err := e.exec.GetBalance(ctx)
	if err != nil {
		if errors.Is(err, broker.ErrNoData) {
			e.log.Info("empty balance, skipping open pass",
				logger.String("market", string(market)))
			return nil
		}
		return fmt.Errorf("%s: balance: %w", market, err)
	}
	e.tracker.Merge(bal)
	metrics.TotalAssets.WithLabelValues(string(market)).Set(bal.TotalAssets)

	for _, cfg := range e.symbols {
		quote, err := e.exec.GetPrice(ctx, cfg.Symbol)
		if err != nil {
			e.skipSymbol(cfg.Symbol, "price", err)
			continue
		}

		if act := e.tracker.Evaluate(cfg.Symbol, quote.Last); act != risk.ActionNone {
			e.sellHolding(ctx, cfg.Symbol, cfg.Name, quote.Last, act.String())
			continue
		}

		end := now.In(time.UTC)
		start := end.AddDate(0, 0, -barLookbackDays(cfg.MAPeriod))
		bars, err := e.exec.GetDailyBars(ctx, cfg.Symbol, start, end)
		if err != nil {
			e.skipSymbol(cfg.Symbol, "daily bars", err)
			continue
		}

		res := signal.Evaluate(bars, cfg.MAPeriod, quote.PrevClose)
		if !res.Sufficient {
			e.log.Info("insufficient history for signal",
				logger.String("symbol", cfg.Symbol),
				logger.Int("period", cfg.MAPeriod),
				logger.Int("bars", len(bars)),
			)
			continue
		}

		_, held := e.tracker.Get(cfg.Symbol)
		switch {
		case res.Signal == signal.Sell && held:
			e.sellHolding(ctx, cfg.Symbol, cfg.Name, quote.Last, "ma_sell")
		case res.Signal == signal.Buy && !held:
			e.tryBuy(ctx, now, cfg, quote, bal)
		}
	}
	return nil
}

// tryBuy applies the trading window, the buy vetoes, and the open/close
// split, then places the open-window tranche.
func (e *Engine) tryBuy(ctx context.Context, now time.Time, cfg config.SymbolConfig, quote types.Quote, bal types.Balance) {
	market := e.adapter.Market()
	if !cfg.InWindow(now) {
		e.log.Info("symbol outside trading window", logger.String("symbol", cfg.Symbol))
		return
	}

	price := e.adapter.RoundPrice(quote.Last)
	plan, ok := sizing.Split(bal.TotalAssets, cfg.AllocationRatio, price, e.params.OpenRatio)
	if !ok {
		e.log.Info("insufficient funds for allocation",
			logger.String("symbol", cfg.Symbol),
			logger.Float64("allocation", cfg.AllocationRatio),
			logger.Float64("price", price),
		)
		return
	}

	maxInClass := e.params.MaxIndividual
	if cfg.Class == types.ClassPool {
		maxInClass = e.params.MaxPool
	}
	veto := sizing.CheckVetoes(sizing.VetoInput{
		SoldToday:     e.day.SoldToday[cfg.Symbol],
		HeldInClass:   e.tracker.Held(e.classSymbols(cfg.Class)),
		MaxInClass:    maxInClass,
		CashAvailable: bal.CashAvailable,
		BuyCost:       float64(plan.TotalQty) * price,
		TotalAssets:   bal.TotalAssets,
		MinCashRatio:  e.params.MinCashRatio,
	})
	if veto != nil {
		e.log.Info("buy vetoed",
			logger.String("symbol", cfg.Symbol),
			logger.String("reason", veto.Error()),
		)
		return
	}
	if plan.OpenQty <= 0 {
		return
	}

	bp, err := e.exec.GetBuyingPower(ctx, cfg.Symbol)
	if err != nil {
		e.skipSymbol(cfg.Symbol, "buying power", err)
		return
	}
	// A zero buying-power response means the endpoint has nothing to say;
	// the cash-floor veto above already bounded the buy.
	if bp > 0 && bp < float64(plan.OpenQty)*price {
		e.log.Info("insufficient buying power",
			logger.String("symbol", cfg.Symbol),
			logger.Float64("buying_power", bp),
			logger.Float64("cost", float64(plan.OpenQty)*price),
		)
		return
	}

	res, err := e.exec.PlaceOrder(ctx, types.Order{
		Market:  market,
		Symbol:  cfg.Symbol,
		Side:    types.Buy,
		Qty:     plan.OpenQty,
		Comment: "ma_buy_open",
	})
	if err != nil {
		e.orderFailed(cfg.Symbol, err)
		return
	}

	entry := res.AvgPrice
	if entry <= 0 {
		entry = quote.Last
	}
	e.tracker.Open(cfg.Symbol, cfg.Name, entry, plan.OpenQty)
	if plan.PendingQty > 0 {
		e.day.Pending = append(e.day.Pending, types.PendingCloseOrder{
			Symbol:          cfg.Symbol,
			Name:            cfg.Name,
			Qty:             plan.PendingQty,
			AllocationRatio: cfg.AllocationRatio,
		})
		metrics.PendingCloseOrders.WithLabelValues(string(market)).
			Set(float64(len(e.day.Pending)))
	}
	e.persist()
	e.recordTrade(types.TradeEvent{
		Time: res.Time, Market: market, Symbol: cfg.Symbol, Name: cfg.Name,
		Side: types.Buy, Qty: plan.OpenQty, Price: entry, Reason: "ma_buy_open",
	})
	e.notifier.Notify(fmt.Sprintf("[%s] BUY %s %s x%d @ %s %s (pending %d for close)",
		market, cfg.Symbol, cfg.Name, plan.OpenQty, formatPrice(entry), e.adapter.Currency(), plan.PendingQty), false)
}

// runClosePass drains the deferred-order queue. A pending buy whose symbol
// is no longer held (the open tranche never filled, or it was stopped out)
// is cancelled instead of executed.
func (e *Engine) runClosePass(ctx context.Context) error {
	market := e.adapter.Market()
	if len(e.day.Pending) == 0 {
		return nil
	}

	bal, err := e.exec.GetBalance(ctx)
	if err != nil {
		if errors.Is(err, broker.ErrNoData) {
			e.log.Info("empty balance, skipping close pass",
				logger.String("market", string(market)))
			return nil
		}
		return fmt.Errorf("%s: balance: %w", market, err)
	}
	e.tracker.Merge(bal)

	// Settled entries (executed or cancelled) are pruned from the queue
	// before each persist, so a crash mid-drain does not restart into a
	// snapshot that re-buys an already-filled remainder. Entries whose
	// price fetch or order failed stay queued for this pass only.
	queue := e.day.Pending
	var unsettled []types.PendingCloseOrder
	settle := func(i int) {
		e.day.Pending = append(append([]types.PendingCloseOrder(nil), unsettled...), queue[i+1:]...)
		metrics.PendingCloseOrders.WithLabelValues(string(market)).
			Set(float64(len(e.day.Pending)))
		e.persist()
	}
	for i, pending := range queue {
		if _, held := e.tracker.Get(pending.Symbol); !held {
			e.log.Info("pending close order cancelled, no holdings",
				logger.String("symbol", pending.Symbol))
			settle(i)
			continue
		}
		quote, err := e.exec.GetPrice(ctx, pending.Symbol)
		if err != nil {
			e.skipSymbol(pending.Symbol, "price", err)
			unsettled = append(unsettled, pending)
			continue
		}
		res, err := e.exec.PlaceOrder(ctx, types.Order{
			Market:  market,
			Symbol:  pending.Symbol,
			Side:    types.Buy,
			Qty:     pending.Qty,
			Comment: "ma_buy_close",
		})
		if err != nil {
			e.orderFailed(pending.Symbol, err)
			unsettled = append(unsettled, pending)
			continue
		}
		entry := res.AvgPrice
		if entry <= 0 {
			entry = quote.Last
		}
		e.tracker.Open(pending.Symbol, pending.Name, entry, pending.Qty)
		settle(i)
		e.recordTrade(types.TradeEvent{
			Time: res.Time, Market: market, Symbol: pending.Symbol, Name: pending.Name,
			Side: types.Buy, Qty: pending.Qty, Price: entry, Reason: "ma_buy_close",
		})
		e.notifier.Notify(fmt.Sprintf("[%s] BUY %s %s x%d @ %s %s (close window)",
			market, pending.Symbol, pending.Name, pending.Qty, formatPrice(entry), e.adapter.Currency()), false)
	}
	return nil
}

// runRiskPass applies only the stop-loss/trailing-stop overlay to existing
// positions. No new entries are opened intraday.
func (e *Engine) runRiskPass(ctx context.Context) {
	market := e.adapter.Market()
	bal, err := e.exec.GetBalance(ctx)
	if err != nil {
		if !errors.Is(err, broker.ErrNoData) {
			e.log.Warn("risk pass balance fetch failed",
				logger.String("market", string(market)), logger.Err(err))
		}
		return
	}
	e.tracker.Merge(bal)
	metrics.TotalAssets.WithLabelValues(string(market)).Set(bal.TotalAssets)

	for _, pos := range e.tracker.Positions() {
		quote, err := e.exec.GetPrice(ctx, pos.Symbol)
		if err != nil {
			e.skipSymbol(pos.Symbol, "price", err)
			continue
		}
		if act := e.tracker.Evaluate(pos.Symbol, quote.Last); act != risk.ActionNone {
			e.sellHolding(ctx, pos.Symbol, pos.Name, quote.Last, act.String())
		}
	}
	e.persist() // high-water ratchets happen above
}

// sellHolding flattens the full position at market and records the outcome.
// A successful sell blocks same-day re-entry for the symbol.
func (e *Engine) sellHolding(ctx context.Context, symbol, name string, last float64, reason string) {
	market := e.adapter.Market()
	pos, ok := e.tracker.Get(symbol)
	if !ok || pos.Qty <= 0 {
		return
	}
	res, err := e.exec.PlaceOrder(ctx, types.Order{
		Market:  market,
		Symbol:  symbol,
		Side:    types.Sell,
		Qty:     pos.Qty,
		Comment: reason,
	})
	if err != nil {
		e.orderFailed(symbol, err)
		return
	}
	exit := res.AvgPrice
	if exit <= 0 {
		exit = last
	}
	realized, qty := e.tracker.Close(symbol, exit)
	e.day.SoldToday[symbol] = true
	e.persist()

	switch reason {
	case risk.ActionStopLoss.String():
		metrics.StopLossTriggers.WithLabelValues(string(market)).Inc()
	case risk.ActionTrailingStop.String():
		metrics.TrailingStopTriggers.WithLabelValues(string(market)).Inc()
	}
	e.recordTrade(types.TradeEvent{
		Time: res.Time, Market: market, Symbol: symbol, Name: name,
		Side: types.Sell, Qty: qty, Price: exit, RealizedPnL: realized, Reason: reason,
	})
	e.notifier.Notify(fmt.Sprintf("[%s] SELL %s %s x%d @ %s %s (%s, P&L %s)",
		market, symbol, name, qty, formatPrice(exit), e.adapter.Currency(), reason, formatPrice(realized)), false)
}

// classSymbols returns the configured symbols belonging to one class.
func (e *Engine) classSymbols(class types.SymbolClass) map[string]bool {
	out := make(map[string]bool)
	for _, s := range e.symbols {
		if s.Class == class {
			out[s.Symbol] = true
		}
	}
	return out
}

// skipSymbol logs a per-symbol fetch problem. No-data is informational;
// exhausted retries are escalated to the notifier.
func (e *Engine) skipSymbol(symbol, what string, err error) {
	if errors.Is(err, broker.ErrNoData) {
		e.log.Info("no data, skipping symbol",
			logger.String("symbol", symbol), logger.String("call", what))
		return
	}
	var ef *executor.ExecutionFailure
	if errors.As(err, &ef) {
		e.log.Error("symbol skipped after retries",
			logger.String("symbol", symbol), logger.String("call", what), logger.Err(err))
		e.notifier.Notify(fmt.Sprintf("[%s] %s: %s failed: %v", e.adapter.Market(), symbol, what, err), true)
		return
	}
	e.log.Error("symbol skipped",
		logger.String("symbol", symbol), logger.String("call", what), logger.Err(err))
}

func (e *Engine) orderFailed(symbol string, err error) {
	market := e.adapter.Market()
	metrics.OrdersFailed.WithLabelValues(string(market)).Inc()
	e.log.Error("order failed", logger.String("symbol", symbol), logger.Err(err))
	e.notifier.Notify(fmt.Sprintf("[%s] order for %s failed: %v", market, symbol, err), true)
}

func (e *Engine) recordTrade(ev types.TradeEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if err := e.journal.Record(ev); err != nil {
		e.log.Warn("trade journal write failed", logger.Err(err))
	}
}

// persist snapshots day state and positions. Persistence failure is logged
// but never blocks trading.
func (e *Engine) persist() {
	snap := snapshot{State: e.day, Positions: e.tracker.Positions()}
	if err := e.state.Save(&snap); err != nil {
		e.log.Error("state persist failed",
			logger.String("market", string(e.adapter.Market())), logger.Err(err))
	}
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
