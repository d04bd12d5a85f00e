package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/memesim/internal/domain"
	"github.com/alejandrodnm/memesim/internal/ports"
)

// Config holds the simulation settings the engine needs.
type Config struct {
	TickerCount     int
	HistoryLen      int
	InitialCash     decimal.Decimal
	ValuationBucket time.Duration
	Params          domain.Params
}

// DefaultConfig returns the stock simulation: 10 tickers, 20-point history,
// 10000 cash, hourly valuation buckets.
func DefaultConfig() Config {
	return Config{
		TickerCount:     10,
		HistoryLen:      20,
		InitialCash:     decimal.NewFromInt(10000),
		ValuationBucket: time.Hour,
		Params:          domain.DefaultParams(),
	}
}

// Deps are the collaborators injected into the engine.
type Deps struct {
	Random    ports.Random
	Clock     ports.Clock
	Symbols   ports.SymbolGenerator
	Persister *Persister
	Metrics   ports.Metrics
}

// TickReport summarizes one tick.
type TickReport struct {
	Replaced []Replacement
	Faults   []error
	Duration time.Duration
}

// Engine is the single owned aggregate of ledger, portfolio and watchlist.
// Every public method is a critical section; ticks and trades never interleave.
type Engine struct {
	mu sync.Mutex

	cfg       Config
	ledger    *TickerLedger
	portfolio *domain.Portfolio
	watchlist map[string]struct{}

	clock     ports.Clock
	persister *Persister
	metrics   ports.Metrics
}

// New wires an engine. Call Open before use.
func New(cfg Config, deps Deps) *Engine {
	if cfg.TickerCount <= 0 {
		cfg.TickerCount = 10
	}
	if cfg.HistoryLen <= 0 {
		cfg.HistoryLen = 20
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	return &Engine{
		cfg:       cfg,
		ledger:    NewTickerLedger(cfg.Params, cfg.HistoryLen, deps.Random, deps.Clock, deps.Symbols),
		portfolio: domain.NewPortfolio(cfg.InitialCash),
		watchlist: make(map[string]struct{}),
		clock:     deps.Clock,
		persister: deps.Persister,
		metrics:   deps.Metrics,
	}
}

// Open restores the persisted simulation, or starts a fresh one when the slot
// is empty or malformed. restored reports which path was taken. When the store
// itself cannot be reached Open fails and writes nothing.
func (e *Engine) Open(ctx context.Context) (restored bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.persister.Load(ctx)
	if err == nil {
		e.restoreState(snap)
		e.revalueLocked()
		e.publishPricesLocked()
		slog.Info("simulation restored",
			"tickers", e.ledger.Len(),
			"archived", len(e.ledger.ArchiveEntries()),
			"saved_at", snap.SavedAt,
		)
		return true, nil
	}
	if !errors.Is(err, domain.ErrPersistenceRead) {
		return false, fmt.Errorf("engine.Open: %w", err)
	}
	slog.Warn("no usable snapshot, starting fresh", "err", err)

	if err := e.freshLocked(ctx); err != nil {
		return false, fmt.Errorf("engine.Open: %w", err)
	}
	return false, nil
}

// Tick advances the simulation one step, revalues the portfolio and saves.
func (e *Engine) Tick(ctx context.Context) TickReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	replaced, faults := e.ledger.Tick()
	for _, err := range faults {
		slog.Warn("ticker update skipped", "err", err)
	}
	for _, r := range replaced {
		delete(e.watchlist, r.Old)
		e.metrics.RemoveTicker(r.Old)
	}

	e.revalueLocked()
	e.publishPricesLocked()
	_ = e.persister.Save(ctx, e.snapshot())

	report := TickReport{Replaced: replaced, Faults: faults, Duration: time.Since(start)}
	e.metrics.ObserveTick(report.Duration, len(replaced))
	return report
}

// Trade executes a buy or sell at the current price. On any error the
// returned receipt is zero and no state has changed.
func (e *Engine) Trade(ctx context.Context, symbol string, qty int64, side domain.Side) (domain.TradeReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbol = normalize(symbol)
	receipt, err := e.tradeLocked(symbol, qty, side)
	if err != nil {
		e.metrics.RecordTrade(string(side), tradeResult(err))
		return domain.TradeReceipt{}, err
	}
	e.metrics.RecordTrade(string(side), "ok")

	e.revalueLocked()
	_ = e.persister.Save(ctx, e.snapshot())

	slog.Info("trade executed",
		"id", receipt.ID,
		"side", receipt.Side,
		"symbol", receipt.Symbol,
		"qty", receipt.Quantity,
		"price", receipt.Price.String(),
		"cash", receipt.CashAfter.String(),
	)
	return receipt, nil
}

func (e *Engine) tradeLocked(symbol string, qty int64, side domain.Side) (domain.TradeReceipt, error) {
	if qty <= 0 {
		return domain.TradeReceipt{}, fmt.Errorf("engine.Trade: %w: %d", domain.ErrInvalidQuantity, qty)
	}
	t, ok := e.ledger.Active(symbol)
	if !ok {
		return domain.TradeReceipt{}, fmt.Errorf("engine.Trade: %w: %q", domain.ErrUnknownSymbol, symbol)
	}

	var (
		amount decimal.Decimal
		err    error
	)
	switch side {
	case domain.SideBuy:
		amount, err = e.portfolio.Buy(symbol, qty, t.Price)
	case domain.SideSell:
		amount, err = e.portfolio.Sell(symbol, qty, t.Price)
	default:
		return domain.TradeReceipt{}, fmt.Errorf("engine.Trade: unknown side %q", side)
	}
	if err != nil {
		return domain.TradeReceipt{}, fmt.Errorf("engine.Trade: %w", err)
	}

	return domain.TradeReceipt{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		Price:      t.Price,
		Amount:     amount,
		CashAfter:  e.portfolio.Cash,
		ExecutedAt: e.clock.Now(),
	}, nil
}

// Watch adds an active symbol to the watchlist.
func (e *Engine) Watch(ctx context.Context, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbol = normalize(symbol)
	if _, ok := e.ledger.Active(symbol); !ok {
		return fmt.Errorf("engine.Watch: %w: %q", domain.ErrUnknownSymbol, symbol)
	}
	if _, ok := e.watchlist[symbol]; ok {
		return nil
	}
	e.watchlist[symbol] = struct{}{}
	_ = e.persister.Save(ctx, e.snapshot())
	return nil
}

// Unwatch removes symbol from the watchlist. Unwatching an absent symbol is a no-op.
func (e *Engine) Unwatch(ctx context.Context, symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbol = normalize(symbol)
	if _, ok := e.watchlist[symbol]; !ok {
		return
	}
	delete(e.watchlist, symbol)
	_ = e.persister.Save(ctx, e.snapshot())
}

// Reset clears persisted and in-memory state and starts a fresh simulation.
// If the new tickers cannot be listed nothing is cleared.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := make([]string, 0, e.ledger.Len())
	for _, t := range e.ledger.Tickers() {
		old = append(old, t.Symbol)
	}
	if err := e.ledger.Populate(e.cfg.TickerCount); err != nil {
		return fmt.Errorf("engine.Reset: %w", err)
	}
	for _, s := range old {
		e.metrics.RemoveTicker(s)
	}
	_ = e.persister.Clear(ctx)
	e.startLocked(ctx)
	slog.Info("simulation reset", "tickers", e.ledger.Len())
	return nil
}

func (e *Engine) freshLocked(ctx context.Context) error {
	if err := e.ledger.Populate(e.cfg.TickerCount); err != nil {
		return err
	}
	e.startLocked(ctx)
	return nil
}

// startLocked resets portfolio and watchlist around a freshly populated ledger.
func (e *Engine) startLocked(ctx context.Context) {
	e.portfolio = domain.NewPortfolio(e.cfg.InitialCash)
	e.watchlist = make(map[string]struct{})
	e.revalueLocked()
	e.publishPricesLocked()
	_ = e.persister.Save(ctx, e.snapshot())
}

// revalueLocked marks the portfolio to market and records it in the
// current valuation bucket.
func (e *Engine) revalueLocked() decimal.Decimal {
	total := e.portfolio.TotalValue(e.ledger.MarkPrice)
	e.portfolio.Revalue(e.clock.Now(), e.cfg.ValuationBucket, total)
	e.metrics.SetPortfolioValue(total.InexactFloat64())
	return total
}

func (e *Engine) publishPricesLocked() {
	for _, t := range e.ledger.Tickers() {
		e.metrics.SetTickerPrice(t.Symbol, t.Price.InexactFloat64())
	}
}

// Tickers returns the live ticker read models in listing order.
func (e *Engine) Tickers() []domain.TickerView {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.TickerView, 0, e.ledger.Len())
	for _, t := range e.ledger.Tickers() {
		_, watched := e.watchlist[t.Symbol]
		out = append(out, t.View(watched))
	}
	return out
}

// Ticker returns the read model for one live symbol.
func (e *Engine) Ticker(symbol string) (domain.TickerView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbol = normalize(symbol)
	t, ok := e.ledger.Active(symbol)
	if !ok {
		return domain.TickerView{}, false
	}
	_, watched := e.watchlist[symbol]
	return t.View(watched), true
}

// Archive returns delisted tickers, oldest delisting first.
func (e *Engine) Archive() []domain.ArchiveView {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.ledger.ArchiveEntries()
	out := make([]domain.ArchiveView, 0, len(entries))
	for _, a := range entries {
		out = append(out, a.View())
	}
	return out
}

// Watchlist returns watched symbols in lexical order.
func (e *Engine) Watchlist() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.watchlistLocked()
}

// Portfolio returns cash, holdings and total value. The change is relative
// to the trailing valuation mean.
func (e *Engine) Portfolio() domain.PortfolioView {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := domain.PortfolioView{Cash: e.portfolio.Cash}
	for _, s := range e.portfolio.Symbols() {
		qty := e.portfolio.Holdings[s]
		h := domain.HoldingView{Symbol: s, Quantity: qty, Delisted: true}
		if t, ok := e.ledger.Active(s); ok {
			h.Price, h.ChangePct, h.Delisted = t.Price, t.ChangePct(), false
		} else if a, ok := e.ledger.Archived(s); ok {
			h.Price = a.FinalPrice
		}
		h.Value = h.Price.Mul(decimal.NewFromInt(qty))
		view.Holdings = append(view.Holdings, h)
	}
	view.TotalValue = e.portfolio.TotalValue(e.ledger.MarkPrice)
	view.ChangePct = e.portfolio.ChangePct(view.TotalValue)
	return view
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func tradeResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientHoldings):
		return "insufficient_holdings"
	default:
		return "error"
	}
}
