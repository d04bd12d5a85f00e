package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/memesim/internal/domain"
	"github.com/alejandrodnm/memesim/internal/ports"
)

// maxSymbolAttempts bounds how many times the generator is asked for a fresh
// symbol before a listing gives up with ErrSymbolCollision.
const maxSymbolAttempts = 64

// Replacement records one delisting and the ticker listed in its place.
type Replacement struct {
	Old    string
	New    string
	Reason string
}

// TickerLedger owns the live tickers, in listing order, and the archive of
// delisted ones. A symbol is either active or archived, never both.
type TickerLedger struct {
	params     domain.Params
	historyLen int
	rnd        ports.Random
	clock      ports.Clock
	symbols    ports.SymbolGenerator

	active   []*domain.Ticker
	index    map[string]int
	archive  []domain.ArchivedTicker
	archived map[string]int
}

// NewTickerLedger returns an empty ledger. Call Populate or restore before ticking.
func NewTickerLedger(params domain.Params, historyLen int, rnd ports.Random, clock ports.Clock, symbols ports.SymbolGenerator) *TickerLedger {
	return &TickerLedger{
		params:     params,
		historyLen: historyLen,
		rnd:        rnd,
		clock:      clock,
		symbols:    symbols,
		index:      make(map[string]int),
		archived:   make(map[string]int),
	}
}

// Populate discards everything and lists n fresh tickers. The new set is
// built aside and swapped in only when all n listed; on error the ledger is
// left untouched.
func (l *TickerLedger) Populate(n int) error {
	active := make([]*domain.Ticker, 0, n)
	index := make(map[string]int, n)
	taken := func(s string) bool {
		_, ok := index[s]
		return ok
	}

	for i := 0; i < n; i++ {
		t, err := l.listWith(taken)
		if err != nil {
			return fmt.Errorf("engine.TickerLedger.Populate: ticker %d: %w", i, err)
		}
		index[t.Symbol] = len(active)
		active = append(active, t)
	}

	l.active = active
	l.index = index
	l.archive = nil
	l.archived = make(map[string]int)
	return nil
}

// Tick advances every active ticker once, in listing order. Replacement is
// checked before the price update and short-circuits it. A fault in one
// ticker is isolated: it is returned in faults and the ticker is skipped.
func (l *TickerLedger) Tick() (replaced []Replacement, faults []error) {
	for i := range l.active {
		rep, err := l.step(i)
		if err != nil {
			faults = append(faults, err)
			continue
		}
		if rep != nil {
			replaced = append(replaced, *rep)
		}
	}
	return replaced, faults
}

func (l *TickerLedger) step(i int) (rep *Replacement, err error) {
	t := l.active[i]
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine.TickerLedger.Tick %s: panic: %v", t.Symbol, r)
		}
	}()

	if reason := l.replacementReason(t); reason != "" {
		next, err := l.replace(i, reason)
		if err != nil {
			return nil, err
		}
		return &Replacement{Old: t.Symbol, New: next.Symbol, Reason: reason}, nil
	}
	if t.State.IsDeathSpiral {
		t.State.DeathSpiralTicks++
	}
	if err := t.Advance(l.params, l.rnd); err != nil {
		return nil, fmt.Errorf("engine.TickerLedger.Tick: %w", err)
	}
	return nil, nil
}

// replacementReason reports why t must be delisted, or "" when it survives.
// It does not touch t; step counts the death-spiral tick afterwards.
func (l *TickerLedger) replacementReason(t *domain.Ticker) string {
	if t.Price.InexactFloat64() <= l.params.Replacement.MinPrice {
		return "min_price"
	}
	if t.State.IsDeathSpiral && t.State.DeathSpiralTicks >= l.params.Replacement.MaxDeathDuration {
		return "death_spiral"
	}
	return ""
}

// replace archives the ticker at position i and lists a fresh one in its slot.
// On error the old ticker stays active and is retried on the next tick.
func (l *TickerLedger) replace(i int, reason string) (*domain.Ticker, error) {
	old := l.active[i]
	next, err := l.list()
	if err != nil {
		return nil, fmt.Errorf("engine.TickerLedger.replace %s: %w", old.Symbol, err)
	}

	l.archived[old.Symbol] = len(l.archive)
	l.archive = append(l.archive, old.Archive(l.clock.Now()))
	delete(l.index, old.Symbol)

	l.active[i] = next
	l.index[next.Symbol] = i

	slog.Info("ticker delisted",
		"symbol", old.Symbol,
		"reason", reason,
		"final_price", old.Price.String(),
		"replacement", next.Symbol,
	)
	return next, nil
}

// list builds a ticker under a symbol that is neither active nor archived.
func (l *TickerLedger) list() (*domain.Ticker, error) {
	return l.listWith(l.inUse)
}

func (l *TickerLedger) listWith(taken func(string) bool) (*domain.Ticker, error) {
	symbol, err := l.uniqueSymbol(taken)
	if err != nil {
		return nil, err
	}
	return domain.NewTicker(uuid.New().String(), symbol, l.params, l.historyLen, l.rnd, l.clock.Now()), nil
}

func (l *TickerLedger) uniqueSymbol(taken func(string) bool) (string, error) {
	for attempt := 0; attempt < maxSymbolAttempts; attempt++ {
		s := l.symbols.Generate()
		if s == "" || taken(s) {
			continue
		}
		return s, nil
	}
	return "", fmt.Errorf("engine.TickerLedger: %d attempts: %w", maxSymbolAttempts, domain.ErrSymbolCollision)
}

func (l *TickerLedger) inUse(symbol string) bool {
	if _, ok := l.index[symbol]; ok {
		return true
	}
	_, ok := l.archived[symbol]
	return ok
}

// Active returns the live ticker for symbol.
func (l *TickerLedger) Active(symbol string) (*domain.Ticker, bool) {
	i, ok := l.index[symbol]
	if !ok {
		return nil, false
	}
	return l.active[i], true
}

// Archived returns the archive entry for symbol.
func (l *TickerLedger) Archived(symbol string) (domain.ArchivedTicker, bool) {
	i, ok := l.archived[symbol]
	if !ok {
		return domain.ArchivedTicker{}, false
	}
	return l.archive[i], true
}

// MarkPrice is the live price, or the final price of a delisted symbol.
func (l *TickerLedger) MarkPrice(symbol string) (decimal.Decimal, bool) {
	if t, ok := l.Active(symbol); ok {
		return t.Price, true
	}
	if a, ok := l.Archived(symbol); ok {
		return a.FinalPrice, true
	}
	return decimal.Zero, false
}

// Tickers returns the live tickers in listing order. Callers must not retain them.
func (l *TickerLedger) Tickers() []*domain.Ticker {
	return l.active
}

// ArchiveEntries returns the archive in delisting order.
func (l *TickerLedger) ArchiveEntries() []domain.ArchivedTicker {
	return l.archive
}

// Len is the number of live tickers.
func (l *TickerLedger) Len() int {
	return len(l.active)
}

// restore replaces the ledger content with previously persisted state.
func (l *TickerLedger) restore(active []*domain.Ticker, archive []domain.ArchivedTicker) {
	l.active = active
	l.index = make(map[string]int, len(active))
	for i, t := range active {
		l.index[t.Symbol] = i
	}
	l.archive = archive
	l.archived = make(map[string]int, len(archive))
	for i, a := range archive {
		l.archived[a.Symbol] = i
	}
}
