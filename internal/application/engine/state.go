package engine

import (
	"sort"

	"github.com/alejandrodnm/memesim/internal/domain"
)

// snapshot captures the whole engine state. Caller holds e.mu.
func (e *Engine) snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		Version:   domain.SnapshotVersion,
		SavedAt:   e.clock.Now().UTC(),
		Watchlist: e.watchlistLocked(),
	}

	for _, t := range e.ledger.Tickers() {
		snap.Tickers = append(snap.Tickers, domain.Pair[domain.TickerRecord]{
			Key: t.Symbol,
			Value: domain.TickerRecord{
				ID:        t.ID,
				Price:     t.Price,
				PrevPrice: t.PrevPrice,
				History:   t.History.Values(),
				State:     t.State,
				Momentum:  t.Momentum,
				ListedAt:  t.ListedAt,
			},
		})
		if t.State.IsDeathSpiral {
			snap.DeathSpiralCounters = append(snap.DeathSpiralCounters, domain.Pair[int]{
				Key:   t.Symbol,
				Value: t.State.DeathSpiralTicks,
			})
		}
	}

	for _, a := range e.ledger.ArchiveEntries() {
		snap.Archive = append(snap.Archive, domain.Pair[domain.ArchiveRecord]{
			Key: a.Symbol,
			Value: domain.ArchiveRecord{
				ID:         a.ID,
				FinalPrice: a.FinalPrice,
				History:    a.History,
				DelistedAt: a.DelistedAt,
				State:      a.State,
			},
		})
	}

	snap.Portfolio = domain.PortfolioRecord{
		Cash:         e.portfolio.Cash,
		History:      append([]domain.ValuationPoint(nil), e.portfolio.History...),
		HourlyPrices: e.portfolio.Trailing.Points(),
	}
	for _, s := range e.portfolio.Symbols() {
		snap.Portfolio.Holdings = append(snap.Portfolio.Holdings, domain.Pair[int64]{Key: s, Value: e.portfolio.Holdings[s]})
	}
	return snap
}

// restoreState rebuilds the ledger, portfolio and watchlist from snap.
// Histories are resized to the configured length. Caller holds e.mu.
func (e *Engine) restoreState(snap *domain.Snapshot) {
	counters := make(map[string]int, len(snap.DeathSpiralCounters))
	for _, c := range snap.DeathSpiralCounters {
		counters[c.Key] = c.Value
	}

	active := make([]*domain.Ticker, 0, len(snap.Tickers))
	for _, p := range snap.Tickers {
		rec := p.Value
		t := &domain.Ticker{
			ID:        rec.ID,
			Symbol:    p.Key,
			Price:     rec.Price,
			PrevPrice: rec.PrevPrice,
			History:   domain.NewPriceHistory(rec.History).Resized(e.cfg.HistoryLen),
			Momentum:  rec.Momentum,
			State:     rec.State,
			ListedAt:  rec.ListedAt,
		}
		if n := counters[p.Key]; n > 0 && t.State.DeathSpiralTicks == 0 {
			t.State.DeathSpiralTicks = n
		}
		active = append(active, t)
	}

	archive := make([]domain.ArchivedTicker, 0, len(snap.Archive))
	for _, p := range snap.Archive {
		rec := p.Value
		archive = append(archive, domain.ArchivedTicker{
			ID:         rec.ID,
			Symbol:     p.Key,
			FinalPrice: rec.FinalPrice,
			History:    rec.History,
			DelistedAt: rec.DelistedAt,
			State:      rec.State,
		})
	}
	e.ledger.restore(active, archive)

	pf := domain.NewPortfolio(snap.Portfolio.Cash)
	for _, h := range snap.Portfolio.Holdings {
		pf.Holdings[h.Key] += h.Value
	}
	pf.History = append(pf.History, snap.Portfolio.History...)
	pf.Trailing.Restore(snap.Portfolio.HourlyPrices)
	e.portfolio = pf

	e.watchlist = make(map[string]struct{}, len(snap.Watchlist))
	for _, s := range snap.Watchlist {
		if _, ok := e.ledger.Active(s); ok {
			e.watchlist[s] = struct{}{}
		}
	}
}

func (e *Engine) watchlistLocked() []string {
	out := make([]string, 0, len(e.watchlist))
	for s := range e.watchlist {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
