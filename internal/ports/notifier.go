package ports

import (
	"context"

	"github.com/alejandrodnm/memesim/internal/domain"
)

// Notifier presents engine read models to the user.
type Notifier interface {
	// NotifyMarket shows the live tickers.
	NotifyMarket(ctx context.Context, tickers []domain.TickerView) error

	// NotifyPortfolio shows cash, holdings and total value.
	NotifyPortfolio(ctx context.Context, portfolio domain.PortfolioView) error

	// NotifyArchive shows delisted tickers.
	NotifyArchive(ctx context.Context, archive []domain.ArchiveView) error
}
