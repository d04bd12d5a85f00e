package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/memesim/internal/application/engine"
	"github.com/alejandrodnm/memesim/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// NotifyMarket imprime los tickers en el modo configurado.
func (c *Console) NotifyMarket(_ context.Context, tickers []domain.TickerView) error {
	if len(tickers) == 0 {
		fmt.Fprintf(c.out, "[%s] no tickers listed\n", c.now().Format("15:04:05"))
		return nil
	}
	if c.table {
		c.printMarketTable(tickers)
	} else {
		c.printCompact(tickers)
	}
	return nil
}

// printCompact imprime una línea: los watched primero, luego los mayores movimientos.
func (c *Console) printCompact(tickers []domain.TickerView) {
	ordered := make([]domain.TickerView, len(tickers))
	copy(ordered, tickers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Watched != ordered[j].Watched {
			return ordered[i].Watched
		}
		return abs(ordered[i].ChangePct) > abs(ordered[j].ChangePct)
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d tickers", c.now().Format("15:04:05"), len(tickers))
	for i, t := range ordered {
		if i >= 4 {
			break
		}
		star := ""
		if t.Watched {
			star = "*"
		}
		fmt.Fprintf(&sb, " | %s%s%s %s %+.2f%%", t.Indicator(), star, t.Symbol, formatPrice(t.Price), t.ChangePct)
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printMarketTable(tickers []domain.TickerView) {
	table := tablewriter.NewWriter(c.out)
	table.Header("", "Symbol", "Price", "Chg%", "Regime", "Sent", "Trend", "Watch")

	for _, t := range tickers {
		watch := ""
		if t.Watched {
			watch = "★"
		}
		table.Append(
			t.Indicator(),
			t.Symbol,
			formatPrice(t.Price),
			fmt.Sprintf("%+.2f", t.ChangePct),
			t.Regime.String(),
			fmt.Sprintf("%.2f", t.Sentiment),
			Sparkline(t.History),
			watch,
		)
	}
	table.Render()
}

// NotifyPortfolio imprime cash, posiciones y valor total.
func (c *Console) NotifyPortfolio(_ context.Context, p domain.PortfolioView) error {
	fmt.Fprintf(c.out, "  Cash: $%s | Total: $%s (%+.2f%% vs trailing avg)\n",
		p.Cash.StringFixed(2), p.TotalValue.StringFixed(2), p.ChangePct)

	if len(p.Holdings) == 0 {
		fmt.Fprintln(c.out, "  no holdings")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Qty", "Price", "Value", "Chg%", "Status")
	for _, h := range p.Holdings {
		status := "live"
		if h.Delisted {
			status = "delisted"
		}
		table.Append(
			h.Symbol,
			fmt.Sprintf("%d", h.Quantity),
			formatPrice(h.Price),
			"$"+h.Value.StringFixed(2),
			fmt.Sprintf("%+.2f", h.ChangePct),
			status,
		)
	}
	table.Render()
	return nil
}

// NotifyArchive imprime los tickers deslistados, el más reciente primero.
func (c *Console) NotifyArchive(_ context.Context, archive []domain.ArchiveView) error {
	if len(archive) == 0 {
		fmt.Fprintln(c.out, "  archive is empty")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Final", "Regime", "Delisted", "Trend")
	for i := len(archive) - 1; i >= 0; i-- {
		a := archive[i]
		table.Append(
			a.Symbol,
			formatPrice(a.FinalPrice),
			a.Regime.String(),
			a.DelistedAt.Local().Format("2006-01-02 15:04:05"),
			Sparkline(a.History),
		)
	}
	table.Render()
	return nil
}

// PrintReceipt imprime una operación ejecutada.
func (c *Console) PrintReceipt(r domain.TradeReceipt) {
	fmt.Fprintf(c.out, "  %s %d %s @ %s = $%s | cash $%s\n",
		r.Side, r.Quantity, r.Symbol, formatPrice(r.Price), r.Amount.StringFixed(2), r.CashAfter.StringFixed(2))
}

// PrintReplacements anuncia los tickers deslistados en un tick.
func (c *Console) PrintReplacements(replaced []engine.Replacement) {
	for _, r := range replaced {
		fmt.Fprintf(c.out, "  💀 %s delisted (%s), %s listed\n", r.Old, strings.ReplaceAll(r.Reason, "_", " "), r.New)
	}
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline dibuja el historial como una fila de bloques.
func Sparkline(history []decimal.Decimal) string {
	if len(history) == 0 {
		return ""
	}
	lo, hi := history[0], history[0]
	for _, v := range history[1:] {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	span := hi.Sub(lo)

	out := make([]rune, len(history))
	for i, v := range history {
		idx := 0
		if span.IsPositive() {
			f := v.Sub(lo).Div(span).InexactFloat64()
			idx = int(f * float64(len(sparkBlocks)-1))
		}
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}

// formatPrice muestra más decimales cuanto más pequeño es el precio.
func formatPrice(p decimal.Decimal) string {
	switch {
	case p.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return "$" + p.StringFixed(2)
	case p.GreaterThanOrEqual(decimal.New(1, -2)):
		return "$" + p.StringFixed(4)
	default:
		return "$" + p.StringFixed(domain.PricePlaces)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
