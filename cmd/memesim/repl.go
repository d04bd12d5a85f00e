package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alejandrodnm/memesim/internal/adapters/notify"
	"github.com/alejandrodnm/memesim/internal/application/engine"
	"github.com/alejandrodnm/memesim/internal/domain"
)

const helpText = `commands:
  buy SYM N      buy N units at the current price
  sell SYM N     sell N units at the current price
  watch SYM      add SYM to the watchlist
  unwatch SYM    remove SYM from the watchlist
  market         show all live tickers
  portfolio      show cash, holdings and total value
  archive        show delisted tickers
  reset          wipe everything and start a fresh market
  quit           stop the simulation`

var errQuit = errors.New("quit")

// repl reads one command per line and applies it to the engine.
type repl struct {
	eng     *engine.Engine
	console *notify.Console
	out     io.Writer
}

func newREPL(eng *engine.Engine, console *notify.Console, out io.Writer) *repl {
	return &repl{eng: eng, console: console, out: out}
}

// Run reads commands until EOF, quit or ctx is cancelled.
func (r *repl) Run(ctx context.Context, in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		err := r.execute(ctx, sc.Text())
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintf(r.out, "  error: %v\n", err)
		}
	}
}

func (r *repl) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "buy", "sell":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s SYM N", cmd)
		}
		qty, err := domain.ParseQuantity(args[1])
		if err != nil {
			return err
		}
		side := domain.SideBuy
		if cmd == "sell" {
			side = domain.SideSell
		}
		receipt, err := r.eng.Trade(ctx, args[0], qty, side)
		if err != nil {
			return describeTradeError(err)
		}
		r.console.PrintReceipt(receipt)
	case "watch":
		if len(args) != 1 {
			return errors.New("usage: watch SYM")
		}
		if err := r.eng.Watch(ctx, args[0]); err != nil {
			return describeTradeError(err)
		}
		fmt.Fprintf(r.out, "  watching %s\n", strings.ToUpper(args[0]))
	case "unwatch":
		if len(args) != 1 {
			return errors.New("usage: unwatch SYM")
		}
		r.eng.Unwatch(ctx, args[0])
	case "market":
		return r.console.NotifyMarket(ctx, r.eng.Tickers())
	case "portfolio":
		return r.console.NotifyPortfolio(ctx, r.eng.Portfolio())
	case "archive":
		return r.console.NotifyArchive(ctx, r.eng.Archive())
	case "reset":
		if err := r.eng.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "  fresh market listed")
	case "help", "?":
		fmt.Fprintln(r.out, helpText)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

// describeTradeError maps engine errors to short user-facing messages.
func describeTradeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return errors.New("quantity must be a positive whole number")
	case errors.Is(err, domain.ErrUnknownSymbol):
		return errors.New("no live ticker with that symbol")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return errors.New("not enough cash")
	case errors.Is(err, domain.ErrInsufficientHoldings):
		return errors.New("not enough units held")
	default:
		return err
	}
}
