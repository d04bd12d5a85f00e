package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/memesim/internal/adapters/notify"
	"github.com/alejandrodnm/memesim/internal/adapters/rng"
	"github.com/alejandrodnm/memesim/internal/adapters/storage"
	"github.com/alejandrodnm/memesim/internal/adapters/symbols"
	"github.com/alejandrodnm/memesim/internal/application/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREPL(t *testing.T) (*repl, *engine.Engine, *bytes.Buffer) {
	t.Helper()
	rnd := rng.New(77)
	p := engine.NewPersister(storage.NewMemoryStore(), engine.PersisterConfig{}, nil)
	t.Cleanup(p.Close)
	eng := engine.New(engine.DefaultConfig(), engine.Deps{
		Random:    rnd,
		Clock:     rng.NewManualClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
		Symbols:   symbols.New(rnd),
		Persister: p,
	})
	_, err := eng.Open(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	return newREPL(eng, notify.NewConsoleWriter(&buf, true), &buf), eng, &buf
}

func TestREPL_BuySellWatch(t *testing.T) {
	r, eng, buf := newTestREPL(t)
	symbol := eng.Tickers()[0].Symbol
	input := strings.Join([]string{
		"buy " + symbol + " 2",
		"sell " + symbol + " 1",
		"watch " + strings.ToLower(symbol),
		"portfolio",
		"quit",
		"buy " + symbol + " 1",
	}, "\n")

	r.Run(context.Background(), strings.NewReader(input))

	out := buf.String()
	assert.Contains(t, out, "BUY 2 "+symbol)
	assert.Contains(t, out, "SELL 1 "+symbol)
	assert.Contains(t, out, "watching "+symbol)
	assert.Equal(t, []string{symbol}, eng.Watchlist())
	require.Len(t, eng.Portfolio().Holdings, 1)
	assert.Equal(t, int64(1), eng.Portfolio().Holdings[0].Quantity, "commands after quit are ignored")
}

func TestREPL_ReportsErrors(t *testing.T) {
	r, _, buf := newTestREPL(t)

	r.Run(context.Background(), strings.NewReader("buy NOPE1 1\nsell X 1.5\nfly away\nbuy\n"))

	out := buf.String()
	assert.Contains(t, out, "no live ticker with that symbol")
	assert.Contains(t, out, "quantity must be a positive whole number")
	assert.Contains(t, out, `unknown command "fly"`)
	assert.Contains(t, out, "usage: buy SYM N")
}

func TestREPL_Reset(t *testing.T) {
	r, eng, _ := newTestREPL(t)
	symbol := eng.Tickers()[0].Symbol
	require.NoError(t, r.execute(context.Background(), "buy "+symbol+" 1"))

	require.NoError(t, r.execute(context.Background(), "reset"))

	assert.Empty(t, eng.Portfolio().Holdings)
}
