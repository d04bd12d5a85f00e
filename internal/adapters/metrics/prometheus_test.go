package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/memesim/internal/adapters/metrics"
	"github.com/alejandrodnm/memesim/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Metrics = (*metrics.Recorder)(nil)

func scrape(t *testing.T, r *metrics.Recorder) string {
	t.Helper()
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorder_CountsAndGauges(t *testing.T) {
	r := metrics.New()

	r.ObserveTick(2*time.Millisecond, 2)
	r.ObserveTick(time.Millisecond, 1)
	r.RecordTrade("BUY", "ok")
	r.RecordTrade("BUY", "ok")
	r.RecordTrade("SELL", "insufficient_holdings")
	r.RecordPersistenceError("save")
	r.SetPortfolioValue(10250.5)

	body := scrape(t, r)
	assert.Contains(t, body, "memesim_replacements_total 3")
	assert.Contains(t, body, `memesim_trades_total{result="ok",side="BUY"} 2`)
	assert.Contains(t, body, `memesim_trades_total{result="insufficient_holdings",side="SELL"} 1`)
	assert.Contains(t, body, `memesim_persistence_errors_total{op="save"} 1`)
	assert.Contains(t, body, "memesim_portfolio_value 10250.5")
	assert.Contains(t, body, "memesim_tick_duration_seconds_count 2")
}

func TestRecorder_RemoveTickerDropsSeries(t *testing.T) {
	r := metrics.New()
	r.SetTickerPrice("MOON", 1.5)
	r.SetTickerPrice("REKT", 0.00001)
	r.RemoveTicker("REKT")

	body := scrape(t, r)
	assert.Contains(t, body, `memesim_ticker_price{symbol="MOON"} 1.5`)
	assert.NotContains(t, body, `symbol="REKT"`)
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New()
		metrics.New()
	})
}
