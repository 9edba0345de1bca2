package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Record(t *testing.T) {
	m := New("lobsim")
	m.Tick(1.5)
	m.Tick(2.0)
	m.Quote("ZIC")
	m.Trade(105)
	m.Cancel()
	m.Clip()
	m.Profit("ZIP", 12)
	m.Profit("ZIP", 0)
	m.Depth(3, 4)

	body := scrape(t, m)
	assert.Contains(t, body, "lobsim_ticks_total 2")
	assert.Contains(t, body, "lobsim_sim_time_seconds 2")
	assert.Contains(t, body, `lobsim_quotes_total{strategy="ZIC"} 1`)
	assert.Contains(t, body, "lobsim_trades_total 1")
	assert.Contains(t, body, "lobsim_last_trade_price 105")
	assert.Contains(t, body, "lobsim_cancels_total 1")
	assert.Contains(t, body, "lobsim_price_clips_total 1")
	assert.Contains(t, body, `lobsim_profit_total{strategy="ZIP"} 12`)
	assert.Contains(t, body, `lobsim_orderbook_depth{side="ask"} 4`)
	assert.Contains(t, body, `lobsim_orderbook_depth{side="bid"} 3`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Tick(1)
	m.Quote("ZIC")
	m.Trade(1)
	m.Cancel()
	m.Clip()
	m.Profit("AA", 3)
	m.Depth(1, 1)
}

func TestMetrics_Gather(t *testing.T) {
	m := New("lobsim")
	m.Trade(99)
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["lobsim_trades_total"])
	assert.True(t, names["lobsim_last_trade_price"])
}
