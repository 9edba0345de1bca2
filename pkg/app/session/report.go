package session

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/lobsim/pkg/app/trader"
)

// KindStats aggregates the traders of one strategy.
type KindStats struct {
	Kind       trader.Kind     `json:"kind"`
	N          int             `json:"n"`
	BalanceSum int64           `json:"balanceSum"`
	AvgProfit  decimal.Decimal `json:"avgProfit"`
	Trades     int             `json:"trades"`
}

// Report summarises a session at a point in time.
type Report struct {
	SessionID string      `json:"sessionId"`
	Time      float64     `json:"time"`
	Ticks     int         `json:"ticks"`
	Quotes    int         `json:"quotes"`
	Trades    int         `json:"trades"`
	Kinds     []KindStats `json:"kinds"` // sorted by kind
	BestBid   *int64      `json:"bestBid"`
	BestAsk   *int64      `json:"bestAsk"`
	StateHash string      `json:"stateHash"`
}

// Report builds the per-strategy summary for time now.
func (s *Session) Report(now float64) Report {
	byKind := make(map[trader.Kind]*KindStats)
	for _, a := range s.roster.Agents() {
		st, ok := byKind[a.Kind]
		if !ok {
			st = &KindStats{Kind: a.Kind}
			byKind[a.Kind] = st
		}
		st.N++
		st.BalanceSum += a.Balance
		st.Trades += a.NTrades
	}

	kinds := make([]KindStats, 0, len(byKind))
	for _, st := range byKind {
		st.AvgProfit = decimal.NewFromInt(st.BalanceSum).Div(decimal.NewFromInt(int64(st.N)))
		kinds = append(kinds, *st)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })

	view := s.ex.Publish(now)
	hash := s.ex.StateHash()
	return Report{
		SessionID: s.id,
		Time:      now,
		Ticks:     s.ticks,
		Quotes:    s.quotes,
		Trades:    len(view.Trades()),
		Kinds:     kinds,
		BestBid:   view.Bids.Best,
		BestAsk:   view.Asks.Best,
		StateHash: "0x" + hex.EncodeToString(hash[:]),
	}
}

// BestKind returns the strategy with the highest average balance. Ties go to
// the kind that sorts first.
func (r Report) BestKind() (trader.Kind, bool) {
	if len(r.Kinds) == 0 {
		return "", false
	}
	best := r.Kinds[0]
	for _, k := range r.Kinds[1:] {
		if k.AvgProfit.GreaterThan(best.AvgProfit) {
			best = k
		}
	}
	return best.Kind, true
}

// Row flattens the report into one CSV row: session, time, then
// kind, balance sum, count, average for each kind, then best bid and ask
// ("N" when a side is empty).
func (r Report) Row() []string {
	row := []string{r.SessionID, fmt.Sprintf("%06d", int64(r.Time))}
	for _, k := range r.Kinds {
		row = append(row,
			string(k.Kind),
			strconv.FormatInt(k.BalanceSum, 10),
			strconv.Itoa(k.N),
			k.AvgProfit.StringFixed(6),
		)
	}
	for _, best := range []*int64{r.BestBid, r.BestAsk} {
		if best == nil {
			row = append(row, "N")
		} else {
			row = append(row, strconv.FormatInt(*best, 10))
		}
	}
	return row
}
