package trader

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

var (
	ErrNegativeProfit  = errors.New("negative profit")
	ErrNoCustomerOrder = errors.New("no pending customer order")
)

// Response to a new customer order.
type Response int

const (
	Proceed Response = iota
	RequestCancel
)

// Agent is a trading agent: the state shared by every strategy plus the
// strategy itself.
type Agent struct {
	ID            string
	Kind          Kind
	Balance       int64
	Blotter       []exchange.Trade
	NTrades       int
	ProfitPerTime float64
	Birth         float64

	strategy   Strategy
	order      *orderbook.Order // pending customer order, capacity one
	lastQuote  *orderbook.Order
	liveQuotes int
}

// NewAgent builds an agent. Strategies that draw learning parameters at
// birth take them from rng.
func NewAgent(id string, kind Kind, birth float64, p market.Params, rng *rand.Rand) (*Agent, error) {
	s, err := newStrategy(kind, p, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: id, Kind: kind, Birth: birth, strategy: s}, nil
}

func (a *Agent) String() string {
	return fmt.Sprintf("[TID %s type %s balance %d blotter %d norders %d n_trades %d profitpertime %f]",
		a.ID, a.Kind, a.Balance, len(a.Blotter), a.pending(), a.NTrades, a.ProfitPerTime)
}

func (a *Agent) pending() int {
	if a.order != nil {
		return 1
	}
	return 0
}

// AssignCustomerOrder replaces the pending customer order. RequestCancel
// asks the caller to pull the stale quote from the exchange.
func (a *Agent) AssignCustomerOrder(o orderbook.Order) Response {
	o.Owner = a.ID
	a.order = &o
	if a.liveQuotes > 0 {
		return RequestCancel
	}
	return Proceed
}

// CustomerOrder returns the pending customer order.
func (a *Agent) CustomerOrder() (orderbook.Order, bool) {
	if a.order == nil {
		return orderbook.Order{}, false
	}
	return *a.order, true
}

// LastQuote returns the last quote the agent produced.
func (a *Agent) LastQuote() (orderbook.Order, bool) {
	if a.lastQuote == nil {
		return orderbook.Order{}, false
	}
	return *a.lastQuote, true
}

// HasLiveQuote reports whether the agent has a quote resting at the exchange.
func (a *Agent) HasLiveQuote() bool { return a.liveQuotes > 0 }

// QuoteSent marks the last quote as live on the exchange.
func (a *Agent) QuoteSent() { a.liveQuotes = 1 }

// QuoteCancelled marks the agent as having nothing resting.
func (a *Agent) QuoteCancelled() { a.liveQuotes = 0 }

// GetQuote asks the strategy for a quote against the pending customer
// order. It returns false when there is no order or the strategy passes.
func (a *Agent) GetQuote(now, countdown float64, view *exchange.PublicView, rng *rand.Rand) (orderbook.Order, bool) {
	price, ok := a.strategy.Quote(QuoteRequest{
		Now:       now,
		Countdown: countdown,
		Order:     a.order,
		View:      view,
		Rng:       rng,
	})
	if !ok || a.order == nil {
		return orderbook.Order{}, false
	}
	q := orderbook.Order{
		Owner: a.ID,
		Side:  a.order.Side,
		Price: price,
		Qty:   a.order.Qty,
		Time:  now,
		ID:    orderbook.Unassigned,
	}
	a.lastQuote = &q
	return q, true
}

// OnMarketEvent lets the strategy learn from the latest snapshot.
func (a *Agent) OnMarketEvent(now float64, view *exchange.PublicView, trade *exchange.Trade, rng *rand.Rand) {
	a.strategy.Respond(MarketEvent{Now: now, View: view, Trade: trade, Rng: rng})
}

// Settle books a trade against the pending customer order and returns
// the realized profit.
func (a *Agent) Settle(t exchange.Trade, now float64) (int64, error) {
	if a.order == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoCustomerOrder, a.ID)
	}
	var profit int64
	if a.order.Side == orderbook.Bid {
		profit = a.order.Price - t.Price
	} else {
		profit = t.Price - a.order.Price
	}
	if profit < 0 {
		return profit, fmt.Errorf("%w: %s limit %d trade %d", ErrNegativeProfit, a.ID, a.order.Price, t.Price)
	}
	a.Blotter = append(a.Blotter, t)
	a.Balance += profit
	a.NTrades++
	if elapsed := now - a.Birth; elapsed > 0 {
		a.ProfitPerTime = float64(a.Balance) / elapsed
	}
	a.order = nil
	a.liveQuotes = 0
	return profit, nil
}

// Summary is a read-only digest of an agent for reports and the API.
type Summary struct {
	ID            string  `json:"id"`
	Kind          Kind    `json:"kind"`
	Balance       int64   `json:"balance"`
	NTrades       int     `json:"nTrades"`
	ProfitPerTime float64 `json:"profitPerTime"`
	HasOrder      bool    `json:"hasOrder"`
	LiveQuote     bool    `json:"liveQuote"`
}

func (a *Agent) Summary() Summary {
	return Summary{
		ID:            a.ID,
		Kind:          a.Kind,
		Balance:       a.Balance,
		NTrades:       a.NTrades,
		ProfitPerTime: a.ProfitPerTime,
		HasOrder:      a.order != nil,
		LiveQuote:     a.liveQuotes > 0,
	}
}
