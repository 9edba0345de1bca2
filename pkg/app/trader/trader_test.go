package trader

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

func customer(side orderbook.Side, limit int64) orderbook.Order {
	return orderbook.Order{Side: side, Price: limit, Qty: 1, ID: orderbook.Unassigned}
}

func quote(owner string, side orderbook.Side, price int64, tm float64) orderbook.Order {
	return orderbook.Order{Owner: owner, Side: side, Price: price, Qty: 1, Time: tm, ID: orderbook.Unassigned}
}

func newTestAgent(t *testing.T, id string, kind Kind, rng *rand.Rand) *Agent {
	t.Helper()
	a, err := NewAgent(id, kind, 0, market.Default(), rng)
	require.NoError(t, err)
	return a
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("zip")
	require.NoError(t, err)
	assert.Equal(t, ZIP, k)

	_, err = ParseKind("MOMENTUM")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = NewAgent("B00", Kind("NOPE"), 0, market.Default(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestAgent_AssignAndSettle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := newTestAgent(t, "B00", Giveaway, rng)

	assert.Equal(t, Proceed, a.AssignCustomerOrder(customer(orderbook.Bid, 100)))
	q, ok := a.GetQuote(1, 0.9, &exchange.PublicView{}, rng)
	require.True(t, ok)
	assert.Equal(t, int64(100), q.Price)
	assert.Equal(t, "B00", q.Owner)
	a.QuoteSent()

	// a fresh customer order while a quote rests asks for a cancel
	assert.Equal(t, RequestCancel, a.AssignCustomerOrder(customer(orderbook.Bid, 110)))
	a.QuoteCancelled()
	assert.False(t, a.HasLiveQuote())

	profit, err := a.Settle(exchange.Trade{Time: 5, Price: 90, Qty: 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20), profit)
	assert.Equal(t, int64(20), a.Balance)
	assert.Equal(t, 1, a.NTrades)
	assert.InDelta(t, 4.0, a.ProfitPerTime, 1e-9)
	_, pending := a.CustomerOrder()
	assert.False(t, pending)
	assert.Len(t, a.Blotter, 1)

	_, err = a.Settle(exchange.Trade{Time: 6, Price: 90, Qty: 1}, 6)
	assert.ErrorIs(t, err, ErrNoCustomerOrder)
}

func TestAgent_NegativeProfitIsFatal(t *testing.T) {
	a := newTestAgent(t, "S00", Giveaway, rand.New(rand.NewSource(1)))
	a.AssignCustomerOrder(customer(orderbook.Ask, 100))
	profit, err := a.Settle(exchange.Trade{Price: 90, Qty: 1}, 1)
	assert.ErrorIs(t, err, ErrNegativeProfit)
	assert.Equal(t, int64(-10), profit)
	assert.Zero(t, a.Balance)
}

func TestAgent_NoOrderNoQuote(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	view := exchange.New(market.Default()).Publish(0)
	for _, k := range Kinds {
		a := newTestAgent(t, "B00", k, rng)
		_, ok := a.GetQuote(0, 1, &view, rng)
		assert.False(t, ok, "%s quoted without a customer order", k)
	}
}

func TestZIC_StaysWithinLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := market.Default()
	view := exchange.New(p).Publish(0)

	buyer := newTestAgent(t, "B00", ZIC, rng)
	buyer.AssignCustomerOrder(customer(orderbook.Bid, 80))
	seller := newTestAgent(t, "S00", ZIC, rng)
	seller.AssignCustomerOrder(customer(orderbook.Ask, 80))

	for i := 0; i < 1000; i++ {
		q, ok := buyer.GetQuote(0, 1, &view, rng)
		require.True(t, ok)
		if q.Price < p.MinPrice || q.Price > 80 {
			t.Fatalf("bid %d outside [%d, 80]", q.Price, p.MinPrice)
		}
		q, ok = seller.GetQuote(0, 1, &view, rng)
		require.True(t, ok)
		if q.Price < 80 || q.Price > p.MaxPrice {
			t.Fatalf("ask %d outside [80, %d]", q.Price, p.MaxPrice)
		}
	}
}

func TestShaver(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ex := exchange.New(market.Default())
	view := ex.Publish(0)

	a := newTestAgent(t, "B00", Shaver, rng)
	a.AssignCustomerOrder(customer(orderbook.Bid, 80))
	q, _ := a.GetQuote(0, 1, &view, rng)
	assert.Equal(t, view.Bids.Worst, q.Price, "empty side quotes the stub")

	_, _ = ex.ProcessOrder(1, quote("B01", orderbook.Bid, 50, 1))
	view = ex.Publish(1)
	q, _ = a.GetQuote(1, 1, &view, rng)
	assert.Equal(t, int64(51), q.Price)

	_, _ = ex.ProcessOrder(2, quote("B01", orderbook.Bid, 80, 2))
	view = ex.Publish(2)
	q, _ = a.GetQuote(2, 1, &view, rng)
	assert.Equal(t, int64(80), q.Price, "clamped to limit")

	s := newTestAgent(t, "S00", Shaver, rng)
	s.AssignCustomerOrder(customer(orderbook.Ask, 40))
	q, _ = s.GetQuote(2, 1, &view, rng)
	assert.Equal(t, view.Asks.Worst, q.Price)
}

func TestSniper(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ex := exchange.New(market.Default())
	_, _ = ex.ProcessOrder(1, quote("B01", orderbook.Bid, 50, 1))
	view := ex.Publish(1)

	a := newTestAgent(t, "B00", Sniper, rng)
	a.AssignCustomerOrder(customer(orderbook.Bid, 80))

	_, ok := a.GetQuote(1, 0.5, &view, rng)
	assert.False(t, ok, "lurks early in the session")

	q, ok := a.GetQuote(1, 0.1, &view, rng)
	require.True(t, ok)
	assert.Equal(t, int64(55), q.Price)

	q, ok = a.GetQuote(1, 0, &view, rng)
	require.True(t, ok)
	assert.Equal(t, int64(80), q.Price)
}

func TestShaverAndSniper_MoveByTickSize(t *testing.T) {
	p := market.Params{MinPrice: 1, MaxPrice: 1000, TickSize: 5}
	rng := rand.New(rand.NewSource(1))
	ex := exchange.New(p)
	_, _ = ex.ProcessOrder(1, quote("B01", orderbook.Bid, 50, 1))
	_, _ = ex.ProcessOrder(1, quote("S01", orderbook.Ask, 200, 1))
	view := ex.Publish(1)

	cases := []struct {
		kind      Kind
		side      orderbook.Side
		limit     int64
		countdown float64
		want      int64
	}{
		{Shaver, orderbook.Bid, 100, 1, 55},
		{Shaver, orderbook.Ask, 100, 1, 195},
		{Shaver, orderbook.Bid, 52, 1, 52},
		{Sniper, orderbook.Bid, 100, 0.1, 75},
		{Sniper, orderbook.Ask, 100, 0.1, 175},
	}
	for _, c := range cases {
		a, err := NewAgent("X00", c.kind, 0, p, rng)
		require.NoError(t, err)
		a.AssignCustomerOrder(customer(c.side, c.limit))
		q, ok := a.GetQuote(1, c.countdown, &view, rng)
		require.True(t, ok)
		assert.Equal(t, c.want, q.Price, "%s %s limit %d", c.kind, c.side, c.limit)
	}
}

func TestZIP_BuyerCutsPriceAfterCheaperTrade(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ex := exchange.New(market.Default())
	z := newTestAgent(t, "B00", ZIP, rng)
	z.AssignCustomerOrder(customer(orderbook.Bid, 200))

	view := ex.Publish(0)
	first, ok := z.GetQuote(0, 1, &view, rng)
	require.True(t, ok)
	require.Less(t, first.Price, int64(200))
	require.GreaterOrEqual(t, first.Price, int64(130))

	_, _ = ex.ProcessOrder(1, quote("B01", orderbook.Bid, 60, 1))
	view = ex.Publish(1)
	z.OnMarketEvent(1, &view, nil, rng)

	trade, _ := ex.ProcessOrder(2, quote("S01", orderbook.Ask, 60, 2))
	require.NotNil(t, trade)
	view = ex.Publish(2)
	z.OnMarketEvent(2, &view, trade, rng)

	second, ok := z.GetQuote(3, 0.9, &view, rng)
	require.True(t, ok)
	assert.Less(t, second.Price, first.Price)
}

func TestZIP_RespondsToBookEvents(t *testing.T) {
	type step struct {
		owner string
		side  orderbook.Side
		price int64
	}
	tests := []struct {
		name  string
		side  orderbook.Side
		limit int64
		steps []step
		dir   int // sign of the expected price move
	}{
		{"seller raises after a deal above its price", orderbook.Ask, 50,
			[]step{{"X01", orderbook.Ask, 100}, {"X02", orderbook.Bid, 100}}, 1},
		{"seller ignores a trade it could not have made", orderbook.Ask, 50,
			[]step{{"X02", orderbook.Bid, 60}, {"X01", orderbook.Ask, 60}}, 0},
		{"undercut seller follows the best bid", orderbook.Ask, 50,
			[]step{{"X02", orderbook.Bid, 40}, {"X01", orderbook.Ask, 52}}, -1},
		{"undercut seller with no bids aims at the stub", orderbook.Ask, 50,
			[]step{{"X01", orderbook.Ask, 70}}, 1},
		{"outbid buyer follows the best ask", orderbook.Bid, 100,
			[]step{{"X01", orderbook.Ask, 70}, {"X02", orderbook.Bid, 60}}, 1},
		{"outbid buyer with no asks aims at the stub", orderbook.Bid, 100,
			[]step{{"X02", orderbook.Bid, 60}}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			ex := exchange.New(market.Default())
			z := &zipStrategy{ca: 0.05, cr: 0.05, beta: 0.5, marginBuy: -0.5, marginSell: 0.5}

			o := customer(tt.side, tt.limit)
			view := ex.Publish(0)
			before, ok := z.Quote(QuoteRequest{Order: &o, View: &view, Rng: rng})
			require.True(t, ok)

			for i, s := range tt.steps {
				now := float64(i + 1)
				trade, err := ex.ProcessOrder(now, quote(s.owner, s.side, s.price, now))
				require.NoError(t, err)
				view = ex.Publish(now)
				z.Respond(MarketEvent{Now: now, View: &view, Trade: trade, Rng: rng})
			}

			after, ok := z.Quote(QuoteRequest{Order: &o, View: &view, Rng: rng})
			require.True(t, ok)
			switch tt.dir {
			case 1:
				assert.Greater(t, after, before)
			case -1:
				assert.Less(t, after, before)
			default:
				assert.Equal(t, before, after)
			}
			if tt.side == orderbook.Ask {
				assert.Greater(t, after, tt.limit)
			} else {
				assert.Less(t, after, tt.limit)
			}
		})
	}
}

func TestZIP_MarginsStartOnTheSaneSide(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		z := newZIP(rng)
		assert.Less(t, z.marginBuy, 0.0)
		assert.Greater(t, z.marginSell, 0.0)
		assert.GreaterOrEqual(t, z.beta, 0.1)
		assert.LessOrEqual(t, z.beta, 0.5)
		assert.LessOrEqual(t, z.momentum, 0.1)
	}
}

// drive feeds a stream of crossing trades into the given agents and
// checks every quote they produce against their limits.
func drive(t *testing.T, rng *rand.Rand, agents map[*Agent]orderbook.Order, rounds int) {
	t.Helper()
	ex := exchange.New(market.Default())
	now := 0.0
	for i := 0; i < rounds; i++ {
		now++
		price := 50 + rng.Int63n(100)
		_, _ = ex.ProcessOrder(now, quote("X01", orderbook.Ask, price, now))
		view := ex.Publish(now)
		for a := range agents {
			a.OnMarketEvent(now, &view, nil, rng)
		}

		now++
		trade, err := ex.ProcessOrder(now, quote("X02", orderbook.Bid, price, now))
		require.NoError(t, err)
		view = ex.Publish(now)
		for a, o := range agents {
			a.OnMarketEvent(now, &view, trade, rng)
			q, ok := a.GetQuote(now, 0.5, &view, rng)
			if !ok {
				continue
			}
			if o.Side == orderbook.Bid && q.Price > o.Price {
				t.Fatalf("%s bid %d above limit %d", a.Kind, q.Price, o.Price)
			}
			if o.Side == orderbook.Ask && q.Price < o.Price {
				t.Fatalf("%s ask %d below limit %d", a.Kind, q.Price, o.Price)
			}
		}
	}
}

func TestAdaptiveStrategies_NeverQuoteThroughLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	agents := make(map[*Agent]orderbook.Order)
	for _, k := range []Kind{ZIP, AA, GDX} {
		b := newTestAgent(t, "B00", k, rng)
		s := newTestAgent(t, "S00", k, rng)
		bo, so := customer(orderbook.Bid, 120), customer(orderbook.Ask, 80)
		b.AssignCustomerOrder(bo)
		s.AssignCustomerOrder(so)
		agents[b], agents[s] = bo, so
	}
	drive(t, rng, agents, 60)
}

func TestAA_LearnsFromTrades(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := newAA(market.Default(), rng)
	assert.Equal(t, -2.0, a.theta)
	assert.LessOrEqual(t, a.buyR, 0.0)
	assert.GreaterOrEqual(t, a.buyR, -0.3)

	a.job = orderbook.Bid
	a.limit = 120
	for _, p := range []float64{100, 102, 98, 101, 99, 100} {
		a.prices = append(a.prices, p)
		if a.buyTarget == nil {
			v := p
			a.buyTarget = &v
		}
		a.calcEq()
		a.calcAlpha()
		a.calcTheta()
		a.calcRshout()
		a.calcAgg()
		a.calcTarget()
	}
	require.Len(t, a.eq, 6)
	assert.InDelta(t, 100.0, a.eq[len(a.eq)-1], 2.0)
	assert.GreaterOrEqual(t, a.theta, aaThetaMin)
	assert.LessOrEqual(t, a.theta, aaThetaMax)
	require.NotNil(t, a.buyTarget)
	assert.LessOrEqual(t, *a.buyTarget, 120.0)
}

func TestAA_SellerTargets(t *testing.T) {
	tests := []struct {
		name  string
		limit float64
	}{
		{"intramarginal", 80},
		{"extramarginal", 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAA(market.Default(), rand.New(rand.NewSource(9)))
			a.job = orderbook.Ask
			a.limit = tt.limit
			for _, p := range []float64{100, 102, 98, 101, 99, 100} {
				a.prices = append(a.prices, p)
				if a.sellTarget == nil {
					v := p
					a.sellTarget = &v
				}
				a.calcEq()
				a.calcAlpha()
				a.calcTheta()
				a.calcRshout()
				a.calcAgg()
				a.calcTarget()
			}
			require.NotNil(t, a.sellTarget)
			assert.True(t, finite(*a.sellTarget))
			assert.True(t, finite(a.rShout))
			assert.GreaterOrEqual(t, *a.sellTarget, tt.limit)
			assert.LessOrEqual(t, *a.sellTarget, a.marketMax)
			if tt.limit >= a.eq[len(a.eq)-1] {
				// a seller that cannot beat equilibrium has no shout to invert
				assert.Zero(t, a.rShout)
			}
		})
	}
}

func TestAA_NoQuoteBehindOwnSideBest(t *testing.T) {
	tests := []struct {
		name  string
		side  orderbook.Side
		limit int64
		want  bool
	}{
		{"bid limit under best bid", orderbook.Bid, 90, false},
		{"bid limit at best bid", orderbook.Bid, 100, false},
		{"bid limit above best bid", orderbook.Bid, 120, true},
		{"ask limit over best ask", orderbook.Ask, 130, false},
		{"ask limit at best ask", orderbook.Ask, 120, false},
		{"ask limit below best ask", orderbook.Ask, 110, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAA(market.Default(), rand.New(rand.NewSource(2)))
			a.memo.bid = bestQuote{price: 100, qty: 1, ok: true}
			a.memo.ask = bestQuote{price: 120, qty: 1, ok: true}
			o := customer(tt.side, tt.limit)
			q, ok := a.Quote(QuoteRequest{Order: &o, View: &exchange.PublicView{}})
			assert.Equal(t, tt.want, ok)
			if !ok {
				return
			}
			if tt.side == orderbook.Bid {
				assert.LessOrEqual(t, q, tt.limit)
			} else {
				assert.GreaterOrEqual(t, q, tt.limit)
			}
		})
	}
}

func TestAA_WeightedEquilibrium(t *testing.T) {
	a := newAA(market.Default(), rand.New(rand.NewSource(1)))
	a.prices = []float64{10, 10, 10}
	a.calcEq()
	assert.InDelta(t, 10.0, a.eq[0], 1e-9)

	a.prices = []float64{1000, 10, 20, 30, 40, 50}
	a.calcEq()
	var num, den float64
	for i, p := range []float64{10, 20, 30, 40, 50} {
		w := 1.0
		for j := 0; j < i; j++ {
			w *= 0.95
		}
		num += p * w
		den += w
	}
	assert.InDelta(t, num/den, a.eq[1], 1e-9)
}

func TestGDX_SilentOnFirstTurn(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ex := exchange.New(market.Default())
	g := newTestAgent(t, "B00", GDX, rng)
	g.AssignCustomerOrder(customer(orderbook.Bid, 100))

	view := ex.Publish(0)
	_, ok := g.GetQuote(0, 1, &view, rng)
	assert.False(t, ok)

	g.OnMarketEvent(0, &view, nil, rng)
	q, ok := g.GetQuote(1, 1, &view, rng)
	require.True(t, ok)
	assert.LessOrEqual(t, q.Price, int64(100))
}

func TestGDX_Beliefs(t *testing.T) {
	g := newGDX()
	assert.Zero(t, g.beliefBuy(50))

	g.acceptedBids = []int64{40, 60}
	g.outstandingAsks = []orderbook.PriceLevel{{Price: 45, Qty: 1}}
	g.outstandingBids = []orderbook.PriceLevel{{Price: 55, Qty: 1}}
	// accepted <= 50: 1, asks <= 50: 1, bids >= 50: 1
	assert.InDelta(t, 2.0/3.0, g.beliefBuy(50), 1e-9)

	g.acceptedAsks = []int64{70}
	// accepted >= 50: 1, bids >= 50: 1, asks <= 50: 1
	assert.InDelta(t, 2.0/3.0, g.beliefSell(50), 1e-9)
}

func TestGDX_ValueTableFilledOnFirstResponse(t *testing.T) {
	ex := exchange.New(market.Default())
	_, _ = ex.ProcessOrder(1, quote("B01", orderbook.Bid, 40, 1))
	_, _ = ex.ProcessOrder(1, quote("S01", orderbook.Ask, 60, 1))
	view := ex.Publish(1)

	g := newGDX()
	o := customer(orderbook.Bid, 100)
	_, ok := g.Quote(QuoteRequest{Now: 1, Countdown: 1, Order: &o, View: &view})
	require.False(t, ok)

	g.Respond(MarketEvent{Now: 1, View: &view})
	assert.False(t, g.firstTurn)
	for m := 1; m < gdxHoldings; m++ {
		for n := 1; n < gdxOps; n++ {
			assert.Greater(t, g.values[m][n], 0.0, "values[%d][%d]", m, n)
			assert.Less(t, g.values[m][n], 100.0, "values[%d][%d]", m, n)
		}
	}
	// the boundary row and column stay at zero
	assert.Zero(t, g.values[0][0])
	assert.Zero(t, g.values[5][0])
	assert.Zero(t, g.values[0][5])

	q, ok := g.Quote(QuoteRequest{Now: 2, Countdown: 0.9, Order: &o, View: &view})
	require.True(t, ok)
	assert.LessOrEqual(t, q, int64(100))
}
