package trader

import (
	"math"

	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

const (
	gdxGamma    = 0.1
	gdxHoldings = 10
	gdxOps      = 10
)

// gdxStrategy is Tesauro and Bredin's GD-eXtended: belief-based dynamic
// programming over remaining holdings and offer operations.
type gdxStrategy struct {
	memo bookMemo

	job    orderbook.Side
	active bool
	limit  int64

	outstandingBids []orderbook.PriceLevel
	outstandingAsks []orderbook.PriceLevel
	acceptedBids    []int64
	acceptedAsks    []int64

	price     float64 // -1 until the first quote is priced
	firstTurn bool
	values    [gdxHoldings][gdxOps]float64
}

func newGDX() *gdxStrategy {
	return &gdxStrategy{price: -1, firstTurn: true}
}

// beliefBuy estimates the probability a bid at price is accepted.
func (g *gdxStrategy) beliefBuy(price float64) float64 {
	var acceptedLower, asksLower, unacceptedGreater int
	for _, p := range g.acceptedBids {
		if float64(p) <= price {
			acceptedLower++
		}
	}
	for _, lvl := range g.outstandingAsks {
		if float64(lvl.Price) <= price {
			asksLower++
		}
	}
	for _, lvl := range g.outstandingBids {
		if float64(lvl.Price) >= price {
			unacceptedGreater++
		}
	}
	total := acceptedLower + asksLower + unacceptedGreater
	if total == 0 {
		return 0
	}
	return float64(acceptedLower+asksLower) / float64(total)
}

// beliefSell estimates the probability an ask at price is accepted.
func (g *gdxStrategy) beliefSell(price float64) float64 {
	var acceptedGreater, bidsGreater, unacceptedLower int
	for _, p := range g.acceptedAsks {
		if float64(p) >= price {
			acceptedGreater++
		}
	}
	for _, lvl := range g.outstandingBids {
		if float64(lvl.Price) >= price {
			bidsGreater++
		}
	}
	for _, lvl := range g.outstandingAsks {
		if float64(lvl.Price) <= price {
			unacceptedLower++
		}
	}
	total := acceptedGreater + bidsGreater + unacceptedLower
	if total == 0 {
		return 0
	}
	return float64(acceptedGreater+bidsGreater) / float64(total)
}

// expected is the one-step value of offering at price with m holdings and
// n offer operations left.
func (g *gdxStrategy) expected(belief, payoff float64, m, n int) float64 {
	return belief*(payoff+gdxGamma*g.values[m-1][n-1]) + (1 - belief*gdxGamma*g.values[m][n-1])
}

// calcPBid does a coarse search in steps of 2, then a fine search in steps
// of 0.05 above the runner-up.
func (g *gdxStrategy) calcPBid(m, n int) float64 {
	limit := float64(g.limit)
	var bestReturn, bestBid, secondBid float64

	for x := int64(0); x < g.limit/2; x++ {
		i := float64(2 * x)
		v := g.expected(g.beliefBuy(i), limit-i, m, n)
		if v > bestReturn {
			secondBid = bestBid
			bestReturn = v
			bestBid = i
		}
	}
	if secondBid > bestBid {
		secondBid, bestBid = bestBid, secondBid
	}

	base := secondBid
	for x := int(base); x < int(bestBid); x++ {
		p := float64(x)*0.05 + base
		v := g.expected(g.beliefBuy(p), limit-p, m, n)
		if v > bestReturn {
			bestReturn = v
			bestBid = p
		}
	}
	return bestBid
}

func (g *gdxStrategy) calcPAsk(m, n int) float64 {
	limit := float64(g.limit)
	var bestReturn float64
	bestAsk, secondAsk := limit, limit

	for x := int64(0); x < g.limit/2; x++ {
		j := float64(2*x) + limit
		v := g.expected(g.beliefSell(j), j-limit, m, n)
		if v > bestReturn {
			secondAsk = bestAsk
			bestReturn = v
			bestAsk = j
		}
	}
	if secondAsk > bestAsk {
		secondAsk, bestAsk = bestAsk, secondAsk
	}

	base := secondAsk
	for x := int(base); x < int(bestAsk); x++ {
		p := float64(x)*0.05 + base
		v := g.expected(g.beliefSell(p), p-limit, m, n)
		if v > bestReturn {
			bestReturn = v
			bestAsk = p
		}
	}
	return bestAsk
}

func (g *gdxStrategy) calcP(m, n int) float64 {
	if g.job == orderbook.Bid {
		return g.calcPBid(m, n)
	}
	return g.calcPAsk(m, n)
}

func (g *gdxStrategy) Quote(req QuoteRequest) (int64, bool) {
	if req.Order == nil {
		g.active = false
		return 0, false
	}
	g.active = true
	g.limit = req.Order.Price
	g.job = req.Order.Side
	g.price = g.calcP(gdxHoldings-1, gdxOps-1)

	if g.firstTurn || g.price == -1 {
		return 0, false
	}
	if g.job == orderbook.Bid {
		return min(int64(math.Floor(g.price)), g.limit), true
	}
	return max(int64(math.Ceil(g.price)), g.limit), true
}

func (g *gdxStrategy) Respond(ev MarketEvent) {
	prevBid, prevAsk := g.memo.bid, g.memo.ask
	bidEv, askEv := g.memo.observe(ev.View, ev.Trade)

	g.outstandingBids = ev.View.Bids.LOB
	g.outstandingAsks = ev.View.Asks.LOB

	// only a taken best that leaves the half non-empty is counted as accepted
	if bidEv == Taken {
		g.acceptedBids = append(g.acceptedBids, prevBid.price)
	}
	if askEv == Taken {
		g.acceptedAsks = append(g.acceptedAsks, prevAsk.price)
	}

	if g.firstTurn {
		g.firstTurn = false
		if g.job == orderbook.Bid || g.job == orderbook.Ask {
			for n := 1; n < gdxOps; n++ {
				for m := 1; m < gdxHoldings; m++ {
					g.values[m][n] = g.calcP(m, n)
				}
			}
		}
	}
}
