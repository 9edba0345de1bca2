package trader

import (
	"math"
	"math/rand"

	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

// zipStrategy is Cliff's Zero-Intelligence-Plus margin learner. It keeps a
// separate margin for buying and selling, so the same agent can work
// either side.
type zipStrategy struct {
	memo bookMemo

	job    orderbook.Side // zero until the first order is worked
	active bool
	limit  int64
	price  int64

	beta       float64 // learning rate
	momentum   float64
	ca, cr     float64 // absolute / relative perturbation
	prevChange float64

	margin     float64
	marginBuy  float64
	marginSell float64
}

func newZIP(rng *rand.Rand) *zipStrategy {
	z := &zipStrategy{ca: 0.05, cr: 0.05}
	z.beta = 0.1 + 0.4*rng.Float64()
	z.momentum = 0.1 * rng.Float64()
	z.marginBuy = -1.0 * (0.05 + 0.3*rng.Float64())
	z.marginSell = 0.05 + 0.3*rng.Float64()
	return z
}

func (z *zipStrategy) Quote(req QuoteRequest) (int64, bool) {
	if req.Order == nil {
		z.active = false
		return 0, false
	}
	z.active = true
	z.limit = req.Order.Price
	z.job = req.Order.Side
	if z.job == orderbook.Bid {
		z.margin = z.marginBuy
	} else {
		z.margin = z.marginSell
	}
	z.price = int64(math.Round(float64(z.limit) * (1 + z.margin)))
	return z.price, true
}

func (z *zipStrategy) targetUp(price int64, rng *rand.Rand) int64 {
	abs := z.ca * rng.Float64()
	rel := float64(price) * (1.0 + z.cr*rng.Float64())
	return int64(math.Round(rel + abs))
}

func (z *zipStrategy) targetDown(price int64, rng *rand.Rand) int64 {
	abs := z.ca * rng.Float64()
	rel := float64(price) * (1.0 - z.cr*rng.Float64())
	return int64(math.Round(rel - abs))
}

func (z *zipStrategy) willingToTrade(price int64) bool {
	if !z.active {
		return false
	}
	if z.job == orderbook.Bid {
		return z.price >= price
	}
	return z.price <= price
}

// profitAlter moves the margin a damped step toward target. A step that
// would flip the margin to the wrong side of zero is dropped.
func (z *zipStrategy) profitAlter(target int64) {
	diff := float64(target - z.price)
	change := (1.0-z.momentum)*(z.beta*diff) + z.momentum*z.prevChange
	z.prevChange = change
	newMargin := (float64(z.price)+change)/float64(z.limit) - 1.0

	if z.job == orderbook.Bid {
		if newMargin < 0.0 {
			z.marginBuy = newMargin
			z.margin = newMargin
		}
	} else if newMargin > 0.0 {
		z.marginSell = newMargin
		z.margin = newMargin
	}
	z.price = int64(math.Round(float64(z.limit) * (1.0 + z.margin)))
}

func (z *zipStrategy) Respond(ev MarketEvent) {
	bidEv, askEv := z.memo.observe(ev.View, ev.Trade)
	deal := (bidEv.traded() || askEv.traded()) && ev.Trade != nil

	switch z.job {
	case orderbook.Ask:
		if deal {
			tp := ev.Trade.Price
			if z.price <= tp {
				z.profitAlter(z.targetUp(tp, ev.Rng))
			} else if askEv.traded() && z.active && !z.willingToTrade(tp) {
				z.profitAlter(z.targetDown(tp, ev.Rng))
			}
			return
		}
		bestAsk, ok := ev.View.Asks.BestPrice()
		if askEv == Improved && ok && z.price > bestAsk {
			if bestBid, ok := ev.View.Bids.BestPrice(); ok {
				z.profitAlter(z.targetUp(bestBid, ev.Rng))
			} else {
				z.profitAlter(ev.View.Asks.Worst)
			}
		}

	case orderbook.Bid:
		if deal {
			tp := ev.Trade.Price
			if z.price >= tp {
				z.profitAlter(z.targetDown(tp, ev.Rng))
			} else if bidEv.traded() && z.active && !z.willingToTrade(tp) {
				z.profitAlter(z.targetUp(tp, ev.Rng))
			}
			return
		}
		bestBid, ok := ev.View.Bids.BestPrice()
		if bidEv == Improved && ok && z.price < bestBid {
			if bestAsk, ok := ev.View.Asks.BestPrice(); ok {
				z.profitAlter(z.targetDown(bestAsk, ev.Rng))
			} else {
				z.profitAlter(ev.View.Bids.Worst)
			}
		}
	}
}
