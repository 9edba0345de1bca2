package trader

import (
	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

// giveaway quotes its limit price.
type giveaway struct{}

func (giveaway) Quote(req QuoteRequest) (int64, bool) {
	if req.Order == nil {
		return 0, false
	}
	return req.Order.Price, true
}

func (giveaway) Respond(MarketEvent) {}

// zic draws uniformly between the stub quote of its side and the limit,
// so it never quotes through the limit.
type zic struct{}

func (zic) Quote(req QuoteRequest) (int64, bool) {
	if req.Order == nil {
		return 0, false
	}
	limit := req.Order.Price
	var lo, hi int64
	if req.Order.Side == orderbook.Bid {
		lo, hi = req.View.Bids.Worst, limit
	} else {
		lo, hi = limit, req.View.Asks.Worst
	}
	if hi <= lo {
		return limit, true
	}
	return lo + req.Rng.Int63n(hi-lo+1), true
}

func (zic) Respond(MarketEvent) {}

// shaver improves the best on its own side by one tick.
type shaver struct {
	tick int64
}

func (s shaver) Quote(req QuoteRequest) (int64, bool) {
	if req.Order == nil {
		return 0, false
	}
	return shave(req.Order, req.View, s.tick), true
}

func (shaver) Respond(MarketEvent) {}

const sniperLurk = 0.2

// sniper waits until the last fifth of the session, then shaves by an
// amount that grows as the clock runs out.
type sniper struct {
	tick int64
}

func (s sniper) Quote(req QuoteRequest) (int64, bool) {
	if req.Order == nil || req.Countdown > sniperLurk {
		return 0, false
	}
	amount := int64(1 / (0.01 + req.Countdown/(3*sniperLurk)))
	return shave(req.Order, req.View, amount*s.tick), true
}

func (sniper) Respond(MarketEvent) {}

// shave moves amount price units inside the best on the order's side, never past
// the limit. An empty side yields its stub quote.
func shave(o *orderbook.Order, view *exchange.PublicView, amount int64) int64 {
	limit := o.Price
	if o.Side == orderbook.Bid {
		best, ok := view.Bids.BestPrice()
		if !ok {
			return view.Bids.Worst
		}
		return min(best+amount, limit)
	}
	best, ok := view.Asks.BestPrice()
	if !ok {
		return view.Asks.Worst
	}
	return max(best-amount, limit)
}
