package trader

import (
	"math"
	"math/rand"

	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

// Adaptive-Aggressiveness constants, after Vytelingum's thesis.
const (
	aaShoutChangeRel = 0.05
	aaShoutChangeAbs = 0.05
	aaDecay          = 0.95 // moving-average weight decay
	aaWindow         = 5
	aaOfferChange    = 3.0
	aaThetaMax       = 2.0
	aaThetaMin       = -8.0
	aaGamma          = 2.0
)

type aaStrategy struct {
	memo bookMemo

	job    orderbook.Side
	active bool
	limit  float64

	shortRate float64
	longRate  float64
	theta     float64
	marketMax float64
	weights   [aaWindow]float64

	prices []float64 // trade prices seen so far
	eq     []float64 // equilibrium estimates
	alpha  []float64 // Smith's alpha series

	rShout     float64
	buyTarget  *float64
	sellTarget *float64
	buyR       float64
	sellR      float64
}

func newAA(p market.Params, rng *rand.Rand) *aaStrategy {
	a := &aaStrategy{
		theta:     -2.0,
		marketMax: float64(p.MaxPrice),
	}
	a.shortRate = 0.1 + 0.4*rng.Float64()
	a.longRate = 0.1 + 0.4*rng.Float64()
	a.buyR = -1.0 * (0.3 * rng.Float64())
	a.sellR = -1.0 * (0.3 * rng.Float64())
	for i := range a.weights {
		a.weights[i] = math.Pow(aaDecay, float64(i))
	}
	return a
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (a *aaStrategy) calcEq() {
	n := len(a.prices)
	if n == 0 {
		return
	}
	if n < aaWindow {
		var sum float64
		for _, p := range a.prices {
			sum += p
		}
		a.eq = append(a.eq, sum/float64(n))
		return
	}
	var num, den float64
	for i, p := range a.prices[n-aaWindow:] {
		num += p * a.weights[i]
		den += a.weights[i]
	}
	a.eq = append(a.eq, num/den)
}

func (a *aaStrategy) calcAlpha() {
	last := a.eq[len(a.eq)-1]
	var sum float64
	for _, p := range a.eq {
		sum += (p - last) * (p - last)
	}
	alpha := math.Sqrt(sum / float64(len(a.eq)))
	a.alpha = append(a.alpha, alpha/last)
}

func (a *aaStrategy) calcTheta() {
	lo, hi := a.alpha[0], a.alpha[0]
	for _, v := range a.alpha {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	alphaRange := 0.4
	if lo != hi {
		alphaRange = (a.alpha[len(a.alpha)-1] - lo) / (hi - lo)
	}
	thetaRange := aaThetaMax - aaThetaMin
	desired := aaThetaMin + thetaRange*(1-alphaRange*math.Exp(aaGamma*(alphaRange-1)))
	a.theta += a.longRate * (desired - a.theta)
}

// calcRshout inverts the target curve to find the aggressiveness that
// would have produced the current target. Non-finite results keep the
// previous value.
func (a *aaStrategy) calcRshout() {
	p := a.eq[len(a.eq)-1]
	l := a.limit
	theta := a.theta
	r := a.rShout

	switch a.job {
	case orderbook.Bid:
		bt := *a.buyTarget
		switch {
		case l <= p:
			r = 0.0
		case bt > p:
			r = math.Log((bt-p)*(math.Exp(theta)-1)/(l-p)+1) / theta
		default:
			r = math.Log((1-bt/p)*(math.Exp(theta)-1)+1) / theta
		}
	case orderbook.Ask:
		st := *a.sellTarget
		switch {
		case l >= p:
			r = 0.0
		case st > p:
			r = math.Log((st-p)*(math.Exp(theta)-1)/(a.marketMax-p)+1) / theta
		default:
			x := (st - l) / (p - l)
			r = math.Log((1-x)*(math.Exp(theta)-1)+1) / theta
		}
	}
	if finite(r) {
		a.rShout = r
	}
}

func (a *aaStrategy) calcAgg() {
	last := a.prices[len(a.prices)-1]
	more := func() float64 { return (1+aaShoutChangeRel)*a.rShout + aaShoutChangeAbs }
	less := func() float64 { return (1-aaShoutChangeRel)*a.rShout - aaShoutChangeAbs }

	switch a.job {
	case orderbook.Bid:
		delta := less()
		if *a.buyTarget >= last {
			delta = more()
		}
		a.buyR += a.shortRate * (delta - a.buyR)
	case orderbook.Ask:
		delta := less()
		if *a.sellTarget > last {
			delta = more()
		}
		a.sellR += a.shortRate * (delta - a.sellR)
	}
}

func (a *aaStrategy) calcTarget() {
	if a.job != orderbook.Bid && a.job != orderbook.Ask {
		return
	}
	l := a.limit
	var p float64
	switch {
	case len(a.eq) > 0:
		p = a.eq[len(a.eq)-1]
		if l == p {
			p *= 1.000001
		}
	case a.job == orderbook.Bid:
		p = l - l*0.2
	default:
		p = l + l*0.2
	}
	theta := a.theta

	thetaBar := (theta*l - theta*p) / p
	if thetaBar == 0 {
		thetaBar = 0.0001
	}
	if math.Exp(thetaBar)-1 == 0 {
		thetaBar = 0.0001
	}

	if a.job == orderbook.Bid {
		r := a.buyR
		minus := (math.Exp(-r*theta) - 1) / (math.Exp(theta) - 1)
		plus := (math.Exp(r*theta) - 1) / (math.Exp(theta) - 1)
		bar := (math.Exp(-r*thetaBar) - 1) / (math.Exp(thetaBar) - 1)
		var t float64
		switch {
		case l <= p && r >= 0:
			t = l
		case l <= p:
			t = l * (1 - minus)
		case r >= 0:
			t = p + (l-p)*plus
		default:
			t = p * (1 - bar)
		}
		if !finite(t) {
			return
		}
		t = math.Min(t, l)
		a.buyTarget = &t
		return
	}

	r := a.sellR
	minus := (math.Exp(-r*theta) - 1) / (math.Exp(theta) - 1)
	plus := (math.Exp(r*theta) - 1) / (math.Exp(theta) - 1)
	bar := (math.Exp(-r*thetaBar) - 1) / (math.Exp(thetaBar) - 1)
	var t float64
	switch {
	case l >= p && r >= 0:
		t = l
	case l >= p:
		t = l + (a.marketMax-l)*minus
	case r >= 0:
		t = l + (p-l)*(1-plus)
	default:
		t = p + (a.marketMax-p)*bar
	}
	if !finite(t) {
		return
	}
	t = math.Max(t, l)
	a.sellTarget = &t
}

func (a *aaStrategy) Quote(req QuoteRequest) (int64, bool) {
	if req.Order == nil {
		a.active = false
		return 0, false
	}
	a.active = true
	a.limit = float64(req.Order.Price)
	a.job = req.Order.Side
	a.calcTarget()

	oBid := 0.0
	if a.memo.bid.ok {
		oBid = float64(a.memo.bid.price)
	}
	oAsk := a.marketMax
	if a.memo.ask.ok {
		oAsk = float64(a.memo.ask.price)
	}

	var quote float64
	if a.job == orderbook.Bid {
		if a.limit <= oBid || a.buyTarget == nil {
			return 0, false
		}
		switch {
		case len(a.prices) > 0:
			oAskPlus := (1+aaShoutChangeRel)*oAsk + aaShoutChangeAbs
			quote = oBid + (math.Min(a.limit, oAskPlus)-oBid)/aaOfferChange
		case oAsk <= *a.buyTarget:
			quote = oAsk
		default:
			quote = oBid + (*a.buyTarget-oBid)/aaOfferChange
		}
	} else {
		if a.limit >= oAsk || a.sellTarget == nil {
			return 0, false
		}
		switch {
		case len(a.prices) > 0:
			oBidMinus := (1-aaShoutChangeRel)*oBid - aaShoutChangeAbs
			quote = oAsk - (oAsk-math.Max(a.limit, oBidMinus))/aaOfferChange
		case oBid >= *a.sellTarget:
			quote = oBid
		default:
			quote = oAsk - (oAsk-*a.sellTarget)/aaOfferChange
		}
	}
	if !finite(quote) {
		return 0, false
	}
	return int64(math.Round(quote)), true
}

func (a *aaStrategy) Respond(ev MarketEvent) {
	bidEv, askEv := a.memo.observe(ev.View, ev.Trade)
	if !(bidEv.traded() || askEv.traded()) || ev.Trade == nil {
		return
	}

	price := float64(ev.Trade.Price)
	a.prices = append(a.prices, price)
	if a.sellTarget == nil {
		t := price
		a.sellTarget = &t
	}
	if a.buyTarget == nil {
		t := price
		a.buyTarget = &t
	}
	a.calcEq()
	a.calcAlpha()
	a.calcTheta()
	if a.job == orderbook.Bid || a.job == orderbook.Ask {
		a.calcRshout()
		a.calcAgg()
		a.calcTarget()
	}
}
