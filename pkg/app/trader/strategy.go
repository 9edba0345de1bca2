package trader

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Kind is the strategy token used in mix strings and reports.
type Kind string

const (
	Giveaway Kind = "GVWY"
	ZIC      Kind = "ZIC"
	Shaver   Kind = "SHVR"
	Sniper   Kind = "SNPR"
	ZIP      Kind = "ZIP"
	AA       Kind = "AA"
	GDX      Kind = "GDX"
)

// Kinds lists every supported strategy in report order.
var Kinds = []Kind{Giveaway, ZIC, Shaver, Sniper, ZIP, AA, GDX}

// ParseKind resolves a strategy token, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// QuoteRequest carries everything a strategy may look at when pricing.
// Order is nil when the agent has no pending customer order.
type QuoteRequest struct {
	Now       float64
	Countdown float64 // fraction of the session remaining, 1 -> 0
	Order     *orderbook.Order
	View      *exchange.PublicView
	Rng       *rand.Rand
}

// MarketEvent is delivered to every agent after each tick.
type MarketEvent struct {
	Now   float64
	View  *exchange.PublicView
	Trade *exchange.Trade // nil when the tick produced no trade
	Rng   *rand.Rand
}

// Strategy prices quotes and learns from the public market.
// Quote returns false when the strategy chooses not to quote.
type Strategy interface {
	Quote(req QuoteRequest) (int64, bool)
	Respond(ev MarketEvent)
}

func newStrategy(kind Kind, p market.Params, rng *rand.Rand) (Strategy, error) {
	switch kind {
	case Giveaway:
		return giveaway{}, nil
	case ZIC:
		return zic{}, nil
	case Shaver:
		return shaver{tick: p.TickSize}, nil
	case Sniper:
		return sniper{tick: p.TickSize}, nil
	case ZIP:
		return newZIP(rng), nil
	case AA:
		return newAA(p, rng), nil
	case GDX:
		return newGDX(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
}
