package trader

import "github.com/uhyunpark/lobsim/pkg/app/core/exchange"

// BookEvent classifies what happened to the best quote of one book half
// between two consecutive snapshots.
type BookEvent int

const (
	Unchanged BookEvent = iota
	Improved
	Taken // best bid hit or best ask lifted
	EmptiedByCancel
	EmptiedByTrade
)

func (e BookEvent) String() string {
	switch e {
	case Improved:
		return "Improved"
	case Taken:
		return "Taken"
	case EmptiedByCancel:
		return "EmptiedByCancel"
	case EmptiedByTrade:
		return "EmptiedByTrade"
	default:
		return "Unchanged"
	}
}

// traded reports whether the event removed liquidity through a trade.
func (e BookEvent) traded() bool { return e == Taken || e == EmptiedByTrade }

type bestQuote struct {
	price int64
	qty   int64
	ok    bool
}

// bookMemo remembers the previous best bid and ask so consecutive snapshots
// can be compared. The zero value has seen an empty book.
type bookMemo struct {
	bid bestQuote
	ask bestQuote
}

// observe classifies both halves against the remembered state, then
// remembers the current one.
func (m *bookMemo) observe(view *exchange.PublicView, trade *exchange.Trade) (bidEv, askEv BookEvent) {
	var bid, ask bestQuote
	if p, ok := view.Bids.BestPrice(); ok {
		bid = bestQuote{price: p, qty: view.BestBidQty(), ok: true}
	}
	if p, ok := view.Asks.BestPrice(); ok {
		ask = bestQuote{price: p, qty: view.BestAskQty(), ok: true}
	}

	emptiedBy := EmptiedByCancel
	if last, ok := view.LastRecord(); ok && last.Type == exchange.RecordTrade {
		emptiedBy = EmptiedByTrade
	}

	bidEv = classify(m.bid, bid, trade != nil, emptiedBy, func(a, b int64) bool { return a > b })
	askEv = classify(m.ask, ask, trade != nil, emptiedBy, func(a, b int64) bool { return a < b })

	m.bid, m.ask = bid, ask
	return bidEv, askEv
}

// classify compares prev and cur for one half. better(a, b) reports whether
// price a is more aggressive than b on that half.
func classify(prev, cur bestQuote, traded bool, emptiedBy BookEvent, better func(a, b int64) bool) BookEvent {
	if !cur.ok {
		if prev.ok {
			return emptiedBy
		}
		return Unchanged
	}
	// a quote appearing on an empty half counts as an improvement
	if !prev.ok || better(cur.price, prev.price) {
		return Improved
	}
	if traded && (better(prev.price, cur.price) || (prev.price == cur.price && prev.qty > cur.qty)) {
		return Taken
	}
	return Unchanged
}
