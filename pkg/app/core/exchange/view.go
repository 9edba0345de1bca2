package exchange

import "github.com/uhyunpark/lobsim/pkg/app/core/orderbook"

// SideView is the public, anonymized state of one book half.
type SideView struct {
	Best  *int64                 `json:"best"`  // nil when the half is empty
	Worst int64                  `json:"worst"` // stub quote for an empty half
	N     int                    `json:"n"`     // resting orders
	Depth int                    `json:"depth"` // resting quantity
	LOB   []orderbook.PriceLevel `json:"lob"`   // ascending by price
}

// BestPrice returns the best price and whether the half is non-empty.
func (s SideView) BestPrice() (int64, bool) {
	if s.Best == nil {
		return 0, false
	}
	return *s.Best, true
}

// PublicView is the snapshot every trader sees. It is a deep copy, so
// callers may keep or modify it freely.
type PublicView struct {
	Time   float64  `json:"time"`
	Bids   SideView `json:"bids"`
	Asks   SideView `json:"asks"`
	NextID int64    `json:"qid"`
	Tape   []Record `json:"tape"`
}

// BestBidQty is the quantity resting at the best bid, 0 when empty.
func (v *PublicView) BestBidQty() int64 {
	if n := len(v.Bids.LOB); n > 0 {
		return v.Bids.LOB[n-1].Qty
	}
	return 0
}

// BestAskQty is the quantity resting at the best ask, 0 when empty.
func (v *PublicView) BestAskQty() int64 {
	if len(v.Asks.LOB) > 0 {
		return v.Asks.LOB[0].Qty
	}
	return 0
}

// LastRecord returns the most recent tape entry.
func (v *PublicView) LastRecord() (Record, bool) {
	if len(v.Tape) == 0 {
		return Record{}, false
	}
	return v.Tape[len(v.Tape)-1], true
}

// Trades returns the trades on the tape in time order.
func (v *PublicView) Trades() []Trade {
	var out []Trade
	for _, r := range v.Tape {
		if t, ok := r.Trade(); ok {
			out = append(out, t)
		}
	}
	return out
}

func sideView(h *orderbook.BookHalf) SideView {
	sv := SideView{
		Worst: h.Worst(),
		N:     h.Len(),
		Depth: h.Depth(),
		LOB:   h.Levels(),
	}
	if best, ok := h.Best(); ok {
		sv.Best = &best
	}
	return sv
}
