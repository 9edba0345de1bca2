package exchange

import "github.com/uhyunpark/lobsim/pkg/app/core/orderbook"

// RecordType distinguishes tape entries.
type RecordType string

const (
	RecordTrade  RecordType = "Trade"
	RecordCancel RecordType = "Cancel"
)

// Trade is one executed transaction. Party1 is the passive counterparty
// whose resting order set the price, Party2 the aggressor.
type Trade struct {
	Time   float64 `json:"time"`
	Price  int64   `json:"price"`
	Party1 string  `json:"party1"`
	Party2 string  `json:"party2"`
	Qty    int64   `json:"qty"`
}

// Record is one append-only tape entry. Trade fields are set for
// RecordTrade, Order for RecordCancel.
type Record struct {
	Type   RecordType       `json:"type"`
	Time   float64          `json:"time"`
	Price  int64            `json:"price,omitempty"`
	Party1 string           `json:"party1,omitempty"`
	Party2 string           `json:"party2,omitempty"`
	Qty    int64            `json:"qty,omitempty"`
	Order  *orderbook.Order `json:"order,omitempty"`
}

func tradeRecord(t Trade) Record {
	return Record{
		Type:   RecordTrade,
		Time:   t.Time,
		Price:  t.Price,
		Party1: t.Party1,
		Party2: t.Party2,
		Qty:    t.Qty,
	}
}

func cancelRecord(now float64, o orderbook.Order) Record {
	return Record{Type: RecordCancel, Time: now, Order: &o}
}

// Trade returns the trade carried by r.
func (r Record) Trade() (Trade, bool) {
	if r.Type != RecordTrade {
		return Trade{}, false
	}
	return Trade{Time: r.Time, Price: r.Price, Party1: r.Party1, Party2: r.Party2, Qty: r.Qty}, true
}

func (r Record) clone() Record {
	if r.Order != nil {
		o := *r.Order
		r.Order = &o
	}
	return r
}

func cloneTape(tape []Record) []Record {
	out := make([]Record, len(tape))
	for i, r := range tape {
		out[i] = r.clone()
	}
	return out
}
