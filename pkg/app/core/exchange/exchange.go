package exchange

import (
	"errors"
	"fmt"

	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

var ErrBadSide = errors.New("order side must be Bid or Ask")

// Exchange is a single-instrument continuous double auction. It is not safe
// for concurrent use; the session loop is its only writer.
type Exchange struct {
	bids   *orderbook.BookHalf
	asks   *orderbook.BookHalf
	tape   []Record
	nextID int64
}

// New creates an empty exchange whose stub quotes follow p.
func New(p market.Params) *Exchange {
	return &Exchange{
		bids: orderbook.NewBookHalf(orderbook.Bid, p.MinPrice),
		asks: orderbook.NewBookHalf(orderbook.Ask, p.MaxPrice),
	}
}

func (e *Exchange) half(s orderbook.Side) (*orderbook.BookHalf, error) {
	switch s {
	case orderbook.Bid:
		return e.bids, nil
	case orderbook.Ask:
		return e.asks, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrBadSide, s)
	}
}

// Submit stamps o with the next order id and rests it on its side,
// replacing any order the owner already has there.
func (e *Exchange) Submit(o orderbook.Order) (orderbook.Order, orderbook.AddResult, error) {
	h, err := e.half(o.Side)
	if err != nil {
		return o, orderbook.Addition, err
	}
	o.ID = e.nextID
	e.nextID++
	return o, h.Add(o), nil
}

// Cancel removes o.Owner's resting order on o.Side and records the
// cancellation on the tape. The record is written even when nothing was
// resting.
func (e *Exchange) Cancel(now float64, o orderbook.Order) error {
	h, err := e.half(o.Side)
	if err != nil {
		return err
	}
	h.Remove(o.Owner)
	e.tape = append(e.tape, cancelRecord(now, o))
	return nil
}

// ProcessOrder admits o and matches it if it crosses the contra best.
// At most one trade happens per call; it executes at the passive order's
// price and consumes one unit from each side.
func (e *Exchange) ProcessOrder(now float64, o orderbook.Order) (*Trade, error) {
	o, _, err := e.Submit(o)
	if err != nil {
		return nil, err
	}

	own, _ := e.half(o.Side)
	contra, _ := e.half(o.Side.Opposite())

	best, ok := contra.Best()
	if !ok {
		return nil, nil
	}
	if o.Side == orderbook.Bid && o.Price < best {
		return nil, nil
	}
	if o.Side == orderbook.Ask && o.Price > best {
		return nil, nil
	}

	// a crossing order is strictly the best on its own side, so the second
	// DeleteBest removes it. An owner resting on the contra side trades
	// with itself here; that path is left as is.
	counterparty, _ := contra.DeleteBest()
	own.DeleteBest()

	t := Trade{
		Time:   now,
		Price:  best,
		Party1: counterparty,
		Party2: o.Owner,
		Qty:    o.Qty,
	}
	e.tape = append(e.tape, tradeRecord(t))
	return &t, nil
}

// Publish returns a deep-copied public snapshot of the book and tape.
func (e *Exchange) Publish(now float64) PublicView {
	return PublicView{
		Time:   now,
		Bids:   sideView(e.bids),
		Asks:   sideView(e.asks),
		NextID: e.nextID,
		Tape:   cloneTape(e.tape),
	}
}

// TapeSince returns copies of the tape entries from index i onward.
func (e *Exchange) TapeSince(i int) []Record {
	if i >= len(e.tape) {
		return nil
	}
	if i < 0 {
		i = 0
	}
	return cloneTape(e.tape[i:])
}

// TapeLen returns the number of tape entries so far.
func (e *Exchange) TapeLen() int { return len(e.tape) }

// Resting returns owner's order on side s.
func (e *Exchange) Resting(owner string, s orderbook.Side) (orderbook.Order, bool) {
	h, err := e.half(s)
	if err != nil {
		return orderbook.Order{}, false
	}
	return h.Get(owner)
}

// Check verifies both halves.
func (e *Exchange) Check() error {
	if err := e.bids.Check(); err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	if err := e.asks.Check(); err != nil {
		return fmt.Errorf("asks: %w", err)
	}
	return nil
}
