package orderbook

import (
	"fmt"
	"sort"
)

// AddResult tells whether Add created a new resting order or replaced the
// owner's previous one.
type AddResult int

const (
	Addition AddResult = iota
	Overwrite
)

func (r AddResult) String() string {
	if r == Overwrite {
		return "Overwrite"
	}
	return "Addition"
}

// PriceLevel is one entry of the anonymized depth view.
type PriceLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"` // total qty at this price level
}

// LevelEntry is one resting order inside a price level.
type LevelEntry struct {
	Time  float64
	Qty   int64
	Owner string
	ID    int64
}

// Level aggregates the orders resting at a single price. Entries are in
// time priority.
type Level struct {
	Qty     int64
	Entries []LevelEntry
}

// BookHalf is one side of the limit order book. Each owner has at most one
// resting order per half; the price index and anonymized view are rebuilt
// from the owner map after every mutation.
type BookHalf struct {
	side  Side
	worst int64 // stub quote reported when the half is empty

	orders map[string]Order // owner -> resting order
	lob    map[int64]*Level // price -> level

	anon      []PriceLevel // ascending by price
	best      int64
	bestOwner string
	hasBest   bool
	depth     int // total resting quantity
}

// NewBookHalf creates an empty half. worst is the stub price strategies
// see when the half is empty: the market minimum for bids, the maximum
// for asks.
func NewBookHalf(side Side, worst int64) *BookHalf {
	return &BookHalf{
		side:   side,
		worst:  worst,
		orders: make(map[string]Order),
		lob:    make(map[int64]*Level),
	}
}

func (h *BookHalf) Side() Side   { return h.side }
func (h *BookHalf) Worst() int64 { return h.worst }

// Len returns the number of resting orders (one per owner).
func (h *BookHalf) Len() int { return len(h.orders) }

// Depth returns the total resting quantity.
func (h *BookHalf) Depth() int { return h.depth }

// Best returns the best price and whether the half is non-empty.
func (h *BookHalf) Best() (int64, bool) { return h.best, h.hasBest }

// BestOwner returns the owner first in time priority at the best price,
// or "" when empty.
func (h *BookHalf) BestOwner() string { return h.bestOwner }

// Get returns the resting order of owner.
func (h *BookHalf) Get(owner string) (Order, bool) {
	o, ok := h.orders[owner]
	return o, ok
}

// Add places o, replacing any order the same owner already has on this half.
func (h *BookHalf) Add(o Order) AddResult {
	_, exists := h.orders[o.Owner]
	h.orders[o.Owner] = o
	h.rebuild()
	if exists {
		return Overwrite
	}
	return Addition
}

// Remove deletes owner's resting order. Unknown owners are a no-op.
func (h *BookHalf) Remove(owner string) bool {
	if _, ok := h.orders[owner]; !ok {
		return false
	}
	delete(h.orders, owner)
	h.rebuild()
	return true
}

// DeleteBest removes the order first in time priority at the best price and
// returns its owner.
func (h *BookHalf) DeleteBest() (string, bool) {
	if !h.hasBest {
		return "", false
	}
	owner := h.bestOwner
	delete(h.orders, owner)
	h.rebuild()
	return owner, true
}

// Levels returns a copy of the anonymized view in ascending price order.
func (h *BookHalf) Levels() []PriceLevel {
	out := make([]PriceLevel, len(h.anon))
	copy(out, h.anon)
	return out
}

// Level returns a copy of the level at price.
func (h *BookHalf) Level(price int64) (Level, bool) {
	lvl, ok := h.lob[price]
	if !ok {
		return Level{}, false
	}
	entries := make([]LevelEntry, len(lvl.Entries))
	copy(entries, lvl.Entries)
	return Level{Qty: lvl.Qty, Entries: entries}, true
}

// Orders returns every resting order sorted by owner.
func (h *BookHalf) Orders() []Order {
	out := make([]Order, 0, len(h.orders))
	for _, o := range h.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

func (h *BookHalf) rebuild() {
	h.lob = make(map[int64]*Level, len(h.orders))
	h.depth = 0
	for _, o := range h.orders {
		lvl, ok := h.lob[o.Price]
		if !ok {
			lvl = &Level{}
			h.lob[o.Price] = lvl
		}
		lvl.Qty += o.Qty
		lvl.Entries = append(lvl.Entries, LevelEntry{Time: o.Time, Qty: o.Qty, Owner: o.Owner, ID: o.ID})
		h.depth += int(o.Qty)
	}

	h.anon = h.anon[:0]
	for price, lvl := range h.lob {
		// map iteration order is random; ties on time fall back to id, then owner
		sort.Slice(lvl.Entries, func(i, j int) bool {
			a, b := lvl.Entries[i], lvl.Entries[j]
			if a.Time != b.Time {
				return a.Time < b.Time
			}
			if a.ID != b.ID {
				return a.ID < b.ID
			}
			return a.Owner < b.Owner
		})
		h.anon = append(h.anon, PriceLevel{Price: price, Qty: lvl.Qty})
	}
	sort.Slice(h.anon, func(i, j int) bool { return h.anon[i].Price < h.anon[j].Price })

	if len(h.anon) == 0 {
		h.best, h.bestOwner, h.hasBest = 0, "", false
		return
	}
	if h.side == Bid {
		h.best = h.anon[len(h.anon)-1].Price
	} else {
		h.best = h.anon[0].Price
	}
	h.bestOwner = h.lob[h.best].Entries[0].Owner
	h.hasBest = true
}

// Check verifies the internal invariants of the half.
func (h *BookHalf) Check() error {
	var depth int64
	levels := 0
	for price, lvl := range h.lob {
		var qty int64
		for _, e := range lvl.Entries {
			o, ok := h.orders[e.Owner]
			if !ok {
				return fmt.Errorf("level %d lists unknown owner %s", price, e.Owner)
			}
			if o.Price != price {
				return fmt.Errorf("owner %s indexed at %d but priced %d", e.Owner, price, o.Price)
			}
			qty += e.Qty
		}
		if qty != lvl.Qty {
			return fmt.Errorf("level %d qty %d != sum of entries %d", price, lvl.Qty, qty)
		}
		depth += qty
		levels++
	}
	if int(depth) != h.depth {
		return fmt.Errorf("depth %d != sum of levels %d", h.depth, depth)
	}
	if levels != len(h.anon) {
		return fmt.Errorf("anonymized view has %d levels, index has %d", len(h.anon), levels)
	}
	for i := 1; i < len(h.anon); i++ {
		if h.anon[i-1].Price >= h.anon[i].Price {
			return fmt.Errorf("anonymized view not ascending at %d", i)
		}
	}
	if len(h.orders) == 0 {
		if h.hasBest {
			return fmt.Errorf("empty half reports best %d", h.best)
		}
		return nil
	}
	for _, o := range h.orders {
		if h.side == Bid && o.Price > h.best {
			return fmt.Errorf("bid %d above best %d", o.Price, h.best)
		}
		if h.side == Ask && o.Price < h.best {
			return fmt.Errorf("ask %d below best %d", o.Price, h.best)
		}
	}
	return nil
}
