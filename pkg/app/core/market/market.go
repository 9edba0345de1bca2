package market

import (
	"errors"
	"fmt"
)

// ErrInvalidBounds is returned when a price band cannot hold a single tick.
var ErrInvalidBounds = errors.New("invalid market bounds")

// Params defines the price band of the single simulated instrument.
// All prices are integer ticks (pennies in the classic setup).
type Params struct {
	MinPrice int64 // lowest admissible price; also the empty-bid stub quote
	MaxPrice int64 // highest admissible price; also the empty-ask stub quote
	TickSize int64 // minimum price increment
}

// Default returns the classic 1..1000 penny band with a one-penny tick.
func Default() Params {
	return Params{
		MinPrice: 1,
		MaxPrice: 1000,
		TickSize: 1,
	}
}

// Validate checks market parameter sanity
func (p Params) Validate() error {
	if p.TickSize <= 0 {
		return fmt.Errorf("%w: tick size must be positive", ErrInvalidBounds)
	}
	if p.MinPrice <= 0 {
		return fmt.Errorf("%w: min price must be positive", ErrInvalidBounds)
	}
	if p.MaxPrice <= p.MinPrice {
		return fmt.Errorf("%w: max price (%d) must exceed min price (%d)", ErrInvalidBounds, p.MaxPrice, p.MinPrice)
	}
	return nil
}

// Clip forces price into [MinPrice, MaxPrice]. The boolean reports whether
// the price had to be moved; callers surface that as a warning.
func (p Params) Clip(price int64) (int64, bool) {
	if p.Contains(price) {
		return price, false
	}
	if price < p.MinPrice {
		return p.MinPrice, true
	}
	return p.MaxPrice, true
}

// Contains reports whether price lies inside the band.
func (p Params) Contains(price int64) bool {
	return price >= p.MinPrice && price <= p.MaxPrice
}
