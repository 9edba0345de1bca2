package orderbook

import "fmt"

// Side of the book an order rests on.
type Side int8

const (
	Bid Side = 1
	Ask Side = -1
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Valid reports whether s is Bid or Ask.
func (s Side) Valid() bool { return s == Bid || s == Ask }

// Opposite returns the contra side.
func (s Side) Opposite() Side { return -s }

// MarshalText encodes the side as "Bid" / "Ask" for JSON.
func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid side %d", int8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Bid":
		*s = Bid
	case "Ask":
		*s = Ask
	default:
		return fmt.Errorf("invalid side %q", b)
	}
	return nil
}

// Unassigned marks an order that has not been admitted by the exchange yet.
const Unassigned int64 = -1

// Order is a single-unit limit order. The same shape carries customer
// orders (Price is the limit) and quotes sent to the exchange.
type Order struct {
	Owner string  `json:"owner"`
	Side  Side    `json:"side"`
	Price int64   `json:"price"`
	Qty   int64   `json:"qty"`
	Time  float64 `json:"time"`
	ID    int64   `json:"id"`
}

func (o Order) String() string {
	return fmt.Sprintf("[%s %s P=%d Q=%d T=%.2f QID:%d]", o.Owner, o.Side, o.Price, o.Qty, o.Time, o.ID)
}
