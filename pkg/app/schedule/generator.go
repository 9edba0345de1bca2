package schedule

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

// Scheduler turns a Schedule into timed customer orders for buyers
// B00..Bnn and sellers S00..Snn.
type Scheduler struct {
	sched    Schedule
	params   market.Params
	nBuyers  int
	nSellers int
	rng      *rand.Rand
	logger   *zap.SugaredLogger

	pending []orderbook.Order
	clipped int
}

type Option func(*Scheduler)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler validates the schedule and the population size.
func NewScheduler(sched Schedule, p market.Params, nBuyers, nSellers int, rng *rand.Rand, opts ...Option) (*Scheduler, error) {
	if nBuyers < 1 || nSellers < 1 {
		return nil, ErrNoTraders
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		sched:    sched,
		params:   p,
		nBuyers:  nBuyers,
		nSellers: nSellers,
		rng:      rng,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Pending returns the number of generated but not yet issued orders.
func (s *Scheduler) Pending() int { return len(s.pending) }

// Clipped counts limit prices forced into the market band so far.
func (s *Scheduler) Clipped() int { return s.clipped }

// Due returns the customer orders to hand out at now. When nothing is
// pending a full cycle for every trader is generated and nothing is
// issued on that call.
func (s *Scheduler) Due(now float64) ([]orderbook.Order, error) {
	if len(s.pending) == 0 {
		if err := s.replenish(now); err != nil {
			return nil, err
		}
		return nil, nil
	}
	var due, keep []orderbook.Order
	for _, o := range s.pending {
		if o.Time < now {
			due = append(due, o)
		} else {
			keep = append(keep, o)
		}
	}
	s.pending = keep
	return due, nil
}

func (s *Scheduler) replenish(now float64) error {
	gen := func(prefix byte, side orderbook.Side, n int, zones []Zone) error {
		times := s.issueTimes(n)
		zone, err := zoneAt(zones, now)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			issue := now + times[i]
			s.pending = append(s.pending, orderbook.Order{
				Owner: fmt.Sprintf("%c%02d", prefix, i),
				Side:  side,
				Price: s.orderPrice(i, zone, n, issue),
				Qty:   1,
				Time:  issue,
				ID:    orderbook.Unassigned,
			})
		}
		return nil
	}
	if err := gen('B', orderbook.Bid, s.nBuyers, s.sched.Demand); err != nil {
		return fmt.Errorf("demand: %w", err)
	}
	if err := gen('S', orderbook.Ask, s.nSellers, s.sched.Supply); err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	return nil
}

func (s *Scheduler) clip(price int64) int64 {
	p, moved := s.params.Clip(price)
	if moved {
		s.clipped++
		s.logger.Warnw("price_clipped", "source", "schedule", "price", price, "clipped", p)
	}
	return p
}

// orderPrice picks the limit price of the i-th of n traders.
func (s *Scheduler) orderPrice(i int, zone Zone, n int, issue float64) int64 {
	r := zone.Ranges[0]
	var offMin, offMax float64
	if r.OffsetMin != nil {
		offMin = r.OffsetMin(issue)
		offMax = offMin
		if r.OffsetMax != nil {
			offMax = r.OffsetMax(issue)
		}
	}

	pmin := s.clip(int64(offMin + float64(min(r.Min, r.Max))))
	pmax := s.clip(int64(offMax + float64(max(r.Min, r.Max))))
	var step float64
	if n > 1 {
		step = float64(pmax-pmin) / float64(n-1)
	}
	half := int64(math.Round(step / 2.0))

	var price int64
	switch zone.StepMode {
	case Fixed:
		price = pmin + int64(float64(i)*step)
	case Jittered:
		price = pmin + int64(float64(i)*step) + s.randint(-half, half)
	case Random:
		if len(zone.Ranges) > 1 {
			pick := zone.Ranges[s.rng.Intn(len(zone.Ranges))]
			pmin = s.clip(min(pick.Min, pick.Max))
			pmax = s.clip(max(pick.Min, pick.Max))
		}
		price = s.randint(pmin, pmax)
	}
	return s.clip(price)
}

// randint is uniform on [lo, hi].
func (s *Scheduler) randint(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Int63n(hi-lo+1)
}

// issueTimes returns n arrival offsets within one interval, shuffled and
// rescaled so the last one lands on the interval boundary.
func (s *Scheduler) issueTimes(n int) []float64 {
	interval := s.sched.Interval
	step := interval
	if n > 1 {
		step = interval / float64(n-1)
	}

	times := make([]float64, n)
	var arr float64
	for t := 0; t < n; t++ {
		switch s.sched.TimeMode {
		case Periodic:
			arr = interval
		case DripFixed:
			arr = float64(t) * step
		case DripJitter:
			arr = float64(t)*step + step*s.rng.Float64()
		case DripPoisson:
			arr += s.rng.ExpFloat64() / (float64(n) / interval)
		}
		times[t] = arr
	}

	if arr != interval && arr > 0 {
		for t := range times {
			times[t] = interval * (times[t] / arr)
		}
	}

	for t := 0; t < n; t++ {
		i := (n - 1) - t
		j := s.rng.Intn(i + 1)
		times[i], times[j] = times[j], times[i]
	}
	return times
}
