package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/lobsim/pkg/app/schedule"
	"github.com/uhyunpark/lobsim/pkg/app/trader"
	"github.com/uhyunpark/lobsim/pkg/metrics"
	"github.com/uhyunpark/lobsim/pkg/util"
)

var ErrQuoteThroughLimit = errors.New("quote on the wrong side of the customer limit")

// TapeSink receives every tape record as it is appended.
type TapeSink interface {
	Append(sessionID string, seq uint64, rec exchange.Record) error
}

// Config describes one market session.
type Config struct {
	Start    float64
	End      float64
	Market   market.Params
	Buyers   []trader.MixEntry
	Sellers  []trader.MixEntry
	Shuffle  bool
	Schedule schedule.Schedule
	Pace     time.Duration // wall-clock delay per tick, 0 runs flat out
}

// Session owns the exchange and the roster and drives them tick by tick.
// Everything runs on the caller's goroutine.
type Session struct {
	id       string
	cfg      Config
	duration float64
	timestep float64

	ex     *exchange.Exchange
	roster *trader.Roster
	sched  *schedule.Scheduler
	rng    *rand.Rand

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	clock   util.Clock
	sinks   []TapeSink
	flushed int

	ticks  int
	quotes int

	// Optional hooks, called on the session goroutine.
	OnTick  func(view exchange.PublicView)
	OnTrade func(t exchange.Trade)
}

type Option func(*Session)

func WithLogger(l *zap.SugaredLogger) Option { return func(s *Session) { s.logger = l } }
func WithMetrics(m *metrics.Metrics) Option  { return func(s *Session) { s.metrics = m } }
func WithClock(c util.Clock) Option          { return func(s *Session) { s.clock = c } }
func WithSink(sink TapeSink) Option          { return func(s *Session) { s.sinks = append(s.sinks, sink) } }
func WithID(id string) Option                { return func(s *Session) { s.id = id } }

// New builds the exchange, population and scheduler. All randomness is
// drawn from rng, so a fixed seed replays the session exactly.
func New(cfg Config, rng *rand.Rand, opts ...Option) (*Session, error) {
	if cfg.End <= cfg.Start {
		return nil, fmt.Errorf("session end %v must be after start %v", cfg.End, cfg.Start)
	}
	if err := cfg.Market.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		rng:    rng,
		logger: zap.NewNop().Sugar(),
		clock:  util.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}

	roster, err := trader.Populate(cfg.Buyers, cfg.Sellers, cfg.Market, cfg.Shuffle, rng)
	if err != nil {
		return nil, err
	}
	sched, err := schedule.NewScheduler(cfg.Schedule, cfg.Market, roster.NBuyers(), roster.NSellers(), rng,
		schedule.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	s.ex = exchange.New(cfg.Market)
	s.roster = roster
	s.sched = sched
	s.duration = cfg.End - cfg.Start
	// every trader gets one chance per simulated second on average
	s.timestep = 1.0 / float64(roster.Len())
	return s, nil
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Roster() *trader.Roster       { return s.roster }
func (s *Session) Exchange() *exchange.Exchange { return s.ex }
func (s *Session) Timestep() float64            { return s.timestep }

// Run steps from Start to End. It stops early when ctx is cancelled and
// returns the report for the time reached.
func (s *Session) Run(ctx context.Context) (Report, error) {
	s.logger.Infow("session_start",
		"session", s.id,
		"buyers", s.roster.NBuyers(),
		"sellers", s.roster.NSellers(),
		"start", s.cfg.Start,
		"end", s.cfg.End,
		"timestep", s.timestep,
	)

	now := s.cfg.Start
	for now < s.cfg.End {
		if err := ctx.Err(); err != nil {
			s.logger.Warnw("session_interrupted", "session", s.id, "time", now)
			return s.Report(now), err
		}
		if _, err := s.Step(now); err != nil {
			return s.Report(now), err
		}
		if s.cfg.Pace > 0 {
			select {
			case <-ctx.Done():
			case <-s.clock.After(s.cfg.Pace):
			}
		}
		now += s.timestep
	}

	report := s.Report(now)
	s.logger.Infow("session_end",
		"session", s.id,
		"ticks", s.ticks,
		"trades", report.Trades,
		"quotes", s.quotes,
	)
	return report, nil
}

// Step runs a single tick at time now and returns the trade it produced,
// if any.
func (s *Session) Step(now float64) (*exchange.Trade, error) {
	s.ticks++
	s.metrics.Tick(now)
	countdown := (s.cfg.End - now) / s.duration

	if err := s.issueCustomerOrders(now); err != nil {
		return nil, err
	}

	agent := s.roster.At(s.rng.Intn(s.roster.Len()))
	view := s.ex.Publish(now)
	q, ok := agent.GetQuote(now, countdown, &view, s.rng)
	if !ok {
		return nil, s.flush()
	}

	limit, _ := agent.CustomerOrder()
	if (q.Side == orderbook.Ask && q.Price < limit.Price) || (q.Side == orderbook.Bid && q.Price > limit.Price) {
		return nil, fmt.Errorf("%w: %s %s quote %d limit %d", ErrQuoteThroughLimit, agent.ID, q.Side, q.Price, limit.Price)
	}
	if price, moved := s.cfg.Market.Clip(q.Price); moved {
		s.logger.Warnw("price_clipped", "source", "quote", "trader", agent.ID, "price", q.Price, "clipped", price)
		s.metrics.Clip()
		q.Price = price
	}

	agent.QuoteSent()
	s.quotes++
	s.metrics.Quote(string(agent.Kind))

	trade, err := s.ex.ProcessOrder(now, q)
	if err != nil {
		return nil, err
	}
	if trade != nil {
		if err := s.settle(*trade, now); err != nil {
			return nil, err
		}
	}

	view = s.ex.Publish(now)
	for _, a := range s.roster.Agents() {
		a.OnMarketEvent(now, &view, trade, s.rng)
	}
	s.metrics.Depth(view.Bids.Depth, view.Asks.Depth)
	if s.OnTick != nil {
		s.OnTick(view)
	}
	return trade, s.flush()
}

// issueCustomerOrders hands out due customer orders and pulls quotes that
// the new orders make stale.
func (s *Session) issueCustomerOrders(now float64) error {
	due, err := s.sched.Due(now)
	if err != nil {
		return err
	}
	var kills []*trader.Agent
	for _, o := range due {
		a, ok := s.roster.Get(o.Owner)
		if !ok {
			return fmt.Errorf("customer order for unknown trader %s", o.Owner)
		}
		if a.AssignCustomerOrder(o) == trader.RequestCancel {
			kills = append(kills, a)
		}
	}
	for _, a := range kills {
		if q, ok := a.LastQuote(); ok {
			if err := s.ex.Cancel(now, q); err != nil {
				return err
			}
			s.metrics.Cancel()
		}
		a.QuoteCancelled()
	}
	return nil
}

func (s *Session) settle(t exchange.Trade, now float64) error {
	for _, id := range []string{t.Party1, t.Party2} {
		a, ok := s.roster.Get(id)
		if !ok {
			return fmt.Errorf("trade party %s not in roster", id)
		}
		profit, err := a.Settle(t, now)
		if err != nil {
			return err
		}
		s.metrics.Profit(string(a.Kind), profit)
	}
	s.metrics.Trade(t.Price)
	s.logger.Debugw("trade", "time", t.Time, "price", t.Price, "passive", t.Party1, "aggressor", t.Party2)
	if s.OnTrade != nil {
		s.OnTrade(t)
	}
	return nil
}

// flush forwards tape records appended since the last call to every sink.
func (s *Session) flush() error {
	recs := s.ex.TapeSince(s.flushed)
	for i, rec := range recs {
		seq := uint64(s.flushed + i)
		for _, sink := range s.sinks {
			if err := sink.Append(s.id, seq, rec); err != nil {
				return fmt.Errorf("tape sink: %w", err)
			}
		}
	}
	s.flushed += len(recs)
	return nil
}
