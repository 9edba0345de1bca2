package schedule

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/core/orderbook"
)

func simple(step StepMode, tm TimeMode) Schedule {
	return Simple(0, 600, Range{Min: 50, Max: 150}, Range{Min: 50, Max: 150}, step, 30, tm)
}

func TestNewScheduler_Validation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewScheduler(simple(Fixed, Periodic), market.Default(), 0, 3, rng)
	assert.ErrorIs(t, err, ErrNoTraders)

	bad := simple(Fixed, Periodic)
	bad.Interval = 0
	_, err = NewScheduler(bad, market.Default(), 3, 3, rng)
	assert.Error(t, err)

	bad = simple(StepMode("stairs"), Periodic)
	_, err = NewScheduler(bad, market.Default(), 3, 3, rng)
	assert.Error(t, err)
}

func TestDue_GeneratesThenIssues(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s, err := NewScheduler(simple(Fixed, DripFixed), market.Default(), 3, 3, rng)
	require.NoError(t, err)

	due, err := s.Due(0)
	require.NoError(t, err)
	assert.Empty(t, due, "generation tick issues nothing")
	assert.Equal(t, 6, s.Pending())

	due, err = s.Due(31)
	require.NoError(t, err)
	assert.Len(t, due, 6)
	assert.Zero(t, s.Pending())

	var bids, asks int
	for _, o := range due {
		assert.Equal(t, int64(1), o.Qty)
		assert.Equal(t, orderbook.Unassigned, o.ID)
		if o.Side == orderbook.Bid {
			bids++
			assert.Equal(t, byte('B'), o.Owner[0])
		} else {
			asks++
			assert.Equal(t, byte('S'), o.Owner[0])
		}
	}
	assert.Equal(t, 3, bids)
	assert.Equal(t, 3, asks)
}

func TestDue_OnlyPastOrders(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s, err := NewScheduler(simple(Fixed, DripFixed), market.Default(), 3, 3, rng)
	require.NoError(t, err)
	_, _ = s.Due(0)

	// drip-fixed with three traders arrives at 0, 15 and 30
	due, err := s.Due(0.5)
	require.NoError(t, err)
	assert.Len(t, due, 2)
	for _, o := range due {
		assert.Less(t, o.Time, 0.5)
	}
	assert.Equal(t, 4, s.Pending())
}

func TestOrderPrice_FixedSpreadsRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s, err := NewScheduler(simple(Fixed, Periodic), market.Default(), 5, 5, rng)
	require.NoError(t, err)

	zone := s.sched.Demand[0]
	var got []int64
	for i := 0; i < 5; i++ {
		got = append(got, s.orderPrice(i, zone, 5, 0))
	}
	assert.Equal(t, []int64{50, 75, 100, 125, 150}, got)

	// one trader gets the bottom of the range
	assert.Equal(t, int64(50), s.orderPrice(0, zone, 1, 0))
}

func TestOrderPrice_OffsetAndClip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sched := simple(Fixed, Periodic)
	sched.Demand[0].Ranges[0].OffsetMin = func(float64) float64 { return 900 }
	s, err := NewScheduler(sched, market.Default(), 2, 2, rng)
	require.NoError(t, err)

	lo := s.orderPrice(0, sched.Demand[0], 2, 0)
	hi := s.orderPrice(1, sched.Demand[0], 2, 0)
	assert.Equal(t, int64(950), lo)
	assert.Equal(t, int64(1000), hi, "upper end clipped to the market max")
	assert.Positive(t, s.Clipped())
}

func TestOrderPrice_RandomStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	sched := simple(Random, Periodic)
	sched.Supply[0].Ranges = []Range{{Min: 10, Max: 20}, {Min: 200, Max: 210}}
	s, err := NewScheduler(sched, market.Default(), 2, 2, rng)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		p := s.orderPrice(0, sched.Supply[0], 2, 0)
		inLow := p >= 10 && p <= 20
		inHigh := p >= 200 && p <= 210
		if !inLow && !inHigh {
			t.Fatalf("price %d outside both ranges", p)
		}
	}
}

func TestIssueTimes_FitInterval(t *testing.T) {
	for _, tm := range []TimeMode{Periodic, DripFixed, DripJitter, DripPoisson} {
		t.Run(string(tm), func(t *testing.T) {
			rng := rand.New(rand.NewSource(8))
			s, err := NewScheduler(simple(Fixed, tm), market.Default(), 10, 10, rng)
			require.NoError(t, err)

			times := s.issueTimes(10)
			require.Len(t, times, 10)
			var latest float64
			for _, v := range times {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 30.0+1e-9)
				latest = max(latest, v)
			}
			assert.InDelta(t, 30.0, latest, 1e-9)
		})
	}
}

func TestZoneAt_FirstMatchWins(t *testing.T) {
	zones := []Zone{
		{From: 0, To: 100, Ranges: []Range{{Min: 1, Max: 2}}, StepMode: Fixed},
		{From: 50, To: 200, Ranges: []Range{{Min: 3, Max: 4}}, StepMode: Fixed},
	}
	// 60 is inside both zones
	z, err := zoneAt(zones, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(1), z.Ranges[0].Min)

	z, err = zoneAt([]Zone{zones[1], zones[0]}, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(3), z.Ranges[0].Min)

	z, err = zoneAt(zones, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(3), z.Ranges[0].Min)

	_, err = zoneAt(zones, 200)
	assert.ErrorIs(t, err, ErrNoZone)
}

func TestDue_NoZoneIsFatal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s, err := NewScheduler(simple(Fixed, Periodic), market.Default(), 1, 1, rng)
	require.NoError(t, err)
	_, err = s.Due(700)
	assert.ErrorIs(t, err, ErrNoZone)
}

func TestRandomSchedule(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		sched, err := RandomSchedule(DefaultRandomConfig(), rng)
		require.NoError(t, err)
		require.NoError(t, sched.Validate())
		assert.Equal(t, len(sched.Supply), len(sched.Demand))

		// zones tile [0, duration) with no gaps
		from := 0.0
		for _, z := range sched.Supply {
			assert.Equal(t, from, z.From)
			from = z.To
		}
		assert.Equal(t, 330.0, from)
		for _, z := range sched.Demand {
			r := z.Ranges[0]
			assert.LessOrEqual(t, r.Min, r.Max)
		}
	}

	bad := DefaultRandomConfig()
	bad.MaxZones = 50
	_, err := RandomSchedule(bad, rng)
	assert.Error(t, err)
}

func TestParseModes(t *testing.T) {
	tm, err := ParseTimeMode("drip-poisson")
	require.NoError(t, err)
	assert.Equal(t, DripPoisson, tm)
	_, err = ParseTimeMode("hourly")
	assert.Error(t, err)

	sm, err := ParseStepMode("jittered")
	require.NoError(t, err)
	assert.Equal(t, Jittered, sm)
}
