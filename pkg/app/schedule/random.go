package schedule

import (
	"fmt"
	"math/rand"
)

// RandomConfig bounds the draw of a random piecewise schedule.
type RandomConfig struct {
	Duration      float64 // session length, starting at 0
	Interval      float64
	MidPrice      int64
	MaxZones      int
	MaxVolatility int64 // half-width of a range is drawn from [0, MaxVolatility)
	MaxMidChange  int64 // zone midpoints move up or down by [0, MaxMidChange)
}

// DefaultRandomConfig mirrors the classic 330 second experiment.
func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		Duration:      330,
		Interval:      30,
		MidPrice:      100,
		MaxZones:      8,
		MaxVolatility: 30,
		MaxMidChange:  10,
	}
}

// RandomSchedule draws a schedule of up to MaxZones consecutive zones. Each
// zone spans a whole number of intervals; supply and demand get
// independent ranges centred near MidPrice.
func RandomSchedule(cfg RandomConfig, rng *rand.Rand) (Schedule, error) {
	if cfg.Interval <= 0 || cfg.Duration < cfg.Interval {
		return Schedule{}, fmt.Errorf("duration %v must cover at least one interval %v", cfg.Duration, cfg.Interval)
	}
	slots := int(cfg.Duration / cfg.Interval)
	if cfg.MaxZones < 1 || cfg.MaxZones > slots {
		return Schedule{}, fmt.Errorf("max zones %d must be in [1, %d]", cfg.MaxZones, slots)
	}
	if cfg.MaxVolatility < 1 {
		return Schedule{}, fmt.Errorf("max volatility must be positive")
	}

	sched := Schedule{
		Interval: cfg.Interval,
		TimeMode: timeModes[rng.Intn(len(timeModes))],
	}

	nZones := 1 + rng.Intn(cfg.MaxZones)
	spans := make([]int, nZones)
	for i := range spans {
		spans[i] = 1
	}
	for range slots - nZones {
		spans[rng.Intn(nZones)]++
	}

	vol := cfg.MaxVolatility
	drawRange := func() Range {
		half := rng.Int63n(vol)
		var change int64
		if cfg.MaxMidChange > 0 {
			change = rng.Int63n(cfg.MaxMidChange)
		}
		if vol <= change {
			vol = change + 1
		}
		dir := int64(1)
		if rng.Intn(2) == 0 {
			dir = -1
		}
		mid := cfg.MidPrice + dir*change
		return Range{Min: mid - half, Max: mid + half}
	}

	from := 0.0
	for i, span := range spans {
		to := from + float64(span)*cfg.Interval
		if i == len(spans)-1 {
			// the last zone absorbs any remainder of the session
			to = max(to, cfg.Duration)
		}
		sched.Supply = append(sched.Supply, Zone{From: from, To: to, Ranges: []Range{drawRange()}, StepMode: stepModes[rng.Intn(len(stepModes))]})
		sched.Demand = append(sched.Demand, Zone{From: from, To: to, Ranges: []Range{drawRange()}, StepMode: stepModes[rng.Intn(len(stepModes))]})
		from = to
	}
	return sched, nil
}
