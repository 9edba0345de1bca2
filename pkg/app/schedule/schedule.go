package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrNoTraders = errors.New("schedule needs at least one buyer and one seller")
	ErrNoZone    = errors.New("time not covered by any schedule zone")
)

// TimeMode controls when customer orders of one replenishment cycle arrive.
type TimeMode string

const (
	Periodic    TimeMode = "periodic"     // everyone at the end of the interval
	DripFixed   TimeMode = "drip-fixed"   // evenly spaced
	DripJitter  TimeMode = "drip-jitter"  // evenly spaced plus jitter
	DripPoisson TimeMode = "drip-poisson" // exponential inter-arrival times
)

// StepMode controls how limit prices are spread across a range.
type StepMode string

const (
	Fixed    StepMode = "fixed"
	Jittered StepMode = "jittered"
	Random   StepMode = "random"
)

var (
	timeModes = []TimeMode{Periodic, DripPoisson, DripJitter, DripFixed}
	stepModes = []StepMode{Fixed, Random, Jittered}
)

func ParseTimeMode(s string) (TimeMode, error) {
	for _, m := range timeModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown time mode %q", s)
}

func ParseStepMode(s string) (StepMode, error) {
	for _, m := range stepModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown step mode %q", s)
}

// OffsetFunc shifts a range bound as a function of issue time.
type OffsetFunc func(t float64) float64

// Range is a linear supply or demand curve between Min and Max. OffsetMin,
// when set, shifts both ends; OffsetMax, when also set, overrides the
// shift of the upper end.
type Range struct {
	Min, Max  int64
	OffsetMin OffsetFunc `json:"-"`
	OffsetMax OffsetFunc `json:"-"`
}

// Zone applies its ranges to orders generated in [From, To).
type Zone struct {
	From     float64
	To       float64
	Ranges   []Range
	StepMode StepMode
}

func (z Zone) contains(t float64) bool { return z.From <= t && t < z.To }

// Schedule is the exogenous supply and demand of a session.
type Schedule struct {
	Supply   []Zone
	Demand   []Zone
	Interval float64 // seconds per replenishment cycle
	TimeMode TimeMode
}

// Validate checks schedule sanity
func (s Schedule) Validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", s.Interval)
	}
	if _, err := ParseTimeMode(string(s.TimeMode)); err != nil {
		return err
	}
	sides := []struct {
		name  string
		zones []Zone
	}{{"supply", s.Supply}, {"demand", s.Demand}}
	for _, side := range sides {
		name, zones := side.name, side.zones
		if len(zones) == 0 {
			return fmt.Errorf("%s schedule has no zones", name)
		}
		for i, z := range zones {
			if len(z.Ranges) == 0 {
				return fmt.Errorf("%s zone %d has no ranges", name, i)
			}
			if z.To <= z.From {
				return fmt.Errorf("%s zone %d is empty: [%v, %v)", name, i, z.From, z.To)
			}
			if _, err := ParseStepMode(string(z.StepMode)); err != nil {
				return fmt.Errorf("%s zone %d: %w", name, i, err)
			}
		}
	}
	return nil
}

// zoneAt returns the first zone covering t. Where zones overlap, the one
// listed earliest wins and later ones are never consulted for that time.
func zoneAt(zones []Zone, t float64) (Zone, error) {
	for _, z := range zones {
		if z.contains(t) {
			return z, nil
		}
	}
	return Zone{}, fmt.Errorf("%w: t=%.2f", ErrNoZone, t)
}

// Simple builds a single-zone schedule over [start, end) with the same
// step mode on both sides.
func Simple(start, end float64, supply, demand Range, step StepMode, interval float64, tm TimeMode) Schedule {
	return Schedule{
		Supply:   []Zone{{From: start, To: end, Ranges: []Range{supply}, StepMode: step}},
		Demand:   []Zone{{From: start, To: end, Ranges: []Range{demand}, StepMode: step}},
		Interval: interval,
		TimeMode: tm,
	}
}
