package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Session struct {
	Start   float64
	End     float64
	Seed    int64 // 0 seeds from the wall clock
	Shuffle bool
	// Pace is the wall-clock delay between ticks. Zero runs as fast as
	// possible; a few milliseconds makes the monitor watchable.
	Pace time.Duration
}

type Market struct {
	MinPrice int64
	MaxPrice int64
	TickSize int64
}

type Traders struct {
	Buyers   string // strategy mix, e.g. "AA:4,ZIP:4"
	Sellers  string
	MixNoise float64
}

type Schedule struct {
	Interval  float64
	TimeMode  string
	StepMode  string
	SupplyMin int64
	SupplyMax int64
	DemandMin int64
	DemandMax int64
	Random    bool
}

type Output struct {
	TapeDB  string
	TapeCSV string
	APIAddr string // empty disables the monitor
	LogFile string
	Verbose bool
}

type Config struct {
	Session  Session
	Market   Market
	Traders  Traders
	Schedule Schedule
	Output   Output
}

func Default() Config {
	return Config{
		Session: Session{
			Start: 0,
			End:   600,
		},
		Market: Market{
			MinPrice: 1,
			MaxPrice: 1000,
			TickSize: 1,
		},
		Traders: Traders{
			Buyers:  "AA:4,GDX:4,ZIP:4,ZIC:4",
			Sellers: "AA:4,GDX:4,ZIP:4,ZIC:4",
		},
		Schedule: Schedule{
			Interval:  30,
			TimeMode:  "drip-poisson",
			StepMode:  "fixed",
			SupplyMin: 50,
			SupplyMax: 150,
			DemandMin: 50,
			DemandMax: 150,
		},
		Output: Output{
			TapeDB: "data/tape",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults. Malformed values keep the default.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	setFloat(&cfg.Session.Start, "SESSION_START")
	setFloat(&cfg.Session.End, "SESSION_END")
	setInt(&cfg.Session.Seed, "SEED")
	setBool(&cfg.Session.Shuffle, "SHUFFLE_TRADERS")
	if ms := os.Getenv("TICK_PACE_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil {
			cfg.Session.Pace = time.Duration(n) * time.Millisecond
		}
	}

	setInt(&cfg.Market.MinPrice, "MIN_PRICE")
	setInt(&cfg.Market.MaxPrice, "MAX_PRICE")
	setInt(&cfg.Market.TickSize, "TICK_SIZE")

	cfg.Traders.Buyers = getEnv("BUYERS", cfg.Traders.Buyers)
	cfg.Traders.Sellers = getEnv("SELLERS", cfg.Traders.Sellers)
	setFloat(&cfg.Traders.MixNoise, "MIX_NOISE")

	setFloat(&cfg.Schedule.Interval, "SCHEDULE_INTERVAL")
	cfg.Schedule.TimeMode = getEnv("SCHEDULE_TIMEMODE", cfg.Schedule.TimeMode)
	cfg.Schedule.StepMode = getEnv("SCHEDULE_STEPMODE", cfg.Schedule.StepMode)
	if lo, hi, ok := parseRange(os.Getenv("SUPPLY_RANGE")); ok {
		cfg.Schedule.SupplyMin, cfg.Schedule.SupplyMax = lo, hi
	}
	if lo, hi, ok := parseRange(os.Getenv("DEMAND_RANGE")); ok {
		cfg.Schedule.DemandMin, cfg.Schedule.DemandMax = lo, hi
	}
	setBool(&cfg.Schedule.Random, "RANDOM_SCHEDULE")

	cfg.Output.TapeDB = getEnv("TAPE_DB", cfg.Output.TapeDB)
	cfg.Output.TapeCSV = getEnv("TAPE_CSV", cfg.Output.TapeCSV)
	cfg.Output.APIAddr = getEnv("API_ADDR", cfg.Output.APIAddr)
	cfg.Output.LogFile = getEnv("LOG_FILE", cfg.Output.LogFile)
	setBool(&cfg.Output.Verbose, "VERBOSE")

	return cfg
}

// parseRange reads "lo-hi".
func parseRange(s string) (int64, int64, bool) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return 0, 0, false
	}
	l, err1 := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	h, err2 := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err1 != nil || err2 != nil || h < l {
		return 0, 0, false
	}
	return l, h, true
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
