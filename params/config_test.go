package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("SESSION_END", "120")
	t.Setenv("SEED", "42")
	t.Setenv("BUYERS", "ZIC:3")
	t.Setenv("SUPPLY_RANGE", "60-140")
	t.Setenv("TICK_PACE_MS", "5")
	t.Setenv("VERBOSE", "true")
	t.Setenv("MAX_PRICE", "not-a-number")

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, 120.0, cfg.Session.End)
	assert.Equal(t, int64(42), cfg.Session.Seed)
	assert.Equal(t, "ZIC:3", cfg.Traders.Buyers)
	assert.Equal(t, int64(60), cfg.Schedule.SupplyMin)
	assert.Equal(t, int64(140), cfg.Schedule.SupplyMax)
	assert.Equal(t, 5*time.Millisecond, cfg.Session.Pace)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, int64(1000), cfg.Market.MaxPrice, "malformed value keeps default")
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SELLERS=AA:2\nLOBSIM_TEST_ONLY=1\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SELLERS")
		os.Unsetenv("LOBSIM_TEST_ONLY")
	})

	cfg := LoadFromEnv(path)
	assert.Equal(t, "AA:2", cfg.Traders.Sellers)
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		in     string
		lo, hi int64
		ok     bool
	}{
		{"50-150", 50, 150, true},
		{" 10 - 20 ", 10, 20, true},
		{"150-50", 0, 0, false},
		{"50", 0, 0, false},
		{"a-b", 0, 0, false},
	}
	for _, c := range cases {
		lo, hi, ok := parseRange(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.lo, lo, c.in)
		assert.Equal(t, c.hi, hi, c.in)
	}
}
