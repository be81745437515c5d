package pipeline

import (
	"time"

	"github.com/seenimoa/levelrecon/internal/backtest"
)

// Recency half-lives in days.
const (
	DefaultHalfLife = 30.0
	StrongHalfLife  = 15.0

	// historicalHalfLifeMult stretches the half-life for the full-history
	// regime analysis.
	historicalHalfLifeMult = 2.0
)

// EVTConfig controls tail extrapolation above the observed highs.
type EVTConfig struct {
	Enabled           bool
	LookbackDays      int     // 0 = whole analysis window
	TailProbability   float64 // first rung of the probability ladder
	ThresholdQuantile float64
	MaxLevels         int
}

// Config holds the numeric parameters of one pipeline run.
type Config struct {
	ATRPeriod        int
	ATRMultiplier    float64
	MinSwingDistance float64
	LookbackDays     int // 0 = full history first
	RegimeAware      bool
	StrongRecency    bool

	EpsFactor float64
	MinPoints int
	KDEPoints int

	ConfidenceBandATR float64
	MaxLevels         int

	EVT      EVTConfig
	Backtest backtest.Config

	Location *time.Location // zone for logged timestamps; nil = US Eastern
}

// DefaultConfig returns the stock parameter set.
func DefaultConfig() Config {
	return Config{
		ATRPeriod:         14,
		ATRMultiplier:     0.3,
		MinSwingDistance:  25.0,
		LookbackDays:      90,
		EpsFactor:         1.0,
		MinPoints:         3,
		KDEPoints:         400,
		ConfidenceBandATR: 1.0,
		MaxLevels:         12,
		EVT: EVTConfig{
			LookbackDays:      30,
			TailProbability:   0.99,
			ThresholdQuantile: 0.9,
			MaxLevels:         2,
		},
		Backtest: backtest.DefaultConfig(),
	}
}

// MaxSlots is the level budget shared by density and tail levels.
func (c Config) MaxSlots() int {
	return c.MaxLevels + max(c.EVT.MaxLevels, 0)
}

// HalfLife returns the recency half-life for the recent window.
func (c Config) HalfLife() float64 {
	if c.StrongRecency {
		return StrongHalfLife
	}
	return DefaultHalfLife
}

// HistoricalHalfLife returns the half-life used by the regime analysis.
func (c Config) HistoricalHalfLife() float64 {
	return c.HalfLife() * historicalHalfLifeMult
}

// TargetSwings is the swing count at which a lookback window is accepted.
func (c Config) TargetSwings() int {
	return max(c.MinPoints, 8)
}
