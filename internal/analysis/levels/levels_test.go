package levels

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// ── Level Builder ──

func TestBuildLevelsScoring(t *testing.T) {
	peaks := []models.DensityPeak{
		{Price: 110, Density: 0.02, Prominence: 0.015},
		{Price: 90, Density: 0.04, Prominence: 0.03},
		{Price: 100, Density: 0.01, Prominence: 0.001},
	}
	levels := BuildLevels(peaks, 0.04, BuildParams{CurrentPrice: 100, MeanATR: 2, BandMultiplier: 1.5, MaxLevels: 10})
	require.Len(t, levels, 3)

	assert.Equal(t, 90.0, levels[0].Price)
	assert.InDelta(t, 1.0, levels[0].Confidence, 1e-12)
	assert.Equal(t, models.Support, levels[0].Type)
	assert.InDelta(t, 10.0, levels[0].DistanceFromLast, 1e-12)

	assert.Equal(t, 110.0, levels[1].Price)
	assert.InDelta(t, 0.6*0.5+0.4*0.5, levels[1].Confidence, 1e-12)
	assert.Equal(t, models.Resistance, levels[1].Type)

	// Price equal to the current price is resistance.
	assert.Equal(t, models.Resistance, levels[2].Type)

	for _, l := range levels {
		assert.InDelta(t, 3.0, l.ConfidenceBand, 1e-12)
		assert.GreaterOrEqual(t, l.Confidence, 0.0)
		assert.LessOrEqual(t, l.Confidence, 1.0)
		assert.False(t, l.Performance.Tested())
	}
}

func TestBuildLevelsTruncatesAndFallsBack(t *testing.T) {
	peaks := []models.DensityPeak{
		{Price: 5000, Density: 1, Prominence: 1},
		{Price: 100, Density: 0.5, Prominence: 0.5},
		{Price: 50, Density: 0.2, Prominence: 0.1},
	}
	levels := BuildLevels(peaks, 0, BuildParams{CurrentPrice: 1, MaxLevels: 2})
	require.Len(t, levels, 2)
	// Zero max density leaves only the prominence term.
	assert.InDelta(t, 0.4, levels[0].Confidence, 1e-12)
	assert.InDelta(t, 5.0, levels[0].ConfidenceBand, 1e-12)
	assert.InDelta(t, 0.25, levels[1].ConfidenceBand, 1e-12)

	assert.Nil(t, BuildLevels(nil, 1, BuildParams{MaxLevels: 3}))
}

func TestBand(t *testing.T) {
	assert.Equal(t, 4.0, Band(100, 2, 2))
	assert.Equal(t, 0.25, Band(100, 0, 1))
	assert.InDelta(t, 4.5, Band(-4500, 2, -1), 1e-12)
}

func TestTruncate(t *testing.T) {
	lv := make([]models.Level, 4)
	assert.Len(t, Truncate(lv, 2), 2)
	assert.Len(t, Truncate(lv, 10), 4)
	assert.Empty(t, Truncate(lv, -1))
}

// ── EVT Tail Extrapolator ──

// gpdBars returns n bars whose highs are evenly spaced quantiles of a
// generalized Pareto distribution with location 100.
func gpdBars(n int, shape, scale float64) []models.Bar {
	bars := make([]models.Bar, n)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	for i := range bars {
		u := (float64(i) + 0.5) / float64(n)
		h := 100 - scale*math.Log(1-u)
		if shape != 0 {
			h = 100 + scale/shape*(math.Pow(1-u, -shape)-1)
		}
		bars[i] = models.Bar{Timestamp: start.Add(time.Duration(i) * time.Minute), Open: 100, High: h, Low: 99, Close: 100, Volume: 1}
	}
	return bars
}

func gpdQuantile(shape, scale, q float64) float64 {
	if shape == 0 {
		return 100 - scale*math.Log(q)
	}
	return 100 + scale/shape*(math.Pow(q, -shape)-1)
}

func TestEVTRecoversTailQuantile(t *testing.T) {
	cases := []struct {
		name  string
		shape float64
		prob  float64
	}{
		{"exponential tail", 0, 0.999},
		{"exponential tail shallow", 0, 0.99},
		{"pareto tail", 0.2, 0.995},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bars := gpdBars(1000, tc.shape, 10)
			levels := EVTResistances(bars, TailParams{
				TailProbabilities: []float64{tc.prob},
				ThresholdQuantile: 0.9,
				Band:              10,
				CurrentPrice:      100,
			})
			require.Len(t, levels, 1)

			want := gpdQuantile(tc.shape, 10, 1-tc.prob)
			assert.InDelta(t, want, levels[0].Price, 0.05*(want-100))
			assert.Equal(t, models.Resistance, levels[0].Type)
			assert.Equal(t, tc.prob, levels[0].Confidence)
			assert.Equal(t, 10.0, levels[0].ConfidenceBand)
		})
	}
}

func TestFitGPD(t *testing.T) {
	g, ok := FitGPD(gpdBars(1000, 0, 10), 0.9)
	require.True(t, ok)
	assert.Equal(t, 1000, g.N)
	assert.Equal(t, 99, g.Exceeded)
	assert.InDelta(t, 0.099, g.Rate, 1e-12)
	assert.InDelta(t, 0, g.Shape, 0.05)
	assert.InDelta(t, 10, g.Scale, 0.5)

	_, ok = FitGPD(gpdBars(49, 0, 10), 0.9)
	assert.False(t, ok, "too few bars")

	flat := gpdBars(100, 0, 10)
	for i := range flat {
		flat[i].High = 100
	}
	_, ok = FitGPD(flat, 0.9)
	assert.False(t, ok, "no exceedances")
}

func TestFitGPDRanksNonFiniteLowest(t *testing.T) {
	bars := gpdBars(200, 0, 10)
	bars[0].High = math.NaN()
	bars[1].High = math.Inf(1)
	g, ok := FitGPD(bars, 0.9)
	require.True(t, ok)
	assert.False(t, math.IsInf(g.MaxHigh, 0))
	assert.False(t, math.IsNaN(g.MaxHigh))
}

func TestEVTOrdersByProbabilityAndSkipsInvalid(t *testing.T) {
	bars := gpdBars(1000, 0, 10)
	levels := EVTResistances(bars, TailParams{
		TailProbabilities: []float64{0.95, 0.999, 1.0, -0.1, 0.5},
		ThresholdQuantile: 0.9,
		Band:              10,
		CurrentPrice:      100,
	})
	// 0.5 gives q=0.5 >= λ; 1.0 and -0.1 are out of range.
	require.Len(t, levels, 2)
	assert.Equal(t, 0.999, levels[0].Confidence)
	assert.Equal(t, 0.95, levels[1].Confidence)
	assert.Greater(t, levels[0].Price, levels[1].Price)
}

func TestEVTFallbackLevel(t *testing.T) {
	bars := gpdBars(1000, 0, 10)
	maxHigh := bars[len(bars)-1].High

	// Every projection is at or below the current price.
	levels := EVTResistances(bars, TailParams{
		TailProbabilities: []float64{0.95},
		ThresholdQuantile: 0.9,
		Band:              2,
		CurrentPrice:      maxHigh + 100,
	})
	require.Len(t, levels, 1)
	// Anchoring to the current price is capped at maxHigh + 5·band.
	assert.InDelta(t, maxHigh+10, levels[0].Price, 1e-9)
	assert.Equal(t, 0.95, levels[0].Confidence)

	// Ordinary fallback sits one band above the maximum high.
	levels = EVTResistances(bars, TailParams{
		TailProbabilities: []float64{0.5},
		ThresholdQuantile: 0.9,
		Band:              0,
		CurrentPrice:      100,
	})
	require.Len(t, levels, 1)
	assert.InDelta(t, maxHigh+1, levels[0].Price, 1e-9)
	assert.InDelta(t, math.Max(math.Abs(maxHigh+1)*0.001, 1), levels[0].ConfidenceBand, 1e-12)
}

func TestEVTRequiresData(t *testing.T) {
	assert.Empty(t, EVTResistances(gpdBars(1000, 0, 10), TailParams{ThresholdQuantile: 0.9}))
	assert.Empty(t, EVTResistances(gpdBars(20, 0, 10), TailParams{TailProbabilities: []float64{0.99}, ThresholdQuantile: 0.9}))
}

func TestTailProbabilities(t *testing.T) {
	assert.Nil(t, TailProbabilities(0.99, 0))

	probs := TailProbabilities(0.99, 3)
	require.Len(t, probs, 3)
	assert.InDelta(t, 0.99, probs[0], 1e-12)
	assert.InDelta(t, 0.9925, probs[1], 1e-12)
	assert.InDelta(t, 0.995, probs[2], 1e-12)

	low := TailProbabilities(0.5, 1)
	assert.Equal(t, []float64{0.8}, low)

	capped := TailProbabilities(0.9990, 4)
	require.Len(t, capped, 4)
	assert.InDelta(t, 0.999, capped[0], 1e-12)
	assert.InDelta(t, 0.9999, capped[3], 1e-12)
	for _, p := range capped {
		assert.LessOrEqual(t, p, 0.9999)
	}
}

// ── Regime Combiner ──

func TestCombineMergesWithinTolerance(t *testing.T) {
	primary := []models.Level{
		{Price: 100, Confidence: 1.0, ConfidenceBand: 2, Performance: models.PerformanceStats{Touches: 4, Tests: 4}},
		{Price: 200, Confidence: 0.5, ConfidenceBand: 2},
	}
	secondary := []models.Level{
		{Price: 104, Confidence: 1.0, ConfidenceBand: 4},
		{Price: 300, Confidence: 1.0, ConfidenceBand: 6},
	}

	out := Combine(primary, secondary, PrimaryWeight, SecondaryWeight, 5)
	require.Len(t, out, 3)

	merged := out[0]
	assert.InDelta(t, (100*0.7+104*0.3)/1.0, merged.Price, 1e-9)
	assert.InDelta(t, 1.0, merged.Confidence, 1e-12)
	assert.InDelta(t, 3.0, merged.ConfidenceBand, 1e-12)
	assert.False(t, merged.Performance.Tested())

	assert.InDelta(t, 200.0, out[1].Price, 1e-12)
	assert.InDelta(t, 0.35, out[1].Confidence, 1e-12)
	assert.InDelta(t, 300.0, out[2].Price, 1e-12)
	assert.InDelta(t, 0.3, out[2].Confidence, 1e-12)

	// Inputs are untouched.
	assert.Equal(t, 1.0, primary[0].Confidence)
	assert.Equal(t, 4, primary[0].Performance.Touches)
}

func TestCombineZeroConfidenceMatchKeepsExisting(t *testing.T) {
	primary := []models.Level{{Price: 100, Confidence: 0, ConfidenceBand: 2}}
	secondary := []models.Level{{Price: 101, Confidence: 0, ConfidenceBand: 8}}
	out := Combine(primary, secondary, PrimaryWeight, SecondaryWeight, 5)
	require.Len(t, out, 1)
	assert.Equal(t, 100.0, out[0].Price)
	assert.Equal(t, 2.0, out[0].ConfidenceBand)
}

func TestMergeTolerance(t *testing.T) {
	assert.Equal(t, 2.0, MergeTolerance(0.5, 1, 0))
	assert.Equal(t, 25.0, MergeTolerance(3, 4, 25))
	assert.Equal(t, 9.0, MergeTolerance(9, 4, 2))
}
