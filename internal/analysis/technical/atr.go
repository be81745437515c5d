// Package technical implements the volatility and pivot primitives of the
// level pipeline. All functions operate on []models.Bar slices in
// chronological order and never mutate their input.
package technical

import (
	"math"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// TrueRange returns the per-bar true range series.
// The first bar uses High-Low only; negative ranges are clamped to zero.
func TrueRange(bars []models.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		v := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			v = math.Max(v, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		tr[i] = math.Max(v, 0)
	}
	return tr
}

// ATR calculates a Wilder-smoothed Average True Range with one value per bar.
//
// The first `period` true ranges seed the series with their simple mean;
// indices before period-1 are back-filled with that seed. A series shorter
// than the period degenerates to a constant equal to the mean true range.
// Returns nil on empty input or a non-positive period.
func ATR(bars []models.Bar, period int) []float64 {
	n := len(bars)
	if n == 0 || period <= 0 {
		return nil
	}

	tr := TrueRange(bars)
	atr := make([]float64, n)

	if n < period {
		mean := avg(tr)
		for i := range atr {
			atr[i] = mean
		}
		return atr
	}

	// Seed = simple average of the first `period` true ranges.
	seed := avg(tr[:period])
	atr[period-1] = seed

	// Wilder's smoothing.
	for i := period; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}

	for i := 0; i < period-1; i++ {
		atr[i] = seed
	}

	return atr
}

// MeanATR returns the arithmetic mean of an ATR series, 0 when empty.
func MeanATR(atr []float64) float64 {
	return avg(atr)
}

// --- helper functions ---

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}
