// Package levels turns density peaks and tail fits into priced
// support/resistance levels and merges level sets across regimes.
package levels

import (
	"math"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// Confidence blend weights for density and prominence.
const (
	DensityWeight    = 0.6
	ProminenceWeight = 0.4
)

// BuildParams configures BuildLevels.
type BuildParams struct {
	CurrentPrice   float64
	MeanATR        float64
	BandMultiplier float64 // confidence band = MeanATR * BandMultiplier
	MaxLevels      int
}

// BuildLevels scores each peak and returns at most MaxLevels levels ordered
// by descending confidence.
//
// Confidence is 0.6 × density/maxDensity + 0.4 × prominence/maxProminence,
// each term clamped to [0,1]. The band falls back to max(0.1% of price, 0.25)
// when the ATR band is not positive. Peaks at or above the current price are
// resistance; the rest are support.
func BuildLevels(peaks []models.DensityPeak, maxDensity float64, p BuildParams) []models.Level {
	if len(peaks) == 0 {
		return nil
	}

	maxProm := 0.0
	for _, pk := range peaks {
		maxProm = math.Max(maxProm, pk.Prominence)
	}
	maxProm = math.Max(maxProm, 1e-9)

	out := make([]models.Level, 0, len(peaks))
	for _, pk := range peaks {
		densityScore := 0.0
		if maxDensity > 0 {
			densityScore = clamp01(pk.Density / maxDensity)
		}
		promScore := clamp01(pk.Prominence / maxProm)

		out = append(out, models.Level{
			Price:            pk.Price,
			Density:          pk.Density,
			Confidence:       DensityWeight*densityScore + ProminenceWeight*promScore,
			ConfidenceBand:   Band(pk.Price, p.MeanATR, p.BandMultiplier),
			Type:             Classify(pk.Price, p.CurrentPrice),
			DistanceFromLast: math.Abs(pk.Price - p.CurrentPrice),
		})
	}

	models.SortByConfidence(out)
	return Truncate(out, p.MaxLevels)
}

// Band returns the ± tolerance for a level at price.
func Band(price, meanATR, multiplier float64) float64 {
	if b := meanATR * multiplier; b > 0 {
		return b
	}
	return math.Max(math.Abs(price)*0.001, 0.25)
}

// Classify types a level relative to the current price.
func Classify(price, current float64) models.LevelType {
	if price >= current {
		return models.Resistance
	}
	return models.Support
}

// Truncate caps levels at max entries. A negative max keeps nothing.
func Truncate(levels []models.Level, max int) []models.Level {
	if max < 0 {
		max = 0
	}
	if len(levels) > max {
		return levels[:max]
	}
	return levels
}

// RefreshDistances recomputes DistanceFromLast against price.
func RefreshDistances(levels []models.Level, price float64) {
	for i := range levels {
		levels[i].DistanceFromLast = math.Abs(levels[i].Price - price)
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
