package levels

import (
	"math"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// Regime weights applied when merging recent and full-history level sets.
const (
	PrimaryWeight   = 0.7
	SecondaryWeight = 0.3
)

// minMergeTolerance floors MergeTolerance.
const minMergeTolerance = 2.0

// MergeTolerance is the price distance under which a secondary level folds
// into an existing one.
func MergeTolerance(recentATR, historicalATR, minSwingDistance float64) float64 {
	return math.Max(math.Max(recentATR, historicalATR), math.Max(minSwingDistance, minMergeTolerance))
}

// Combine merges a primary and secondary level set.
//
// Confidences are scaled by the regime weights and performance is reset.
// Each secondary level folds into the first combined level within tolerance
// (confidence-weighted price, summed confidence, averaged band) or is
// appended. The result is ordered by descending confidence. Inputs are not
// modified.
func Combine(primary, secondary []models.Level, primaryWeight, secondaryWeight, tolerance float64) []models.Level {
	combined := make([]models.Level, 0, len(primary)+len(secondary))
	for _, lvl := range primary {
		lvl.Confidence *= primaryWeight
		lvl.Performance = models.PerformanceStats{}
		combined = append(combined, lvl)
	}

	for _, lvl := range secondary {
		lvl.Confidence *= secondaryWeight
		lvl.Performance = models.PerformanceStats{}

		merged := false
		for i := range combined {
			existing := &combined[i]
			if math.Abs(existing.Price-lvl.Price) > tolerance {
				continue
			}
			if total := existing.Confidence + lvl.Confidence; total > 0 {
				existing.Price = (existing.Price*existing.Confidence + lvl.Price*lvl.Confidence) / total
				existing.Confidence = total
				existing.ConfidenceBand = (existing.ConfidenceBand + lvl.ConfidenceBand) * 0.5
			}
			merged = true
			break
		}
		if !merged {
			combined = append(combined, lvl)
		}
	}

	models.SortByConfidence(combined)
	return combined
}
