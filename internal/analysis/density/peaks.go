package density

import (
	"math"
	"sort"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// DetectPeaks returns the interior grid points whose density strictly
// exceeds both neighbours, ordered by descending prominence.
//
// Prominence is measured against the lower of the two adjacent samples.
func DetectPeaks(d models.DensityAnalysis) []models.DensityPeak {
	grid := d.Grid
	if len(grid) < 3 {
		return nil
	}

	var peaks []models.DensityPeak
	for i := 1; i < len(grid)-1; i++ {
		prev, cur, next := grid[i-1].Density, grid[i].Density, grid[i+1].Density
		if cur <= prev || cur <= next {
			continue
		}
		base := math.Min(math.Min(prev, cur), math.Min(next, cur))
		peaks = append(peaks, models.DensityPeak{
			Price:      grid[i].Price,
			Density:    cur,
			Prominence: cur - base,
		})
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Prominence > peaks[j].Prominence
	})
	return peaks
}
