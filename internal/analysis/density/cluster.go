// Package density groups swing prices and estimates where they concentrate.
//
// The package holds three stages: a 1-D single-link clusterer that removes
// isolated pivots, a weighted multi-bandwidth Gaussian KDE sampled on a
// uniform price grid, and a peak detector with prominence scoring.
package density

import (
	"math"
	"sort"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// ClusterResult holds the emitted clusters and the swings that belong to them.
type ClusterResult struct {
	Clusters []models.PriceCluster
	Inliers  []models.SwingPoint // ascending by price
}

// AutoEpsilon estimates a neighbourhood radius as the median gap between
// consecutive sorted swing prices. When that median is not positive it falls
// back to 0.1% of the largest price. Fewer than two swings yield 0.
func AutoEpsilon(swings []models.SwingPoint) float64 {
	if len(swings) < 2 {
		return 0
	}

	prices := make([]float64, len(swings))
	for i, sp := range swings {
		prices[i] = sp.Price
	}
	sort.Float64s(prices)

	diffs := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		diffs = append(diffs, math.Abs(prices[i]-prices[i-1]))
	}

	eps := median(diffs)
	if eps > 0 && !math.IsNaN(eps) && !math.IsInf(eps, 0) {
		return eps
	}
	maxPrice := prices[len(prices)-1]
	return 0.001 * math.Max(math.Abs(maxPrice), 1)
}

// Cluster chains swings sorted by price, opening a new run whenever the next
// price is more than eps away from the last member of the current run. Runs
// with fewer than minPoints members are discarded.
//
// A non-positive or non-finite eps produces an empty result.
func Cluster(swings []models.SwingPoint, eps float64, minPoints int) ClusterResult {
	var res ClusterResult
	if len(swings) == 0 || eps <= 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		return res
	}

	sorted := make([]models.SwingPoint, len(swings))
	copy(sorted, swings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	emit := func(run []models.SwingPoint) {
		if len(run) < minPoints {
			return
		}
		res.Clusters = append(res.Clusters, summarize(len(res.Clusters), run))
		res.Inliers = append(res.Inliers, run...)
	}

	start := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Price-sorted[i-1].Price > eps {
			emit(sorted[start:i])
			start = i
		}
	}
	emit(sorted[start:])

	return res
}

// summarize builds the cluster record for one run.
func summarize(id int, run []models.SwingPoint) models.PriceCluster {
	var volume, weighted, plain float64
	for _, sp := range run {
		volume += sp.Bar.Volume
		weighted += sp.Price * sp.Bar.Volume
		plain += sp.Price
	}

	rep := plain / float64(len(run))
	if volume > 0 {
		rep = weighted / volume
	}

	return models.PriceCluster{
		ID:                  id,
		RepresentativePrice: rep,
		TotalVolume:         volume,
		SwingCount:          len(run),
	}
}

// median of an unsorted slice; the slice is sorted in place.
func median(v []float64) float64 {
	n := len(v)
	if n == 0 {
		return 0
	}
	sort.Float64s(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
