package density

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// Bandwidth scales applied to Silverman's base bandwidth.
var BandwidthScales = []float64{0.75, 1.0, 1.5}

const (
	minStdDev       = 1e-6
	bandwidthDedup  = 1e-6
	gridMarginRatio = 0.15
)

var invSqrt2Pi = 1 / math.Sqrt(2*math.Pi)

// Estimate samples a volume-weighted Gaussian KDE of swing prices on a
// uniform grid of gridPoints prices.
//
// Weights are max(volume, 1). The base bandwidth follows Silverman's rule
// over the weighted population standard deviation, and the density at each
// grid point is the average of the kernel mixtures over BandwidthScales.
// The grid spans the price range plus 15% of max(range, std dev) on each
// side. Fewer than two finite prices or fewer than three grid points yield
// an empty analysis.
func Estimate(swings []models.SwingPoint, gridPoints int) models.DensityAnalysis {
	if len(swings) == 0 || gridPoints < 3 {
		return models.DensityAnalysis{}
	}

	prices := make([]float64, 0, len(swings))
	weights := make([]float64, 0, len(swings))
	minPrice, maxPrice := math.Inf(1), math.Inf(-1)
	for _, sp := range swings {
		if math.IsNaN(sp.Price) || math.IsInf(sp.Price, 0) {
			continue
		}
		prices = append(prices, sp.Price)
		weights = append(weights, math.Max(sp.Bar.Volume, 1))
		minPrice = math.Min(minPrice, sp.Price)
		maxPrice = math.Max(maxPrice, sp.Price)
	}
	if len(prices) < 2 {
		return models.DensityAnalysis{}
	}

	_, variance := stat.PopMeanVariance(prices, weights)
	stdDev := math.Max(math.Sqrt(math.Max(variance, 0)), minStdDev)
	bandwidths := Bandwidths(stdDev, len(prices))

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}

	margin := math.Max(math.Abs(maxPrice-minPrice), stdDev) * gridMarginRatio
	lo, hi := minPrice-margin, maxPrice+margin
	step := (hi - lo) / float64(gridPoints-1)

	kernels := bandwidths
	if len(kernels) == 0 {
		kernels = []float64{stdDev}
	}

	out := models.DensityAnalysis{
		Grid:       make([]models.DensityPoint, gridPoints),
		Bandwidths: bandwidths,
	}
	for i := 0; i < gridPoints; i++ {
		price := lo + step*float64(i)
		var d float64
		for _, bw := range kernels {
			d += kernelSum(price, prices, weights, bw, totalWeight)
		}
		d /= float64(len(kernels))

		out.Grid[i] = models.DensityPoint{Price: price, Density: d}
		out.MaxDensity = math.Max(out.MaxDensity, d)
	}
	return out
}

// Bandwidths returns the ascending, de-duplicated bandwidth set for a sample
// of n prices with the given standard deviation. Non-finite or non-positive
// values are dropped.
func Bandwidths(stdDev float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	base := 1.06 * stdDev * math.Pow(float64(n), -0.2)

	bws := make([]float64, 0, len(BandwidthScales))
	for _, s := range BandwidthScales {
		bw := base * s
		if bw > 0 && !math.IsInf(bw, 0) && !math.IsNaN(bw) {
			bws = append(bws, bw)
		}
	}
	sort.Float64s(bws)

	out := bws[:0]
	for _, bw := range bws {
		if len(out) > 0 && math.Abs(out[len(out)-1]-bw) < bandwidthDedup {
			continue
		}
		out = append(out, bw)
	}
	return out
}

// kernelSum is the normalized weighted Gaussian mixture at price.
func kernelSum(price float64, points, weights []float64, bw, totalWeight float64) float64 {
	if bw <= 0 {
		return 0
	}
	var sum float64
	for i, p := range points {
		z := (price - p) / bw
		sum += weights[i] * math.Exp(-0.5*z*z)
	}
	return sum * invSqrt2Pi / (totalWeight * bw)
}
