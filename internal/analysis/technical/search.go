package technical

import (
	"math"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// Relaxation schedules applied on top of the configured swing parameters.
// Both start at 1.0 and decrease; distance is the outer loop.
var (
	DistanceScales   = []float64{1.0, 0.75, 0.5, 0.35, 0.25, 0.15, 0.1}
	MultiplierScales = []float64{1.0, 0.85, 0.7, 0.55, 0.4, 0.3, 0.25, 0.2, 0.15, 0.1, 0.08, 0.05, 0.03, 0.02, 0.015}
)

// Floors for relaxed parameters.
const (
	MinDistanceFloor    = 2.0
	MultiplierFloor     = 0.01
	MinTargetSwingCount = 8
)

// SearchResult is the outcome of an adaptive swing search.
type SearchResult struct {
	Swings    []models.SwingPoint
	Params    SwingParams // parameters that produced Swings
	Satisfied bool        // true when Swings reached the target count
	Attempts  int
}

// Relaxed reports whether the accepted parameters differ from base.
func (r SearchResult) Relaxed(base SwingParams) bool {
	return math.Abs(r.Params.ATRMultiplier-base.ATRMultiplier) > epsilon64 ||
		math.Abs(r.Params.MinDistance-base.MinDistance) > epsilon64
}

const epsilon64 = 2.220446049250313e-16

// Candidates lists the relaxed parameter tuples in evaluation order.
func Candidates(base SwingParams) []SwingParams {
	out := make([]SwingParams, 0, len(DistanceScales)*len(MultiplierScales))
	for _, ds := range DistanceScales {
		dist := math.Max(base.MinDistance*ds, MinDistanceFloor)
		for _, ms := range MultiplierScales {
			out = append(out, SwingParams{
				ATRMultiplier: math.Max(base.ATRMultiplier*ms, MultiplierFloor),
				MinDistance:   dist,
			})
		}
	}
	return out
}

// TargetSwingCount is the pivot count that stops the search.
func TargetSwingCount(minClusterPoints int) int {
	if minClusterPoints > MinTargetSwingCount {
		return minClusterPoints
	}
	return MinTargetSwingCount
}

// SearchSwings runs DetectSwings over the relaxation schedule and returns the
// first candidate yielding at least target swings. When none qualifies the
// candidate with the most swings is returned (earliest wins ties) with
// Satisfied=false; callers decide whether that is enough.
func SearchSwings(bars []models.Bar, atr []float64, base SwingParams, target int) SearchResult {
	best := SearchResult{Params: base}
	for i, params := range Candidates(base) {
		swings := DetectSwings(bars, atr, params)
		if len(swings) >= target {
			return SearchResult{Swings: swings, Params: params, Satisfied: true, Attempts: i + 1}
		}
		if len(swings) > len(best.Swings) {
			best.Swings = swings
			best.Params = params
		}
		best.Attempts = i + 1
	}
	return best
}
