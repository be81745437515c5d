package levels

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/levelrecon/pkg/models"
)

const (
	// MinEVTBars is the smallest sample the tail fit accepts.
	MinEVTBars = 50
	// MinExceedances is the smallest peaks-over-threshold sample.
	MinExceedances = 5

	shapeZero    = 1e-6
	capBandMult  = 5.0
	ladderFloor  = 0.8
	ladderCeil   = 0.9999
	ladderStep   = 0.0025
	defaultFirst = 0.99
)

// TailParams configures EVTResistances.
type TailParams struct {
	TailProbabilities []float64 // upper-tail probabilities p in (0,1)
	ThresholdQuantile float64   // position of the POT threshold in the sorted highs
	Band              float64   // confidence band for emitted levels
	CurrentPrice      float64
}

// GPD is a generalized Pareto fit over threshold exceedances.
type GPD struct {
	Threshold float64
	Shape     float64 // ξ
	Scale     float64 // σ
	Rate      float64 // λ = exceedances / n
	MaxHigh   float64
	N         int
	Exceeded  int
}

// Quantile returns the price exceeded with upper-tail probability q < Rate.
func (g GPD) Quantile(q float64) float64 {
	ratio := g.Rate / q
	if math.Abs(g.Shape) <= shapeZero {
		return g.Threshold + g.Scale*math.Log(ratio)
	}
	return g.Threshold + (g.Scale/g.Shape)*(math.Pow(ratio, g.Shape)-1)
}

// FitGPD fits a generalized Pareto tail to bar highs by the method of
// moments. ok is false when there are fewer than MinEVTBars bars or fewer
// than MinExceedances exceedances above the threshold.
func FitGPD(bars []models.Bar, thresholdQuantile float64) (GPD, bool) {
	n := len(bars)
	if n < MinEVTBars {
		return GPD{}, false
	}

	highs := make([]float64, n)
	for i, b := range bars {
		highs[i] = b.High
	}
	// Non-finite highs rank below every finite value.
	sort.SliceStable(highs, func(i, j int) bool {
		fi, fj := finite(highs[i]), finite(highs[j])
		switch {
		case fi && fj:
			return highs[i] < highs[j]
		case fj:
			return true
		default:
			return false
		}
	})

	idx := int(math.Floor(float64(n) * thresholdQuantile))
	idx = min(max(idx, 0), n-1)
	threshold := highs[idx]

	var excess []float64
	for _, h := range highs {
		if h > threshold {
			excess = append(excess, h-threshold)
		}
	}
	if len(excess) < MinExceedances {
		return GPD{}, false
	}

	g := GPD{
		Threshold: threshold,
		Rate:      float64(len(excess)) / float64(n),
		MaxHigh:   highs[n-1],
		N:         n,
		Exceeded:  len(excess),
	}

	mean, variance := stat.MeanVariance(excess, nil)
	g.Shape, g.Scale = 0, math.Max(mean, 1e-6)
	if variance > 0 {
		xi := 0.5 * (1 - mean*mean/variance)
		if !finite(xi) {
			xi = 0
		}
		sigma := mean * (1 - xi)
		if finite(sigma) && sigma > 0 {
			g.Shape, g.Scale = xi, sigma
		}
	}
	return g, true
}

// EVTResistances projects resistance levels beyond the observed highs from
// a peaks-over-threshold fit.
//
// Each tail probability p with 1-p in (0, λ) yields one level priced at the
// fitted quantile, capped at maxHigh + 5·max(band, 1) and dropped if not above
// both the threshold and the current price. When no probability survives a
// single fallback level just above the maximum high is emitted. Levels are
// resistance only, ordered by descending confidence (= p).
func EVTResistances(bars []models.Bar, p TailParams) []models.Level {
	if len(p.TailProbabilities) == 0 {
		return nil
	}
	g, ok := FitGPD(bars, p.ThresholdQuantile)
	if !ok {
		return nil
	}

	step := math.Max(p.Band, 1)
	ceiling := g.MaxHigh + step*capBandMult

	var out []models.Level
	for _, prob := range p.TailProbabilities {
		if prob < 0 || prob >= 1 {
			continue
		}
		q := 1 - prob
		if q <= 0 || q >= g.Rate {
			continue
		}
		price := math.Min(g.Quantile(q), ceiling)
		if !finite(price) || price <= g.Threshold || price <= p.CurrentPrice {
			continue
		}
		out = append(out, tailLevel(price, prob, p))
	}

	if len(out) == 0 {
		price := math.Min(g.MaxHigh+step, ceiling)
		if price <= p.CurrentPrice {
			price = math.Min(p.CurrentPrice+step, ceiling)
		}
		if finite(price) {
			out = append(out, tailLevel(price, p.TailProbabilities[0], p))
		}
	}

	models.SortByConfidence(out)
	return out
}

func tailLevel(price, prob float64, p TailParams) models.Level {
	band := p.Band
	if band <= 0 {
		band = math.Max(math.Abs(price)*0.001, 1)
	}
	return models.Level{
		Price:            price,
		Confidence:       clamp01(prob),
		ConfidenceBand:   band,
		Type:             models.Resistance,
		DistanceFromLast: math.Abs(price - p.CurrentPrice),
	}
}

// TailProbabilities builds a ladder of count probabilities starting at
// start clamped to [0.8, 0.9999] and rising by 0.0025, capped at 0.9999.
func TailProbabilities(start float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if math.IsNaN(start) {
		start = defaultFirst
	}
	cur := math.Min(math.Max(start, ladderFloor), ladderCeil)

	probs := make([]float64, 0, count)
	for len(probs) < count {
		capped := math.Min(cur, ladderCeil)
		probs = append(probs, capped)
		if capped < ladderCeil {
			cur += ladderStep
		}
	}
	return probs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
