package technical

import (
	"math"
	"sort"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// minThreshold keeps the confirmation distance strictly positive.
const minThreshold = 1e-6

// SwingParams controls zig-zag sensitivity.
type SwingParams struct {
	ATRMultiplier float64 // threshold = |ATR * multiplier|, floored by MinDistance
	MinDistance   float64 // minimum absolute price move to confirm a pivot
}

// Threshold returns the confirmation distance for a bar with the given ATR.
func (p SwingParams) Threshold(atr float64) float64 {
	return math.Max(math.Max(math.Abs(atr*p.ATRMultiplier), p.MinDistance), minThreshold)
}

type scanState int

const (
	awaitingHigh scanState = iota // last confirmed pivot was a Low
	awaitingLow                   // last confirmed pivot was a High
)

type candidate struct {
	price float64
	index int
}

// swingScanner is the running accumulator of the forward zig-zag pass.
type swingScanner struct {
	state     scanState
	lastIndex int
	lastPrice float64
	high      candidate
	low       candidate
	swings    []models.SwingPoint
}

func newSwingScanner(first models.Bar, firstATR float64) *swingScanner {
	s := &swingScanner{
		state:     awaitingHigh,
		lastIndex: 0,
		lastPrice: first.Low,
		high:      candidate{price: first.High},
		low:       candidate{price: first.Low},
	}
	// Every series starts with an implicit Low pivot at the first bar.
	s.push(models.SwingPoint{Index: 0, Bar: first, Price: first.Low, Type: models.SwingLow, ATR: firstATR})
	return s
}

// observe extends the running extremes with bar idx.
func (s *swingScanner) observe(idx int, bar models.Bar) {
	if bar.High >= s.high.price {
		s.high = candidate{price: bar.High, index: idx}
	}
	if bar.Low <= s.low.price {
		s.low = candidate{price: bar.Low, index: idx}
	}
}

// confirm applies the transition guard for the current state.
func (s *swingScanner) confirm(bars []models.Bar, atr []float64, threshold, barATR float64) {
	switch s.state {
	case awaitingHigh:
		if s.high.price-s.lastPrice < threshold || s.high.index <= s.lastIndex {
			return
		}
		pivot := bars[s.high.index]
		s.push(models.SwingPoint{
			Index: s.high.index,
			Bar:   pivot,
			Price: pivot.High,
			Type:  models.SwingHigh,
			ATR:   atrAt(atr, s.high.index, barATR),
		})
		s.state = awaitingLow
		s.lastIndex = s.high.index
		s.lastPrice = pivot.High
		s.low = candidate{price: pivot.Low, index: s.high.index}

	case awaitingLow:
		if s.lastPrice-s.low.price < threshold || s.low.index <= s.lastIndex {
			return
		}
		pivot := bars[s.low.index]
		s.push(models.SwingPoint{
			Index: s.low.index,
			Bar:   pivot,
			Price: pivot.Low,
			Type:  models.SwingLow,
			ATR:   atrAt(atr, s.low.index, barATR),
		})
		s.state = awaitingHigh
		s.lastIndex = s.low.index
		s.lastPrice = pivot.Low
		s.high = candidate{price: pivot.High, index: s.low.index}
	}
}

func (s *swingScanner) push(sp models.SwingPoint) {
	if n := len(s.swings); n > 0 {
		last := s.swings[n-1]
		if last.Index == sp.Index && last.Type == sp.Type {
			return
		}
	}
	s.swings = append(s.swings, sp)
}

// DetectSwings extracts ATR-governed zig-zag pivots in a single forward pass.
//
// A High is confirmed once the running high candidate exceeds the last
// confirmed Low by the per-bar threshold and lies after it; Lows mirror
// this. The ATR series may be shorter than bars, in which case its last
// value is reused. Output is ascending by index and unique by (index, type).
func DetectSwings(bars []models.Bar, atr []float64, params SwingParams) []models.SwingPoint {
	if len(bars) == 0 {
		return nil
	}

	s := newSwingScanner(bars[0], atrAt(atr, 0, 0))
	for i := 1; i < len(bars); i++ {
		barATR := atrAt(atr, i, 0)
		s.observe(i, bars[i])
		s.confirm(bars, atr, params.Threshold(barATR), barATR)
	}

	swings := s.swings
	sort.SliceStable(swings, func(i, j int) bool { return swings[i].Index < swings[j].Index })
	return dedupSwings(swings)
}

func dedupSwings(swings []models.SwingPoint) []models.SwingPoint {
	if len(swings) < 2 {
		return swings
	}
	out := swings[:1]
	for _, sp := range swings[1:] {
		last := out[len(out)-1]
		if last.Index == sp.Index && last.Type == sp.Type {
			continue
		}
		out = append(out, sp)
	}
	return out
}

// atrAt returns atr[i], the last value when the series is exhausted, or
// fallback when it is empty.
func atrAt(atr []float64, i int, fallback float64) float64 {
	if len(atr) == 0 {
		return fallback
	}
	if i < len(atr) {
		return atr[i]
	}
	return atr[len(atr)-1]
}
