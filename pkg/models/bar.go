// Package models defines the core data structures shared by the level
// discovery pipeline: bars, swing pivots, clusters, density samples and
// the ranked levels handed to the report layer.
package models

import "time"

// Bar represents a single OHLCV bar of price data.
// Bars are immutable once loaded; the pipeline only reads them.
type Bar struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Open      float64   `json:"open"      yaml:"open"`
	High      float64   `json:"high"      yaml:"high"`
	Low       float64   `json:"low"       yaml:"low"`
	Close     float64   `json:"close"     yaml:"close"`
	Volume    float64   `json:"volume"    yaml:"volume"`
}

// Range returns High - Low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// LastClose returns the close of the final bar, or 0 for an empty series.
func LastClose(bars []Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}

// ATH is the all-time high of a series and the bar time it was printed.
type ATH struct {
	Price     float64   `json:"price"     yaml:"price"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// AllTimeHigh returns the highest high in bars. The latest occurrence wins ties.
// Returns nil for an empty series.
func AllTimeHigh(bars []Bar) *ATH {
	if len(bars) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(bars); i++ {
		if bars[i].High >= bars[best].High {
			best = i
		}
	}
	return &ATH{Price: bars[best].High, Timestamp: bars[best].Timestamp}
}
