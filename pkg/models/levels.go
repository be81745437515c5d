package models

import "sort"

// SwingType marks a pivot as a swing high or a swing low.
type SwingType string

const (
	SwingHigh SwingType = "HIGH"
	SwingLow  SwingType = "LOW"
)

// SwingPoint is a confirmed zig-zag pivot.
type SwingPoint struct {
	Index int       `json:"index" yaml:"index"` // position in the originating bar slice
	Bar   Bar       `json:"bar"   yaml:"bar"`
	Price float64   `json:"price" yaml:"price"` // bar high for HIGH pivots, bar low for LOW pivots
	Type  SwingType `json:"type"  yaml:"type"`
	ATR   float64   `json:"atr"   yaml:"atr"`
}

// PriceCluster is a contiguous group of swing prices.
type PriceCluster struct {
	ID                  int     `json:"id"                   yaml:"id"`
	RepresentativePrice float64 `json:"representative_price" yaml:"representative_price"` // volume-weighted
	TotalVolume         float64 `json:"total_volume"         yaml:"total_volume"`
	SwingCount          int     `json:"swing_count"          yaml:"swing_count"`
}

// DensityPoint is one sample on the KDE price grid.
type DensityPoint struct {
	Price   float64 `json:"price"   yaml:"price"`
	Density float64 `json:"density" yaml:"density"`
}

// DensityAnalysis is the sampled density curve plus its diagnostics.
type DensityAnalysis struct {
	Grid       []DensityPoint `json:"grid"        yaml:"grid"`
	Bandwidths []float64      `json:"bandwidths"  yaml:"bandwidths"`
	MaxDensity float64        `json:"max_density" yaml:"max_density"`
}

// IsEmpty reports whether the estimate produced no grid.
func (d DensityAnalysis) IsEmpty() bool {
	return len(d.Grid) == 0
}

// DensityPeak is a local maximum of the density grid.
type DensityPeak struct {
	Price      float64 `json:"price"      yaml:"price"`
	Density    float64 `json:"density"    yaml:"density"`
	Prominence float64 `json:"prominence" yaml:"prominence"`
}

// LevelType classifies a level relative to the price at construction time.
type LevelType string

const (
	Support    LevelType = "Support"
	Resistance LevelType = "Resistance"
)

// PerformanceStats summarises how price historically reacted to a level.
// The zero value means "never tested".
type PerformanceStats struct {
	Touches               int     `json:"touches"                 yaml:"touches"`
	Tests                 int     `json:"tests"                   yaml:"tests"`
	HitRate               float64 `json:"hit_rate"                yaml:"hit_rate"` // 0.0 to 1.0
	AvgReaction           float64 `json:"avg_reaction"            yaml:"avg_reaction"`
	MaxFavorableExcursion float64 `json:"max_favorable_excursion" yaml:"max_favorable_excursion"`
	AvgReactionBars       float64 `json:"avg_reaction_bars"       yaml:"avg_reaction_bars"`
}

// Tested reports whether the level was touched at least once.
func (p PerformanceStats) Tested() bool {
	return p.Tests > 0
}

// Level is a priced support/resistance level with its score and backtest.
type Level struct {
	Price            float64          `json:"price"              yaml:"price"`
	Density          float64          `json:"density"            yaml:"density"`
	Confidence       float64          `json:"confidence"         yaml:"confidence"`      // 0.0 to 1.0
	ConfidenceBand   float64          `json:"confidence_band"    yaml:"confidence_band"` // ± price tolerance
	Type             LevelType        `json:"type"               yaml:"type"`
	Performance      PerformanceStats `json:"performance"        yaml:"performance"`
	DistanceFromLast float64          `json:"distance_from_last" yaml:"distance_from_last"`
}

// SortByConfidence orders levels by descending confidence, keeping the
// existing order of equal confidences.
func SortByConfidence(levels []Level) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Confidence > levels[j].Confidence
	})
}
