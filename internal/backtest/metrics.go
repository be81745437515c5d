package backtest

import (
	"math"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Aggregate Metrics
// ════════════════════════════════════════════════════════════════════

// Summary aggregates the performance of an evaluated level set.
type Summary struct {
	Levels          int     `json:"levels"            yaml:"levels"`
	Tested          int     `json:"tested"            yaml:"tested"`
	Touches         int     `json:"touches"           yaml:"touches"`
	HitRate         float64 `json:"hit_rate"          yaml:"hit_rate"` // touch-weighted, 0.0 to 1.0
	AvgReaction     float64 `json:"avg_reaction"      yaml:"avg_reaction"`
	MaxExcursion    float64 `json:"max_excursion"     yaml:"max_excursion"`
	SupportHitRate  float64 `json:"support_hit_rate"  yaml:"support_hit_rate"`
	ResistHitRate   float64 `json:"resist_hit_rate"   yaml:"resist_hit_rate"`
	AvgReactionBars float64 `json:"avg_reaction_bars" yaml:"avg_reaction_bars"`
}

// Summarize computes touch-weighted aggregates over levels.
func Summarize(levels []models.Level) Summary {
	s := Summary{Levels: len(levels)}

	var hits, reaction, bars float64
	var supTouch, supHits, resTouch, resHits float64
	for _, l := range levels {
		p := l.Performance
		if !p.Tested() {
			continue
		}
		s.Tested++
		s.Touches += p.Tests

		n := float64(p.Tests)
		hits += p.HitRate * n
		reaction += p.AvgReaction * n
		bars += p.AvgReactionBars * n
		s.MaxExcursion = math.Max(s.MaxExcursion, p.MaxFavorableExcursion)

		// ────────────────────────────────────────────────
		// Per-side split
		// ────────────────────────────────────────────────
		if l.Type == models.Support {
			supTouch += n
			supHits += p.HitRate * n
		} else {
			resTouch += n
			resHits += p.HitRate * n
		}
	}

	if s.Touches == 0 {
		return s
	}
	total := float64(s.Touches)
	s.HitRate = hits / total
	s.AvgReaction = reaction / total
	s.AvgReactionBars = bars / total
	s.SupportHitRate = ratio(supHits, supTouch)
	s.ResistHitRate = ratio(resHits, resTouch)
	return s
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
