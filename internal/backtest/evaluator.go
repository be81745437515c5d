// Package backtest replays historical bars against priced levels and
// records how price reacted after each touch.
package backtest

import (
	"math"

	"github.com/seenimoa/levelrecon/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Evaluator Configuration
// ════════════════════════════════════════════════════════════════════

// Config holds the reaction rules for a backtest pass.
type Config struct {
	Lookahead       int     // forward bars inspected after a touch (default: 20)
	ReactionMoveATR float64 // favourable move, in ATRs, that counts as a hit (default: 0.5)
}

// DefaultConfig returns the standard reaction rules.
func DefaultConfig() Config {
	return Config{
		Lookahead:       20,
		ReactionMoveATR: 0.5,
	}
}

// minATR keeps the hit threshold positive when the ATR series is flat.
const minATR = 1e-6

// ════════════════════════════════════════════════════════════════════
// Level Evaluation
// ════════════════════════════════════════════════════════════════════

// Evaluate returns a copy of levels with Performance filled in from bars.
//
// A bar touches a level when its range intersects [price-band, price+band].
// After each touch the next Lookahead bars are scanned for the largest
// favourable move: forward high minus price for support, price minus forward
// low for resistance. The touch is a hit when any forward move reaches
// ReactionMoveATR × ATR at the touch bar (mean ATR when the series is short).
// Levels never touched get the zero PerformanceStats.
func Evaluate(levels []models.Level, bars []models.Bar, atr []float64, cfg Config) []models.Level {
	out := make([]models.Level, len(levels))
	copy(out, levels)
	if len(bars) == 0 {
		return out
	}

	meanATR := 0.0
	for _, v := range atr {
		meanATR += v
	}
	if len(atr) > 0 {
		meanATR /= float64(len(atr))
	}

	for i := range out {
		out[i].Performance = evaluateLevel(out[i], bars, atr, meanATR, cfg)
	}
	return out
}

// reaction is the outcome of one touch.
type reaction struct {
	best       float64
	barsToBest int
	hit        bool
}

func evaluateLevel(lvl models.Level, bars []models.Bar, atr []float64, meanATR float64, cfg Config) models.PerformanceStats {
	var (
		touches, hits    int
		sumMove, maxMove float64
		sumBars          float64
	)

	for idx, bar := range bars {
		if !Touches(bar, lvl.Price, lvl.ConfidenceBand) {
			continue
		}
		touches++

		ref := meanATR
		if idx < len(atr) {
			ref = atr[idx]
		}
		r := react(lvl, bars, idx, cfg, math.Max(ref, minATR))
		if r.hit {
			hits++
		}
		sumMove += r.best
		maxMove = math.Max(maxMove, r.best)
		sumBars += float64(r.barsToBest)
	}

	if touches == 0 {
		return models.PerformanceStats{}
	}
	n := float64(touches)
	return models.PerformanceStats{
		Touches:               touches,
		Tests:                 touches,
		HitRate:               float64(hits) / n,
		AvgReaction:           sumMove / n,
		MaxFavorableExcursion: maxMove,
		AvgReactionBars:       sumBars / n,
	}
}

// react scans the bars after idx for the best favourable move.
func react(lvl models.Level, bars []models.Bar, idx int, cfg Config, atrRef float64) reaction {
	var r reaction
	target := cfg.ReactionMoveATR * atrRef
	end := min(idx+cfg.Lookahead+1, len(bars))

	for j := idx + 1; j < end; j++ {
		move := Movement(lvl, bars[j])
		if move > r.best {
			r.best = move
			r.barsToBest = j - idx
		}
		if move >= target {
			r.hit = true
		}
	}
	return r
}

// Touches reports whether bar's range intersects price ± band.
func Touches(bar models.Bar, price, band float64) bool {
	return bar.Low <= price+band && bar.High >= price-band
}

// Movement is the favourable excursion of bar away from lvl.
func Movement(lvl models.Level, bar models.Bar) float64 {
	if lvl.Type == models.Support {
		return bar.High - lvl.Price
	}
	return lvl.Price - bar.Low
}
