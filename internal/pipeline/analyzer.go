package pipeline

import (
	"fmt"
	"math"

	"github.com/seenimoa/levelrecon/internal/analysis/density"
	"github.com/seenimoa/levelrecon/internal/analysis/levels"
	"github.com/seenimoa/levelrecon/internal/analysis/technical"
	"github.com/seenimoa/levelrecon/internal/backtest"
	"github.com/seenimoa/levelrecon/internal/infra"
	"github.com/seenimoa/levelrecon/pkg/logger"
	"github.com/seenimoa/levelrecon/pkg/models"
)

// WindowResult is the outcome of analysing one bar window. Results may be
// shared through the memo; callers must not modify them.
type WindowResult struct {
	ATR        []float64
	MeanATR    float64
	Density    models.DensityAnalysis
	Levels     []models.Level
	SwingCount int

	Params   technical.SwingParams // swing parameters actually used
	Relaxed  bool
	Epsilon  float64
	Clusters int
	Retained int // swings fed to the density estimate
}

// windowKey identifies a bar window for memoization. Candidate lookbacks
// often select the same bars when history is short.
type windowKey struct {
	first, last int64
	n           int
	halfLife    float64
}

func keyFor(bars []models.Bar, halfLife float64) windowKey {
	return windowKey{
		first:    bars[0].Timestamp.UnixNano(),
		last:     bars[len(bars)-1].Timestamp.UnixNano(),
		n:        len(bars),
		halfLife: halfLife,
	}
}

// Analyzer runs the single-window level discovery chain.
type Analyzer struct {
	cfg     Config
	log     *logger.Logger
	metrics *infra.Metrics
	memo    *infra.Memo[windowKey, *WindowResult]
}

// NewAnalyzer creates an analyzer. A nil logger discards output and nil
// metrics record nothing.
func NewAnalyzer(cfg Config, log *logger.Logger, metrics *infra.Metrics) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		memo:    infra.NewMemo[windowKey, *WindowResult](),
	}
}

// Analyze runs the chain over bars with recency half-life halfLifeDays,
// reusing an earlier result for an identical window.
func (a *Analyzer) Analyze(bars []models.Bar, halfLifeDays float64) (*WindowResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty window", ErrInsufficientData)
	}
	computed := false
	res, err := a.memo.GetOrCompute(keyFor(bars, halfLifeDays), func() (*WindowResult, error) {
		computed = true
		return a.analyze(bars, halfLifeDays)
	})
	if err != nil {
		return nil, err
	}
	if !computed {
		a.metrics.MemoHit()
		a.log.Debugw("reusing window analysis", "bars", len(bars), "half_life", halfLifeDays)
	}
	return res, nil
}

// MemoStats returns how many window analyses were served from the memo
// and how many had to be computed.
func (a *Analyzer) MemoStats() (hits, misses int64) {
	return a.memo.Stats()
}

func (a *Analyzer) analyze(bars []models.Bar, halfLifeDays float64) (*WindowResult, error) {
	cfg := a.cfg
	if len(bars) < cfg.MinPoints {
		return nil, fmt.Errorf("%w: window has %d bars, clustering needs %d", ErrInsufficientData, len(bars), cfg.MinPoints)
	}

	// 1. Volatility.
	done := a.metrics.Stage("atr")
	atr := technical.ATR(bars, cfg.ATRPeriod)
	meanATR := technical.MeanATR(atr)
	done()

	// 2. Swings with adaptive relaxation.
	done = a.metrics.Stage("swings")
	base := technical.SwingParams{ATRMultiplier: cfg.ATRMultiplier, MinDistance: cfg.MinSwingDistance}
	search := technical.SearchSwings(bars, atr, base, cfg.TargetSwings())
	done()

	swings := search.Swings
	if len(swings) < cfg.MinPoints {
		return nil, fmt.Errorf("%w: %d swing points even after relaxing sensitivity", ErrDegenerateDetection, len(swings))
	}
	relaxed := search.Relaxed(base)
	if relaxed {
		a.log.Infow("detected swing points after relaxing sensitivity",
			"swings", len(swings),
			"atr_multiplier", search.Params.ATRMultiplier,
			"min_swing_distance", search.Params.MinDistance,
		)
	} else {
		a.log.Infow("detected swing points", "swings", len(swings))
	}

	// 3. Clustering. No inliers means every swing feeds the estimate.
	done = a.metrics.Stage("cluster")
	eps := density.AutoEpsilon(swings)
	if eps > 0 {
		eps *= cfg.EpsFactor
	} else {
		eps = math.Max(math.Max(meanATR, search.Params.MinDistance), 1)
	}
	clustered := density.Cluster(swings, eps, cfg.MinPoints)
	retained := clustered.Inliers
	if len(retained) == 0 {
		retained = swings
	}
	done()
	a.log.Infow("formed price clusters",
		"clusters", len(clustered.Clusters),
		"eps", eps,
		"retained", len(retained),
	)

	// 4. Recency-weighted density.
	done = a.metrics.Stage("kde")
	weighted := ApplyRecency(retained, bars[len(bars)-1].Timestamp, halfLifeDays)
	dens := density.Estimate(weighted, cfg.KDEPoints)
	done()
	if dens.IsEmpty() {
		return nil, fmt.Errorf("%w: not enough clustered swing data", ErrDegenerateEstimation)
	}

	done = a.metrics.Stage("peaks")
	peaks := density.DetectPeaks(dens)
	done()
	if len(peaks) == 0 {
		return nil, fmt.Errorf("%w: no significant density peaks", ErrDegenerateDetection)
	}

	// 5. Levels and their historical reactions.
	done = a.metrics.Stage("levels")
	current := models.LastClose(bars)
	lvls := levels.BuildLevels(peaks, dens.MaxDensity, levels.BuildParams{
		CurrentPrice:   current,
		MeanATR:        meanATR,
		BandMultiplier: cfg.ConfidenceBandATR,
		MaxLevels:      cfg.MaxSlots(),
	})
	levels.RefreshDistances(lvls, current)
	done()

	done = a.metrics.Stage("backtest")
	lvls = backtest.Evaluate(lvls, bars, atr, cfg.Backtest)
	done()

	return &WindowResult{
		ATR:        atr,
		MeanATR:    meanATR,
		Density:    dens,
		Levels:     lvls,
		SwingCount: len(swings),
		Params:     search.Params,
		Relaxed:    relaxed,
		Epsilon:    eps,
		Clusters:   len(clustered.Clusters),
		Retained:   len(retained),
	}, nil
}

