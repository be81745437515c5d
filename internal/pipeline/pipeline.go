// Package pipeline orchestrates level discovery over a bar series: the
// lookback window search, the optional full-history regime analysis, tail
// extrapolation and final ranking.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/levelrecon/internal/analysis/levels"
	"github.com/seenimoa/levelrecon/internal/backtest"
	"github.com/seenimoa/levelrecon/internal/datasource"
	"github.com/seenimoa/levelrecon/internal/infra"
	"github.com/seenimoa/levelrecon/pkg/logger"
	"github.com/seenimoa/levelrecon/pkg/models"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// Fallback lookback ladders in days; 0 means the full history.
var (
	fullHistoryFirst = []int{0, 90, 60, 45, 30, 20, 15, 10, 5}
	alternateWindows = []int{60, 45, 30, 20, 15, 10, 5, 0}
)

// CandidateLookbacks lists the windows tried for a requested lookback.
func CandidateLookbacks(requested int) []int {
	if requested <= 0 {
		return slices.Clone(fullHistoryFirst)
	}
	out := []int{requested}
	for _, w := range alternateWindows {
		if w != requested {
			out = append(out, w)
		}
	}
	return out
}

// Window identifies the lookback window an analysis ran over.
type Window struct {
	Days  int    `json:"days"  yaml:"days"`
	Label string `json:"label" yaml:"label"`
}

func newWindow(days int) Window {
	if days == 0 {
		return Window{Days: 0, Label: "full history"}
	}
	return Window{Days: days, Label: fmt.Sprintf("last %d days", days)}
}

// Result is the final output of a run.
type Result struct {
	RunID        string                 `json:"run_id"        yaml:"run_id"`
	Window       Window                 `json:"window"        yaml:"window"`
	WindowBars   int                    `json:"window_bars"   yaml:"window_bars"`
	TotalBars    int                    `json:"total_bars"    yaml:"total_bars"`
	WindowVolume float64                `json:"window_volume" yaml:"window_volume"`
	SwingCount   int                    `json:"swing_count"   yaml:"swing_count"`
	RegimeAware  bool                   `json:"regime_aware"  yaml:"regime_aware"`
	CurrentPrice float64                `json:"current_price" yaml:"current_price"`
	ATH          *models.ATH            `json:"ath,omitempty" yaml:"ath,omitempty"`
	Density      models.DensityAnalysis `json:"density"       yaml:"density"`
	Levels       []models.Level         `json:"levels"        yaml:"levels"`
	TailLevels   int                    `json:"tail_levels"   yaml:"tail_levels"`
	Summary      backtest.Summary       `json:"summary"       yaml:"summary"`
}

// Pipeline runs level discovery with a fixed configuration.
type Pipeline struct {
	cfg     Config
	log     *logger.Logger
	metrics *infra.Metrics
}

// New creates a pipeline. log and metrics may be nil.
func New(cfg Config, log *logger.Logger, metrics *infra.Metrics) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{cfg: cfg, log: log, metrics: metrics}
}

// selection is the accepted lookback window.
type selection struct {
	window Window
	bars   []models.Bar
	result *WindowResult
}

// Run analyses bars, which must be sorted with strictly increasing
// timestamps and already filtered to the session of interest.
//
// In regime-aware mode the full-history analysis runs concurrently with the
// lookback search and its levels are merged in with the secondary weight.
func (p *Pipeline) Run(ctx context.Context, bars []models.Bar) (*Result, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars", ErrInsufficientData)
	}

	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	analyzer := NewAnalyzer(p.cfg, log.Named("window"), p.metrics)
	defer p.metrics.Stage("run")()

	var (
		sel        *selection
		historical *WindowResult
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := p.searchWindows(gctx, log, analyzer, bars)
		if err != nil {
			return err
		}
		sel = s
		return nil
	})

	if p.cfg.RegimeAware {
		g.Go(func() error {
			defer p.metrics.Stage("historical")()
			log.Infow("running full-history analysis", "bars", len(bars))
			res, err := analyzer.Analyze(bars, p.cfg.HistoricalHalfLife())
			if err != nil {
				return fmt.Errorf("full history: %w", err)
			}
			historical = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	recent := sel.result
	res := &Result{
		RunID:        runID,
		Window:       sel.window,
		WindowBars:   len(sel.bars),
		TotalBars:    len(bars),
		WindowVolume: totalVolume(sel.bars),
		SwingCount:   recent.SwingCount,
		RegimeAware:  historical != nil,
		Density:      recent.Density,
	}

	var final []models.Level
	if historical != nil {
		tolerance := levels.MergeTolerance(recent.MeanATR, historical.MeanATR, p.cfg.MinSwingDistance)
		combined := levels.Combine(recent.Levels, historical.Levels, levels.PrimaryWeight, levels.SecondaryWeight, tolerance)
		log.Infow("combined recent and full-history levels",
			"recent", len(recent.Levels),
			"historical", len(historical.Levels),
			"combined", len(combined),
			"tolerance", tolerance,
		)

		res.CurrentPrice = models.LastClose(bars)
		res.ATH = models.AllTimeHigh(bars)
		levels.RefreshDistances(combined, res.CurrentPrice)
		combined = levels.Truncate(combined, p.cfg.MaxSlots())

		done := p.metrics.Stage("backtest")
		final = backtest.Evaluate(combined, bars, historical.ATR, p.cfg.Backtest)
		done()
	} else {
		res.CurrentPrice = models.LastClose(sel.bars)
		res.ATH = models.AllTimeHigh(sel.bars)
		final = slices.Clone(recent.Levels)
	}

	if p.cfg.EVT.Enabled {
		tail := p.tailLevels(log, sel.bars, recent.MeanATR, res.CurrentPrice)
		res.TailLevels = len(tail)
		final = append(final, tail...)
	}

	models.SortByConfidence(final)
	res.Levels = levels.Truncate(final, p.cfg.MaxSlots())
	res.Summary = backtest.Summarize(res.Levels)

	p.metrics.SetSwings(res.SwingCount)
	p.metrics.SetLevels(countByType(res.Levels))
	hits, misses := analyzer.MemoStats()
	log.Infow("analysis complete",
		"window", res.Window.Label,
		"levels", len(res.Levels),
		"current_price", res.CurrentPrice,
		"memo_hits", hits,
		"memo_misses", misses,
	)
	return res, nil
}

// searchWindows walks the candidate lookbacks until one yields enough
// swings. Windows failing with a window error are skipped; the last
// successful window is used when none reaches the target.
func (p *Pipeline) searchWindows(ctx context.Context, log *logger.Logger, analyzer *Analyzer, bars []models.Bar) (*selection, error) {
	target := p.cfg.TargetSwings()
	windows := CandidateLookbacks(p.cfg.LookbackDays)

	var (
		sel     *selection
		lastErr error
	)
	for i, days := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate := datasource.FilterLookback(bars, days)
		if len(candidate) == 0 {
			p.metrics.Window(infra.OutcomeEmpty)
			continue
		}
		w := newWindow(days)

		if sel != nil && sel.result.SwingCount < target {
			log.Infow("swing count too low; retrying",
				"swings", sel.result.SwingCount,
				"target", target,
				"window", w.Label,
			)
		}
		log.Infow("loaded window",
			"window", w.Label,
			"bars", len(candidate),
			"from", utils.FormatIn(candidate[0].Timestamp, p.cfg.Location),
			"to", utils.FormatIn(candidate[len(candidate)-1].Timestamp, p.cfg.Location),
		)

		start := time.Now()
		res, err := analyzer.Analyze(candidate, p.cfg.HalfLife())
		p.metrics.ObserveStage("window", start)
		if err != nil {
			if !retryable(err) {
				return nil, err
			}
			p.metrics.Window(infra.OutcomeFailed)
			log.Warnw("window analysis failed", "window", w.Label, "error", err)
			lastErr = fmt.Errorf("%s: %w", w.Label, err)
			continue
		}

		sel = &selection{window: w, bars: candidate, result: res}
		if res.SwingCount >= target || i == len(windows)-1 {
			p.metrics.Window(infra.OutcomeAccepted)
			return sel, nil
		}
		p.metrics.Window(infra.OutcomeRetried)
	}

	if sel != nil {
		return sel, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: every lookback window is empty", ErrInsufficientData)
}

// tailLevels projects EVT resistances from the analysis window.
func (p *Pipeline) tailLevels(log *logger.Logger, bars []models.Bar, meanATR, current float64) []models.Level {
	evt := p.cfg.EVT
	probs := levels.TailProbabilities(evt.TailProbability, evt.MaxLevels)
	if len(probs) == 0 {
		return nil
	}

	band := meanATR * p.cfg.ConfidenceBandATR
	if math.IsNaN(band) || math.IsInf(band, 0) || band <= 0 {
		band = math.Max(math.Abs(current)*0.001, 1)
	}

	defer p.metrics.Stage("evt")()
	out := levels.EVTResistances(datasource.FilterLookback(bars, evt.LookbackDays), levels.TailParams{
		TailProbabilities: probs,
		ThresholdQuantile: evt.ThresholdQuantile,
		Band:              band,
		CurrentPrice:      current,
	})
	if len(out) > 0 {
		prices := make([]string, len(out))
		for i, l := range out {
			prices[i] = utils.FormatPrice(l.Price)
		}
		log.Infow("EVT projected resistances", "prices", strings.Join(prices, ", "))
	}
	return out
}

func totalVolume(bars []models.Bar) float64 {
	var v float64
	for _, b := range bars {
		v += b.Volume
	}
	return v
}

func countByType(lvls []models.Level) map[string]int {
	counts := map[string]int{string(models.Support): 0, string(models.Resistance): 0}
	for _, l := range lvls {
		counts[string(l.Type)]++
	}
	return counts
}
