package config

import (
	"fmt"
	"os"
	"strings"
)

// SettingSource represents where an effective setting comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceDefault SettingSource = "default"
	SourceCustom  SettingSource = "config" // config file or flag
)

// SettingStatus describes one effective setting.
type SettingStatus struct {
	Key    string        `json:"key"`
	Value  string        `json:"value"`
	Source SettingSource `json:"source"`
	EnvVar string        `json:"env_var"`
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Settings lists every effective setting of cfg with its source.
func Settings(cfg *Config) []SettingStatus {
	defaults := flatten(Default())
	current := flatten(cfg)

	out := make([]SettingStatus, 0, len(current))
	for _, kv := range current {
		status := SettingStatus{Key: kv.key, Value: kv.value, EnvVar: EnvVar(kv.key)}
		switch {
		case os.Getenv(status.EnvVar) != "":
			status.Source = SourceEnv
		case defaults[len(out)].value == kv.value:
			status.Source = SourceDefault
		default:
			status.Source = SourceCustom
		}
		out = append(out, status)
	}
	return out
}

type keyValue struct {
	key   string
	value string
}

// flatten lists cfg in a fixed key order.
func flatten(c *Config) []keyValue {
	s := func(v any) string { return fmt.Sprint(v) }
	return []keyValue{
		{"input.path", c.Input.Path},
		{"input.timezone", c.Input.Timezone},
		{"session.enabled", s(c.Session.Enabled)},
		{"session.start", c.Session.Start},
		{"session.end", c.Session.End},
		{"analysis.atr_period", s(c.Analysis.ATRPeriod)},
		{"analysis.atr_multiplier", s(c.Analysis.ATRMultiplier)},
		{"analysis.min_swing_distance", s(c.Analysis.MinSwingDistance)},
		{"analysis.lookback_days", s(c.Analysis.LookbackDays)},
		{"analysis.regime_aware", s(c.Analysis.RegimeAware)},
		{"analysis.strong_recency", s(c.Analysis.StrongRecency)},
		{"clustering.eps_factor", s(c.Clustering.EpsFactor)},
		{"clustering.min_points", s(c.Clustering.MinPoints)},
		{"density.kde_points", s(c.Density.KDEPoints)},
		{"levels.confidence_band_atr", s(c.Levels.ConfidenceBandATR)},
		{"levels.max_levels", s(c.Levels.MaxLevels)},
		{"evt.enabled", s(c.EVT.Enabled)},
		{"evt.lookback_days", s(c.EVT.LookbackDays)},
		{"evt.tail_probability", s(c.EVT.TailProbability)},
		{"evt.threshold_quantile", s(c.EVT.ThresholdQuantile)},
		{"evt.max_levels", s(c.EVT.MaxLevels)},
		{"backtest.reaction_lookahead", s(c.Backtest.ReactionLookahead)},
		{"backtest.reaction_move_atr", s(c.Backtest.ReactionMoveATR)},
		{"report.format", c.Report.Format},
		{"report.output", c.Report.Output},
		{"report.chart", c.Report.Chart},
		{"metrics.textfile", c.Metrics.Textfile},
		{"logging.level", c.Logging.Level},
		{"logging.format", c.Logging.Format},
	}
}
