// Package config handles configuration loading for levelrecon.
// It layers defaults, a YAML config file, a .env file, environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/seenimoa/levelrecon/internal/backtest"
	"github.com/seenimoa/levelrecon/internal/pipeline"
	"github.com/seenimoa/levelrecon/internal/report"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// EnvPrefix prefixes every environment override: LEVELRECON_<SECTION>_<KEY>.
const EnvPrefix = "LEVELRECON"

// Config represents the complete application configuration.
type Config struct {
	Input      InputConfig      `mapstructure:"input"      yaml:"input"`
	Session    SessionConfig    `mapstructure:"session"    yaml:"session"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"   yaml:"analysis"`
	Clustering ClusteringConfig `mapstructure:"clustering" yaml:"clustering"`
	Density    DensityConfig    `mapstructure:"density"    yaml:"density"`
	Levels     LevelsConfig     `mapstructure:"levels"     yaml:"levels"`
	EVT        EVTConfig        `mapstructure:"evt"        yaml:"evt"`
	Backtest   BacktestConfig   `mapstructure:"backtest"   yaml:"backtest"`
	Report     ReportConfig     `mapstructure:"report"     yaml:"report"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// InputConfig locates the bar file.
type InputConfig struct {
	Path     string `mapstructure:"path"     yaml:"path"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"` // IANA zone for timestamps
}

// SessionConfig is the intraday filter applied before analysis.
type SessionConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Start   string `mapstructure:"start"   yaml:"start"` // "HH:MM", inclusive
	End     string `mapstructure:"end"     yaml:"end"`   // "HH:MM", exclusive
}

// AnalysisConfig holds swing detection and window search settings.
type AnalysisConfig struct {
	ATRPeriod        int     `mapstructure:"atr_period"         yaml:"atr_period"`
	ATRMultiplier    float64 `mapstructure:"atr_multiplier"     yaml:"atr_multiplier"`
	MinSwingDistance float64 `mapstructure:"min_swing_distance" yaml:"min_swing_distance"`
	LookbackDays     int     `mapstructure:"lookback_days"      yaml:"lookback_days"` // 0 = full history
	RegimeAware      bool    `mapstructure:"regime_aware"       yaml:"regime_aware"`
	StrongRecency    bool    `mapstructure:"strong_recency"     yaml:"strong_recency"`
}

// ClusteringConfig controls swing price clustering.
type ClusteringConfig struct {
	EpsFactor float64 `mapstructure:"eps_factor" yaml:"eps_factor"`
	MinPoints int     `mapstructure:"min_points" yaml:"min_points"`
}

// DensityConfig controls the KDE grid.
type DensityConfig struct {
	KDEPoints int `mapstructure:"kde_points" yaml:"kde_points"`
}

// LevelsConfig controls level construction.
type LevelsConfig struct {
	ConfidenceBandATR float64 `mapstructure:"confidence_band_atr" yaml:"confidence_band_atr"`
	MaxLevels         int     `mapstructure:"max_levels"          yaml:"max_levels"`
}

// EVTConfig controls tail extrapolation.
type EVTConfig struct {
	Enabled           bool    `mapstructure:"enabled"            yaml:"enabled"`
	LookbackDays      int     `mapstructure:"lookback_days"      yaml:"lookback_days"`
	TailProbability   float64 `mapstructure:"tail_probability"   yaml:"tail_probability"`
	ThresholdQuantile float64 `mapstructure:"threshold_quantile" yaml:"threshold_quantile"`
	MaxLevels         int     `mapstructure:"max_levels"         yaml:"max_levels"`
}

// BacktestConfig controls level reaction scoring.
type BacktestConfig struct {
	ReactionLookahead int     `mapstructure:"reaction_lookahead" yaml:"reaction_lookahead"` // bars
	ReactionMoveATR   float64 `mapstructure:"reaction_move_atr"  yaml:"reaction_move_atr"`
}

// ReportConfig controls output rendering.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // "text", "json", "yaml" or "html"
	Output string `mapstructure:"output" yaml:"output"` // file path; empty = stdout
	Chart  string `mapstructure:"chart"  yaml:"chart"`  // SVG path; empty = disabled
}

// MetricsConfig controls the run metrics export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"` // empty = disabled
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.levelrecon/config.yaml (home directory)
//  3. /etc/levelrecon/config.yaml (system)
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win. Environment variables override config file
// values. Format: LEVELRECON_<SECTION>_<KEY>, e.g., LEVELRECON_ANALYSIS_ATR_PERIOD
func Load() (*Config, error) {
	return load("", nil)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithFlags loads configuration like LoadFromFile (or Load when path is
// empty) and applies flags registered with RegisterFlags that were set on
// the command line.
func LoadWithFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	return load(path, flags)
}

func load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(filepath.Join(homeDir(), ".levelrecon"))
		v.AddConfigPath("/etc/levelrecon")

		// Read config file (not required to exist)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Input defaults
	v.SetDefault("input.path", "")
	v.SetDefault("input.timezone", "America/New_York")

	// Regular trading hours
	v.SetDefault("session.enabled", true)
	rth := utils.RegularHours()
	v.SetDefault("session.start", utils.FormatClock(rth.Start))
	v.SetDefault("session.end", utils.FormatClock(rth.End))

	// Analysis defaults
	v.SetDefault("analysis.atr_period", 14)
	v.SetDefault("analysis.atr_multiplier", 0.3)
	v.SetDefault("analysis.min_swing_distance", 25.0)
	v.SetDefault("analysis.lookback_days", 90)
	v.SetDefault("analysis.regime_aware", false)
	v.SetDefault("analysis.strong_recency", false)

	v.SetDefault("clustering.eps_factor", 1.0)
	v.SetDefault("clustering.min_points", 3)

	v.SetDefault("density.kde_points", 400)

	v.SetDefault("levels.confidence_band_atr", 1.0)
	v.SetDefault("levels.max_levels", 12)

	// EVT defaults (off unless requested)
	v.SetDefault("evt.enabled", false)
	v.SetDefault("evt.lookback_days", 30)
	v.SetDefault("evt.tail_probability", 0.99)
	v.SetDefault("evt.threshold_quantile", 0.9)
	v.SetDefault("evt.max_levels", 2)

	v.SetDefault("backtest.reaction_lookahead", 20)
	v.SetDefault("backtest.reaction_move_atr", 0.5)

	// Output defaults
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
	v.SetDefault("report.chart", "")
	v.SetDefault("metrics.textfile", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// ── Validation ──

// Validate checks settings that would make a run meaningless. The input
// path is only required when requireInput is true.
func (c *Config) Validate(requireInput bool) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(!requireInput || strings.TrimSpace(c.Input.Path) != "", "input.path is required")
	check(c.Analysis.ATRPeriod >= 1, "analysis.atr_period must be >= 1, got %d", c.Analysis.ATRPeriod)
	check(c.Analysis.ATRMultiplier > 0, "analysis.atr_multiplier must be > 0, got %g", c.Analysis.ATRMultiplier)
	check(c.Analysis.MinSwingDistance >= 0, "analysis.min_swing_distance must be >= 0, got %g", c.Analysis.MinSwingDistance)
	check(c.Analysis.LookbackDays >= 0, "analysis.lookback_days must be >= 0, got %d", c.Analysis.LookbackDays)
	check(c.Clustering.MinPoints >= 1, "clustering.min_points must be >= 1, got %d", c.Clustering.MinPoints)
	check(c.Clustering.EpsFactor > 0, "clustering.eps_factor must be > 0, got %g", c.Clustering.EpsFactor)
	check(c.Density.KDEPoints >= 3, "density.kde_points must be >= 3, got %d", c.Density.KDEPoints)
	check(c.Levels.MaxLevels >= 0, "levels.max_levels must be >= 0, got %d", c.Levels.MaxLevels)
	check(c.EVT.ThresholdQuantile > 0 && c.EVT.ThresholdQuantile < 1,
		"evt.threshold_quantile must be in (0,1), got %g", c.EVT.ThresholdQuantile)
	check(c.EVT.TailProbability > 0 && c.EVT.TailProbability < 1,
		"evt.tail_probability must be in (0,1), got %g", c.EVT.TailProbability)
	check(c.EVT.MaxLevels >= 0, "evt.max_levels must be >= 0, got %d", c.EVT.MaxLevels)
	check(c.EVT.LookbackDays >= 0, "evt.lookback_days must be >= 0, got %d", c.EVT.LookbackDays)
	check(c.Backtest.ReactionLookahead >= 1, "backtest.reaction_lookahead must be >= 1, got %d", c.Backtest.ReactionLookahead)

	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		errs = append(errs, fmt.Errorf("report.format: %w", err))
	}
	if _, err := c.SessionWindow(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ── Conversions ──

// Location resolves the input timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := utils.LoadLocation(c.Input.Timezone)
	if err != nil {
		return nil, fmt.Errorf("input.timezone: %w", err)
	}
	return loc, nil
}

// SessionWindow parses the session bounds in the input timezone.
func (c *Config) SessionWindow() (utils.Session, error) {
	loc, err := c.Location()
	if err != nil {
		return utils.Session{}, err
	}
	s, err := utils.NewSession(c.Session.Start, c.Session.End, loc)
	if err != nil {
		return utils.Session{}, fmt.Errorf("session: %w", err)
	}
	return s, nil
}

// Pipeline maps the configuration onto pipeline parameters. An invalid
// timezone leaves Location nil; Validate reports it.
func (c *Config) Pipeline() pipeline.Config {
	loc, _ := c.Location()
	return pipeline.Config{
		ATRPeriod:         c.Analysis.ATRPeriod,
		ATRMultiplier:     c.Analysis.ATRMultiplier,
		MinSwingDistance:  c.Analysis.MinSwingDistance,
		LookbackDays:      c.Analysis.LookbackDays,
		RegimeAware:       c.Analysis.RegimeAware,
		StrongRecency:     c.Analysis.StrongRecency,
		EpsFactor:         c.Clustering.EpsFactor,
		MinPoints:         c.Clustering.MinPoints,
		KDEPoints:         c.Density.KDEPoints,
		ConfidenceBandATR: c.Levels.ConfidenceBandATR,
		MaxLevels:         c.Levels.MaxLevels,
		EVT: pipeline.EVTConfig{
			Enabled:           c.EVT.Enabled,
			LookbackDays:      c.EVT.LookbackDays,
			TailProbability:   c.EVT.TailProbability,
			ThresholdQuantile: c.EVT.ThresholdQuantile,
			MaxLevels:         c.EVT.MaxLevels,
		},
		Backtest: backtest.Config{
			Lookahead:       c.Backtest.ReactionLookahead,
			ReactionMoveATR: c.Backtest.ReactionMoveATR,
		},
		Location: loc,
	}
}

// ReportSettings maps the configuration onto report settings. Call Validate
// first; an unknown format falls back to text.
func (c *Config) ReportSettings() report.Config {
	rc := report.DefaultConfig()
	if f, err := report.ParseFormat(c.Report.Format); err == nil {
		rc.Format = f
	}
	if loc, err := c.Location(); err == nil {
		rc.Location = loc
	}
	return rc
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
