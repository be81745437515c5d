package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/seenimoa/levelrecon/internal/report"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Input.Timezone != "America/New_York" {
		t.Errorf("Input.Timezone: got %q, want %q", cfg.Input.Timezone, "America/New_York")
	}
	if !cfg.Session.Enabled || cfg.Session.Start != "09:30" || cfg.Session.End != "16:00" {
		t.Errorf("Session: got %+v", cfg.Session)
	}

	// Analysis defaults
	if cfg.Analysis.ATRPeriod != 14 {
		t.Errorf("Analysis.ATRPeriod: got %d, want 14", cfg.Analysis.ATRPeriod)
	}
	if cfg.Analysis.ATRMultiplier != 0.3 {
		t.Errorf("Analysis.ATRMultiplier: got %f, want 0.3", cfg.Analysis.ATRMultiplier)
	}
	if cfg.Analysis.MinSwingDistance != 25 {
		t.Errorf("Analysis.MinSwingDistance: got %f, want 25", cfg.Analysis.MinSwingDistance)
	}
	if cfg.Analysis.LookbackDays != 90 {
		t.Errorf("Analysis.LookbackDays: got %d, want 90", cfg.Analysis.LookbackDays)
	}
	if cfg.Analysis.RegimeAware || cfg.Analysis.StrongRecency {
		t.Errorf("Analysis flags should default to false: %+v", cfg.Analysis)
	}

	if cfg.Clustering.MinPoints != 3 || cfg.Clustering.EpsFactor != 1 {
		t.Errorf("Clustering: got %+v", cfg.Clustering)
	}
	if cfg.Density.KDEPoints != 400 {
		t.Errorf("Density.KDEPoints: got %d, want 400", cfg.Density.KDEPoints)
	}
	if cfg.Levels.MaxLevels != 12 || cfg.Levels.ConfidenceBandATR != 1 {
		t.Errorf("Levels: got %+v", cfg.Levels)
	}

	// EVT defaults
	if cfg.EVT.Enabled {
		t.Error("EVT.Enabled should default to false")
	}
	if cfg.EVT.LookbackDays != 30 || cfg.EVT.MaxLevels != 2 {
		t.Errorf("EVT: got %+v", cfg.EVT)
	}
	if cfg.EVT.TailProbability != 0.99 || cfg.EVT.ThresholdQuantile != 0.9 {
		t.Errorf("EVT probabilities: got %+v", cfg.EVT)
	}

	if cfg.Backtest.ReactionLookahead != 20 || cfg.Backtest.ReactionMoveATR != 0.5 {
		t.Errorf("Backtest: got %+v", cfg.Backtest)
	}
	if cfg.Report.Format != "text" {
		t.Errorf("Report.Format: got %q, want %q", cfg.Report.Format, "text")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
input:
  path: /data/es_1m.csv
analysis:
  atr_period: 20
  lookback_days: 0
  regime_aware: true
evt:
  enabled: true
  max_levels: 3
report:
  format: json
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Input.Path != "/data/es_1m.csv" {
		t.Errorf("Input.Path: got %q", cfg.Input.Path)
	}
	if cfg.Analysis.ATRPeriod != 20 {
		t.Errorf("Analysis.ATRPeriod: got %d, want 20", cfg.Analysis.ATRPeriod)
	}
	if cfg.Analysis.LookbackDays != 0 {
		t.Errorf("Analysis.LookbackDays: got %d, want 0", cfg.Analysis.LookbackDays)
	}
	if !cfg.Analysis.RegimeAware {
		t.Error("Analysis.RegimeAware: want true")
	}
	if !cfg.EVT.Enabled || cfg.EVT.MaxLevels != 3 {
		t.Errorf("EVT: got %+v", cfg.EVT)
	}
	// Unset keys keep their defaults.
	if cfg.Analysis.ATRMultiplier != 0.3 {
		t.Errorf("Analysis.ATRMultiplier: got %f, want 0.3", cfg.Analysis.ATRMultiplier)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("Report.Format: got %q, want json", cfg.Report.Format)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "analysis:\n  atr_period: 20\n")
	t.Setenv("LEVELRECON_ANALYSIS_ATR_PERIOD", "21")
	t.Setenv("LEVELRECON_EVT_ENABLED", "true")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Analysis.ATRPeriod != 21 {
		t.Errorf("Analysis.ATRPeriod: got %d, want 21", cfg.Analysis.ATRPeriod)
	}
	if !cfg.EVT.Enabled {
		t.Error("EVT.Enabled: want true from env")
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LEVELRECON_ANALYSIS_ATR_MULTIPLIER", "0.4")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--atr-mult=0.5", "--regime-aware", "--format", "yaml"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadWithFlags("", fs)
	if err != nil {
		t.Fatalf("LoadWithFlags() error: %v", err)
	}
	if cfg.Analysis.ATRMultiplier != 0.5 {
		t.Errorf("Analysis.ATRMultiplier: got %f, want 0.5", cfg.Analysis.ATRMultiplier)
	}
	if !cfg.Analysis.RegimeAware {
		t.Error("Analysis.RegimeAware: want true from flag")
	}
	if cfg.Report.Format != "yaml" {
		t.Errorf("Report.Format: got %q, want yaml", cfg.Report.Format)
	}
	// Unchanged flags do not shadow defaults.
	if cfg.Analysis.ATRPeriod != 14 {
		t.Errorf("Analysis.ATRPeriod: got %d, want 14", cfg.Analysis.ATRPeriod)
	}
}

func TestRegisterFlagsDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)

	for flag, want := range map[string]string{
		"atr-period":    "14",
		"lookback-days": "90",
		"session-start": "09:30",
		"session":       "true",
		"format":        "text",
	} {
		f := fs.Lookup(flag)
		if f == nil {
			t.Errorf("flag --%s not registered", flag)
			continue
		}
		if f.DefValue != want {
			t.Errorf("--%s default: got %q, want %q", flag, f.DefValue, want)
		}
	}

	if f := fs.Lookup("evt-max-levels"); f == nil || f.DefValue != "2" {
		t.Errorf("--evt-max-levels: got %+v", f)
	}
}

// ── Validation ──

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(false); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if err := cfg.Validate(true); err == nil || !strings.Contains(err.Error(), "input.path") {
		t.Errorf("missing input should fail: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"atr period", func(c *Config) { c.Analysis.ATRPeriod = 0 }, "analysis.atr_period"},
		{"multiplier", func(c *Config) { c.Analysis.ATRMultiplier = 0 }, "analysis.atr_multiplier"},
		{"min points", func(c *Config) { c.Clustering.MinPoints = 0 }, "clustering.min_points"},
		{"quantile", func(c *Config) { c.EVT.ThresholdQuantile = 1 }, "evt.threshold_quantile"},
		{"format", func(c *Config) { c.Report.Format = "pdf" }, "report.format"},
		{"session", func(c *Config) { c.Session.Start = "25:00" }, "session"},
		{"timezone", func(c *Config) { c.Input.Timezone = "Mars/Olympus" }, "input.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate(false)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

// ── Conversions ──

func TestPipelineMapping(t *testing.T) {
	c := Default()
	c.Analysis.StrongRecency = true
	c.EVT.Enabled = true
	c.Backtest.ReactionLookahead = 30

	p := c.Pipeline()
	if p.ATRPeriod != 14 || p.MinPoints != 3 || p.KDEPoints != 400 || p.MaxLevels != 12 {
		t.Errorf("pipeline config: got %+v", p)
	}
	if !p.StrongRecency || !p.EVT.Enabled || p.EVT.MaxLevels != 2 {
		t.Errorf("pipeline flags: got %+v", p)
	}
	if p.Backtest.Lookahead != 30 || p.Backtest.ReactionMoveATR != 0.5 {
		t.Errorf("backtest config: got %+v", p.Backtest)
	}
	if p.MaxSlots() != 14 {
		t.Errorf("MaxSlots: got %d, want 14", p.MaxSlots())
	}
}

func TestSessionAndReportSettings(t *testing.T) {
	c := Default()
	s, err := c.SessionWindow()
	if err != nil {
		t.Fatalf("SessionWindow() error: %v", err)
	}
	if got := s.String(); !strings.Contains(got, "09:30") {
		t.Errorf("session: got %q", got)
	}

	c.Report.Format = " HTML "
	if got := c.ReportSettings().Format; got != report.FormatHTML {
		t.Errorf("report format: got %q, want html", got)
	}
}

func TestTimezoneReachesReportAndPipeline(t *testing.T) {
	c := Default()
	if got := c.ReportSettings().Location; got != utils.Eastern {
		t.Errorf("default report location: got %v", got)
	}

	c.Input.Timezone = "UTC"
	if got := c.ReportSettings().Location; got == nil || got.String() != "UTC" {
		t.Errorf("report location: got %v, want UTC", got)
	}
	if got := c.Pipeline().Location; got == nil || got.String() != "UTC" {
		t.Errorf("pipeline location: got %v, want UTC", got)
	}

	c.Input.Timezone = "Mars/Olympus"
	if got := c.Pipeline().Location; got != nil {
		t.Errorf("invalid timezone should leave location nil, got %v", got)
	}
}

func TestSettings(t *testing.T) {
	t.Setenv("LEVELRECON_LEVELS_MAX_LEVELS", "6")
	c := Default()
	c.Levels.MaxLevels = 6
	c.Analysis.LookbackDays = 30

	byKey := make(map[string]SettingStatus)
	for _, s := range Settings(c) {
		byKey[s.Key] = s
	}

	if s := byKey["levels.max_levels"]; s.Source != SourceEnv || s.Value != "6" || s.EnvVar != "LEVELRECON_LEVELS_MAX_LEVELS" {
		t.Errorf("levels.max_levels: got %+v", s)
	}
	if s := byKey["analysis.lookback_days"]; s.Source != SourceCustom {
		t.Errorf("analysis.lookback_days source: got %q", s.Source)
	}
	if s := byKey["analysis.atr_period"]; s.Source != SourceDefault || s.Value != "14" {
		t.Errorf("analysis.atr_period: got %+v", s)
	}
}
