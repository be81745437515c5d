package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/seenimoa/levelrecon/internal/report"
)

// flagBinding maps a command-line flag onto a config key.
type flagBinding struct {
	Flag  string
	Key   string
	Usage string
}

var flagBindings = []flagBinding{
	{"input", "input.path", "bar CSV file"},
	{"timezone", "input.timezone", "IANA timezone of the input timestamps"},
	{"session", "session.enabled", "keep only bars inside the trading session"},
	{"session-start", "session.start", "session start (HH:MM, inclusive)"},
	{"session-end", "session.end", "session end (HH:MM, exclusive)"},
	{"atr-period", "analysis.atr_period", "ATR period in bars"},
	{"atr-mult", "analysis.atr_multiplier", "swing threshold in ATRs"},
	{"min-swing-distance", "analysis.min_swing_distance", "minimum swing size in price units"},
	{"lookback-days", "analysis.lookback_days", "analysis window in days (0 = full history)"},
	{"regime-aware", "analysis.regime_aware", "blend the recent window with full-history levels"},
	{"strong-recency", "analysis.strong_recency", "halve the recency half-life"},
	{"eps-factor", "clustering.eps_factor", "scale applied to the automatic cluster radius"},
	{"min-points", "clustering.min_points", "minimum swings per cluster"},
	{"kde-points", "density.kde_points", "density grid size"},
	{"band-atr", "levels.confidence_band_atr", "level band half-width in ATRs"},
	{"max-levels", "levels.max_levels", "maximum density levels"},
	{"evt", "evt.enabled", "add tail-extrapolated resistance levels"},
	{"evt-lookback-days", "evt.lookback_days", "bars used for the tail fit, in days (0 = all)"},
	{"evt-tail-prob", "evt.tail_probability", "first tail probability"},
	{"evt-threshold-quantile", "evt.threshold_quantile", "exceedance threshold quantile"},
	{"evt-max-levels", "evt.max_levels", "maximum tail levels"},
	{"reaction-lookahead", "backtest.reaction_lookahead", "bars inspected after a level touch"},
	{"reaction-move-atr", "backtest.reaction_move_atr", "favourable move in ATRs that counts as a hit"},
	{"format", "report.format", "report format: " + formatList()},
	{"output", "report.output", "write the report to this file instead of stdout"},
	{"chart", "report.chart", "write an SVG density chart to this file"},
	{"metrics-file", "metrics.textfile", "write run metrics in Prometheus text format"},
	{"log-level", "logging.level", "log level: debug, info, warn, error"},
	{"log-format", "logging.format", "log format: text or json"},
}

// RegisterFlags defines one flag per bound config key on fs, using the
// configuration defaults as flag defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	v := viper.New()
	setDefaults(v)
	for _, b := range flagBindings {
		if fs.Lookup(b.Flag) != nil {
			continue
		}
		switch def := v.Get(b.Key).(type) {
		case bool:
			fs.Bool(b.Flag, def, b.Usage)
		case int:
			fs.Int(b.Flag, def, b.Usage)
		case float64:
			fs.Float64(b.Flag, def, b.Usage)
		default:
			fs.String(b.Flag, v.GetString(b.Key), b.Usage)
		}
	}
}

// bindFlags attaches every registered flag to its config key. Only flags
// changed on the command line override other sources.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, b := range flagBindings {
		f := fs.Lookup(b.Flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", b.Flag, err)
		}
	}
	return nil
}

func formatList() string {
	names := make([]string, 0, len(report.Formats()))
	for _, f := range report.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
