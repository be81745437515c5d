// levelrecon discovers statistically meaningful support and resistance
// levels from intraday OHLCV bars.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/levelrecon/internal/config"
	"github.com/seenimoa/levelrecon/internal/datasource"
	"github.com/seenimoa/levelrecon/internal/infra"
	"github.com/seenimoa/levelrecon/internal/pipeline"
	"github.com/seenimoa/levelrecon/internal/report"
	"github.com/seenimoa/levelrecon/pkg/logger"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "levelrecon",
	Short: "Quantitative support and resistance level discovery",
	Long: `levelrecon reads intraday OHLCV bars, detects ATR-scaled swing points,
clusters them by price, estimates a volume-weighted price density and reports
the density peaks as support and resistance levels, each backtested against
the bars that produced it. Tail-extrapolated resistance above the all-time
high is available with --evt.`,
	SilenceUsage: true,
}

// loadConfig is the PreRunE of commands that need the configuration.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err = config.LoadWithFlags(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "levelrecon %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [bars.csv]",
	Short: "Discover support and resistance levels",
	Long: `Run the full pipeline on a bar file and print the level report.

Examples:
  levelrecon analyze es_1m.csv
  levelrecon analyze es_1m.csv --lookback-days 0 --regime-aware
  levelrecon analyze es_1m.csv --evt --format json --output levels.json
  levelrecon analyze --config ./config/config.yaml --chart density.svg`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: loadConfig,
	RunE:    func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			cfg.Input.Path = args[0]
		}
		if err := cfg.Validate(true); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runAnalyze(ctx, cmd.OutOrStdout())
	},
}

func runAnalyze(ctx context.Context, stdout io.Writer) error {
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	session, err := cfg.SessionWindow()
	if err != nil {
		return err
	}

	// 1. Bars
	start := time.Now()
	src := datasource.NewCSVSource(cfg.Input.Path, loc)
	bars, err := datasource.Load(ctx, src, datasource.PrepareOptions{
		Session:       session,
		FilterSession: cfg.Session.Enabled,
	})
	if err != nil {
		return err
	}
	log.Infow("loaded bars",
		"source", src.Name(),
		"bars", utils.FormatCount(len(bars)),
		"from", utils.FormatIn(bars[0].Timestamp, loc),
		"to", utils.FormatIn(bars[len(bars)-1].Timestamp, loc),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	// 2. Pipeline
	metrics := infra.NewMetrics()
	res, runErr := pipeline.New(cfg.Pipeline(), log, metrics).Run(ctx, bars)
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warnw("metrics not written", "path", cfg.Metrics.Textfile, "error", err)
	}
	if runErr != nil {
		return runErr
	}

	// 3. Report
	rc := cfg.ReportSettings()
	if err := writeReport(stdout, res, rc); err != nil {
		return err
	}
	if cfg.Report.Chart != "" {
		svg := report.DensityChart(res.Density, res.Levels, res.CurrentPrice, rc.ChartCfg)
		if err := os.WriteFile(cfg.Report.Chart, []byte(svg), 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		log.Infow("chart written", "path", cfg.Report.Chart)
	}
	return nil
}

func writeReport(stdout io.Writer, res *pipeline.Result, rc report.Config) error {
	if cfg.Report.Output == "" {
		return report.Write(stdout, res, rc)
	}

	f, err := os.Create(cfg.Report.Output)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.Write(f, res, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the effective configuration",
	PreRunE: loadConfig,
	RunE:    func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
		fmt.Fprintln(out, "  levelrecon: Effective Configuration")
		fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
		fmt.Fprintf(out, "  Version:  %s (%s)\n", version, commit)
		fmt.Fprintln(out)

		for _, s := range config.Settings(cfg) {
			value := s.Value
			if value == "" {
				value = "-"
			}
			fmt.Fprintf(out, "  %-30s %-18s %s\n", s.Key, value, s.Source)
		}

		fmt.Fprintln(out)
		if err := cfg.Validate(false); err != nil {
			fmt.Fprintf(out, "  Problems:\n    %v\n", err)
		} else {
			fmt.Fprintln(out, "  Configuration OK")
		}
		fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
		return nil
	},
}
