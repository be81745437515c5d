package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/levelrecon/internal/pipeline"
	"github.com/seenimoa/levelrecon/pkg/models"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report Writer
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatHTML}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Config controls report rendering.
type Config struct {
	Format   Format         // output format (default: text)
	Title    string         // report title (default: "Quantitative Level Recon")
	ChartCfg ChartConfig    // used by the HTML format
	Location *time.Location // zone for rendered timestamps (default: US Eastern)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Format:   FormatText,
		Title:    "Quantitative Level Recon",
		ChartCfg: DefaultChartConfig(),
	}
}

// Write renders res to w in the configured format.
func Write(w io.Writer, res *pipeline.Result, cfg Config) error {
	if res == nil {
		return fmt.Errorf("result is nil")
	}
	if cfg.Title == "" {
		cfg.Title = DefaultConfig().Title
	}

	switch cfg.Format {
	case FormatText, "":
		_, err := io.WriteString(w, Text(res, cfg))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatHTML:
		html, err := HTML(res, cfg)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return fmt.Errorf("unknown report format %q", cfg.Format)
	}
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

// NoLevelsMessage is printed when a run yields no levels.
const NoLevelsMessage = "No statistically meaningful levels identified."

const levelRowFormat = "  %-10s %12s %7s %10s %8s %8s %7s %9s %9s %6s\n"

// Text renders res as a terminal report.
func Text(res *pipeline.Result, cfg Config) string {
	title := cfg.Title
	if title == "" {
		title = DefaultConfig().Title
	}

	var sb strings.Builder
	line := strings.Repeat("═", 100)
	thinLine := strings.Repeat("─", 100)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", title))
	sb.WriteString(fmt.Sprintf("  Run: %s | Window: %s | Bars: %s of %s | Volume: %s | Swings: %s\n",
		res.RunID, res.Window.Label,
		utils.FormatCount(res.WindowBars), utils.FormatCount(res.TotalBars),
		utils.FormatVolume(res.WindowVolume), utils.FormatCount(res.SwingCount)))
	if res.RegimeAware {
		sb.WriteString("  Regime-aware: recent window merged with full history\n")
	}
	sb.WriteString(line + "\n\n")

	sb.WriteString(fmt.Sprintf("  Current Price: %s\n", utils.FormatPrice(res.CurrentPrice)))
	if res.ATH != nil {
		sb.WriteString(fmt.Sprintf("  All-Time High: %s (set %s)\n",
			utils.FormatPrice(res.ATH.Price), utils.FormatIn(res.ATH.Timestamp, cfg.Location)))
	}

	if d := res.Density; !d.IsEmpty() {
		sb.WriteString(fmt.Sprintf("  Density Grid: %d points | Peak density %.4f\n", len(d.Grid), d.MaxDensity))
		sb.WriteString(fmt.Sprintf("  Bandwidths: %s\n", bandwidthInfo(d.Bandwidths)))
		sb.WriteString(fmt.Sprintf("  Price Range: %s to %s\n",
			utils.FormatPrice(d.Grid[0].Price), utils.FormatPrice(d.Grid[len(d.Grid)-1].Price)))
	}
	sb.WriteString(thinLine + "\n")

	if len(res.Levels) == 0 {
		sb.WriteString("  " + NoLevelsMessage + "\n")
		sb.WriteString(line + "\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf(levelRowFormat,
		"Type", "Price", "Dist", "Conf %", "Band", "Hit Rate", "Touches", "Avg React", "Max Move", "Bars"))
	for _, r := range levelRows(res.Levels, res.CurrentPrice) {
		sb.WriteString(fmt.Sprintf(levelRowFormat,
			r.Type, r.Price, r.Distance, r.Confidence, r.Band, r.HitRate, r.Touches, r.AvgReaction, r.MaxMove, r.Bars))
	}
	sb.WriteString(thinLine + "\n")

	s := res.Summary
	sb.WriteString(fmt.Sprintf("  Backtest: %d of %d levels tested | %s touches | hit rate %s | avg reaction %.2f\n",
		s.Tested, s.Levels, utils.FormatCount(s.Touches), utils.FormatPct(s.HitRate), s.AvgReaction))
	if res.TailLevels > 0 {
		sb.WriteString(fmt.Sprintf("  Tail extrapolation: %d projected resistance level(s)\n", res.TailLevels))
	}
	sb.WriteString(line + "\n")
	return sb.String()
}

func bandwidthInfo(bws []float64) string {
	if len(bws) == 0 {
		return "auto"
	}
	parts := make([]string, len(bws))
	for i, bw := range bws {
		parts[i] = fmt.Sprintf("%.4f", bw)
	}
	return strings.Join(parts, ", ")
}

// LevelRow is a level flattened for display. Performance columns read "-"
// for untested levels.
type LevelRow struct {
	Type        string
	Price       string
	Distance    string
	Confidence  string
	Band        string
	HitRate     string
	Touches     string
	AvgReaction string
	MaxMove     string
	Bars        string
	Resistance  bool
}

func levelRows(levels []models.Level, current float64) []LevelRow {
	rows := make([]LevelRow, 0, len(levels))
	for _, l := range levels {
		p := l.Performance
		row := LevelRow{
			Type:        string(l.Type),
			Price:       utils.FormatPrice(l.Price),
			Distance:    "-",
			Confidence:  fmt.Sprintf("%.2f", l.Confidence*100),
			Band:        fmt.Sprintf("+/-%.2f", l.ConfidenceBand),
			HitRate:     "-",
			Touches:     "-",
			AvgReaction: "-",
			MaxMove:     "-",
			Bars:        "-",
			Resistance:  l.Type == models.Resistance,
		}
		if current != 0 && !math.IsNaN(current) {
			row.Distance = utils.FormatSignedPct((l.Price - current) / current)
		}
		if p.Tested() {
			row.HitRate = utils.FormatPct(p.HitRate)
			row.Touches = fmt.Sprintf("%d", p.Tests)
			row.AvgReaction = fmt.Sprintf("%.2f", p.AvgReaction)
			row.MaxMove = fmt.Sprintf("%.2f", p.MaxFavorableExcursion)
			if p.AvgReactionBars > 0 {
				row.Bars = fmt.Sprintf("%.1f", p.AvgReactionBars)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ════════════════════════════════════════════════════════════════════
// HTML renderer
// ════════════════════════════════════════════════════════════════════

// htmlData is the template model for the HTML report.
type htmlData struct {
	Title        string
	RunID        string
	Window       string
	Bars         string
	Swings       string
	CurrentPrice string
	ATH          string
	RegimeAware  bool
	Chart        template.HTML
	Levels       []LevelRow
	NoLevels     string
	Summary      string
}

// HTML renders res as a standalone page with an inline density chart.
func HTML(res *pipeline.Result, cfg Config) (string, error) {
	if res == nil {
		return "", fmt.Errorf("result is nil")
	}
	if cfg.Title == "" {
		cfg.Title = DefaultConfig().Title
	}

	data := htmlData{
		Title:        cfg.Title,
		RunID:        res.RunID,
		Window:       res.Window.Label,
		Bars:         fmt.Sprintf("%s of %s", utils.FormatCount(res.WindowBars), utils.FormatCount(res.TotalBars)),
		Swings:       utils.FormatCount(res.SwingCount),
		CurrentPrice: utils.FormatPrice(res.CurrentPrice),
		RegimeAware:  res.RegimeAware,
		Chart:        template.HTML(DensityChart(res.Density, res.Levels, res.CurrentPrice, cfg.ChartCfg)),
		Levels:       levelRows(res.Levels, res.CurrentPrice),
		NoLevels:     NoLevelsMessage,
		Summary: fmt.Sprintf("%d of %d levels tested, %s touches, hit rate %s",
			res.Summary.Tested, res.Summary.Levels, utils.FormatCount(res.Summary.Touches), utils.FormatPct(res.Summary.HitRate)),
	}
	if res.ATH != nil {
		data.ATH = fmt.Sprintf("%s (set %s)", utils.FormatPrice(res.ATH.Price), utils.FormatIn(res.ATH.Timestamp, cfg.Location))
	}

	tmpl, err := template.New("report").Parse(ReportTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
