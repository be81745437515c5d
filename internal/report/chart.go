// Package report renders pipeline results as terminal text, JSON, YAML or
// a standalone HTML page with an SVG density chart.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/levelrecon/pkg/models"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// Level marker colors.
const (
	supportColor    = "#26a69a"
	resistanceColor = "#ef5350"
	densityColor    = "#2196f3"
	priceColor      = "#ff9800"
)

// ════════════════════════════════════════════════════════════════════
// Density Chart
// ════════════════════════════════════════════════════════════════════

// DensityChart draws the swing-price density curve with price on the X axis,
// a vertical marker for every level (green support, red resistance) and a
// dashed line at the current price. Levels outside the grid are clipped to
// its edges.
func DensityChart(d models.DensityAnalysis, levels []models.Level, currentPrice float64, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if d.IsEmpty() {
		return emptySVG(cfg, "No density estimate")
	}
	if cfg.Title == "" {
		cfg.Title = "Swing Price Density"
	}

	px, py, pw, ph := cfg.plotArea()

	minPrice, maxPrice := d.Grid[0].Price, d.Grid[len(d.Grid)-1].Price
	priceRange := maxPrice - minPrice
	if priceRange < 1e-9 {
		priceRange = 1
	}
	maxDensity := d.MaxDensity
	if maxDensity <= 0 {
		maxDensity = 1
	}

	priceToX := func(p float64) float64 {
		ratio := (p - minPrice) / priceRange
		ratio = math.Min(math.Max(ratio, 0), 1)
		return float64(px) + ratio*float64(pw)
	}
	densityToY := func(v float64) float64 {
		return float64(py+ph) - (v/maxDensity)*float64(ph)*0.95
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// X-axis grid (price)
	gridLines := 6
	for i := 0; i <= gridLines; i++ {
		price := minPrice + priceRange*float64(i)/float64(gridLines)
		x := priceToX(price)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			x, py, x, py+ph, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			x, py+ph+18, cfg.FontSize, cfg.TextColor, utils.FormatPrice(price)))
	}

	// Density curve
	parts := make([]string, 0, len(d.Grid))
	for i, pt := range d.Grid {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		parts = append(parts, fmt.Sprintf("%s%.1f,%.1f", cmd, priceToX(pt.Price), densityToY(pt.Density)))
	}
	sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
		strings.Join(parts, " "), densityColor))

	// Level markers
	for _, l := range levels {
		color := supportColor
		if l.Type == models.Resistance {
			color = resistanceColor
		}
		x := priceToX(l.Price)
		sb.WriteString(fmt.Sprintf(`<line class="level" x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="%.1f" opacity="0.8"/>`,
			x, py, x, py+ph, color, 1+2*l.Confidence))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="9" fill="%s" text-anchor="middle">%s</text>`,
			x, py-4, color, utils.FormatPrice(l.Price)))
	}

	// Current price
	if currentPrice > 0 {
		x := priceToX(currentPrice)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="1.5" stroke-dasharray="6,3"/>`,
			x, py, x, py+ph, priceColor))
	}

	// Legend
	legend := []struct{ name, color string }{
		{"Density", densityColor},
		{"Support", supportColor},
		{"Resistance", resistanceColor},
		{"Last price", priceColor},
	}
	for i, item := range legend {
		ly := py + 10 + i*16
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
			px+pw-110, ly, px+pw-90, ly, item.color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+pw-85, ly+4, cfg.TextColor, item.name))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
