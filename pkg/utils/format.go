// Package utils provides common utility functions for levelrecon:
// US-Eastern session helpers and number formatting for reports.
package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatPrice formats a price with thousands separators and two decimals
// (4,512.25).
func FormatPrice(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "-"
	}
	return humanize.FormatFloat("#,###.##", p)
}

// FormatCount formats an integer count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatVolume formats volume in compact SI notation (e.g., 1.2 k, 3.4 M).
func FormatVolume(v float64) string {
	if v < 1000 {
		return fmt.Sprintf("%.0f", v)
	}
	return strings.TrimSpace(humanize.SIWithDigits(v, 1, ""))
}

// FormatPct formats a 0..1 fraction as a percentage with one decimal.
func FormatPct(frac float64) string {
	return fmt.Sprintf("%.1f%%", frac*100)
}

// FormatSignedPct formats a 0..1 fraction as a signed percentage.
func FormatSignedPct(frac float64) string {
	return fmt.Sprintf("%+.2f%%", frac*100)
}
