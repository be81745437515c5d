package datasource

import (
	"fmt"
	"time"

	"github.com/seenimoa/levelrecon/pkg/models"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// FilterSession keeps bars whose local time of day falls inside session.
func FilterSession(bars []models.Bar, session utils.Session) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if session.Contains(b.Timestamp) {
			out = append(out, b)
		}
	}
	return out
}

// FilterLookback keeps bars no older than days before the last bar.
// A zero or negative days value keeps the whole series.
func FilterLookback(bars []models.Bar, days int) []models.Bar {
	if len(bars) == 0 || days <= 0 {
		return bars
	}
	cutoff := bars[len(bars)-1].Timestamp.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.Timestamp.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks that bars has at least MinBars entries with strictly
// increasing timestamps.
func Validate(bars []models.Bar) error {
	if len(bars) < MinBars {
		return fmt.Errorf("%w: got %d", ErrNotEnoughBars, len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d at %s", ErrNonMonotonic, i, utils.FormatIn(bars[i].Timestamp, bars[i].Timestamp.Location()))
		}
	}
	return nil
}
