// Package datasource loads OHLCV bar series and prepares them for analysis.
// It defines a common BarSource interface, a CSV implementation, and the
// session, lookback and validation filters applied before the pipeline runs.
package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/seenimoa/levelrecon/pkg/models"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// BarSource defines the interface every bar loader implements.
type BarSource interface {
	// Name returns a human-readable description of the source.
	Name() string

	// LoadBars returns the full bar series sorted by timestamp.
	LoadBars(ctx context.Context) ([]models.Bar, error)
}

// --- Sentinel errors ---

// ErrEmptyInput is returned when the input holds no valid rows.
var ErrEmptyInput = errors.New("input contains no valid rows")

// ErrTimestamp is returned when a row's timestamp cannot be parsed.
var ErrTimestamp = errors.New("unable to parse timestamp")

// ErrParseNumber is returned when a numeric field cannot be parsed.
var ErrParseNumber = errors.New("failed to parse numeric field")

// ErrNotEnoughBars is returned when a series is too short to analyse.
var ErrNotEnoughBars = fmt.Errorf("not enough bars for analysis (need at least %d)", MinBars)

// ErrNonMonotonic is returned when timestamps are not strictly increasing.
var ErrNonMonotonic = errors.New("timestamps must be strictly increasing")

// ErrNoSessionBars is returned when the session filter removes every bar.
var ErrNoSessionBars = errors.New("no bars remain after applying the session filter")

// MinBars is the shortest series accepted by Validate.
const MinBars = 10

// PrepareOptions controls Prepare.
type PrepareOptions struct {
	Session       utils.Session
	FilterSession bool
}

// Prepare validates a raw series, applies the session filter and validates
// the result again.
func Prepare(raw []models.Bar, opts PrepareOptions) ([]models.Bar, error) {
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("raw series: %w", err)
	}
	if !opts.FilterSession {
		return raw, nil
	}

	bars := FilterSession(raw, opts.Session)
	if len(bars) == 0 {
		return nil, ErrNoSessionBars
	}
	if err := Validate(bars); err != nil {
		return nil, fmt.Errorf("session series: %w", err)
	}
	return bars, nil
}

// Load reads bars from src and prepares them.
func Load(ctx context.Context, src BarSource, opts PrepareOptions) ([]models.Bar, error) {
	raw, err := src.LoadBars(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name(), err)
	}
	return Prepare(raw, opts)
}
