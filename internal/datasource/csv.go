package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/levelrecon/pkg/models"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

// Accepted layouts. Single-digit month/day/hour layouts also accept
// zero-padded input; fractional seconds are accepted after any seconds field.
var (
	dateLayouts = []string{"2006-1-2", "2006/1/2", "1/2/2006"}
	timeLayouts = []string{"15:04:05", "15:04"}

	dateTimeLayouts = []string{
		"2006-1-2 15:04:05",
		"2006/1/2 15:04:05",
		"1/2/2006 15:04:05",
		"2006-1-2T15:04:05",
	}
)

// CSVSource reads bars from a headerless or headed CSV file.
//
// Rows carry either "timestamp,open,high,low,close,volume" or
// "date,time,open,high,low,close,volume". Timestamps are read in Location.
type CSVSource struct {
	Path     string
	Location *time.Location
}

// NewCSVSource creates a CSV source; a nil location means US Eastern.
func NewCSVSource(path string, loc *time.Location) *CSVSource {
	if loc == nil {
		loc = utils.Eastern
	}
	return &CSVSource{Path: path, Location: loc}
}

// Name returns the source description.
func (s *CSVSource) Name() string { return "csv:" + s.Path }

// LoadBars opens the file and parses every row.
func (s *CSVSource) LoadBars(ctx context.Context) ([]models.Bar, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return ReadBars(ctx, f, s.Location)
}

// ReadBars parses CSV rows from r into a timestamp-sorted bar series.
//
// A first field equal to "date" (any case) marks a header row. Blank rows
// and rows with fewer than six non-empty fields are skipped. Thousands
// separators are stripped from numbers.
func ReadBars(ctx context.Context, r io.Reader, loc *time.Location) ([]models.Bar, error) {
	if loc == nil {
		loc = utils.Eastern
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var bars []models.Bar
	for n := 1; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		bar, ok, err := parseRecord(record, loc)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			bars = append(bars, bar)
		}
	}

	if len(bars) == 0 {
		return nil, ErrEmptyInput
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// parseRecord converts one CSV row; ok is false for rows that are skipped.
func parseRecord(record []string, loc *time.Location) (models.Bar, bool, error) {
	if len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "date") {
		return models.Bar{}, false, nil
	}

	fields := make([]string, 0, len(record))
	for _, f := range record {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) < 6 {
		return models.Bar{}, false, nil
	}

	var (
		ts     time.Time
		offset int
		err    error
	)
	if len(fields) >= 7 {
		ts, err = parseDateTimePair(fields[0], fields[1], loc)
		offset = 2
	} else {
		ts, err = parseDateTime(fields[0], loc)
		offset = 1
	}
	if err != nil {
		return models.Bar{}, false, err
	}

	names := [...]string{"open", "high", "low", "close", "volume"}
	var vals [len(names)]float64
	for i, name := range names {
		v, err := parseNumber(fields[offset+i], name)
		if err != nil {
			return models.Bar{}, false, err
		}
		vals[i] = v
	}

	return models.Bar{
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, true, nil
}

// parseNumber parses a decimal field, stripping thousands separators.
func parseNumber(value, field string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("%w %q from value %q", ErrParseNumber, field, value)
	}
	f, _ := d.Float64()
	return f, nil
}

func parseDateTimePair(date, clock string, loc *time.Location) (time.Time, error) {
	for _, dl := range dateLayouts {
		for _, tl := range timeLayouts {
			if ts, err := time.ParseInLocation(dl+" "+tl, date+" "+clock, loc); err == nil {
				return ts, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w from %q %q", ErrTimestamp, date, clock)
}

func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w from %q", ErrTimestamp, value)
}
