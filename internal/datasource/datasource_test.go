package datasource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/levelrecon/pkg/models"
	"github.com/seenimoa/levelrecon/pkg/utils"
)

func read(t *testing.T, body string) ([]models.Bar, error) {
	t.Helper()
	return ReadBars(context.Background(), strings.NewReader(body), utils.Eastern)
}

// minuteBars builds n one-minute bars starting at start.
func minuteBars(start time.Time, n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Timestamp: start.Add(time.Duration(i) * time.Minute), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	}
	return bars
}

// ════════════════════════════════════════════════════════════════════
// CSV parsing
// ════════════════════════════════════════════════════════════════════

func TestReadBarsCombinedTimestamp(t *testing.T) {
	body := `Date,Open,High,Low,Close,Volume
2024-03-05 09:31:00,4500.25,4502,4499.5,4501,"1,250"

2024-03-05 09:30:00,4499,4501,4498,4500.25,900
`
	bars, err := read(t, body)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	// Sorted by time.
	assert.Equal(t, 30, bars[0].Timestamp.Minute())
	assert.Equal(t, 31, bars[1].Timestamp.Minute())
	assert.Equal(t, utils.Eastern, bars[0].Timestamp.Location())

	assert.Equal(t, 4500.25, bars[1].Open)
	assert.Equal(t, 4502.0, bars[1].High)
	assert.Equal(t, 4499.5, bars[1].Low)
	assert.Equal(t, 4501.0, bars[1].Close)
	assert.Equal(t, 1250.0, bars[1].Volume)
}

func TestReadBarsSeparateDateTime(t *testing.T) {
	body := `date,time,open,high,low,close,volume
3/5/2024,09:30:00.500,10,11,9,10.5,100
2024/03/05,9:31,10.5,12,10,11,200
2024-3-5,09:32:00,11,11.5,10.5,11.25,300
`
	bars, err := read(t, body)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	for i, b := range bars {
		assert.Equal(t, 2024, b.Timestamp.Year())
		assert.Equal(t, time.March, b.Timestamp.Month())
		assert.Equal(t, 5, b.Timestamp.Day())
		assert.Equal(t, 30+i, b.Timestamp.Minute())
	}
	assert.Equal(t, 300.0, bars[2].Volume)
}

func TestReadBarsSkipsShortRows(t *testing.T) {
	body := `2024-03-05T09:30:00,1,2,0.5,1.5,10
2024-03-05T09:31:00,1,2,,1.5,10
,,,,,,
2024-03-05T09:32:00,1,2,0.5,1.5,10
`
	bars, err := read(t, body)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestReadBarsErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty", "", ErrEmptyInput},
		{"header only", "date,open,high,low,close,volume\n", ErrEmptyInput},
		{"bad timestamp", "yesterday,1,2,0.5,1.5,10\n", ErrTimestamp},
		{"bad date pair", "05-03-2024,09:30,1,2,0.5,1.5,10\n", ErrTimestamp},
		{"bad number", "2024-03-05 09:30:00,1,two,0.5,1.5,10\n", ErrParseNumber},
		{"nan rejected", "2024-03-05 09:30:00,1,NaN,0.5,1.5,10\n", ErrParseNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := read(t, tt.body)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseNumberNamesField(t *testing.T) {
	_, err := parseNumber("12x", "close")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"close"`)
	assert.Contains(t, err.Error(), `"12x"`)
}

func TestCSVSourceLoadBars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	var sb strings.Builder
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, utils.Eastern)
	for i := 0; i < 60; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		sb.WriteString(ts.Format("2006-01-02 15:04:05"))
		sb.WriteString(",100,101,99,100.5,1000\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	src := NewCSVSource(path, nil)
	assert.Equal(t, "csv:"+path, src.Name())

	bars, err := Load(context.Background(), src, PrepareOptions{Session: utils.RegularHours(), FilterSession: true})
	require.NoError(t, err)
	// 09:00..09:59 → only 09:30 onwards survive.
	require.Len(t, bars, 30)
	assert.Equal(t, 30, bars[0].Timestamp.Minute())

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), nil).LoadBars(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// ════════════════════════════════════════════════════════════════════
// Filters & validation
// ════════════════════════════════════════════════════════════════════

func TestFilterSession(t *testing.T) {
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, utils.Eastern)
	var bars []models.Bar
	for h := 0; h < 10; h++ {
		bars = append(bars, models.Bar{Timestamp: start.Add(time.Duration(h) * time.Hour)})
	}
	out := FilterSession(bars, utils.RegularHours())
	// 10:00 .. 15:00 inclusive.
	require.Len(t, out, 6)
	assert.Equal(t, 10, out[0].Timestamp.Hour())
	assert.Equal(t, 15, out[len(out)-1].Timestamp.Hour())
}

func TestFilterLookback(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, utils.Eastern)
	var bars []models.Bar
	for d := 0; d < 30; d++ {
		bars = append(bars, models.Bar{Timestamp: start.AddDate(0, 0, d)})
	}

	assert.Len(t, FilterLookback(bars, 0), 30)
	// Cutoff is inclusive: last - 5 days keeps 6 bars.
	last5 := FilterLookback(bars, 5)
	require.Len(t, last5, 6)
	assert.Equal(t, bars[24].Timestamp, last5[0].Timestamp)
	assert.Empty(t, FilterLookback(nil, 5))
}

func TestValidate(t *testing.T) {
	start := time.Date(2024, 3, 5, 9, 30, 0, 0, utils.Eastern)

	assert.NoError(t, Validate(minuteBars(start, 10)))
	assert.ErrorIs(t, Validate(minuteBars(start, 9)), ErrNotEnoughBars)

	dup := minuteBars(start, 12)
	dup[5].Timestamp = dup[4].Timestamp
	assert.ErrorIs(t, Validate(dup), ErrNonMonotonic)
}

func TestPrepare(t *testing.T) {
	evening := time.Date(2024, 3, 5, 18, 0, 0, 0, utils.Eastern)
	bars := minuteBars(evening, 20)

	out, err := Prepare(bars, PrepareOptions{})
	require.NoError(t, err)
	assert.Len(t, out, 20)

	_, err = Prepare(bars, PrepareOptions{Session: utils.RegularHours(), FilterSession: true})
	assert.ErrorIs(t, err, ErrNoSessionBars)

	// Session keeps only 5 bars: too few after filtering.
	mixed := minuteBars(time.Date(2024, 3, 5, 9, 25, 0, 0, utils.Eastern), 10)
	_, err = Prepare(mixed, PrepareOptions{Session: utils.RegularHours(), FilterSession: true})
	assert.ErrorIs(t, err, ErrNotEnoughBars)
}
