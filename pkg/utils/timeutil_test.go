package utils

import (
	"testing"
	"time"
)

func TestEasternLocation(t *testing.T) {
	name := Eastern.String()
	if name != "America/New_York" && name != "EST" {
		t.Errorf("Eastern location = %s, want America/New_York or EST", name)
	}
	loc, err := LoadLocation("")
	if err != nil || loc != Eastern {
		t.Errorf("LoadLocation(\"\") = %v, %v; want Eastern", loc, err)
	}
	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestRegularHoursContains(t *testing.T) {
	s := RegularHours()
	day := func(h, m int) time.Time { return time.Date(2024, 3, 5, h, m, 0, 0, Eastern) }

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"open bell", day(9, 30), true},
		{"before open", day(9, 29), false},
		{"midday", day(12, 0), true},
		{"last minute", day(15, 59), true},
		{"close bell excluded", day(16, 0), false},
		{"evening", day(20, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestSessionContainsConvertsZone(t *testing.T) {
	s := RegularHours()
	// 14:45 UTC on a winter day is 09:45 EST.
	utc := time.Date(2024, 1, 10, 14, 45, 0, 0, time.UTC)
	if !s.Contains(utc) {
		t.Errorf("expected %v to fall inside %s", utc, s)
	}
}

func TestNewSession(t *testing.T) {
	s, err := NewSession("08:00", "17:15", nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Start != 8*time.Hour || s.End != 17*time.Hour+15*time.Minute {
		t.Errorf("session = %v-%v", s.Start, s.End)
	}
	if s.String() != "08:00-17:15 "+Eastern.String() {
		t.Errorf("String() = %q", s.String())
	}

	if _, err := NewSession("16:00", "09:30", nil); err == nil {
		t.Error("expected error for inverted session")
	}
	if _, err := NewSession("9h", "16:00", nil); err == nil {
		t.Error("expected error for bad clock")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"09:30", 9*time.Hour + 30*time.Minute, false},
		{"16:00:30", 16*time.Hour + 30*time.Second, false},
		{" 00:00 ", 0, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12", 0, true},
		{"aa:bb", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatClockAndFormatIn(t *testing.T) {
	if got := FormatClock(9*time.Hour + 5*time.Minute); got != "09:05" {
		t.Errorf("FormatClock = %s, want 09:05", got)
	}
	ts := time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC)
	if got := FormatIn(ts, nil); got != "2024-07-01 09:30" && Eastern.String() == "America/New_York" {
		t.Errorf("FormatIn(nil) = %s, want 2024-07-01 09:30", got)
	}
	if got := FormatIn(ts, time.UTC); got != "2024-07-01 13:30" {
		t.Errorf("FormatIn(UTC) = %s, want 2024-07-01 13:30", got)
	}
	tokyo := time.FixedZone("JST", 9*60*60)
	if got := FormatIn(ts, tokyo); got != "2024-07-01 22:30" {
		t.Errorf("FormatIn(JST) = %s, want 2024-07-01 22:30", got)
	}
}
