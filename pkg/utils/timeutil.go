package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Eastern is the US Eastern location (America/New_York).
var Eastern *time.Location

func init() {
	var err error
	Eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST if the tz database is not available
		Eastern = time.FixedZone("EST", -5*60*60)
	}
}

// LoadLocation resolves a zone name; an empty name means Eastern.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "America/New_York" {
		return Eastern, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// FormatIn formats t as "2006-01-02 15:04" in loc; a nil loc means Eastern.
func FormatIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = Eastern
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

// Session is a daily trading window [Start, End) in a given location.
// Start and End are offsets from local midnight.
type Session struct {
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

// RegularHours returns the US equity regular trading session, 09:30-16:00 Eastern.
func RegularHours() Session {
	return Session{
		Start:    9*time.Hour + 30*time.Minute,
		End:      16 * time.Hour,
		Location: Eastern,
	}
}

// NewSession builds a session from "HH:MM" clock strings.
func NewSession(start, end string, loc *time.Location) (Session, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Session{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Session{}, err
	}
	if e <= s {
		return Session{}, fmt.Errorf("session end %s must be after start %s", end, start)
	}
	if loc == nil {
		loc = Eastern
	}
	return Session{Start: s, End: e, Location: loc}, nil
}

// Contains reports whether t falls inside the session on its local date.
func (s Session) Contains(t time.Time) bool {
	loc := s.Location
	if loc == nil {
		loc = Eastern
	}
	tod := SinceMidnight(t.In(loc))
	return tod >= s.Start && tod < s.End
}

// String renders the session as "09:30-16:00 America/New_York".
func (s Session) String() string {
	loc := s.Location
	if loc == nil {
		loc = Eastern
	}
	return FormatClock(s.Start) + "-" + FormatClock(s.End) + " " + loc.String()
}

// SinceMidnight returns the wall-clock offset of t from its local midnight.
func SinceMidnight(t time.Time) time.Duration {
	h, m, sec := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(t.Nanosecond())
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(v string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", v)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid clock %q: want HH:MM", v)
		}
		d += time.Duration(n) * units[i]
	}
	return d, nil
}

// FormatClock renders a midnight offset as "HH:MM".
func FormatClock(d time.Duration) string {
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
