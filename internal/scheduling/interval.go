// Package scheduling contains the availability engine: the interval model,
// the concurrent and sequential slot generators and the calendar cursor.
// Nothing here touches storage: callers load bookings and pass them in.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultGranularity is the booking grid: every stored and generated
// interval sits on a quarter-hour boundary.
const DefaultGranularity = 15 * time.Minute

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval returns an interval or an InvalidParameterError when start
// is not strictly before end.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if !iv.Valid() {
		return Interval{}, &InvalidParameterError{Field: "interval", Reason: "start must be before end"}
	}
	return iv, nil
}

// Valid reports whether Start < End.
func (iv Interval) Valid() bool { return iv.Start.Before(iv.End) }

// Duration is End - Start.
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

func (iv Interval) String() string {
	return iv.Start.Format("2006-01-02 15:04") + "-" + iv.End.Format("15:04")
}

// Overlaps reports whether a and b share any instant. Back-to-back
// intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// firstOverlap returns the first interval in busy that overlaps iv.
func firstOverlap(iv Interval, busy []Interval) (Interval, bool) {
	for _, b := range busy {
		if Overlaps(iv, b) {
			return b, true
		}
	}
	return Interval{}, false
}

// Round15 rounds t to the nearest quarter hour. Ties round up and the
// carry flows into the next hour (or day).
func Round15(t time.Time) time.Time { return RoundTo(t, DefaultGranularity) }

// RoundTo rounds t to the nearest multiple of step counted from local
// midnight of t's day. A non-positive step returns t unchanged.
func RoundTo(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		return t
	}
	midnight := startOfDay(t)
	offset := t.Sub(midnight)
	rounded := (offset + step/2) / step * step
	return midnight.Add(rounded)
}

// RoundInterval rounds both ends of iv to step.
func RoundInterval(iv Interval, step time.Duration) Interval {
	return Interval{Start: RoundTo(iv.Start, step), End: RoundTo(iv.End, step)}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM". "24:00" is accepted as the end of the day.
func ParseClock(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("clock %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return ClockTime{}, fmt.Errorf("clock %q: bad hour", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return ClockTime{}, fmt.Errorf("clock %q: bad minute", s)
	}
	c := ClockTime{Hour: hour, Minute: minute}
	if !c.valid() {
		return ClockTime{}, fmt.Errorf("clock %q: out of range", s)
	}
	return c, nil
}

func (c ClockTime) valid() bool {
	if c.Hour == 24 {
		return c.Minute == 0
	}
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// On materialises c on the calendar day of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// MarshalText renders the clock as "HH:MM".
func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText lets ClockTime be decoded from TOML and JSON strings.
func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is the daily operating window. Every reservation and generated
// slot must fit inside it on the calendar day where it starts.
type Window struct {
	Open  ClockTime `json:"open" toml:"open"`
	Close ClockTime `json:"close" toml:"close"`
}

// DefaultWindow is 06:00 to 19:00.
var DefaultWindow = Window{Open: ClockTime{Hour: 6}, Close: ClockTime{Hour: 19}}

// Validate checks both bounds and that Open precedes Close.
func (w Window) Validate() error {
	if !w.Open.valid() || !w.Close.valid() {
		return fmt.Errorf("operating window %s-%s: out of range", w.Open, w.Close)
	}
	if w.Open.Minutes() >= w.Close.Minutes() {
		return fmt.Errorf("operating window %s-%s: open must be before close", w.Open, w.Close)
	}
	return nil
}

// On returns the concrete open and close instants for day.
func (w Window) On(day time.Time) (opens, closes time.Time) {
	return w.Open.On(day), w.Close.On(day)
}

// Contains reports whether iv lies inside the window of the day iv starts
// on. An interval that runs past midnight is never contained.
func (w Window) Contains(iv Interval) bool {
	if !iv.Valid() {
		return false
	}
	opens, closes := w.On(iv.Start)
	return !iv.Start.Before(opens) && !iv.End.After(closes)
}

func (w Window) String() string { return w.Open.String() + "-" + w.Close.String() }
