package slots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clinicops/booking-platform/internal/clinic"
)

// Interval is a half-open [Start, End) time range occupied by a blocking
// appointment.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is one bookable start/end pair. Start and End are UTC instants;
// Label is the start rendered in the clinic's local time.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// Params are the inputs to Compute. Now is injectable for determinism;
// the zero value means the actual current time.
type Params struct {
	Date            string // strict YYYY-MM-DD
	Timezone        string // IANA name
	DurationMinutes int
	StepMinutes     int
	LeadTimeMinutes int
	MaxAdvanceDays  int
	Hours           [7]clinic.DayHours
	Busy            []Interval
	Now             time.Time
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Compute returns the chronologically ordered bookable start times for one
// service on one calendar date. It is a pure function: identical inputs
// produce identical output, and it never mutates its arguments.
//
// A closed day, a missing hours row, degenerate hours (close <= open) and
// a duration that does not fit the day all yield an empty list, not an
// error. Malformed inputs yield a validation error.
func Compute(p Params) ([]Slot, error) {
	if !dateRe.MatchString(p.Date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, p.Date)
	}
	if p.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDuration, p.DurationMinutes)
	}
	if p.StepMinutes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, p.StepMinutes)
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, p.Timezone)
	}

	// Parse in the clinic's zone so the weekday is the clinic-local one,
	// not the server's. This also rejects non-dates like 2026-02-30.
	localMidnight, err := time.ParseInLocation("2006-01-02", p.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, p.Date)
	}

	row := p.Hours[int(localMidnight.Weekday())]
	if row.Closed || row.Open == "" || row.Close == "" {
		return []Slot{}, nil
	}

	openMinutes, err := parseClock(row.Open)
	if err != nil {
		return nil, fmt.Errorf("operating hours open: %w", err)
	}
	closeMinutes, err := parseClock(row.Close)
	if err != nil {
		return nil, fmt.Errorf("operating hours close: %w", err)
	}
	if closeMinutes <= openMinutes {
		return []Slot{}, nil
	}

	latestStart := closeMinutes - p.DurationMinutes
	if latestStart < openMinutes {
		return []Slot{}, nil
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	earliest := now.Add(time.Duration(p.LeadTimeMinutes) * time.Minute)
	horizon := now.Add(time.Duration(p.MaxAdvanceDays) * 24 * time.Hour)

	year, month, day := localMidnight.Date()
	var out []Slot
	for m := openMinutes; m <= latestStart; m += p.StepMinutes {
		// time.Date normalizes the minute offset through the zone's
		// rules, so the conversion stays correct across DST changes.
		start := time.Date(year, month, day, 0, m, 0, 0, loc)
		end := time.Date(year, month, day, 0, m+p.DurationMinutes, 0, 0, loc)

		if start.Before(earliest) {
			continue
		}
		if start.After(horizon) {
			continue
		}
		if overlapsAny(start, end, p.Busy) {
			continue
		}

		out = append(out, Slot{
			Start: start.UTC(),
			End:   end.UTC(),
			Label: start.Format("3:04 PM"),
		})
	}
	if out == nil {
		out = []Slot{}
	}
	return out, nil
}

// overlapsAny reports whether [start, end) intersects any busy interval.
// Intervals are half-open, so an exactly abutting appointment does not
// block the candidate.
func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour*60 + minute, nil
}
