package clinic

import "time"

// DayHours is one row of a clinic's weekly operating-hours table.
type DayHours struct {
	Weekday time.Weekday `json:"weekday"`
	Open    string       `json:"open"`  // "09:00" in 24-hour format
	Close   string       `json:"close"` // "17:00" in 24-hour format
	Closed  bool         `json:"closed"`
}

// BookingRules controls how far out and how soon patients may book.
type BookingRules struct {
	LeadTimeMinutes int `json:"lead_time_minutes"`
	MaxAdvanceDays  int `json:"max_advance_days"`
	SlotStepMinutes int `json:"slot_step_minutes"`
}

// Clinic is the tenant boundary. Every tenant-scoped entity carries
// exactly one clinic id.
type Clinic struct {
	ID       string       `json:"id"`
	Slug     string       `json:"slug"`
	Name     string       `json:"name"`
	Timezone string       `json:"timezone"` // IANA name, e.g. "Asia/Manila"
	Currency string       `json:"currency"`
	Hours    [7]DayHours  `json:"hours"` // indexed by time.Weekday
	Rules    BookingRules `json:"rules"`
}

// Service is a bookable treatment offered by one clinic. Its duration
// fixes the slot width at computation time; changing it does not alter
// slots already handed out.
type Service struct {
	ID              string `json:"id"`
	ClinicID        string `json:"clinic_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          bool   `json:"active"`
}

// Location resolves the clinic's IANA timezone, falling back to UTC when
// the name is empty or unknown.
func (c *Clinic) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HoursFor returns the operating-hours row for the given weekday.
func (c *Clinic) HoursFor(day time.Weekday) DayHours {
	return c.Hours[int(day)]
}

// WeekdayHours builds a 7-row table with identical hours Monday through
// Friday and weekends closed. Convenience for seeding and tests.
func WeekdayHours(open, close string) [7]DayHours {
	var hours [7]DayHours
	for d := time.Sunday; d <= time.Saturday; d++ {
		row := DayHours{Weekday: d, Open: open, Close: close}
		if d == time.Sunday || d == time.Saturday {
			row.Closed = true
			row.Open, row.Close = "", ""
		}
		hours[int(d)] = row
	}
	return hours
}
