// Package clock supplies the process-wide time source and converts the
// calendar date + time-of-day values bookings are expressed in into instants.
package clock

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jonboulle/clockwork"
)

// Clock is the injectable "now". Production code uses New; tests use
// clockwork.NewFakeClockAt and advance it.
type Clock = clockwork.Clock

func New() Clock {
	return clockwork.NewRealClock()
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Slot is a half-open [Start, End) wall-clock interval on one calendar day.
type Slot struct {
	Date  civil.Date
	Start civil.Time
	End   civil.Time
}

// Validate rejects invalid components and empty or inverted intervals.
func (s Slot) Validate() error {
	if !s.Date.IsValid() {
		return fmt.Errorf("invalid date %q", s.Date.String())
	}
	if !s.Start.IsValid() || !s.End.IsValid() {
		return fmt.Errorf("invalid time range %s-%s", FormatTime(s.Start), FormatTime(s.End))
	}
	if FormatTime(s.Start) >= FormatTime(s.End) {
		return fmt.Errorf("start time %s must be before end time %s", FormatTime(s.Start), FormatTime(s.End))
	}
	return nil
}

// StartIn returns the slot's start instant in loc.
func (s Slot) StartIn(loc *time.Location) time.Time {
	return civil.DateTime{Date: s.Date, Time: s.Start}.In(loc)
}

// EndIn returns the slot's end instant in loc.
func (s Slot) EndIn(loc *time.Location) time.Time {
	return civil.DateTime{Date: s.Date, Time: s.End}.In(loc)
}

// Duration is the wall-clock length of the slot.
func (s Slot) Duration() time.Duration {
	return s.EndIn(time.UTC).Sub(s.StartIn(time.UTC))
}

// FormatDate renders a date in the fixed-width form stored in the database.
func FormatDate(d civil.Date) string {
	return d.String()
}

// FormatTime renders a time-of-day as HH:MM:SS, dropping sub-second precision
// so stored values stay fixed width and compare lexically.
func FormatTime(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func ParseDate(value string) (civil.Date, error) {
	return civil.ParseDate(value)
}

// ParseTime accepts HH:MM or HH:MM:SS.
func ParseTime(value string) (civil.Time, error) {
	if len(value) == len("15:04") {
		value += ":00"
	}
	return civil.ParseTime(value)
}

// ParseSlot parses stored booking columns back into a Slot.
func ParseSlot(date, start, end string) (Slot, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Slot{}, fmt.Errorf("parse booking date %q: %w", date, err)
	}
	st, err := ParseTime(start)
	if err != nil {
		return Slot{}, fmt.Errorf("parse start time %q: %w", start, err)
	}
	et, err := ParseTime(end)
	if err != nil {
		return Slot{}, fmt.Errorf("parse end time %q: %w", end, err)
	}
	return Slot{Date: d, Start: st, End: et}, nil
}

// LocalDateTime splits an instant into the date and time-of-day strings used
// for comparisons against stored booking columns.
func LocalDateTime(now time.Time, loc *time.Location) (string, string) {
	local := now.In(loc)
	return local.Format(dateLayout), local.Format(timeLayout)
}

// LoadLocation resolves a configured timezone name. Empty means the process
// local zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
