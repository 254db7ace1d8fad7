// Package availability resolves a doctor's recurring weekly schedule into
// concrete slot grids. Everything here is pure: callers supply the dates,
// windows and operating timezone; nothing reads a clock or touches storage.
package availability

import (
	"fmt"
	"regexp"
	"time"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// ClockFormat is the wire format for slot times, 24-hour.
const ClockFormat = "15:04"

// DefaultStepMinutes is the slot grid granularity.
const DefaultStepMinutes = 30

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Window is a doctor's recurring weekly availability: a weekday range and a
// half-open [From, To) time-of-day range. The weekday range may wrap the week
// boundary: FromWeekday > ToWeekday means e.g. Friday through Monday.
type Window struct {
	FromWeekday time.Weekday
	ToWeekday   time.Weekday
	FromTime    string // "09:00"
	ToTime      string // "18:00"
}

// ContainsWeekday reports whether d falls inside the weekday range,
// inclusive on both ends, handling wrap-around ranges.
func (w Window) ContainsWeekday(d time.Weekday) bool {
	if w.FromWeekday <= w.ToWeekday {
		return d >= w.FromWeekday && d <= w.ToWeekday
	}
	return d >= w.FromWeekday || d <= w.ToWeekday
}

// ContainsDate reports whether the date's weekday, interpreted in loc, falls
// inside the weekday range.
func (w Window) ContainsDate(date time.Time, loc *time.Location) bool {
	return w.ContainsWeekday(date.In(loc).Weekday())
}

// SlotTicks expands the window's time range into the ordered tick sequence
// for a single day. See GenerateSlotTicks.
func (w Window) SlotTicks(stepMinutes int) []string {
	return GenerateSlotTicks(w.FromTime, w.ToTime, stepMinutes)
}

// GenerateSlotTicks emits "HH:mm" ticks starting at from, advancing by
// stepMinutes, stopping strictly before to (half-open). An inverted or empty
// range yields no ticks, as does a malformed bound; range validity is the
// store's concern, not the generator's.
func GenerateSlotTicks(from, to string, stepMinutes int) []string {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	start, err := ParseClock(from)
	if err != nil {
		return nil
	}
	end, err := ParseClock(to)
	if err != nil {
		return nil
	}
	var ticks []string
	for m := start; m < end; m += stepMinutes {
		ticks = append(ticks, FormatClock(m))
	}
	return ticks
}

// ParseClock parses a strict 24-hour "HH:mm" string into minutes since
// midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockFormat, s)
	if err != nil {
		return 0, fmt.Errorf("availability: invalid clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:mm".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// OnGrid reports whether the clock string is aligned to the step grid.
func OnGrid(s string, stepMinutes int) bool {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	m, err := ParseClock(s)
	if err != nil {
		return false
	}
	return m%stepMinutes == 0
}

// ParseDate parses a strict "YYYY-MM-DD" string as start-of-day in loc. The
// same date string always normalizes to the same instant, regardless of the
// caller's local clock.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if !dateRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("availability: invalid date %q, want YYYY-MM-DD", s)
	}
	t, err := time.ParseInLocation(DateFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: invalid date %q: %w", s, err)
	}
	return t, nil
}

// StartOfDay truncates t to midnight in loc. Every date comparison and every
// persisted date goes through this canonical form.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// FormatDate renders t's calendar date in loc as "YYYY-MM-DD".
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateFormat)
}

// FormatCivil renders the calendar date of t as observed in t's own
// location. DATE columns decode to midnight UTC; converting that instant
// into a west-of-UTC zone before formatting would land on the previous day.
func FormatCivil(t time.Time) string {
	return t.Format(DateFormat)
}