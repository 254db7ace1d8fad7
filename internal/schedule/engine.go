// Package schedule derives the bookable calendar for a doctor by combining
// the recurring availability window with the three override classes. The
// engine is pure: rendering layers feed it override sets and get back
// paintable day and slot views. Session adds the post-mutation consistency
// protocol on top (optimistic update, then a bounded-delay authoritative
// refetch).
package schedule

import (
	"time"

	"github.com/agendohealth/agenda-api/internal/availability"
)

// DayStatus is the calendar-paintable state of one date.
type DayStatus struct {
	Blocked             bool `json:"blocked"`
	AdHocAvailable      bool `json:"adHocAvailable"`
	WithinDefaultWindow bool `json:"withinDefaultWindow"`
	DefaultUnavailable  bool `json:"defaultUnavailable"`
}

// Slot is one tick of the derived slot view.
type Slot struct {
	Time    string `json:"time"`
	Blocked bool   `json:"isBlocked"`
}

// DaySets holds the day-level override sets for one doctor, keyed by
// canonical "YYYY-MM-DD" in the operating timezone.
type DaySets struct {
	Blocked map[string]struct{}
	AdHoc   map[string]struct{}
}

// NewDaySets builds the override sets from store dates. Dates are keyed by
// their own calendar components; DATE columns decode at midnight UTC, so
// shifting them into the operating timezone first would key the previous day.
func NewDaySets(blocked, adhoc []time.Time) DaySets {
	sets := DaySets{
		Blocked: make(map[string]struct{}, len(blocked)),
		AdHoc:   make(map[string]struct{}, len(adhoc)),
	}
	for _, d := range blocked {
		sets.Blocked[availability.FormatCivil(d)] = struct{}{}
	}
	for _, d := range adhoc {
		sets.AdHoc[availability.FormatCivil(d)] = struct{}{}
	}
	return sets
}

// Engine combines resolver output with override data. All methods are pure
// given their inputs; the operating timezone and slot step are fixed at
// construction.
type Engine struct {
	loc  *time.Location
	step int
}

// NewEngine creates an engine for the operating timezone and slot step.
func NewEngine(loc *time.Location, stepMinutes int) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if stepMinutes <= 0 {
		stepMinutes = availability.DefaultStepMinutes
	}
	return &Engine{loc: loc, step: stepMinutes}
}

// Location returns the engine's operating timezone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// DayStatus computes the paintable state of a date. A full-day block takes
// precedence over an ad-hoc grant downstream: both flags are reported, but
// Manageable treats the block as the final word.
func (e *Engine) DayStatus(win availability.Window, sets DaySets, date time.Time) DayStatus {
	key := availability.FormatDate(date, e.loc)
	_, blocked := sets.Blocked[key]
	_, adhoc := sets.AdHoc[key]
	within := win.ContainsDate(date, e.loc)
	return DayStatus{
		Blocked:             blocked,
		AdHocAvailable:      adhoc,
		WithinDefaultWindow: within,
		DefaultUnavailable:  !within && !adhoc,
	}
}

// Manageable reports whether individual slots of a date may be toggled: the
// date must be reachable by the default or ad-hoc schedule and not wholesale
// blocked.
func (e *Engine) Manageable(win availability.Window, sets DaySets, date time.Time) bool {
	status := e.DayStatus(win, sets, date)
	return (status.WithinDefaultWindow || status.AdHocAvailable) && !status.Blocked
}

// DaySlots derives the ordered slot view for a date. A fully blocked day
// yields no slots at all — individual slot management stops once the whole
// day is blocked — regardless of any slot blocks on record.
func (e *Engine) DaySlots(win availability.Window, sets DaySets, date time.Time, blockedTimes []string) []Slot {
	if status := e.DayStatus(win, sets, date); status.Blocked {
		return nil
	}
	blocked := make(map[string]struct{}, len(blockedTimes))
	for _, t := range blockedTimes {
		blocked[t] = struct{}{}
	}
	ticks := win.SlotTicks(e.step)
	slots := make([]Slot, 0, len(ticks))
	for _, tick := range ticks {
		_, isBlocked := blocked[tick]
		slots = append(slots, Slot{Time: tick, Blocked: isBlocked})
	}
	return slots
}
