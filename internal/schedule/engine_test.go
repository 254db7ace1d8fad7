package schedule

import (
	"testing"
	"time"

	"github.com/agendohealth/agenda-api/internal/availability"
)

func operatingZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Fortaleza")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func mustDate(t *testing.T, loc *time.Location, s string) time.Time {
	t.Helper()
	d, err := availability.ParseDate(s, loc)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}

func weekWindow() availability.Window {
	return availability.Window{
		FromWeekday: time.Monday,
		ToWeekday:   time.Friday,
		FromTime:    "09:00",
		ToTime:      "12:00",
	}
}

func TestDayStatusWithinWindow(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	sets := NewDaySets(nil, nil)

	// 2025-07-07 is a Monday.
	status := e.DayStatus(weekWindow(), sets, mustDate(t, loc, "2025-07-07"))
	if !status.WithinDefaultWindow || status.Blocked || status.AdHocAvailable || status.DefaultUnavailable {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestDayStatusDefaultUnavailable(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	sets := NewDaySets(nil, nil)

	// 2025-07-05 is a Saturday, outside Mon-Fri, no ad-hoc grant.
	status := e.DayStatus(weekWindow(), sets, mustDate(t, loc, "2025-07-05"))
	if !status.DefaultUnavailable {
		t.Fatalf("expected defaultUnavailable, got %+v", status)
	}
	if e.Manageable(weekWindow(), sets, mustDate(t, loc, "2025-07-05")) {
		t.Fatal("Saturday without grant should not be manageable")
	}
}

func TestBlockedWinsOverAdHoc(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	day := mustDate(t, loc, "2025-07-05")
	sets := NewDaySets([]time.Time{day}, []time.Time{day})

	status := e.DayStatus(weekWindow(), sets, day)
	if !status.Blocked || !status.AdHocAvailable {
		t.Fatalf("both flags should report, got %+v", status)
	}
	if e.Manageable(weekWindow(), sets, day) {
		t.Fatal("a blocked day is never manageable, even with an ad-hoc grant")
	}
}

func TestManageableFalseWhenBlockedInsideWindow(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	day := mustDate(t, loc, "2025-07-07") // Monday, inside the window
	sets := NewDaySets([]time.Time{day}, nil)

	if e.Manageable(weekWindow(), sets, day) {
		t.Fatal("blocked day inside the default window must not be manageable")
	}
}

func TestDaySlotsMergesBlockedTimes(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	day := mustDate(t, loc, "2025-07-07")
	sets := NewDaySets(nil, nil)

	slots := e.DaySlots(weekWindow(), sets, day, []string{"09:30", "11:00"})
	if len(slots) != 6 {
		t.Fatalf("expected 6 ticks for 09:00-12:00, got %d", len(slots))
	}
	wantBlocked := map[string]bool{"09:30": true, "11:00": true}
	for _, s := range slots {
		if s.Blocked != wantBlocked[s.Time] {
			t.Errorf("slot %s blocked=%v, want %v", s.Time, s.Blocked, wantBlocked[s.Time])
		}
	}
}

func TestDaySlotsEmptyWhenDayBlocked(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	day := mustDate(t, loc, "2025-07-07")
	sets := NewDaySets([]time.Time{day}, nil)

	// Prior slot blocks are irrelevant once the whole day is blocked.
	slots := e.DaySlots(weekWindow(), sets, day, []string{"09:00", "09:30"})
	if len(slots) != 0 {
		t.Fatalf("expected empty slot view for blocked day, got %v", slots)
	}
}

func TestSlotBlockRoundTripRestoresView(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	day := mustDate(t, loc, "2025-07-07")
	sets := NewDaySets(nil, nil)

	before := e.DaySlots(weekWindow(), sets, day, nil)
	during := e.DaySlots(weekWindow(), sets, day, []string{"10:00"})
	after := e.DaySlots(weekWindow(), sets, day, nil)

	if len(before) != len(after) {
		t.Fatalf("length changed across round trip: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("slot %d changed across round trip: %+v vs %+v", i, before[i], after[i])
		}
	}
	if !during[2].Blocked || during[2].Time != "10:00" {
		t.Fatalf("expected 10:00 blocked during, got %+v", during[2])
	}
}

func TestDaySetsKeepCalendarDateFromUTCScan(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)

	// DATE columns decode to midnight UTC, which in America/Fortaleza is
	// still the previous evening. The sets must key the stored calendar
	// date, not the shifted one.
	scanned := time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC)
	day := mustDate(t, loc, "2025-07-07")
	sets := NewDaySets([]time.Time{scanned}, nil)

	status := e.DayStatus(weekWindow(), sets, day)
	if !status.Blocked {
		t.Fatalf("expected 2025-07-07 blocked, got %+v", status)
	}
	if e.Manageable(weekWindow(), sets, day) {
		t.Fatal("blocked day must not be manageable")
	}
	if slots := e.DaySlots(weekWindow(), sets, day, nil); len(slots) != 0 {
		t.Fatalf("expected empty slot view for blocked day, got %v", slots)
	}
}

func TestAdHocGrantFlipsSaturdayManageable(t *testing.T) {
	loc := operatingZone(t)
	e := NewEngine(loc, 30)
	win := availability.Window{
		FromWeekday: time.Monday,
		ToWeekday:   time.Friday,
		FromTime:    "09:00",
		ToTime:      "10:00",
	}
	saturday := mustDate(t, loc, "2025-07-05")

	empty := NewDaySets(nil, nil)
	status := e.DayStatus(win, empty, saturday)
	if !status.DefaultUnavailable || e.Manageable(win, empty, saturday) {
		t.Fatalf("Saturday without grant: status=%+v", status)
	}

	granted := NewDaySets(nil, []time.Time{saturday})
	if !e.Manageable(win, granted, saturday) {
		t.Fatal("ad-hoc grant should make Saturday manageable")
	}
	slots := e.DaySlots(win, granted, saturday, nil)
	if len(slots) != 2 || slots[0].Time != "09:00" || slots[1].Time != "09:30" {
		t.Fatalf("expected [09:00 09:30], got %v", slots)
	}
}
