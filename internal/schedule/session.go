package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agendohealth/agenda-api/internal/availability"
	"github.com/agendohealth/agenda-api/internal/doctor"
	"github.com/agendohealth/agenda-api/pkg/logging"
)

var tracer trace.Tracer = otel.Tracer("agenda/schedule")

// Fetcher reads the authoritative override state for a doctor.
type Fetcher interface {
	FetchDaySets(ctx context.Context, clinicID, doctorID uuid.UUID) (blocked, adhoc []time.Time, err error)
	FetchBlockedTimes(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) ([]string, error)
}

// Phase is the consistency state of a session's slot view.
type Phase string

const (
	// PhaseIdle means no slot mutation is pending.
	PhaseIdle Phase = "idle"
	// PhaseOptimistic means the view carries a locally applied toggle that
	// the store has confirmed but the view has not refetched yet.
	PhaseOptimistic Phase = "optimistic"
	// PhaseReconciled means the last refetch replaced the view with server
	// truth.
	PhaseReconciled Phase = "reconciled"
)

// DayView is the state a calendar dialog paints for the selected date.
type DayView struct {
	Date       string    `json:"date"`
	Status     DayStatus `json:"status"`
	Manageable bool      `json:"manageable"`
	Slots      []Slot    `json:"slots"`
	Phase      Phase     `json:"phase"`
}

// SessionConfig wires a Session's collaborators.
type SessionConfig struct {
	Engine  *Engine
	Fetcher Fetcher
	Doctor  *doctor.Doctor
	// RefreshDelay is the bounded wait between a confirmed slot mutation and
	// the authoritative refetch. The delay lets the write commit before the
	// read; it is a pragmatic mitigation, not a correctness guarantee.
	RefreshDelay time.Duration
	Logger       *logging.Logger
}

// Session tracks one doctor's calendar dialog: the day-level override sets,
// the selected date's slot view, and the optimistic-to-reconciled transition
// after each slot mutation. The optimistic value is provisional; the refetch
// is authoritative. A monotonic sequence number guards against a stale fetch
// overwriting the view after a newer date selection.
type Session struct {
	engine  *Engine
	fetcher Fetcher
	doc     *doctor.Doctor
	delay   time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	seq      uint64
	sets     DaySets
	selected string // "YYYY-MM-DD", empty when no date is selected
	slots    []Slot
	phase    Phase
	timer    *time.Timer
	closed   bool
}

// NewSession creates a session for one doctor's dialog.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	delay := cfg.RefreshDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	return &Session{
		engine:  cfg.Engine,
		fetcher: cfg.Fetcher,
		doc:     cfg.Doctor,
		delay:   delay,
		logger:  logger,
		sets:    DaySets{Blocked: map[string]struct{}{}, AdHoc: map[string]struct{}{}},
		phase:   PhaseIdle,
	}
}

// UpdateDoctor replaces the session's doctor record. The repository row can
// change between dialog opens; derived views must use the current window.
func (s *Session) UpdateDoctor(doc *doctor.Doctor) {
	if doc == nil {
		return
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// RefreshDaySets refetches the day-level override sets. Called when the
// dialog opens and after every mutation of any override class, since a day
// mutation changes what the calendar overlay paints.
func (s *Session) RefreshDaySets(ctx context.Context) error {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()

	blocked, adhoc, err := s.fetcher.FetchDaySets(ctx, doc.ClinicID, doc.ID)
	if err != nil {
		return fmt.Errorf("schedule: refresh day sets: %w", err)
	}
	s.mu.Lock()
	s.sets = NewDaySets(blocked, adhoc)
	s.mu.Unlock()
	return nil
}

// SelectDate switches the session to a date and loads its slot view. A
// blocked date yields an empty view without touching the store. The fetch is
// sequence-guarded: if another selection happens while this one is in
// flight, the stale result is discarded.
func (s *Session) SelectDate(ctx context.Context, dateStr string) (DayView, error) {
	date, err := availability.ParseDate(dateStr, s.engine.Location())
	if err != nil {
		return DayView{}, err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.selected = dateStr
	s.slots = nil
	s.phase = PhaseIdle
	s.stopTimerLocked()
	doc := s.doc
	win := doc.Window()
	status := s.engine.DayStatus(win, s.sets, date)
	s.mu.Unlock()

	if status.Blocked {
		return s.View(), nil
	}

	blockedTimes, err := s.fetcher.FetchBlockedTimes(ctx, doc.ClinicID, doc.ID, date)
	if err != nil {
		return s.View(), fmt.Errorf("schedule: fetch blocked times: %w", err)
	}

	s.mu.Lock()
	if s.seq == seq {
		s.slots = s.engine.DaySlots(win, s.sets, date, blockedTimes)
	}
	s.mu.Unlock()
	return s.View(), nil
}

// ApplySlotToggle flips one tick of the current view optimistically after
// the store confirmed the mutation, then schedules the authoritative
// refetch. Rapid consecutive toggles coalesce into a single refetch.
func (s *Session) ApplySlotToggle(slotTime string, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" || s.closed {
		return
	}
	for i := range s.slots {
		if s.slots[i].Time == slotTime {
			s.slots[i].Blocked = blocked
			break
		}
	}
	s.phase = PhaseOptimistic
	seq := s.seq
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.delay, func() { s.reconcile(seq) })
}

// reconcile replaces the optimistic slot view with server truth. A failed
// refetch leaves the optimistic view in place; there is no retry loop — the
// next natural refresh (reselecting the date, reopening the dialog) closes
// the gap.
func (s *Session) reconcile(seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ctx, span := tracer.Start(ctx, "session.reconcile")
	defer span.End()

	s.mu.Lock()
	if s.closed || s.seq != seq || s.selected == "" {
		s.mu.Unlock()
		return
	}
	dateStr := s.selected
	doc := s.doc
	win := doc.Window()
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("doctor_id", doc.ID.String()),
		attribute.String("date", dateStr),
	)

	date, err := availability.ParseDate(dateStr, s.engine.Location())
	if err != nil {
		s.logger.Error("schedule: reconcile parse date", "date", dateStr, "error", err)
		return
	}

	blockedTimes, err := s.fetcher.FetchBlockedTimes(ctx, doc.ClinicID, doc.ID, date)
	if err != nil {
		// Optimistic state stays; the view may be stale until the next refresh.
		s.logger.Error("schedule: reconcile refetch failed", "doctor_id", doc.ID, "date", dateStr, "error", err)
		return
	}

	s.mu.Lock()
	if s.seq == seq && s.selected == dateStr {
		s.slots = s.engine.DaySlots(win, s.sets, date, blockedTimes)
		s.phase = PhaseReconciled
	}
	s.mu.Unlock()
}

// View returns the current day view.
func (s *Session) View() DayView {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := DayView{Date: s.selected, Phase: s.phase}
	if s.selected == "" {
		return view
	}
	date, err := availability.ParseDate(s.selected, s.engine.Location())
	if err != nil {
		return view
	}
	win := s.doc.Window()
	view.Status = s.engine.DayStatus(win, s.sets, date)
	view.Manageable = s.engine.Manageable(win, s.sets, date)
	view.Slots = append([]Slot(nil), s.slots...)
	return view
}

// Close stops any pending refetch timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
