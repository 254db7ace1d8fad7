package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agendohealth/agenda-api/internal/actions"
	"github.com/agendohealth/agenda-api/internal/availability"
	"github.com/agendohealth/agenda-api/internal/doctor"
	"github.com/agendohealth/agenda-api/internal/observability/metrics"
	"github.com/agendohealth/agenda-api/internal/override"
	"github.com/agendohealth/agenda-api/internal/schedule"
	"github.com/agendohealth/agenda-api/internal/tenancy"
	"github.com/agendohealth/agenda-api/pkg/logging"
)

// OverrideLister reads the persisted override sets for the calendar views.
// Satisfied by *override.Store.
type OverrideLister interface {
	ListDates(ctx context.Context, kind override.Kind, clinicID, doctorID uuid.UUID) ([]time.Time, error)
	ListTimes(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) ([]string, error)
	ListDetails(ctx context.Context, clinicID, doctorID uuid.UUID) ([]override.Detail, error)
}

// ScheduleConfig wires the calendar read and mutation endpoints.
type ScheduleConfig struct {
	Doctors  doctor.Repository
	Store    OverrideLister
	Cache    *override.ViewCache // optional
	Sessions *schedule.SessionManager
	Actions  *actions.Actions
	Metrics  *metrics.ScheduleMetrics
	Location *time.Location
	Logger   *logging.Logger
}

// ScheduleHandler serves the doctor calendar: public read views for the
// booking surfaces and tenant-scoped toggle mutations for the clinic's
// admin dialog.
type ScheduleHandler struct {
	doctors  doctor.Repository
	store    OverrideLister
	cache    *override.ViewCache
	sessions *schedule.SessionManager
	actions  *actions.Actions
	metrics  *metrics.ScheduleMetrics
	loc      *time.Location
	logger   *logging.Logger
}

// NewScheduleHandler creates the handler set.
func NewScheduleHandler(cfg ScheduleConfig) *ScheduleHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleHandler{
		doctors:  cfg.Doctors,
		store:    cfg.Store,
		cache:    cfg.Cache,
		sessions: cfg.Sessions,
		actions:  cfg.Actions,
		metrics:  cfg.Metrics,
		loc:      loc,
		logger:   cfg.Logger,
	}
}

func (h *ScheduleHandler) scopeFromRequest(w http.ResponseWriter, r *http.Request) (clinicID, doctorID uuid.UUID, ok bool) {
	clinic := r.URL.Query().Get("clinicId")
	if clinic == "" {
		// Authenticated routes carry the clinic in the session context.
		clinic, _ = tenancy.ClinicIDFromContext(r.Context())
	}
	clinicID, err := uuid.Parse(clinic)
	if err != nil {
		http.Error(w, "clinicId must be a UUID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	doctorID, err = uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "doctorID must be a UUID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return clinicID, doctorID, true
}

// GetDoctor returns a doctor's recurring availability attributes.
// Route: GET /api/doctors/{doctorID}?clinicId=...
func (h *ScheduleHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	clinicID, doctorID, ok := h.scopeFromRequest(w, r)
	if !ok {
		return
	}
	doc, err := h.doctors.GetByID(r.Context(), clinicID, doctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			http.Error(w, "doctor not found", http.StatusNotFound)
			return
		}
		h.logger.Error("doctor lookup failed", "doctor_id", doctorID, "error", err)
		http.Error(w, "doctor lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetBlockedDates returns the day-level override view: fully blocked dates
// and ad-hoc available dates. Served cache-aside from redis.
// Route: GET /api/doctors/{doctorID}/blocked-dates?clinicId=...
func (h *ScheduleHandler) GetBlockedDates(w http.ResponseWriter, r *http.Request) {
	clinicID, doctorID, ok := h.scopeFromRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if h.cache != nil {
		view, err := h.cache.GetDates(ctx, clinicID, doctorID)
		if err != nil {
			h.logger.Warn("dates cache read failed", "doctor_id", doctorID, "error", err)
		}
		h.metrics.ObserveCacheLookup("dates", view != nil)
		if view != nil {
			writeJSON(w, http.StatusOK, view)
			return
		}
	}

	start := time.Now()
	blocked, err := h.store.ListDates(ctx, override.KindDayBlock, clinicID, doctorID)
	if err != nil {
		h.logger.Error("list blocked dates failed", "doctor_id", doctorID, "error", err)
		http.Error(w, "failed to load blocked dates", http.StatusInternalServerError)
		return
	}
	adhoc, err := h.store.ListDates(ctx, override.KindAdHocGrant, clinicID, doctorID)
	if err != nil {
		h.logger.Error("list ad-hoc dates failed", "doctor_id", doctorID, "error", err)
		http.Error(w, "failed to load blocked dates", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveFetchLatency("dates", time.Since(start).Seconds())

	view := &override.DatesView{
		BlockedDates:        formatDates(blocked),
		AdHocAvailableDates: formatDates(adhoc),
	}
	if h.cache != nil {
		if err := h.cache.SetDates(ctx, clinicID, doctorID, view); err != nil {
			h.logger.Warn("dates cache write failed", "doctor_id", doctorID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, view)
}

// GetBlockedTimeSlots returns the per-slot blocks for one date.
// Route: GET /api/doctors/{doctorID}/blocked-time-slots?clinicId=...&date=YYYY-MM-DD
func (h *ScheduleHandler) GetBlockedTimeSlots(w http.ResponseWriter, r *http.Request) {
	clinicID, doctorID, ok := h.scopeFromRequest(w, r)
	if !ok {
		return
	}
	dateStr := r.URL.Query().Get("date")
	date, err := availability.ParseDate(dateStr, h.loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	if h.cache != nil {
		view, err := h.cache.GetSlots(ctx, clinicID, doctorID, dateStr)
		if err != nil {
			h.logger.Warn("slots cache read failed", "doctor_id", doctorID, "error", err)
		}
		h.metrics.ObserveCacheLookup("slots", view != nil)
		if view != nil {
			writeJSON(w, http.StatusOK, view)
			return
		}
	}

	start := time.Now()
	times, err := h.store.ListTimes(ctx, clinicID, doctorID, date)
	if err != nil {
		h.logger.Error("list blocked times failed", "doctor_id", doctorID, "date", dateStr, "error", err)
		http.Error(w, "failed to load blocked time slots", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveFetchLatency("slots", time.Since(start).Seconds())

	view := &override.SlotsView{BlockedTimes: times}
	if h.cache != nil {
		if err := h.cache.SetSlots(ctx, clinicID, doctorID, dateStr, view); err != nil {
			h.logger.Warn("slots cache write failed", "doctor_id", doctorID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, view)
}

// OverrideDetail is one row of the admin override listing.
type OverrideDetail struct {
	Kind   override.Kind `json:"kind"`
	Date   string        `json:"date"`
	Time   string        `json:"time,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// GetOverrides lists every override of a doctor with its reason, across the
// three classes.
// Route: GET /api/admin/doctors/{doctorID}/overrides
func (h *ScheduleHandler) GetOverrides(w http.ResponseWriter, r *http.Request) {
	clinicID, doctorID, ok := h.scopeFromRequest(w, r)
	if !ok {
		return
	}
	details, err := h.store.ListDetails(r.Context(), clinicID, doctorID)
	if err != nil {
		h.logger.Error("list overrides failed", "doctor_id", doctorID, "error", err)
		http.Error(w, "failed to load overrides", http.StatusInternalServerError)
		return
	}
	out := make([]OverrideDetail, 0, len(details))
	for _, d := range details {
		out = append(out, OverrideDetail{
			Kind:   d.Kind,
			Date:   availability.FormatCivil(d.Date),
			Time:   d.Time,
			Reason: d.Reason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDayView selects a date in the doctor's calendar session and returns the
// resolved view: day status, manageability, and the slot grid.
// Route: GET /api/admin/doctors/{doctorID}/day-view?date=YYYY-MM-DD
func (h *ScheduleHandler) GetDayView(w http.ResponseWriter, r *http.Request) {
	clinicID, doctorID, ok := h.scopeFromRequest(w, r)
	if !ok {
		return
	}
	dateStr := r.URL.Query().Get("date")
	if _, err := availability.ParseDate(dateStr, h.loc); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	doc, err := h.doctors.GetByID(ctx, clinicID, doctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			http.Error(w, "doctor not found", http.StatusNotFound)
			return
		}
		h.logger.Error("doctor lookup failed", "doctor_id", doctorID, "error", err)
		http.Error(w, "doctor lookup failed", http.StatusInternalServerError)
		return
	}

	sess := h.sessions.For(doc)
	if err := sess.RefreshDaySets(ctx); err != nil {
		h.logger.Error("refresh day sets failed", "doctor_id", doctorID, "error", err)
		http.Error(w, "failed to load calendar state", http.StatusInternalServerError)
		return
	}
	view, err := sess.SelectDate(ctx, dateStr)
	if err != nil {
		h.logger.Error("select date failed", "doctor_id", doctorID, "date", dateStr, "error", err)
		http.Error(w, "failed to load day view", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// BlockDate toggles a full-day block.
// Route: POST /api/admin/block-date
func (h *ScheduleHandler) BlockDate(w http.ResponseWriter, r *http.Request) {
	var in actions.ToggleDayBlockInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	res := h.actions.ToggleFullDayBlock(r.Context(), in)
	if res.Success {
		h.refreshSession(r, in.ClinicID, in.DoctorID)
	}
	writeJSON(w, statusForFailure(res.Kind), res)
}

// AdHocAvailability toggles an ad-hoc availability grant.
// Route: POST /api/admin/adhoc-availability
func (h *ScheduleHandler) AdHocAvailability(w http.ResponseWriter, r *http.Request) {
	var in actions.ToggleAdHocInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	res := h.actions.ToggleAdHocAvailability(r.Context(), in)
	if res.Success {
		h.refreshSession(r, in.ClinicID, in.DoctorID)
	}
	writeJSON(w, statusForFailure(res.Kind), res)
}

// SlotToggleResponse pairs the mutation outcome with the session's
// provisional day view. The view's phase is "optimistic" until the session's
// deferred refetch replaces it with server truth.
type SlotToggleResponse struct {
	actions.BlockResult
	View *schedule.DayView `json:"view,omitempty"`
}

// BlockTimeSlot toggles a single time-slot block and applies it to the
// doctor's calendar session optimistically.
// Route: POST /api/admin/block-time-slot
func (h *ScheduleHandler) BlockTimeSlot(w http.ResponseWriter, r *http.Request) {
	var in actions.ToggleSlotBlockInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	res := h.actions.ToggleTimeSlotBlock(r.Context(), in)
	out := SlotToggleResponse{BlockResult: res}
	if res.Success {
		if sess := h.sessionFor(r, in.ClinicID, in.DoctorID); sess != nil {
			sess.ApplySlotToggle(in.Time, in.Block)
			view := sess.View()
			out.View = &view
		}
	}
	writeJSON(w, statusForFailure(res.Kind), out)
}

// refreshSession reloads the day-level sets of the doctor's session after a
// day mutation. Best-effort: the session refetches on the next dialog open
// anyway.
func (h *ScheduleHandler) refreshSession(r *http.Request, clinicID, doctorID string) {
	sess := h.sessionFor(r, clinicID, doctorID)
	if sess == nil {
		return
	}
	if err := sess.RefreshDaySets(r.Context()); err != nil {
		h.logger.Warn("session day-set refresh failed", "doctor_id", doctorID, "error", err)
	}
}

func (h *ScheduleHandler) sessionFor(r *http.Request, clinicID, doctorID string) *schedule.Session {
	if h.sessions == nil {
		return nil
	}
	cid, err := uuid.Parse(clinicID)
	if err != nil {
		return nil
	}
	did, err := uuid.Parse(doctorID)
	if err != nil {
		return nil
	}
	doc, err := h.doctors.GetByID(r.Context(), cid, did)
	if err != nil {
		return nil
	}
	return h.sessions.For(doc)
}

func statusForFailure(kind actions.FailureKind) int {
	switch kind {
	case actions.FailureNone:
		return http.StatusOK
	case actions.FailureValidation:
		return http.StatusBadRequest
	case actions.FailureAuthorization:
		return http.StatusForbidden
	case actions.FailureNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// formatDates renders stored dates by their own calendar components. DATE
// columns decode to midnight UTC; rendering that instant in the operating
// timezone would shift every date back a day.
func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, availability.FormatCivil(d))
	}
	return out
}
