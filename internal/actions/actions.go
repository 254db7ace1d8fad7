// Package actions implements the tenant-checked, validated commands that
// toggle calendar overrides. Every action is idempotent (toggle-on of an
// existing row and toggle-off of an absent row are both successful no-ops)
// and never lets an error escape the action boundary: callers always get a
// structured result with a success flag.
package actions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agendohealth/agenda-api/internal/availability"
	"github.com/agendohealth/agenda-api/internal/doctor"
	"github.com/agendohealth/agenda-api/internal/observability/metrics"
	"github.com/agendohealth/agenda-api/internal/override"
	"github.com/agendohealth/agenda-api/internal/tenancy"
	"github.com/agendohealth/agenda-api/pkg/logging"
)

var tracer trace.Tracer = otel.Tracer("agenda/actions")

// Store is the override persistence the actions mutate.
type Store interface {
	Insert(ctx context.Context, kind override.Kind, o override.Override) (bool, error)
	Delete(ctx context.Context, kind override.Kind, clinicID, doctorID uuid.UUID, date time.Time, slotTime string) (bool, error)
	Exists(ctx context.Context, kind override.Kind, clinicID, doctorID uuid.UUID, date time.Time) (bool, error)
}

// Invalidator drops cached views that depend on a doctor's availability.
type Invalidator interface {
	Invalidate(ctx context.Context, clinicID, doctorID uuid.UUID) error
}

// BlockResult is the outcome of a block/unblock toggle.
type BlockResult struct {
	Success bool        `json:"success"`
	Block   bool        `json:"block"`
	Error   string      `json:"error,omitempty"`
	Kind    FailureKind `json:"-"`
}

// AvailabilityResult is the outcome of an ad-hoc availability toggle.
type AvailabilityResult struct {
	Success   bool        `json:"success"`
	Available bool        `json:"available"`
	Error     string      `json:"error,omitempty"`
	Kind      FailureKind `json:"-"`
}

// ToggleDayBlockInput toggles a full-day block.
type ToggleDayBlockInput struct {
	DoctorID string `json:"doctorId"`
	ClinicID string `json:"clinicId"`
	Date     string `json:"date"`
	Block    bool   `json:"block"`
	Reason   string `json:"reason,omitempty"`
}

// ToggleAdHocInput toggles an ad-hoc availability grant.
type ToggleAdHocInput struct {
	DoctorID  string `json:"doctorId"`
	ClinicID  string `json:"clinicId"`
	Date      string `json:"date"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ToggleSlotBlockInput toggles a single time-slot block.
type ToggleSlotBlockInput struct {
	DoctorID string `json:"doctorId"`
	ClinicID string `json:"clinicId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Block    bool   `json:"block"`
	Reason   string `json:"reason,omitempty"`
}

// Config wires an Actions instance.
type Config struct {
	Store   Store
	Doctors doctor.Repository
	Cache   Invalidator // optional
	Metrics *metrics.ScheduleMetrics
	// Location is the operating timezone every date string is normalized
	// against before comparison or persistence.
	Location    *time.Location
	StepMinutes int
	Logger      *logging.Logger
}

// Actions executes the three override toggles.
type Actions struct {
	store   Store
	doctors doctor.Repository
	cache   Invalidator
	metrics *metrics.ScheduleMetrics
	loc     *time.Location
	step    int
	logger  *logging.Logger
}

// New creates the action set.
func New(cfg Config) *Actions {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	step := cfg.StepMinutes
	if step <= 0 {
		step = availability.DefaultStepMinutes
	}
	return &Actions{
		store:   cfg.Store,
		doctors: cfg.Doctors,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		loc:     loc,
		step:    step,
		logger:  logger,
	}
}

// scope is the validated, tenant-checked identity of one mutation.
type scope struct {
	clinicID uuid.UUID
	doctorID uuid.UUID
	date     time.Time
}

// resolveScope validates ids and the date, and enforces that the caller's
// authenticated clinic equals the requested clinic. No store access happens
// before this returns cleanly.
func (a *Actions) resolveScope(ctx context.Context, clinicID, doctorID, date string) (scope, FailureKind, string) {
	if _, ok := tenancy.ClinicIDFromContext(ctx); !ok {
		return scope{}, FailureAuthorization, msgMissingClinic
	}
	if !tenancy.Matches(ctx, clinicID) {
		return scope{}, FailureAuthorization, msgUnauthorized
	}
	cid, err := uuid.Parse(clinicID)
	if err != nil {
		return scope{}, FailureValidation, msgInvalidID
	}
	did, err := uuid.Parse(doctorID)
	if err != nil {
		return scope{}, FailureValidation, msgInvalidID
	}
	day, err := availability.ParseDate(date, a.loc)
	if err != nil {
		return scope{}, FailureValidation, msgInvalidDate
	}
	return scope{clinicID: cid, doctorID: did, date: day}, FailureNone, ""
}

// ToggleFullDayBlock inserts or removes a full-day block. Both directions
// are idempotent.
func (a *Actions) ToggleFullDayBlock(ctx context.Context, in ToggleDayBlockInput) BlockResult {
	ctx, span := tracer.Start(ctx, "actions.toggle_full_day_block")
	defer span.End()
	span.SetAttributes(attribute.String("date", in.Date), attribute.Bool("block", in.Block))

	sc, kind, msg := a.resolveScope(ctx, in.ClinicID, in.DoctorID, in.Date)
	if kind != FailureNone {
		a.metrics.ObserveMutation(string(override.KindDayBlock), string(kind))
		return BlockResult{Block: in.Block, Error: msg, Kind: kind}
	}

	if err := a.write(ctx, override.KindDayBlock, sc, "", in.Block, in.Reason); err != nil {
		a.metrics.ObserveMutation(string(override.KindDayBlock), string(FailureStore))
		a.logger.Error("toggle full-day block failed",
			"doctor_id", sc.doctorID, "date", in.Date, "block", in.Block, "error", err)
		return BlockResult{Block: in.Block, Error: msgDayFailure, Kind: FailureStore}
	}

	a.invalidate(ctx, sc)
	a.metrics.ObserveMutation(string(override.KindDayBlock), "success")
	a.logger.Info("full-day block toggled", "doctor_id", sc.doctorID, "date", in.Date, "block", in.Block)
	return BlockResult{Success: true, Block: in.Block}
}

// ToggleAdHocAvailability inserts or removes an ad-hoc availability grant.
func (a *Actions) ToggleAdHocAvailability(ctx context.Context, in ToggleAdHocInput) AvailabilityResult {
	ctx, span := tracer.Start(ctx, "actions.toggle_adhoc_availability")
	defer span.End()
	span.SetAttributes(attribute.String("date", in.Date), attribute.Bool("available", in.Available))

	sc, kind, msg := a.resolveScope(ctx, in.ClinicID, in.DoctorID, in.Date)
	if kind != FailureNone {
		a.metrics.ObserveMutation(string(override.KindAdHocGrant), string(kind))
		return AvailabilityResult{Available: in.Available, Error: msg, Kind: kind}
	}

	if err := a.write(ctx, override.KindAdHocGrant, sc, "", in.Available, in.Reason); err != nil {
		a.metrics.ObserveMutation(string(override.KindAdHocGrant), string(FailureStore))
		a.logger.Error("toggle ad-hoc availability failed",
			"doctor_id", sc.doctorID, "date", in.Date, "available", in.Available, "error", err)
		return AvailabilityResult{Available: in.Available, Error: msgAvailabilityFailure, Kind: FailureStore}
	}

	a.invalidate(ctx, sc)
	a.metrics.ObserveMutation(string(override.KindAdHocGrant), "success")
	a.logger.Info("ad-hoc availability toggled", "doctor_id", sc.doctorID, "date", in.Date, "available", in.Available)
	return AvailabilityResult{Success: true, Available: in.Available}
}

// ToggleTimeSlotBlock inserts or removes a single slot block. The target day
// must be manageable: reachable by the default or ad-hoc schedule and not
// wholesale blocked. The slot must sit on the grid inside the doctor's
// window.
func (a *Actions) ToggleTimeSlotBlock(ctx context.Context, in ToggleSlotBlockInput) BlockResult {
	ctx, span := tracer.Start(ctx, "actions.toggle_time_slot_block")
	defer span.End()
	span.SetAttributes(
		attribute.String("date", in.Date),
		attribute.String("time", in.Time),
		attribute.Bool("block", in.Block),
	)

	sc, kind, msg := a.resolveScope(ctx, in.ClinicID, in.DoctorID, in.Date)
	if kind != FailureNone {
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(kind))
		return BlockResult{Block: in.Block, Error: msg, Kind: kind}
	}

	if _, err := availability.ParseClock(in.Time); err != nil {
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(FailureValidation))
		return BlockResult{Block: in.Block, Error: msgInvalidTime, Kind: FailureValidation}
	}
	if !availability.OnGrid(in.Time, a.step) {
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(FailureValidation))
		return BlockResult{Block: in.Block, Error: msgOffGridTime, Kind: FailureValidation}
	}

	doc, err := a.doctors.GetByID(ctx, sc.clinicID, sc.doctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			a.metrics.ObserveMutation(string(override.KindSlotBlock), string(FailureNotFound))
			return BlockResult{Block: in.Block, Error: msgDoctorNotFound, Kind: FailureNotFound}
		}
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(FailureStore))
		return BlockResult{Block: in.Block, Error: msgSlotFailure, Kind: FailureStore}
	}

	if !withinClockRange(in.Time, doc.AvailableFromTime, doc.AvailableToTime) {
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(FailureValidation))
		return BlockResult{Block: in.Block, Error: msgOffGridTime, Kind: FailureValidation}
	}

	manageable, kind, msg := a.dayManageable(ctx, doc, sc)
	if kind != FailureNone {
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(kind))
		return BlockResult{Block: in.Block, Error: msg, Kind: kind}
	}
	if !manageable {
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(FailureValidation))
		return BlockResult{Block: in.Block, Error: msgDayNotManageable, Kind: FailureValidation}
	}

	if err := a.write(ctx, override.KindSlotBlock, sc, in.Time, in.Block, in.Reason); err != nil {
		a.metrics.ObserveMutation(string(override.KindSlotBlock), string(FailureStore))
		a.logger.Error("toggle time-slot block failed",
			"doctor_id", sc.doctorID, "date", in.Date, "time", in.Time, "block", in.Block, "error", err)
		return BlockResult{Block: in.Block, Error: msgSlotFailure, Kind: FailureStore}
	}

	a.invalidate(ctx, sc)
	a.metrics.ObserveMutation(string(override.KindSlotBlock), "success")
	a.logger.Info("time-slot block toggled",
		"doctor_id", sc.doctorID, "date", in.Date, "time", in.Time, "block", in.Block)
	return BlockResult{Success: true, Block: in.Block}
}

// dayManageable checks the slot toggle preconditions: the day is not
// wholesale blocked, and is inside the recurring window or covered by an
// ad-hoc grant.
func (a *Actions) dayManageable(ctx context.Context, doc *doctor.Doctor, sc scope) (bool, FailureKind, string) {
	blocked, err := a.store.Exists(ctx, override.KindDayBlock, sc.clinicID, sc.doctorID, sc.date)
	if err != nil {
		return false, FailureStore, msgSlotFailure
	}
	if blocked {
		return false, FailureNone, ""
	}
	if doc.Window().ContainsDate(sc.date, a.loc) {
		return true, FailureNone, ""
	}
	granted, err := a.store.Exists(ctx, override.KindAdHocGrant, sc.clinicID, sc.doctorID, sc.date)
	if err != nil {
		return false, FailureStore, msgSlotFailure
	}
	return granted, FailureNone, ""
}

// withinClockRange reports whether t falls in the half-open [from, to)
// range. Malformed bounds reject the slot.
func withinClockRange(t, from, to string) bool {
	tm, err := availability.ParseClock(t)
	if err != nil {
		return false
	}
	fm, err := availability.ParseClock(from)
	if err != nil {
		return false
	}
	toM, err := availability.ParseClock(to)
	if err != nil {
		return false
	}
	return tm >= fm && tm < toM
}

func (a *Actions) write(ctx context.Context, kind override.Kind, sc scope, slotTime string, on bool, reason string) error {
	if on {
		_, err := a.store.Insert(ctx, kind, override.Override{
			ClinicID: sc.clinicID,
			DoctorID: sc.doctorID,
			Date:     sc.date,
			Time:     slotTime,
			Reason:   reason,
		})
		return err
	}
	_, err := a.store.Delete(ctx, kind, sc.clinicID, sc.doctorID, sc.date, slotTime)
	return err
}

// invalidate drops cached views; best-effort, a failure only logs.
func (a *Actions) invalidate(ctx context.Context, sc scope) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx, sc.clinicID, sc.doctorID); err != nil {
		a.logger.Warn("view cache invalidation failed", "doctor_id", sc.doctorID, "error", err)
	}
}

