package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendohealth/agenda-api/internal/doctor"
	"github.com/agendohealth/agenda-api/internal/override"
	"github.com/agendohealth/agenda-api/internal/tenancy"
)

// memStore is an in-memory Store keyed by (kind, doctor, date, time). It
// mirrors the database's insert-or-noop / delete-or-noop semantics.
type memStore struct {
	rows    map[string]override.Override
	inserts int
	deletes int
	failAll bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]override.Override)}
}

func (s *memStore) key(kind override.Kind, doctorID uuid.UUID, date time.Time, slotTime string) string {
	return string(kind) + "|" + doctorID.String() + "|" + date.Format("2006-01-02") + "|" + slotTime
}

func (s *memStore) Insert(_ context.Context, kind override.Kind, o override.Override) (bool, error) {
	if s.failAll {
		return false, errors.New("connection reset")
	}
	s.inserts++
	k := s.key(kind, o.DoctorID, o.Date, o.Time)
	if _, ok := s.rows[k]; ok {
		return false, nil
	}
	s.rows[k] = o
	return true, nil
}

func (s *memStore) Delete(_ context.Context, kind override.Kind, _, doctorID uuid.UUID, date time.Time, slotTime string) (bool, error) {
	if s.failAll {
		return false, errors.New("connection reset")
	}
	s.deletes++
	k := s.key(kind, doctorID, date, slotTime)
	if _, ok := s.rows[k]; !ok {
		return false, nil
	}
	delete(s.rows, k)
	return true, nil
}

func (s *memStore) Exists(_ context.Context, kind override.Kind, _, doctorID uuid.UUID, date time.Time) (bool, error) {
	if s.failAll {
		return false, errors.New("connection reset")
	}
	_, ok := s.rows[s.key(kind, doctorID, date, "")]
	return ok, nil
}

func (s *memStore) has(kind override.Kind, doctorID uuid.UUID, date time.Time, slotTime string) bool {
	_, ok := s.rows[s.key(kind, doctorID, date, slotTime)]
	return ok
}

type memInvalidator struct{ calls int }

func (m *memInvalidator) Invalidate(context.Context, uuid.UUID, uuid.UUID) error {
	m.calls++
	return nil
}

type fixture struct {
	actions  *Actions
	store    *memStore
	cache    *memInvalidator
	clinicID uuid.UUID
	doctorID uuid.UUID
	loc      *time.Location
}

// newFixture builds an action set around a doctor working Monday through
// Friday, 09:00 to 12:00, in the clinic's operating timezone.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/Fortaleza")
	require.NoError(t, err)

	clinicID := uuid.New()
	doctorID := uuid.New()
	repo := doctor.NewInMemoryRepository()
	repo.Put(&doctor.Doctor{
		ID:                   doctorID,
		ClinicID:             clinicID,
		Name:                 "Dra. Helena Souza",
		AvailableFromWeekday: int(time.Monday),
		AvailableToWeekday:   int(time.Friday),
		AvailableFromTime:    "09:00",
		AvailableToTime:      "12:00",
	})

	store := newMemStore()
	cache := &memInvalidator{}
	return &fixture{
		actions: New(Config{
			Store:       store,
			Doctors:     repo,
			Cache:       cache,
			Location:    loc,
			StepMinutes: 30,
		}),
		store:    store,
		cache:    cache,
		clinicID: clinicID,
		doctorID: doctorID,
		loc:      loc,
	}
}

func (f *fixture) ctx() context.Context {
	return tenantContext(f.clinicID.String())
}

func tenantContext(clinicID string) context.Context {
	return tenancy.WithClinicID(context.Background(), clinicID)
}

func (f *fixture) date(s string) time.Time {
	d, _ := time.ParseInLocation("2006-01-02", s, f.loc)
	return d
}

func TestToggleFullDayBlock(t *testing.T) {
	f := newFixture(t)
	// 2025-07-07 is a Monday.
	res := f.actions.ToggleFullDayBlock(f.ctx(), ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Block:    true,
		Reason:   "congresso",
	})
	require.True(t, res.Success, "block failed: %s", res.Error)
	assert.True(t, f.store.has(override.KindDayBlock, f.doctorID, f.date("2025-07-07"), ""))
	assert.Equal(t, 1, f.cache.calls)

	res = f.actions.ToggleFullDayBlock(f.ctx(), ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Block:    false,
	})
	require.True(t, res.Success)
	assert.False(t, f.store.has(override.KindDayBlock, f.doctorID, f.date("2025-07-07"), ""))
}

func TestToggleFullDayBlockIdempotent(t *testing.T) {
	f := newFixture(t)
	in := ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Block:    true,
	}
	require.True(t, f.actions.ToggleFullDayBlock(f.ctx(), in).Success)
	// Blocking an already-blocked day is a successful no-op.
	res := f.actions.ToggleFullDayBlock(f.ctx(), in)
	assert.True(t, res.Success)
	assert.True(t, f.store.has(override.KindDayBlock, f.doctorID, f.date("2025-07-07"), ""))

	// Unblocking twice is also fine.
	in.Block = false
	require.True(t, f.actions.ToggleFullDayBlock(f.ctx(), in).Success)
	assert.True(t, f.actions.ToggleFullDayBlock(f.ctx(), in).Success)
}

func TestToggleFullDayBlockTenancy(t *testing.T) {
	f := newFixture(t)
	in := ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Block:    true,
	}

	t.Run("no session clinic", func(t *testing.T) {
		res := f.actions.ToggleFullDayBlock(context.Background(), in)
		assert.False(t, res.Success)
		assert.Equal(t, FailureAuthorization, res.Kind)
		assert.Equal(t, 0, f.store.inserts, "store touched before authorization")
	})

	t.Run("foreign clinic", func(t *testing.T) {
		res := f.actions.ToggleFullDayBlock(tenantContext(uuid.NewString()), in)
		assert.False(t, res.Success)
		assert.Equal(t, FailureAuthorization, res.Kind)
		assert.Equal(t, 0, f.store.inserts)
	})
}

func TestToggleFullDayBlockValidation(t *testing.T) {
	f := newFixture(t)

	res := f.actions.ToggleFullDayBlock(tenantContext("not-a-uuid"), ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: "not-a-uuid",
		Date:     "2025-07-07",
		Block:    true,
	})
	assert.Equal(t, FailureValidation, res.Kind)

	res = f.actions.ToggleFullDayBlock(f.ctx(), ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "07/07/2025",
		Block:    true,
	})
	assert.Equal(t, FailureValidation, res.Kind)
	assert.Equal(t, 0, f.store.inserts)
}

func TestToggleFullDayBlockStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failAll = true
	res := f.actions.ToggleFullDayBlock(f.ctx(), ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Block:    true,
	})
	assert.False(t, res.Success)
	assert.Equal(t, FailureStore, res.Kind)
	assert.NotContains(t, res.Error, "connection reset", "raw store error leaked to the user")
	assert.Equal(t, 0, f.cache.calls, "cache invalidated after a failed write")
}

func TestToggleAdHocAvailability(t *testing.T) {
	f := newFixture(t)
	// 2025-07-05 is a Saturday, outside Monday..Friday.
	res := f.actions.ToggleAdHocAvailability(f.ctx(), ToggleAdHocInput{
		DoctorID:  f.doctorID.String(),
		ClinicID:  f.clinicID.String(),
		Date:      "2025-07-05",
		Available: true,
		Reason:    "plantão extra",
	})
	require.True(t, res.Success, "grant failed: %s", res.Error)
	assert.True(t, res.Available)
	assert.True(t, f.store.has(override.KindAdHocGrant, f.doctorID, f.date("2025-07-05"), ""))

	res = f.actions.ToggleAdHocAvailability(f.ctx(), ToggleAdHocInput{
		DoctorID:  f.doctorID.String(),
		ClinicID:  f.clinicID.String(),
		Date:      "2025-07-05",
		Available: false,
	})
	require.True(t, res.Success)
	assert.False(t, f.store.has(override.KindAdHocGrant, f.doctorID, f.date("2025-07-05"), ""))
}

func TestToggleTimeSlotBlock(t *testing.T) {
	f := newFixture(t)
	in := ToggleSlotBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Time:     "09:30",
		Block:    true,
	}
	res := f.actions.ToggleTimeSlotBlock(f.ctx(), in)
	require.True(t, res.Success, "slot block failed: %s", res.Error)
	assert.True(t, f.store.has(override.KindSlotBlock, f.doctorID, f.date("2025-07-07"), "09:30"))

	in.Block = false
	res = f.actions.ToggleTimeSlotBlock(f.ctx(), in)
	require.True(t, res.Success)
	assert.False(t, f.store.has(override.KindSlotBlock, f.doctorID, f.date("2025-07-07"), "09:30"))
}

func TestToggleTimeSlotBlockRejectsBlockedDay(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.actions.ToggleFullDayBlock(f.ctx(), ToggleDayBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Block:    true,
	}).Success)

	res := f.actions.ToggleTimeSlotBlock(f.ctx(), ToggleSlotBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Time:     "09:30",
		Block:    true,
	})
	assert.False(t, res.Success)
	assert.Equal(t, FailureValidation, res.Kind)
	assert.False(t, f.store.has(override.KindSlotBlock, f.doctorID, f.date("2025-07-07"), "09:30"))
}

func TestToggleTimeSlotBlockOutsideWindow(t *testing.T) {
	f := newFixture(t)

	t.Run("weekday outside range without grant", func(t *testing.T) {
		res := f.actions.ToggleTimeSlotBlock(f.ctx(), ToggleSlotBlockInput{
			DoctorID: f.doctorID.String(),
			ClinicID: f.clinicID.String(),
			Date:     "2025-07-05", // Saturday
			Time:     "09:30",
			Block:    true,
		})
		assert.False(t, res.Success)
		assert.Equal(t, FailureValidation, res.Kind)
	})

	t.Run("ad-hoc grant makes the day manageable", func(t *testing.T) {
		require.True(t, f.actions.ToggleAdHocAvailability(f.ctx(), ToggleAdHocInput{
			DoctorID:  f.doctorID.String(),
			ClinicID:  f.clinicID.String(),
			Date:      "2025-07-05",
			Available: true,
		}).Success)

		res := f.actions.ToggleTimeSlotBlock(f.ctx(), ToggleSlotBlockInput{
			DoctorID: f.doctorID.String(),
			ClinicID: f.clinicID.String(),
			Date:     "2025-07-05",
			Time:     "09:30",
			Block:    true,
		})
		assert.True(t, res.Success, "slot toggle on granted day failed: %s", res.Error)
	})
}

func TestToggleTimeSlotBlockTimeValidation(t *testing.T) {
	f := newFixture(t)
	base := ToggleSlotBlockInput{
		DoctorID: f.doctorID.String(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Block:    true,
	}

	cases := []struct {
		name string
		time string
	}{
		{"malformed", "9h30"},
		{"off grid", "09:15"},
		{"before window", "08:30"},
		{"at window end", "12:00"},
		{"after window", "14:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			in.Time = tc.time
			res := f.actions.ToggleTimeSlotBlock(f.ctx(), in)
			assert.False(t, res.Success)
			assert.Equal(t, FailureValidation, res.Kind)
		})
	}
}

func TestToggleTimeSlotBlockUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	res := f.actions.ToggleTimeSlotBlock(f.ctx(), ToggleSlotBlockInput{
		DoctorID: uuid.NewString(),
		ClinicID: f.clinicID.String(),
		Date:     "2025-07-07",
		Time:     "09:30",
		Block:    true,
	})
	assert.False(t, res.Success)
	assert.Equal(t, FailureNotFound, res.Kind)
}
