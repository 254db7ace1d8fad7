package override

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists overrides in Postgres. Writes are insert-or-noop and
// delete-or-noop; reads always filter by clinic id in addition to doctor id.
type Store struct {
	db DB
}

// NewStore creates an override store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("override: pgx pool required")
	}
	return &Store{db: db}
}

func tableFor(kind Kind) (string, error) {
	switch kind {
	case KindDayBlock:
		return "blocked_dates", nil
	case KindAdHocGrant:
		return "adhoc_availability", nil
	case KindSlotBlock:
		return "blocked_time_slots", nil
	default:
		return "", ErrUnknownKind
	}
}

// Insert writes an override row, ignoring the write if a row with the same
// uniqueness key already exists. Returns whether a new row was inserted.
func (s *Store) Insert(ctx context.Context, kind Kind, o Override) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}

	var tag pgconn.CommandTag
	if kind == KindSlotBlock {
		query := fmt.Sprintf(`
			INSERT INTO %s (id, clinic_id, doctor_id, date, slot_time, reason)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
			ON CONFLICT (doctor_id, date, slot_time) DO NOTHING`, table)
		tag, err = s.db.Exec(ctx, query, o.ID, o.ClinicID, o.DoctorID, o.Date, o.Time, o.Reason)
	} else {
		query := fmt.Sprintf(`
			INSERT INTO %s (id, clinic_id, doctor_id, date, reason)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''))
			ON CONFLICT (doctor_id, date) DO NOTHING`, table)
		tag, err = s.db.Exec(ctx, query, o.ID, o.ClinicID, o.DoctorID, o.Date, o.Reason)
	}
	if err != nil {
		return false, fmt.Errorf("override: insert %s: %w", kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the override row matching the scoped key. Deleting a row
// that does not exist is not an error. Returns whether a row was removed.
func (s *Store) Delete(ctx context.Context, kind Kind, clinicID, doctorID uuid.UUID, date time.Time, slotTime string) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	var tag pgconn.CommandTag
	if kind == KindSlotBlock {
		query := fmt.Sprintf(`
			DELETE FROM %s
			WHERE clinic_id = $1 AND doctor_id = $2 AND date = $3 AND slot_time = $4`, table)
		tag, err = s.db.Exec(ctx, query, clinicID, doctorID, date, slotTime)
	} else {
		query := fmt.Sprintf(`
			DELETE FROM %s
			WHERE clinic_id = $1 AND doctor_id = $2 AND date = $3`, table)
		tag, err = s.db.Exec(ctx, query, clinicID, doctorID, date)
	}
	if err != nil {
		return false, fmt.Errorf("override: delete %s: %w", kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListDates returns the override dates of a day-level kind for a doctor,
// scoped to the clinic, ordered ascending.
func (s *Store) ListDates(ctx context.Context, kind Kind, clinicID, doctorID uuid.UUID) ([]time.Time, error) {
	if kind != KindDayBlock && kind != KindAdHocGrant {
		return nil, ErrUnknownKind
	}
	table, _ := tableFor(kind)
	query := fmt.Sprintf(`
		SELECT date FROM %s
		WHERE clinic_id = $1 AND doctor_id = $2
		ORDER BY date`, table)
	rows, err := s.db.Query(ctx, query, clinicID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("override: list %s: %w", kind, err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("override: scan %s: %w", kind, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("override: rows %s: %w", kind, err)
	}
	return dates, nil
}

// ListTimes returns the blocked slot times for a doctor on one date, scoped
// to the clinic, ordered ascending.
func (s *Store) ListTimes(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) ([]string, error) {
	query := `
		SELECT slot_time FROM blocked_time_slots
		WHERE clinic_id = $1 AND doctor_id = $2 AND date = $3
		ORDER BY slot_time`
	rows, err := s.db.Query(ctx, query, clinicID, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("override: list slot times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("override: scan slot time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("override: slot time rows: %w", err)
	}
	return times, nil
}

// Exists reports whether a day-level override of the given kind is present
// for the date.
func (s *Store) Exists(ctx context.Context, kind Kind, clinicID, doctorID uuid.UUID, date time.Time) (bool, error) {
	if kind != KindDayBlock && kind != KindAdHocGrant {
		return false, ErrUnknownKind
	}
	table, _ := tableFor(kind)
	query := fmt.Sprintf(`
		SELECT 1 FROM %s
		WHERE clinic_id = $1 AND doctor_id = $2 AND date = $3`, table)
	var one int
	err := s.db.QueryRow(ctx, query, clinicID, doctorID, date).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("override: exists %s: %w", kind, err)
	}
	return true, nil
}

// Detail is one override row in an admin listing.
type Detail struct {
	Kind   Kind      `json:"kind"`
	Date   time.Time `json:"date"`
	Time   string    `json:"time,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// ListDetails returns every override of a doctor across the three classes,
// with reasons, ordered by date then time. Feeds the admin calendar listing.
func (s *Store) ListDetails(ctx context.Context, clinicID, doctorID uuid.UUID) ([]Detail, error) {
	query := `
		SELECT 'day_block' AS kind, date, '' AS slot_time, COALESCE(reason, '') FROM blocked_dates
		WHERE clinic_id = $1 AND doctor_id = $2
		UNION ALL
		SELECT 'adhoc_grant', date, '', COALESCE(reason, '') FROM adhoc_availability
		WHERE clinic_id = $1 AND doctor_id = $2
		UNION ALL
		SELECT 'slot_block', date, slot_time, COALESCE(reason, '') FROM blocked_time_slots
		WHERE clinic_id = $1 AND doctor_id = $2
		ORDER BY date, slot_time`
	rows, err := s.db.Query(ctx, query, clinicID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("override: list details: %w", err)
	}
	defer rows.Close()

	var details []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.Kind, &d.Date, &d.Time, &d.Reason); err != nil {
			return nil, fmt.Errorf("override: scan detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("override: detail rows: %w", err)
	}
	return details, nil
}
