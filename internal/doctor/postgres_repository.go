package doctor

import (
	"context"
	"fmt"

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

// PostgresRepository stores doctors in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("doctor: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// GetByID fetches a doctor scoped to the clinic.
func (r *PostgresRepository) GetByID(ctx context.Context, clinicID, doctorID uuid.UUID) (*Doctor, error) {
	query := `
		SELECT id, clinic_id, name, available_from_weekday, available_to_weekday,
		       available_from_time, available_to_time, created_at
		FROM doctors
		WHERE id = $1 AND clinic_id = $2
	`
	row := r.db.QueryRow(ctx, query, doctorID, clinicID)
	var d Doctor
	if err := row.Scan(
		&d.ID,
		&d.ClinicID,
		&d.Name,
		&d.AvailableFromWeekday,
		&d.AvailableToWeekday,
		&d.AvailableFromTime,
		&d.AvailableToTime,
		&d.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctor: select failed: %w", err)
	}
	return &d, nil
}
