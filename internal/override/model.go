// Package override persists the three calendar override classes that modify
// a doctor's recurring availability: full-day blocks, ad-hoc availability
// grants, and per-slot time blocks. Rows are scoped by clinic and doctor;
// uniqueness per (doctor, date[, time]) is the only concurrency guard —
// duplicate toggles are commutative no-ops.
package override

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an override class.
type Kind string

const (
	// KindDayBlock removes an entire date from bookability.
	KindDayBlock Kind = "day_block"
	// KindAdHocGrant adds bookability to a date outside the recurring window.
	KindAdHocGrant Kind = "adhoc_grant"
	// KindSlotBlock removes a single 30-minute tick.
	KindSlotBlock Kind = "slot_block"
)

// ErrUnknownKind is returned for a kind outside the three override classes.
var ErrUnknownKind = errors.New("override: unknown kind")

// Valid reports whether k is one of the three override classes.
func (k Kind) Valid() bool {
	switch k {
	case KindDayBlock, KindAdHocGrant, KindSlotBlock:
		return true
	}
	return false
}

// Override is one persisted override row. Date is canonical start-of-day in
// the operating timezone. Time is set for slot blocks only.
type Override struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
	DoctorID uuid.UUID
	Date     time.Time
	Time     string
	Reason   string
}
