package doctor

import (
	"time"

	"github.com/google/uuid"

	"github.com/agendohealth/agenda-api/internal/availability"
)

// Doctor carries the recurring availability attributes the scheduler needs.
// Weekdays follow time.Weekday numbering (0=Sunday..6=Saturday); the range
// may wrap the week boundary when AvailableFromWeekday > AvailableToWeekday.
type Doctor struct {
	ID                   uuid.UUID `json:"id"`
	ClinicID             uuid.UUID `json:"clinicId"`
	Name                 string    `json:"name"`
	AvailableFromWeekday int       `json:"availableFromWeekDay"`
	AvailableToWeekday   int       `json:"availableToWeekDay"`
	AvailableFromTime    string    `json:"availableFromTime"` // "09:00"
	AvailableToTime      string    `json:"availableToTime"`   // "18:00"
	CreatedAt            time.Time `json:"createdAt"`
}

// Window resolves the doctor's recurring attributes into the default
// availability window.
func (d *Doctor) Window() availability.Window {
	return availability.Window{
		FromWeekday: time.Weekday(d.AvailableFromWeekday),
		ToWeekday:   time.Weekday(d.AvailableToWeekday),
		FromTime:    d.AvailableFromTime,
		ToTime:      d.AvailableToTime,
	}
}
