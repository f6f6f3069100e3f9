package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusMissed      AppointmentStatus = "missed"
)

// ValidStatus reports whether s is one of the five appointment states.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled, StatusMissed:
		return true
	}
	return false
}

// Appointment is a single booking. Date carries only the calendar day;
// StartTime and EndTime are business-local "HH:MM" wall-clock values.
type Appointment struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	BusinessID uuid.UUID
	ServiceID  uuid.UUID
	Date       time.Time
	StartTime  string
	EndTime    string
	Status     AppointmentStatus
	Notes      string

	// Flags guarding against duplicate outbound messages across sweep runs.
	NotificationSent bool
	ReminderSent     bool

	// AutoCancelled is true only when the sweeper set Status to missed.
	// Human-initiated missed transitions leave it false, which is what the
	// recovery sweep keys on.
	AutoCancelled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityWindow is a business-declared span of bookable time-of-day,
// either recurring by weekday or pinned to one specific date. A row with
// IsAvailable=false is a carve-out (e.g. a holiday), not a deletion.
type AvailabilityWindow struct {
	ID           uuid.UUID
	BusinessID   uuid.UUID
	DayOfWeek    int // 0 = Sunday .. 6 = Saturday
	SpecificDate *time.Time
	StartTime    string // "HH:MM", 24-hour
	EndTime      string
	IsAvailable  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ServiceOffering is read-only to this engine; it supplies the duration
// and the owning business for a booking request.
type ServiceOffering struct {
	ID              uuid.UUID
	BusinessID      uuid.UUID
	Name            string
	Description     string
	DurationMinutes int
	PriceCents      int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Account is a read-only projection of a user record, just enough to
// address notifications. Demo businesses never receive business copies.
type Account struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      string // user, business, admin
	IsDemo    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot is one candidate bookable window of fixed width.
type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}
