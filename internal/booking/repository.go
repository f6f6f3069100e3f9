package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrWindowNotFound      = errors.New("availability window not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the engine.
type Repository interface {
	// Availability windows. ListRecurringWindows returns only bookable
	// recurring rows; ListDateWindows returns every row pinned to the date,
	// carve-outs included, so callers can apply override precedence.
	ListWindows(ctx context.Context, businessID uuid.UUID) ([]AvailabilityWindow, error)
	ListRecurringWindows(ctx context.Context, businessID uuid.UUID, dayOfWeek int) ([]AvailabilityWindow, error)
	ListDateWindows(ctx context.Context, businessID uuid.UUID, date time.Time) ([]AvailabilityWindow, error)
	GetWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	UpsertWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error

	// Appointments.
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	ListAppointmentsForDate(ctx context.Context, businessID uuid.UUID, date time.Time) ([]Appointment, error)
	ListAppointmentsByCustomer(ctx context.Context, customerID uuid.UUID) ([]Appointment, error)
	ListAppointmentsByBusiness(ctx context.Context, businessID uuid.UUID) ([]Appointment, error)

	// FindBookingCollision reports a non-cancelled appointment sharing
	// (business, date, start time), excluding excludeID when non-nil.
	FindBookingCollision(ctx context.Context, businessID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (*Appointment, error)

	// Sweep scans.
	FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error)
	ListScheduled(ctx context.Context) ([]Appointment, error)
	ListScheduledUnreminded(ctx context.Context) ([]Appointment, error)
	FindAutoMissed(ctx context.Context) ([]Appointment, error)

	// TransitionStatus is a compare-and-set write; it returns
	// ErrAppointmentNotFound when the row is no longer in the from state,
	// which sweeps treat as another writer having won.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, autoCancelled bool) (*Appointment, error)

	// MarkReminderSent flips the flag exactly once; false means another
	// sweep run already claimed the reminder.
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)

	// Read-only collaborators.
	GetService(ctx context.Context, id uuid.UUID) (*ServiceOffering, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
}
