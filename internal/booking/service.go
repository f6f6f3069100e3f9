package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bookable/booking-engine/internal/notify"
	"github.com/bookable/booking-engine/internal/redisclient"
)

var (
	ErrOutsideAvailability = errors.New("requested time is outside business availability")
	ErrSlotTaken           = errors.New("time slot is already booked")
	ErrSlotBeingBooked     = errors.New("slot is currently being booked, please retry")
	ErrDurationMismatch    = errors.New("booking length does not match service duration")
	ErrInvalidTimeRange    = errors.New("start time must be before end time")
	ErrInvalidStatus       = errors.New("invalid appointment status")
)

// Service validates and applies booking mutations. Every write commits
// before its notification is attempted; a notifier failure never rolls a
// booking back.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	slots    *SlotGenerator
	notifier notify.Notifier
}

func NewService(repo Repository, locker redisclient.Locker, slots *SlotGenerator, notifier notify.Notifier) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		slots:    slots,
		notifier: notifier,
	}
}

func (s *Service) Slots(ctx context.Context, businessID uuid.UUID, date time.Time) ([]Slot, error) {
	return s.slots.Generate(ctx, businessID, date)
}

type CreateInput struct {
	CustomerID uuid.UUID
	ServiceID  uuid.UUID
	Date       time.Time
	StartTime  string
	EndTime    string
	Notes      string
}

// Create books a new appointment. The collision check and the insert run
// under a per-slot lock so two requests for the same (business, date,
// start) serialize instead of both passing validation.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	svc, err := s.repo.GetService(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	if err := s.validateTimes(ctx, svc, in.Date, in.StartTime, in.EndTime); err != nil {
		return nil, err
	}

	var created *Appointment

	slotKey := bookingSlotKey(svc.BusinessID, in.Date, in.StartTime)
	err = s.locker.WithBookingLock(ctx, slotKey, func(lockCtx context.Context) error {
		existing, err := s.repo.FindBookingCollision(lockCtx, svc.BusinessID, in.Date, in.StartTime, uuid.Nil)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check booking collision: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			CustomerID: in.CustomerID,
			BusinessID: svc.BusinessID,
			ServiceID:  in.ServiceID,
			Date:       in.Date,
			StartTime:  in.StartTime,
			EndTime:    in.EndTime,
			Status:     StatusScheduled,
			Notes:      in.Notes,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.notifyParties(ctx, created, notify.KindBookingConfirmed,
		"Appointment Confirmation",
		fmt.Sprintf("Your appointment has been scheduled for %s at %s.", created.Date.Format(DateLayout), created.StartTime),
		"New Appointment Booking",
		fmt.Sprintf("A new appointment has been scheduled for %s at %s.", created.Date.Format(DateLayout), created.StartTime),
	)

	return created, nil
}

type UpdateInput struct {
	ServiceID *uuid.UUID
	Date      *time.Time
	StartTime *string
	EndTime   *string
	Status    *AppointmentStatus
	Notes     *string
}

func (in UpdateInput) statusOnly() bool {
	return in.Status != nil &&
		in.ServiceID == nil && in.Date == nil && in.StartTime == nil && in.EndTime == nil && in.Notes == nil
}

func (in UpdateInput) movesBooking() bool {
	return in.Date != nil || in.StartTime != nil || in.EndTime != nil
}

// Update handles both human status changes (complete, missed) and
// reschedules. A reschedule re-validates the new slot, excluding the
// appointment itself from the collision check, and lands in the
// rescheduled state rather than back in scheduled.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && !ValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	// Status-only change by the customer or business: no availability
	// checks, matching a human marking a booking completed or missed.
	if in.statusOnly() {
		appt.Status = *in.Status
		updated, err := s.repo.UpdateAppointment(ctx, *appt)
		if err != nil {
			return nil, fmt.Errorf("update appointment: %w", err)
		}

		s.notifyParties(ctx, updated, notify.KindStatusChanged,
			"Appointment Status Update",
			fmt.Sprintf("Your appointment for %s at %s has been marked as %s.", updated.Date.Format(DateLayout), updated.StartTime, updated.Status),
			"Appointment Status Update",
			fmt.Sprintf("The appointment for %s at %s has been marked as %s.", updated.Date.Format(DateLayout), updated.StartTime, updated.Status),
		)

		return updated, nil
	}

	serviceID := appt.ServiceID
	if in.ServiceID != nil {
		serviceID = *in.ServiceID
	}
	date := appt.Date
	if in.Date != nil {
		date = *in.Date
	}
	startTime := appt.StartTime
	if in.StartTime != nil {
		startTime = *in.StartTime
	}
	endTime := appt.EndTime
	if in.EndTime != nil {
		endTime = *in.EndTime
	}

	if in.movesBooking() {
		svc, err := s.repo.GetService(ctx, serviceID)
		if err != nil {
			if errors.Is(err, ErrServiceNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load service: %w", err)
		}

		if err := s.validateTimes(ctx, svc, date, startTime, endTime); err != nil {
			return nil, err
		}

		existing, err := s.repo.FindBookingCollision(ctx, svc.BusinessID, date, startTime, appt.ID)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("check booking collision: %w", err)
		}
		if existing != nil {
			return nil, ErrSlotTaken
		}
	}

	appt.ServiceID = serviceID
	appt.Date = date
	appt.StartTime = startTime
	appt.EndTime = endTime
	if in.Status != nil {
		appt.Status = *in.Status
	}
	if in.Notes != nil {
		appt.Notes = *in.Notes
	}
	if in.Date != nil || in.StartTime != nil {
		appt.Status = StatusRescheduled
	}

	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	s.notifyParties(ctx, updated, notify.KindBookingUpdated,
		"Appointment Update",
		fmt.Sprintf("Your appointment has been updated to %s at %s.", updated.Date.Format(DateLayout), updated.StartTime),
		"Appointment Update",
		fmt.Sprintf("An appointment has been updated to %s at %s.", updated.Date.Format(DateLayout), updated.StartTime),
	)

	return updated, nil
}

// Cancel releases the slot by status transition; the row is never deleted.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	appt.Status = StatusCancelled
	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.notifyParties(ctx, updated, notify.KindBookingCancelled,
		"Appointment Cancelled",
		fmt.Sprintf("Your appointment for %s at %s has been cancelled.", updated.Date.Format(DateLayout), updated.StartTime),
		"Appointment Cancelled",
		fmt.Sprintf("An appointment for %s at %s has been cancelled.", updated.Date.Format(DateLayout), updated.StartTime),
	)

	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListAppointmentsByCustomer(ctx, customerID)
}

func (s *Service) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListAppointmentsByBusiness(ctx, businessID)
}

// Availability window management (written by the business, read by the engine).

type WindowInput struct {
	BusinessID   uuid.UUID
	DayOfWeek    int
	SpecificDate *time.Time
	StartTime    string
	EndTime      string
	IsAvailable  bool
}

func (s *Service) SetAvailability(ctx context.Context, in WindowInput) (*AvailabilityWindow, error) {
	startMin, err := ParseClock(in.StartTime)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClock(in.EndTime)
	if err != nil {
		return nil, err
	}
	if startMin >= endMin {
		return nil, ErrInvalidTimeRange
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, fmt.Errorf("day of week %d out of range", in.DayOfWeek)
	}

	return s.repo.UpsertWindow(ctx, AvailabilityWindow{
		BusinessID:   in.BusinessID,
		DayOfWeek:    in.DayOfWeek,
		SpecificDate: in.SpecificDate,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		IsAvailable:  in.IsAvailable,
	})
}

func (s *Service) ListAvailability(ctx context.Context, businessID uuid.UUID) ([]AvailabilityWindow, error) {
	return s.repo.ListWindows(ctx, businessID)
}

func (s *Service) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteWindow(ctx, id)
}

// validateTimes runs the two booking checks in order: the requested range
// must parse and match the service duration, and some window the slot
// generator would produce must cover [start, end]. The collision check is
// the caller's, since create and reschedule exclude different rows.
func (s *Service) validateTimes(ctx context.Context, svc *ServiceOffering, date time.Time, startTime, endTime string) error {
	startMin, err := ParseClock(startTime)
	if err != nil {
		return err
	}
	endMin, err := ParseClock(endTime)
	if err != nil {
		return err
	}
	if startMin >= endMin {
		return ErrInvalidTimeRange
	}
	if endMin-startMin != svc.DurationMinutes {
		return ErrDurationMismatch
	}

	windows, err := s.slots.WindowsFor(ctx, svc.BusinessID, date)
	if err != nil {
		return err
	}

	for _, w := range windows {
		wStart, err := ParseClock(w.StartTime)
		if err != nil {
			continue
		}
		wEnd, err := ParseClock(w.EndTime)
		if err != nil {
			continue
		}
		if wStart <= startMin && wEnd >= endMin {
			return nil
		}
	}

	return ErrOutsideAvailability
}

func bookingSlotKey(businessID uuid.UUID, date time.Time, startTime string) string {
	return fmt.Sprintf("%s:%s:%s", businessID, date.Format(DateLayout), startTime)
}

// notifyParties enqueues the customer and business copies of a lifecycle
// message. Failures are logged and swallowed; demo businesses get no copy.
func (s *Service) notifyParties(ctx context.Context, appt *Appointment, kind, customerSubject, customerBody, businessSubject, businessBody string) {
	customer, err := s.repo.GetAccount(ctx, appt.CustomerID)
	if err != nil {
		log.Printf("load customer %s for notification: %v", appt.CustomerID, err)
	} else if customer.Email != "" {
		if err := s.notifier.Notify(ctx, notify.Message{
			Recipient:     customer.Email,
			Subject:       customerSubject,
			Body:          customerBody,
			Kind:          kind,
			AppointmentID: appt.ID,
		}); err != nil {
			log.Printf("notify customer for appointment %s: %v", appt.ID, err)
		}
	}

	business, err := s.repo.GetAccount(ctx, appt.BusinessID)
	if err != nil {
		log.Printf("load business %s for notification: %v", appt.BusinessID, err)
		return
	}
	if business.IsDemo || business.Email == "" {
		return
	}
	if err := s.notifier.Notify(ctx, notify.Message{
		Recipient:     business.Email,
		Subject:       businessSubject,
		Body:          businessBody,
		Kind:          kind,
		AppointmentID: appt.ID,
	}); err != nil {
		log.Printf("notify business for appointment %s: %v", appt.ID, err)
	}
}
