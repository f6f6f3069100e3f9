package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookable/booking-engine/internal/notify"
)

// fakeRepo satisfies Repository with per-method function fields so each test
// stubs only what it touches. Unset methods return empty results.
type fakeRepo struct {
	listWindowsFn          func(ctx context.Context, businessID uuid.UUID) ([]AvailabilityWindow, error)
	listRecurringWindowsFn func(ctx context.Context, businessID uuid.UUID, dayOfWeek int) ([]AvailabilityWindow, error)
	listDateWindowsFn      func(ctx context.Context, businessID uuid.UUID, date time.Time) ([]AvailabilityWindow, error)
	getWindowFn            func(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	upsertWindowFn         func(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	deleteWindowFn         func(ctx context.Context, id uuid.UUID) error

	createAppointmentFn          func(ctx context.Context, a Appointment) (*Appointment, error)
	getAppointmentFn             func(ctx context.Context, id uuid.UUID) (*Appointment, error)
	updateAppointmentFn          func(ctx context.Context, a Appointment) (*Appointment, error)
	listAppointmentsForDateFn    func(ctx context.Context, businessID uuid.UUID, date time.Time) ([]Appointment, error)
	listAppointmentsByCustomerFn func(ctx context.Context, customerID uuid.UUID) ([]Appointment, error)
	listAppointmentsByBusinessFn func(ctx context.Context, businessID uuid.UUID) ([]Appointment, error)

	findBookingCollisionFn func(ctx context.Context, businessID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (*Appointment, error)

	findOverdueFn             func(ctx context.Context, before time.Time) ([]Appointment, error)
	listScheduledFn           func(ctx context.Context) ([]Appointment, error)
	listScheduledUnremindedFn func(ctx context.Context) ([]Appointment, error)
	findAutoMissedFn          func(ctx context.Context) ([]Appointment, error)

	transitionStatusFn func(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, autoCancelled bool) (*Appointment, error)
	markReminderSentFn func(ctx context.Context, id uuid.UUID) (bool, error)

	getServiceFn func(ctx context.Context, id uuid.UUID) (*ServiceOffering, error)
	getAccountFn func(ctx context.Context, id uuid.UUID) (*Account, error)
}

func (f *fakeRepo) ListWindows(ctx context.Context, businessID uuid.UUID) ([]AvailabilityWindow, error) {
	if f.listWindowsFn != nil {
		return f.listWindowsFn(ctx, businessID)
	}
	return nil, nil
}

func (f *fakeRepo) ListRecurringWindows(ctx context.Context, businessID uuid.UUID, dayOfWeek int) ([]AvailabilityWindow, error) {
	if f.listRecurringWindowsFn != nil {
		return f.listRecurringWindowsFn(ctx, businessID, dayOfWeek)
	}
	return nil, nil
}

func (f *fakeRepo) ListDateWindows(ctx context.Context, businessID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	if f.listDateWindowsFn != nil {
		return f.listDateWindowsFn(ctx, businessID, date)
	}
	return nil, nil
}

func (f *fakeRepo) GetWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	if f.getWindowFn != nil {
		return f.getWindowFn(ctx, id)
	}
	return nil, ErrWindowNotFound
}

func (f *fakeRepo) UpsertWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	if f.upsertWindowFn != nil {
		return f.upsertWindowFn(ctx, w)
	}
	w.ID = uuid.New()
	return &w, nil
}

func (f *fakeRepo) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	if f.deleteWindowFn != nil {
		return f.deleteWindowFn(ctx, id)
	}
	return nil
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if f.createAppointmentFn != nil {
		return f.createAppointmentFn(ctx, a)
	}
	a.ID = uuid.New()
	return &a, nil
}

func (f *fakeRepo) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	if f.getAppointmentFn != nil {
		return f.getAppointmentFn(ctx, id)
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if f.updateAppointmentFn != nil {
		return f.updateAppointmentFn(ctx, a)
	}
	return &a, nil
}

func (f *fakeRepo) ListAppointmentsForDate(ctx context.Context, businessID uuid.UUID, date time.Time) ([]Appointment, error) {
	if f.listAppointmentsForDateFn != nil {
		return f.listAppointmentsForDateFn(ctx, businessID, date)
	}
	return nil, nil
}

func (f *fakeRepo) ListAppointmentsByCustomer(ctx context.Context, customerID uuid.UUID) ([]Appointment, error) {
	if f.listAppointmentsByCustomerFn != nil {
		return f.listAppointmentsByCustomerFn(ctx, customerID)
	}
	return nil, nil
}

func (f *fakeRepo) ListAppointmentsByBusiness(ctx context.Context, businessID uuid.UUID) ([]Appointment, error) {
	if f.listAppointmentsByBusinessFn != nil {
		return f.listAppointmentsByBusinessFn(ctx, businessID)
	}
	return nil, nil
}

func (f *fakeRepo) FindBookingCollision(ctx context.Context, businessID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (*Appointment, error) {
	if f.findBookingCollisionFn != nil {
		return f.findBookingCollisionFn(ctx, businessID, date, startTime, excludeID)
	}
	return nil, nil
}

func (f *fakeRepo) FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error) {
	if f.findOverdueFn != nil {
		return f.findOverdueFn(ctx, before)
	}
	return nil, nil
}

func (f *fakeRepo) ListScheduled(ctx context.Context) ([]Appointment, error) {
	if f.listScheduledFn != nil {
		return f.listScheduledFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepo) ListScheduledUnreminded(ctx context.Context) ([]Appointment, error) {
	if f.listScheduledUnremindedFn != nil {
		return f.listScheduledUnremindedFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepo) FindAutoMissed(ctx context.Context) ([]Appointment, error) {
	if f.findAutoMissedFn != nil {
		return f.findAutoMissedFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, autoCancelled bool) (*Appointment, error) {
	if f.transitionStatusFn != nil {
		return f.transitionStatusFn(ctx, id, from, to, autoCancelled)
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.markReminderSentFn != nil {
		return f.markReminderSentFn(ctx, id)
	}
	return false, nil
}

func (f *fakeRepo) GetService(ctx context.Context, id uuid.UUID) (*ServiceOffering, error) {
	if f.getServiceFn != nil {
		return f.getServiceFn(ctx, id)
	}
	return nil, ErrServiceNotFound
}

func (f *fakeRepo) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	if f.getAccountFn != nil {
		return f.getAccountFn(ctx, id)
	}
	return nil, ErrAccountNotFound
}

// fakeLocker runs the critical section inline. Set err to simulate
// contention.
type fakeLocker struct {
	err   error
	calls int
	keys  []string
}

func (l *fakeLocker) WithBookingLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error {
	l.calls++
	l.keys = append(l.keys, slotKey)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

// fakeNotifier records every message; set err to simulate a broken broker.
type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	messages []notify.Message
}

func (n *fakeNotifier) Notify(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *fakeNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Message, len(n.messages))
	copy(out, n.messages)
	return out
}
