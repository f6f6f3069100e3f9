package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bookable/booking-engine/internal/notify"
	"github.com/bookable/booking-engine/internal/redisclient"
)

type serviceFixture struct {
	repo     *fakeRepo
	locker   *fakeLocker
	notifier *fakeNotifier
	svc      *Service

	businessID uuid.UUID
	customerID uuid.UUID
	serviceID  uuid.UUID
}

// newServiceFixture wires a Service over fakes with a business open Monday
// 09:00-17:00 offering one 30 minute service, and both accounts reachable.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		repo:       &fakeRepo{},
		locker:     &fakeLocker{},
		notifier:   &fakeNotifier{},
		businessID: uuid.New(),
		customerID: uuid.New(),
		serviceID:  uuid.New(),
	}

	f.repo.getServiceFn = func(_ context.Context, id uuid.UUID) (*ServiceOffering, error) {
		if id != f.serviceID {
			return nil, ErrServiceNotFound
		}
		return &ServiceOffering{
			ID:              f.serviceID,
			BusinessID:      f.businessID,
			Name:            "Consultation",
			DurationMinutes: 30,
			Active:          true,
		}, nil
	}
	f.repo.listRecurringWindowsFn = func(context.Context, uuid.UUID, int) ([]AvailabilityWindow, error) {
		return []AvailabilityWindow{window("09:00", "17:00")}, nil
	}
	f.repo.getAccountFn = func(_ context.Context, id uuid.UUID) (*Account, error) {
		switch id {
		case f.customerID:
			return &Account{ID: id, Email: "customer@example.com", Role: "user"}, nil
		case f.businessID:
			return &Account{ID: id, Email: "owner@example.com", Role: "business"}, nil
		}
		return nil, ErrAccountNotFound
	}

	slots := NewSlotGenerator(f.repo, time.UTC, 30*time.Minute, 15*time.Minute)
	slots.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	f.svc = NewService(f.repo, f.locker, slots, f.notifier)
	return f
}

func (f *serviceFixture) createInput() CreateInput {
	return CreateInput{
		CustomerID: f.customerID,
		ServiceID:  f.serviceID,
		Date:       time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), // Monday
		StartTime:  "10:00",
		EndTime:    "10:30",
	}
}

func TestCreateBooksAndNotifiesBothParties(t *testing.T) {
	f := newServiceFixture(t)

	appt, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if appt.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", appt.Status)
	}
	if appt.BusinessID != f.businessID {
		t.Errorf("business id not taken from the service offering")
	}

	if f.locker.calls != 1 {
		t.Fatalf("lock acquired %d times, want 1", f.locker.calls)
	}

	msgs := f.notifier.sent()
	if len(msgs) != 2 {
		t.Fatalf("got %d notifications, want 2", len(msgs))
	}
	for _, m := range msgs {
		if m.Kind != notify.KindBookingConfirmed {
			t.Errorf("notification kind = %s, want %s", m.Kind, notify.KindBookingConfirmed)
		}
	}
	if msgs[0].Recipient != "customer@example.com" || msgs[1].Recipient != "owner@example.com" {
		t.Errorf("recipients = %s, %s", msgs[0].Recipient, msgs[1].Recipient)
	}
}

func TestCreateRejectsOutsideAvailability(t *testing.T) {
	f := newServiceFixture(t)

	in := f.createInput()
	in.StartTime = "17:30"
	in.EndTime = "18:00"

	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrOutsideAvailability) {
		t.Fatalf("err = %v, want ErrOutsideAvailability", err)
	}
	if f.locker.calls != 0 {
		t.Fatal("lock taken before validation passed")
	}
}

func TestCreateRejectsWindowOverhang(t *testing.T) {
	f := newServiceFixture(t)

	// Starts inside the window but spills past its end.
	in := f.createInput()
	in.StartTime = "16:45"
	in.EndTime = "17:15"

	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrOutsideAvailability) {
		t.Fatalf("err = %v, want ErrOutsideAvailability", err)
	}
}

func TestCreateRejectsDurationMismatch(t *testing.T) {
	f := newServiceFixture(t)

	in := f.createInput()
	in.EndTime = "11:00" // 60 minutes against a 30 minute service

	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrDurationMismatch) {
		t.Fatalf("err = %v, want ErrDurationMismatch", err)
	}
}

func TestCreateRejectsInvertedRange(t *testing.T) {
	f := newServiceFixture(t)

	in := f.createInput()
	in.StartTime = "10:30"
	in.EndTime = "10:00"

	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("err = %v, want ErrInvalidTimeRange", err)
	}
}

func TestCreateRejectsMalformedClock(t *testing.T) {
	f := newServiceFixture(t)

	in := f.createInput()
	in.StartTime = "10am"

	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("err = %v, want ErrInvalidClock", err)
	}
}

func TestCreateRejectsCollision(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.findBookingCollisionFn = func(_ context.Context, _ uuid.UUID, _ time.Time, startTime string, excludeID uuid.UUID) (*Appointment, error) {
		if excludeID != uuid.Nil {
			t.Errorf("create passed exclude id %s, want Nil", excludeID)
		}
		return &Appointment{ID: uuid.New(), StartTime: startTime, Status: StatusScheduled}, nil
	}

	if _, err := f.svc.Create(context.Background(), f.createInput()); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
	if len(f.notifier.sent()) != 0 {
		t.Fatal("notification sent for a rejected booking")
	}
}

func TestCreateLockContention(t *testing.T) {
	f := newServiceFixture(t)
	f.locker.err = redisclient.ErrLockNotAcquired

	if _, err := f.svc.Create(context.Background(), f.createInput()); !errors.Is(err, ErrSlotBeingBooked) {
		t.Fatalf("err = %v, want ErrSlotBeingBooked", err)
	}
}

func TestCreateCancelledSlotRebookable(t *testing.T) {
	f := newServiceFixture(t)

	// The collision query treats cancelled rows as invisible; simulated here
	// by the repo reporting no live collision for the slot.
	f.repo.findBookingCollisionFn = func(context.Context, uuid.UUID, time.Time, string, uuid.UUID) (*Appointment, error) {
		return nil, ErrAppointmentNotFound
	}

	if _, err := f.svc.Create(context.Background(), f.createInput()); err != nil {
		t.Fatalf("rebooking a released slot failed: %v", err)
	}
}

func TestCreateNotifierFailureDoesNotFailBooking(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.err = errors.New("broker down")

	appt, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if appt == nil || appt.Status != StatusScheduled {
		t.Fatal("booking not committed despite notifier failure")
	}
}

func TestCreateSkipsDemoBusinessCopy(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.getAccountFn = func(_ context.Context, id uuid.UUID) (*Account, error) {
		if id == f.customerID {
			return &Account{ID: id, Email: "customer@example.com"}, nil
		}
		return &Account{ID: id, Email: "owner@example.com", IsDemo: true}, nil
	}

	if _, err := f.svc.Create(context.Background(), f.createInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	msgs := f.notifier.sent()
	if len(msgs) != 1 || msgs[0].Recipient != "customer@example.com" {
		t.Fatalf("messages = %v, want customer copy only", msgs)
	}
}

func TestUpdateStatusOnlySkipsAvailabilityChecks(t *testing.T) {
	f := newServiceFixture(t)

	apptID := uuid.New()
	f.repo.getAppointmentFn = func(context.Context, uuid.UUID) (*Appointment, error) {
		return &Appointment{
			ID:         apptID,
			CustomerID: f.customerID,
			BusinessID: f.businessID,
			ServiceID:  f.serviceID,
			Date:       time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			StartTime:  "10:00",
			EndTime:    "10:30",
			Status:     StatusScheduled,
		}, nil
	}
	f.repo.getServiceFn = func(context.Context, uuid.UUID) (*ServiceOffering, error) {
		t.Fatal("status-only update loaded the service")
		return nil, nil
	}

	status := StatusCompleted
	updated, err := f.svc.Update(context.Background(), apptID, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", updated.Status)
	}

	msgs := f.notifier.sent()
	if len(msgs) == 0 || msgs[0].Kind != notify.KindStatusChanged {
		t.Fatalf("messages = %v, want status change notifications", msgs)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.getAppointmentFn = func(context.Context, uuid.UUID) (*Appointment, error) {
		return &Appointment{ID: uuid.New(), Status: StatusScheduled}, nil
	}

	status := AppointmentStatus("postponed")
	if _, err := f.svc.Update(context.Background(), uuid.New(), UpdateInput{Status: &status}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestUpdateRescheduleExcludesSelfAndSetsRescheduled(t *testing.T) {
	f := newServiceFixture(t)

	apptID := uuid.New()
	f.repo.getAppointmentFn = func(context.Context, uuid.UUID) (*Appointment, error) {
		return &Appointment{
			ID:         apptID,
			CustomerID: f.customerID,
			BusinessID: f.businessID,
			ServiceID:  f.serviceID,
			Date:       time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			StartTime:  "10:00",
			EndTime:    "10:30",
			Status:     StatusScheduled,
		}, nil
	}

	var gotExclude uuid.UUID
	f.repo.findBookingCollisionFn = func(_ context.Context, _ uuid.UUID, _ time.Time, _ string, excludeID uuid.UUID) (*Appointment, error) {
		gotExclude = excludeID
		return nil, nil
	}

	newStart, newEnd := "14:00", "14:30"
	updated, err := f.svc.Update(context.Background(), apptID, UpdateInput{StartTime: &newStart, EndTime: &newEnd})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if gotExclude != apptID {
		t.Errorf("collision check excluded %s, want the appointment itself", gotExclude)
	}
	if updated.Status != StatusRescheduled {
		t.Errorf("status = %s, want rescheduled", updated.Status)
	}
	if updated.StartTime != "14:00" || updated.EndTime != "14:30" {
		t.Errorf("times = %s-%s, want 14:00-14:30", updated.StartTime, updated.EndTime)
	}
}

func TestUpdateRescheduleRejectsTakenSlot(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.getAppointmentFn = func(context.Context, uuid.UUID) (*Appointment, error) {
		return &Appointment{
			ID:         uuid.New(),
			CustomerID: f.customerID,
			BusinessID: f.businessID,
			ServiceID:  f.serviceID,
			Date:       time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			StartTime:  "10:00",
			EndTime:    "10:30",
			Status:     StatusScheduled,
		}, nil
	}
	f.repo.findBookingCollisionFn = func(context.Context, uuid.UUID, time.Time, string, uuid.UUID) (*Appointment, error) {
		return &Appointment{ID: uuid.New(), Status: StatusScheduled}, nil
	}

	newStart, newEnd := "14:00", "14:30"
	if _, err := f.svc.Update(context.Background(), uuid.New(), UpdateInput{StartTime: &newStart, EndTime: &newEnd}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestCancelSetsCancelledAndNotifies(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.getAppointmentFn = func(context.Context, uuid.UUID) (*Appointment, error) {
		return &Appointment{
			ID:         uuid.New(),
			CustomerID: f.customerID,
			BusinessID: f.businessID,
			Date:       time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			StartTime:  "10:00",
			Status:     StatusScheduled,
		}, nil
	}

	updated, err := f.svc.Cancel(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", updated.Status)
	}

	msgs := f.notifier.sent()
	if len(msgs) != 2 || msgs[0].Kind != notify.KindBookingCancelled {
		t.Fatalf("messages = %v, want two cancellation notices", msgs)
	}
}

func TestSetAvailabilityValidation(t *testing.T) {
	f := newServiceFixture(t)

	cases := []struct {
		name string
		in   WindowInput
		want error
	}{
		{
			name: "bad clock",
			in:   WindowInput{BusinessID: f.businessID, DayOfWeek: 1, StartTime: "9:00", EndTime: "17:00"},
			want: ErrInvalidClock,
		},
		{
			name: "inverted range",
			in:   WindowInput{BusinessID: f.businessID, DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"},
			want: ErrInvalidTimeRange,
		},
	}

	for _, tc := range cases {
		if _, err := f.svc.SetAvailability(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	if _, err := f.svc.SetAvailability(context.Background(), WindowInput{
		BusinessID: f.businessID, DayOfWeek: 7, StartTime: "09:00", EndTime: "17:00",
	}); err == nil {
		t.Error("day of week 7 accepted")
	}
}
