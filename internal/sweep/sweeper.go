package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bookable/booking-engine/internal/booking"
	"github.com/bookable/booking-engine/internal/notify"
)

// Sweeper holds the four lifecycle passes. Each is a stateless
// read-scan-then-per-row-write; correctness rests on the idempotence of the
// target state and the compare-and-set transition, not on isolation. A row
// that fails is logged and skipped, to be re-evaluated on the next run.
type Sweeper struct {
	repo     booking.Repository
	notifier notify.Notifier
	loc      *time.Location

	grace           time.Duration
	reminderLeadMin time.Duration
	reminderLeadMax time.Duration

	now func() time.Time
}

type Config struct {
	Timezone        *time.Location
	GracePeriod     time.Duration
	ReminderLeadMin time.Duration
	ReminderLeadMax time.Duration
}

func NewSweeper(repo booking.Repository, notifier notify.Notifier, cfg Config) *Sweeper {
	return &Sweeper{
		repo:            repo,
		notifier:        notifier,
		loc:             cfg.Timezone,
		grace:           cfg.GracePeriod,
		reminderLeadMin: cfg.ReminderLeadMin,
		reminderLeadMax: cfg.ReminderLeadMax,
		now:             time.Now,
	}
}

// ExpireOverdue marks every appointment dated before today as missed with
// autoCancelled set, flagging the transition as system-driven so the
// recovery pass can later distinguish it from a human decision.
func (s *Sweeper) ExpireOverdue(ctx context.Context) error {
	today := booking.DateOf(s.now(), s.loc)

	overdue, err := s.repo.FindOverdue(ctx, today)
	if err != nil {
		return fmt.Errorf("find overdue appointments: %w", err)
	}

	for _, appt := range overdue {
		updated, err := s.repo.TransitionStatus(ctx, appt.ID, appt.Status, booking.StatusMissed, true)
		if err != nil {
			if errors.Is(err, booking.ErrAppointmentNotFound) {
				continue // another writer got there first
			}
			log.Printf("expire appointment %s: %v", appt.ID, err)
			continue
		}
		s.notifyMissed(ctx, updated)
	}

	return nil
}

// MarkMissed catches same-day no-shows once the grace period after their
// start time has elapsed. It also re-covers past dates in case the hourly
// expiry pass has not run yet. autoCancelled stays false here: a same-day
// miss is not recovery material.
func (s *Sweeper) MarkMissed(ctx context.Context) error {
	scheduled, err := s.repo.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("list scheduled appointments: %w", err)
	}

	now := s.now().In(s.loc)
	today := booking.DateOf(now, s.loc)

	for _, appt := range scheduled {
		cmp := booking.CompareDate(appt.Date, today)

		missed := cmp < 0
		if !missed && cmp == 0 {
			startAt, err := booking.ClockAt(appt.Date, appt.StartTime, s.loc)
			if err != nil {
				log.Printf("appointment %s has malformed start time: %v", appt.ID, err)
				continue
			}
			missed = now.After(startAt.Add(s.grace))
		}
		if !missed {
			continue
		}

		updated, err := s.repo.TransitionStatus(ctx, appt.ID, booking.StatusScheduled, booking.StatusMissed, false)
		if err != nil {
			if errors.Is(err, booking.ErrAppointmentNotFound) {
				continue
			}
			log.Printf("mark appointment %s missed: %v", appt.ID, err)
			continue
		}
		s.notifyMissed(ctx, updated)
	}

	return nil
}

// SendReminders notifies both parties of appointments starting inside the
// lead band. The reminderSent flag is claimed with a conditional write
// before anything is enqueued, so overlapping runs send at most once.
func (s *Sweeper) SendReminders(ctx context.Context) error {
	candidates, err := s.repo.ListScheduledUnreminded(ctx)
	if err != nil {
		return fmt.Errorf("list unreminded appointments: %w", err)
	}

	now := s.now().In(s.loc)

	for _, appt := range candidates {
		startAt, err := booking.ClockAt(appt.Date, appt.StartTime, s.loc)
		if err != nil {
			log.Printf("appointment %s has malformed start time: %v", appt.ID, err)
			continue
		}

		until := startAt.Sub(now)
		if until < s.reminderLeadMin || until > s.reminderLeadMax {
			continue
		}

		claimed, err := s.repo.MarkReminderSent(ctx, appt.ID)
		if err != nil {
			log.Printf("mark reminder sent for %s: %v", appt.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		minutes := int(until.Minutes())
		s.notifyBoth(ctx, &appt, notify.KindReminder,
			"Appointment Reminder",
			fmt.Sprintf("Your appointment starts in %d minutes, at %s.", minutes, appt.StartTime),
			fmt.Sprintf("An appointment starts in %d minutes, at %s.", minutes, appt.StartTime),
		)
	}

	return nil
}

// RestoreFuture re-schedules appointments the engine marked missed even
// though their real start time is still ahead, the footprint of a
// misconfigured process timezone. Human-missed rows are never touched.
func (s *Sweeper) RestoreFuture(ctx context.Context) (int, error) {
	candidates, err := s.repo.FindAutoMissed(ctx)
	if err != nil {
		return 0, fmt.Errorf("find auto-missed appointments: %w", err)
	}

	now := s.now().In(s.loc)

	restored := 0
	for _, appt := range candidates {
		startAt, err := booking.ClockAt(appt.Date, appt.StartTime, s.loc)
		if err != nil {
			log.Printf("appointment %s has malformed start time: %v", appt.ID, err)
			continue
		}
		if !startAt.After(now) {
			continue
		}

		updated, err := s.repo.TransitionStatus(ctx, appt.ID, booking.StatusMissed, booking.StatusScheduled, false)
		if err != nil {
			if errors.Is(err, booking.ErrAppointmentNotFound) {
				continue
			}
			log.Printf("restore appointment %s: %v", appt.ID, err)
			continue
		}
		restored++

		s.notifyBoth(ctx, updated, notify.KindRestored,
			"Appointment Restored",
			fmt.Sprintf("Your appointment for %s at %s was incorrectly cancelled and has been restored.", updated.Date.Format(booking.DateLayout), updated.StartTime),
			fmt.Sprintf("The appointment for %s at %s was incorrectly cancelled and has been restored.", updated.Date.Format(booking.DateLayout), updated.StartTime),
		)
	}

	return restored, nil
}

// Register wires the sweeps onto a scheduler: recovery once at startup,
// then the three periodic passes.
func (s *Sweeper) Register(sched *Scheduler, expiryEvery, missedEvery, reminderEvery time.Duration) {
	sched.AddStartup("restore-future", func(ctx context.Context) error {
		n, err := s.RestoreFuture(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("restored %d future appointments", n)
		}
		return nil
	})
	sched.Add("expire-overdue", expiryEvery, s.ExpireOverdue)
	sched.Add("mark-missed", missedEvery, s.MarkMissed)
	sched.Add("send-reminders", reminderEvery, s.SendReminders)
}

func (s *Sweeper) notifyMissed(ctx context.Context, appt *booking.Appointment) {
	s.notifyBoth(ctx, appt, notify.KindMissed,
		"Appointment Missed",
		fmt.Sprintf("Your appointment for %s at %s was marked as missed.", appt.Date.Format(booking.DateLayout), appt.StartTime),
		fmt.Sprintf("The appointment for %s at %s was marked as missed.", appt.Date.Format(booking.DateLayout), appt.StartTime),
	)
}

// notifyBoth enqueues the customer and business copies. The status write
// has already committed by the time this runs; failures are logged and
// swallowed so a slow broker can never block a transition.
func (s *Sweeper) notifyBoth(ctx context.Context, appt *booking.Appointment, kind, subject, customerBody, businessBody string) {
	customer, err := s.repo.GetAccount(ctx, appt.CustomerID)
	if err != nil {
		log.Printf("load customer %s for notification: %v", appt.CustomerID, err)
	} else if customer.Email != "" {
		if err := s.notifier.Notify(ctx, notify.Message{
			Recipient:     customer.Email,
			Subject:       subject,
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
		Subject:       subject,
		Body:          businessBody,
		Kind:          kind,
		AppointmentID: appt.ID,
	}); err != nil {
		log.Printf("notify business for appointment %s: %v", appt.ID, err)
	}
}
