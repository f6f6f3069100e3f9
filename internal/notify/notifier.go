// Package notify models outbound messaging as a fire-and-forget producer.
// The engine only enqueues; delivery belongs to a downstream consumer and
// no delivery guarantee flows back into appointment state.
package notify

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Message kinds, one per appointment lifecycle event.
const (
	KindBookingConfirmed = "booking_confirmed"
	KindBookingUpdated   = "booking_updated"
	KindBookingCancelled = "booking_cancelled"
	KindStatusChanged    = "status_changed"
	KindMissed           = "appointment_missed"
	KindReminder         = "appointment_reminder"
	KindRestored         = "appointment_restored"
)

type Message struct {
	Recipient     string
	Subject       string
	Body          string
	Kind          string
	AppointmentID uuid.UUID
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the process log. Used when no broker is
// configured and in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, msg Message) error {
	log.Printf("notify kind=%s to=%s subject=%q appointment=%s", msg.Kind, msg.Recipient, msg.Subject, msg.AppointmentID)
	return nil
}
