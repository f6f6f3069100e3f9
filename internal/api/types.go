package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookable/booking-engine/internal/booking"
)

type CreateAppointmentRequest struct {
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id"`
	Date       string `json:"date"` // YYYY-MM-DD
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Notes      string `json:"notes,omitempty"`
}

type UpdateAppointmentRequest struct {
	ServiceID *string `json:"service_id,omitempty"`
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Status    *string `json:"status,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	BusinessID    uuid.UUID `json:"business_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	ReminderSent  bool      `json:"reminder_sent"`
	AutoCancelled bool      `json:"auto_cancelled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		CustomerID:    a.CustomerID,
		BusinessID:    a.BusinessID,
		ServiceID:     a.ServiceID,
		Date:          a.Date.Format(booking.DateLayout),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Status:        string(a.Status),
		Notes:         a.Notes,
		ReminderSent:  a.ReminderSent,
		AutoCancelled: a.AutoCancelled,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toAppointmentResponses(appts []booking.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

type UpsertWindowRequest struct {
	BusinessID   string `json:"business_id"`
	DayOfWeek    int    `json:"day_of_week"`
	SpecificDate string `json:"specific_date,omitempty"` // YYYY-MM-DD
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	IsAvailable  *bool  `json:"is_available,omitempty"`
}

type WindowResponse struct {
	ID           uuid.UUID `json:"id"`
	BusinessID   uuid.UUID `json:"business_id"`
	DayOfWeek    int       `json:"day_of_week"`
	SpecificDate string    `json:"specific_date,omitempty"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	IsAvailable  bool      `json:"is_available"`
}

func toWindowResponse(w *booking.AvailabilityWindow) WindowResponse {
	resp := WindowResponse{
		ID:          w.ID,
		BusinessID:  w.BusinessID,
		DayOfWeek:   w.DayOfWeek,
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
		IsAvailable: w.IsAvailable,
	}
	if w.SpecificDate != nil {
		resp.SpecificDate = w.SpecificDate.Format(booking.DateLayout)
	}
	return resp
}

type MessageResponse struct {
	Message string `json:"message"`
	Count   *int   `json:"count,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
