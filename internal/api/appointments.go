package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookable/booking-engine/internal/booking"
	"github.com/bookable/booking-engine/internal/sweep"
)

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}
		date, err := time.Parse(booking.DateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
			return
		}

		appt, err := svc.Create(r.Context(), booking.CreateInput{
			CustomerID: customerID,
			ServiceID:  serviceID,
			Date:       date,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Notes:      req.Notes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("customer_id"); v != "" {
			customerID, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
				return
			}
			appts, err := svc.ListByCustomer(r.Context(), customerID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
			return
		}

		if v := r.URL.Query().Get("business_id"); v != "" {
			businessID, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_business_id", "business_id must be a valid UUID")
				return
			}
			appts, err := svc.ListByBusiness(r.Context(), businessID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
			return
		}

		writeError(w, http.StatusBadRequest, "missing_filter", "customer_id or business_id query parameter is required")
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var in booking.UpdateInput
		if req.ServiceID != nil {
			serviceID, err := uuid.Parse(*req.ServiceID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
				return
			}
			in.ServiceID = &serviceID
		}
		if req.Date != nil {
			date, err := time.Parse(booking.DateLayout, *req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
				return
			}
			in.Date = &date
		}
		if req.Status != nil {
			status := booking.AppointmentStatus(*req.Status)
			in.Status = &status
		}
		in.StartTime = req.StartTime
		in.EndTime = req.EndTime
		in.Notes = req.Notes

		appt, err := svc.Update(r.Context(), id, in)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if _, err := svc.Cancel(r.Context(), id); err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "appointment cancelled"})
	}
}

// restoreFutureHandler triggers the recovery sweep on demand, the manual
// escape hatch for appointments wrongly auto-marked missed.
func restoreFutureHandler(sweeper *sweep.Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := sweeper.RestoreFuture(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{
			Message: "restored future appointments",
			Count:   &count,
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, booking.ErrOutsideAvailability):
		writeError(w, http.StatusBadRequest, "outside_availability", err.Error())
	case errors.Is(err, booking.ErrDurationMismatch):
		writeError(w, http.StatusBadRequest, "duration_mismatch", err.Error())
	case errors.Is(err, booking.ErrInvalidTimeRange),
		errors.Is(err, booking.ErrInvalidStatus),
		errors.Is(err, booking.ErrInvalidClock):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
