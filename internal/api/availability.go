package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookable/booking-engine/internal/booking"
)

func listAvailabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := uuid.Parse(chi.URLParam(r, "businessID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_business_id", "businessID must be a valid UUID")
			return
		}

		windows, err := svc.ListAvailability(r.Context(), businessID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for i := range windows {
			resp = append(resp, toWindowResponse(&windows[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := uuid.Parse(chi.URLParam(r, "businessID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_business_id", "businessID must be a valid UUID")
			return
		}

		date, err := time.Parse(booking.DateLayout, chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
			return
		}

		slots, err := svc.Slots(r.Context(), businessID, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		if slots == nil {
			slots = []booking.Slot{}
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

func upsertAvailabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertWindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		businessID, err := uuid.Parse(req.BusinessID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_business_id", "business_id must be a valid UUID")
			return
		}

		in := booking.WindowInput{
			BusinessID:  businessID,
			DayOfWeek:   req.DayOfWeek,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			IsAvailable: true,
		}
		if req.IsAvailable != nil {
			in.IsAvailable = *req.IsAvailable
		}
		if req.SpecificDate != "" {
			d, err := time.Parse(booking.DateLayout, req.SpecificDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "specific_date must be formatted YYYY-MM-DD")
				return
			}
			in.SpecificDate = &d
			in.DayOfWeek = int(d.Weekday())
		}

		window, err := svc.SetAvailability(r.Context(), in)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(window))
	}
}

func deleteAvailabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteAvailability(r.Context(), id); err != nil {
			if errors.Is(err, booking.ErrWindowNotFound) {
				writeError(w, http.StatusNotFound, "window_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "availability removed"})
	}
}
