package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

func bookAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated principal")
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		petID, err := uuid.Parse(req.PetID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_pet_id", "pet_id must be a valid UUID")
			return
		}
		vetID, err := uuid.Parse(req.VeterinarianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_veterinarian_id", "veterinarian_id must be a valid UUID")
			return
		}

		var slotID *uuid.UUID
		if req.SlotID != nil && *req.SlotID != "" {
			parsed, err := uuid.Parse(*req.SlotID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
				return
			}
			slotID = &parsed
		}

		var idemKey *string
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			idemKey = &key
		}

		appt, err := engine.BookAppointment(r.Context(), actor, booking.BookingRequest{
			PetID:           petID,
			VeterinarianID:  vetID,
			SlotID:          slotID,
			Type:            booking.AppointmentType(req.Type),
			Reason:          req.Reason,
			AppointmentDate: req.AppointmentDate,
			IdempotencyKey:  idemKey,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated principal")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := engine.CancelAppointment(r.Context(), actor, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentStatusHandler(lifecycle *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated principal")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		target := booking.AppointmentStatus(req.Status)
		switch target {
		case booking.StatusConfirmed, booking.StatusCompleted, booking.StatusCancelled, booking.StatusNoShow:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be confirmed, completed, cancelled, or no_show")
			return
		}

		appt, err := lifecycle.UpdateStatus(r.Context(), actor, id, target, booking.StatusChange{
			Notes:           req.Notes,
			Prescription:    req.Prescription,
			RejectionReason: req.RejectionReason,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(lifecycle *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated principal")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := lifecycle.GetAppointment(r.Context(), actor, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(lifecycle *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated principal")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		appts, err := lifecycle.ListAppointments(r.Context(), actor, limit, offset)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
