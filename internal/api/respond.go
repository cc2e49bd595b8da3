package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the sentinel errors of the booking package to stable
// error codes. Anything unrecognized is an internal fault.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	// Missing references
	case errors.Is(err, booking.ErrPetNotFound):
		writeError(w, http.StatusNotFound, "pet_not_found", err.Error())
	case errors.Is(err, booking.ErrVetNotFound):
		writeError(w, http.StatusNotFound, "veterinarian_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())

	// Validation
	case errors.Is(err, booking.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, booking.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, "invalid_capacity", err.Error())
	case errors.Is(err, booking.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
	case errors.Is(err, booking.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "invalid_type", err.Error())
	case errors.Is(err, booking.ErrInvalidReason):
		writeError(w, http.StatusBadRequest, "invalid_reason", err.Error())
	case errors.Is(err, booking.ErrModeMismatch):
		writeError(w, http.StatusBadRequest, "mode_mismatch", err.Error())
	case errors.Is(err, booking.ErrSlotInPast):
		writeError(w, http.StatusBadRequest, "slot_in_past", err.Error())
	case errors.Is(err, booking.ErrSlotVetMismatch):
		writeError(w, http.StatusBadRequest, "slot_vet_mismatch", err.Error())
	case errors.Is(err, booking.ErrMissingDate):
		writeError(w, http.StatusBadRequest, "missing_date", err.Error())
	case errors.Is(err, booking.ErrDateInPast):
		writeError(w, http.StatusBadRequest, "date_in_past", err.Error())

	// Capacity
	case errors.Is(err, booking.ErrSlotFull):
		writeError(w, http.StatusConflict, "slot_full", err.Error())
	case errors.Is(err, booking.ErrSlotBusy):
		writeError(w, http.StatusConflict, "slot_busy", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrSlotHasBookings):
		writeError(w, http.StatusConflict, "slot_has_bookings", err.Error())

	// State machine
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, booking.ErrAlreadyTerminal):
		writeError(w, http.StatusConflict, "already_terminal", err.Error())

	// Authorization
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected internal error")
	}
}
