package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

func createSlotHandler(catalog *booking.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated principal")
			return
		}

		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		// Vets publish into their own catalog; only admins may target another.
		vetID := actor.ID
		if req.VetID != "" {
			parsed, err := uuid.Parse(req.VetID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_vet_id", "vet_id must be a valid UUID")
				return
			}
			vetID = parsed
		}
		switch {
		case actor.Role == booking.RoleAdmin:
		case actor.Role == booking.RoleVet && vetID == actor.ID:
		default:
			writeError(w, http.StatusForbidden, "forbidden", "only the veterinarian may publish slots in their catalog")
			return
		}

		slot, err := catalog.CreateSlot(r.Context(), vetID, req.StartTime, req.EndTime, booking.SlotMode(req.Mode), req.Capacity)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(*slot))
	}
}

func listSlotsHandler(catalog *booking.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vet_id", "vetID must be a valid UUID")
			return
		}

		from, err := parseTimeParam(r, "from")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339 or YYYY-MM-DD")
			return
		}
		to, err := parseTimeParam(r, "to")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339 or YYYY-MM-DD")
			return
		}

		slots, err := catalog.ListSlots(r.Context(), vetID, from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteSlotHandler(catalog *booking.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated principal")
			return
		}

		slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slotID must be a valid UUID")
			return
		}

		if err := catalog.DeleteSlot(r.Context(), actor, slotID); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
