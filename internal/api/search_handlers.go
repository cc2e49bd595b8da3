package api

import (
	"net/http"
	"time"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

// searchVetsHandler is the advisory discovery read. A slot returned here is a
// hint, not a hold; booking re-validates everything.
func searchVetsHandler(search *booking.SearchIndex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var filter booking.SearchFilter

		if v := q.Get("specialization"); v != "" {
			filter.Specialization = &v
		}
		if v := q.Get("location"); v != "" {
			filter.Location = &v
		}
		if v := q.Get("date"); v != "" {
			date, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			filter.Date = &date
		}
		if v := q.Get("teleconsult_only"); v == "true" || v == "1" {
			filter.TeleconsultOnly = true
		}
		if v := q.Get("type"); v != "" {
			t := booking.AppointmentType(v)
			filter.Type = &t
		}

		results, err := search.SearchVetsWithAvailability(r.Context(), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]VetAvailabilityResponse, 0, len(results))
		for _, res := range results {
			slots := make([]SlotResponse, 0, len(res.AvailableSlots))
			for _, s := range res.AvailableSlots {
				slots = append(slots, toSlotResponse(s))
			}
			resp = append(resp, VetAvailabilityResponse{
				Veterinarian: VetResponse{
					ID:                   res.Veterinarian.ID,
					Name:                 res.Veterinarian.Name,
					Specialization:       res.Veterinarian.Specialization,
					ClinicAddress:        res.Veterinarian.ClinicAddress,
					TeleconsultAvailable: res.Veterinarian.TeleconsultAvailable,
					ConsultationFee:      res.Veterinarian.ConsultationFee,
				},
				AvailableSlots: slots,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
