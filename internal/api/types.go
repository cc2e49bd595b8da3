package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

type CreateSlotRequest struct {
	VetID     string    `json:"vet_id,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Mode      string    `json:"mode"`
	Capacity  int       `json:"capacity"`
}

type SlotResponse struct {
	ID             uuid.UUID `json:"id"`
	VeterinarianID uuid.UUID `json:"veterinarian_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Mode           string    `json:"mode"`
	Capacity       int       `json:"capacity"`
	BookedCount    int       `json:"booked_count"`
	AvailableSpots int       `json:"available_spots"`
}

func toSlotResponse(s booking.Slot) SlotResponse {
	return SlotResponse{
		ID:             s.ID,
		VeterinarianID: s.VeterinarianID,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Mode:           string(s.Mode),
		Capacity:       s.Capacity,
		BookedCount:    s.BookedCount,
		AvailableSpots: s.AvailableSpots(),
	}
}

type BookAppointmentRequest struct {
	PetID           string     `json:"pet_id"`
	VeterinarianID  string     `json:"veterinarian_id"`
	SlotID          *string    `json:"slot_id,omitempty"`
	Type            string     `json:"type"`
	Reason          *string    `json:"reason,omitempty"`
	AppointmentDate *time.Time `json:"appointment_date,omitempty"`
}

type UpdateStatusRequest struct {
	Status          string  `json:"status"`
	Notes           *string `json:"notes,omitempty"`
	Prescription    *string `json:"prescription,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PetID              uuid.UUID  `json:"pet_id"`
	OwnerID            uuid.UUID  `json:"owner_id"`
	VeterinarianID     uuid.UUID  `json:"veterinarian_id"`
	SlotID             *uuid.UUID `json:"slot_id,omitempty"`
	AppointmentDate    time.Time  `json:"appointment_date"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	Reason             *string    `json:"reason,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	Prescription       *string    `json:"prescription,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	MeetingLink        *string    `json:"meeting_link,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PetID:              a.PetID,
		OwnerID:            a.OwnerID,
		VeterinarianID:     a.VeterinarianID,
		SlotID:             a.SlotID,
		AppointmentDate:    a.AppointmentDate,
		Type:               string(a.Type),
		Status:             string(a.Status),
		Reason:             a.Reason,
		Notes:              a.Notes,
		Prescription:       a.Prescription,
		CancellationReason: a.CancellationReason,
		MeetingLink:        a.MeetingLink,
		CreatedAt:          a.CreatedAt,
	}
}

type VetResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	Specialization       *string         `json:"specialization,omitempty"`
	ClinicAddress        *string         `json:"clinic_address,omitempty"`
	TeleconsultAvailable bool            `json:"teleconsult_available"`
	ConsultationFee      decimal.Decimal `json:"consultation_fee"`
}

type VetAvailabilityResponse struct {
	Veterinarian   VetResponse    `json:"veterinarian"`
	AvailableSlots []SlotResponse `json:"available_slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
