package booking

import "errors"

// Validation
var (
	ErrInvalidRange    = errors.New("end time must be after start time")
	ErrInvalidCapacity = errors.New("capacity must be at least 1")
	ErrInvalidMode     = errors.New("unknown slot mode")
	ErrInvalidType     = errors.New("unknown consultation type")
	ErrInvalidReason   = errors.New("reason must be between 5 and 500 characters")
	ErrModeMismatch    = errors.New("slot does not accept this consultation type")
	ErrSlotInPast      = errors.New("slot start time is in the past")
	ErrSlotVetMismatch = errors.New("slot does not belong to this veterinarian")
	ErrMissingDate     = errors.New("appointment date is required when no slot is chosen")
	ErrDateInPast      = errors.New("appointment date must be in the future")
)

// Capacity
var (
	ErrSlotFull        = errors.New("slot has no available spots")
	ErrSlotHasBookings = errors.New("slot has active bookings and cannot be deleted")
	ErrSlotBusy        = errors.New("slot is currently being booked, please retry")
)

// State machine
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyTerminal   = errors.New("appointment is already in a terminal state")
)

// Authorization
var ErrForbidden = errors.New("actor is not allowed to perform this action")

// Missing references
var (
	ErrPetNotFound         = errors.New("pet not found")
	ErrVetNotFound         = errors.New("veterinarian not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)
