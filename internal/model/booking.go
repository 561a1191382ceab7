package model

import (
	"github.com/google/uuid"
)

// Booking links a patient, a doctor and a reserved slot. Bookings are never
// deleted; a prescription reference may be attached or replaced later.
type Booking struct {
	Base
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	SlotID         uuid.UUID  `db:"slot_id" json:"slot_id"`
	PrescriptionID *uuid.UUID `db:"prescription_id" json:"prescription_id,omitempty"`
}

type Medicine struct {
	Name    string `json:"name" binding:"required"`
	Details string `json:"details"`
}

type Prescription struct {
	Base
	Medicines []Medicine `db:"-" json:"medicines"`
	Comments  string     `db:"comments" json:"comments"`
}

type CreateBookingRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
	SlotID   uuid.UUID `json:"slot_id" binding:"required"`
}

type AddPrescriptionRequest struct {
	BookingID uuid.UUID  `json:"booking_id" binding:"required"`
	Medicines []Medicine `json:"medicines" binding:"required,min=1,dive"`
	Comments  string     `json:"comments" binding:"max=2000"`
}
