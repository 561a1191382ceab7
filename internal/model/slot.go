package model

import (
	"github.com/google/uuid"
)

// Slot is a bookable time window for a doctor with finite remaining
// capacity. Capacity is only ever mutated through the slot ledger's atomic
// reserve/release operations and never goes negative.
type Slot struct {
	Base
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctor_id"`
	TimeInterval string    `db:"time_interval" json:"time_interval"`
	Capacity     int       `db:"capacity" json:"capacity"`
}

type CreateSlotRequest struct {
	TimeInterval string `json:"time_interval" binding:"required,timeinterval"`
	Capacity     int    `json:"capacity" binding:"required,min=1"`
}
