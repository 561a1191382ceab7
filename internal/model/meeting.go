package model

import (
	"time"

	"github.com/google/uuid"
)

type MeetingStatus string

const (
	MeetingStatusPending    MeetingStatus = "pending"
	MeetingStatusMatched    MeetingStatus = "matched"
	MeetingStatusTerminated MeetingStatus = "terminated"
)

// Meeting is an ad-hoc video-consultation request keyed by specialization.
//
// State machine: pending --accept--> matched, pending --delete--> terminated,
// matched --end (external)--> terminated. Reject keeps the meeting pending and
// grows RejectedBy; once matched, DoctorID is fixed.
type Meeting struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	PatientID      uuid.UUID     `db:"patient_id" json:"patient_id"`
	DoctorID       *uuid.UUID    `db:"doctor_id" json:"doctor_id,omitempty"`
	Specialization string        `db:"specialization" json:"specialization"`
	Status         MeetingStatus `db:"status" json:"status"`
	RejectedBy     []uuid.UUID   `db:"-" json:"rejected_by,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// IsRejectedBy reports whether the doctor previously declined this meeting.
func (m *Meeting) IsRejectedBy(doctorID uuid.UUID) bool {
	for _, id := range m.RejectedBy {
		if id == doctorID {
			return true
		}
	}
	return false
}

type CreateMeetingRequest struct {
	Specialization string `json:"specialization" binding:"required"`
}

// CallCredential is a short-lived token scoped to one user and one meeting,
// used to authenticate into the external media transport. Credentials already
// issued are not revoked when a meeting is deleted; clients discover the
// deletion on their next poll.
type CallCredential struct {
	MeetingID uuid.UUID `json:"meeting_id"`
	APIKey    string    `json:"api_key"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HeartbeatResponse is the payload a doctor's client receives on each poll.
type HeartbeatResponse struct {
	HasMeeting     bool            `json:"has_meeting"`
	MeetingID      *uuid.UUID      `json:"meeting_id,omitempty"`
	Specialization string          `json:"specialization,omitempty"`
	Credential     *CallCredential `json:"credential,omitempty"`
}
