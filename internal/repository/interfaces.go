package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
)

// Sentinel errors shared by all storage backends. Services translate these
// into the API error taxonomy.
var (
	ErrNotFound          = errors.New("record not found")
	ErrSlotFull          = errors.New("slot capacity exhausted")
	ErrMeetingNotPending = errors.New("meeting is not pending")
)

// All repository interfaces in one file
type (
	// SlotRepository is the storage side of the slot ledger. Reserve and
	// Release must be atomic per slot record: under concurrent callers the
	// number of successful reserves never exceeds the slot's capacity.
	SlotRepository interface {
		Create(ctx context.Context, slot *model.Slot) error
		Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Slot, error)
		// Reserve decrements capacity by one iff capacity > 0, in a single
		// conditional update. Returns ErrSlotFull when capacity was already
		// zero and ErrNotFound when the slot does not exist.
		Reserve(ctx context.Context, id uuid.UUID) error
		// Release increments capacity by one. Only used as compensation when
		// a dependent write fails after a successful Reserve.
		Release(ctx context.Context, id uuid.UUID) error
	}

	BookingRepository interface {
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Booking, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Booking, error)
		CreatePrescription(ctx context.Context, prescription *model.Prescription) error
		SetPrescription(ctx context.Context, bookingID, prescriptionID uuid.UUID) error
	}

	// MeetingRepository backs the matching queue. Match must be a single
	// conditional update keyed on status=pending so that two doctors racing
	// to claim the same meeting produce exactly one winner.
	MeetingRepository interface {
		Create(ctx context.Context, meeting *model.Meeting) error
		Get(ctx context.Context, id uuid.UUID) (*model.Meeting, error)
		// FindCandidate returns the first pending meeting whose
		// specialization appears in specs, honoring the slice order first and
		// creation time second, excluding meetings the doctor rejected and
		// meetings claimed by another doctor. Returns (nil, nil) when no
		// candidate exists.
		FindCandidate(ctx context.Context, doctorID uuid.UUID, specs []string) (*model.Meeting, error)
		// GetMatchedForDoctor returns the meeting currently matched to the
		// doctor, or (nil, nil).
		GetMatchedForDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Meeting, error)
		// Match transitions a pending meeting to matched with the given
		// doctor. Returns ErrMeetingNotPending when the conditional update
		// matched no row but the meeting exists.
		Match(ctx context.Context, meetingID, doctorID uuid.UUID) error
		// AddRejection idempotently adds the doctor to the meeting's
		// rejected set; the meeting stays pending.
		AddRejection(ctx context.Context, meetingID, doctorID uuid.UUID) error
		// Delete terminates a meeting outright.
		Delete(ctx context.Context, meetingID uuid.UUID) error
	}

	// UserRepository is a read-mostly view of the external profile store.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	}
)
