package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
)

type meetingRepository struct {
	mu       sync.Mutex
	meetings map[uuid.UUID]*model.Meeting
	// order preserves creation order so equal timestamps still resolve
	// oldest-first.
	order []uuid.UUID
}

func NewMeetingRepository() repository.MeetingRepository {
	return &meetingRepository{meetings: make(map[uuid.UUID]*model.Meeting)}
}

func (r *meetingRepository) Create(ctx context.Context, meeting *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meeting.ID == uuid.Nil {
		meeting.ID = uuid.New()
	}
	meeting.Status = model.MeetingStatusPending
	meeting.CreatedAt = time.Now()
	meeting.RejectedBy = nil

	cp := copyMeeting(meeting)
	r.meetings[meeting.ID] = cp
	r.order = append(r.order, meeting.ID)
	return nil
}

func (r *meetingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyMeeting(meeting), nil
}

func (r *meetingRepository) FindCandidate(ctx context.Context, doctorID uuid.UUID, specs []string) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Specialization order outranks creation time: scan the doctor's list
	// in the order supplied, oldest pending meeting first within each.
	for _, spec := range specs {
		for _, id := range r.order {
			m := r.meetings[id]
			if m.Status != model.MeetingStatusPending || m.Specialization != spec {
				continue
			}
			if m.IsRejectedBy(doctorID) {
				continue
			}
			if m.DoctorID != nil && *m.DoctorID != doctorID {
				continue
			}
			return copyMeeting(m), nil
		}
	}
	return nil, nil
}

func (r *meetingRepository) GetMatchedForDoctor(ctx context.Context, doctorID uuid.UUID) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		m := r.meetings[id]
		if m.Status == model.MeetingStatusMatched && m.DoctorID != nil && *m.DoctorID == doctorID {
			return copyMeeting(m), nil
		}
	}
	return nil, nil
}

func (r *meetingRepository) Match(ctx context.Context, meetingID, doctorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[meetingID]
	if !ok {
		return repository.ErrNotFound
	}
	if meeting.Status != model.MeetingStatusPending {
		return repository.ErrMeetingNotPending
	}
	if meeting.DoctorID != nil && *meeting.DoctorID != doctorID {
		return repository.ErrMeetingNotPending
	}
	if meeting.IsRejectedBy(doctorID) {
		return repository.ErrMeetingNotPending
	}

	id := doctorID
	meeting.Status = model.MeetingStatusMatched
	meeting.DoctorID = &id
	return nil
}

func (r *meetingRepository) AddRejection(ctx context.Context, meetingID, doctorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[meetingID]
	if !ok {
		return repository.ErrNotFound
	}
	if meeting.Status != model.MeetingStatusPending {
		return nil
	}
	if meeting.IsRejectedBy(doctorID) {
		return nil
	}
	meeting.RejectedBy = append(meeting.RejectedBy, doctorID)
	return nil
}

func (r *meetingRepository) Delete(ctx context.Context, meetingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[meetingID]
	if !ok || meeting.Status == model.MeetingStatusTerminated {
		return repository.ErrNotFound
	}
	meeting.Status = model.MeetingStatusTerminated
	return nil
}

func copyMeeting(m *model.Meeting) *model.Meeting {
	cp := *m
	if m.DoctorID != nil {
		id := *m.DoctorID
		cp.DoctorID = &id
	}
	if len(m.RejectedBy) > 0 {
		cp.RejectedBy = append([]uuid.UUID(nil), m.RejectedBy...)
	}
	return &cp
}
