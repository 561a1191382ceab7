package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
	"github.com/medimeet/consult-api/pkg/messaging"
	"github.com/medimeet/consult-api/pkg/metrics"
)

// Queue holds pending consultation requests keyed by specialization.
// Rejections are tracked per meeting: a doctor who declines a meeting never
// sees it again while it stays pending, but the meeting remains visible to
// every other eligible doctor.
type Queue struct {
	repo    repository.MeetingRepository
	broker  messaging.Broker
	metrics *metrics.Metrics
}

func NewQueue(repo repository.MeetingRepository, broker messaging.Broker, m *metrics.Metrics) *Queue {
	return &Queue{
		repo:    repo,
		broker:  broker,
		metrics: m,
	}
}

// Enqueue creates a pending meeting with an empty rejection set.
func (q *Queue) Enqueue(ctx context.Context, patientID uuid.UUID, specialization string) (*model.Meeting, error) {
	if specialization == "" {
		return nil, apperrors.BadRequest("specialization is required", nil)
	}

	meeting := &model.Meeting{
		PatientID:      patientID,
		Specialization: specialization,
	}
	if err := q.repo.Create(ctx, meeting); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("enqueue meeting: %w", err))
	}

	q.metrics.PendingMeetings.Inc()
	_ = q.broker.Publish(ctx, messaging.ChannelMeetingRequested, meeting)

	return meeting, nil
}

// FindCandidate returns at most one pending meeting for the doctor. The
// caller-supplied specialization order ranks the scan; within one
// specialization the oldest request is offered first. Returns (nil, nil)
// when nothing qualifies.
func (q *Queue) FindCandidate(ctx context.Context, doctorID uuid.UUID, specs []string) (*model.Meeting, error) {
	meeting, err := q.repo.FindCandidate(ctx, doctorID, specs)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("find candidate: %w", err))
	}
	return meeting, nil
}

// MarkRejected idempotently adds the doctor to the meeting's rejection set.
// The meeting stays pending and visible to other doctors.
func (q *Queue) MarkRejected(ctx context.Context, doctorID, meetingID uuid.UUID) error {
	err := q.repo.AddRejection(ctx, meetingID, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("meeting", err)
		}
		return apperrors.Internal(fmt.Errorf("mark rejected: %w", err))
	}
	q.metrics.RejectionsTotal.Inc()
	return nil
}

// Delete terminates a meeting outright. Call credentials already issued for
// it are not revoked; holders simply find the meeting gone.
func (q *Queue) Delete(ctx context.Context, callerID, meetingID uuid.UUID) error {
	meeting, err := q.repo.Get(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("meeting", err)
		}
		return apperrors.Internal(fmt.Errorf("get meeting: %w", err))
	}

	if meeting.PatientID != callerID {
		return apperrors.Forbidden("only the requesting patient can delete a meeting", nil)
	}

	wasPending := meeting.Status == model.MeetingStatusPending

	if err := q.repo.Delete(ctx, meetingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("meeting", err)
		}
		return apperrors.Internal(fmt.Errorf("delete meeting: %w", err))
	}

	if wasPending {
		q.metrics.PendingMeetings.Dec()
	}
	_ = q.broker.Publish(ctx, messaging.ChannelMeetingDeleted, meeting.ID)

	return nil
}

// Get loads a meeting by ID.
func (q *Queue) Get(ctx context.Context, meetingID uuid.UUID) (*model.Meeting, error) {
	meeting, err := q.repo.Get(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("meeting", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("get meeting: %w", err))
	}
	return meeting, nil
}
