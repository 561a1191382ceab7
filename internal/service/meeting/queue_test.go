package meeting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
	"github.com/medimeet/consult-api/internal/repository/memory"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
	"github.com/medimeet/consult-api/pkg/messaging"
	"github.com/medimeet/consult-api/pkg/metrics"
)

func newTestQueue(t *testing.T) (*Queue, repository.MeetingRepository) {
	t.Helper()
	repo := memory.NewMeetingRepository()
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "consult", "api")
	return NewQueue(repo, &messaging.NopBroker{}, m), repo
}

func TestEnqueueCreatesPendingMeeting(t *testing.T) {
	q, _ := newTestQueue(t)
	patientID := uuid.New()

	meeting, err := q.Enqueue(context.Background(), patientID, "cardiology")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, meeting.ID)
	assert.Equal(t, patientID, meeting.PatientID)
	assert.Equal(t, "cardiology", meeting.Specialization)
	assert.Equal(t, model.MeetingStatusPending, meeting.Status)
	assert.Empty(t, meeting.RejectedBy)
	assert.Nil(t, meeting.DoctorID)
}

func TestEnqueueRequiresSpecialization(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(context.Background(), uuid.New(), "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

// The doctor's specialization order outranks request age: an older request
// for a later-listed specialization loses to a newer one for an
// earlier-listed specialization.
func TestFindCandidateSpecializationOrderWins(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	older, err := q.Enqueue(ctx, uuid.New(), "dermatology")
	require.NoError(t, err)
	newer, err := q.Enqueue(ctx, uuid.New(), "cardiology")
	require.NoError(t, err)

	got, err := q.FindCandidate(ctx, uuid.New(), []string{"cardiology", "dermatology"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	got, err = q.FindCandidate(ctx, uuid.New(), []string{"dermatology", "cardiology"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, older.ID, got.ID)
}

func TestFindCandidateOldestFirstWithinSpecialization(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, uuid.New(), "cardiology")
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, uuid.New(), "cardiology")
	require.NoError(t, err)

	got, err := q.FindCandidate(ctx, uuid.New(), []string{"cardiology"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
}

func TestFindCandidateNoMatch(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, uuid.New(), "cardiology")
	require.NoError(t, err)

	got, err := q.FindCandidate(ctx, uuid.New(), []string{"dermatology"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindCandidateSkipsRejected(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	doctorID := uuid.New()

	meeting, err := q.Enqueue(ctx, uuid.New(), "cardiology")
	require.NoError(t, err)
	require.NoError(t, q.MarkRejected(ctx, doctorID, meeting.ID))

	got, err := q.FindCandidate(ctx, doctorID, []string{"cardiology"})
	require.NoError(t, err)
	assert.Nil(t, got)

	// Other doctors still see it.
	got, err = q.FindCandidate(ctx, uuid.New(), []string{"cardiology"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, meeting.ID, got.ID)
}

// Repeated rejections record the doctor exactly once.
func TestMarkRejectedIdempotent(t *testing.T) {
	q, repo := newTestQueue(t)
	ctx := context.Background()
	doctorID := uuid.New()

	meeting, err := q.Enqueue(ctx, uuid.New(), "cardiology")
	require.NoError(t, err)

	require.NoError(t, q.MarkRejected(ctx, doctorID, meeting.ID))
	require.NoError(t, q.MarkRejected(ctx, doctorID, meeting.ID))

	stored, err := repo.Get(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{doctorID}, stored.RejectedBy)
	assert.Equal(t, model.MeetingStatusPending, stored.Status)
}

func TestMarkRejectedUnknownMeeting(t *testing.T) {
	q, _ := newTestQueue(t)

	err := q.MarkRejected(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteOnlyByRequestingPatient(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	patientID := uuid.New()

	meeting, err := q.Enqueue(ctx, patientID, "cardiology")
	require.NoError(t, err)

	err = q.Delete(ctx, uuid.New(), meeting.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	require.NoError(t, q.Delete(ctx, patientID, meeting.ID))

	stored, err := q.Get(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MeetingStatusTerminated, stored.Status)

	// A terminated meeting never surfaces to polling doctors again.
	got, err := q.FindCandidate(ctx, uuid.New(), []string{"cardiology"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteUnknownMeeting(t *testing.T) {
	q, _ := newTestQueue(t)

	err := q.Delete(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
