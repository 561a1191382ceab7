package meeting

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
	"github.com/medimeet/consult-api/internal/repository/memory"
	"github.com/medimeet/consult-api/pkg/auth"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
	"github.com/medimeet/consult-api/pkg/messaging"
	"github.com/medimeet/consult-api/pkg/metrics"
)

type brokerFixture struct {
	broker *Broker
	users  repository.UserRepository
}

func newBrokerFixture(t *testing.T) *brokerFixture {
	t.Helper()

	meetings := memory.NewMeetingRepository()
	users := memory.NewUserRepository()
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "consult", "api")
	queue := NewQueue(meetings, &messaging.NopBroker{}, m)
	creds := auth.NewJWTService(auth.Config{
		AccessSecret: "access-secret",
		CallSecret:   "call-secret",
		APIKey:       "media-api-key",
	})

	return &brokerFixture{
		broker: NewBroker(queue, users, creds, &messaging.NopBroker{}, m),
		users:  users,
	}
}

func (fx *brokerFixture) addDoctor(t *testing.T, specs ...string) uuid.UUID {
	t.Helper()
	doctor := &model.User{
		Name:            "Dr. Example",
		Email:           "doctor@example.com",
		Role:            model.RoleDoctor,
		Specializations: specs,
	}
	require.NoError(t, fx.users.Create(context.Background(), doctor))
	return doctor.ID
}

func TestRequestConsultationIssuesCredential(t *testing.T) {
	fx := newBrokerFixture(t)
	patientID := uuid.New()

	meeting, cred, err := fx.broker.RequestConsultation(context.Background(), patientID, model.RolePatient, "cardiology")
	require.NoError(t, err)
	assert.Equal(t, model.MeetingStatusPending, meeting.Status)
	require.NotNil(t, cred)
	assert.Equal(t, meeting.ID, cred.MeetingID)
	assert.Equal(t, "media-api-key", cred.APIKey)
	assert.NotEmpty(t, cred.Token)
}

func TestRequestConsultationDoctorForbidden(t *testing.T) {
	fx := newBrokerFixture(t)

	_, _, err := fx.broker.RequestConsultation(context.Background(), uuid.New(), model.RoleDoctor, "cardiology")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestPollOffersMatchingMeeting(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	doctorID := fx.addDoctor(t, "cardiology")

	meeting, _, err := fx.broker.RequestConsultation(ctx, uuid.New(), model.RolePatient, "cardiology")
	require.NoError(t, err)

	resp, err := fx.broker.Poll(ctx, doctorID, model.RoleDoctor)
	require.NoError(t, err)
	assert.True(t, resp.HasMeeting)
	require.NotNil(t, resp.MeetingID)
	assert.Equal(t, meeting.ID, *resp.MeetingID)
	assert.Equal(t, "cardiology", resp.Specialization)
	require.NotNil(t, resp.Credential)
	assert.NotEmpty(t, resp.Credential.Token)
}

func TestPollNoMeeting(t *testing.T) {
	fx := newBrokerFixture(t)
	doctorID := fx.addDoctor(t, "cardiology")

	resp, err := fx.broker.Poll(context.Background(), doctorID, model.RoleDoctor)
	require.NoError(t, err)
	assert.False(t, resp.HasMeeting)
	assert.Nil(t, resp.MeetingID)
}

func TestPollPatientForbidden(t *testing.T) {
	fx := newBrokerFixture(t)

	_, err := fx.broker.Poll(context.Background(), uuid.New(), model.RolePatient)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

// Polling never claims the meeting: until Accept lands, every eligible
// doctor keeps seeing the same offer.
func TestPollDoesNotCommit(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	doctorA := fx.addDoctor(t, "cardiology")
	doctorB := fx.addDoctor(t, "cardiology")

	meeting, _, err := fx.broker.RequestConsultation(ctx, uuid.New(), model.RolePatient, "cardiology")
	require.NoError(t, err)

	for _, id := range []uuid.UUID{doctorA, doctorB, doctorA} {
		resp, err := fx.broker.Poll(ctx, id, model.RoleDoctor)
		require.NoError(t, err)
		require.NotNil(t, resp.MeetingID)
		assert.Equal(t, meeting.ID, *resp.MeetingID)
	}
}

func TestAcceptClaimsMeeting(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	doctorID := fx.addDoctor(t, "cardiology")

	meeting, _, err := fx.broker.RequestConsultation(ctx, uuid.New(), model.RolePatient, "cardiology")
	require.NoError(t, err)

	matched, err := fx.broker.Accept(ctx, doctorID, model.RoleDoctor, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MeetingStatusMatched, matched.Status)
	require.NotNil(t, matched.DoctorID)
	assert.Equal(t, doctorID, *matched.DoctorID)
}

// Of two doctors racing on Accept, exactly one wins; the other sees a
// conflict and the meeting ends up matched to exactly one of them.
func TestAcceptConcurrentSingleWinner(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()

	doctors := make([]uuid.UUID, 8)
	for i := range doctors {
		doctors[i] = fx.addDoctor(t, "cardiology")
	}

	meeting, _, err := fx.broker.RequestConsultation(ctx, uuid.New(), model.RolePatient, "cardiology")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, len(doctors))
	for _, id := range doctors {
		wg.Add(1)
		go func(doctorID uuid.UUID) {
			defer wg.Done()
			_, err := fx.broker.Accept(ctx, doctorID, model.RoleDoctor, meeting.ID)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.Is(err, apperrors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, len(doctors)-1, conflicts)
}

// A doctor who rejected a meeting cannot claim it afterwards; to them it is
// simply not there.
func TestAcceptAfterRejectNotFound(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	doctorID := fx.addDoctor(t, "cardiology")

	meeting, _, err := fx.broker.RequestConsultation(ctx, uuid.New(), model.RolePatient, "cardiology")
	require.NoError(t, err)

	require.NoError(t, fx.broker.Reject(ctx, doctorID, model.RoleDoctor, meeting.ID))

	_, err = fx.broker.Accept(ctx, doctorID, model.RoleDoctor, meeting.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestAcceptUnknownMeeting(t *testing.T) {
	fx := newBrokerFixture(t)
	doctorID := fx.addDoctor(t, "cardiology")

	_, err := fx.broker.Accept(context.Background(), doctorID, model.RoleDoctor, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

// A doctor holding a matched meeting gets it straight back from Poll, so a
// reconnecting client converges on its assignment.
func TestPollReturnsMatchedMeeting(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	doctorID := fx.addDoctor(t, "cardiology")

	meeting, _, err := fx.broker.RequestConsultation(ctx, uuid.New(), model.RolePatient, "cardiology")
	require.NoError(t, err)
	_, err = fx.broker.Accept(ctx, doctorID, model.RoleDoctor, meeting.ID)
	require.NoError(t, err)

	resp, err := fx.broker.Poll(ctx, doctorID, model.RoleDoctor)
	require.NoError(t, err)
	assert.True(t, resp.HasMeeting)
	require.NotNil(t, resp.MeetingID)
	assert.Equal(t, meeting.ID, *resp.MeetingID)
}

// After a rejection the meeting stays pending and another doctor with the
// same specialization can still take it.
func TestRejectLeavesMeetingForOthers(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	rejecting := fx.addDoctor(t, "cardiology")
	accepting := fx.addDoctor(t, "cardiology")

	meeting, _, err := fx.broker.RequestConsultation(ctx, uuid.New(), model.RolePatient, "cardiology")
	require.NoError(t, err)

	require.NoError(t, fx.broker.Reject(ctx, rejecting, model.RoleDoctor, meeting.ID))

	resp, err := fx.broker.Poll(ctx, rejecting, model.RoleDoctor)
	require.NoError(t, err)
	assert.False(t, resp.HasMeeting)

	matched, err := fx.broker.Accept(ctx, accepting, model.RoleDoctor, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, accepting, *matched.DoctorID)
}

func TestJoinParticipantsOnly(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	doctorID := fx.addDoctor(t, "cardiology")
	patientID := uuid.New()

	meeting, _, err := fx.broker.RequestConsultation(ctx, patientID, model.RolePatient, "cardiology")
	require.NoError(t, err)
	_, err = fx.broker.Accept(ctx, doctorID, model.RoleDoctor, meeting.ID)
	require.NoError(t, err)

	for _, id := range []uuid.UUID{patientID, doctorID} {
		cred, err := fx.broker.Join(ctx, id, meeting.ID)
		require.NoError(t, err)
		assert.Equal(t, meeting.ID, cred.MeetingID)
		assert.NotEmpty(t, cred.Token)
	}

	_, err = fx.broker.Join(ctx, uuid.New(), meeting.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestJoinTerminatedMeetingNotFound(t *testing.T) {
	fx := newBrokerFixture(t)
	ctx := context.Background()
	patientID := uuid.New()

	meeting, _, err := fx.broker.RequestConsultation(ctx, patientID, model.RolePatient, "cardiology")
	require.NoError(t, err)
	require.NoError(t, fx.broker.queue.Delete(ctx, patientID, meeting.ID))

	_, err = fx.broker.Join(ctx, patientID, meeting.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
