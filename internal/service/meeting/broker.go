package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/repository"
	"github.com/medimeet/consult-api/pkg/auth"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
	"github.com/medimeet/consult-api/pkg/messaging"
	"github.com/medimeet/consult-api/pkg/metrics"
)

const (
	profileCacheTTL     = 30 * time.Second
	profileCacheCleanup = 5 * time.Minute
)

// Broker is the doctor-facing entry point of the matching queue. Doctors
// discover meetings exclusively through Poll at a client-driven interval;
// the server keeps no per-doctor connection, trading up to one poll
// interval of staleness for a much simpler resource model.
type Broker struct {
	queue   *Queue
	users   repository.UserRepository
	creds   auth.CredentialIssuer
	broker  messaging.Broker
	metrics *metrics.Metrics

	// profiles caches doctor specializations so a steady poll loop costs
	// one profile lookup per TTL window, not one per poll.
	profiles *gocache.Cache
}

func NewBroker(queue *Queue, users repository.UserRepository, creds auth.CredentialIssuer, broker messaging.Broker, m *metrics.Metrics) *Broker {
	return &Broker{
		queue:    queue,
		users:    users,
		creds:    creds,
		broker:   broker,
		metrics:  m,
		profiles: gocache.New(profileCacheTTL, profileCacheCleanup),
	}
}

// RequestConsultation is the patient-side flow: enqueue a pending meeting
// and hand the patient their call credential right away, so they can sit in
// the call while a doctor is found.
func (b *Broker) RequestConsultation(ctx context.Context, patientID uuid.UUID, role model.Role, specialization string) (*model.Meeting, *model.CallCredential, error) {
	if role != model.RolePatient {
		return nil, nil, apperrors.Forbidden("only patients can request consultations", nil)
	}

	meeting, err := b.queue.Enqueue(ctx, patientID, specialization)
	if err != nil {
		return nil, nil, err
	}

	cred, err := b.creds.IssueCallCredential(patientID, meeting.ID)
	if err != nil {
		return nil, nil, apperrors.Internal(fmt.Errorf("issue call credential: %w", err))
	}
	return meeting, cred, nil
}

// Poll answers a doctor's heartbeat. A doctor already holding a matched
// meeting gets that same assignment back without a new scan, so a client
// that rejoins mid-flow converges on its meeting. Otherwise the queue is
// scanned and at most one candidate is offered. Polling never mutates the
// meeting: the offer only commits on Accept.
func (b *Broker) Poll(ctx context.Context, doctorID uuid.UUID, role model.Role) (*model.HeartbeatResponse, error) {
	if role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only doctors can poll for meetings", nil)
	}

	matched, err := b.queue.repo.GetMatchedForDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("get matched meeting: %w", err))
	}
	if matched != nil {
		b.metrics.HeartbeatPolls.WithLabelValues(metrics.OutcomeRejoined).Inc()
		return b.offer(matched, doctorID)
	}

	profile, err := b.doctorProfile(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	candidate, err := b.queue.FindCandidate(ctx, doctorID, profile.Specializations)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		b.metrics.HeartbeatPolls.WithLabelValues(metrics.OutcomeNoMeeting).Inc()
		return &model.HeartbeatResponse{HasMeeting: false}, nil
	}

	b.metrics.HeartbeatPolls.WithLabelValues(metrics.OutcomeOffered).Inc()
	return b.offer(candidate, doctorID)
}

func (b *Broker) offer(meeting *model.Meeting, doctorID uuid.UUID) (*model.HeartbeatResponse, error) {
	cred, err := b.creds.IssueCallCredential(doctorID, meeting.ID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("issue call credential: %w", err))
	}
	return &model.HeartbeatResponse{
		HasMeeting:     true,
		MeetingID:      &meeting.ID,
		Specialization: meeting.Specialization,
		Credential:     cred,
	}, nil
}

// Accept claims a pending meeting for the doctor. The transition is a
// single conditional update keyed on status=pending, so of two racing
// doctors exactly one wins; the loser gets a conflict and should re-poll.
// A doctor who previously rejected the meeting cannot claim it; to them it
// does not exist.
func (b *Broker) Accept(ctx context.Context, doctorID uuid.UUID, role model.Role, meetingID uuid.UUID) (*model.Meeting, error) {
	if role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only doctors can accept meetings", nil)
	}

	err := b.queue.repo.Match(ctx, meetingID, doctorID)
	switch {
	case err == nil:
		// claimed
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NotFound("meeting", err)
	case errors.Is(err, repository.ErrMeetingNotPending):
		meeting, getErr := b.queue.repo.Get(ctx, meetingID)
		if getErr != nil {
			return nil, apperrors.NotFound("meeting", getErr)
		}
		if meeting.Status == model.MeetingStatusPending && meeting.IsRejectedBy(doctorID) {
			return nil, apperrors.NotFound("meeting", nil)
		}
		b.metrics.AcceptConflicts.Inc()
		return nil, apperrors.Conflict("meeting already matched")
	default:
		return nil, apperrors.Internal(fmt.Errorf("accept meeting: %w", err))
	}

	meeting, err := b.queue.repo.Get(ctx, meetingID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("get meeting after accept: %w", err))
	}

	b.metrics.MatchesTotal.Inc()
	b.metrics.PendingMeetings.Dec()
	_ = b.broker.Publish(ctx, messaging.ChannelMeetingMatched, meeting)

	return meeting, nil
}

// Reject marks the meeting as declined by this doctor and leaves it pending
// for everyone else. Rejecting twice is a no-op.
func (b *Broker) Reject(ctx context.Context, doctorID uuid.UUID, role model.Role, meetingID uuid.UUID) error {
	if role != model.RoleDoctor {
		return apperrors.Forbidden("only doctors can reject meetings", nil)
	}
	return b.queue.MarkRejected(ctx, doctorID, meetingID)
}

// Join re-issues a call credential for a participant of an existing
// meeting: the requesting patient, or the doctor it matched with.
func (b *Broker) Join(ctx context.Context, callerID uuid.UUID, meetingID uuid.UUID) (*model.CallCredential, error) {
	meeting, err := b.queue.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.Status == model.MeetingStatusTerminated {
		return nil, apperrors.NotFound("meeting", nil)
	}

	isPatient := meeting.PatientID == callerID
	isDoctor := meeting.DoctorID != nil && *meeting.DoctorID == callerID
	if !isPatient && !isDoctor {
		return nil, apperrors.Forbidden("not a participant of this meeting", nil)
	}

	cred, err := b.creds.IssueCallCredential(callerID, meeting.ID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("issue call credential: %w", err))
	}
	return cred, nil
}

func (b *Broker) doctorProfile(ctx context.Context, doctorID uuid.UUID) (*model.User, error) {
	if cached, ok := b.profiles.Get(doctorID.String()); ok {
		return cached.(*model.User), nil
	}

	user, err := b.users.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("get doctor profile: %w", err))
	}
	if !user.IsDoctor() {
		return nil, apperrors.Forbidden("user is not a doctor", nil)
	}

	b.profiles.Set(doctorID.String(), user, gocache.DefaultExpiration)
	return user, nil
}
