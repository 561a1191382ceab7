package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimeet/consult-api/internal/model"
)

func newTestService() *jwtService {
	return NewJWTService(Config{
		AccessSecret: "access-secret",
		CallSecret:   "call-secret",
		APIKey:       "media-api-key",
		CallTTL:      30 * time.Minute,
	})
}

func TestResolveRoundTrip(t *testing.T) {
	svc := newTestService()
	user := &model.User{
		Base:  model.Base{ID: uuid.New()},
		Email: "pat@example.com",
		Role:  model.RolePatient,
	}

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, model.RolePatient, claims.Role)
}

func TestResolveRejectsWrongSecret(t *testing.T) {
	token, err := newTestService().GenerateAccessToken(&model.User{
		Base: model.Base{ID: uuid.New()},
		Role: model.RoleDoctor,
	})
	require.NoError(t, err)

	other := NewJWTService(Config{AccessSecret: "different-secret"})
	_, err = other.Resolve(token)
	require.Error(t, err)
}

func TestResolveRejectsGarbage(t *testing.T) {
	_, err := newTestService().Resolve("not-a-token")
	require.Error(t, err)
}

func TestIssueCallCredential(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()
	meetingID := uuid.New()

	cred, err := svc.IssueCallCredential(userID, meetingID)
	require.NoError(t, err)
	assert.Equal(t, meetingID, cred.MeetingID)
	assert.Equal(t, "media-api-key", cred.APIKey)
	assert.NotEmpty(t, cred.Token)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), cred.ExpiresAt, 5*time.Second)

	// Call tokens are signed with the call secret, not the access secret,
	// so they never pass identity verification.
	_, err = svc.Resolve(cred.Token)
	require.Error(t, err)
}

func TestCallTTLDefault(t *testing.T) {
	svc := NewJWTService(Config{AccessSecret: "a", CallSecret: "b"})

	cred, err := svc.IssueCallCredential(uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, 5*time.Second)
}
