package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
)

// Verifier resolves an opaque bearer token into an identity. The API
// surface enforces role checks itself; this only answers "who is calling".
type Verifier interface {
	Resolve(token string) (*model.TokenClaims, error)
}

// CredentialIssuer mints short-lived call credentials scoped to one user
// and one meeting, consumed by the external media transport.
type CredentialIssuer interface {
	IssueCallCredential(userID, meetingID uuid.UUID) (*model.CallCredential, error)
}

type Config struct {
	AccessSecret string
	CallSecret   string
	// APIKey identifies this deployment to the media provider; it is
	// returned alongside each call credential.
	APIKey  string
	CallTTL time.Duration
}

type jwtService struct {
	cfg Config
}

func NewJWTService(cfg Config) *jwtService {
	if cfg.CallTTL == 0 {
		cfg.CallTTL = time.Hour
	}
	return &jwtService{cfg: cfg}
}

func (s *jwtService) Resolve(tokenString string) (*model.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.AccessSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	rawUserID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	email, _ := claims["email"].(string)

	return &model.TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   model.Role(role),
	}, nil
}

// GenerateAccessToken signs an identity token. The service itself only
// verifies tokens; this exists for dev mode and tests, where no external
// identity provider is in front of the API.
func (s *jwtService) GenerateAccessToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) IssueCallCredential(userID, meetingID uuid.UUID) (*model.CallCredential, error) {
	expiresAt := time.Now().Add(s.cfg.CallTTL)
	claims := jwt.MapClaims{
		"user_id":    userID.String(),
		"meeting_id": meetingID.String(),
		"exp":        expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.CallSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign call credential: %w", err)
	}

	return &model.CallCredential{
		MeetingID: meetingID,
		APIKey:    s.cfg.APIKey,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}
