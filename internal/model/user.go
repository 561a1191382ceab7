package model

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// User is the read-only profile view this service consumes. Profile CRUD
// lives in the user-profile service; only role and specializations matter
// here.
type User struct {
	Base
	Name            string         `db:"name" json:"name"`
	Email           string         `db:"email" json:"email"`
	Role            Role           `db:"role" json:"role"`
	Specializations pq.StringArray `db:"specializations" json:"specializations,omitempty"`
}

func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

func (u *User) IsPatient() bool {
	return u.Role == RolePatient
}

// TokenClaims is the identity resolved from a bearer token.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}
