package auth

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Session is what a validated token resolves to
type Session struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
	// ImpersonatorID is set when a staff member acts as this user.
	ImpersonatorID      *uuid.UUID `json:"impersonator_id,omitempty"`
	ComplianceSuspended bool       `json:"compliance_suspended"`
}

// Validator resolves an opaque bearer token to a session.
// Any failure is reported as apperr.ErrUnauthorized.
type Validator interface {
	Validate(ctx context.Context, token string) (*Session, error)
}
