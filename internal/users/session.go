package users

import (
	"context"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/auth"
)

// SessionValidator checks the token and then reloads the user, so role
// changes, deletions and account suspensions apply to live sessions.
type SessionValidator struct {
	tokens auth.Validator
	repo   Repository
}

func NewSessionValidator(tokens auth.Validator, repo Repository) *SessionValidator {
	return &SessionValidator{tokens: tokens, repo: repo}
}

func (v *SessionValidator) Validate(ctx context.Context, token string) (*auth.Session, error) {
	session, err := v.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := v.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.AccountSuspended {
		return nil, apperr.ErrUnauthorized
	}

	session.Email = user.Email
	session.Role = user.Role
	session.ComplianceSuspended = user.ComplianceSuspended
	return session, nil
}
