package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taxdesk/compliance/compliance-backend/internal/apperr"
)

// Claims carried by session tokens. Actor is the impersonating user, if any.
type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Actor string `json:"act,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager validates HS256 session tokens and issues short-lived
// impersonation tokens.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

func (m *TokenManager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperr.ErrUnauthorized
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, apperr.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || !claims.Role.IsValid() {
		return nil, apperr.ErrUnauthorized
	}

	session := &Session{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if claims.Actor != "" {
		actor, err := uuid.Parse(claims.Actor)
		if err != nil {
			return nil, apperr.ErrUnauthorized
		}
		session.ImpersonatorID = &actor
	}
	return session, nil
}

// Issue signs a token for the session valid for ttl
func (m *TokenManager) Issue(session Session, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	now := m.now()
	claims := Claims{
		Email: session.Email,
		Role:  session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if session.ImpersonatorID != nil {
		claims.Actor = session.ImpersonatorID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}
