package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/apperr"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", "taxdesk")
	userID := uuid.New()
	actor := uuid.New()

	token, err := m.Issue(Session{UserID: userID, Email: "a@example.com", Role: RoleStaff, ImpersonatorID: &actor}, time.Minute)
	require.NoError(t, err)

	session, err := m.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, "a@example.com", session.Email)
	assert.Equal(t, RoleStaff, session.Role)
	require.NotNil(t, session.ImpersonatorID)
	assert.Equal(t, actor, *session.ImpersonatorID)
}

func TestTokenManagerRejects(t *testing.T) {
	m := NewTokenManager("secret", "taxdesk")
	other := NewTokenManager("other-secret", "taxdesk")

	expired := NewTokenManager("secret", "taxdesk")
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, err := expired.Issue(Session{UserID: uuid.New(), Role: RoleUser}, time.Minute)
	require.NoError(t, err)

	forged, err := other.Issue(Session{UserID: uuid.New(), Role: RoleAdmin}, time.Minute)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "root",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "taxdesk",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-token",
		"expired":  expiredToken,
		"forged":   forged,
		"bad role": badRole,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Validate(context.Background(), token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewTokenManager("secret", "taxdesk")

	r := gin.New()
	r.GET("/me", RequireSession(m, "session", zap.NewNop()), func(c *gin.Context) {
		s, err := SessionFrom(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"user_id": s.UserID})
	})

	userID := uuid.New()
	token, err := m.Issue(Session{UserID: userID, Role: RoleUser}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
