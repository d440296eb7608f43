package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/dashboard"
	"taxdesk/compliance/compliance-backend/internal/testutil"
	"taxdesk/compliance/compliance-backend/internal/users"
	"taxdesk/compliance/compliance-backend/pkg/cache"
)

func newSQLX(t *testing.T, db *gorm.DB) *sqlx.DB {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	return sqlx.NewDb(sqlDB, "sqlite3")
}

func seedUser(t *testing.T, db *gorm.DB, suspended bool) *users.User {
	t.Helper()
	u := &users.User{Email: uuid.NewString() + "@example.com", ComplianceSuspended: suspended}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedRequest(t *testing.T, db *gorm.DB, userID uuid.UUID, rt compliance.RequestType, status compliance.Status, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&compliance.ComplianceRequest{
		UserID:       userID,
		RequestType:  rt,
		Status:       status,
		DocumentURL:  "data:,x",
		DocumentName: string(rt),
		CreatedAt:    createdAt,
	}).Error)
}

func TestRepositoryAggregates(t *testing.T) {
	db := testutil.NewDB(t)
	repo := dashboard.NewRepository(newSQLX(t, db))
	ctx := context.Background()

	oldest, err := repo.OldestPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, oldest)

	a := seedUser(t, db, false)
	b := seedUser(t, db, true)
	deleted := seedUser(t, db, true)
	require.NoError(t, db.Delete(deleted).Error)

	first := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	seedRequest(t, db, a.ID, compliance.RequestTypeTaxDocument, compliance.StatusPending, first.Add(time.Hour))
	seedRequest(t, db, b.ID, compliance.RequestTypeTaxDocument, compliance.StatusPending, first)
	seedRequest(t, db, a.ID, compliance.RequestTypeIdentityDocument, compliance.StatusApproved, first)
	seedRequest(t, db, b.ID, compliance.RequestTypeIdentityDocument, compliance.StatusRejected, first)
	seedRequest(t, db, b.ID, compliance.RequestTypeIdentityDocument, compliance.StatusRejected, first)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[compliance.StatusPending])
	assert.Equal(t, int64(1), counts[compliance.StatusApproved])
	assert.Equal(t, int64(2), counts[compliance.StatusRejected])

	suspended, err := repo.CountSuspendedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), suspended)

	oldest, err = repo.OldestPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.True(t, first.Equal(*oldest), "got %s want %s", oldest, first)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CountByStatus(ctx context.Context) (map[compliance.Status]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[compliance.Status]int64)
	return counts, args.Error(1)
}

func (m *MockRepository) CountSuspendedUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) OldestPending(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	oldest, _ := args.Get(0).(*time.Time)
	return oldest, args.Error(1)
}

func TestServiceCachesUntilRefresh(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	repo := new(MockRepository)
	service := dashboard.NewService(repo, store, zap.NewNop())
	ctx := context.Background()

	oldest := time.Now().UTC().Add(-time.Hour)
	repo.On("CountByStatus", mock.Anything).Return(map[compliance.Status]int64{compliance.StatusPending: 3}, nil).Once()
	repo.On("CountSuspendedUsers", mock.Anything).Return(int64(1), nil).Once()
	repo.On("OldestPending", mock.Anything).Return(&oldest, nil).Once()

	stats, err := service.ComplianceStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(1), stats.SuspendedUsers)
	assert.GreaterOrEqual(t, stats.OldestPendingSeconds, int64(3599))

	// Served from cache; the mock would fail on a second call.
	stats, err = service.ComplianceStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Pending)

	repo.On("CountByStatus", mock.Anything).Return(map[compliance.Status]int64{compliance.StatusPending: 7}, nil).Once()
	repo.On("CountSuspendedUsers", mock.Anything).Return(int64(2), nil).Once()
	repo.On("OldestPending", mock.Anything).Return(nil, nil).Once()
	require.NoError(t, service.Refresh(ctx))

	stats, err = service.ComplianceStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.Pending)
	assert.Nil(t, stats.OldestPendingAt)
	assert.Zero(t, stats.OldestPendingSeconds)
	repo.AssertExpectations(t)
}

func TestServicePropagatesErrors(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	repo := new(MockRepository)
	service := dashboard.NewService(repo, store, zap.NewNop())

	repo.On("CountByStatus", mock.Anything).Return(nil, errors.New("replica down"))

	_, err := service.ComplianceStats(context.Background())
	assert.Error(t, err)
	assert.Error(t, service.Refresh(context.Background()))
}

func TestNewRefresherValidatesSchedule(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	service := dashboard.NewService(new(MockRepository), store, zap.NewNop())

	_, err := dashboard.NewRefresher(service, "every five minutes", zap.NewNop())
	assert.Error(t, err)

	r, err := dashboard.NewRefresher(service, "*/5 * * * *", zap.NewNop())
	require.NoError(t, err)
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}

func TestHandlerRequiresStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)

	service := dashboard.NewService(dashboard.NewRepository(newSQLX(t, db)), store, zap.NewNop())
	authorizer := authz.NewAuthorizer(authz.ModeEnforced, authz.NewStore(db), zap.NewNop())
	u := seedUser(t, db, true)

	router := func(role auth.Role) *gin.Engine {
		r := gin.New()
		admin := r.Group("/api/v1/admin")
		admin.Use(func(c *gin.Context) {
			auth.WithSession(c, &auth.Session{UserID: u.ID, Role: role})
			c.Next()
		})
		dashboard.NewHandler(service, authorizer, zap.NewNop()).RegisterRoutes(admin)
		return r
	}

	tests := []struct {
		name string
		role auth.Role
		want int
	}{
		{"customer", auth.RoleUser, http.StatusUnauthorized},
		{"staff", auth.RoleStaff, http.StatusOK},
		{"admin", auth.RoleAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router(tt.role).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard/compliance", nil))
			require.Equal(t, tt.want, w.Code)
			if tt.want != http.StatusOK {
				return
			}
			var stats dashboard.ComplianceStats
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
			assert.Equal(t, int64(1), stats.SuspendedUsers)
		})
	}
}
