package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coursesms/courses/internal/server/auth"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/coursesms/courses/internal/server/password"
	"github.com/coursesms/courses/internal/server/repositories/repomanager"
	"github.com/coursesms/courses/internal/server/repositories/users"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const goodPassword = "@B7lpxQ9!kW2zm"

func newTestTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	m, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "CoursesManagementSystemBE",
		Audience:      "CoursesManagementSystemBE",
	})
	require.NoError(t, err)
	return m
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(password.Config{N: 1024, R: 8, P: 1, KeyLen: 64, SaltLen: 16})
	require.NoError(t, err)
	return h
}

// newSQLiteManager opens a migrated SQLite store in a temp file and
// returns its path so tests can reach the table directly.
func newSQLiteManager(t *testing.T) (repomanager.RepositoryManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.db")
	m, err := repomanager.Open(context.Background(), repomanager.Options{
		Driver: repomanager.DriverSQLite,
		DSN:    "file:" + path + "?_pragma=busy_timeout(5000)",
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	require.NoError(t, m.RunMigrations(context.Background()))
	return m, path
}

func newRedisManager(t *testing.T) repomanager.RepositoryManager {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := repomanager.Open(context.Background(), repomanager.Options{
		Driver:    repomanager.DriverRedis,
		RedisAddr: mr.Addr(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// mockRepo is a testify mock of users.Repository.
type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, u *models.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) CreateIfEmpty(ctx context.Context, us []*models.User) (int64, error) {
	args := m.Called(ctx, us)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) SetRefreshToken(ctx context.Context, id int64, token string) (int64, error) {
	args := m.Called(ctx, id, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) SwapRefreshToken(ctx context.Context, id int64, expected, next string) (int64, error) {
	args := m.Called(ctx, id, expected, next)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	us, _ := args.Get(0).([]models.User)
	return us, args.Error(1)
}

// repoManager hands out one fixed repository.
type repoManager struct {
	repo users.Repository
}

func (m repoManager) Users() users.Repository { return m.repo }

func (m repoManager) WithinTx(ctx context.Context, fn func(context.Context, users.Repository) error) error {
	return fn(ctx, m.repo)
}

func (repoManager) RunMigrations(context.Context) error { return nil }
func (repoManager) Close() error                        { return nil }

func newMockedService(t *testing.T) (*AuthService, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	t.Cleanup(func() { repo.AssertExpectations(t) })
	return NewAuthService(repoManager{repo: repo}, newTestTokens(t), newTestHasher(t)), repo
}

func bearer(token string) string { return "Bearer " + token }
