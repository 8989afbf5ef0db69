package seed

import (
	"context"
	"database/sql"
	"testing"

	"github.com/coursesms/courses/internal/logging"
	"github.com/coursesms/courses/internal/server/migrations"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/coursesms/courses/internal/server/password"
	"github.com/coursesms/courses/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const seedPassword = "@B7lpxQ9!kW2zm"

func setup(t *testing.T) (users.Repository, *password.Hasher) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db, migrations.SQLite))

	h, err := password.NewHasher(password.Config{N: 1024, R: 8, P: 1, KeyLen: 64, SaltLen: 16})
	require.NoError(t, err)
	return users.NewSQLiteRepository(db), h
}

func TestSeed_EmptyStore(t *testing.T) {
	repo, h := setup(t)
	ctx := context.Background()

	n, err := Seed(ctx, repo, h, DefaultAccounts(seedPassword), logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	admin, err := repo.FindByEmail(ctx, "mario.rossi@email.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, h.Verify(seedPassword, admin.PasswordHash))

	user, err := repo.FindByEmail(ctx, "john.doe@email.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestSeed_NonEmptyStoreIsNoop(t *testing.T) {
	repo, h := setup(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{FirstName: "A", LastName: "B", Email: "a@b.com", PasswordHash: "h", Role: models.RoleUser})
	require.NoError(t, err)

	n, err := Seed(ctx, repo, h, DefaultAccounts(seedPassword), logging.Nop())
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSeed_Twice(t *testing.T) {
	repo, h := setup(t)
	ctx := context.Background()

	_, err := Seed(ctx, repo, h, DefaultAccounts(seedPassword), logging.Nop())
	require.NoError(t, err)
	n, err := Seed(ctx, repo, h, DefaultAccounts(seedPassword), logging.Nop())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeed_RejectsUnknownRole(t *testing.T) {
	repo, h := setup(t)

	_, err := Seed(context.Background(), repo, h, []Account{{Email: "x@y.z", Password: seedPassword, Role: "root"}}, logging.Nop())
	assert.Error(t, err)
}
