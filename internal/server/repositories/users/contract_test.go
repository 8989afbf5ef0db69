package users

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/coursesms/courses/internal/common"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string, role models.Role) *models.User {
	return &models.User{
		FirstName:    "First",
		LastName:     "Last",
		Email:        email,
		PasswordHash: "salt:key",
		Role:         role,
	}
}

// testRepositoryContract exercises behavior every Repository must share.
// newRepo must return an empty store.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)

		n, err := repo.Create(ctx, newUser("a@b.com", models.RoleAdmin))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		byEmail, err := repo.FindByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		assert.NotZero(t, byEmail.ID)
		assert.Equal(t, "First", byEmail.FirstName)
		assert.Equal(t, "Last", byEmail.LastName)
		assert.Equal(t, "salt:key", byEmail.PasswordHash)
		assert.Equal(t, models.RoleAdmin, byEmail.Role)
		assert.False(t, byEmail.HasRefreshToken())

		byID, err := repo.FindByID(ctx, byEmail.ID)
		require.NoError(t, err)
		assert.Equal(t, byEmail, byID)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByEmail(ctx, "ghost@b.com")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = repo.FindByID(ctx, 999)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, newUser("a@b.com", models.RoleUser))
		require.NoError(t, err)
		_, err = repo.Create(ctx, newUser("a@b.com", models.RoleUser))
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	})

	t.Run("set and swap refresh token", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, newUser("a@b.com", models.RoleUser))
		require.NoError(t, err)
		u, err := repo.FindByEmail(ctx, "a@b.com")
		require.NoError(t, err)

		// Nothing stored yet: a swap can never match.
		n, err := repo.SwapRefreshToken(ctx, u.ID, "", "t1")
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.SetRefreshToken(ctx, u.ID, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.SwapRefreshToken(ctx, u.ID, "stale", "t2")
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.SwapRefreshToken(ctx, u.ID, "t1", "t2")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.RefreshToken)
		assert.Equal(t, "t2", *got.RefreshToken)

		n, err = repo.SetRefreshToken(ctx, 999, "t3")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("concurrent swaps have one winner", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, newUser("a@b.com", models.RoleUser))
		require.NoError(t, err)
		u, err := repo.FindByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		_, err = repo.SetRefreshToken(ctx, u.ID, "shared")
		require.NoError(t, err)

		const workers = 8
		var (
			wg      sync.WaitGroup
			winners atomic.Int64
			start   = make(chan struct{})
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				n, err := repo.SwapRefreshToken(ctx, u.ID, "shared", "next-"+string(rune('a'+i)))
				if err == nil && n == 1 {
					winners.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int64(1), winners.Load())
	})

	t.Run("create if empty", func(t *testing.T) {
		repo := newRepo(t)

		seed := []*models.User{newUser("admin@b.com", models.RoleAdmin), newUser("user@b.com", models.RoleUser)}
		n, err := repo.CreateIfEmpty(ctx, seed)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = repo.CreateIfEmpty(ctx, []*models.User{newUser("late@b.com", models.RoleUser)})
		require.NoError(t, err)
		assert.Zero(t, n)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "admin@b.com", all[0].Email)
		assert.Equal(t, "user@b.com", all[1].Email)
		assert.Less(t, all[0].ID, all[1].ID)
	})

	t.Run("create if empty rejects duplicate batch", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.CreateIfEmpty(ctx, []*models.User{newUser("x@b.com", models.RoleUser), newUser("x@b.com", models.RoleUser)})
		assert.True(t, errors.Is(err, common.ErrorAlreadyExists), "got %v", err)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("list empty", func(t *testing.T) {
		repo := newRepo(t)
		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
