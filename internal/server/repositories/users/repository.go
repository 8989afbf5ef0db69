// Package users persists user records and the single live refresh token
// each user may hold. Implementations exist for PostgreSQL, SQLite and Redis.
package users

import (
	"context"

	"github.com/coursesms/courses/internal/server/models"
)

// Repository is the session store seen by the auth service.
//
// Lookups return common.ErrorNotFound for missing records. Mutations
// return the number of affected records so callers can tell a write that
// matched nothing from one that failed.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// Create inserts u. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, u *models.User) (int64, error)

	// CreateIfEmpty inserts all of us only when the store holds no user at
	// all. It returns the number of records inserted.
	CreateIfEmpty(ctx context.Context, us []*models.User) (int64, error)

	// SetRefreshToken overwrites the stored refresh token unconditionally.
	SetRefreshToken(ctx context.Context, id int64, token string) (int64, error)

	// SwapRefreshToken stores next only if the stored token still equals
	// expected. Zero affected records means the swap lost.
	SwapRefreshToken(ctx context.Context, id int64, expected, next string) (int64, error)

	List(ctx context.Context) ([]models.User, error)
}
