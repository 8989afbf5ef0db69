// Package seed fills an empty user store with initial accounts.
package seed

import (
	"context"
	"fmt"

	"github.com/coursesms/courses/internal/logging"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/coursesms/courses/internal/server/password"
	"github.com/coursesms/courses/internal/server/repositories/users"
)

// Account is a user to seed, with its password in clear text.
type Account struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      models.Role
}

// DefaultAccounts returns one admin and one regular user sharing pw.
func DefaultAccounts(pw string) []Account {
	return []Account{
		{FirstName: "Mario", LastName: "Rossi", Email: "mario.rossi@email.com", Password: pw, Role: models.RoleAdmin},
		{FirstName: "John", LastName: "Doe", Email: "john.doe@email.com", Password: pw, Role: models.RoleUser},
	}
}

// Seed inserts accounts only if repo holds no user at all. A non-empty
// store is left untouched and reported with a warning. It returns the
// number of users inserted.
func Seed(ctx context.Context, repo users.Repository, hasher *password.Hasher, accounts []Account, log logging.Logger) (int64, error) {
	records := make([]*models.User, 0, len(accounts))
	for _, a := range accounts {
		if !a.Role.Valid() {
			return 0, fmt.Errorf("seed %s: unknown role %q", a.Email, a.Role)
		}
		hash, err := hasher.Hash(a.Password)
		if err != nil {
			return 0, fmt.Errorf("seed %s: %w", a.Email, err)
		}
		records = append(records, &models.User{
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			Email:        a.Email,
			PasswordHash: hash,
			Role:         a.Role,
		})
	}

	n, err := repo.CreateIfEmpty(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("seed users: %w", err)
	}
	if n == 0 && len(records) > 0 {
		log.Warn(ctx, "Cannot seed users: database already initialized")
		return 0, nil
	}

	log.Info(ctx, "Users seeding completed", "count", n)
	return n, nil
}
