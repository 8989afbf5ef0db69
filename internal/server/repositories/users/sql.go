package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coursesms/courses/internal/common"
	"github.com/coursesms/courses/internal/dbx"
	"github.com/coursesms/courses/internal/server/models"
)

const userColumns = `id, first_name, last_name, email, password, role, refresh_token`

// queries holds the dialect-specific statements of a SQL repository.
type queries struct {
	findByEmail string
	findByID    string
	create      string
	setToken    string
	swapToken   string
	list        string

	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string
}

// sqlRepository is the database/sql implementation shared by the
// PostgreSQL and SQLite repositories.
type sqlRepository struct {
	db       dbx.DBTX
	q        queries
	isUnique func(error) bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		role  string
		token sql.NullString
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &role, &token); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if token.Valid {
		u.RefreshToken = &token.String
	}
	return &u, nil
}

func (r *sqlRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *sqlRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, r.q.findByEmail, email)
}

func (r *sqlRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, r.q.findByID, id)
}

func (r *sqlRepository) Create(ctx context.Context, u *models.User) (int64, error) {
	n, err := dbx.Affected(r.db.ExecContext(ctx, r.q.create,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role)))
	if err != nil {
		if r.isUnique(err) {
			return 0, common.ErrorAlreadyExists
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// CreateIfEmpty inserts every record in one INSERT ... SELECT guarded by
// NOT EXISTS, so the emptiness check and the insert form one statement.
func (r *sqlRepository) CreateIfEmpty(ctx context.Context, us []*models.User) (int64, error) {
	if len(us) == 0 {
		return 0, nil
	}

	rows := make([]string, 0, len(us))
	args := make([]any, 0, len(us)*5)
	for i, u := range us {
		ph := make([]string, 5)
		for j := range ph {
			ph[j] = r.q.placeholder(i*5 + j + 1)
		}
		rows = append(rows, "("+strings.Join(ph, ", ")+")")
		args = append(args, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role))
	}

	query := `INSERT INTO users (first_name, last_name, email, password, role)
		SELECT * FROM (VALUES ` + strings.Join(rows, ", ") + `) AS v
		WHERE NOT EXISTS (SELECT 1 FROM users)`

	n, err := dbx.Affected(r.db.ExecContext(ctx, query, args...))
	if err != nil {
		if r.isUnique(err) {
			return 0, common.ErrorAlreadyExists
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *sqlRepository) SetRefreshToken(ctx context.Context, id int64, token string) (int64, error) {
	n, err := dbx.Affected(r.db.ExecContext(ctx, r.q.setToken, token, id))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *sqlRepository) SwapRefreshToken(ctx context.Context, id int64, expected, next string) (int64, error) {
	n, err := dbx.Affected(r.db.ExecContext(ctx, r.q.swapToken, next, id, expected))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *sqlRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, r.q.list)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
