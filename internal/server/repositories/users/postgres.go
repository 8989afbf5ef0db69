package users

import (
	"errors"
	"strconv"

	"github.com/coursesms/courses/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

var postgresQueries = queries{
	findByEmail: `SELECT ` + userColumns + ` FROM users WHERE email = $1`,
	findByID:    `SELECT ` + userColumns + ` FROM users WHERE id = $1`,
	create: `INSERT INTO users (first_name, last_name, email, password, role)
		VALUES ($1, $2, $3, $4, $5)`,
	setToken:  `UPDATE users SET refresh_token = $1 WHERE id = $2`,
	swapToken: `UPDATE users SET refresh_token = $1 WHERE id = $2 AND refresh_token = $3`,
	list:      `SELECT ` + userColumns + ` FROM users ORDER BY id`,

	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// PostgresRepository stores users in PostgreSQL through the pgx stdlib
// driver. It works over *sql.DB and *sql.Tx alike.
type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlRepository{db: db, q: postgresQueries, isUnique: isPgUniqueViolation}}
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
