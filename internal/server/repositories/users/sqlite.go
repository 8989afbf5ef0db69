package users

import (
	"errors"

	"github.com/coursesms/courses/internal/dbx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteQueries = queries{
	findByEmail: `SELECT ` + userColumns + ` FROM users WHERE email = ?`,
	findByID:    `SELECT ` + userColumns + ` FROM users WHERE id = ?`,
	create: `INSERT INTO users (first_name, last_name, email, password, role)
		VALUES (?, ?, ?, ?, ?)`,
	setToken:  `UPDATE users SET refresh_token = ? WHERE id = ?`,
	swapToken: `UPDATE users SET refresh_token = ? WHERE id = ? AND refresh_token = ?`,
	list:      `SELECT ` + userColumns + ` FROM users ORDER BY id`,

	placeholder: func(int) string { return "?" },
}

// SQLiteRepository stores users in SQLite through the pure-Go modernc
// driver.
type SQLiteRepository struct {
	sqlRepository
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{db: db, q: sqliteQueries, isUnique: isSQLiteUniqueViolation}}
}

func isSQLiteUniqueViolation(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
