package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coursesms/courses/internal/dbx"
	"github.com/coursesms/courses/internal/server/migrations"
	"github.com/coursesms/courses/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type sqlDialect struct {
	migrations migrations.Dialect
	newRepo    func(dbx.DBTX) users.Repository
	// maxOpenConns of 0 leaves the pool unbounded.
	maxOpenConns int
}

var (
	postgresDialect = sqlDialect{
		migrations: migrations.Postgres,
		newRepo:    func(db dbx.DBTX) users.Repository { return users.NewPostgresRepository(db) },
	}
	// SQLite allows one writer at a time; a single connection also keeps
	// :memory: databases from splitting per connection.
	sqliteDialect = sqlDialect{
		migrations:   migrations.SQLite,
		newRepo:      func(db dbx.DBTX) users.Repository { return users.NewSQLiteRepository(db) },
		maxOpenConns: 1,
	}
)

// migrateUp is a seam for testing migrations.Up.
var migrateUp = migrations.Up

// SQLRepositoryManager vends database/sql backed repositories.
type SQLRepositoryManager struct {
	db      *sql.DB
	dialect sqlDialect
}

func openSQL(ctx context.Context, driverName, dsn string, d sqlDialect) (*SQLRepositoryManager, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s: database DSN is required", driverName)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if d.maxOpenConns > 0 {
		db.SetMaxOpenConns(d.maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return newSQLManager(db, d), nil
}

func newSQLManager(db *sql.DB, d sqlDialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{db: db, dialect: d}
}

func (m *SQLRepositoryManager) Users() users.Repository {
	return m.dialect.newRepo(m.db)
}

func (m *SQLRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, m.dialect.newRepo(tx))
	})
}

// RunMigrations applies the embedded goose migrations of the dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context) error {
	return migrateUp(ctx, m.db, m.dialect.migrations)
}

func (m *SQLRepositoryManager) Close() error {
	return m.db.Close()
}
