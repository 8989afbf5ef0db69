// Package repomanager opens the configured user store and vends
// repositories bound to it.
package repomanager

import (
	"context"
	"fmt"

	"github.com/coursesms/courses/internal/server/repositories/users"
)

// Driver names a supported store.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverRedis    Driver = "redis"
)

// Options selects and addresses the store.
type Options struct {
	Driver Driver
	// DSN is the database URL for the SQL drivers, or a redis:// URL.
	DSN string
	// RedisAddr is used when Driver is redis and DSN is empty.
	RedisAddr   string
	RedisPrefix string
}

type RepositoryManager interface {
	// Users returns a repository bound to the store's default handle.
	Users() users.Repository
	// WithinTx runs fn with a repository bound to one transaction. Stores
	// without transactions run fn directly; their single operations are
	// atomic on their own.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error
	RunMigrations(ctx context.Context) error
	Close() error
}

// Open connects to the store described by opts.
func Open(ctx context.Context, opts Options) (RepositoryManager, error) {
	switch opts.Driver {
	case DriverPostgres:
		return openSQL(ctx, "pgx", opts.DSN, postgresDialect)
	case DriverSQLite:
		return openSQL(ctx, "sqlite", opts.DSN, sqliteDialect)
	case DriverRedis:
		return openRedis(ctx, opts)
	}
	return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
}
