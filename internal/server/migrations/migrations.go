// Package migrations embeds the SQL schema of the user store, one goose
// directory per SQL dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Dialect names a migration directory.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) goose() (goose.Dialect, error) {
	switch d {
	case Postgres:
		return goose.DialectPostgres, nil
	case SQLite:
		return goose.DialectSQLite3, nil
	}
	return "", fmt.Errorf("unsupported migration dialect %q", d)
}

// Up applies every pending migration of dialect d to db.
func Up(ctx context.Context, db *sql.DB, d Dialect) error {
	gd, err := d.goose()
	if err != nil {
		return err
	}
	fsys, err := fs.Sub(Migrations, string(d))
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(gd, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
