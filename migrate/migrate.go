// Package migrate applies the embedded schema migrations for the persistent
// client and token stores.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

const migrationsDir = "sql"

// Options selects the database and the migration command to run against it.
type Options struct {
	Driver  string      // postgres or sqlite
	DSN     string      // connection string, or a file path for sqlite
	Command string      // up (default), down, status, version, up-to, down-to, redo, reset
	Target  int64       // version for up-to / down-to
	Logger  *log.Logger // optional
}

// Run opens the database and executes the requested migration command.
// Empty Driver or DSN is a no-op so callers can pass through unset
// configuration.
func Run(ctx context.Context, opts Options) error {
	driver := strings.TrimSpace(opts.Driver)
	if driver == "" || strings.TrimSpace(opts.DSN) == "" {
		return nil
	}

	if opts.Logger != nil {
		goose.SetLogger(opts.Logger)
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect(dialectFor(driver)); err != nil {
		return err
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	switch strings.ToLower(strings.TrimSpace(opts.Command)) {
	case "", "up":
		return goose.UpContext(ctx, db, migrationsDir)
	case "down":
		return goose.DownContext(ctx, db, migrationsDir)
	case "status":
		return goose.StatusContext(ctx, db, migrationsDir)
	case "version":
		return goose.VersionContext(ctx, db, migrationsDir)
	case "up-to":
		return goose.UpToContext(ctx, db, migrationsDir, opts.Target)
	case "down-to":
		return goose.DownToContext(ctx, db, migrationsDir, opts.Target)
	case "redo":
		return goose.RedoContext(ctx, db, migrationsDir)
	case "reset":
		return goose.ResetContext(ctx, db, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command: %s", opts.Command)
	}
}

// dialectFor maps a database/sql driver name onto the goose dialect name.
func dialectFor(driver string) string {
	if driver == "sqlite" {
		return "sqlite3"
	}
	return driver
}
