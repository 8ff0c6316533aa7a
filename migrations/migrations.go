// Package migrations embeds the news archive schema migrations and
// applies them with goose. Both the service startup and the migrate
// CLI go through Apply, so the dialect and base FS are configured in
// one place.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// Dialect is the goose dialect for the archive database, shared with
// the migrate CLI.
const Dialect = "sqlite3"

//go:embed *.sql
var fs embed.FS

// Run brings the archive schema up to the latest version. Called by
// storage.NewSQLite on startup.
func Run(db *sql.DB) error {
	return Apply(db, "up")
}

// Apply runs one migration command against the archive schema. The
// command names mirror the migrate CLI.
func Apply(db *sql.DB, command string) error {
	goose.SetBaseFS(fs)
	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}
