package migration

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Embed SQL files from the local migrations folder
//
//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// GooseAdapter routes goose output through zerolog.
type GooseAdapter struct {
	logger zerolog.Logger
}

func NewGooseAdapter(logger zerolog.Logger) *GooseAdapter {
	return &GooseAdapter{logger: logger.With().Str("component", "goose").Logger()}
}

func (a *GooseAdapter) Fatalf(format string, v ...interface{}) {
	a.logger.Fatal().Msgf(format, v...)
}

func (a *GooseAdapter) Printf(format string, v ...interface{}) {
	a.logger.Info().Msgf(format, v...)
}

// gooseDialect maps a database/sql driver name onto the goose dialect.
func gooseDialect(driver string) (string, error) {
	switch driver {
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("no migration dialect for driver %q", driver)
	}
}

// RunMigrations applies all embedded migrations to db.
func RunMigrations(db *sql.DB, driver string, logger zerolog.Logger) error {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "failed to set migration dialect")
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	logger.Info().Str("dialect", dialect).Msg("Migrations completed successfully")
	return nil
}
