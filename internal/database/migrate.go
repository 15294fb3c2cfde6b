// internal/database/migrate.go
//
// Schema migrations via goose.  SQL files live in migrations/ and are
// embedded into the binary, so deploys never ship loose .sql files.

package database

import (
	"context"
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("mysql"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return err
	}
	v, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return err
	}
	zap.S().Infow("database migrated", "version", v)
	return nil
}
