package postgres

import (
	"embed"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending embedded migration and returns how many ran.
func Migrate(pool *pgxpool.Pool) (int, error) {
	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()

	source := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("running migrations: %w", err)
	}
	return n, nil
}
