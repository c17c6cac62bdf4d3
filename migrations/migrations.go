package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/danthegoodman1/icetable/gologger"
	// ensure "pgx" driver is loaded
	_ "github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	//go:embed *.sql
	migrations embed.FS

	ErrMigrationsNotRun = fmt.Errorf("not all migrations applied")

	logger = gologger.NewLogger()
)

func migrationSource() (migrate.MigrationSource, migrate.MigrationSet) {
	src := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       ".",
	}
	ms := migrate.MigrationSet{
		TableName: "migrations",
	}
	return src, ms
}

func RunMigrations(crdbDsn string) (int, error) {
	db, err := sql.Open("pgx", crdbDsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	src, ms := migrationSource()
	n, err := ms.Exec(db, "postgres", src, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("error in ms.Exec: %w", err)
	}
	logger.Info().Int("applied", n).Msg("ran migrations")
	return n, nil
}

func CheckMigrations(crdbDsn string) error {
	db, err := sql.Open("pgx", crdbDsn)
	if err != nil {
		return err
	}
	defer db.Close()
	src, ms := migrationSource()
	migration, _, err := ms.PlanMigration(db, "postgres", src, migrate.Up, 0)
	if err != nil {
		return err
	}
	if len(migration) > 0 {
		for _, mig := range migration {
			logger.Warn().Str("migrationID", mig.Id).Msg("missing migration")
		}
		return ErrMigrationsNotRun
	}
	return nil
}
