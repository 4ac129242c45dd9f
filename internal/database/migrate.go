package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migrations loader
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"order-desk/internal/database/migrations"
	"order-desk/internal/logging"
)

// RunMigrations applies the credential schema. An empty dir uses the
// migrations embedded in the binary.
func (db *DB) RunMigrations(ctx context.Context, dir string) error {
	log := logging.FromContext(ctx).WithComponent("database")

	conn, err := sql.Open("pgx", db.dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migrations database: %w", err)
	}

	driver, err := pgxv5.WithInstance(conn, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("initialise pgx v5 driver: %w", err)
	}

	m, err := newMigrate(dir, driver)
	if err != nil {
		return err
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Warn("migrations close", "source_error", sourceErr, "db_error", dbErr)
		}
	}()

	log.Info("running database migrations", "path", orEmbedded(dir))
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("database migrations up-to-date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("database migrations applied")
	return nil
}

func newMigrate(dir string, driver database.Driver) (*migrate.Migrate, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		src, err := iofs.New(migrations.Files, ".")
		if err != nil {
			return nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
		if err != nil {
			return nil, fmt.Errorf("initialise migrate instance: %w", err)
		}
		return m, nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve migrations path: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(fileURL(abs), "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("initialise migrate instance: %w", err)
	}
	return m, nil
}

func fileURL(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String()
}

func orEmbedded(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return "embedded"
	}
	return dir
}
